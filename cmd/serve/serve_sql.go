package serve

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
	"golang.org/x/sync/errgroup"

	"github.com/JeremyNoori/xdc-risk-monitor/ingest"
	"github.com/JeremyNoori/xdc-risk-monitor/provider/cmc"
	"github.com/JeremyNoori/xdc-risk-monitor/settings"

	"github.com/JeremyNoori/xdc-risk-monitor/cmd/env"
	"github.com/JeremyNoori/xdc-risk-monitor/server"
	"github.com/JeremyNoori/xdc-risk-monitor/server/config"
	"github.com/JeremyNoori/xdc-risk-monitor/storage/sql"
)

type serveSQLCfg struct {
	rootCfg *serveCfg
}

// newServeSQLCmd creates the serve sql command
func newServeSQLCmd(rootCfg *serveCfg) *ffcli.Command {
	cfg := &serveSQLCfg{
		rootCfg: rootCfg,
	}

	fs := flag.NewFlagSet("sql", flag.ExitOnError)
	cfg.rootCfg.registerFlags(fs)

	return &ffcli.Command{
		Name:       "sql",
		ShortUsage: "serve sql [flags]",
		LongHelp:   "Serves the venue risk monitor backend, using an SQL datastore",
		FlagSet:    fs,
		Exec:       cfg.exec,
		Options: []ff.Option{
			// Allow using ENV variables
			ff.WithEnvVars(),
			ff.WithEnvVarPrefix(env.Prefix),
		},
	}
}

// exec executes the server serve command
func (c *serveSQLCfg) exec(ctx context.Context, _ []string) error {
	// Read the server configuration, if any
	if c.rootCfg.configPath != "" {
		serverCfg, err := config.Read(c.rootCfg.configPath)
		if err != nil {
			return fmt.Errorf("unable to read server config, %w", err)
		}

		c.rootCfg.config = serverCfg
	}

	// Create a new logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// Load .env
	if err := godotenv.Load(); err != nil {
		logger.Warn("unable to load .env file")
	}

	// DB
	dsn := os.Getenv(settings.KeyDatabaseURL)
	if dsn == "" {
		return fmt.Errorf("missing %s", settings.KeyDatabaseURL)
	}

	// Open DB connection pool
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("unable to open DB connection: %w", err)
	}

	defer pool.Close()

	// Check DB reachability
	pingCtx, cancelPing := context.WithTimeout(ctx, time.Second*5)
	defer cancelPing()

	if err = pool.Ping(pingCtx); err != nil {
		return fmt.Errorf("unable to reach DB (ping): %w", err)
	}

	logger.Info("DB ping success")

	// Make sure the schema is in place
	if err = sql.ApplySchema(ctx, pool); err != nil {
		return fmt.Errorf("unable to apply DB schema: %w", err)
	}

	// Create an SQL store
	store := sql.NewStorage(pool)

	// Create the settings resolver
	resolver := settings.NewResolver(store, settings.WithLogger(logger))

	// Create the market data client
	client := cmc.NewClient(resolver, cmc.WithLogger(logger))

	// Create the ingestion service
	ingestor := ingest.New(client, store, ingest.WithLogger(logger))

	// Create the server instance
	s, err := server.New(
		store,
		ingestor,
		server.WithLogger(logger),
		server.WithConfig(c.rootCfg.config),
		server.WithResolver(resolver),
	)
	if err != nil {
		return fmt.Errorf("unable to create server, %w", err)
	}

	runCtx, cancelFn := signal.NotifyContext(
		ctx,
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)

	defer cancelFn()

	group, gCtx := errgroup.WithContext(runCtx)

	// Start the HTTP server
	group.Go(func() error {
		return s.Serve(gCtx)
	})

	// Start the scheduled ingestion loop, if enabled
	if c.rootCfg.ingestInterval > 0 {
		group.Go(func() error {
			return runIngestLoop(gCtx, ingestor, c.rootCfg.ingestInterval, logger)
		})
	}

	return group.Wait()
}
