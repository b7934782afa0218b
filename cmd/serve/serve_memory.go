package serve

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
	"golang.org/x/sync/errgroup"

	"github.com/JeremyNoori/xdc-risk-monitor/cmd/env"
	"github.com/JeremyNoori/xdc-risk-monitor/ingest"
	"github.com/JeremyNoori/xdc-risk-monitor/provider/cmc"
	"github.com/JeremyNoori/xdc-risk-monitor/server"
	"github.com/JeremyNoori/xdc-risk-monitor/server/config"
	"github.com/JeremyNoori/xdc-risk-monitor/settings"
	"github.com/JeremyNoori/xdc-risk-monitor/storage/memory"
)

type serveMemoryCfg struct {
	rootCfg *serveCfg
}

// newServeMemoryCmd creates the serve memory command.
func newServeMemoryCmd(rootCfg *serveCfg) *ffcli.Command {
	cfg := &serveMemoryCfg{
		rootCfg: rootCfg,
	}

	fs := flag.NewFlagSet("memory", flag.ExitOnError)
	cfg.rootCfg.registerFlags(fs)

	return &ffcli.Command{
		Name:       "memory",
		ShortUsage: "serve memory [flags]",
		LongHelp:   "Serves the venue risk monitor backend, using an in-memory datastore",
		FlagSet:    fs,
		Exec:       cfg.exec,
		Options: []ff.Option{
			ff.WithEnvVars(),
			ff.WithEnvVarPrefix(env.Prefix),
		},
	}
}

func (c *serveMemoryCfg) exec(ctx context.Context, _ []string) error {
	// Read the server configuration, if any
	if c.rootCfg.configPath != "" {
		serverCfg, err := config.Read(c.rootCfg.configPath)
		if err != nil {
			return fmt.Errorf("unable to read server config, %w", err)
		}

		c.rootCfg.config = serverCfg
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// Load .env
	if err := godotenv.Load(); err != nil {
		logger.Warn("unable to load .env file")
	}

	// Create an in-memory store
	store := memory.NewStorage()

	// Create the settings resolver
	resolver := settings.NewResolver(store, settings.WithLogger(logger))

	// Create the market data client
	client := cmc.NewClient(resolver, cmc.WithLogger(logger))

	// Create the ingestion service
	ingestor := ingest.New(client, store, ingest.WithLogger(logger))

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

	group.Go(func() error {
		return s.Serve(gCtx)
	})

	if c.rootCfg.ingestInterval > 0 {
		group.Go(func() error {
			return runIngestLoop(gCtx, ingestor, c.rootCfg.ingestInterval, logger)
		})
	}

	return group.Wait()
}
