package sql

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"math/big"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JeremyNoori/xdc-risk-monitor/storage"
	"github.com/JeremyNoori/xdc-risk-monitor/storage/types"
)

type Storage struct {
	pool *pgxpool.Pool
}

// NewStorage creates a new postgres-backed store
func NewStorage(pool *pgxpool.Pool) *Storage {
	return &Storage{
		pool: pool,
	}
}

// ApplySchema runs the embedded schema files, in name order
func ApplySchema(ctx context.Context, pool *pgxpool.Pool) error {
	names, err := fs.Glob(SchemaFS, "schema/*.sql")
	if err != nil {
		return fmt.Errorf("unable to list schema files: %w", err)
	}

	sort.Strings(names)

	for _, name := range names {
		ddl, err := SchemaFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("unable to read schema file %q: %w", name, err)
		}

		if _, err := pool.Exec(ctx, string(ddl)); err != nil {
			return fmt.Errorf("unable to apply schema file %q: %w", name, err)
		}
	}

	return nil
}

func (s *Storage) CreateRun(ctx context.Context, run *types.Run) error {
	_, err := s.pool.Exec(
		ctx,
		`INSERT INTO runs (id, started_at, status) VALUES ($1, $2, $3)`,
		run.ID,
		timeToTimestampz(run.StartedAt),
		run.Status.String(),
	)
	if err != nil {
		return fmt.Errorf("unable to create run: %w", err)
	}

	return nil
}

func (s *Storage) CompleteRun(ctx context.Context, result *types.RunResult) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("unable to begin transaction: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // Rollback after commit is a no-op

	var (
		venueRows   = make([][]any, 0, len(result.Venues))
		reserveRows = make([][]any, 0, len(result.Venues))
		pairRows    = make([][]any, 0)
	)

	for _, venue := range result.Venues {
		venueRows = append(venueRows, []any{
			result.RunID,
			venue.ExchangeID,
			venue.ExchangeName,
			venue.Rank,
			floatToNumeric(venue.Volume24hUSD),
		})

		reserveRows = append(reserveRows, []any{
			result.RunID,
			venue.ExchangeID,
			venue.ExchangeName,
			floatPtrToNumeric(venue.ReserveXDC),
			floatPtrToNumeric(venue.ReserveUSD),
			floatPtrToNumeric(venue.CoverageRatio),
			venue.RiskTier.String(),
		})

		for _, p := range venue.Pairs {
			pairRows = append(pairRows, []any{
				result.RunID,
				venue.ExchangeID,
				p.MarketPair,
				floatToNumeric(p.Volume24hUSD),
			})
		}
	}

	_, err = tx.CopyFrom(
		ctx,
		pgx.Identifier{"venue_snapshots"},
		[]string{"run_id", "exchange_id", "exchange_name", "rank", "volume_24h_usd"},
		pgx.CopyFromRows(venueRows),
	)
	if err != nil {
		return fmt.Errorf("unable to insert venue snapshots: %w", err)
	}

	_, err = tx.CopyFrom(
		ctx,
		pgx.Identifier{"reserve_snapshots"},
		[]string{
			"run_id",
			"exchange_id",
			"exchange_name",
			"reserve_xdc",
			"reserve_usd",
			"coverage_ratio",
			"risk_tier",
		},
		pgx.CopyFromRows(reserveRows),
	)
	if err != nil {
		return fmt.Errorf("unable to insert reserve snapshots: %w", err)
	}

	if len(pairRows) > 0 {
		_, err = tx.CopyFrom(
			ctx,
			pgx.Identifier{"pair_snapshots"},
			[]string{"run_id", "exchange_id", "market_pair", "volume_24h_usd"},
			pgx.CopyFromRows(pairRows),
		)
		if err != nil {
			return fmt.Errorf("unable to insert pair snapshots: %w", err)
		}
	}

	_, err = tx.Exec(
		ctx,
		`UPDATE runs SET finished_at = $2, status = $3, credits_used = $4 WHERE id = $1`,
		result.RunID,
		timeToTimestampz(result.FinishedAt),
		result.Status.String(),
		result.CreditsUsed,
	)
	if err != nil {
		return fmt.Errorf("unable to finalize run: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("unable to commit run result: %w", err)
	}

	return nil
}

func (s *Storage) FailRun(
	ctx context.Context,
	runID string,
	finishedAt time.Time,
	errMsg string,
) error {
	_, err := s.pool.Exec(
		ctx,
		`UPDATE runs SET finished_at = $2, status = $3, error_message = $4 WHERE id = $1`,
		runID,
		timeToTimestampz(finishedAt),
		types.RunStatusFailed.String(),
		errMsg,
	)
	if err != nil {
		return fmt.Errorf("unable to fail run: %w", err)
	}

	return nil
}

func (s *Storage) GetSetting(ctx context.Context, key string) (string, error) {
	var value string

	err := s.pool.QueryRow(
		ctx,
		`SELECT value FROM settings WHERE key = $1`,
		key,
	).Scan(&value)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", storage.ErrSettingNotFound
		}

		return "", fmt.Errorf("unable to fetch setting: %w", err)
	}

	return value, nil
}

func (s *Storage) SaveSetting(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(
		ctx,
		`INSERT INTO settings (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		key,
		value,
	)
	if err != nil {
		return fmt.Errorf("unable to save setting: %w", err)
	}

	return nil
}

func (s *Storage) DeleteSetting(ctx context.Context, key string) error {
	_, err := s.pool.Exec(
		ctx,
		`DELETE FROM settings WHERE key = $1`,
		key,
	)
	if err != nil {
		return fmt.Errorf("unable to delete setting: %w", err)
	}

	return nil
}

func (s *Storage) ListSettings(ctx context.Context) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch settings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)

	for rows.Next() {
		var key, value string

		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("unable to scan setting: %w", err)
		}

		out[key] = value
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("unable to read settings: %w", err)
	}

	return out, nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// floatToNumeric converts the float value to a postgres numeric,
// rounded to 8 decimal places (fixed point, no float drift on reload)
func floatToNumeric(value float64) pgtype.Numeric {
	bi, _ := new(big.Float).SetFloat64(math.Round(value * 1e8)).Int(nil)

	return pgtype.Numeric{
		Int:   bi,
		Exp:   -8,
		Valid: true,
	}
}

// floatPtrToNumeric converts an optional float to a nullable numeric
func floatPtrToNumeric(value *float64) pgtype.Numeric {
	if value == nil {
		return pgtype.Numeric{Valid: false}
	}

	return floatToNumeric(*value)
}

// timeToTimestampz converts the time value to a postgres timestamp
func timeToTimestampz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{
		Time:  t.UTC(),
		Valid: true,
	}
}
