package serve

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/JeremyNoori/xdc-risk-monitor/ingest"
	"github.com/JeremyNoori/xdc-risk-monitor/storage/types"
)

// runIngestLoop triggers ingestion runs on a fixed interval until the
// context is canceled. A run rejected by the cooldown gate is skipped
// and retried on the next tick
func runIngestLoop(
	ctx context.Context,
	ingestor *ingest.Ingestor,
	interval time.Duration,
	logger *slog.Logger,
) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("ingestion loop stopped")

			return nil
		case <-ticker.C:
			summary, err := ingestor.TriggerRun(ctx)
			if err != nil {
				var rateErr *ingest.RateLimitedError

				if errors.As(err, &rateErr) {
					logger.Debug(
						"scheduled run skipped, cooldown active",
						"retry_after", rateErr.RetryAfter,
					)

					continue
				}

				logger.Error(
					"scheduled ingestion run errored",
					"err", err,
				)

				continue
			}

			if summary.Status == types.RunStatusFailed {
				logger.Error(
					"scheduled ingestion run failed",
					"run_id", summary.RunID,
				)

				continue
			}

			logger.Info(
				"scheduled ingestion run finished",
				"run_id", summary.RunID,
				"status", summary.Status,
				"venues", summary.VenueCount,
			)
		}
	}
}
