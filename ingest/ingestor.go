package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/rs/xid"
	"golang.org/x/sync/errgroup"

	"github.com/JeremyNoori/xdc-risk-monitor/storage"
	"github.com/JeremyNoori/xdc-risk-monitor/storage/types"
)

const (
	defaultTopN        = 20
	defaultAssetSymbol = "XDC"

	// maxErrorMessageLen caps the error message stored with a failed run
	maxErrorMessageLen = 2000
)

// RateLimitedError is returned when the run gate rejects a trigger.
// No run record is created for a rejected trigger
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry in %s", e.RetryAfter)
}

// Ingestor drives one complete ingestion run: resolve the asset,
// pull market pairs and price, rank venues, score each venue's
// solvency risk, and commit the result atomically
type Ingestor struct {
	client  MarketData
	storage storage.Storage
	gate    *Gate
	logger  *slog.Logger
	clock   func() time.Time

	symbol string
	topN   int
}

// New creates a new ingestor
func New(client MarketData, storage storage.Storage, opts ...Option) *Ingestor {
	i := &Ingestor{
		client:  client,
		storage: storage,
		gate:    NewGate(DefaultMinInterval),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		clock: func() time.Time {
			return time.Now().UTC()
		},
		symbol: defaultAssetSymbol,
		topN:   defaultTopN,
	}

	// Apply the options
	for _, opt := range opts {
		opt(i)
	}

	return i
}

// TriggerRun asks the run gate for admission and, if admitted,
// executes a full ingestion run to a terminal persisted state.
// A rejected trigger returns *RateLimitedError with no run created.
// There is no mid-run cancellation: an admitted run detaches from the
// caller's context, so a triggering client going away mid-run cannot
// strand the run record in its provisional state
func (i *Ingestor) TriggerRun(ctx context.Context) (*types.RunSummary, error) {
	if retryAfter, ok := i.gate.Admit(); !ok {
		return nil, &RateLimitedError{RetryAfter: retryAfter}
	}

	return i.run(context.WithoutCancel(ctx))
}

// run executes one ingestion run. The run record is created up front
// with a provisional status and finalized exactly once; a failure
// anywhere after creation marks the run FAILED with a truncated
// error message and commits no snapshot rows
func (i *Ingestor) run(ctx context.Context) (*types.RunSummary, error) {
	run := &types.Run{
		ID:        xid.New().String(),
		StartedAt: i.clock(),
		Status:    types.RunStatusSuccess, // provisional
	}

	if err := i.storage.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("unable to create run: %w", err)
	}

	i.logger.Info(
		"ingestion run started",
		"run_id", run.ID,
		"symbol", i.symbol,
	)

	creditsBefore := i.client.Credits()

	result, err := i.ingest(ctx, run.ID, creditsBefore)
	if err != nil {
		msg := truncateMessage(err.Error())

		i.logger.Error(
			"ingestion run failed",
			"run_id", run.ID,
			"err", err,
		)

		if failErr := i.storage.FailRun(ctx, run.ID, i.clock(), msg); failErr != nil {
			i.logger.Error(
				"unable to mark run as failed",
				"run_id", run.ID,
				"err", failErr,
			)
		}

		return &types.RunSummary{
			RunID:        run.ID,
			Status:       types.RunStatusFailed,
			VenueCount:   0,
			ErrorMessage: msg,
		}, nil
	}

	i.logger.Info(
		"ingestion run complete",
		"run_id", run.ID,
		"status", result.Status,
		"venues", len(result.Venues),
	)

	return &types.RunSummary{
		RunID:      run.ID,
		Status:     result.Status,
		VenueCount: len(result.Venues),
	}, nil
}

// ingest performs the fetch / aggregate / score / persist pipeline
func (i *Ingestor) ingest(
	ctx context.Context,
	runID string,
	creditsBefore int64,
) (*types.RunResult, error) {
	// Resolve the provider's asset id
	assetID, err := i.client.ResolveAssetID(ctx, i.symbol)
	if err != nil {
		return nil, fmt.Errorf("unable to resolve asset id: %w", err)
	}

	// Market pairs and price are independent; fetch them concurrently
	var (
		pairs []*types.MarketPair
		price float64
	)

	group, gCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		fetched, fetchErr := i.client.MarketPairs(gCtx, assetID)
		if fetchErr != nil {
			return fmt.Errorf("unable to fetch market pairs: %w", fetchErr)
		}

		pairs = fetched

		return nil
	})

	group.Go(func() error {
		fetched, fetchErr := i.client.Price(gCtx, assetID)
		if fetchErr != nil {
			return fmt.Errorf("unable to fetch price: %w", fetchErr)
		}

		price = fetched

		return nil
	})

	if err := group.Wait(); err != nil {
		return nil, err
	}

	// Rank venues by summed volume
	venues := ComputeTopVenues(pairs, i.topN)

	// Score each venue, in rank order
	var (
		partial bool
		risks   = make([]*types.VenueRisk, 0, len(venues))
	)

	for idx, venue := range venues {
		risk, flagged := i.scoreVenue(ctx, venue, idx+1, price)
		if flagged {
			partial = true
		}

		risks = append(risks, risk)
	}

	status := types.RunStatusSuccess
	if partial {
		status = types.RunStatusPartial
	}

	var credits *int64

	if used := i.client.Credits() - creditsBefore; used > 0 {
		credits = &used
	}

	result := &types.RunResult{
		RunID:       runID,
		FinishedAt:  i.clock(),
		Status:      status,
		CreditsUsed: credits,
		Venues:      risks,
	}

	// All snapshot rows and the terminal run status commit together
	if err := i.storage.CompleteRun(ctx, result); err != nil {
		return nil, fmt.Errorf("unable to commit run result: %w", err)
	}

	return result, nil
}

// scoreVenue attempts the best-effort reserve lookup for one venue and
// classifies its risk. The returned flag is raised only when the lookup
// itself failed, not when the venue legitimately has no data for the
// asset. That distinction decides PARTIAL vs SUCCESS
func (i *Ingestor) scoreVenue(
	ctx context.Context,
	venue *types.AggregatedVenue,
	rank int,
	price float64,
) (*types.VenueRisk, bool) {
	risk := &types.VenueRisk{
		ExchangeID:   venue.ExchangeID,
		ExchangeName: venue.ExchangeName,
		Rank:         rank,
		Volume24hUSD: venue.Volume24hUSD,
		RiskTier:     types.RiskTierUnknown,
		Pairs:        venue.Pairs,
	}

	lookup := i.client.ReserveAssets(ctx, venue.ExchangeID)

	switch lookup.Outcome {
	case types.ReserveFailed:
		i.logger.Warn(
			"reserve lookup failed for venue",
			"exchange_id", venue.ExchangeID,
			"exchange_name", venue.ExchangeName,
			"err", lookup.Err,
		)

		return risk, true
	case types.ReserveAbsent:
		return risk, false
	}

	asset := findReserveAsset(lookup.Assets, i.symbol)
	if asset == nil {
		// The venue answered, it just holds no tracked reserves
		return risk, false
	}

	var (
		reserveXDC = asset.Balance
		reserveUSD = reserveXDC * price
	)

	risk.ReserveXDC = &reserveXDC
	risk.ReserveUSD = &reserveUSD

	if venue.Volume24hUSD > 0 {
		ratio := reserveUSD / venue.Volume24hUSD
		risk.CoverageRatio = &ratio
	}

	risk.RiskTier = ClassifyRisk(risk.CoverageRatio)

	return risk, false
}

// findReserveAsset finds the tracked asset among a venue's reserves,
// matching on either the currency or the platform symbol
func findReserveAsset(assets []*types.ReserveAsset, symbol string) *types.ReserveAsset {
	for _, asset := range assets {
		if asset.CurrencySymbol == symbol || asset.PlatformSymbol == symbol {
			return asset
		}
	}

	return nil
}

// truncateMessage caps an error message for run-record storage
func truncateMessage(msg string) string {
	runes := []rune(msg)
	if len(runes) <= maxErrorMessageLen {
		return msg
	}

	return string(runes[:maxErrorMessageLen])
}
