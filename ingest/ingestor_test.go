package ingest

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JeremyNoori/xdc-risk-monitor/storage/memory"
	"github.com/JeremyNoori/xdc-risk-monitor/storage/mock"
	"github.com/JeremyNoori/xdc-risk-monitor/storage/types"
)

const testAssetID = int64(2634)

// happyMarketData returns a mock provider where every call succeeds:
// three venues, the first holding reserves worth twice its volume
func happyMarketData() *mockMarketData {
	return &mockMarketData{
		resolveAssetIDFn: func(_ context.Context, symbol string) (int64, error) {
			if symbol != "XDC" {
				return 0, errors.New("unexpected symbol")
			}

			return testAssetID, nil
		},
		marketPairsFn: func(_ context.Context, _ int64) ([]*types.MarketPair, error) {
			return []*types.MarketPair{
				pair(1, "AlphaEx", "XDC/USDT", 100_000),
				pair(2, "BetaEx", "XDC/USDT", 50_000),
				pair(3, "GammaEx", "XDC/BTC", 10_000),
			}, nil
		},
		priceFn: func(_ context.Context, _ int64) (float64, error) {
			return 0.04, nil
		},
		reserveAssetsFn: func(_ context.Context, exchangeID int64) *types.ReserveLookup {
			if exchangeID == 1 {
				// 5M XDC at $0.04 = $200k, double AlphaEx's $100k volume
				return &types.ReserveLookup{
					Outcome: types.ReserveFound,
					Assets: []*types.ReserveAsset{
						{
							CurrencySymbol: "XDC",
							Balance:        5_000_000,
						},
					},
				}
			}

			return &types.ReserveLookup{Outcome: types.ReserveAbsent}
		},
	}
}

func TestIngestor_TriggerRun_RateLimited(t *testing.T) {
	t.Parallel()

	var (
		now   = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
		clock = func() time.Time {
			return now
		}

		createdRuns atomic.Int32

		store = &mock.Storage{
			CreateRunFn: func(_ context.Context, _ *types.Run) error {
				createdRuns.Add(1)

				return nil
			},
		}

		i = New(
			happyMarketData(),
			store,
			WithGate(NewGate(time.Minute, WithGateClock(clock))),
			WithClock(clock),
		)
	)

	_, err := i.TriggerRun(context.Background())
	require.NoError(t, err)

	now = now.Add(time.Second * 10)

	_, err = i.TriggerRun(context.Background())

	var rateErr *RateLimitedError

	require.ErrorAs(t, err, &rateErr)

	assert.Equal(t, time.Second*50, rateErr.RetryAfter)

	// A rejected trigger creates no run
	assert.EqualValues(t, 1, createdRuns.Load())
}

func TestIngestor_Run_CallerDisconnectReachesTerminalState(t *testing.T) {
	t.Parallel()

	ctx, cancelFn := context.WithCancel(context.Background())
	defer cancelFn()

	var (
		client = happyMarketData()

		failRunCalled bool
		failRunCtxErr error

		// A context-honoring store refuses writes on a dead context
		store = &mock.Storage{
			FailRunFn: func(failCtx context.Context, _ string, _ time.Time, _ string) error {
				failRunCalled = true
				failRunCtxErr = failCtx.Err()

				return failCtx.Err()
			},
		}

		i = New(client, store, WithGate(NewGate(0)))
	)

	client.marketPairsFn = func(fetchCtx context.Context, _ int64) ([]*types.MarketPair, error) {
		// The triggering client goes away mid-fetch
		cancelFn()

		if err := fetchCtx.Err(); err != nil {
			return nil, err
		}

		return nil, errors.New("connection reset by peer")
	}

	summary, err := i.TriggerRun(ctx)
	require.NoError(t, err)

	assert.Equal(t, types.RunStatusFailed, summary.Status)

	// The terminal write happens on a live context,
	// not the caller's canceled one
	require.True(t, failRunCalled)
	assert.NoError(t, failRunCtxErr)
	assert.Contains(t, summary.ErrorMessage, "connection reset")
}

func TestIngestor_Run_AssetResolutionFails(t *testing.T) {
	t.Parallel()

	var (
		client = happyMarketData()
		store  = memory.NewStorage()

		i = New(client, store, WithGate(NewGate(0)))
	)

	client.resolveAssetIDFn = func(_ context.Context, _ string) (int64, error) {
		return 0, errors.New("map lookup exhausted retries")
	}

	summary, err := i.TriggerRun(context.Background())

	require.NoError(t, err)
	require.NotNil(t, summary)

	assert.Equal(t, types.RunStatusFailed, summary.Status)
	assert.Zero(t, summary.VenueCount)
	assert.NotEmpty(t, summary.ErrorMessage)

	// The run record is terminal, and no snapshot rows exist
	run, ok := store.Run(summary.RunID)

	require.True(t, ok)
	require.NotNil(t, run.ErrorMessage)

	assert.Equal(t, types.RunStatusFailed, run.Status)
	assert.NotNil(t, run.FinishedAt)
	assert.Empty(t, store.Snapshots(summary.RunID))
}

func TestIngestor_Run_PriceFetchFails(t *testing.T) {
	t.Parallel()

	var (
		client = happyMarketData()

		completed atomic.Int32

		store = &mock.Storage{
			CompleteRunFn: func(_ context.Context, _ *types.RunResult) error {
				completed.Add(1)

				return nil
			},
		}

		i = New(client, store, WithGate(NewGate(0)))
	)

	client.priceFn = func(_ context.Context, _ int64) (float64, error) {
		return 0, errors.New("quote endpoint down")
	}

	summary, err := i.TriggerRun(context.Background())

	require.NoError(t, err)

	assert.Equal(t, types.RunStatusFailed, summary.Status)
	assert.Zero(t, summary.VenueCount)
	assert.Contains(t, summary.ErrorMessage, "quote endpoint down")

	// Nothing was committed
	assert.Zero(t, completed.Load())
}

func TestIngestor_Run_PartialFailureIsolation(t *testing.T) {
	t.Parallel()

	var (
		client = happyMarketData()

		captured *types.RunResult

		store = &mock.Storage{
			CompleteRunFn: func(_ context.Context, result *types.RunResult) error {
				captured = result

				return nil
			},
		}

		i = New(client, store, WithGate(NewGate(0)))
	)

	client.reserveAssetsFn = func(_ context.Context, exchangeID int64) *types.ReserveLookup {
		switch exchangeID {
		case 1:
			return &types.ReserveLookup{
				Outcome: types.ReserveFound,
				Assets: []*types.ReserveAsset{
					{
						CurrencySymbol: "XDC",
						Balance:        5_000_000,
					},
				},
			}
		case 2:
			// The middle venue's lookup itself breaks
			return &types.ReserveLookup{
				Outcome: types.ReserveFailed,
				Err:     errors.New("connection reset"),
			}
		default:
			return &types.ReserveLookup{Outcome: types.ReserveAbsent}
		}
	}

	summary, err := i.TriggerRun(context.Background())

	require.NoError(t, err)
	require.NotNil(t, captured)

	assert.Equal(t, types.RunStatusPartial, summary.Status)
	assert.Equal(t, 3, summary.VenueCount)

	require.Len(t, captured.Venues, 3)

	var (
		first  = captured.Venues[0]
		second = captured.Venues[1]
		third  = captured.Venues[2]
	)

	// The first venue keeps the reserve data it obtained
	require.NotNil(t, first.ReserveXDC)
	require.NotNil(t, first.ReserveUSD)
	require.NotNil(t, first.CoverageRatio)

	assert.Equal(t, types.RiskTierLow, first.RiskTier)

	// The broken venue degrades to UNKNOWN with all reserve fields nil
	assert.Nil(t, second.ReserveXDC)
	assert.Nil(t, second.ReserveUSD)
	assert.Nil(t, second.CoverageRatio)
	assert.Equal(t, types.RiskTierUnknown, second.RiskTier)

	// The third venue is unaffected
	assert.Equal(t, types.RiskTierUnknown, third.RiskTier)
	assert.EqualValues(t, 3, third.ExchangeID)
}

func TestIngestor_Run_AbsentReservesStaySuccess(t *testing.T) {
	t.Parallel()

	var (
		client = happyMarketData()

		captured *types.RunResult

		store = &mock.Storage{
			CompleteRunFn: func(_ context.Context, result *types.RunResult) error {
				captured = result

				return nil
			},
		}

		i = New(client, store, WithGate(NewGate(0)))
	)

	// Venues answer, but none hold the tracked asset
	client.reserveAssetsFn = func(_ context.Context, _ int64) *types.ReserveLookup {
		return &types.ReserveLookup{
			Outcome: types.ReserveFound,
			Assets: []*types.ReserveAsset{
				{
					CurrencySymbol: "BTC",
					Balance:        10,
				},
			},
		}
	}

	summary, err := i.TriggerRun(context.Background())

	require.NoError(t, err)
	require.NotNil(t, captured)

	// An empty-but-successful response is not a partial failure
	assert.Equal(t, types.RunStatusSuccess, summary.Status)

	for _, venue := range captured.Venues {
		assert.Nil(t, venue.CoverageRatio)
		assert.Equal(t, types.RiskTierUnknown, venue.RiskTier)
	}
}

func TestIngestor_Run_ZeroVolumeVenue(t *testing.T) {
	t.Parallel()

	var (
		client = happyMarketData()

		captured *types.RunResult

		store = &mock.Storage{
			CompleteRunFn: func(_ context.Context, result *types.RunResult) error {
				captured = result

				return nil
			},
		}

		i = New(client, store, WithGate(NewGate(0)))
	)

	client.marketPairsFn = func(_ context.Context, _ int64) ([]*types.MarketPair, error) {
		return []*types.MarketPair{
			pair(1, "AlphaEx", "XDC/USDT", 0),
		}, nil
	}

	_, err := i.TriggerRun(context.Background())

	require.NoError(t, err)
	require.NotNil(t, captured)
	require.Len(t, captured.Venues, 1)

	venue := captured.Venues[0]

	// Reserves were found, but the ratio is undefined at zero volume
	require.NotNil(t, venue.ReserveUSD)

	assert.Nil(t, venue.CoverageRatio)
	assert.Equal(t, types.RiskTierUnknown, venue.RiskTier)
}

func TestIngestor_Run_CommitFails(t *testing.T) {
	t.Parallel()

	var (
		failedRuns atomic.Int32

		store = &mock.Storage{
			CompleteRunFn: func(_ context.Context, _ *types.RunResult) error {
				return errors.New("transaction aborted")
			},
			FailRunFn: func(_ context.Context, _ string, _ time.Time, msg string) error {
				require.Contains(t, msg, "transaction aborted")

				failedRuns.Add(1)

				return nil
			},
		}

		i = New(happyMarketData(), store, WithGate(NewGate(0)))
	)

	summary, err := i.TriggerRun(context.Background())

	require.NoError(t, err)

	assert.Equal(t, types.RunStatusFailed, summary.Status)
	assert.Zero(t, summary.VenueCount)
	assert.EqualValues(t, 1, failedRuns.Load())
}

func TestIngestor_Run_ErrorMessageTruncated(t *testing.T) {
	t.Parallel()

	var (
		client = happyMarketData()
		store  = memory.NewStorage()

		i = New(client, store, WithGate(NewGate(0)))
	)

	client.resolveAssetIDFn = func(_ context.Context, _ string) (int64, error) {
		return 0, errors.New(strings.Repeat("x", 5000))
	}

	summary, err := i.TriggerRun(context.Background())

	require.NoError(t, err)

	run, ok := store.Run(summary.RunID)

	require.True(t, ok)
	require.NotNil(t, run.ErrorMessage)

	assert.Len(t, []rune(*run.ErrorMessage), maxErrorMessageLen)
}

func TestIngestor_Run_EndToEnd(t *testing.T) {
	t.Parallel()

	var (
		credits atomic.Int64

		client = happyMarketData()
		store  = memory.NewStorage()

		i = New(
			client,
			store,
			WithGate(NewGate(0)),
			WithTopN(2),
		)
	)

	client.creditsFn = credits.Load

	// Each provider call costs one credit
	wrapCredits := func() {
		var (
			resolve = client.resolveAssetIDFn
			pairs   = client.marketPairsFn
		)

		client.resolveAssetIDFn = func(ctx context.Context, symbol string) (int64, error) {
			credits.Add(1)

			return resolve(ctx, symbol)
		}
		client.marketPairsFn = func(ctx context.Context, id int64) ([]*types.MarketPair, error) {
			credits.Add(1)

			return pairs(ctx, id)
		}
	}
	wrapCredits()

	summary, err := i.TriggerRun(context.Background())

	require.NoError(t, err)

	assert.Equal(t, types.RunStatusSuccess, summary.Status)
	assert.Equal(t, 2, summary.VenueCount)

	// The run record reached its terminal state
	run, ok := store.Run(summary.RunID)

	require.True(t, ok)
	require.NotNil(t, run.FinishedAt)
	require.NotNil(t, run.CreditsUsed)

	assert.Equal(t, types.RunStatusSuccess, run.Status)
	assert.EqualValues(t, 2, *run.CreditsUsed)

	// Snapshots cover exactly the aggregated venues, in rank order
	snapshots := store.Snapshots(summary.RunID)

	require.Len(t, snapshots, 2)

	assert.Equal(t, 1, snapshots[0].Rank)
	assert.Equal(t, 2, snapshots[1].Rank)
	assert.EqualValues(t, 1, snapshots[0].ExchangeID)
	assert.EqualValues(t, 2, snapshots[1].ExchangeID)

	// AlphaEx: $200k reserves against $100k volume, coverage exactly 2.0
	first := snapshots[0]

	require.NotNil(t, first.CoverageRatio)

	assert.InDelta(t, 2.0, *first.CoverageRatio, 1e-8)
	assert.Equal(t, types.RiskTierLow, first.RiskTier)
	assert.InDelta(t, 200_000, *first.ReserveUSD, 1e-8)
}
