package types

import "time"

// RunStatus is the lifecycle status of an ingestion run
type RunStatus string

const (
	RunStatusSuccess RunStatus = "SUCCESS"
	RunStatusPartial RunStatus = "PARTIAL"
	RunStatusFailed  RunStatus = "FAILED"
)

func (s RunStatus) String() string {
	return string(s)
}

// RiskTier is the discrete solvency classification of a venue,
// derived from its reserve coverage ratio
type RiskTier string

const (
	RiskTierLow      RiskTier = "LOW"
	RiskTierModerate RiskTier = "MODERATE"
	RiskTierHigh     RiskTier = "HIGH"
	RiskTierUnknown  RiskTier = "UNKNOWN"
)

func (t RiskTier) String() string {
	return string(t)
}

// Run is a single end-to-end execution of the ingestion pipeline.
// It is created with a provisional status and finalized exactly once
type Run struct {
	ID           string     `json:"id"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at"`
	Status       RunStatus  `json:"status"`
	ErrorMessage *string    `json:"error_message"`
	CreditsUsed  *int64     `json:"credits_used"`
}

// MarketPair is a single trading pair on a venue, as reported by the
// market data provider. Pairs are fetched fresh each run and only ever
// folded into aggregates, never persisted directly
type MarketPair struct {
	ExchangeID   int64   `json:"exchange_id"`
	ExchangeName string  `json:"exchange_name"`
	MarketPair   string  `json:"market_pair"`
	Volume24hUSD float64 `json:"volume_24h_usd"`
}

// PairVolume is the per-pair volume breakdown kept inside an aggregate
type PairVolume struct {
	MarketPair   string  `json:"market_pair"`
	Volume24hUSD float64 `json:"volume_24h_usd"`
}

// AggregatedVenue is the per-exchange reduction of market pairs, with
// the summed 24h USD volume and the constituent pairs in encounter order
type AggregatedVenue struct {
	ExchangeID   int64        `json:"exchange_id"`
	ExchangeName string       `json:"exchange_name"`
	Volume24hUSD float64      `json:"volume_24h_usd"`
	Pairs        []PairVolume `json:"pairs"`
}

// VenueRisk is the fully scored venue produced for each retained
// aggregate. Reserve fields are nil when the reserve lookup could not
// produce a value for the asset
type VenueRisk struct {
	ExchangeID    int64        `json:"exchange_id"`
	ExchangeName  string       `json:"exchange_name"`
	Rank          int          `json:"rank"`
	Volume24hUSD  float64      `json:"volume_24h_usd"`
	ReserveXDC    *float64     `json:"reserve_xdc"`
	ReserveUSD    *float64     `json:"reserve_usd"`
	CoverageRatio *float64     `json:"coverage_ratio"`
	RiskTier      RiskTier     `json:"risk_tier"`
	Pairs         []PairVolume `json:"pairs"`
}

// RunResult is the complete outcome of a successful (or partially
// successful) run, committed to storage as one atomic unit
type RunResult struct {
	RunID       string       `json:"run_id"`
	FinishedAt  time.Time    `json:"finished_at"`
	Status      RunStatus    `json:"status"`
	CreditsUsed *int64       `json:"credits_used"`
	Venues      []*VenueRisk `json:"venues"`
}

// RunSummary is what a trigger caller receives back
type RunSummary struct {
	RunID        string    `json:"runId"`
	Status       RunStatus `json:"status"`
	VenueCount   int       `json:"venueCount"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
}

// ReserveOutcome tags the result of a best-effort reserve lookup
type ReserveOutcome string

const (
	// ReserveFound means the provider returned a list of reserve assets
	ReserveFound ReserveOutcome = "FOUND"

	// ReserveAbsent means the provider answered, but the endpoint is not
	// available for this venue or plan
	ReserveAbsent ReserveOutcome = "ABSENT"

	// ReserveFailed means the lookup itself failed (transport error,
	// server error, malformed body)
	ReserveFailed ReserveOutcome = "FAILED"
)

// ReserveAsset is a single asset balance held by an exchange
type ReserveAsset struct {
	CurrencySymbol string  `json:"currency_symbol"`
	PlatformSymbol string  `json:"platform_symbol"`
	Balance        float64 `json:"balance"`
}

// ReserveLookup is the reified result of a best-effort reserve fetch.
// The orchestrator branches on Outcome: only FAILED raises the run's
// partial-failure flag
type ReserveLookup struct {
	Outcome ReserveOutcome  `json:"outcome"`
	Assets  []*ReserveAsset `json:"assets"`
	Err     error           `json:"-"`
}
