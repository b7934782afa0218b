package ingest

import "github.com/JeremyNoori/xdc-risk-monitor/storage/types"

// ClassifyRisk maps a reserve coverage ratio to a discrete risk tier.
// A nil ratio (reserves unknown, or zero trading volume) is UNKNOWN.
// Boundaries are half-open: 0.5 is MODERATE, 1.0 is LOW
func ClassifyRisk(coverageRatio *float64) types.RiskTier {
	if coverageRatio == nil {
		return types.RiskTierUnknown
	}

	switch {
	case *coverageRatio < 0.5:
		return types.RiskTierHigh
	case *coverageRatio < 1.0:
		return types.RiskTierModerate
	default:
		return types.RiskTierLow
	}
}
