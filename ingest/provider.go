package ingest

import (
	"context"

	"github.com/JeremyNoori/xdc-risk-monitor/storage/types"
)

// MarketData is the market-data provider surface the ingestor consumes
type MarketData interface {
	// ResolveAssetID resolves the provider's internal id for an asset symbol
	ResolveAssetID(ctx context.Context, symbol string) (int64, error)

	// MarketPairs pulls all market pairs for the asset, USD-converted
	MarketPairs(ctx context.Context, assetID int64) ([]*types.MarketPair, error)

	// Price fetches the current USD unit price for the asset
	Price(ctx context.Context, assetID int64) (float64, error)

	// ReserveAssets is the best-effort reserve lookup for a venue.
	// It never fails outright; the outcome is a tagged variant
	ReserveAssets(ctx context.Context, exchangeID int64) *types.ReserveLookup

	// Credits returns the cumulative API credits spent by the provider client
	Credits() int64
}
