package ingest

import (
	"context"

	"github.com/JeremyNoori/xdc-risk-monitor/storage/types"
)

type (
	resolveAssetIDDelegate func(context.Context, string) (int64, error)
	marketPairsDelegate    func(context.Context, int64) ([]*types.MarketPair, error)
	priceDelegate          func(context.Context, int64) (float64, error)
	reserveAssetsDelegate  func(context.Context, int64) *types.ReserveLookup
	creditsDelegate        func() int64
)

type mockMarketData struct {
	resolveAssetIDFn resolveAssetIDDelegate
	marketPairsFn    marketPairsDelegate
	priceFn          priceDelegate
	reserveAssetsFn  reserveAssetsDelegate
	creditsFn        creditsDelegate
}

func (m *mockMarketData) ResolveAssetID(ctx context.Context, symbol string) (int64, error) {
	if m.resolveAssetIDFn != nil {
		return m.resolveAssetIDFn(ctx, symbol)
	}

	return 0, nil
}

func (m *mockMarketData) MarketPairs(ctx context.Context, assetID int64) ([]*types.MarketPair, error) {
	if m.marketPairsFn != nil {
		return m.marketPairsFn(ctx, assetID)
	}

	return nil, nil
}

func (m *mockMarketData) Price(ctx context.Context, assetID int64) (float64, error) {
	if m.priceFn != nil {
		return m.priceFn(ctx, assetID)
	}

	return 0, nil
}

func (m *mockMarketData) ReserveAssets(ctx context.Context, exchangeID int64) *types.ReserveLookup {
	if m.reserveAssetsFn != nil {
		return m.reserveAssetsFn(ctx, exchangeID)
	}

	return &types.ReserveLookup{Outcome: types.ReserveAbsent}
}

func (m *mockMarketData) Credits() int64 {
	if m.creditsFn != nil {
		return m.creditsFn()
	}

	return 0
}
