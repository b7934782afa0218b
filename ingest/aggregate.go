package ingest

import (
	"sort"

	"github.com/JeremyNoori/xdc-risk-monitor/storage/types"
)

// ComputeTopVenues reduces a flat list of market pairs into venues
// ranked by summed 24h USD volume, truncated to the first topN.
// Grouping preserves pair encounter order, and the sort is stable,
// so the output is deterministic for identical input order
func ComputeTopVenues(pairs []*types.MarketPair, topN int) []*types.AggregatedVenue {
	var (
		byExchange = make(map[int64]*types.AggregatedVenue)
		venues     = make([]*types.AggregatedVenue, 0)
	)

	for _, pair := range pairs {
		venue, ok := byExchange[pair.ExchangeID]
		if !ok {
			venue = &types.AggregatedVenue{
				ExchangeID:   pair.ExchangeID,
				ExchangeName: pair.ExchangeName,
			}

			byExchange[pair.ExchangeID] = venue
			venues = append(venues, venue)
		}

		venue.Volume24hUSD += pair.Volume24hUSD
		venue.Pairs = append(venue.Pairs, types.PairVolume{
			MarketPair:   pair.MarketPair,
			Volume24hUSD: pair.Volume24hUSD,
		})
	}

	sort.SliceStable(venues, func(i, j int) bool {
		return venues[i].Volume24hUSD > venues[j].Volume24hUSD
	})

	if topN >= 0 && len(venues) > topN {
		venues = venues[:topN]
	}

	return venues
}
