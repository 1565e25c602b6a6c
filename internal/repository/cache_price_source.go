package repository

import (
	"context"
	"fmt"
	"sort"

	"FollowFeed/internal/domain/models"
	"FollowFeed/internal/domain/repository"
	"FollowFeed/pkg/cache"
)

// MarketDataKeyPrefix is the cache namespace the upstream refresher writes rows under.
const MarketDataKeyPrefix = "market_data_cache"

// CachePriceSource reads JSON price rows written by the refresher into the cache.
type CachePriceSource struct {
	cache cache.Service
}

func NewCachePriceSource(c cache.Service) repository.PriceSource {
	return &CachePriceSource{cache: c}
}

// Fetch returns the rows present in the cache, largest market cap first.
// Missing symbols are skipped; a transport error fails the whole fetch.
func (s *CachePriceSource) Fetch(ctx context.Context, symbols []string) ([]models.PriceRow, error) {
	if len(symbols) == 0 {
		return nil, nil
	}

	keys := make([]string, len(symbols))
	for i, sym := range symbols {
		keys[i] = cache.GenerateKey(MarketDataKeyPrefix, sym)
	}

	found, err := cache.MGetTyped[models.PriceRow](ctx, s.cache, keys...)
	if err != nil {
		return nil, fmt.Errorf("read price rows: %w", err)
	}

	rows := make([]models.PriceRow, 0, len(found))
	for i, key := range keys {
		row, ok := found[key]
		if !ok {
			continue
		}
		if row.Symbol == "" {
			row.Symbol = symbols[i]
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].MarketCap > rows[j].MarketCap })
	return rows, nil
}
