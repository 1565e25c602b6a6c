package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"FollowFeed/internal/domain/models"
	"FollowFeed/internal/domain/repository"
)

// ClickHousePriceSource reads the market_data_cache table kept fresh by the upstream refresher.
type ClickHousePriceSource struct {
	db       *sql.DB
	database string
}

func NewClickHousePriceSource(db *sql.DB, database string) repository.PriceSource {
	return &ClickHousePriceSource{db: db, database: database}
}

func (s *ClickHousePriceSource) Fetch(ctx context.Context, symbols []string) ([]models.PriceRow, error) {
	if len(symbols) == 0 {
		return nil, nil
	}

	q, args := priceQuery(s.database, symbols)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query market_data_cache: %w", err)
	}
	defer rows.Close()

	out := make([]models.PriceRow, 0, len(symbols))
	for rows.Next() {
		var r models.PriceRow
		if err := rows.Scan(&r.Symbol, &r.Price, &r.Change24h, &r.Volume, &r.MarketCap, &r.LastUpdated); err != nil {
			return nil, fmt.Errorf("scan market_data_cache: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// priceQuery expands one placeholder per symbol. FINAL collapses ReplacingMergeTree duplicates.
func priceQuery(database string, symbols []string) (string, []interface{}) {
	args := make([]interface{}, len(symbols))
	for i, s := range symbols {
		args[i] = s
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(symbols)), ", ")
	q := fmt.Sprintf(`SELECT symbol, price_usd, change_percentage_24h, volume_24h_usd, market_cap_usd, last_updated
		FROM %s.market_data_cache FINAL
		WHERE symbol IN (%s)
		ORDER BY market_cap_usd DESC`, database, placeholders)
	return q, args
}
