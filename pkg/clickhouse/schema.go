package clickhouse

import "fmt"

// Schema returns the DDL for the tables the service reads and writes.
// market_data_cache is owned by the upstream refresher; creating it here keeps local setups working.
func Schema(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.market_data_cache (
			symbol LowCardinality(String),
			price_usd Float64,
			change_percentage_24h Float64,
			volume_24h_usd Float64,
			market_cap_usd Float64,
			last_updated DateTime64(3, 'UTC')
		) ENGINE = ReplacingMergeTree(last_updated)
		ORDER BY symbol`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.follow_events (
			ts DateTime64(3, 'UTC'),
			event_type LowCardinality(String),
			signal_id String,
			symbol LowCardinality(String),
			side LowCardinality(String),
			amount Float64,
			price Float64,
			order_type LowCardinality(String),
			confidence Float64,
			source String
		) ENGINE = MergeTree
		PARTITION BY toYYYYMM(ts)
		ORDER BY (symbol, ts)`, database),
	}
}
