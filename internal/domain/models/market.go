package models

import "time"

// ConnectionStatus is the feed's self-reported health.
type ConnectionStatus string

const (
	StatusConnecting   ConnectionStatus = "connecting"
	StatusConnected    ConnectionStatus = "connected"
	StatusDisconnected ConnectionStatus = "disconnected"
)

// PriceRow is one row returned by a price source.
type PriceRow struct {
	Symbol      string    `json:"symbol"`
	Price       float64   `json:"price_usd"`
	Change24h   float64   `json:"change_percentage_24h"`
	Volume      float64   `json:"volume_24h_usd"`
	MarketCap   float64   `json:"market_cap_usd"`
	LastUpdated time.Time `json:"last_updated"`
}

// PriceSnapshot is the feed's latest view of one symbol.
type PriceSnapshot struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Change24h float64   `json:"change24h"`
	Volume    float64   `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
}

// AlertDirection selects the comparison used by a price alert.
type AlertDirection string

const (
	AlertAbove AlertDirection = "above"
	AlertBelow AlertDirection = "below"
)

// PriceAlert is a standing check evaluated on every alert tick.
type PriceAlert struct {
	ID          string         `json:"id"`
	Symbol      string         `json:"symbol"`
	TargetPrice float64        `json:"target_price"`
	Direction   AlertDirection `json:"direction"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Triggered reports whether price satisfies the alert. Both comparisons are inclusive.
func (a PriceAlert) Triggered(price float64) bool {
	switch a.Direction {
	case AlertAbove:
		return price >= a.TargetPrice
	case AlertBelow:
		return price <= a.TargetPrice
	default:
		return false
	}
}

// Notification is a user-facing payload.
type Notification struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Symbol    string    `json:"symbol,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
