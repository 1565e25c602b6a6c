package models

import "time"

// Account is a simulated trading account.
type Account struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Balance   float64            `json:"balance"`
	Positions map[string]float64 `json:"positions"`
}

// ExecutedTrade is one entry of the account trade history.
type ExecutedTrade struct {
	ID         string     `json:"id"`
	AccountID  string     `json:"account_id"`
	Order      TradeOrder `json:"order"`
	Notional   float64    `json:"notional"`
	ExecutedAt time.Time  `json:"executed_at"`
}
