package models

import "time"

// Side is the direction of a trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderTypeMarket is the only order type a follow ever produces.
const OrderTypeMarket = "market"

// BacklogLimit caps the number of unresolved signals kept by the follow engine.
const BacklogLimit = 10

// TradeSignal is a synthetic recommendation. Values are never mutated after creation.
type TradeSignal struct {
	ID         string    `json:"id"`
	Symbol     string    `json:"symbol"`
	Side       Side      `json:"side"`
	Price      float64   `json:"price"`
	Amount     float64   `json:"amount"`
	Confidence float64   `json:"confidence"`
	Source     string    `json:"source"`
	Timestamp  time.Time `json:"timestamp"`
}

// Notional returns price * amount in quote currency.
func (s TradeSignal) Notional() float64 { return s.Price * s.Amount }

// FollowSettings are the user risk limits applied to each follow.
type FollowSettings struct {
	MinConfidence   float64 `json:"min_confidence"`
	MaxPositionSize float64 `json:"max_position_size"` // quote currency
	AutoExecute     bool    `json:"auto_execute"`
}

// DefaultFollowSettings mirrors the values a fresh user starts with.
func DefaultFollowSettings() FollowSettings {
	return FollowSettings{MinConfidence: 70, MaxPositionSize: 1000}
}

// SettingsPatch is a partial update; nil fields are left untouched.
type SettingsPatch struct {
	MinConfidence   *float64 `json:"min_confidence,omitempty"`
	MaxPositionSize *float64 `json:"max_position_size,omitempty"`
	AutoExecute     *bool    `json:"auto_execute,omitempty"`
}

// Apply returns s with the non-nil fields of p merged in.
func (p SettingsPatch) Apply(s FollowSettings) FollowSettings {
	if p.MinConfidence != nil {
		s.MinConfidence = *p.MinConfidence
	}
	if p.MaxPositionSize != nil {
		s.MaxPositionSize = *p.MaxPositionSize
	}
	if p.AutoExecute != nil {
		s.AutoExecute = *p.AutoExecute
	}
	return s
}

// ShouldAutoExecute reports whether sig passes the auto-execution gate. The boundary is inclusive.
func (s FollowSettings) ShouldAutoExecute(sig TradeSignal) bool {
	return s.AutoExecute && sig.Confidence >= s.MinConfidence
}

// FollowAmount caps the signal size so its notional never exceeds MaxPositionSize.
func (s FollowSettings) FollowAmount(sig TradeSignal) float64 {
	capped := s.MaxPositionSize / sig.Price
	if sig.Amount < capped {
		return sig.Amount
	}
	return capped
}

// TradeOrder is what the follow engine hands to the execution collaborator.
type TradeOrder struct {
	SignalID string  `json:"signal_id,omitempty"`
	Symbol   string  `json:"symbol"`
	Side     Side    `json:"side"`
	Amount   float64 `json:"amount"`
	Price    float64 `json:"price"`
	Type     string  `json:"type"`
}

// FollowResult describes how a follow attempt resolved.
type FollowResult string

const (
	FollowExecuted FollowResult = "executed"
	FollowFailed   FollowResult = "failed"
	FollowSkipped  FollowResult = "skipped" // no current account
)
