package models

import "time"

// Request and response shapes of the HTTP API.

type FollowingRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

type SettingsRequest struct {
	MinConfidence   *float64 `json:"min_confidence" validate:"omitempty,gte=0,lte=100"`
	MaxPositionSize *float64 `json:"max_position_size" validate:"omitempty,gt=0"`
	AutoExecute     *bool    `json:"auto_execute"`
}

// Patch converts the request into a settings patch.
func (r SettingsRequest) Patch() SettingsPatch {
	return SettingsPatch{
		MinConfidence:   r.MinConfidence,
		MaxPositionSize: r.MaxPositionSize,
		AutoExecute:     r.AutoExecute,
	}
}

type FollowSignalRequest struct {
	ID string `param:"id" validate:"required"`
}

type PriceAlertRequest struct {
	Symbol      string  `json:"symbol" validate:"required,alphanum,max=16"`
	TargetPrice float64 `json:"target_price" validate:"gt=0"`
	Direction   string  `json:"direction" default:"above" validate:"oneof=above below"`
}

type SymbolRequest struct {
	Symbol string `param:"symbol" validate:"required,alphanum,max=16"`
}

type NotificationsRequest struct {
	Limit int `query:"limit" default:"20" validate:"gte=1,lte=50"`
}

type SelectAccountRequest struct {
	ID string `json:"id" validate:"required,max=64"`
}

type HistoryRequest struct {
	Limit int `query:"limit" default:"50" validate:"gte=1,lte=500"`
}

// FollowView is the follow panel state returned by GET /api/follow.
type FollowView struct {
	Following bool           `json:"following"`
	Settings  FollowSettings `json:"settings"`
	Signals   []TradeSignal  `json:"signals"`
}

// MarketView is the feed state returned by GET /api/market/prices.
type MarketView struct {
	Status     ConnectionStatus `json:"status"`
	LastUpdate *time.Time       `json:"last_update,omitempty"`
	Prices     []PriceSnapshot  `json:"prices"`
}

// AccountView pairs the current account with its recent fills.
type AccountView struct {
	Account *Account        `json:"account"`
	History []ExecutedTrade `json:"history"`
}
