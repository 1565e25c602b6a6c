package repository

import (
	"context"

	"FollowFeed/internal/domain/models"
)

// Executor places a follow order. A false result means "not executed".
type Executor interface {
	ExecuteTrade(ctx context.Context, order models.TradeOrder) (bool, error)
}

// AccountProvider exposes the currently selected account, nil when none.
type AccountProvider interface {
	CurrentAccount() *models.Account
}

// PriceSource returns cached market rows ordered by descending market cap.
type PriceSource interface {
	Fetch(ctx context.Context, symbols []string) ([]models.PriceRow, error)
}

// RefreshTrigger asks the upstream cache to refresh itself. Fire-and-forget.
type RefreshTrigger interface {
	Trigger(ctx context.Context) error
}

// Notifier delivers user-facing notifications.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

// EventPublisher ships events to an external broker.
type EventPublisher interface {
	Publish(ctx context.Context, e models.Event) error
	Close() error
}

// EventStore persists follow events; it doubles as the trade history store.
type EventStore interface {
	Store(ctx context.Context, e models.Event) error
	Recent(ctx context.Context, limit int) ([]models.Event, error)
	Health(ctx context.Context) error
}

type Metrics interface {
	RecordSignal(symbol string)
	RecordFollow(result models.FollowResult)
	RecordBacklog(size int)
	RecordPoll(ok bool)
	RecordConnection(status models.ConnectionStatus)
	RecordLastPrice(symbol string, price float64)
	RecordAlertFired(symbol string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
