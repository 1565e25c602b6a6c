package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"FollowFeed/internal/domain/models"
	"FollowFeed/internal/domain/repository"
)

var errNoOrder = errors.New("event has no order")

// ClickHouseEventStore appends follow outcomes to follow_events.
type ClickHouseEventStore struct {
	db    *sql.DB
	table string
}

func NewClickHouseEventStore(db *sql.DB, database string) repository.EventStore {
	return &ClickHouseEventStore{db: db, table: database + ".follow_events"}
}

func (s *ClickHouseEventStore) Store(ctx context.Context, e models.Event) error {
	args, err := eventRow(e)
	if err != nil {
		return err
	}
	q := fmt.Sprintf(`INSERT INTO %s (ts, event_type, signal_id, symbol, side, amount, price, order_type, confidence, source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table)
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("insert follow event: %w", err)
	}
	return nil
}

// Recent returns the newest follow events first.
func (s *ClickHouseEventStore) Recent(ctx context.Context, limit int) ([]models.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	q := fmt.Sprintf(`SELECT ts, event_type, signal_id, symbol, side, amount, price, order_type, confidence, source
		FROM %s ORDER BY ts DESC LIMIT ?`, s.table)
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query follow events: %w", err)
	}
	defer rows.Close()

	var out []models.Event
	for rows.Next() {
		var (
			ts         time.Time
			typ, side  string
			conf       float64
			sigID, src string
			order      models.TradeOrder
		)
		if err := rows.Scan(&ts, &typ, &sigID, &order.Symbol, &side, &order.Amount, &order.Price, &order.Type, &conf, &src); err != nil {
			return nil, fmt.Errorf("scan follow event: %w", err)
		}
		order.Side = models.Side(side)
		order.SignalID = sigID
		out = append(out, models.Event{
			Type:      models.EventType(typ),
			Timestamp: ts,
			Order:     &order,
			Signal: &models.TradeSignal{
				ID:         sigID,
				Symbol:     order.Symbol,
				Side:       order.Side,
				Confidence: conf,
				Source:     src,
			},
		})
	}
	return out, rows.Err()
}

func (s *ClickHouseEventStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// eventRow flattens e into the follow_events column order.
func eventRow(e models.Event) ([]interface{}, error) {
	if e.Order == nil {
		return nil, errNoOrder
	}
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	var (
		conf   float64
		source string
	)
	sigID := e.Order.SignalID
	if e.Signal != nil {
		conf = e.Signal.Confidence
		source = e.Signal.Source
		if sigID == "" {
			sigID = e.Signal.ID
		}
	}
	return []interface{}{
		ts.UTC(),
		string(e.Type),
		sigID,
		e.Order.Symbol,
		string(e.Order.Side),
		e.Order.Amount,
		e.Order.Price,
		e.Order.Type,
		conf,
		source,
	}, nil
}
