package paper

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"FollowFeed/internal/domain/models"
	"FollowFeed/internal/domain/repository"
	"FollowFeed/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrUnknownAccount = errors.New("paper: unknown account")
	ErrInvalidOrder   = errors.New("paper: invalid order")
)

// DefaultHistorySize bounds the executed trade history.
const DefaultHistorySize = 200

type account struct {
	id        string
	name      string
	balance   decimal.Decimal
	positions map[string]decimal.Decimal
}

func (a *account) snapshot() *models.Account {
	pos := make(map[string]float64, len(a.positions))
	for sym, qty := range a.positions {
		pos[sym] = qty.InexactFloat64()
	}
	return &models.Account{
		ID:        a.id,
		Name:      a.name,
		Balance:   a.balance.InexactFloat64(),
		Positions: pos,
	}
}

// BookOption configures Book.
type BookOption func(*Book)

func WithHistorySize(n int) BookOption {
	return func(b *Book) {
		if n > 0 {
			b.historySize = n
		}
	}
}

func WithClock(now func() time.Time) BookOption {
	return func(b *Book) { b.now = now }
}

func WithLogger(l *logger.Logger) BookOption {
	return func(b *Book) { b.lgr = l }
}

// Book holds simulated accounts and fills market orders against them at the order price.
// It serves as both the account provider and the trade executor of the follow engine.
type Book struct {
	mu          sync.RWMutex
	accounts    map[string]*account
	current     string
	history     []models.ExecutedTrade // newest first
	historySize int
	now         func() time.Time
	lgr         *logger.Logger
}

func NewBook(opts ...BookOption) *Book {
	b := &Book{
		accounts:    make(map[string]*account),
		historySize: DefaultHistorySize,
		now:         time.Now,
		lgr:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Open creates an account funded with balance in quote currency. The first account
// opened becomes current.
func (b *Book) Open(id, name string, balance float64) (*models.Account, error) {
	if id == "" {
		return nil, fmt.Errorf("paper: account id is required")
	}
	if balance < 0 {
		return nil, fmt.Errorf("paper: negative opening balance %v", balance)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.accounts[id]; ok {
		return nil, fmt.Errorf("paper: account %q already exists", id)
	}
	a := &account{
		id:        id,
		name:      name,
		balance:   decimal.NewFromFloat(balance),
		positions: make(map[string]decimal.Decimal),
	}
	b.accounts[id] = a
	if b.current == "" {
		b.current = id
	}
	return a.snapshot(), nil
}

// Select makes id the current account. An empty id clears the selection.
func (b *Book) Select(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if id == "" {
		b.current = ""
		return nil
	}
	if _, ok := b.accounts[id]; !ok {
		return ErrUnknownAccount
	}
	b.current = id
	return nil
}

// CurrentAccount returns a copy of the selected account, or nil when none is selected.
func (b *Book) CurrentAccount() *models.Account {
	b.mu.RLock()
	defer b.mu.RUnlock()

	a, ok := b.accounts[b.current]
	if !ok {
		return nil
	}
	return a.snapshot()
}

// Accounts lists every account ordered by ID.
func (b *Book) Accounts() []models.Account {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]models.Account, 0, len(b.accounts))
	for _, a := range b.accounts {
		out = append(out, *a.snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ExecuteTrade fills order against the current account. It reports false without
// error when the account cannot cover the trade.
func (b *Book) ExecuteTrade(ctx context.Context, order models.TradeOrder) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if order.Amount <= 0 || order.Price <= 0 || order.Symbol == "" {
		return false, fmt.Errorf("%w: %+v", ErrInvalidOrder, order)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	a, ok := b.accounts[b.current]
	if !ok {
		return false, ErrUnknownAccount
	}

	qty := decimal.NewFromFloat(order.Amount)
	notional := qty.Mul(decimal.NewFromFloat(order.Price))
	held := a.positions[order.Symbol]

	switch order.Side {
	case models.SideBuy:
		if a.balance.LessThan(notional) {
			b.lgr.Debug("insufficient balance",
				logger.String("account", a.id),
				logger.String("symbol", order.Symbol),
				logger.Float64("notional", notional.InexactFloat64()),
			)
			return false, nil
		}
		a.balance = a.balance.Sub(notional)
		a.positions[order.Symbol] = held.Add(qty)
	case models.SideSell:
		if held.LessThan(qty) {
			b.lgr.Debug("insufficient position",
				logger.String("account", a.id),
				logger.String("symbol", order.Symbol),
				logger.Float64("held", held.InexactFloat64()),
			)
			return false, nil
		}
		a.balance = a.balance.Add(notional)
		if rest := held.Sub(qty); rest.IsZero() {
			delete(a.positions, order.Symbol)
		} else {
			a.positions[order.Symbol] = rest
		}
	default:
		return false, fmt.Errorf("%w: side %q", ErrInvalidOrder, order.Side)
	}

	b.record(models.ExecutedTrade{
		ID:         uuid.NewString(),
		AccountID:  a.id,
		Order:      order,
		Notional:   notional.InexactFloat64(),
		ExecutedAt: b.now(),
	})
	return true, nil
}

func (b *Book) record(t models.ExecutedTrade) {
	b.history = append([]models.ExecutedTrade{t}, b.history...)
	if len(b.history) > b.historySize {
		b.history = b.history[:b.historySize]
	}
}

// History returns up to limit executed trades, newest first. A non-positive limit returns all.
func (b *Book) History(limit int) []models.ExecutedTrade {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := len(b.history)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]models.ExecutedTrade, n)
	copy(out, b.history[:n])
	return out
}

var (
	_ repository.Executor        = (*Book)(nil)
	_ repository.AccountProvider = (*Book)(nil)
)
