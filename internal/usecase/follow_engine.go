package usecase

import (
	"context"
	"sync"
	"time"

	"FollowFeed/internal/domain/models"
	drepo "FollowFeed/internal/domain/repository"
	"FollowFeed/pkg/logger"
)

const defaultExecTimeout = 5 * time.Second

// FollowEngine owns the following flag, the user settings and the signal backlog.
type FollowEngine struct {
	exec     drepo.Executor
	accounts drepo.AccountProvider
	metrics  drepo.Metrics
	sink     EventSink
	log      *logger.Logger
	gen      *SignalGenerator

	execTimeout time.Duration
	genOpts     []GeneratorOption

	lifeMu sync.Mutex // serializes SetFollowing and Close

	mu        sync.RWMutex
	following bool
	settings  models.FollowSettings
	backlog   []models.TradeSignal

	inflight sync.WaitGroup
	baseCtx  context.Context
	cancel   context.CancelFunc
}

type EngineOption func(*FollowEngine)

func WithSettings(s models.FollowSettings) EngineOption {
	return func(e *FollowEngine) { e.settings = s }
}

func WithEventSink(sink EventSink) EngineOption {
	return func(e *FollowEngine) {
		if sink != nil {
			e.sink = sink
		}
	}
}

func WithEngineLogger(log *logger.Logger) EngineOption {
	return func(e *FollowEngine) {
		if log != nil {
			e.log = log
		}
	}
}

func WithExecTimeout(d time.Duration) EngineOption {
	return func(e *FollowEngine) {
		if d > 0 {
			e.execTimeout = d
		}
	}
}

// WithGeneratorOptions configures the generator the engine drives.
func WithGeneratorOptions(opts ...GeneratorOption) EngineOption {
	return func(e *FollowEngine) { e.genOpts = append(e.genOpts, opts...) }
}

func NewFollowEngine(exec drepo.Executor, accounts drepo.AccountProvider, metrics drepo.Metrics, opts ...EngineOption) *FollowEngine {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	e := &FollowEngine{
		exec:        exec,
		accounts:    accounts,
		metrics:     metrics,
		sink:        nopSink{},
		log:         logger.Nop(),
		settings:    models.DefaultFollowSettings(),
		execTimeout: defaultExecTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.baseCtx, e.cancel = context.WithCancel(context.Background())
	e.gen = NewSignalGenerator(e.OnSignal, e.genOpts...)
	return e
}

// SetFollowing toggles the generator. Disabling clears the backlog.
func (e *FollowEngine) SetFollowing(enabled bool) {
	e.lifeMu.Lock()
	defer e.lifeMu.Unlock()

	e.mu.Lock()
	if e.following == enabled {
		e.mu.Unlock()
		return
	}
	e.following = enabled
	if !enabled {
		e.backlog = nil
	}
	size := len(e.backlog)
	e.mu.Unlock()

	// the state lock is released: a pending tick may be blocked in OnSignal
	if enabled {
		e.gen.Start()
	} else {
		e.gen.Stop()
	}

	e.metrics.RecordBacklog(size)
	e.log.Info("following changed", logger.Bool("enabled", enabled))
	e.sink.Publish(models.Event{Type: models.EventFollowingChanged, Following: &enabled})
}

func (e *FollowEngine) IsFollowing() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.following
}

// UpdateSettings merges patch into the current settings and returns the result.
func (e *FollowEngine) UpdateSettings(patch models.SettingsPatch) models.FollowSettings {
	e.mu.Lock()
	e.settings = patch.Apply(e.settings)
	s := e.settings
	e.mu.Unlock()

	e.log.Info("settings updated",
		logger.Float64("min_confidence", s.MinConfidence),
		logger.Float64("max_position_size", s.MaxPositionSize),
		logger.Bool("auto_execute", s.AutoExecute),
	)
	e.sink.Publish(models.Event{Type: models.EventSettingsUpdated, Settings: &s})
	return s
}

func (e *FollowEngine) Settings() models.FollowSettings {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.settings
}

// Signals returns a copy of the backlog, newest first.
func (e *FollowEngine) Signals() []models.TradeSignal {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]models.TradeSignal, len(e.backlog))
	copy(out, e.backlog)
	return out
}

// Signal looks up a backlog entry by ID.
func (e *FollowEngine) Signal(id string) (models.TradeSignal, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, s := range e.backlog {
		if s.ID == id {
			return s, true
		}
	}
	return models.TradeSignal{}, false
}

// OnSignal records a generated signal and auto-follows it when the settings allow.
// Signals arriving while following is off are dropped.
func (e *FollowEngine) OnSignal(sig models.TradeSignal) {
	e.mu.Lock()
	if !e.following {
		e.mu.Unlock()
		return
	}
	next := make([]models.TradeSignal, 0, models.BacklogLimit)
	next = append(next, sig)
	for _, s := range e.backlog {
		if len(next) == models.BacklogLimit {
			break
		}
		next = append(next, s)
	}
	e.backlog = next
	settings := e.settings
	size := len(next)
	e.mu.Unlock()

	e.metrics.RecordSignal(sig.Symbol)
	e.metrics.RecordBacklog(size)
	e.log.Debug("signal received",
		logger.String("id", sig.ID),
		logger.String("symbol", sig.Symbol),
		logger.Float64("confidence", sig.Confidence),
	)
	e.sink.Publish(models.Event{Type: models.EventSignalReceived, Signal: &sig})

	if settings.ShouldAutoExecute(sig) {
		e.inflight.Add(1)
		go func() {
			defer e.inflight.Done()
			e.Follow(e.baseCtx, sig)
		}()
	}
}

// Follow executes sig against the current account, capped by MaxPositionSize.
// A successful follow removes the signal from the backlog; a failed one keeps it.
func (e *FollowEngine) Follow(ctx context.Context, sig models.TradeSignal) models.FollowResult {
	if e.accounts == nil || e.accounts.CurrentAccount() == nil {
		e.metrics.RecordFollow(models.FollowSkipped)
		e.log.Debug("follow skipped: no current account", logger.String("id", sig.ID))
		return models.FollowSkipped
	}

	settings := e.Settings()
	order := models.TradeOrder{
		SignalID: sig.ID,
		Symbol:   sig.Symbol,
		Side:     sig.Side,
		Amount:   settings.FollowAmount(sig),
		Price:    sig.Price,
		Type:     models.OrderTypeMarket,
	}

	execCtx, cancel := context.WithTimeout(ctx, e.execTimeout)
	defer cancel()

	start := time.Now()
	ok, err := e.exec.ExecuteTrade(execCtx, order)
	e.metrics.RecordLatency("execute_trade", time.Since(start).Seconds())

	if err != nil || !ok {
		e.metrics.RecordFollow(models.FollowFailed)
		if err != nil {
			e.metrics.RecordError("execute_trade")
		}
		e.log.Warn("follow failed",
			logger.String("id", sig.ID),
			logger.String("symbol", sig.Symbol),
			logger.Bool("executed", ok),
			logger.Error(err),
		)
		e.sink.Publish(models.Event{Type: models.EventFollowFailed, Signal: &sig, Order: &order})
		return models.FollowFailed
	}

	size := e.remove(sig.ID)
	e.metrics.RecordFollow(models.FollowExecuted)
	e.metrics.RecordBacklog(size)
	e.log.Info("signal followed",
		logger.String("id", sig.ID),
		logger.String("symbol", sig.Symbol),
		logger.String("side", string(order.Side)),
		logger.Float64("amount", order.Amount),
	)
	e.sink.Publish(models.Event{Type: models.EventSignalFollowed, Signal: &sig, Order: &order})
	return models.FollowExecuted
}

// FollowByID follows a backlog signal. The bool is false when the ID is unknown.
func (e *FollowEngine) FollowByID(ctx context.Context, id string) (models.FollowResult, bool) {
	sig, ok := e.Signal(id)
	if !ok {
		return "", false
	}
	return e.Follow(ctx, sig), true
}

func (e *FollowEngine) remove(id string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, s := range e.backlog {
		if s.ID == id {
			e.backlog = append(e.backlog[:i:i], e.backlog[i+1:]...)
			break
		}
	}
	return len(e.backlog)
}

// Wait blocks until in-flight auto-follows have returned.
func (e *FollowEngine) Wait() { e.inflight.Wait() }

// Close stops the generator and cancels in-flight follows.
func (e *FollowEngine) Close() {
	e.SetFollowing(false)
	e.cancel()
	e.inflight.Wait()
}
