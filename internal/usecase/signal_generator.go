package usecase

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"FollowFeed/internal/domain/models"
	domsvc "FollowFeed/internal/domain/service"

	"github.com/google/uuid"
)

const (
	DefaultSignalInterval = 8 * time.Second
	SignalSource          = "AI Analysis"
)

// SignalSymbols is the instrument set synthetic signals are drawn from.
var SignalSymbols = []string{"BTC", "ETH", "SOL", "ADA", "DOT", "LINK"}

// Ranges are half-open: [min, min+span).
const (
	priceMin      = 50000.0
	priceSpan     = 20000.0
	amountMin     = 0.01
	amountSpan    = 0.1
	confidenceMin = 60.0
	confidenceSpn = 40.0
)

// SignalGenerator emits one synthetic signal per interval while started.
type SignalGenerator struct {
	interval time.Duration
	emit     func(models.TradeSignal)
	now      func() time.Time
	newID    func() string

	rndMu sync.Mutex
	rnd   domsvc.Random

	lifeMu sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type GeneratorOption func(*SignalGenerator)

// WithInterval sets the emission cadence.
func WithInterval(d time.Duration) GeneratorOption {
	return func(g *SignalGenerator) {
		if d > 0 {
			g.interval = d
		}
	}
}

// WithRandom injects the randomness strategy.
func WithRandom(r domsvc.Random) GeneratorOption {
	return func(g *SignalGenerator) {
		if r != nil {
			g.rnd = r
		}
	}
}

// WithClock injects the timestamp source.
func WithClock(now func() time.Time) GeneratorOption {
	return func(g *SignalGenerator) {
		if now != nil {
			g.now = now
		}
	}
}

// WithIDFunc injects the signal ID source.
func WithIDFunc(fn func() string) GeneratorOption {
	return func(g *SignalGenerator) {
		if fn != nil {
			g.newID = fn
		}
	}
}

func NewSignalGenerator(emit func(models.TradeSignal), opts ...GeneratorOption) *SignalGenerator {
	g := &SignalGenerator{
		interval: DefaultSignalInterval,
		emit:     emit,
		now:      time.Now,
		newID:    uuid.NewString,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Start begins emitting. Calling Start on a running generator does nothing.
func (g *SignalGenerator) Start() {
	g.lifeMu.Lock()
	defer g.lifeMu.Unlock()
	if g.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	g.cancel = cancel
	g.done = done
	go g.run(ctx, done)
}

// Stop cancels the interval and returns once the emission loop has exited.
// No signal is emitted after Stop returns.
func (g *SignalGenerator) Stop() {
	g.lifeMu.Lock()
	defer g.lifeMu.Unlock()
	if g.cancel == nil {
		return
	}
	g.cancel()
	<-g.done
	g.cancel = nil
	g.done = nil
}

// Running reports whether the emission loop is active.
func (g *SignalGenerator) Running() bool {
	g.lifeMu.Lock()
	defer g.lifeMu.Unlock()
	return g.cancel != nil
}

func (g *SignalGenerator) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// select picks randomly when both are ready
			if ctx.Err() != nil {
				return
			}
			if g.emit != nil {
				g.emit(g.Generate())
			}
		}
	}
}

// Generate builds one signal with every field drawn independently.
func (g *SignalGenerator) Generate() models.TradeSignal {
	g.rndMu.Lock()
	symbol := SignalSymbols[g.rnd.Intn(len(SignalSymbols))]
	side := models.SideBuy
	if g.rnd.Intn(2) == 1 {
		side = models.SideSell
	}
	price := priceMin + g.rnd.Float64()*priceSpan
	amount := amountMin + g.rnd.Float64()*amountSpan
	confidence := confidenceMin + g.rnd.Float64()*confidenceSpn
	g.rndMu.Unlock()

	return models.TradeSignal{
		ID:         g.newID(),
		Symbol:     symbol,
		Side:       side,
		Price:      price,
		Amount:     amount,
		Confidence: confidence,
		Source:     SignalSource,
		Timestamp:  g.now(),
	}
}
