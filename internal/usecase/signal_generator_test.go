package usecase

import (
	"math"
	"sync"
	"testing"
	"time"

	"FollowFeed/internal/domain/models"
)

func TestGenerateRanges(t *testing.T) {
	g := NewSignalGenerator(nil)
	valid := map[string]bool{}
	for _, s := range SignalSymbols {
		valid[s] = true
	}
	seen := map[string]bool{}

	for i := 0; i < 1000; i++ {
		s := g.Generate()
		if !valid[s.Symbol] {
			t.Fatalf("unexpected symbol %q", s.Symbol)
		}
		if s.Side != models.SideBuy && s.Side != models.SideSell {
			t.Fatalf("unexpected side %q", s.Side)
		}
		if s.Price < 50000 || s.Price >= 70000 {
			t.Fatalf("price out of range: %v", s.Price)
		}
		if s.Amount < 0.01 || s.Amount >= 0.11 {
			t.Fatalf("amount out of range: %v", s.Amount)
		}
		if s.Confidence < 60 || s.Confidence >= 100 {
			t.Fatalf("confidence out of range: %v", s.Confidence)
		}
		if s.Source != "AI Analysis" {
			t.Fatalf("unexpected source %q", s.Source)
		}
		if seen[s.ID] {
			t.Fatalf("duplicate id %s", s.ID)
		}
		seen[s.ID] = true
	}
}

func TestGenerateUsesInjectedRandomAndClock(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	g := NewSignalGenerator(nil,
		WithRandom(&seqRandom{floats: []float64{0, 0.5, 0.5}, ints: []int{2, 1}}),
		WithClock(func() time.Time { return at }),
		WithIDFunc(func() string { return "sig-1" }),
	)

	s := g.Generate()
	if s.Symbol != "SOL" || s.Side != models.SideSell {
		t.Fatalf("unexpected symbol/side %s/%s", s.Symbol, s.Side)
	}
	if s.Price != 50000 || math.Abs(s.Amount-0.06) > 1e-12 || s.Confidence != 80 {
		t.Fatalf("unexpected values %+v", s)
	}
	if s.ID != "sig-1" || !s.Timestamp.Equal(at) {
		t.Fatalf("unexpected id/timestamp %s %v", s.ID, s.Timestamp)
	}
}

func TestGeneratorStopHaltsEmission(t *testing.T) {
	var mu sync.Mutex
	count := 0
	g := NewSignalGenerator(func(models.TradeSignal) {
		mu.Lock()
		count++
		mu.Unlock()
	}, WithInterval(2*time.Millisecond))

	g.Start()
	g.Start()
	if !g.Running() {
		t.Fatalf("expected running")
	}
	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count >= 2
	})

	g.Stop()
	mu.Lock()
	stopped := count
	mu.Unlock()

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if count != stopped {
		t.Fatalf("emitted after stop: %d -> %d", stopped, count)
	}
	if g.Running() {
		t.Fatalf("expected stopped")
	}
	g.Stop()
}
