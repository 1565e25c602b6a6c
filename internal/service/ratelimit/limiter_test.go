package ratelimit

import (
	"testing"
	"time"
)

func TestLimiterBurstThenRefill(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := New(2, 3)
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if !l.Allow("ip") {
			t.Fatalf("request %d should pass within burst", i)
		}
	}
	if l.Allow("ip") {
		t.Fatalf("fourth request should be limited")
	}

	now = now.Add(500 * time.Millisecond)
	if !l.Allow("ip") {
		t.Fatalf("one token should refill after 500ms at 2/s")
	}
	if l.Allow("ip") {
		t.Fatalf("bucket should be empty again")
	}
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	l := New(0, 1)
	if !l.Allow("a") || !l.Allow("b") {
		t.Fatalf("each key starts full")
	}
	if l.Allow("a") {
		t.Fatalf("a should be exhausted")
	}
}

func TestLimiterForget(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := New(1, 1)
	l.now = func() time.Time { return now }
	l.Allow("old")
	now = now.Add(time.Hour)
	l.Allow("new")

	if n := l.Forget(time.Minute); n != 1 {
		t.Fatalf("expected 1 forgotten bucket, got %d", n)
	}
}
