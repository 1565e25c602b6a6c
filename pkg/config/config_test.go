package config

import (
	"strings"
	"testing"
	"time"
)

const minimalYAML = `
environment: test
market:
  source: redis
redis:
  enabled: true
`

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Follow.SignalInterval != 8*time.Second {
		t.Fatalf("signal interval = %v", c.Follow.SignalInterval)
	}
	if c.Follow.MinConfidence != 70 || c.Follow.MaxPositionSize != 1000 {
		t.Fatalf("unexpected follow defaults: %+v", c.Follow)
	}
	if c.Follow.AutoExecute {
		t.Fatalf("auto execute must default to false")
	}
	if c.Market.PollInterval != 30*time.Second || c.Market.RefreshEvery != 10 {
		t.Fatalf("unexpected market defaults: %+v", c.Market)
	}
	if c.Log.Level != "info" || c.Redis.Port != 6379 {
		t.Fatalf("unexpected ambient defaults: log=%+v redis port=%d", c.Log, c.Redis.Port)
	}
}

func TestParseKeepsExplicitValues(t *testing.T) {
	c, err := Parse([]byte(minimalYAML + `
follow:
  signal_interval: 2s
  min_confidence: 85
  auto_execute: true
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Follow.SignalInterval != 2*time.Second || c.Follow.MinConfidence != 85 || !c.Follow.AutoExecute {
		t.Fatalf("explicit values overwritten: %+v", c.Follow)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"bad source", "environment: x\nmarket:\n  source: sqlite\n", "market.source"},
		{"redis disabled", "environment: x\nmarket:\n  source: redis\n", "redis.enabled"},
		{"confidence range", minimalYAML + "follow:\n  min_confidence: 101\n", "min_confidence"},
		{"kafka brokers", minimalYAML + "kafka:\n  enabled: true\n", "kafka.brokers"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	c, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	env := map[string]string{
		"MARKET_SYMBOLS":      "BTC,ETH",
		"FOLLOW_AUTO_EXECUTE": "true",
		"KAFKA_BROKERS":       "a:9092,b:9092",
	}
	c.applyEnv(func(k string) string { return env[k] })

	if strings.Join(c.Market.Symbols, ",") != "BTC,ETH" {
		t.Fatalf("symbols = %v", c.Market.Symbols)
	}
	if !c.Follow.AutoExecute {
		t.Fatalf("auto execute not applied")
	}
	if len(c.Kafka.Brokers) != 2 {
		t.Fatalf("brokers = %v", c.Kafka.Brokers)
	}
}
