package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"FollowFeed/pkg/logger"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string        `yaml:"environment" default:"dev"`
	Log         logger.Config `yaml:"log"`
	LogDigest   struct {
		Enabled   bool          `yaml:"enabled"`
		Interval  time.Duration `yaml:"interval" default:"30s"`
		Threshold int           `yaml:"threshold" default:"100"`
	} `yaml:"log_digest"`
	Server struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		SlowThreshold   time.Duration `yaml:"slow_threshold" default:"500ms"`
	} `yaml:"server"`
	Follow struct {
		SignalInterval  time.Duration `yaml:"signal_interval" default:"8s"`
		MinConfidence   float64       `yaml:"min_confidence" default:"70"`
		MaxPositionSize float64       `yaml:"max_position_size" default:"1000"`
		AutoExecute     bool          `yaml:"auto_execute"`
		ExecTimeout     time.Duration `yaml:"exec_timeout" default:"5s"`
		ManualRPS       float64       `yaml:"manual_rps" default:"2"`
		ManualBurst     float64       `yaml:"manual_burst" default:"5"`
	} `yaml:"follow"`
	Market struct {
		Source         string        `yaml:"source" default:"redis"`
		Symbols        []string      `yaml:"symbols"`
		PollInterval   time.Duration `yaml:"poll_interval" default:"30s"`
		RefreshEvery   int           `yaml:"refresh_every" default:"10"`
		RefreshURL     string        `yaml:"refresh_url"`
		RefreshTimeout time.Duration `yaml:"refresh_timeout" default:"10s"`
		RefreshLockTTL time.Duration `yaml:"refresh_lock_ttl" default:"60s"`
		FetchTimeout   time.Duration `yaml:"fetch_timeout" default:"5s"`
		PollOnStart    bool          `yaml:"poll_on_start"`
	} `yaml:"market"`
	Paper struct {
		Accounts       []string `yaml:"accounts"`
		InitialBalance float64  `yaml:"initial_balance" default:"10000"`
		HistorySize    int      `yaml:"history_size" default:"200"`
	} `yaml:"paper"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"followfeed.events"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"200ms"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"followfeed-sink"`
			Workers    int           `yaml:"workers" default:"2"`
			BufferSize int           `yaml:"buffer_size" default:"64"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"50ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10000000"`
		} `yaml:"consumer"`
		Pipeline struct {
			MaxRPS     int `yaml:"max_rps" default:"50"`
			BufferSize int `yaml:"buffer_size" default:"1000"`
		} `yaml:"pipeline"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"followfeed"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host" default:"localhost"`
		Port     int    `yaml:"port" default:"6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"` // shared with the upstream refresher; empty means bare keys
	} `yaml:"redis"`
	Notifications struct {
		Workers    int           `yaml:"workers" default:"1"`
		RetryLimit int           `yaml:"retry_limit" default:"3"`
		RetryDelay time.Duration `yaml:"retry_delay" default:"5s"`
		InboxSize  int           `yaml:"inbox_size" default:"50"`
	} `yaml:"notifications"`
}

// Load reads and parses a YAML configuration file, filling unset fields from struct defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes and applies defaults and validation.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.applyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("MARKET_SYMBOLS"); v != "" {
		c.Market.Symbols = strings.Split(v, ",")
	}
	if v := getenv("MARKET_SOURCE"); v != "" {
		c.Market.Source = v
	}
	if v := getenv("MARKET_REFRESH_URL"); v != "" {
		c.Market.RefreshURL = v
	}
	if v := getenv("FOLLOW_AUTO_EXECUTE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Follow.AutoExecute = b
		}
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Follow.SignalInterval <= 0 {
		return fmt.Errorf("follow.signal_interval must be positive")
	}
	if c.Follow.MinConfidence < 0 || c.Follow.MinConfidence > 100 {
		return fmt.Errorf("follow.min_confidence must be within [0, 100], got %v", c.Follow.MinConfidence)
	}
	if c.Follow.MaxPositionSize <= 0 {
		return fmt.Errorf("follow.max_position_size must be positive")
	}
	if c.Market.PollInterval <= 0 {
		return fmt.Errorf("market.poll_interval must be positive")
	}
	switch c.Market.Source {
	case "redis":
		if !c.Redis.Enabled {
			return fmt.Errorf("market.source 'redis' requires redis.enabled")
		}
	case "clickhouse":
		if !c.ClickHouse.Enabled {
			return fmt.Errorf("market.source 'clickhouse' requires clickhouse.enabled")
		}
	default:
		return fmt.Errorf("market.source must be 'redis' or 'clickhouse', got '%s'", c.Market.Source)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}
