package main

import (
	"flag"
	"log"
	"os"

	"FollowFeed/internal/di"
	"FollowFeed/pkg/config"
	"FollowFeed/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	lgr, err := logger.New(&cfg.Log)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	lgr.Info("starting followfeed",
		logger.String("env", cfg.Environment),
		logger.String("market_source", cfg.Market.Source),
		logger.Strings("symbols", cfg.Market.Symbols),
		logger.Bool("kafka", cfg.Kafka.Enabled),
		logger.Bool("clickhouse", cfg.ClickHouse.Enabled),
		logger.Bool("redis", cfg.Redis.Enabled),
	)

	app, cleanup, err := di.InitializeApp(cfg, lgr)
	if err != nil {
		lgr.Error("app initialization failed", logger.Error(err))
		os.Exit(1)
	}

	runErr := app.Run()
	cleanup()
	if runErr != nil {
		lgr.Error("app error", logger.Error(runErr))
		os.Exit(1)
	}
}
