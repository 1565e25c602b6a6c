package di

import (
	"context"
	"fmt"
	"strings"
	"time"

	"FollowFeed/internal/domain/models"
	"FollowFeed/internal/domain/repository"
	"FollowFeed/internal/handler/api"
	"FollowFeed/internal/handler/ws"
	mid "FollowFeed/internal/middleware"
	internalrepo "FollowFeed/internal/repository"
	"FollowFeed/internal/service/notify"
	"FollowFeed/internal/service/paper"
	"FollowFeed/internal/service/ratelimit"
	"FollowFeed/internal/service/refresh"
	"FollowFeed/internal/usecase"
	"FollowFeed/pkg/cache"
	pkgch "FollowFeed/pkg/clickhouse"
	"FollowFeed/pkg/config"
	xhttp "FollowFeed/pkg/http"
	pkgkafka "FollowFeed/pkg/kafka"
	"FollowFeed/pkg/logger"
	"FollowFeed/pkg/metrics"
	"FollowFeed/pkg/queue"
	"FollowFeed/pkg/server"
)

const (
	jobsKeyPrefix   = "followfeed:queue"
	digestKeyPrefix = "followfeed:queue:logs"
)

// NotificationQueue consumes price alert jobs. Queue is nil without Redis.
type NotificationQueue struct {
	Queue *queue.RedisQueue
}

// DigestSink is the producer-only queue the error log digest is shipped to.
type DigestSink struct {
	Queue *queue.RedisQueue
}

func ProvideMetrics() *metrics.Recorder {
	return metrics.New()
}

func ProvideEventBus(m *metrics.Recorder) *usecase.EventBus {
	return usecase.NewEventBus(m)
}

// ProvideRedis returns a nil client when redis is disabled.
func ProvideRedis(cfg *config.Config) (*cache.RedisCache, func(), error) {
	if !cfg.Redis.Enabled {
		return nil, func() {}, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	return rc, func() { _ = rc.Close() }, nil
}

// ProvideCache falls back to an in-process cache so the refresh lock still works without Redis.
func ProvideCache(rc *cache.RedisCache) cache.Service {
	if rc == nil {
		return cache.NewMemoryCache()
	}
	return rc
}

// ProvideClickHouse opens the client and creates the schema. Nil when disabled.
func ProvideClickHouse(cfg *config.Config) (*pkgch.Client, func(), error) {
	if !cfg.ClickHouse.Enabled {
		return nil, func() {}, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, pkgch.Schema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

func ProvidePriceSource(cfg *config.Config, rc *cache.RedisCache, ch *pkgch.Client) (repository.PriceSource, error) {
	switch cfg.Market.Source {
	case "redis":
		if rc == nil {
			return nil, fmt.Errorf("price source: redis is disabled")
		}
		return internalrepo.NewCachePriceSource(rc), nil
	case "clickhouse":
		if ch == nil {
			return nil, fmt.Errorf("price source: clickhouse is disabled")
		}
		return internalrepo.NewClickHousePriceSource(ch.DB(), cfg.ClickHouse.Database), nil
	default:
		return nil, fmt.Errorf("price source: unknown %q", cfg.Market.Source)
	}
}

func ProvideRefreshTrigger(cfg *config.Config, c cache.Service) repository.RefreshTrigger {
	if cfg.Market.RefreshURL == "" {
		return refresh.Noop{}
	}
	return refresh.NewHTTPTrigger(cfg.Market.RefreshURL, cfg.Market.RefreshTimeout,
		refresh.WithLock(c, cfg.Market.RefreshLockTTL),
	)
}

func ProvideInbox(cfg *config.Config) *notify.Inbox {
	return notify.NewInbox(cfg.Notifications.InboxSize)
}

func ProvideDeliverer(inbox *notify.Inbox, bus *usecase.EventBus) *notify.Deliverer {
	return notify.NewDeliverer(inbox, bus)
}

// ProvideNotificationQueue registers the delivery job on a consuming queue.
func ProvideNotificationQueue(cfg *config.Config, lgr *logger.Logger, rc *cache.RedisCache, d *notify.Deliverer) NotificationQueue {
	if rc == nil {
		return NotificationQueue{}
	}
	q := queue.NewRedisQueue(lgr.With("notify-queue"), &queue.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		RetryLimit: cfg.Notifications.RetryLimit,
		RetryDelay: cfg.Notifications.RetryDelay,
	}, rc.Client(), queue.ModeProducerConsumer, queue.WithKeyPrefix(jobsKeyPrefix))
	q.RegisterJob(notify.NewDeliveryJob(d))
	return NotificationQueue{Queue: q}
}

// ProvideNotifier goes through the queue when there is one and delivers inline otherwise.
func ProvideNotifier(lgr *logger.Logger, nq NotificationQueue, d *notify.Deliverer) repository.Notifier {
	if nq.Queue != nil {
		return notify.NewQueueNotifier(nq.Queue)
	}
	return notify.NewLogNotifier(lgr.With("notify"), d)
}

// ProvideBook opens the configured paper accounts. The first becomes current.
func ProvideBook(cfg *config.Config, lgr *logger.Logger) (*paper.Book, error) {
	book := paper.NewBook(
		paper.WithHistorySize(cfg.Paper.HistorySize),
		paper.WithLogger(lgr.With("paper")),
	)
	for _, name := range cfg.Paper.Accounts {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, err := book.Open(strings.ToLower(name), name, cfg.Paper.InitialBalance); err != nil {
			return nil, fmt.Errorf("paper account %q: %w", name, err)
		}
	}
	return book, nil
}

func ProvideFollowEngine(cfg *config.Config, lgr *logger.Logger, book *paper.Book, m *metrics.Recorder, bus *usecase.EventBus) *usecase.FollowEngine {
	return usecase.NewFollowEngine(book, book, m,
		usecase.WithSettings(models.FollowSettings{
			MinConfidence:   cfg.Follow.MinConfidence,
			MaxPositionSize: cfg.Follow.MaxPositionSize,
			AutoExecute:     cfg.Follow.AutoExecute,
		}),
		usecase.WithEventSink(bus),
		usecase.WithEngineLogger(lgr.With("follow")),
		usecase.WithExecTimeout(cfg.Follow.ExecTimeout),
		usecase.WithGeneratorOptions(usecase.WithInterval(cfg.Follow.SignalInterval)),
	)
}

func ProvideMarketFeed(
	cfg *config.Config,
	lgr *logger.Logger,
	source repository.PriceSource,
	trigger repository.RefreshTrigger,
	notifier repository.Notifier,
	m *metrics.Recorder,
	bus *usecase.EventBus,
) *usecase.MarketFeed {
	return usecase.NewMarketFeed(source, m,
		usecase.WithPollInterval(cfg.Market.PollInterval),
		usecase.WithRefreshEvery(cfg.Market.RefreshEvery),
		usecase.WithFetchTimeout(cfg.Market.FetchTimeout),
		usecase.WithPollOnStart(cfg.Market.PollOnStart),
		usecase.WithRefreshTrigger(trigger),
		usecase.WithNotifier(notifier),
		usecase.WithFeedSink(bus),
		usecase.WithFeedLogger(lgr.With("market")),
	)
}

// ProvideEventStore returns a nil store when clickhouse is disabled.
func ProvideEventStore(cfg *config.Config, ch *pkgch.Client) repository.EventStore {
	if ch == nil {
		return nil
	}
	return internalrepo.NewClickHouseEventStore(ch.DB(), cfg.ClickHouse.Database)
}

// ProvideKafkaProducer returns a nil producer when kafka is disabled. The
// publisher built on top of it owns closing.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.Linger),
		pkgkafka.WithWriteTimeout(cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

func ProvideEventPublisher(cfg *config.Config, producer *pkgkafka.Producer) repository.EventPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaEventPublisher(producer, cfg.Kafka.Topic)
}

func ProvideEventPipeline(cfg *config.Config, pub repository.EventPublisher, m *metrics.Recorder) *mid.EventPipeline {
	if pub == nil {
		return nil
	}
	return mid.NewEventPipeline(pub, m,
		mid.WithMaxRPS(cfg.Kafka.Pipeline.MaxRPS),
		mid.WithBufferSize(cfg.Kafka.Pipeline.BufferSize),
	)
}

// ProvideKafkaConsumer builds the events to ClickHouse sink. It needs both kafka and a store.
func ProvideKafkaConsumer(cfg *config.Config, lgr *logger.Logger, store repository.EventStore, m *metrics.Recorder) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || store == nil {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(lgr.With("event-sink"),
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.RegisterHandler(usecase.NewFollowEventsHandler(cfg.Kafka.Topic, store, m))
	consumer.SetHook(pkgkafka.NewHookChain(usecase.NewSinkHook(lgr.With("event-sink"), m)))
	return consumer, nil
}

// ProvideDigestSink is built before the collector is attached, so its own
// errors never loop back into the digest.
func ProvideDigestSink(cfg *config.Config, lgr *logger.Logger, rc *cache.RedisCache) DigestSink {
	if !cfg.LogDigest.Enabled || rc == nil {
		return DigestSink{}
	}
	return DigestSink{Queue: queue.NewRedisPublisher(lgr.With("log-digest"), rc.Client(), queue.WithKeyPrefix(digestKeyPrefix))}
}

func ProvideLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Follow.ManualRPS, cfg.Follow.ManualBurst)
}

func ProvideFeedHandler(lgr *logger.Logger, bus *usecase.EventBus) *ws.FeedHandler {
	return ws.NewFeedHandler(lgr.With("ws"), bus)
}

func ProvideHTTPServer(
	cfg *config.Config,
	lgr *logger.Logger,
	engine *usecase.FollowEngine,
	feed *usecase.MarketFeed,
	book *paper.Book,
	inbox *notify.Inbox,
	limiter *ratelimit.Limiter,
	store repository.EventStore,
	live *ws.FeedHandler,
) *xhttp.Server {
	handlers := []xhttp.Handler{
		api.NewFollowHandler(lgr.With("api"), engine, limiter, store),
		api.NewMarketHandler(lgr.With("api"), feed, inbox),
		api.NewAccountHandler(lgr.With("api"), book),
		live,
	}
	return xhttp.NewServer(lgr.With("http"), handlers,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithSlowThreshold(cfg.Server.SlowThreshold),
	)
}

func ProvideApp(
	cfg *config.Config,
	lgr *logger.Logger,
	bus *usecase.EventBus,
	engine *usecase.FollowEngine,
	feed *usecase.MarketFeed,
	httpServer *xhttp.Server,
	live *ws.FeedHandler,
	pipeline *mid.EventPipeline,
	pub repository.EventPublisher,
	consumer *pkgkafka.Consumer,
	jobs NotificationQueue,
	digest DigestSink,
) *server.App {
	return server.New(cfg, lgr, server.Components{
		Bus:        bus,
		Engine:     engine,
		Feed:       feed,
		HTTP:       httpServer,
		LiveFeed:   live,
		Pipeline:   pipeline,
		Publisher:  pub,
		Consumer:   consumer,
		Jobs:       jobs.Queue,
		DigestSink: digest.Queue,
	}, nil)
}
