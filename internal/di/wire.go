//go:build wireinject
// +build wireinject

package di

import (
	"FollowFeed/pkg/config"
	"FollowFeed/pkg/logger"
	"FollowFeed/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config, lgr *logger.Logger) (*server.App, func(), error) {
	wire.Build(
		ProvideMetrics,
		ProvideEventBus,

		// Infrastructure clients
		ProvideRedis,
		ProvideCache,
		ProvideClickHouse,
		ProvideKafkaProducer,

		// Repositories
		ProvidePriceSource,
		ProvideEventStore,
		ProvideEventPublisher,

		// Services
		ProvideRefreshTrigger,
		ProvideInbox,
		ProvideDeliverer,
		ProvideNotificationQueue,
		ProvideNotifier,
		ProvideBook,
		ProvideLimiter,

		// Use cases
		ProvideFollowEngine,
		ProvideMarketFeed,
		ProvideEventPipeline,
		ProvideKafkaConsumer,
		ProvideDigestSink,

		// Transport
		ProvideFeedHandler,
		ProvideHTTPServer,

		ProvideApp,
	)
	return nil, nil, nil
}
