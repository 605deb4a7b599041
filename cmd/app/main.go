package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/tripmates/config"
	"github.com/Domenick1991/tripmates/internal/bootstrap"
	"github.com/Domenick1991/tripmates/internal/cache"
	"github.com/Domenick1991/tripmates/internal/kafka"
	"github.com/Domenick1991/tripmates/internal/match"
	"github.com/Domenick1991/tripmates/internal/notify"
	"github.com/Domenick1991/tripmates/internal/repository"
	"github.com/Domenick1991/tripmates/internal/service/connection"
	"github.com/Domenick1991/tripmates/internal/service/plans"
	"github.com/Domenick1991/tripmates/internal/service/reviews"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		planRepo       repository.PlanRepository
		connectionRepo repository.ConnectionRepository
		reviewRepo     repository.ReviewRepository
		pool           *pgxpool.Pool
	)

	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		pool, err = pgxpool.New(ctx, cfg.Database.DSN())
		if err != nil {
			log.Fatalf("connect postgres: %v", err)
		}
		defer pool.Close()

		if cfg.Database.Migrate {
			if err := repository.Migrate(ctx, pool); err != nil {
				log.Fatalf("migrate: %v", err)
			}
		}
		planRepo = repository.NewPlanRepository(pool)
		connectionRepo = repository.NewConnectionRepository(pool)
	default:
		planRepo = repository.NewMemoryPlanRepository()
		connectionRepo = repository.NewMemoryConnectionRepository()
	}

	switch cfg.Storage.ReviewsDriver {
	case config.StorageMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
		if err != nil {
			log.Fatalf("connect mongo: %v", err)
		}
		defer func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(disconnectCtx)
		}()

		reviewRepo, err = repository.NewMongoReviewRepository(ctx, client.Database(cfg.Mongo.Database))
		if err != nil {
			log.Fatalf("mongo reviews: %v", err)
		}
	case config.StoragePostgres:
		if pool == nil {
			log.Fatalf("postgres reviews driver requires storage.driver=postgres")
		}
		reviewRepo = repository.NewReviewRepository(pool)
	default:
		reviewRepo = repository.NewMemoryReviewRepository()
	}

	var (
		matchOpts      = []match.Option{match.WithLimits(cfg.Matching.DefaultLimit, cfg.Matching.MaxLimit)}
		connectionOpts []connection.ConnectionServiceOption
		busOpts        = []notify.Option{notify.WithHandlerTimeout(cfg.Notifications.HandlerTimeout())}
		invalidator    plans.CacheInvalidator
		suppression    reviews.SuppressionStore
	)

	if cfg.Redis.Enabled() {
		redisCache := cache.NewRedisCache(cfg.Redis, cfg.Matching.PlansCacheTTL(),
			cache.WithLockTTL(cfg.Notifications.PairLockTTL()),
			cache.WithSessionTTL(cfg.Reviews.SessionTTL()),
		)
		defer redisCache.Close()

		if err := redisCache.Ping(ctx); err != nil {
			log.Printf("WARNING: redis unavailable: %v", err)
		}
		matchOpts = append(matchOpts, match.WithCache(redisCache))
		invalidator = redisCache
		suppression = redisCache
		if cfg.Notifications.DistributedPairLock {
			connectionOpts = append(connectionOpts, connection.WithPairLocker(
				connection.ChainLocker{connection.NewLockArena(), redisCache},
			))
		}
	}

	if cfg.Kafka.Enabled() {
		producer := kafka.NewProducer(cfg.Kafka.Brokers)
		defer producer.Close()

		if cfg.Kafka.ConnectionEventsTopic != "" {
			connectionOpts = append(connectionOpts, connection.WithEventProducer(producer, cfg.Kafka.ConnectionEventsTopic))
		}
		if cfg.Kafka.NotificationsTopic != "" {
			busOpts = append(busOpts, notify.WithRelay(notify.NewKafkaRelay(producer, cfg.Kafka.NotificationsTopic, cfg.Kafka.PublishRetries)))
		}
	}

	bus := notify.NewBus(busOpts...)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := bus.Close(closeCtx); err != nil {
			log.Printf("close notification bus: %v", err)
		}
	}()

	planService := plans.NewPlanService(planRepo, invalidator)

	// The worker only sees postgres, so in-memory plans advance in this process.
	if cfg.Storage.Driver == config.StorageMemory {
		sweeper, err := plans.NewStatusSweeper(planService, cfg.Worker.PlanStatusSchedule)
		if err != nil {
			log.Fatalf("plan status sweeper: %v", err)
		}
		sweeper.Sweep(ctx)
		sweeper.Start()
		defer sweeper.Stop()
	}

	svc := bootstrap.Services{
		Plans:       planService,
		Matcher:     match.NewEngine(planRepo, matchOpts...),
		Connections: connection.NewConnectionService(connectionRepo, planRepo, bus, connectionOpts...),
		Reviews:     reviews.NewReviewService(reviewRepo, planRepo, connectionRepo),
		Obligations: reviews.NewTracker(planRepo, connectionRepo, reviewRepo, suppression),
		Bus:         bus,
	}

	if err := bootstrap.Run(ctx, cfg, svc); err != nil {
		log.Printf("server error: %v", err)
	}
}
