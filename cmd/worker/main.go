package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"tixel/internal/pkg/logger"
	"tixel/internal/storage"
	"tixel/internal/worker"
	"tixel/internal/worker/notify"
	"tixel/internal/worker/util"
)

func main() {
	log := logger.New(logger.Config{
		Level:       util.Env("LOG_LEVEL", "info"),
		Format:      util.Env("LOG_FORMAT", "json"),
		ServiceName: "tixel-worker",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbURL := util.MustEnv("DATABASE_URL")
	redisAddr := util.MustEnv("REDIS_ADDR")
	rendererBaseURL := util.MustEnv("RENDERER_HTTP_BASEURL")
	storageRoot := util.Env("STORAGE_LOCAL_ROOT", "/data")
	queueName := util.Env("JOB_QUEUE_NAME", "tixel:render")
	cleanupLocal := util.BoolEnv("CLEANUP_LOCAL_OUTPUTS", true)

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.LogFatal("failed to connect to PostgreSQL", err)
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer rdb.Close()

	sp, err := storage.NewProvider(ctx)
	if err != nil {
		log.LogFatal("failed to initialize storage provider", err)
	}

	// Notifications are optional: without RABBITMQ_URL the worker runs
	// queue-and-database only.
	var notifier *notify.Publisher
	if rabbitURL := util.Env("RABBITMQ_URL", ""); rabbitURL != "" {
		notifier, err = notify.NewPublisher(rabbitURL, util.Env("NOTIFY_QUEUE_NAME", "tixel:events"), log)
		if err != nil {
			log.LogFatal("failed to connect to RabbitMQ", err)
		}
		defer notifier.Close()
	}

	log.Info("tixel worker started",
		"queue", queueName,
		"storage_provider", sp.Provider(),
		"notifications", notifier != nil,
	)

	err = worker.Run(ctx, worker.Deps{
		Pool:            pool,
		RDB:             rdb,
		SP:              sp,
		RendererBaseURL: rendererBaseURL,
		StorageRoot:     storageRoot,
		QueueName:       queueName,
		CleanupLocal:    cleanupLocal,
		Notifier:        notifier,
		Log:             log,
	})
	if err != nil && ctx.Err() == nil {
		log.LogFatal("worker stopped unexpectedly", err)
	}
	log.Info("tixel worker stopped")
}
