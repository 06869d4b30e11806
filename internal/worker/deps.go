package worker

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"tixel/internal/pkg/logger"
	"tixel/internal/ports"
	"tixel/internal/worker/notify"
)

type Deps struct {
	Pool            *pgxpool.Pool
	RDB             *redis.Client
	SP              ports.StorageProvider
	RendererBaseURL string
	StorageRoot     string
	QueueName       string
	CleanupLocal    bool
	Notifier        *notify.Publisher
	Log             *logger.Logger
}
