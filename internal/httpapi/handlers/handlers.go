package handlers

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"tixel/internal/pkg/logger"
	"tixel/internal/ports"
	"tixel/internal/repositories"
)

type Deps struct {
	Pool *pgxpool.Pool
	RDB  *redis.Client
	SP   ports.StorageProvider
	Log  *logger.Logger
}

type Handler struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	sp   ports.StorageProvider
	log  *logger.Logger
	docs *repositories.DocumentRepository
}

func New(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}

	return &Handler{
		pool: d.Pool,
		rdb:  d.RDB,
		sp:   d.SP,
		log:  log.WithComponent("httpapi"),
		docs: repositories.NewDocumentRepository(d.Pool),
	}
}
