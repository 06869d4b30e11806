package worker

import (
	"context"
	"time"

	"tixel/internal/pkg/logger"
	"tixel/internal/worker/cache"
	"tixel/internal/worker/processor"
	"tixel/internal/worker/queue"
	"tixel/internal/worker/renderer"
)

func Run(ctx context.Context, d Deps) error {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	log = log.WithComponent("worker")

	q := queue.NewRedisQueue(d.RDB, d.QueueName)
	rc := renderer.NewHTTPClient(d.RendererBaseURL)

	// A typed nil *Publisher must not become a non-nil interface.
	var notifier processor.Notifier
	if d.Notifier != nil {
		notifier = d.Notifier
	}

	p := processor.New(processor.Deps{
		Pool:         d.Pool,
		Renderer:     rc,
		SP:           d.SP,
		StorageRoot:  d.StorageRoot,
		CleanupLocal: d.CleanupLocal,
		Cache:        cache.New(d.RDB),
		Notifier:     notifier,
		Log:          log,
	})

	for {
		select {
		case <-ctx.Done():
			log.Info("worker context canceled, stopping")
			return ctx.Err()
		default:
		}

		// Separate timeout for the blocking pop so shutdown is bounded.
		popCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		jobID, err := q.Pop(popCtx)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				log.Info("worker stopping due to context cancellation")
				return ctx.Err()
			}

			log.Warn("queue pop error, retrying",
				"error", err.Error(),
			)
			time.Sleep(1 * time.Second)
			continue
		}

		if jobID == "" {
			continue
		}

		jobCtx := logger.ContextWithJobID(ctx, jobID)
		jobLog := log.WithJobID(jobID)

		jobLog.Info("processing job")
		startTime := time.Now()

		if err := p.ProcessJob(jobCtx, jobID); err != nil {
			jobLog.Error("job failed",
				"error", err.Error(),
				"duration_ms", time.Since(startTime).Milliseconds(),
			)
		} else {
			jobLog.Info("job completed",
				"duration_ms", time.Since(startTime).Milliseconds(),
			)
		}
	}
}
