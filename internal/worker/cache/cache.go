// Package cache marks jobs that have already been processed so duplicate
// queue entries (double submits, manual re-pushes) are skipped instead of
// re-rendered.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const doneTTL = 24 * time.Hour

type JobCache struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *JobCache {
	return &JobCache{rdb: rdb}
}

func key(jobID string) string {
	return fmt.Sprintf("tixel:done:%s", jobID)
}

// MarkDone records a completed job.
func (c *JobCache) MarkDone(ctx context.Context, jobID string) error {
	return c.rdb.Set(ctx, key(jobID), "completed", doneTTL).Err()
}

// IsDone reports whether the job already completed recently.
func (c *JobCache) IsDone(ctx context.Context, jobID string) (bool, error) {
	n, err := c.rdb.Exists(ctx, key(jobID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
