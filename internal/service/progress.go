package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ProgressFunc receives a 0-100 completion percentage.
type ProgressFunc func(percent int)

const progressTTL = 24 * time.Hour

// ProgressTracker publishes import progress to Redis so the web process can
// report on imports run by the worker.
type ProgressTracker struct {
	redis  *redis.Client
	logger *logrus.Logger
}

func NewProgressTracker(client *redis.Client, logger *logrus.Logger) *ProgressTracker {
	return &ProgressTracker{redis: client, logger: logger}
}

func progressKey(batchCode string) string {
	return fmt.Sprintf("import:progress:%s", batchCode)
}

func (p *ProgressTracker) Set(ctx context.Context, batchCode string, percent int) error {
	if p == nil || p.redis == nil {
		return nil
	}
	return p.redis.Set(ctx, progressKey(batchCode), percent, progressTTL).Err()
}

// Get returns found=false when nothing was recorded for the batch.
func (p *ProgressTracker) Get(ctx context.Context, batchCode string) (int, bool, error) {
	if p == nil || p.redis == nil {
		return 0, false, nil
	}
	val, err := p.redis.Get(ctx, progressKey(batchCode)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	percent, err := strconv.Atoi(val)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt progress value %q: %w", val, err)
	}
	return percent, true, nil
}

// Reporter adapts the tracker to a ProgressFunc. Redis failures are logged
// and otherwise ignored; progress is advisory.
func (p *ProgressTracker) Reporter(ctx context.Context, batchCode string) ProgressFunc {
	return func(percent int) {
		if err := p.Set(ctx, batchCode, percent); err != nil && p.logger != nil {
			p.logger.WithError(err).WithField("batch_code", batchCode).Warn("Failed to publish import progress")
		}
	}
}
