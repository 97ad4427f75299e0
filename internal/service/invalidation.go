package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/placetrack/compliance-api/pkg/jobs"
)

// Cache key namespaces. Mutations invalidate the matching list caches; stats
// are computed on demand and never enter the cache.
const (
	alertCacheKeyPrefix = "compliance:alerts"
	taskCacheKeyPrefix  = "compliance:tasks"
)

const cacheInvalidationJob = "cache-invalidate"

type cacheInvalidator interface {
	Invalidate(pattern string)
}

// CacheInvalidationWorker drains cache invalidation requests off the request
// path through the in-memory job queue, so a slow Redis never delays a
// mutation response.
type CacheInvalidationWorker struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewCacheInvalidationWorker wires the worker to the cache service.
func NewCacheInvalidationWorker(cache *CacheService, logger *zap.Logger) *CacheInvalidationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &CacheInvalidationWorker{logger: logger}
	w.queue = jobs.NewQueue(cacheInvalidationJob, func(ctx context.Context, job jobs.Job) error {
		pattern, ok := job.Payload.(string)
		if !ok {
			return fmt.Errorf("unexpected payload type %T", job.Payload)
		}
		return cache.Invalidate(ctx, pattern)
	}, jobs.QueueConfig{Workers: 1, Logger: logger})
	return w
}

// Start launches the queue workers.
func (w *CacheInvalidationWorker) Start(ctx context.Context) {
	w.queue.Start(ctx)
}

// Stop halts the queue workers. Pending patterns are dropped; TTL covers them.
func (w *CacheInvalidationWorker) Stop() {
	w.queue.Stop()
}

// Invalidate enqueues removal of all cached entries matching the pattern.
// Best effort: a full queue is logged, and stale entries age out via TTL.
func (w *CacheInvalidationWorker) Invalidate(pattern string) {
	err := w.queue.Enqueue(jobs.Job{
		ID:       uuid.NewString(),
		Type:     cacheInvalidationJob,
		Payload:  pattern,
		Enqueued: time.Now(),
	})
	if err != nil {
		w.logger.Warn("cache invalidation enqueue failed", zap.String("pattern", pattern), zap.Error(err))
	}
}
