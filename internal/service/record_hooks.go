package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/nexalink-api/internal/models"
)

// RecordHook runs after raw records of a course were committed.
type RecordHook interface {
	AfterWrite(ctx context.Context, change models.RecordChange) error
}

// RecordHookFunc adapts a function to RecordHook.
type RecordHookFunc func(ctx context.Context, change models.RecordChange) error

// AfterWrite implements RecordHook.
func (f RecordHookFunc) AfterWrite(ctx context.Context, change models.RecordChange) error {
	return f(ctx, change)
}

// RecordHooks runs every hook in order and collects per-student recompute failures.
type RecordHooks struct {
	hooks  []RecordHook
	logger *zap.Logger
}

// NewRecordHooks constructs the dispatcher. Nil hooks are skipped.
func NewRecordHooks(logger *zap.Logger, hooks ...RecordHook) *RecordHooks {
	if logger == nil {
		logger = zap.NewNop()
	}
	kept := make([]RecordHook, 0, len(hooks))
	for _, h := range hooks {
		if h != nil {
			kept = append(kept, h)
		}
	}
	return &RecordHooks{hooks: kept, logger: logger}
}

// Fire runs the hooks. Every hook runs even when an earlier one failed.
func (h *RecordHooks) Fire(ctx context.Context, change models.RecordChange) []models.BulkItemError {
	if h == nil {
		return []models.BulkItemError{}
	}
	failures := make([]models.BulkItemError, 0)
	for _, hook := range h.hooks {
		err := hook.AfterWrite(ctx, change)
		if err == nil {
			continue
		}
		var recompute *RecomputeError
		if errors.As(err, &recompute) {
			failures = append(failures, recompute.Failures...)
			continue
		}
		h.logger.Error("record hook failed",
			zap.String("kind", string(change.Kind)),
			zap.String("course_id", change.CourseID),
			zap.Error(err),
		)
		for _, studentID := range change.StudentIDs {
			failures = append(failures, models.BulkItemError{StudentID: studentID, Error: "derived metrics could not be refreshed"})
		}
	}
	return failures
}

// CacheInvalidationHook drops cached analytics and dashboards after a write.
func CacheInvalidationHook(cache *CacheService) RecordHook {
	return RecordHookFunc(func(ctx context.Context, _ models.RecordChange) error {
		// Invalidation failures only delay freshness until the TTL expires.
		_ = cache.Invalidate(ctx, analyticsCachePattern, dashboardCachePattern)
		return nil
	})
}
