package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/gympoint/academy-hub/internal/domain/shared"
	"github.com/gympoint/academy-hub/internal/domain/student"
	"github.com/gympoint/academy-hub/pkg/logger"
)

// CachedStudentRepository decorates a student.Repository with a read-through
// cache. Misses are never cached, so a student created after a failed lookup
// is found on the next request. Cache errors fall back to the inner
// repository, and concurrent misses for one student share a single load.
type CachedStudentRepository struct {
	inner student.Repository
	cache *Cache
	ttl   time.Duration
	log   *zap.Logger
	group singleflight.Group
}

// NewCachedStudentRepository creates the decorator. A non-positive ttl falls
// back to TTLStudentCache.
func NewCachedStudentRepository(inner student.Repository, cache *Cache, ttl time.Duration, log *zap.Logger) *CachedStudentRepository {
	if ttl <= 0 {
		ttl = TTLStudentCache
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedStudentRepository{inner: inner, cache: cache, ttl: ttl, log: log.Named("student_cache")}
}

// GetByID implements student.Repository.
func (r *CachedStudentRepository) GetByID(ctx context.Context, id int64) (*student.Student, error) {
	key := StudentKey(id)

	var cached student.Student
	err := r.cache.Get(ctx, key, &cached)
	switch {
	case err == nil:
		return &cached, nil
	case !errors.Is(err, ErrCacheMiss):
		r.log.Warn("student cache read failed", logger.StudentID(id), zap.Error(err))
	}

	v, err, _ := r.group.Do(strconv.FormatInt(id, 10), func() (any, error) {
		s, err := r.inner.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := r.cache.Set(ctx, key, s, r.ttl); err != nil {
			r.log.Warn("student cache write failed", logger.StudentID(id), zap.Error(err))
		}
		return s, nil
	})
	if err != nil {
		return nil, err
	}

	s := *v.(*student.Student)
	return &s, nil
}

// Exists implements student.Repository.
func (r *CachedStudentRepository) Exists(ctx context.Context, id int64) (bool, error) {
	if _, err := r.GetByID(ctx, id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Invalidate drops the cached entry for a student.
func (r *CachedStudentRepository) Invalidate(ctx context.Context, id int64) error {
	return r.cache.Delete(ctx, StudentKey(id))
}
