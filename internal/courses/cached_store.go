package courses

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"github.com/geocoder89/coursehub/internal/cache"
	"github.com/geocoder89/coursehub/internal/domain/course"
)

// CachedStore is a cache-aside decorator over Store for single-course reads.
// Cache failures are logged and the store is used directly.
//
// Every write bumps a per-course generation before and after touching the
// store. A read only fills the cache if no write started since it began, so
// a read racing a delete cannot bring the deleted course back.
type CachedStore struct {
	Store
	cache cache.Store
	log   *slog.Logger

	mu     sync.Mutex
	writes map[int64]uint64
}

func NewCachedStore(store Store, c cache.Store, log *slog.Logger) *CachedStore {
	if log == nil {
		log = slog.Default()
	}
	return &CachedStore{Store: store, cache: c, log: log, writes: make(map[int64]uint64)}
}

func courseKey(id int64) string {
	return "course:" + strconv.FormatInt(id, 10)
}

func (s *CachedStore) GetByID(ctx context.Context, id int64) (course.Course, error) {
	var c course.Course
	found, err := s.cache.Get(ctx, courseKey(id), &c)
	if err != nil {
		s.log.WarnContext(ctx, "course.cache.get_failed", "course_id", id, "err", err)
	}
	if found && err == nil {
		return c, nil
	}

	s.mu.Lock()
	seen := s.writes[id]
	s.mu.Unlock()

	c, err = s.Store.GetByID(ctx, id)
	if err != nil {
		return course.Course{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writes[id] != seen {
		return c, nil
	}
	if err := s.cache.Set(ctx, courseKey(id), c); err != nil {
		s.log.WarnContext(ctx, "course.cache.set_failed", "course_id", id, "err", err)
	}
	return c, nil
}

func (s *CachedStore) Update(ctx context.Context, id int64, req course.UpdateCourseRequest) (course.Course, error) {
	s.invalidate(ctx, id)
	c, err := s.Store.Update(ctx, id, req)
	s.invalidate(ctx, id)
	return c, err
}

func (s *CachedStore) Delete(ctx context.Context, id int64) (int64, error) {
	s.invalidate(ctx, id)
	n, err := s.Store.Delete(ctx, id)
	s.invalidate(ctx, id)
	return n, err
}

func (s *CachedStore) invalidate(ctx context.Context, id int64) {
	s.mu.Lock()
	s.writes[id]++
	s.mu.Unlock()

	if err := s.cache.Delete(ctx, courseKey(id)); err != nil {
		s.log.WarnContext(ctx, "course.cache.invalidate_failed", "course_id", id, "err", err)
	}
}
