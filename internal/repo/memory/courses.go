package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/geocoder89/coursehub/internal/domain/course"
	"github.com/geocoder89/coursehub/internal/domain/identity"
)

type CoursesRepo struct {
	db *DB
}

func byCourseID(a, b course.Course) int { return cmp.Compare(a.ID, b.ID) }

func (r *CoursesRepo) Create(_ context.Context, in course.Course) (course.Course, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.identities[in.OwnerID]; !ok {
		return course.Course{}, identity.ErrNotFound
	}

	in.ID = r.db.nextID()
	in.CreatedAt = time.Now().UTC()
	r.db.courses[in.ID] = in

	return in, nil
}

func (r *CoursesRepo) GetByID(_ context.Context, id int64) (course.Course, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	c, ok := r.db.courses[id]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	return c, nil
}

func (r *CoursesRepo) List(_ context.Context) ([]course.Course, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]course.Course, 0, len(r.db.courses))
	for _, c := range r.db.courses {
		out = append(out, c)
	}
	slices.SortFunc(out, byCourseID)
	return out, nil
}

func (r *CoursesRepo) ListByStudent(_ context.Context, studentID int64) ([]course.Course, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]course.Course, 0)
	for k := range r.db.enrollments {
		if k.studentID != studentID {
			continue
		}
		if c, ok := r.db.courses[k.courseID]; ok {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, byCourseID)
	return out, nil
}

func (r *CoursesRepo) Update(_ context.Context, id int64, req course.UpdateCourseRequest) (course.Course, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	c, ok := r.db.courses[id]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}

	if req.Title != nil && *req.Title != "" {
		c.Title = *req.Title
	}
	if req.Description != nil && *req.Description != "" {
		c.Description = *req.Description
	}

	r.db.courses[id] = c
	return c, nil
}

func (r *CoursesRepo) Delete(_ context.Context, id int64) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.courses[id]; !ok {
		return 0, nil
	}
	r.db.dropCourse(id)
	return 1, nil
}
