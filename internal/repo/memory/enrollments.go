package memory

import (
	"cmp"
	"context"
	"slices"

	"github.com/geocoder89/coursehub/internal/domain/course"
	"github.com/geocoder89/coursehub/internal/domain/enrollment"
)

type EnrollmentsRepo struct {
	db *DB
}

func (r *EnrollmentsRepo) Find(_ context.Context, studentID, courseID int64) (enrollment.Enrollment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	e, ok := r.db.enrollments[enrollmentKey{studentID, courseID}]
	if !ok {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	return e, nil
}

// InsertIfAbsent checks the keys and the uniqueness rule under the write lock,
// so of two racing inserts exactly one wins.
func (r *EnrollmentsRepo) InsertIfAbsent(_ context.Context, in enrollment.Enrollment) (enrollment.Enrollment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.identities[in.StudentID]; !ok {
		return enrollment.Enrollment{}, enrollment.ErrRequesterGone
	}
	if _, ok := r.db.courses[in.CourseID]; !ok {
		return enrollment.Enrollment{}, course.ErrNotFound
	}

	key := enrollmentKey{in.StudentID, in.CourseID}
	if _, ok := r.db.enrollments[key]; ok {
		return enrollment.Enrollment{}, enrollment.ErrAlreadyEnrolled
	}

	in.ID = r.db.nextID()
	r.db.enrollments[key] = in
	return in, nil
}

func (r *EnrollmentsRepo) Delete(_ context.Context, studentID, courseID int64) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	key := enrollmentKey{studentID, courseID}
	if _, ok := r.db.enrollments[key]; !ok {
		return 0, nil
	}
	delete(r.db.enrollments, key)
	return 1, nil
}

func (r *EnrollmentsRepo) ListByCourses(_ context.Context, courseIDs []int64) ([]enrollment.Enrollment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]enrollment.Enrollment, 0)
	for k, e := range r.db.enrollments {
		if slices.Contains(courseIDs, k.courseID) {
			out = append(out, e)
		}
	}
	sortEnrollments(out)
	return out, nil
}

func (r *EnrollmentsRepo) ListByStudent(_ context.Context, studentID int64) ([]enrollment.Enrollment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]enrollment.Enrollment, 0)
	for k, e := range r.db.enrollments {
		if k.studentID == studentID {
			out = append(out, e)
		}
	}
	sortEnrollments(out)
	return out, nil
}

func sortEnrollments(es []enrollment.Enrollment) {
	slices.SortFunc(es, func(a, b enrollment.Enrollment) int {
		if a.CourseID != b.CourseID {
			return cmp.Compare(a.CourseID, b.CourseID)
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
