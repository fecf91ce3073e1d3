// Package enrollment owns the enroll/unenroll state machine and the
// role-scoped course views built on top of it.
package enrollment

import (
	"context"
	"errors"
	"log/slog"

	"github.com/geocoder89/coursehub/internal/actorctx"
	"github.com/geocoder89/coursehub/internal/domain/course"
	domain "github.com/geocoder89/coursehub/internal/domain/enrollment"
	"github.com/geocoder89/coursehub/internal/domain/identity"
)

type Identities interface {
	GetByID(ctx context.Context, id int64) (identity.Identity, error)
	ListByIDs(ctx context.Context, ids []int64) (map[int64]identity.Identity, error)
}

type Courses interface {
	GetByID(ctx context.Context, id int64) (course.Course, error)
	List(ctx context.Context) ([]course.Course, error)
	ListByStudent(ctx context.Context, studentID int64) ([]course.Course, error)
}

type Store interface {
	Find(ctx context.Context, studentID, courseID int64) (domain.Enrollment, error)
	InsertIfAbsent(ctx context.Context, e domain.Enrollment) (domain.Enrollment, error)
	Delete(ctx context.Context, studentID, courseID int64) (int64, error)
	ListByCourses(ctx context.Context, courseIDs []int64) ([]domain.Enrollment, error)
	ListByStudent(ctx context.Context, studentID int64) ([]domain.Enrollment, error)
}

// Metrics receives one observation per enroll/unenroll attempt.
type Metrics interface {
	ObserveTransition(op, result string)
}

type nopMetrics struct{}

func (nopMetrics) ObserveTransition(string, string) {}

type Option func(*Coordinator)

func WithMetrics(m Metrics) Option {
	return func(c *Coordinator) {
		if m != nil {
			c.metrics = m
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.log = l
		}
	}
}

// Coordinator holds no lock of its own. Uniqueness comes from the store's
// (student, course) constraint, so concurrent requests are safe on any
// number of replicas.
type Coordinator struct {
	identities  Identities
	courses     Courses
	enrollments Store
	metrics     Metrics
	log         *slog.Logger
}

func NewCoordinator(identities Identities, courses Courses, enrollments Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		identities:  identities,
		courses:     courses,
		enrollments: enrollments,
		metrics:     nopMetrics{},
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enroll moves (principal, course) from Absent to Present.
func (c *Coordinator) Enroll(ctx context.Context, courseID int64, p actorctx.Principal) (e domain.Enrollment, err error) {
	defer func() { c.metrics.ObserveTransition("enroll", result(err)) }()

	if err = c.preflight(ctx, courseID, p); err != nil {
		return domain.Enrollment{}, err
	}

	_, err = c.enrollments.Find(ctx, p.ID, courseID)
	switch {
	case err == nil:
		return domain.Enrollment{}, domain.ErrAlreadyEnrolled
	case !errors.Is(err, domain.ErrNotFound):
		return domain.Enrollment{}, err
	}

	// The pre-check is advisory; a concurrent enroll can still win here and
	// the store reports it as ErrAlreadyEnrolled.
	return c.enrollments.InsertIfAbsent(ctx, domain.New(p.ID, courseID))
}

// Unenroll moves (principal, course) from Present to Absent.
func (c *Coordinator) Unenroll(ctx context.Context, courseID int64, p actorctx.Principal) (err error) {
	defer func() { c.metrics.ObserveTransition("unenroll", result(err)) }()

	if err = c.preflight(ctx, courseID, p); err != nil {
		return err
	}

	if _, err = c.enrollments.Find(ctx, p.ID, courseID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotEnrolled
		}
		return err
	}

	n, err := c.enrollments.Delete(ctx, p.ID, courseID)
	if err != nil {
		return err
	}

	if n == 0 {
		c.log.ErrorContext(ctx, "enrollment.unenroll.vanished",
			"student_id", p.ID,
			"course_id", courseID,
		)
		return domain.ErrVanished
	}
	return nil
}

func (c *Coordinator) preflight(ctx context.Context, courseID int64, p actorctx.Principal) error {
	if _, err := c.courses.GetByID(ctx, courseID); err != nil {
		return err
	}

	if _, err := c.identities.GetByID(ctx, p.ID); err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return domain.ErrRequesterGone
		}
		return err
	}
	return nil
}

// ListVisible returns every course to an admin, with the full roster. Anyone
// else sees only the courses they are enrolled in, with only their own line.
func (c *Coordinator) ListVisible(ctx context.Context, p actorctx.Principal) ([]course.View, error) {
	var (
		courses []course.Course
		rows    []domain.Enrollment
		err     error
	)

	if p.IsAdmin() {
		if courses, err = c.courses.List(ctx); err != nil {
			return nil, err
		}
		ids := make([]int64, len(courses))
		for i, cs := range courses {
			ids[i] = cs.ID
		}
		if rows, err = c.enrollments.ListByCourses(ctx, ids); err != nil {
			return nil, err
		}
	} else {
		if courses, err = c.courses.ListByStudent(ctx, p.ID); err != nil {
			return nil, err
		}
		if rows, err = c.enrollments.ListByStudent(ctx, p.ID); err != nil {
			return nil, err
		}
	}

	return c.views(ctx, courses, rows)
}

// FindOne applies the same scoping as ListVisible to a single course. A
// course the caller cannot see is reported as not found.
func (c *Coordinator) FindOne(ctx context.Context, courseID int64, p actorctx.Principal) (course.View, error) {
	cs, err := c.courses.GetByID(ctx, courseID)
	if err != nil {
		return course.View{}, err
	}

	var rows []domain.Enrollment
	if p.IsAdmin() {
		if rows, err = c.enrollments.ListByCourses(ctx, []int64{courseID}); err != nil {
			return course.View{}, err
		}
	} else {
		own, err := c.enrollments.Find(ctx, p.ID, courseID)
		if errors.Is(err, domain.ErrNotFound) {
			return course.View{}, course.ErrNotFound
		}
		if err != nil {
			return course.View{}, err
		}
		rows = []domain.Enrollment{own}
	}

	views, err := c.views(ctx, []course.Course{cs}, rows)
	if err != nil {
		return course.View{}, err
	}
	return views[0], nil
}

func (c *Coordinator) views(ctx context.Context, courses []course.Course, rows []domain.Enrollment) ([]course.View, error) {
	ids := make([]int64, 0, len(courses)+len(rows))
	for _, cs := range courses {
		ids = append(ids, cs.OwnerID)
	}
	for _, r := range rows {
		ids = append(ids, r.StudentID)
	}

	people, err := c.identities.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	viewOf := func(id int64) identity.View {
		if i, ok := people[id]; ok {
			return i.View()
		}
		return identity.View{ID: id}
	}

	byCourse := make(map[int64][]course.EnrollmentView, len(courses))
	for _, r := range rows {
		byCourse[r.CourseID] = append(byCourse[r.CourseID], course.EnrollmentView{
			Enrollment: r,
			Student:    viewOf(r.StudentID),
		})
	}

	out := make([]course.View, 0, len(courses))
	for _, cs := range courses {
		roster := byCourse[cs.ID]
		if roster == nil {
			roster = []course.EnrollmentView{}
		}
		out = append(out, course.View{
			Course:      cs,
			Owner:       viewOf(cs.OwnerID),
			Enrollments: roster,
		})
	}
	return out, nil
}

func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrAlreadyEnrolled):
		return "conflict"
	case errors.Is(err, domain.ErrNotEnrolled):
		return "not_enrolled"
	case errors.Is(err, domain.ErrRequesterGone):
		return "requester_gone"
	case errors.Is(err, course.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrVanished):
		return "anomaly"
	default:
		return "error"
	}
}
