package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/coursehub/internal/domain/course"
	"github.com/geocoder89/coursehub/internal/domain/enrollment"
	"github.com/geocoder89/coursehub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	enrollmentColumns = `id, student_id, course_id, enrolled_at`

	constraintEnrollmentStudentFK = "enrollments_student_id_fkey"
)

type EnrollmentsRepo struct {
	base
}

func NewEnrollmentsRepo(pool Pool, prom *observability.Prom) *EnrollmentsRepo {
	return &EnrollmentsRepo{base{pool: pool, prom: prom}}
}

func scanEnrollment(row pgx.Row) (e enrollment.Enrollment, err error) {
	err = row.Scan(&e.ID, &e.StudentID, &e.CourseID, &e.EnrolledAt)
	return
}

func (r *EnrollmentsRepo) Find(ctx context.Context, studentID, courseID int64) (out enrollment.Enrollment, err error) {
	const op = "enrollments.find"

	err = r.observe(op, func() error {
		var e error
		out, e = scanEnrollment(r.pool.QueryRow(ctx,
			`SELECT `+enrollmentColumns+` FROM enrollments WHERE student_id = $1 AND course_id = $2`,
			studentID, courseID))
		return e
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return enrollment.Enrollment{}, enrollment.ErrNotFound
		}
		return enrollment.Enrollment{}, wrap(op, err)
	}
	return out, nil
}

// InsertIfAbsent relies on enrollments_student_course_uniq. A conflicting
// row makes the insert return nothing, which is reported as already enrolled.
func (r *EnrollmentsRepo) InsertIfAbsent(ctx context.Context, in enrollment.Enrollment) (out enrollment.Enrollment, err error) {
	const op = "enrollments.insert_if_absent"

	err = r.observe(op, func() error {
		var e error
		out, e = scanEnrollment(r.pool.QueryRow(ctx, `
			INSERT INTO enrollments (student_id, course_id, enrolled_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (student_id, course_id) DO NOTHING
			RETURNING `+enrollmentColumns,
			in.StudentID, in.CourseID, in.EnrolledAt,
		))
		return e
	})

	if err == nil {
		return out, nil
	}

	if errors.Is(err, pgx.ErrNoRows) || isUniqueViolation(err) {
		return enrollment.Enrollment{}, enrollment.ErrAlreadyEnrolled
	}

	if constraint, ok := isFKViolation(err); ok {
		if constraint == constraintEnrollmentStudentFK {
			return enrollment.Enrollment{}, enrollment.ErrRequesterGone
		}
		return enrollment.Enrollment{}, course.ErrNotFound
	}

	return enrollment.Enrollment{}, wrap(op, err)
}

func (r *EnrollmentsRepo) Delete(ctx context.Context, studentID, courseID int64) (int64, error) {
	const op = "enrollments.delete"

	var tag pgconn.CommandTag
	err := r.observe(op, func() error {
		var e error
		tag, e = r.pool.Exec(ctx,
			`DELETE FROM enrollments WHERE student_id = $1 AND course_id = $2`, studentID, courseID)
		return e
	})
	if err != nil {
		return 0, wrap(op, err)
	}
	return tag.RowsAffected(), nil
}

func (r *EnrollmentsRepo) ListByCourses(ctx context.Context, courseIDs []int64) ([]enrollment.Enrollment, error) {
	if len(courseIDs) == 0 {
		return []enrollment.Enrollment{}, nil
	}
	return r.list(ctx, "enrollments.list_by_courses",
		`SELECT `+enrollmentColumns+` FROM enrollments WHERE course_id = ANY($1) ORDER BY course_id ASC, id ASC`,
		courseIDs)
}

func (r *EnrollmentsRepo) ListByStudent(ctx context.Context, studentID int64) ([]enrollment.Enrollment, error) {
	return r.list(ctx, "enrollments.list_by_student",
		`SELECT `+enrollmentColumns+` FROM enrollments WHERE student_id = $1 ORDER BY course_id ASC`,
		studentID)
}

func (r *EnrollmentsRepo) list(ctx context.Context, op, q string, args ...any) ([]enrollment.Enrollment, error) {
	var rows pgx.Rows
	err := r.observe(op, func() error {
		var e error
		rows, e = r.pool.Query(ctx, q, args...)
		return e
	})
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	out := make([]enrollment.Enrollment, 0)
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, wrap(op, err)
		}
		out = append(out, e)
	}

	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return out, nil
}
