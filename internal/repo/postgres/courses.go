package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/geocoder89/coursehub/internal/domain/course"
	"github.com/geocoder89/coursehub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const courseColumns = `id, owner_id, title, description, created_at`

type CoursesRepo struct {
	base
}

func NewCoursesRepo(pool Pool, prom *observability.Prom) *CoursesRepo {
	return &CoursesRepo{base{pool: pool, prom: prom}}
}

func scanCourse(row pgx.Row) (c course.Course, err error) {
	err = row.Scan(&c.ID, &c.OwnerID, &c.Title, &c.Description, &c.CreatedAt)
	return
}

func (r *CoursesRepo) Create(ctx context.Context, in course.Course) (out course.Course, err error) {
	const op = "courses.create"

	err = r.observe(op, func() error {
		var e error
		out, e = scanCourse(r.pool.QueryRow(ctx, `
			INSERT INTO courses (owner_id, title, description)
			VALUES ($1, $2, $3)
			RETURNING `+courseColumns,
			in.OwnerID, in.Title, in.Description,
		))
		return e
	})

	if err != nil {
		return course.Course{}, wrap(op, err)
	}
	return out, nil
}

func (r *CoursesRepo) GetByID(ctx context.Context, id int64) (out course.Course, err error) {
	const op = "courses.get_by_id"

	err = r.observe(op, func() error {
		var e error
		out, e = scanCourse(r.pool.QueryRow(ctx,
			`SELECT `+courseColumns+` FROM courses WHERE id = $1`, id))
		return e
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return course.Course{}, course.ErrNotFound
		}
		return course.Course{}, wrap(op, err)
	}
	return out, nil
}

func (r *CoursesRepo) List(ctx context.Context) ([]course.Course, error) {
	return r.list(ctx, "courses.list",
		`SELECT `+courseColumns+` FROM courses ORDER BY id ASC`)
}

// ListByStudent returns the courses a student is enrolled in.
func (r *CoursesRepo) ListByStudent(ctx context.Context, studentID int64) ([]course.Course, error) {
	return r.list(ctx, "courses.list_by_student", `
		SELECT c.id, c.owner_id, c.title, c.description, c.created_at
		FROM courses c
		JOIN enrollments e ON e.course_id = c.id
		WHERE e.student_id = $1
		ORDER BY c.id ASC`, studentID)
}

func (r *CoursesRepo) list(ctx context.Context, op, q string, args ...any) ([]course.Course, error) {
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

	out := make([]course.Course, 0)
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, wrap(op, err)
		}
		out = append(out, c)
	}

	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return out, nil
}

func (r *CoursesRepo) Update(ctx context.Context, id int64, req course.UpdateCourseRequest) (out course.Course, err error) {
	const op = "courses.update"

	var (
		sets []string
		args []any
	)
	if req.Title != nil && *req.Title != "" {
		args = append(args, *req.Title)
		sets = append(sets, fmt.Sprintf("title = $%d", len(args)))
	}
	if req.Description != nil && *req.Description != "" {
		args = append(args, *req.Description)
		sets = append(sets, fmt.Sprintf("description = $%d", len(args)))
	}
	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}

	args = append(args, id)
	q := fmt.Sprintf(`UPDATE courses SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), courseColumns)

	err = r.observe(op, func() error {
		var e error
		out, e = scanCourse(r.pool.QueryRow(ctx, q, args...))
		return e
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return course.Course{}, course.ErrNotFound
		}
		return course.Course{}, wrap(op, err)
	}
	return out, nil
}

func (r *CoursesRepo) Delete(ctx context.Context, id int64) (int64, error) {
	const op = "courses.delete"

	var tag pgconn.CommandTag
	err := r.observe(op, func() error {
		var e error
		tag, e = r.pool.Exec(ctx, `DELETE FROM courses WHERE id = $1`, id)
		return e
	})
	if err != nil {
		return 0, wrap(op, err)
	}
	return tag.RowsAffected(), nil
}
