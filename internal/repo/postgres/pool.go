package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/coursehub/internal/observability"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"
)

// Pool is the subset of *pgxpool.Pool the repos use. pgxmock's pool
// satisfies it too.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// base is embedded by every repo for metrics and error wrapping.
type base struct {
	pool Pool
	prom *observability.Prom
}

func (b base) observe(op string, fn func() error) error {
	return b.prom.ObserveDB(op, fn)
}

// wrap decorates a driver error with the logical op. Domain sentinels are
// returned before this is reached.
func wrap(op string, err error) error {
	return oops.In("postgres").Code("DB_ERROR").With("op", op).Wrap(err)
}

func pgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

func isUniqueViolation(err error) bool {
	pgErr, ok := pgError(err)
	return ok && pgErr.Code == pgerrcode.UniqueViolation
}

func isFKViolation(err error) (constraint string, ok bool) {
	pgErr, isPg := pgError(err)
	if !isPg || pgErr.Code != pgerrcode.ForeignKeyViolation {
		return "", false
	}
	return pgErr.ConstraintName, true
}
