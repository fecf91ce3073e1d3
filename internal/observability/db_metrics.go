package observability

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ObserveDB times fn under a logical op name. pgx.ErrNoRows is a lookup miss,
// not a failure, and is not counted as an error. A nil receiver just runs fn.
func (p *Prom) ObserveDB(op string, fn func() error) error {
	if p == nil {
		return fn()
	}

	start := time.Now()
	err := fn()

	status := "ok"
	switch {
	case err == nil:
	case errors.Is(err, pgx.ErrNoRows):
		status = "miss"
	default:
		status = "error"
		p.dbErrors.WithLabelValues(op, ClassifyDBErr(err)).Inc()
	}

	p.dbDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
	return err
}

var pgClasses = map[string]string{
	pgerrcode.UniqueViolation:      "unique_violation",
	pgerrcode.ForeignKeyViolation:  "foreign_key_violation",
	pgerrcode.CheckViolation:       "check_violation",
	pgerrcode.SerializationFailure: "serialization_failure",
	pgerrcode.DeadlockDetected:     "deadlock",
	pgerrcode.QueryCanceled:        "query_canceled",
}

// ClassifyDBErr maps err to a small, bounded set of label values.
func ClassifyDBErr(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if class, ok := pgClasses[pgErr.Code]; ok {
			return class
		}
		return "pg_" + pgErr.Code
	}

	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return "connection"
	}
	return "unknown"
}
