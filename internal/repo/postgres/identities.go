package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/geocoder89/coursehub/internal/domain/identity"
	"github.com/geocoder89/coursehub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const identityColumns = `id, username, email, role, created_at`

type IdentitiesRepo struct {
	base
}

func NewIdentitiesRepo(pool Pool, prom *observability.Prom) *IdentitiesRepo {
	return &IdentitiesRepo{base{pool: pool, prom: prom}}
}

func scanIdentity(row pgx.Row, extra ...any) (identity.Identity, error) {
	var (
		i    identity.Identity
		role string
	)
	dest := append([]any{&i.ID, &i.Username, &i.Email, &role, &i.CreatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return identity.Identity{}, err
	}
	i.Role = identity.Role(role)
	return i, nil
}

func (r *IdentitiesRepo) Create(ctx context.Context, in identity.NewIdentity) (out identity.Identity, err error) {
	const op = "identities.create"

	err = r.observe(op, func() error {
		var e error
		out, e = scanIdentity(r.pool.QueryRow(ctx, `
			INSERT INTO identities (username, email, password_hash, role)
			VALUES ($1, $2, $3, $4)
			RETURNING `+identityColumns,
			in.Username, in.Email, in.PasswordHash, string(in.Role),
		))
		return e
	})

	if err != nil {
		if isUniqueViolation(err) {
			return identity.Identity{}, identity.ErrEmailTaken
		}
		return identity.Identity{}, wrap(op, err)
	}
	return out, nil
}

func (r *IdentitiesRepo) GetByID(ctx context.Context, id int64) (out identity.Identity, err error) {
	const op = "identities.get_by_id"

	err = r.observe(op, func() error {
		var e error
		out, e = scanIdentity(r.pool.QueryRow(ctx,
			`SELECT `+identityColumns+` FROM identities WHERE id = $1`, id))
		return e
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return identity.Identity{}, identity.ErrNotFound
		}
		return identity.Identity{}, wrap(op, err)
	}
	return out, nil
}

// GetCredentialByEmail is the only read that exposes the password hash.
func (r *IdentitiesRepo) GetCredentialByEmail(ctx context.Context, email string) (identity.Credential, error) {
	const op = "identities.get_credential_by_email"

	var c identity.Credential
	err := r.observe(op, func() error {
		var e error
		c.Identity, e = scanIdentity(r.pool.QueryRow(ctx,
			`SELECT `+identityColumns+`, password_hash FROM identities WHERE email = $1`, email),
			&c.PasswordHash)
		return e
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return identity.Credential{}, identity.ErrNotFound
		}
		return identity.Credential{}, wrap(op, err)
	}
	return c, nil
}

func (r *IdentitiesRepo) List(ctx context.Context) ([]identity.Identity, error) {
	return r.list(ctx, "identities.list",
		`SELECT `+identityColumns+` FROM identities ORDER BY id ASC`)
}

// ListByIDs returns the identities found among ids, keyed by id.
func (r *IdentitiesRepo) ListByIDs(ctx context.Context, ids []int64) (map[int64]identity.Identity, error) {
	out := make(map[int64]identity.Identity, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	list, err := r.list(ctx, "identities.list_by_ids",
		`SELECT `+identityColumns+` FROM identities WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}

	for _, i := range list {
		out[i.ID] = i
	}
	return out, nil
}

func (r *IdentitiesRepo) list(ctx context.Context, op, q string, args ...any) ([]identity.Identity, error) {
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

	out := make([]identity.Identity, 0)
	for rows.Next() {
		i, err := scanIdentity(rows)
		if err != nil {
			return nil, wrap(op, err)
		}
		out = append(out, i)
	}

	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return out, nil
}

func (r *IdentitiesRepo) Update(ctx context.Context, id int64, u identity.Update) (out identity.Identity, err error) {
	const op = "identities.update"

	if u.IsEmpty() {
		return r.GetByID(ctx, id)
	}

	var (
		sets []string
		args []any
	)
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if u.Username != nil {
		add("username", *u.Username)
	}
	if u.Email != nil {
		add("email", *u.Email)
	}
	if u.PasswordHash != nil {
		add("password_hash", *u.PasswordHash)
	}
	if u.Role != nil {
		add("role", string(*u.Role))
	}

	args = append(args, id)
	q := fmt.Sprintf(`UPDATE identities SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), identityColumns)

	err = r.observe(op, func() error {
		var e error
		out, e = scanIdentity(r.pool.QueryRow(ctx, q, args...))
		return e
	})

	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return identity.Identity{}, identity.ErrNotFound
		case isUniqueViolation(err):
			return identity.Identity{}, identity.ErrEmailTaken
		}
		return identity.Identity{}, wrap(op, err)
	}
	return out, nil
}

// Delete reports how many rows went away; callers decide what zero means.
func (r *IdentitiesRepo) Delete(ctx context.Context, id int64) (int64, error) {
	const op = "identities.delete"

	var tag pgconn.CommandTag
	err := r.observe(op, func() error {
		var e error
		tag, e = r.pool.Exec(ctx, `DELETE FROM identities WHERE id = $1`, id)
		return e
	})
	if err != nil {
		return 0, wrap(op, err)
	}
	return tag.RowsAffected(), nil
}

// CountAdmins lets startup warn when no admin can manage the platform.
func (r *IdentitiesRepo) CountAdmins(ctx context.Context) (n int, err error) {
	const op = "identities.count_admins"

	err = r.observe(op, func() error {
		return r.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM identities WHERE role = $1`, string(identity.RoleAdmin)).Scan(&n)
	})
	if err != nil {
		return 0, wrap(op, err)
	}
	return n, nil
}
