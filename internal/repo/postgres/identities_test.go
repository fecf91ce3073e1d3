package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/geocoder89/coursehub/internal/domain/identity"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var identityCols = []string{"id", "username", "email", "role", "created_at"}

func TestIdentitiesRepo_Create(t *testing.T) {
	at := time.Now().UTC()
	in := identity.NewIdentity{Username: "ada", Email: "ada@example.com", PasswordHash: "$2a$10$x", Role: identity.RoleStudent}

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantErr   error
	}{
		{
			name: "created",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO identities`).
					WithArgs("ada", "ada@example.com", "$2a$10$x", "STUDENT").
					WillReturnRows(pgxmock.NewRows(identityCols).AddRow(int64(1), "ada", "ada@example.com", "STUDENT", at))
			},
		},
		{
			name: "duplicate email",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO identities`).
					WithArgs("ada", "ada@example.com", "$2a$10$x", "STUDENT").
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "identities_email_uniq"})
			},
			wantErr: identity.ErrEmailTaken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.setupMock(mock)

			got, err := NewIdentitiesRepo(mock, nil).Create(context.Background(), in)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, int64(1), got.ID)
				assert.Equal(t, identity.RoleStudent, got.Role)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestIdentitiesRepo_GetCredentialByEmail(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cols := append(append([]string{}, identityCols...), "password_hash")
	mock.ExpectQuery(`SELECT .*password_hash FROM identities WHERE email`).
		WithArgs("ada@example.com").
		WillReturnRows(pgxmock.NewRows(cols).AddRow(int64(1), "ada", "ada@example.com", "ADMIN", time.Now(), "$2a$10$hash"))
	mock.ExpectQuery(`FROM identities WHERE email`).
		WithArgs("nobody@example.com").
		WillReturnRows(pgxmock.NewRows(cols))

	repo := NewIdentitiesRepo(mock, nil)

	cred, err := repo.GetCredentialByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "$2a$10$hash", cred.PasswordHash)
	assert.Equal(t, identity.RoleAdmin, cred.Role)

	_, err = repo.GetCredentialByEmail(context.Background(), "nobody@example.com")
	require.ErrorIs(t, err, identity.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentitiesRepo_Update(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	name := "grace"
	role := identity.RoleInstructor
	mock.ExpectQuery(`UPDATE identities SET username = \$1, role = \$2 WHERE id = \$3`).
		WithArgs("grace", "INSTRUCTOR", int64(4)).
		WillReturnRows(pgxmock.NewRows(identityCols).AddRow(int64(4), "grace", "g@example.com", "INSTRUCTOR", time.Now()))
	mock.ExpectQuery(`UPDATE identities SET username = \$1 WHERE id = \$2`).
		WithArgs("grace", int64(5)).
		WillReturnRows(pgxmock.NewRows(identityCols))

	repo := NewIdentitiesRepo(mock, nil)

	got, err := repo.Update(context.Background(), 4, identity.Update{Username: &name, Role: &role})
	require.NoError(t, err)
	assert.Equal(t, "grace", got.Username)
	assert.Equal(t, identity.RoleInstructor, got.Role)

	_, err = repo.Update(context.Background(), 5, identity.Update{Username: &name})
	require.ErrorIs(t, err, identity.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentitiesRepo_ListByIDs(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`FROM identities WHERE id = ANY`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(identityCols).
			AddRow(int64(1), "ada", "ada@example.com", "STUDENT", time.Now()).
			AddRow(int64(2), "bob", "bob@example.com", "INSTRUCTOR", time.Now()))

	got, err := NewIdentitiesRepo(mock, nil).ListByIDs(context.Background(), []int64{1, 2, 3})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "bob", got[2].Username)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentitiesRepo_CountAdmins(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM identities WHERE role = \$1`).
		WithArgs("ADMIN").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))

	n, err := NewIdentitiesRepo(mock, nil).CountAdmins(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
