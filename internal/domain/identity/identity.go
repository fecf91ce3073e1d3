package identity

import (
	"fmt"
	"time"

	"github.com/geocoder89/coursehub/internal/apperr"
)

type Role string

const (
	RoleStudent    Role = "STUDENT"
	RoleInstructor Role = "INSTRUCTOR"
	RoleAdmin      Role = "ADMIN"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleStudent, RoleInstructor, RoleAdmin:
		return true
	default:
		return false
	}
}

// Identity is the outward-facing account record. It deliberately has no
// password hash field; see Credential.
type Identity struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// Credential is the privileged projection used by the login path only.
type Credential struct {
	Identity
	PasswordHash string `json:"-"`
}

// View is the trimmed identity embedded in course responses.
type View struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

func (i Identity) View() View {
	return View{ID: i.ID, Username: i.Username, Email: i.Email, Role: i.Role}
}

var (
	ErrNotFound   = fmt.Errorf("%w: identity not found", apperr.ErrNotFound)
	ErrEmailTaken = fmt.Errorf("%w: email is already in use", apperr.ErrConflict)
)

// NewIdentity is what a store needs to create an account.
type NewIdentity struct {
	Username     string
	Email        string
	PasswordHash string
	Role         Role
}

// Update holds the optional fields of a user update. Nil means unchanged.
type Update struct {
	Username     *string
	Email        *string
	PasswordHash *string
	Role         *Role
}

func (u Update) IsEmpty() bool {
	return u.Username == nil && u.Email == nil && u.PasswordHash == nil && u.Role == nil
}
