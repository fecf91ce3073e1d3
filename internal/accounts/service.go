// Package accounts covers registration, login and user administration.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/geocoder89/coursehub/internal/actorctx"
	"github.com/geocoder89/coursehub/internal/apperr"
	"github.com/geocoder89/coursehub/internal/domain/identity"
)

var (
	ErrInvalidCredentials = fmt.Errorf("%w: email or password is incorrect", apperr.ErrUnauthenticated)
	ErrAdminNotAssignable = fmt.Errorf("%w: the ADMIN role cannot be self-assigned", apperr.ErrBadRequest)
	ErrInvalidRole        = fmt.Errorf("%w: role must be STUDENT, INSTRUCTOR or ADMIN", apperr.ErrValidation)
	ErrNoChanges          = fmt.Errorf("%w: at least one field must be provided", apperr.ErrValidation)
	ErrNotSelf            = fmt.Errorf("%w: you can only manage your own account", apperr.ErrForbidden)
	ErrRoleChange         = fmt.Errorf("%w: only an admin can change roles", apperr.ErrForbidden)
	ErrUserVanished       = fmt.Errorf("%w: user vanished during delete", apperr.ErrInternal)
)

type Store interface {
	Create(ctx context.Context, in identity.NewIdentity) (identity.Identity, error)
	GetByID(ctx context.Context, id int64) (identity.Identity, error)
	GetCredentialByEmail(ctx context.Context, email string) (identity.Credential, error)
	List(ctx context.Context) ([]identity.Identity, error)
	Update(ctx context.Context, id int64, u identity.Update) (identity.Identity, error)
	Delete(ctx context.Context, id int64) (int64, error)
}

type Hasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
}

type TokenIssuer interface {
	IssueFor(id identity.Identity) (string, error)
}

type Service struct {
	store  Store
	hasher Hasher
	tokens TokenIssuer

	// decoy is verified against on an unknown email so both login
	// failures cost one full hash comparison.
	decoy func() string
}

func NewService(store Store, hasher Hasher, tokens TokenIssuer) *Service {
	return &Service{
		store:  store,
		hasher: hasher,
		tokens: tokens,
		decoy: sync.OnceValue(func() string {
			h, _ := hasher.Hash("coursehub-login-decoy")
			return h
		}),
	}
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     identity.Role
}

// Session is what register and login hand back to the client.
type Session struct {
	User  identity.Identity `json:"user"`
	Token string            `json:"token"`
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (Session, error) {
	role := in.Role
	if role == "" {
		role = identity.RoleStudent
	}
	if !role.IsValid() {
		return Session{}, ErrInvalidRole
	}
	if role == identity.RoleAdmin {
		return Session{}, ErrAdminNotAssignable
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return Session{}, err
	}

	u, err := s.store.Create(ctx, identity.NewIdentity{
		Username:     strings.TrimSpace(in.Username),
		Email:        normalizeEmail(in.Email),
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		return Session{}, err
	}

	return s.session(u)
}

// Login never says which of email or password was wrong.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	cred, err := s.store.GetCredentialByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			s.hasher.Verify(password, s.decoy())
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}

	if !s.hasher.Verify(password, cred.PasswordHash) {
		return Session{}, ErrInvalidCredentials
	}

	return s.session(cred.Identity)
}

func (s *Service) session(u identity.Identity) (Session, error) {
	token, err := s.tokens.IssueFor(u)
	if err != nil {
		return Session{}, err
	}
	return Session{User: u, Token: token}, nil
}

func (s *Service) ListUsers(ctx context.Context, p actorctx.Principal) ([]identity.Identity, error) {
	if !p.IsAdmin() {
		return nil, ErrNotSelf
	}
	return s.store.List(ctx)
}

func (s *Service) GetUser(ctx context.Context, id int64, p actorctx.Principal) (identity.Identity, error) {
	if err := selfOrAdmin(id, p); err != nil {
		return identity.Identity{}, err
	}
	return s.store.GetByID(ctx, id)
}

type UpdateInput struct {
	Username *string
	Email    *string
	Password *string
	Role     *identity.Role
}

func (s *Service) UpdateUser(ctx context.Context, id int64, in UpdateInput, p actorctx.Principal) (identity.Identity, error) {
	if err := selfOrAdmin(id, p); err != nil {
		return identity.Identity{}, err
	}

	var u identity.Update

	if in.Role != nil {
		if !p.IsAdmin() {
			return identity.Identity{}, ErrRoleChange
		}
		if !in.Role.IsValid() {
			return identity.Identity{}, ErrInvalidRole
		}
		u.Role = in.Role
	}
	if in.Username != nil && strings.TrimSpace(*in.Username) != "" {
		name := strings.TrimSpace(*in.Username)
		u.Username = &name
	}
	if in.Email != nil && *in.Email != "" {
		email := normalizeEmail(*in.Email)
		u.Email = &email
	}
	if in.Password != nil && *in.Password != "" {
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return identity.Identity{}, err
		}
		u.PasswordHash = &hash
	}

	if u.IsEmpty() {
		return identity.Identity{}, ErrNoChanges
	}

	return s.store.Update(ctx, id, u)
}

func (s *Service) DeleteUser(ctx context.Context, id int64, p actorctx.Principal) error {
	if err := selfOrAdmin(id, p); err != nil {
		return err
	}

	if _, err := s.store.GetByID(ctx, id); err != nil {
		return err
	}

	n, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserVanished
	}
	return nil
}

// SeedAdmin creates the bootstrap admin when the email is not yet taken.
func (s *Service) SeedAdmin(ctx context.Context, username, email, password string) (created bool, err error) {
	if email == "" || password == "" {
		return false, nil
	}

	_, err = s.store.GetCredentialByEmail(ctx, normalizeEmail(email))
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, identity.ErrNotFound) {
		return false, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return false, err
	}

	if username == "" {
		username = "admin"
	}

	_, err = s.store.Create(ctx, identity.NewIdentity{
		Username:     username,
		Email:        normalizeEmail(email),
		PasswordHash: hash,
		Role:         identity.RoleAdmin,
	})
	if errors.Is(err, identity.ErrEmailTaken) {
		return false, nil
	}
	return err == nil, err
}

func selfOrAdmin(id int64, p actorctx.Principal) error {
	if p.IsAdmin() || p.ID == id {
		return nil
	}
	return ErrNotSelf
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}
