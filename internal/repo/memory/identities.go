package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/geocoder89/coursehub/internal/domain/identity"
)

type IdentitiesRepo struct {
	db *DB
}

func (r *IdentitiesRepo) emailTaken(email string, except int64) bool {
	for id, c := range r.db.identities {
		if id != except && strings.EqualFold(c.Email, email) {
			return true
		}
	}
	return false
}

func (r *IdentitiesRepo) Create(_ context.Context, in identity.NewIdentity) (identity.Identity, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if r.emailTaken(in.Email, 0) {
		return identity.Identity{}, identity.ErrEmailTaken
	}

	c := identity.Credential{
		Identity: identity.Identity{
			ID:        r.db.nextID(),
			Username:  in.Username,
			Email:     in.Email,
			Role:      in.Role,
			CreatedAt: time.Now().UTC(),
		},
		PasswordHash: in.PasswordHash,
	}
	r.db.identities[c.ID] = c

	return c.Identity, nil
}

func (r *IdentitiesRepo) GetByID(_ context.Context, id int64) (identity.Identity, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	c, ok := r.db.identities[id]
	if !ok {
		return identity.Identity{}, identity.ErrNotFound
	}
	return c.Identity, nil
}

func (r *IdentitiesRepo) GetCredentialByEmail(_ context.Context, email string) (identity.Credential, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, c := range r.db.identities {
		if strings.EqualFold(c.Email, email) {
			return c, nil
		}
	}
	return identity.Credential{}, identity.ErrNotFound
}

func (r *IdentitiesRepo) List(_ context.Context) ([]identity.Identity, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]identity.Identity, 0, len(r.db.identities))
	for _, c := range r.db.identities {
		out = append(out, c.Identity)
	}
	slices.SortFunc(out, func(a, b identity.Identity) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (r *IdentitiesRepo) ListByIDs(_ context.Context, ids []int64) (map[int64]identity.Identity, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make(map[int64]identity.Identity, len(ids))
	for _, id := range ids {
		if c, ok := r.db.identities[id]; ok {
			out[id] = c.Identity
		}
	}
	return out, nil
}

func (r *IdentitiesRepo) Update(_ context.Context, id int64, u identity.Update) (identity.Identity, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	c, ok := r.db.identities[id]
	if !ok {
		return identity.Identity{}, identity.ErrNotFound
	}

	if u.Email != nil {
		if r.emailTaken(*u.Email, id) {
			return identity.Identity{}, identity.ErrEmailTaken
		}
		c.Email = *u.Email
	}
	if u.Username != nil {
		c.Username = *u.Username
	}
	if u.PasswordHash != nil {
		c.PasswordHash = *u.PasswordHash
	}
	if u.Role != nil {
		c.Role = *u.Role
	}

	r.db.identities[id] = c
	return c.Identity, nil
}

// Delete cascades to owned courses and to the identity's enrollments.
func (r *IdentitiesRepo) Delete(_ context.Context, id int64) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.identities[id]; !ok {
		return 0, nil
	}
	delete(r.db.identities, id)

	for cid, c := range r.db.courses {
		if c.OwnerID == id {
			r.db.dropCourse(cid)
		}
	}
	for k := range r.db.enrollments {
		if k.studentID == id {
			delete(r.db.enrollments, k)
		}
	}
	return 1, nil
}

func (r *IdentitiesRepo) CountAdmins(_ context.Context) (int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	n := 0
	for _, c := range r.db.identities {
		if c.Role == identity.RoleAdmin {
			n++
		}
	}
	return n, nil
}
