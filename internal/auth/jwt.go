package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/geocoder89/coursehub/internal/apperr"
	"github.com/geocoder89/coursehub/internal/domain/identity"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL matches the lifetime of tokens issued at register and login.
const DefaultTTL = 24 * time.Hour

var (
	ErrMalformedToken = fmt.Errorf("%w: malformed token", apperr.ErrUnauthenticated)
	ErrBadSignature   = fmt.Errorf("%w: token signature mismatch", apperr.ErrUnauthenticated)
	ErrExpired        = fmt.Errorf("%w: token expired", apperr.ErrUnauthenticated)
)

// Claims is the identity carried by a signed token.
type Claims struct {
	Subject   int64
	Email     string
	Role      identity.Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// wire format: {sub, email, role, iat, exp}
type tokenClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies tokens with a process-wide HMAC secret. It is
// built once at startup and never mutated afterwards.
type Issuer struct {
	secret     []byte
	defaultTTL time.Duration
	now        func() time.Time
}

type Option func(*Issuer)

// WithClock replaces time.Now; used by tests to move past expiry.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		i.now = now
	}
}

func NewIssuer(secret string, defaultTTL time.Duration, opts ...Option) *Issuer {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}

	i := &Issuer{
		secret:     []byte(secret),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(i)
	}

	return i
}

func (i *Issuer) DefaultTTL() time.Duration {
	return i.defaultTTL
}

// Issue signs claims with an absolute expiry of now+ttl. IssuedAt and
// ExpiresAt on the input are ignored. A non-positive ttl uses the default.
func (i *Issuer) Issue(c Claims, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = i.defaultTTL
	}

	now := i.now().UTC()

	tc := tokenClaims{
		Email: c.Email,
		Role:  string(c.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(c.Subject, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tc)
	return token.SignedString(i.secret)
}

// IssueFor is the register/login shortcut: default ttl, claims taken from
// the identity.
func (i *Issuer) IssueFor(id identity.Identity) (string, error) {
	return i.Issue(Claims{Subject: id.ID, Email: id.Email, Role: id.Role}, 0)
}

// validationTime backs the parser's clock off by 1ns: jwt/v5 rejects at
// now >= exp, while a token here stays valid up to and including exp.
func (i *Issuer) validationTime() time.Time {
	return i.now().Add(-time.Nanosecond)
}

// Verify checks structure, then signature, then expiry against the current
// clock, and returns the embedded claims.
func (i *Issuer) Verify(tokenStr string) (Claims, error) {
	var tc tokenClaims

	_, err := jwt.ParseWithClaims(tokenStr, &tc, func(t *jwt.Token) (interface{}, error) {
		// Enforce HS256; anything else is not a token we could have issued.
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return i.secret, nil
	},
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.validationTime),
	)

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, ErrBadSignature
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrExpired
		default:
			return Claims{}, ErrMalformedToken
		}
	}

	sub, err := strconv.ParseInt(tc.Subject, 10, 64)
	if err != nil {
		return Claims{}, ErrMalformedToken
	}

	role := identity.Role(tc.Role)
	if !role.IsValid() {
		return Claims{}, ErrMalformedToken
	}

	out := Claims{
		Subject: sub,
		Email:   tc.Email,
		Role:    role,
	}
	if tc.IssuedAt != nil {
		out.IssuedAt = tc.IssuedAt.Time
	}
	if tc.ExpiresAt != nil {
		out.ExpiresAt = tc.ExpiresAt.Time
	}

	return out, nil
}
