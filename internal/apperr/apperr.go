package apperr

import (
	"errors"
	"net/http"
	"strings"
)

// Kinds. Domain packages wrap one of these so the HTTP layer can map any
// error to a status without knowing about the domain.
var (
	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrBadRequest      = errors.New("bad request")
	ErrInternal        = errors.New("internal error")
)

type kind struct {
	err    error
	status int
	code   string
}

var kinds = []kind{
	{ErrValidation, http.StatusBadRequest, "invalid_request"},
	{ErrUnauthenticated, http.StatusUnauthorized, "unauthorized"},
	{ErrForbidden, http.StatusForbidden, "forbidden"},
	{ErrNotFound, http.StatusNotFound, "not_found"},
	{ErrConflict, http.StatusConflict, "conflict"},
	{ErrBadRequest, http.StatusBadRequest, "bad_request"},
	{ErrInternal, http.StatusInternalServerError, "internal_error"},
}

// Status returns the HTTP status and error code for err. Anything that does
// not wrap a known kind is treated as internal.
func Status(err error) (int, string) {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.status, k.code
		}
	}

	return http.StatusInternalServerError, "internal_error"
}

// Is reports whether err belongs to the given kind.
func Is(err, kind error) bool {
	return errors.Is(err, kind)
}

// Message is the client-facing text of err: whatever follows the kind label,
// or the whole message when there is none.
func Message(err error) string {
	msg := err.Error()
	for _, k := range kinds {
		if !errors.Is(err, k.err) {
			continue
		}
		label := k.err.Error() + ": "
		if i := strings.Index(msg, label); i >= 0 {
			return msg[i+len(label):]
		}
		return msg
	}
	return msg
}
