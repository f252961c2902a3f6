// Package apperr defines the error kinds surfaced by the service layer and
// the helpers that classify store errors into them.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindAuthorization
	KindAuthentication
	KindConflict
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindAuthorization:
		return "forbidden"
	case KindAuthentication:
		return "unauthenticated"
	case KindConflict:
		return "conflict"
	case KindTransient:
		return "unavailable"
	default:
		return "internal"
	}
}

// Error carries a kind, a caller-facing message and the wrapped cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return e.Msg + ": " + e.Err.Error()
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so the sentinels below work with
// errors.Is regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrValidation     = &Error{Kind: KindValidation}
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrAuthorization  = &Error{Kind: KindAuthorization}
	ErrAuthentication = &Error{Kind: KindAuthentication}
	ErrConflict       = &Error{Kind: KindConflict}
	ErrTransient      = &Error{Kind: KindTransient}
)

func newf(k Kind, format string, args ...any) error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) error { return newf(KindValidation, format, args...) }
func NotFound(format string, args ...any) error   { return newf(KindNotFound, format, args...) }
func Forbidden(format string, args ...any) error  { return newf(KindAuthorization, format, args...) }
func Unauthenticated(format string, args ...any) error {
	return newf(KindAuthentication, format, args...)
}
func Conflict(format string, args ...any) error { return newf(KindConflict, format, args...) }

// KindOf reports the kind of err, KindInternal for anything unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Postgres SQLSTATE codes treated as transient aborts.
var transientPgCodes = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"55P03": true, // lock_not_available
	"57014": true, // query_canceled
	"08006": true, // connection_failure
}

// FromStore classifies an error returned by gorm. Errors already carrying a
// kind pass through unchanged; nil stays nil.
func FromStore(err error, what string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return &Error{Kind: KindNotFound, Msg: what + " not found"}
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return &Error{Kind: KindConflict, Msg: what + " already exists", Err: err}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return &Error{Kind: KindTransient, Msg: "store timeout", Err: err}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" {
			return &Error{Kind: KindConflict, Msg: what + " already exists", Err: err}
		}
		if transientPgCodes[pgErr.Code] {
			return &Error{Kind: KindTransient, Msg: "store aborted", Err: err}
		}
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return &Error{Kind: KindConflict, Msg: what + " already exists", Err: err}
	case strings.Contains(msg, "SQLITE_BUSY"), strings.Contains(msg, "database is locked"):
		return &Error{Kind: KindTransient, Msg: "store busy", Err: err}
	}
	return &Error{Kind: KindInternal, Msg: what, Err: err}
}
