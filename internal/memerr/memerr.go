// Package memerr defines the error taxonomy shared by every storage backend
// and service in this module: a small kind enum plus a wrapped-error type
// that carries the failing operation and the underlying cause.
package memerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for logging and propagation decisions.
// Configuration, Permission, and Validation errors are returned to the
// caller as typed errors; Storage and Internal failures inside a public
// storage method are logged and turned into a sentinel return value, except
// that an Initialize failure is always returned.
type Kind string

const (
	Storage       Kind = "storage"
	Configuration Kind = "configuration"
	Validation    Kind = "validation"
	Permission    Kind = "permission"
	Internal      Kind = "internal"
)

// Error wraps a failure with its kind and the operation that produced it.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func new(kind Kind, op string, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

func StorageErr(op string, err error) error    { return new(Storage, op, err) }
func ConfigErr(op string, err error) error     { return new(Configuration, op, err) }
func ValidationErr(op string, err error) error { return new(Validation, op, err) }
func PermissionErr(op string, err error) error { return new(Permission, op, err) }
func InternalErr(op string, err error) error   { return new(Internal, op, err) }

// Configf and friends build a Kind error from a formatted message, mirroring
// fmt.Errorf for call sites that don't already have an underlying error.
func Configf(op, format string, args ...any) error {
	return new(Configuration, op, fmt.Errorf(format, args...))
}

func Validationf(op, format string, args ...any) error {
	return new(Validation, op, fmt.Errorf(format, args...))
}

// KindOf reports the Kind of err, or Internal if err was not produced by
// this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// IsKind reports whether err (or something it wraps) carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Sentinel errors for wrapping lower-level failures (the relational
// backend's wrapDBError turns sql.ErrNoRows into ErrNotFound). Public
// Storage methods do not return them to callers: a failed or empty read
// is logged and reported as a nil/false/zero result with a nil error.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)
