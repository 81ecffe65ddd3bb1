package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateKey is returned when an insert or update would violate a
	// uniqueness constraint, either on _id or on a unique index.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrIndexAlreadyExists is returned when an index is created with the
	// name of an existing index but a different signature.
	ErrIndexAlreadyExists = errors.New("index already exists with a different signature")
	// ErrIndexNotFound is returned when an unknown index name is used.
	ErrIndexNotFound = errors.New("index not found")
	// ErrTypeMismatch is returned when an expression is evaluated over
	// incompatible operands.
	ErrTypeMismatch = errors.New("type mismatch")
	// ErrInvalidSpec is returned when a filter, projection, sort, mutation,
	// index or stage specification is malformed.
	ErrInvalidSpec = errors.New("invalid specification")
	// ErrCannotModifyID is returned when a mutation would change a
	// document _id.
	ErrCannotModifyID = fmt.Errorf("%w: cannot modify _id", ErrInvalidSpec)
	// ErrNotFound is returned by FindOne when nothing matches.
	ErrNotFound = errors.New("not found")
	// ErrCursorClosed is returned when using a closed [Cursor].
	ErrCursorClosed = errors.New("cursor is closed")
	// ErrScanBeforeNext is returned when calling [Cursor.Scan] before
	// [Cursor.Next].
	ErrScanBeforeNext = errors.New("called Scan before calling Next")
	// ErrTargetNil is returned when a nil decode target is given.
	ErrTargetNil = errors.New("target interface is nil")
	// ErrNonPointer is returned when a non-pointer decode target is given.
	ErrNonPointer = errors.New("target should be a pointer")
)

// ErrDecode wraps third party decoding errors.
type ErrDecode struct {
	Source any
	Target any
}

// Error implements [error].
func (e ErrDecode) Error() string {
	return fmt.Sprintf("cannot decode %T into %T", e.Source, e.Target)
}

// ErrFieldName is returned when a document contains a field name that
// cannot be stored.
type ErrFieldName struct {
	Field  string
	Reason string
}

// Error implements [error].
func (e ErrFieldName) Error() string {
	return fmt.Sprintf("invalid field name %q: %s", e.Field, e.Reason)
}

// Unwrap allows matching with [ErrInvalidSpec].
func (e ErrFieldName) Unwrap() error { return ErrInvalidSpec }

// ErrCannotCompare is returned when two values have no defined order.
type ErrCannotCompare struct {
	A any
	B any
}

// Error implements [error].
func (e ErrCannotCompare) Error() string {
	return fmt.Sprintf("cannot compare unexpected types %T and %T", e.A, e.B)
}

// ErrCorruptSnapshot is returned by a snapshot import when the share of
// unreadable lines is above the accepted threshold.
type ErrCorruptSnapshot struct {
	CorruptionRate        float64
	CorruptItems          int
	DataLength            int
	CorruptAlertThreshold float64
}

// Error implements [error].
func (e ErrCorruptSnapshot) Error() string {
	return fmt.Sprintf(
		"%.1f%% of the snapshot lines are corrupt (%d of %d), more than the %.1f%% threshold",
		e.CorruptionRate*100, e.CorruptItems, e.DataLength, e.CorruptAlertThreshold*100,
	)
}
