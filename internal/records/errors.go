package records

import (
	"errors"
	"fmt"

	"github.com/username/leave-tracker/pkg/dateutil"
)

var (
	// Validation errors
	ErrInvalidDate = errors.New("invalid date")
	ErrEmptyPerson = errors.New("empty person name")
	ErrInvalidType = errors.New("invalid absence type")

	// Transaction errors
	ErrTxnClosed     = errors.New("transaction already closed")
	ErrBusy          = errors.New("store busy: another transaction is in flight")
	ErrCommitTimeout = errors.New("commit timed out")
)

// ValidationError is returned for bad caller input. Nothing is staged or
// written when it is returned.
type ValidationError struct {
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// CommitError is returned when the durable write of a transaction fails.
// The on-disk file and the in-memory state are both unchanged.
type CommitError struct {
	Op   string // encode, create, write, sync, close, rename
	Path string
	Err  error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *CommitError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a caller-input error
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ValidateDate checks that date is a canonical YYYY-MM-DD string
func ValidateDate(date string) error {
	if _, err := dateutil.ParseDate(date); err != nil {
		return &ValidationError{Field: "date", Value: date, Err: ErrInvalidDate}
	}
	return nil
}

// ValidatePerson checks that name is non-empty
func ValidatePerson(name string) error {
	if name == "" {
		return &ValidationError{Field: "person", Value: name, Err: ErrEmptyPerson}
	}
	return nil
}
