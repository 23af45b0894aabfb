package errs

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	ErrNotFound       = errors.New("object not found")
	ErrDuplicateName  = errors.New("duplicate object name")
	ErrEntropySource  = errors.New("entropy source unavailable")
	ErrStreamIO       = errors.New("stream io failure")
	ErrCleanupFailure = errors.New("chunk cleanup failed")
	ErrNotReady       = errors.New("store not ready")
)

// Error carries the failing operation and object name next to its kind.
type Error struct {
	Kind error
	Op   string
	Name string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Name != "" {
		msg += fmt.Sprintf(" (%s)", e.Name)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is reports whether target is the kind of this error.
func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NotFound reports a name that does not resolve to a record.
func NotFound(op, name string) error {
	return &Error{Kind: ErrNotFound, Op: op, Name: name}
}

// DuplicateName reports a name collision at commit.
func DuplicateName(op, name string) error {
	return &Error{Kind: ErrDuplicateName, Op: op, Name: name}
}

// EntropySource wraps a failing random source.
func EntropySource(op string, err error) error {
	return &Error{Kind: ErrEntropySource, Op: op, Err: err}
}

// StreamIO wraps read/write failures against the input stream or backing store.
// Errors that are already classified are returned unchanged.
func StreamIO(op, name string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: ErrStreamIO, Op: op, Name: name, Err: err}
}

// Cleanup wraps a failed best-effort chunk removal.
func Cleanup(op, name string, err error) error {
	return &Error{Kind: ErrCleanupFailure, Op: op, Name: name, Err: err}
}

// NotReady reports an operation issued before the store was opened.
func NotReady(op string) error {
	return &Error{Kind: ErrNotReady, Op: op}
}

// IsNotFound is shorthand for errors.Is(err, ErrNotFound).
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
