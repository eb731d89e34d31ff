// Package apperr defines the error kinds shared by the roadmap and workspace
// packages. Each kind matches its sentinel with errors.Is.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound      = errors.New("not found")
	ErrLastContainer = errors.New("last container")
	ErrCorruptData   = errors.New("corrupt data")
	ErrIO            = errors.New("io failure")
	ErrValidation    = errors.New("validation failed")
)

// NotFoundError indicates an item or container id that is absent.
// It is always recoverable by the caller.
type NotFoundError struct {
	Kind string // "milestone", "folder", "task", "project", ...
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// Is allows errors.Is() to match against ErrNotFound
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NotFound builds a NotFoundError for any printable id.
func NotFound(kind string, id any) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: fmt.Sprint(id)}
}

// LastContainerError is returned when deleting the only remaining container
// while items still exist.
type LastContainerError struct {
	Kind string
}

func (e *LastContainerError) Error() string {
	return fmt.Sprintf("cannot delete the last %s", e.Kind)
}

func (e *LastContainerError) Is(target error) bool { return target == ErrLastContainer }

// CorruptDataError means a data file exists but matches no known shape.
type CorruptDataError struct {
	Path        string
	Diagnostics []string
	Err         error
}

func (e *CorruptDataError) Error() string {
	msg := fmt.Sprintf("corrupt data file %s", e.Path)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if len(e.Diagnostics) > 0 {
		msg += " (" + strings.Join(e.Diagnostics, "; ") + ")"
	}
	return msg
}

func (e *CorruptDataError) Is(target error) bool { return target == ErrCorruptData }

func (e *CorruptDataError) Unwrap() error { return e.Err }

// IOError wraps a filesystem failure on read, write or copy.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Is(target error) bool { return target == ErrIO }

func (e *IOError) Unwrap() error { return e.Err }

// ValidationError indicates invalid input: a request that fails its rules or
// an import payload that is neither a current nor a legacy shape.
type ValidationError struct {
	Message  string
	Problems map[string]string // field -> problem
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Problems))
	for k := range e.Problems {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Problems[k])
	}
	return e.Message + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid builds a ValidationError without field problems.
func Invalid(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// FromRules converts the result of validation.ValidateStruct into a
// ValidationError. Nil stays nil; errors that are not rule failures pass
// through unchanged.
func FromRules(message string, err error) error {
	if err == nil {
		return nil
	}
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return err
	}
	problems := make(map[string]string, len(errs))
	for field, fe := range errs {
		if fe != nil {
			problems[field] = fe.Error()
		}
	}
	return &ValidationError{Message: message, Problems: problems}
}
