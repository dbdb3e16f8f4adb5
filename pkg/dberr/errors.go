// Package dberr defines the error kinds the storage core raises and the
// predicates callers dispatch on.
package dberr

import (
	"errors"
	"fmt"
)

// Kind classifies an error by the handling it demands.
type Kind int

const (
	// KindDB is a generic invariant violation raised by collaborators
	// (schema mismatch at insert, unknown table, bad page id).
	KindDB Kind = iota

	// KindAborted means a deadlock was detected while waiting for a lock.
	// The caller must abort the transaction.
	KindAborted

	// KindCacheFull means every resident page is dirty and eviction cannot
	// proceed. Fatal to the calling transaction.
	KindCacheFull

	// KindIO is an error propagated from the file or log layer.
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindAborted:
		return "ABORTED"
	case KindCacheFull:
		return "CACHE_FULL"
	case KindIO:
		return "IO"
	default:
		return "DB"
	}
}

// Error is a storage-core error with the operation and component it arose in.
type Error struct {
	Kind      Kind
	Operation string // e.g. "GetPage", "Acquire", "Flush"
	Component string // e.g. "PageStore", "LockManager"
	Message   string
	Cause     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Component != "" {
		msg = e.Component + ": " + msg
	}
	if e.Operation != "" {
		msg += " (op=" + e.Operation + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an error of the given kind.
func New(kind Kind, component, operation, format string, args ...any) *Error {
	return &Error{
		Kind:      kind,
		Component: component,
		Operation: operation,
		Message:   fmt.Sprintf(format, args...),
	}
}

// WrapIO wraps a file or log layer failure.
func WrapIO(component, operation string, cause error) *Error {
	if cause == nil {
		return nil
	}
	return &Error{
		Kind:      KindIO,
		Component: component,
		Operation: operation,
		Message:   "i/o failure",
		Cause:     cause,
	}
}

func is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// IsAborted reports whether err is a deadlock abort.
func IsAborted(err error) bool { return is(err, KindAborted) }

// IsCacheFull reports whether err means the cache held only dirty pages.
func IsCacheFull(err error) bool { return is(err, KindCacheFull) }

// IsIO reports whether err came from the file or log layer.
func IsIO(err error) bool { return is(err, KindIO) }
