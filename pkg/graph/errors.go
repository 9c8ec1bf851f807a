// Package graph defines the core entity model: opaque node/edge identifiers,
// the tagged PropertyValue union, and the Node/Edge structs that every other
// package in this module builds on.
//
// Example usage:
//
//	n := graph.NewNode([]string{"Person"}, map[string]graph.PropertyValue{
//		"name": graph.String("Alice"),
//		"age":  graph.Int(30),
//	})
//
// ELI12:
//
// A graph is just dots (nodes) connected by arrows (edges). Each dot and
// each arrow can carry a little bag of labeled facts about itself — that
// bag is a PropertyValue map.
package graph

import "fmt"

// ErrorKind distinguishes the error taxonomy this module surfaces across
// every package, matching the kinds named in the database's error handling
// design rather than ad-hoc per-package sentinels.
type ErrorKind int

const (
	KindNotFound ErrorKind = iota
	KindInvalidID
	KindInvalidOperation
	KindInvalidPropertyType
	KindStorage
	KindTransaction
	KindParser
	KindSerialization
	KindIO
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindInvalidID:
		return "InvalidId"
	case KindInvalidOperation:
		return "InvalidOperation"
	case KindInvalidPropertyType:
		return "InvalidPropertyType"
	case KindStorage:
		return "Storage"
	case KindTransaction:
		return "Transaction"
	case KindParser:
		return "Parser"
	case KindSerialization:
		return "Serialization"
	case KindIO:
		return "Io"
	default:
		return "Unknown"
	}
}

// Error is the common error type returned across storage, WAL, MVCC and
// query packages. Callers distinguish kinds with errors.As and Kind().
type Error struct {
	Kind    ErrorKind
	Message string
	Wrapped error

	// Pos is the rune offset a KindParser error was raised at. Zero for
	// every other kind.
	Pos    int
	HasPos bool
}

func (e *Error) Error() string {
	if e.HasPos {
		return fmt.Sprintf("%s at %d: %s", e.Kind, e.Pos, e.Message)
	}
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// WithPos attaches a source position to a KindParser error, returning the
// same *Error for chaining at the call site.
func (e *Error) WithPos(pos int) *Error {
	e.Pos = pos
	e.HasPos = true
	return e
}

func (e *Error) Unwrap() error { return e.Wrapped }

// NewError constructs an *Error of the given kind.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an *Error of the given kind wrapping a lower-level error.
func Wrap(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Wrapped: err}
}

// NotFound builds a KindNotFound error naming the missing entity.
func NotFound(entity string) *Error {
	return NewError(KindNotFound, entity+" not found")
}

// InvalidOperation builds a KindInvalidOperation error with a reason string.
func InvalidOperation(reason string) *Error {
	return NewError(KindInvalidOperation, reason)
}

// InvalidPropertyType builds a KindInvalidPropertyType error naming the
// expected and actual PropertyValue kinds.
func InvalidPropertyType(expected, actual string) *Error {
	return NewError(KindInvalidPropertyType, fmt.Sprintf("expected %s, got %s", expected, actual))
}
