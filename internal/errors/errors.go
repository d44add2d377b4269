// Package errors classifies the recoverable failure kinds of the watcher.
// Every kind maps to a log severity; none of them is allowed to cross a
// per-source cycle boundary.
package errors

import (
	"errors"
	"fmt"
	"log/slog"
)

// Kind is the failure taxonomy.
type Kind int

const (
	// KindUnknown covers errors produced outside this package.
	KindUnknown Kind = iota
	// KindResolution: window not found. Expected and frequent; the next
	// cycle simply retries.
	KindResolution
	// KindCapture: every capture method exhausted for a source.
	KindCapture
	// KindDecode: corrupt template file or malformed capture buffer.
	// A configuration/data problem; the template or source is skipped.
	KindDecode
	// KindDegenerate: a near-uniform captured frame.
	KindDegenerate
	// KindStore: the learning database failed to read or write.
	KindStore
	// KindConfig: an invalid configuration snapshot.
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindResolution:
		return "resolution"
	case KindCapture:
		return "capture"
	case KindDecode:
		return "decode"
	case KindDegenerate:
		return "degenerate"
	case KindStore:
		return "store"
	case KindConfig:
		return "config"
	default:
		return "unknown"
	}
}

// LogLevel maps a kind to the severity it is logged at. Resolution misses
// are routine; decode and config failures point at broken user input.
func (k Kind) LogLevel() slog.Level {
	switch k {
	case KindResolution:
		return slog.LevelDebug
	case KindCapture, KindDegenerate:
		return slog.LevelWarn
	case KindDecode, KindConfig, KindStore:
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// Error is a classified error with an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the cause to errors.Is/As.
func (e *Error) Unwrap() error { return e.Cause }

// New creates a classified error.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf creates a classified error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an existing error.
func Wrap(err error, kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg, Cause: err}
}

// KindOf extracts the kind from anywhere in an error chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether the error chain carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
