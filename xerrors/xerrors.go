// Package xerrors classifies the error kinds a table construction or a
// running cursor can surface, so callers (tests, the sqlite3 adapter,
// operators reading logs) can branch on what failed without parsing
// strings.
package xerrors

import "github.com/pkg/errors"

// Kind identifies which layer rejected an operation.
type Kind int

const (
	// Config covers malformed or contradictory table arguments:
	// unparsable column descriptions, a table that neither listens nor
	// forwards, a bad listen_port.
	Config Kind = iota
	// Transport covers socket bind/dial/send/recv failures.
	Transport
	// Parse covers a wire message that doesn't match the table's schema.
	Parse
	// Semantic covers an operation that is well-formed but invalid for
	// this table's mode, e.g. an INSERT against a read-only table.
	Semantic
)

func (k Kind) String() string {
	switch k {
	case Config:
		return "config"
	case Transport:
		return "transport"
	case Parse:
		return "parse"
	case Semantic:
		return "semantic"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with a Kind for classification.
type Error struct {
	Kind  Kind
	cause error
}

func (e *Error) Error() string { return e.Kind.String() + ": " + e.cause.Error() }

func (e *Error) Unwrap() error { return e.cause }

// New builds an Error of the given kind from a message.
func New(k Kind, msg string) error {
	return &Error{Kind: k, cause: errors.New(msg)}
}

// Wrap builds an Error of the given kind around an existing error.
func Wrap(k Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: k, cause: errors.Wrap(err, msg)}
}

// Is reports whether err (or something it wraps) is an *Error of kind k.
func Is(err error, k Kind) bool {
	var e *Error
	for err != nil {
		if ae, ok := err.(*Error); ok {
			e = ae
			break
		}
		err = errors.Unwrap(err)
	}
	return e != nil && e.Kind == k
}
