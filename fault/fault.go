// Package fault defines the typed error taxonomy shared by the playback core and its front ends.
//
// Errors carry a Kind that callers inspect with errors.Is or KindOf instead of matching message text.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	Unknown Kind = iota
	// MissingDependency reports an absent external binary.
	MissingDependency
	// ResolutionFailure reports a failed or unparseable resolver invocation.
	ResolutionFailure
	// RateLimited is a ResolutionFailure caused by the remote side throttling requests.
	RateLimited
	// TransportError reports connect, write, timeout or premature-close failures on the control socket.
	TransportError
	// NoActiveSession reports a command issued with no reachable player.
	NoActiveSession
	// ValidationError reports malformed caller input.
	ValidationError
	// PlaybackError reports a failure to start the player process.
	PlaybackError
	// NotFound reports a missing stored record.
	NotFound
	// Conflict reports a record that already exists.
	Conflict
)

var kindNames = map[Kind]string{
	Unknown:           "unknown",
	MissingDependency: "missing dependency",
	ResolutionFailure: "resolution failure",
	RateLimited:       "rate limited",
	TransportError:    "transport error",
	NoActiveSession:   "no active session",
	ValidationError:   "validation error",
	PlaybackError:     "playback error",
	NotFound:          "not found",
	Conflict:          "conflict",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error implements error so a bare Kind can be used as an errors.Is target.
func (k Kind) Error() string {
	return k.String()
}

// Error is the concrete error type returned by melodeck packages.
type Error struct {
	Op     string // operation that failed, e.g. "resolver.resolve"
	Kind   Kind
	Detail string // human readable description, may be diagnostic text from a subprocess
	Err    error  // underlying cause
}

func (e *Error) Error() string {
	msg := e.Detail
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Op == "" {
		return msg
	}
	return e.Op + ": " + msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches a bare Kind target. RateLimited also matches ResolutionFailure.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	if !ok {
		return false
	}
	if e.Kind == k {
		return true
	}
	return e.Kind == RateLimited && k == ResolutionFailure
}

// New builds an error of the given kind.
func New(kind Kind, op, detail string) *Error {
	return &Error{Op: op, Kind: kind, Detail: detail}
}

// Newf builds an error of the given kind with a formatted detail.
func Newf(kind Kind, op, format string, args ...any) *Error {
	return New(kind, op, fmt.Sprintf(format, args...))
}

// Wrap attaches a kind to an underlying error. A nil err yields nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or Unknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Message returns the detail of the outermost *Error, falling back to err.Error().
// Front ends use it to present failures without operation prefixes.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Detail != "" {
		return e.Detail
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
