package discovery

import (
	"errors"
	"fmt"
	"strings"
)

// Class categorizes a discovery or session failure by how the caller
// should react to it.
type Class int

const (
	// ClassDecode is a malformed or undecodable reply: skip it and
	// continue the round.
	ClassDecode Class = iota
	// ClassUnreachable is a device that did not answer: keep its
	// last-known fields and mark the session degraded.
	ClassUnreachable
	// ClassFatal is an unusable socket or closed handle: abort the
	// operation.
	ClassFatal
)

// String returns a human-readable name for the class.
func (c Class) String() string {
	switch c {
	case ClassDecode:
		return "decode error"
	case ClassUnreachable:
		return "device unreachable"
	case ClassFatal:
		return "fatal error"
	default:
		return fmt.Sprintf("Class(%d)", c)
	}
}

// ScanError is a classified failure from the transport or a session.
type ScanError struct {
	Class Class
	Op    string // operation that failed, e.g. "refresh", "probe"
	Addr  string // device or target address, if known
	Err   error
}

// Error implements the error interface.
func (e *ScanError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Class)
	if e.Addr != "" {
		msg += " (" + e.Addr + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for errors.Is/As inspection.
func (e *ScanError) Unwrap() error { return e.Err }

func newDecodeError(op, addr string, err error) *ScanError {
	return &ScanError{Class: ClassDecode, Op: op, Addr: addr, Err: err}
}

func newUnreachableError(op, addr string, err error) *ScanError {
	return &ScanError{Class: ClassUnreachable, Op: op, Addr: addr, Err: err}
}

func newFatalError(op, addr string, err error) *ScanError {
	return &ScanError{Class: ClassFatal, Op: op, Addr: addr, Err: err}
}

// IsUnreachable reports whether err is a device-unreachable failure.
func IsUnreachable(err error) bool {
	var se *ScanError
	return errors.As(err, &se) && se.Class == ClassUnreachable
}

// IsFatal reports whether err is fatal to the whole operation.
func IsFatal(err error) bool {
	var se *ScanError
	return errors.As(err, &se) && se.Class == ClassFatal
}

// NotFoundError means an identifier resolved to no device.
type NotFoundError struct {
	Identifier string
	Err        error
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("no device matching %q found", e.Identifier)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error, if any.
func (e *NotFoundError) Unwrap() error { return e.Err }

// Candidate is one device a resolver match could refer to.
type Candidate struct {
	Name string
	IP   string
}

// AmbiguousError means an identifier matched more than one device. The
// caller must be more specific; resolution never picks one arbitrarily.
type AmbiguousError struct {
	Identifier string
	Candidates []Candidate
}

// Error implements the error interface.
func (e *AmbiguousError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d devices match %q:", len(e.Candidates), e.Identifier)
	for _, c := range e.Candidates {
		fmt.Fprintf(&b, "\n  %s (%s)", c.Name, c.IP)
	}
	b.WriteString("\nbe more specific")
	return b.String()
}
