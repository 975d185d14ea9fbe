package backend

import (
	"errors"
	"fmt"
)

// Kind classifies a failed backend call. The state containers treat all
// kinds alike; the distinction only feeds log messages.
type Kind int

const (
	KindTransport Kind = iota + 1
	KindStatus
	KindParse
	KindUnsuccessful
)

// Sentinels matched with errors.Is against an *Error of the same kind
var (
	ErrTransport    = errors.New("backend unreachable")
	ErrStatus       = errors.New("backend returned an error status")
	ErrParse        = errors.New("backend returned an unreadable body")
	ErrUnsuccessful = errors.New("backend reported failure")
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindStatus:
		return "status"
	case KindParse:
		return "parse"
	case KindUnsuccessful:
		return "unsuccessful"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindTransport:
		return ErrTransport
	case KindStatus:
		return ErrStatus
	case KindParse:
		return ErrParse
	case KindUnsuccessful:
		return ErrUnsuccessful
	default:
		return nil
	}
}

// Error is the uniform failure shape of every proxied call
type Error struct {
	Op      string
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s failure", e.Op, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind sentinel and the underlying cause
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s := e.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// KindOf returns the kind of a backend error, 0 for foreign errors
func KindOf(err error) Kind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return 0
}
