package services

import (
	"errors"
	"fmt"

	"github.com/nicholasglazer/admin-console/internal/backend"
)

var (
	ErrNotFound       = errors.New("resource not found")
	ErrInvalidInput   = errors.New("invalid input provided")
	ErrComposeClosed  = errors.New("compose is not open")
	ErrAlreadySending = errors.New("message is already being sent")
	ErrWorkflowClosed = errors.New("workflow is no longer running")
)

// failureKind names the backend failure class for log lines. The state
// containers never branch on it.
func failureKind(err error) string {
	if k := backend.KindOf(err); k != 0 {
		return k.String()
	}
	if errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrNotFound) {
		return "rejected"
	}
	return "unknown"
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
