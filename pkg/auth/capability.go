package auth

import (
	"errors"
	"fmt"
)

// Wildcard grants every capability
const Wildcard = "*"

// ErrForbidden is returned when a required capability is missing
var ErrForbidden = errors.New("access denied")

// Capabilities is the set of opaque permission strings granted to a session
type Capabilities []string

// Has reports whether required is granted directly or through the wildcard
func (c Capabilities) Has(required string) bool {
	if required == "" {
		return false
	}
	for _, granted := range c {
		if granted == required || granted == Wildcard {
			return true
		}
	}
	return false
}

// HasAny reports whether at least one of required is granted
func (c Capabilities) HasAny(required ...string) bool {
	for _, r := range required {
		if c.Has(r) {
			return true
		}
	}
	return false
}

// HasAll reports whether every one of required is granted
func (c Capabilities) HasAll(required ...string) bool {
	if len(required) == 0 {
		return false
	}
	for _, r := range required {
		if !c.Has(r) {
			return false
		}
	}
	return true
}

// Require returns ErrForbidden when required is not granted
func (c Capabilities) Require(required string) error {
	if c.Has(required) {
		return nil
	}
	return fmt.Errorf("capability %q: %w", required, ErrForbidden)
}
