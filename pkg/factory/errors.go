package factory

import (
	"errors"
	"fmt"
)

// ErrNotAuthorized is the sentinel all authorization denials match via
// errors.Is.
var ErrNotAuthorized = errors.New("not authorized")

// NotAuthorizedError reports an authorization denial from an error-shaped
// factory surface. Message is empty for boolean denials.
type NotAuthorizedError struct {
	Message string
}

func (e *NotAuthorizedError) Error() string {
	if e.Message == "" {
		return "not authorized"
	}
	return fmt.Sprintf("not authorized: %s", e.Message)
}

// Is matches the ErrNotAuthorized sentinel.
func (e *NotAuthorizedError) Is(target error) bool {
	return target == ErrNotAuthorized
}

// ServiceNotFoundError reports a failed injected-service resolution.
type ServiceNotFoundError struct {
	Name       string
	Mismatched bool
}

func (e *ServiceNotFoundError) Error() string {
	if e.Mismatched {
		return fmt.Sprintf("service %q resolved to an unexpected type", e.Name)
	}
	return fmt.Sprintf("service %q not registered", e.Name)
}
