package model

import (
	"errors"
	"fmt"
)

// ErrParse is matched by every proxy parsing and validation error.
var ErrParse = errors.New("proxy parse error")

// ParseError reports a line in which no proxy could be recognised.
type ParseError struct {
	Line string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("no proxy recognisable in %q", e.Line)
}

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// InvalidHostError reports a host that is not an IP address and could not be
// resolved to one.
type InvalidHostError struct {
	Host string
	Err  error
}

func (e *InvalidHostError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("'%s' is an invalid IP address: %v", e.Host, e.Err)
	}
	return fmt.Sprintf("'%s' is an invalid IP address", e.Host)
}

func (e *InvalidHostError) Unwrap() error { return e.Err }

func (e *InvalidHostError) Is(target error) bool { return target == ErrParse }

// InvalidPortError reports a port outside [0, 65535].
type InvalidPortError struct {
	Port int
}

func (e *InvalidPortError) Error() string {
	if e.Port < 1 {
		return fmt.Sprintf("'%d' is too small", e.Port)
	}
	return fmt.Sprintf("'%d' is too long", e.Port)
}

func (e *InvalidPortError) Is(target error) bool { return target == ErrParse }

// InvalidCredentialsError reports credentials the canonical form cannot
// carry: a user containing ":" or either half containing a line break.
type InvalidCredentialsError struct {
	User string
}

func (e *InvalidCredentialsError) Error() string {
	return fmt.Sprintf("credentials for user %q cannot be represented", e.User)
}

func (e *InvalidCredentialsError) Is(target error) bool { return target == ErrParse }
