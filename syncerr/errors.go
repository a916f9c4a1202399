// Package syncerr defines the error kinds shared by the connectors and the CalDAV client.
//
// Callers should match kinds with errors.Is and extract details with errors.As:
//
//	var se *syncerr.StatusError
//	if errors.As(err, &se) {
//		log.Printf("remote answered %d: %s", se.StatusCode, se.Body)
//	}
package syncerr

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork marks a transport failure (DNS, connect, TLS, read).
	ErrNetwork = errors.New("network error")
	// ErrInvalidStatus marks an unexpected HTTP status. See StatusError.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrParse marks a response body that does not match the expected JSON or XML shape.
	ErrParse = errors.New("parse error")
	// ErrMissingRequiredProperty marks an ICS event lacking a mandatory property. See MissingPropertyError.
	ErrMissingRequiredProperty = errors.New("missing required property")
	// ErrEmptyResultSet marks a protocol step that produced no usable element after filtering.
	ErrEmptyResultSet = errors.New("empty result set")
	// ErrEmptyResponse marks a multistatus document without any response element.
	ErrEmptyResponse = errors.New("empty response")
	// ErrMalformedPrincipalPath marks a principal href from which no user id can be derived.
	ErrMalformedPrincipalPath = errors.New("malformed principal path")
	// ErrUnsupported marks an operation a provider cannot perform.
	ErrUnsupported = errors.New("unsupported capability")
	// ErrTokenRevocationUnsupported is returned by providers without a revocation endpoint.
	ErrTokenRevocationUnsupported = fmt.Errorf("%w: token revocation", ErrUnsupported)
	// ErrPersistence marks a failure of the storage collaborator.
	ErrPersistence = errors.New("persistence error")
)

// StatusError carries the status code and body of an unexpected HTTP response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("invalid status %d", e.StatusCode)
	}
	return fmt.Sprintf("invalid status %d: %s", e.StatusCode, e.Body)
}

// Is reports whether target is ErrInvalidStatus.
func (e *StatusError) Is(target error) bool {
	return target == ErrInvalidStatus
}

// MissingPropertyError names the ICS property an event lacked.
type MissingPropertyError struct {
	Name string
}

func (e *MissingPropertyError) Error() string {
	return fmt.Sprintf("missing required property %s", e.Name)
}

// Is reports whether target is ErrMissingRequiredProperty.
func (e *MissingPropertyError) Is(target error) bool {
	return target == ErrMissingRequiredProperty
}

// Network wraps err as ErrNetwork.
func Network(err error) error {
	return fmt.Errorf("%w: %w", ErrNetwork, err)
}

// Parse wraps err as ErrParse.
func Parse(err error) error {
	return fmt.Errorf("%w: %w", ErrParse, err)
}
