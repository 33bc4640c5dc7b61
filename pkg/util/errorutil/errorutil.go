package errorutil

import (
	"errors"
	"fmt"
)

// Error codes for session and authorization outcomes.
const (
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeRoleDenied      = "ROLE_DENIED"
	CodeNetworkFailure  = "NETWORK_FAILURE"
	CodeStaleWrite      = "STALE_WRITE"
)

// ClientError standardizes session-layer errors. None of these surface to
// the rendered page; they drive redirects and logging only.
type ClientError struct {
	Code    string
	Message string
	Err     error
}

func (e *ClientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

// NewUnauthenticated marks the expected no-valid-session outcome.
func NewUnauthenticated(message string) error {
	return &ClientError{Code: CodeUnauthenticated, Message: message}
}

// NewRoleDenied marks a valid session holding the wrong role.
func NewRoleDenied(message string) error {
	return &ClientError{Code: CodeRoleDenied, Message: message}
}

// NewNetworkFailure wraps a transport error from an identity check.
func NewNetworkFailure(err error) error {
	return &ClientError{Code: CodeNetworkFailure, Message: "identity check unreachable", Err: err}
}

// NewStaleWrite marks a verification result discarded after its caller left.
func NewStaleWrite() error {
	return &ClientError{Code: CodeStaleWrite, Message: "verification result discarded"}
}

// ToClientError converts generic errors, treating unknown transport failures
// as unauthenticated per the fail-closed rule.
func ToClientError(err error) *ClientError {
	if err == nil {
		return nil
	}
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr
	}
	return &ClientError{Code: CodeUnauthenticated, Message: "session could not be confirmed", Err: err}
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code string) bool {
	var clientErr *ClientError
	return errors.As(err, &clientErr) && clientErr.Code == code
}
