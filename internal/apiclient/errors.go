package apiclient

import (
	"errors"
	"fmt"
)

// Sentinel errors classifying terminal call outcomes. Every error
// returned by Call unwraps to exactly one of these.
var (
	// ErrAuthenticationFailed indicates a terminal 401: the refresh retry
	// was already spent, or no credentials were attached at all.
	ErrAuthenticationFailed = errors.New("apiclient.authentication_failed")
	// ErrProfileRequired indicates the backend reports a missing profile
	// and automatic registration could not resolve it.
	ErrProfileRequired = errors.New("apiclient.profile_required")
	// ErrServerError indicates a response with status 500 or above.
	ErrServerError = errors.New("apiclient.server_error")
	// ErrBadResponse indicates any other non-2xx response.
	ErrBadResponse = errors.New("apiclient.bad_response")
	// ErrInvalidResponseFormat indicates a 2xx response whose body could
	// not be parsed as JSON.
	ErrInvalidResponseFormat = errors.New("apiclient.invalid_response_format")
	// ErrValidation indicates a local precondition failure detected
	// before any network call.
	ErrValidation = errors.New("apiclient.validation")
)

// Construction-time sentinel errors.
var (
	ErrMissingBaseURL  = errors.New("apiclient.missing_base_url")
	ErrMissingIdentity = errors.New("apiclient.missing_identity_provider")
)

// CallError is the terminal error surfaced to callers. It keeps the full
// diagnostic context; presentation layers decide what subset the user
// sees.
type CallError struct {
	Kind               error
	StatusCode         int
	Endpoint           string
	Message            string
	RegistrationDetail string
}

// Error renders the error with its classification and diagnostics.
func (callError *CallError) Error() string {
	if callError.RegistrationDetail != "" {
		return fmt.Sprintf("%s: %s: %s (registration: %s)", callError.Kind, callError.Endpoint, callError.Message, callError.RegistrationDetail)
	}
	return fmt.Sprintf("%s: %s: %s", callError.Kind, callError.Endpoint, callError.Message)
}

// Unwrap exposes the classifying sentinel for errors.Is checks.
func (callError *CallError) Unwrap() error {
	return callError.Kind
}
