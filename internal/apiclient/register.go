package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/tyemirov/decora/internal/identity"
)

// fallbackRegistrationName is used when the identity carries neither a
// display name nor an email.
const fallbackRegistrationName = "User"

// defaultRegistrationRole is assigned to every auto-provisioned profile.
// Role upgrades are a backend concern.
const defaultRegistrationRole = "user"

// registrationRequest is the profile-creation payload.
type registrationRequest struct {
	Name  string `json:"name"`
	Role  string `json:"role"`
	Image string `json:"image"`
}

// deriveRegistrationName picks the first present candidate among the
// display name, the email local part, and a literal fallback, then
// trims it. An all-whitespace result is a local validation failure: an
// empty name cannot be registered, so no network call is made.
func deriveRegistrationName(subject identity.Identity) (string, error) {
	candidate := subject.DisplayName
	if candidate == "" {
		if at := strings.Index(subject.Email, "@"); at > 0 {
			candidate = subject.Email[:at]
		} else {
			candidate = strings.TrimSpace(subject.Email)
		}
	}
	if candidate == "" {
		candidate = fallbackRegistrationName
	}
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return "", fmt.Errorf("apiclient.derive_name: %w", ErrValidation)
	}
	return trimmed, nil
}

// registrationOutcome classifies one registration attempt.
type registrationOutcome int

const (
	registrationSucceeded registrationOutcome = iota
	registrationLostRace
	registrationFailed
)

// registerProfile provisions the backend profile for the given identity.
// It deliberately bypasses the retry loop: registration is itself a
// recovery step and must never trigger further self-healing.
func (client *Client) registerProfile(ctx context.Context, subject identity.Identity, token string) (registrationOutcome, string, error) {
	name, nameErr := deriveRegistrationName(subject)
	if nameErr != nil {
		return registrationFailed, "", nameErr
	}

	payload := registrationRequest{
		Name:  name,
		Role:  defaultRegistrationRole,
		Image: subject.PhotoURL,
	}
	statusCode, statusText, body, requestErr := client.doRequest(ctx, http.MethodPost, client.registerEndpoint, payload, token)
	if requestErr != nil {
		return registrationFailed, "", requestErr
	}
	if statusCode >= 200 && statusCode < 300 {
		return registrationSucceeded, "", nil
	}

	message, errorCode := decodeErrorBody(statusCode, statusText, body)
	if isAlreadyRegistered(errorCode, message) {
		return registrationLostRace, message, nil
	}
	return registrationFailed, message, nil
}
