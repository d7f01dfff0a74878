package apiclient

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Structured error codes the backend emits alongside human messages.
// The code is the primary signal; message substrings remain as a
// fallback for older backend builds that do not send codes yet.
const (
	errorCodeProfileNotFound   = "PROFILE_NOT_FOUND"
	errorCodeAlreadyRegistered = "ALREADY_REGISTERED"
)

var profileMissingMarkers = []string{
	"user not found",
	"profile registration",
	"complete your registration",
}

var alreadyRegisteredMarkers = []string{
	"already registered",
	"already exists",
}

// errorEnvelope mirrors the backend's error payload. Both `message` and
// `error` field names occur in the wild.
type errorEnvelope struct {
	Message   string `json:"message"`
	ErrorText string `json:"error"`
	ErrorCode string `json:"errorCode"`
}

// decodeErrorBody extracts a human-readable message and the structured
// error code from a non-2xx body. The body may be a JSON envelope, plain
// text, or empty; all three must be handled.
func decodeErrorBody(statusCode int, statusText string, body []byte) (message string, errorCode string) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed != "" {
		var envelope errorEnvelope
		if unmarshalErr := json.Unmarshal([]byte(trimmed), &envelope); unmarshalErr == nil {
			errorCode = envelope.ErrorCode
			switch {
			case envelope.Message != "":
				return envelope.Message, errorCode
			case envelope.ErrorText != "":
				return envelope.ErrorText, errorCode
			}
		} else if !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "[") {
			return trimmed, ""
		}
	}
	return fmt.Sprintf("HTTP %d: %s", statusCode, strings.TrimSpace(statusText)), errorCode
}

// decodeSuccessBody turns a 2xx body into a JSON document. An empty body
// is a conventional success; a non-empty body must be valid JSON.
func decodeSuccessBody(body []byte) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return json.RawMessage(`{"success":true}`), nil
	}
	if !json.Valid([]byte(trimmed)) {
		return nil, ErrInvalidResponseFormat
	}
	return json.RawMessage(trimmed), nil
}

// isProfileMissing reports whether the backend says the authenticated
// identity has no application profile yet.
func isProfileMissing(errorCode string, message string) bool {
	if errorCode == errorCodeProfileNotFound {
		return true
	}
	lowered := strings.ToLower(message)
	for _, marker := range profileMissingMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

// isAlreadyRegistered reports whether a registration attempt lost a race
// against another in-flight registration for the same identity.
func isAlreadyRegistered(errorCode string, message string) bool {
	if errorCode == errorCodeAlreadyRegistered {
		return true
	}
	lowered := strings.ToLower(message)
	for _, marker := range alreadyRegisteredMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}
