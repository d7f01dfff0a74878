package apiclient

import (
	"errors"
	"testing"
)

func TestDecodeErrorBodyVariants(t *testing.T) {
	testCases := []struct {
		name            string
		status          int
		statusText      string
		body            string
		expectedMessage string
		expectedCode    string
	}{
		{name: "json message field", status: 404, body: `{"message":"User not found","errorCode":"PROFILE_NOT_FOUND"}`, expectedMessage: "User not found", expectedCode: "PROFILE_NOT_FOUND"},
		{name: "json error field", status: 400, body: `{"error":"invalid_json"}`, expectedMessage: "invalid_json"},
		{name: "plain text", status: 503, body: "db down", expectedMessage: "db down"},
		{name: "empty body falls back to status", status: 502, statusText: "502 Bad Gateway", body: "", expectedMessage: "HTTP 502: 502 Bad Gateway"},
		{name: "json without known fields falls back", status: 500, statusText: "500 Internal Server Error", body: `{"detail":42}`, expectedMessage: "HTTP 500: 500 Internal Server Error"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			message, errorCode := decodeErrorBody(testCase.status, testCase.statusText, []byte(testCase.body))
			if message != testCase.expectedMessage {
				t.Fatalf("expected message %q, got %q", testCase.expectedMessage, message)
			}
			if errorCode != testCase.expectedCode {
				t.Fatalf("expected code %q, got %q", testCase.expectedCode, errorCode)
			}
		})
	}
}

func TestDecodeSuccessBody(t *testing.T) {
	document, decodeErr := decodeSuccessBody([]byte("  \n"))
	if decodeErr != nil {
		t.Fatalf("whitespace body should be a synthetic success: %v", decodeErr)
	}
	if string(document) != `{"success":true}` {
		t.Fatalf("unexpected synthetic body: %s", string(document))
	}

	if _, decodeErr = decodeSuccessBody([]byte("not json")); !errors.Is(decodeErr, ErrInvalidResponseFormat) {
		t.Fatalf("expected ErrInvalidResponseFormat, got %v", decodeErr)
	}

	document, decodeErr = decodeSuccessBody([]byte(`[1,2]`))
	if decodeErr != nil || string(document) != `[1,2]` {
		t.Fatalf("valid JSON should pass through, got %s / %v", string(document), decodeErr)
	}
}

func TestProfileMissingDetection(t *testing.T) {
	if !isProfileMissing("PROFILE_NOT_FOUND", "") {
		t.Fatal("structured code must be the primary signal")
	}
	if !isProfileMissing("", "User not found") {
		t.Fatal("substring fallback must detect the legacy message")
	}
	if !isProfileMissing("", "please complete profile registration first") {
		t.Fatal("substring fallback must detect the registration prompt")
	}
	if isProfileMissing("", "booking not found") {
		t.Fatal("unrelated not-found messages must not trigger registration")
	}
}

func TestAlreadyRegisteredDetection(t *testing.T) {
	if !isAlreadyRegistered("ALREADY_REGISTERED", "") {
		t.Fatal("structured code must be the primary signal")
	}
	if !isAlreadyRegistered("", "profile already exists") {
		t.Fatal("substring fallback must detect the duplicate message")
	}
	if isAlreadyRegistered("", "User not found") {
		t.Fatal("profile-missing must not be read as a duplicate")
	}
}
