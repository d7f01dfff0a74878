package apiclient

import (
	"errors"
	"testing"

	"github.com/tyemirov/decora/internal/identity"
)

func TestDeriveRegistrationName(t *testing.T) {
	testCases := []struct {
		name        string
		subject     identity.Identity
		expected    string
		expectError bool
	}{
		{name: "display name wins", subject: identity.Identity{DisplayName: "Jane Doe", Email: "jane@x.com"}, expected: "Jane Doe"},
		{name: "email local part when display name empty", subject: identity.Identity{DisplayName: "", Email: "jane@x.com"}, expected: "jane"},
		{name: "literal fallback when nothing present", subject: identity.Identity{}, expected: "User"},
		{name: "whitespace display name is a validation failure", subject: identity.Identity{DisplayName: "  "}, expectError: true},
		{name: "display name is trimmed", subject: identity.Identity{DisplayName: "  Sam  "}, expected: "Sam"},
		{name: "email without at sign used verbatim", subject: identity.Identity{Email: "sam"}, expected: "sam"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			derived, deriveErr := deriveRegistrationName(testCase.subject)
			if testCase.expectError {
				if !errors.Is(deriveErr, ErrValidation) {
					t.Fatalf("expected ErrValidation, got %v", deriveErr)
				}
				return
			}
			if deriveErr != nil {
				t.Fatalf("derivation failed: %v", deriveErr)
			}
			if derived != testCase.expected {
				t.Fatalf("expected %q, got %q", testCase.expected, derived)
			}
		})
	}
}
