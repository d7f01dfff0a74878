package identity

import (
	"context"
	"time"
)

// Identity is a read-only snapshot of the authenticated user as reported
// by the identity provider.
type Identity struct {
	SubjectID   string
	Email       string
	DisplayName string
	PhotoURL    string
}

// Provider supplies bearer tokens and the current identity.
//
// Token returns an empty string with a nil error when no authenticated
// identity exists; callers then proceed without an Authorization header.
// forceRefresh bypasses any cached token and obtains a fresh one from the
// identity service.
type Provider interface {
	Token(ctx context.Context, forceRefresh bool) (string, error)
	Current(ctx context.Context) (*Identity, bool)
}

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// Now returns the current UTC timestamp.
func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// NewSystemClock returns a Clock backed by the wall clock.
func NewSystemClock() Clock {
	return systemClock{}
}
