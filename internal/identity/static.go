package identity

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// StaticProvider serves a fixed token and identity. It is intended for
// tests and local development against the stub backend.
type StaticProvider struct {
	BearerToken string
	Subject     *Identity
}

// Token returns the fixed bearer token regardless of forceRefresh.
func (provider *StaticProvider) Token(ctx context.Context, forceRefresh bool) (string, error) {
	return provider.BearerToken, nil
}

// Current returns the fixed identity, if one was configured.
func (provider *StaticProvider) Current(ctx context.Context) (*Identity, bool) {
	if provider.Subject == nil {
		return nil, false
	}
	snapshot := *provider.Subject
	return &snapshot, true
}

// Anonymous returns a provider with no credentials and no identity.
func Anonymous() *StaticProvider {
	return &StaticProvider{}
}

// NewStaticFromAccessToken builds a StaticProvider from a raw access
// token, reading the identity fields from its unverified claim set.
func NewStaticFromAccessToken(accessToken string) (*StaticProvider, error) {
	claims := &SessionClaims{}
	parser := jwt.NewParser()
	if _, _, parseErr := parser.ParseUnverified(accessToken, claims); parseErr != nil {
		return nil, fmt.Errorf("identity.static.from_token: %w", ErrMalformedAccessJWT)
	}
	subjectID := claims.UserID
	if subjectID == "" {
		subjectID = claims.Subject
	}
	return &StaticProvider{
		BearerToken: accessToken,
		Subject: &Identity{
			SubjectID:   subjectID,
			Email:       claims.UserEmail,
			DisplayName: claims.UserDisplayName,
			PhotoURL:    claims.UserAvatarURL,
		},
	}, nil
}
