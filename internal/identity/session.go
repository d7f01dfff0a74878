package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Sentinel errors exposed by the session provider.
var (
	ErrMissingAuthURL      = errors.New("identity.session.missing_auth_url")
	ErrMissingRefreshToken = errors.New("identity.session.missing_refresh_token")
	ErrRefreshRejected     = errors.New("identity.session.refresh_rejected")
	ErrMalformedAccessJWT  = errors.New("identity.session.malformed_access_jwt")
)

// expiryLeeway is subtracted from the token expiry so a token about to
// lapse mid-request is not served from cache.
const expiryLeeway = 30 * time.Second

// SessionClaims is the payload embedded inside access tokens issued by
// the identity service.
type SessionClaims struct {
	UserID          string   `json:"user_id"`
	UserEmail       string   `json:"user_email"`
	UserDisplayName string   `json:"user_display_name"`
	UserAvatarURL   string   `json:"user_avatar_url"`
	UserRoles       []string `json:"user_roles"`
	jwt.RegisteredClaims
}

// SessionConfig configures a SessionProvider.
type SessionConfig struct {
	AuthURL      string
	RefreshToken string
	HTTPClient   *http.Client
	Logger       *zap.Logger
	Clock        Clock
}

// SessionProvider exchanges a long-lived refresh token for short-lived
// access tokens at the identity service and caches the active token in
// memory. Tokens are never persisted.
type SessionProvider struct {
	authURL      string
	refreshToken string
	httpClient   *http.Client
	logger       *zap.Logger
	clock        Clock

	mutex         sync.Mutex
	cachedToken   string
	cachedExpiry  time.Time
	cachedSubject *Identity
}

// NewSessionProvider constructs a SessionProvider after validating the
// supplied configuration.
func NewSessionProvider(configuration SessionConfig) (*SessionProvider, error) {
	if strings.TrimSpace(configuration.AuthURL) == "" {
		return nil, fmt.Errorf("identity.session.new: %w", ErrMissingAuthURL)
	}
	if strings.TrimSpace(configuration.RefreshToken) == "" {
		return nil, fmt.Errorf("identity.session.new: %w", ErrMissingRefreshToken)
	}
	httpClient := configuration.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := configuration.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := configuration.Clock
	if clock == nil {
		clock = NewSystemClock()
	}
	return &SessionProvider{
		authURL:      strings.TrimRight(configuration.AuthURL, "/"),
		refreshToken: configuration.RefreshToken,
		httpClient:   httpClient,
		logger:       logger,
		clock:        clock,
	}, nil
}

// Token returns the cached access token while it is still valid, and
// otherwise performs a refresh exchange. forceRefresh always exchanges.
func (provider *SessionProvider) Token(ctx context.Context, forceRefresh bool) (string, error) {
	provider.mutex.Lock()
	defer provider.mutex.Unlock()

	if !forceRefresh && provider.cachedToken != "" && provider.clock.Now().Before(provider.cachedExpiry.Add(-expiryLeeway)) {
		return provider.cachedToken, nil
	}
	if refreshErr := provider.refreshLocked(ctx); refreshErr != nil {
		return "", refreshErr
	}
	return provider.cachedToken, nil
}

// Current returns the identity carried by the most recently issued access
// token. It never triggers a network call.
func (provider *SessionProvider) Current(ctx context.Context) (*Identity, bool) {
	provider.mutex.Lock()
	defer provider.mutex.Unlock()
	if provider.cachedSubject == nil {
		return nil, false
	}
	snapshot := *provider.cachedSubject
	return &snapshot, true
}

func (provider *SessionProvider) refreshLocked(ctx context.Context) error {
	payload, marshalErr := json.Marshal(map[string]string{"refresh_token": provider.refreshToken})
	if marshalErr != nil {
		return fmt.Errorf("identity.session.refresh: %w", marshalErr)
	}
	request, requestErr := http.NewRequestWithContext(ctx, http.MethodPost, provider.authURL+"/auth/refresh", bytes.NewReader(payload))
	if requestErr != nil {
		return fmt.Errorf("identity.session.refresh: %w", requestErr)
	}
	request.Header.Set("Content-Type", "application/json")

	response, doErr := provider.httpClient.Do(request)
	if doErr != nil {
		return fmt.Errorf("identity.session.refresh: %w", doErr)
	}
	defer func() { _ = response.Body.Close() }()

	if response.StatusCode != http.StatusOK {
		provider.logger.Warn("token refresh rejected",
			zap.String("code", "identity.session.refresh_rejected"),
			zap.Int("status", response.StatusCode))
		return fmt.Errorf("identity.session.refresh: status %d: %w", response.StatusCode, ErrRefreshRejected)
	}

	body, readErr := io.ReadAll(response.Body)
	if readErr != nil {
		return fmt.Errorf("identity.session.refresh: %w", readErr)
	}
	var outbound struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if decodeErr := json.Unmarshal(body, &outbound); decodeErr != nil || strings.TrimSpace(outbound.AccessToken) == "" {
		return fmt.Errorf("identity.session.refresh: %w", ErrRefreshRejected)
	}

	claims, expiry, claimsErr := provider.inspectAccessToken(outbound.AccessToken)
	if claimsErr != nil {
		return claimsErr
	}

	provider.cachedToken = outbound.AccessToken
	provider.cachedExpiry = expiry
	provider.cachedSubject = &Identity{
		SubjectID:   claims.UserID,
		Email:       claims.UserEmail,
		DisplayName: claims.UserDisplayName,
		PhotoURL:    claims.UserAvatarURL,
	}
	// The service rotates refresh tokens on every exchange.
	if strings.TrimSpace(outbound.RefreshToken) != "" {
		provider.refreshToken = outbound.RefreshToken
	}
	return nil
}

// inspectAccessToken reads the claim set without validating the
// signature. Signature validation is the backend's job; the client only
// needs the identity fields and the expiry for cache bookkeeping.
func (provider *SessionProvider) inspectAccessToken(accessToken string) (*SessionClaims, time.Time, error) {
	parser := jwt.NewParser()
	claims := &SessionClaims{}
	if _, _, parseErr := parser.ParseUnverified(accessToken, claims); parseErr != nil {
		return nil, time.Time{}, fmt.Errorf("identity.session.inspect: %w", ErrMalformedAccessJWT)
	}
	expiry := provider.clock.Now().Add(expiryLeeway)
	if claims.ExpiresAt != nil {
		expiry = claims.ExpiresAt.Time
	}
	return claims, expiry, nil
}
