package stubapi

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tyemirov/decora/internal/identity"
)

// DevSigningKey signs stub-issued access tokens. The stub trusts claims
// without verification, so this key carries no security weight; it only
// keeps dev tokens structurally real.
var DevSigningKey = []byte("decora-stub-dev-signing-key")

// devIssuer identifies tokens minted by the stub backend.
const devIssuer = "decora-stub"

// MintDevToken creates a signed HS256 access token carrying the session
// claim layout the client expects.
func MintDevToken(subjectID string, email string, displayName string, avatarURL string, roles []string, ttl time.Duration) (string, error) {
	issuedAt := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, identity.SessionClaims{
		UserID:          subjectID,
		UserEmail:       email,
		UserDisplayName: displayName,
		UserAvatarURL:   avatarURL,
		UserRoles:       roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    devIssuer,
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt.Add(-30 * time.Second)),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
	})
	return token.SignedString(DevSigningKey)
}
