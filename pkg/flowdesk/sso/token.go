package sso

import (
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// DefaultTokenTTL is how long an issued token stays verifiable
	DefaultTokenTTL = 300 * time.Second
	// DefaultRetentionGrace is how long an expired row is kept before the
	// housekeeper deletes it
	DefaultRetentionGrace = time.Hour
	// Issuer is the fixed platform identifier carried in every SSO token
	Issuer = "flowdesk"

	tokenType = "sso"
)

// Config carries the signing secret and timing knobs for the token service.
// It is passed explicitly to the Service rather than read from globals so
// tests can run with their own secrets and windows.
type Config struct {
	Secret         []byte
	TokenTTL       time.Duration
	RetentionGrace time.Duration
}

// ConfigFromEnv builds a Config from SSO_SECRET with default windows
func ConfigFromEnv() Config {
	secret := os.Getenv("SSO_SECRET")
	if secret == "" {
		// Default for development only - should be set in production
		secret = "flowdesk-sso-dev-secret-change-in-production"
	}
	return Config{
		Secret:         []byte(secret),
		TokenTTL:       DefaultTokenTTL,
		RetentionGrace: DefaultRetentionGrace,
	}
}

// TokenClaims are the claims carried by a signed SSO token. The audience
// is the target module's slug, binding the token to exactly one recipient.
type TokenClaims struct {
	UserID         uint   `json:"user_id"`
	OrganizationID uint   `json:"organization_id"`
	ModuleID       uint   `json:"module_id"`
	TokenType      string `json:"type"`
	jwt.RegisteredClaims
}

// mintToken signs a new SSO token for the given identities, bound to the
// module slug as audience. The jti makes every mint distinct even for
// identical identities within the same second.
func (cfg Config) mintToken(userID, organizationID, moduleID uint, moduleSlug string, now time.Time) (string, error) {
	claims := &TokenClaims{
		UserID:         userID,
		OrganizationID: organizationID,
		ModuleID:       moduleID,
		TokenType:      tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    Issuer,
			Audience:  jwt.ClaimStrings{moduleSlug},
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(cfg.Secret)
}

// parseToken verifies the signature, issuer, and audience of an SSO token
// string. Expiry of the registered claims is deliberately not enforced here:
// the store row is the source of truth for freshness, and the ordered check
// chain reports expiry from the row before the signature is examined.
func (cfg Config) parseToken(tokenString, audience string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return cfg.Secret, nil
	}, jwt.WithoutClaimsValidation())

	if err != nil || !token.Valid {
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || claims.TokenType != tokenType {
		return nil, ErrTokenInvalid
	}

	// WithoutClaimsValidation skips issuer/audience too, so check them here
	if claims.Issuer != Issuer || !hasAudience(claims.Audience, audience) {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

func hasAudience(aud jwt.ClaimStrings, want string) bool {
	for _, a := range aud {
		if a == want {
			return true
		}
	}
	return false
}
