// Package auth verifies access tokens and resolves the calling principal.
package auth

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/planifica/sigep/internal/platform/errors"
	"github.com/planifica/sigep/internal/services/planning/domain/principal"
)

// Env vars read by LoadAccessTokenConfigFromEnv.
const (
	EnvAuthIssuer    = "SIGEP_AUTH_ISSUER"
	EnvAuthAudience  = "SIGEP_AUTH_AUDIENCE"
	EnvAuthPublicKey = "SIGEP_AUTH_PUBLIC_KEY"
)

// accessTokenEnv holds raw env values before post-parse validation.
type accessTokenEnv struct {
	Issuer    string `env:"SIGEP_AUTH_ISSUER"`
	Audience  string `env:"SIGEP_AUTH_AUDIENCE"`
	PublicKey string `env:"SIGEP_AUTH_PUBLIC_KEY"`
}

// AccessTokenConfig defines how access tokens are verified.
type AccessTokenConfig struct {
	Issuer   string
	Audience string
	Key      ed25519.PublicKey
	Now      func() time.Time
}

// accessTokenClaims is the internal claims type used for JWT parsing.
type accessTokenClaims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles"`
}

// LoadAccessTokenConfigFromEnv reads access token verification configuration.
func LoadAccessTokenConfigFromEnv(now func() time.Time) (AccessTokenConfig, error) {
	var raw accessTokenEnv
	if err := env.Parse(&raw); err != nil {
		return AccessTokenConfig{}, fmt.Errorf("parse access token env: %w", err)
	}
	issuer := strings.TrimSpace(raw.Issuer)
	audience := strings.TrimSpace(raw.Audience)
	publicKey := strings.TrimSpace(raw.PublicKey)
	if issuer == "" {
		return AccessTokenConfig{}, fmt.Errorf("SIGEP_AUTH_ISSUER is required")
	}
	if audience == "" {
		return AccessTokenConfig{}, fmt.Errorf("SIGEP_AUTH_AUDIENCE is required")
	}
	if publicKey == "" {
		return AccessTokenConfig{}, fmt.Errorf("SIGEP_AUTH_PUBLIC_KEY is required")
	}
	keyBytes, err := decodeBase64(publicKey)
	if err != nil {
		return AccessTokenConfig{}, fmt.Errorf("decode access token public key: %w", err)
	}
	if len(keyBytes) != ed25519.PublicKeySize {
		return AccessTokenConfig{}, fmt.Errorf("access token public key must be %d bytes", ed25519.PublicKeySize)
	}
	if now == nil {
		now = time.Now
	}
	return AccessTokenConfig{
		Issuer:   issuer,
		Audience: audience,
		Key:      ed25519.PublicKey(keyBytes),
		Now:      now,
	}, nil
}

// VerifyAccessToken verifies a bearer token and resolves its principal.
// Unknown role labels in the token fail verification rather than being
// silently dropped.
func VerifyAccessToken(token string, cfg AccessTokenConfig) (principal.Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return principal.Principal{}, apperrors.New(apperrors.CodeAuthTokenInvalid, "access token is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Issuer == "" || cfg.Audience == "" || len(cfg.Key) != ed25519.PublicKeySize {
		return principal.Principal{}, errors.New("access token verifier is not configured")
	}

	var parsed accessTokenClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(token *jwt.Token) (any, error) {
		return cfg.Key, nil
	},
		jwt.WithValidMethods([]string{"EdDSA"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return principal.Principal{}, mapJWTError(err)
	}

	if parsed.Issuer == "" || parsed.Issuer != cfg.Issuer {
		return principal.Principal{}, apperrors.WithMetadata(
			apperrors.CodeAuthTokenMismatch,
			"access token issuer mismatch",
			map[string]string{"Field": "issuer"},
		)
	}
	if !audienceContains(parsed.Audience, cfg.Audience) {
		return principal.Principal{}, apperrors.WithMetadata(
			apperrors.CodeAuthTokenMismatch,
			"access token audience mismatch",
			map[string]string{"Field": "audience"},
		)
	}
	if parsed.ExpiresAt == nil {
		return principal.Principal{}, apperrors.New(apperrors.CodeAuthTokenInvalid, "access token exp is required")
	}

	now := cfg.Now().UTC()
	if !parsed.ExpiresAt.Time.UTC().After(now) {
		return principal.Principal{}, apperrors.New(apperrors.CodeAuthTokenExpired, "access token is expired")
	}
	if parsed.NotBefore != nil && now.Before(parsed.NotBefore.Time.UTC()) {
		return principal.Principal{}, apperrors.New(apperrors.CodeAuthTokenInvalid, "access token not active yet")
	}

	subject := strings.TrimSpace(parsed.Subject)
	if subject == "" {
		return principal.Principal{}, apperrors.New(apperrors.CodeAuthTokenInvalid, "access token sub is required")
	}

	roles := make([]principal.Role, 0, len(parsed.Roles))
	for _, label := range parsed.Roles {
		role, err := principal.RoleFromLabel(label)
		if err != nil {
			return principal.Principal{}, apperrors.WithMetadata(
				apperrors.CodeAuthTokenInvalid,
				"access token carries an unknown role",
				map[string]string{"Role": label},
			)
		}
		roles = append(roles, role)
	}

	actor, err := principal.New(subject, roles...)
	if err != nil {
		return principal.Principal{}, err
	}
	return actor, nil
}

// mapJWTError translates jwt library errors to application errors.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) || errors.Is(err, jwt.ErrEd25519Verification) {
		return apperrors.New(apperrors.CodeAuthTokenInvalid, "access token signature is invalid")
	}
	if errors.Is(err, jwt.ErrTokenUnverifiable) {
		return apperrors.New(apperrors.CodeAuthTokenInvalid, "access token alg is invalid")
	}
	return apperrors.New(apperrors.CodeAuthTokenInvalid, "access token is invalid")
}

// audienceContains reports whether the audience list contains the given value.
func audienceContains(aud jwt.ClaimStrings, value string) bool {
	for _, item := range aud {
		if item == value {
			return true
		}
	}
	return false
}

func decodeBase64(value string) ([]byte, error) {
	if value == "" {
		return nil, errors.New("empty base64 value")
	}
	decoded, err := base64.RawStdEncoding.DecodeString(value)
	if err == nil {
		return decoded, nil
	}
	return base64.StdEncoding.DecodeString(value)
}
