package tokenizer

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/layer-3/starnotary/core"
	"github.com/layer-3/starnotary/ports"
)

const AudienceRegister = "star:register"

// JWTTokenizer implements the Tokenizer interface using ES256 JWTs
type JWTTokenizer struct {
	signKey *ecdsa.PrivateKey
}

// NewJWTTokenizer creates a new JWT tokenizer
func NewJWTTokenizer(signKey *ecdsa.PrivateKey) ports.Tokenizer {
	return &JWTTokenizer{signKey: signKey}
}

// GrantToToken signs a registration grant
func (j *JWTTokenizer) GrantToToken(grant *core.Grant) (string, error) {
	claims := GrantClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   grant.Address,
			ID:        grant.ID,
			ExpiresAt: jwt.NewNumericDate(grant.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(grant.IssuedAt),
			Audience:  jwt.ClaimStrings{AudienceRegister},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)

	signedToken, err := token.SignedString(j.signKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign grant: %w", err)
	}

	return signedToken, nil
}

// TokenToGrant verifies a grant token and returns the grant
func (j *JWTTokenizer) TokenToGrant(tokenStr string) (*core.Grant, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &GrantClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return &j.signKey.PublicKey, nil
	}, jwt.WithAudience(AudienceRegister), jwt.WithExpirationRequired())

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, core.ErrSessionExpired
		}
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidGrant, err)
	}

	if !token.Valid {
		return nil, core.ErrInvalidGrant
	}

	claims, ok := token.Claims.(*GrantClaims)
	if !ok || claims.ID == "" || claims.Subject == "" {
		return nil, core.ErrInvalidGrant
	}

	grant := &core.Grant{
		ID:        claims.ID,
		Address:   claims.Subject,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		grant.IssuedAt = claims.IssuedAt.Time
	}

	return grant, nil
}
