package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/amissa/backend/internal/model"
	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer       = "amissa"
	minSecretLen = 32
)

// ErrInvalidToken is returned for any token that fails parsing or validation.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the JWT payload of an operator token.
type Claims struct {
	Role      model.Role `json:"role"`
	DioceseID string     `json:"diocese_id,omitempty"`
	ParishID  string     `json:"parish_id,omitempty"`
	jwt.RegisteredClaims
}

// SecretBytes returns the signing key for s, zero-padded to 32 bytes.
func SecretBytes(s string) []byte {
	b := []byte(s)
	if len(b) < minSecretLen {
		out := make([]byte, minSecretLen)
		copy(out, b)
		return out
	}
	return b
}

// IssueToken signs an HS256 token for actor valid for ttl.
func IssueToken(secret []byte, actor *model.Actor, ttl time.Duration) (string, error) {
	if actor == nil || actor.ID == "" || !actor.Role.Valid() {
		return "", fmt.Errorf("issue token: invalid actor")
	}
	now := time.Now().UTC()
	claims := Claims{
		Role:      actor.Role,
		DioceseID: actor.DioceseID,
		ParishID:  actor.ParishID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   actor.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates raw and returns the actor it was issued for.
func ParseToken(secret []byte, raw string) (*model.Actor, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" || !claims.Role.Valid() {
		return nil, ErrInvalidToken
	}
	return &model.Actor{
		ID:        claims.Subject,
		Role:      claims.Role,
		DioceseID: claims.DioceseID,
		ParishID:  claims.ParishID,
	}, nil
}
