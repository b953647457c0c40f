package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/marcoraddatz/komodo/internal/api"
	"github.com/marcoraddatz/komodo/internal/store"
)

const DefaultTokenExpiry = 7 * 24 * time.Hour

type claims struct {
	jwt.RegisteredClaims
}

// JwtClient signs and validates bearer tokens. Every token carries a jti
// backed by a session row, so deleting the session revokes the token
// before its expiry.
type JwtClient struct {
	secret []byte
	expiry time.Duration
	store  store.Store
}

func NewJwtClient(secret []byte, expiry time.Duration, st store.Store) *JwtClient {
	if expiry <= 0 {
		expiry = DefaultTokenExpiry
	}
	return &JwtClient{secret: secret, expiry: expiry, store: st}
}

// Generate issues a signed token for the user and records its session.
func (c *JwtClient) Generate(ctx context.Context, userID string) (string, error) {
	now := time.Now().UTC()
	session := &store.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		ExpiresAt: now.Add(c.expiry),
	}
	if err := c.store.CreateSession(ctx, session); err != nil {
		return "", fmt.Errorf("failed to record session: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	})
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate parses the token and returns the user id it was issued to.
// A token whose session row is gone is treated as revoked.
func (c *JwtClient) Validate(ctx context.Context, tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		return "", api.Unauthenticatedf("invalid token")
	}
	parsed, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", api.Unauthenticatedf("invalid token")
	}

	session, err := c.store.GetSession(ctx, parsed.ID)
	if err != nil {
		return "", api.Unauthenticatedf("token has been revoked")
	}
	if time.Now().After(session.ExpiresAt) {
		return "", api.Unauthenticatedf("token has expired")
	}
	return session.UserID, nil
}

// Revoke deletes the session behind a token, invalidating it immediately.
func (c *JwtClient) Revoke(ctx context.Context, tokenString string) error {
	token, _, err := jwt.NewParser().ParseUnverified(tokenString, &claims{})
	if err != nil {
		return api.Unauthenticatedf("invalid token")
	}
	parsed, ok := token.Claims.(*claims)
	if !ok {
		return api.Unauthenticatedf("invalid token")
	}
	return c.store.DeleteSession(ctx, parsed.ID)
}
