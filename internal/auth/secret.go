package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/marcoraddatz/komodo/internal/api"
	"github.com/marcoraddatz/komodo/internal/store"
)

const (
	apiKeyPrefix    = "K-"
	apiSecretPrefix = "S-"
)

func randomHex(bytes int) (string, error) {
	buf := make([]byte, bytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed reading random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func hashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// CreateLoginSecret mints a key/secret pair for the user and stores the
// secret's hash. The plaintext secret is returned exactly once.
func CreateLoginSecret(ctx context.Context, st store.Store, userID, name string) (*api.CreatedLoginSecret, error) {
	key, err := randomHex(20)
	if err != nil {
		return nil, err
	}
	secret, err := randomHex(32)
	if err != nil {
		return nil, err
	}
	key = apiKeyPrefix + key
	secret = apiSecretPrefix + secret

	err = st.CreateLoginSecret(ctx, &api.LoginSecret{
		Name:       name,
		Key:        key,
		SecretHash: hashSecret(secret),
		UserID:     userID,
	})
	if errors.Is(err, store.ErrNameTaken) {
		return nil, api.Conflictf("login secret named %q already exists", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to store login secret: %w", err)
	}

	return &api.CreatedLoginSecret{Name: name, Key: key, Secret: secret}, nil
}

// authenticateSecret resolves an api key/secret pair to a user id. The
// hash comparison is constant time.
func authenticateSecret(ctx context.Context, st store.Store, key, secret string) (string, error) {
	record, err := st.FindLoginSecretByKey(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", api.Unauthenticatedf("invalid api key")
		}
		return "", fmt.Errorf("failed to look up api key: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(hashSecret(secret)), []byte(record.SecretHash)) != 1 {
		return "", api.Unauthenticatedf("invalid api secret")
	}
	return record.UserID, nil
}
