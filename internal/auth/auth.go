// Package auth resolves inbound requests to users. Two header schemes are
// accepted: a JWT bearer token from a login provider, or an api
// key/secret pair minted with CreateLoginSecret.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/marcoraddatz/komodo/internal/api"
	"github.com/marcoraddatz/komodo/internal/store"
)

const (
	HeaderApiKey    = "X-Api-Key"
	HeaderApiSecret = "X-Api-Secret"
)

// Authenticator turns request headers into a RequestUser.
type Authenticator struct {
	store store.Store
	jwt   *JwtClient
}

func NewAuthenticator(st store.Store, jwt *JwtClient) *Authenticator {
	return &Authenticator{store: st, jwt: jwt}
}

// Authenticate checks the request headers and returns the authenticated
// user. Disabled users authenticate but are rejected here, so a revoked
// account loses access on its next request.
func (a *Authenticator) Authenticate(r *http.Request) (api.RequestUser, error) {
	ctx := r.Context()

	var userID string
	switch {
	case r.Header.Get("Authorization") != "":
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		id, err := a.jwt.Validate(ctx, token)
		if err != nil {
			return api.RequestUser{}, err
		}
		userID = id
	case r.Header.Get(HeaderApiKey) != "":
		id, err := authenticateSecret(ctx, a.store, r.Header.Get(HeaderApiKey), r.Header.Get(HeaderApiSecret))
		if err != nil {
			return api.RequestUser{}, err
		}
		userID = id
	default:
		return api.RequestUser{}, api.Unauthenticatedf("no credentials provided")
	}

	user, err := a.lookupEnabled(ctx, userID)
	if err != nil {
		return api.RequestUser{}, err
	}
	return api.RequestUser{ID: user.ID, Admin: user.Admin, Enabled: user.Enabled}, nil
}

func (a *Authenticator) lookupEnabled(ctx context.Context, userID string) (*api.User, error) {
	user, err := a.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, api.Unauthenticatedf("user no longer exists")
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if !user.Enabled {
		return nil, api.Unauthenticatedf("user is disabled")
	}
	return user, nil
}
