package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/marcoraddatz/komodo/internal/api"
	"github.com/marcoraddatz/komodo/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// LocalProvider handles username/password registration and login.
type LocalProvider struct {
	store store.Store
	jwt   *JwtClient
}

func NewLocalProvider(st store.Store, jwt *JwtClient) *LocalProvider {
	return &LocalProvider{store: st, jwt: jwt}
}

// Register creates a local user. The first registered user becomes an
// enabled admin; everyone after starts disabled until an admin enables
// them.
func (p *LocalProvider) Register(ctx context.Context, username, password string) (*api.JwtResponse, error) {
	if username == "" || password == "" {
		return nil, api.Unauthenticatedf("username and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	count, err := p.store.CountUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	first := count == 0

	user := &api.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		Admin:        first,
		Enabled:      first,
	}
	if err := p.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrNameTaken) {
			return nil, api.Conflictf("username %q is taken", username)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return p.respond(ctx, user)
}

// Login checks the password and issues a token.
func (p *LocalProvider) Login(ctx context.Context, username, password string) (*api.JwtResponse, error) {
	user, err := p.store.FindUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, api.Unauthenticatedf("invalid username or password")
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user.PasswordHash == "" {
		return nil, api.Unauthenticatedf("user has no local password")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, api.Unauthenticatedf("invalid username or password")
	}
	return p.respond(ctx, user)
}

func (p *LocalProvider) respond(ctx context.Context, user *api.User) (*api.JwtResponse, error) {
	token, err := p.jwt.Generate(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &api.JwtResponse{Token: token, User: *user}, nil
}
