package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/marcoraddatz/komodo/internal/api"
	"github.com/marcoraddatz/komodo/internal/store"
	"golang.org/x/oauth2"
)

// OAuthConfig configures one external login provider.
type OAuthConfig struct {
	Provider     string `yaml:"provider"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	AuthURL      string `yaml:"auth_url"`
	TokenURL     string `yaml:"token_url"`
	UserInfoURL  string `yaml:"user_info_url"`
	RedirectURL  string `yaml:"redirect_url"`
}

// OAuthProvider exchanges authorization codes for local accounts. The
// first user through the door becomes the admin, same as local
// registration; later users start disabled.
type OAuthProvider struct {
	store       store.Store
	jwt         *JwtClient
	oauth       *oauth2.Config
	provider    string
	userInfoURL string
}

func NewOAuthProvider(st store.Store, jwt *JwtClient, config OAuthConfig) *OAuthProvider {
	return &OAuthProvider{
		store: st,
		jwt:   jwt,
		oauth: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:  config.AuthURL,
				TokenURL: config.TokenURL,
			},
		},
		provider:    config.Provider,
		userInfoURL: config.UserInfoURL,
	}
}

// LoginURL returns the provider's consent page for the given state.
func (p *OAuthProvider) LoginURL(state string) string {
	return p.oauth.AuthCodeURL(state)
}

type oauthUserInfo struct {
	ID    json.Number `json:"id"`
	Login string      `json:"login"`
	Email string      `json:"email"`
}

// HandleCallback finishes the flow: exchanges the code, fetches the
// provider profile, and finds or creates the matching local user.
func (p *OAuthProvider) HandleCallback(ctx context.Context, code string) (*api.JwtResponse, error) {
	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, api.Unauthenticatedf("oauth code exchange failed")
	}

	info, err := p.fetchUserInfo(ctx, token)
	if err != nil {
		return nil, err
	}

	username := fmt.Sprintf("%s:%s", p.provider, info.Login)
	if info.Login == "" {
		username = fmt.Sprintf("%s:%s", p.provider, info.ID.String())
	}

	user, err := p.store.FindUserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		user, err = p.createUser(ctx, username)
	}
	if err != nil {
		return nil, err
	}

	jwtToken, err := p.jwt.Generate(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &api.JwtResponse{Token: jwtToken, User: *user}, nil
}

func (p *OAuthProvider) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*oauthUserInfo, error) {
	client := p.oauth.Client(ctx, token)
	resp, err := client.Get(p.userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("failed fetching oauth user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("oauth user info returned %d: %s", resp.StatusCode, body)
	}

	var info oauthUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed decoding oauth user info: %w", err)
	}
	return &info, nil
}

func (p *OAuthProvider) createUser(ctx context.Context, username string) (*api.User, error) {
	count, err := p.store.CountUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	first := count == 0

	user := &api.User{
		ID:       uuid.NewString(),
		Username: username,
		Admin:    first,
		Enabled:  first,
	}
	if err := p.store.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}
