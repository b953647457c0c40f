package auth

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcoraddatz/komodo/internal/api"
	"github.com/marcoraddatz/komodo/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(st.Close)
	return st
}

func newFixture(t *testing.T) (store.Store, *JwtClient, *LocalProvider, *Authenticator) {
	t.Helper()
	st := newTestStore(t)
	jwt := NewJwtClient([]byte("test-secret"), time.Hour, st)
	local := NewLocalProvider(st, jwt)
	authn := NewAuthenticator(st, jwt)
	return st, jwt, local, authn
}

func TestRegisterFirstUserIsAdmin(t *testing.T) {
	_, _, local, _ := newFixture(t)
	ctx := context.Background()

	first, err := local.Register(ctx, "alice", "password1")
	require.NoError(t, err)
	assert.True(t, first.User.Admin)
	assert.True(t, first.User.Enabled)
	assert.NotEmpty(t, first.Token)

	second, err := local.Register(ctx, "bob", "password2")
	require.NoError(t, err)
	assert.False(t, second.User.Admin)
	assert.False(t, second.User.Enabled)

	_, err = local.Register(ctx, "alice", "other")
	assert.Equal(t, api.ErrConflict, api.KindOf(err))
}

func TestLogin(t *testing.T) {
	_, _, local, _ := newFixture(t)
	ctx := context.Background()

	_, err := local.Register(ctx, "alice", "password1")
	require.NoError(t, err)

	resp, err := local.Login(ctx, "alice", "password1")
	require.NoError(t, err)
	assert.Equal(t, "alice", resp.User.Username)

	_, err = local.Login(ctx, "alice", "wrong")
	assert.Equal(t, api.ErrUnauthenticated, api.KindOf(err))

	_, err = local.Login(ctx, "nobody", "password1")
	assert.Equal(t, api.ErrUnauthenticated, api.KindOf(err))
}

func TestJwtValidateAndRevoke(t *testing.T) {
	_, jwt, local, _ := newFixture(t)
	ctx := context.Background()

	resp, err := local.Register(ctx, "alice", "password1")
	require.NoError(t, err)

	userID, err := jwt.Validate(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, userID)

	require.NoError(t, jwt.Revoke(ctx, resp.Token))
	_, err = jwt.Validate(ctx, resp.Token)
	assert.Equal(t, api.ErrUnauthenticated, api.KindOf(err))
}

func TestJwtRejectsForgedToken(t *testing.T) {
	st := newTestStore(t)
	signer := NewJwtClient([]byte("one-secret"), time.Hour, st)
	verifier := NewJwtClient([]byte("other-secret"), time.Hour, st)
	ctx := context.Background()

	require.NoError(t, st.CreateUser(ctx, &api.User{ID: "u1", Username: "alice", Enabled: true}))
	token, err := signer.Generate(ctx, "u1")
	require.NoError(t, err)

	_, err = verifier.Validate(ctx, token)
	assert.Equal(t, api.ErrUnauthenticated, api.KindOf(err))
}

func TestAuthenticateBearer(t *testing.T) {
	_, _, local, authn := newFixture(t)
	ctx := context.Background()

	resp, err := local.Register(ctx, "alice", "password1")
	require.NoError(t, err)

	r := httptest.NewRequest("POST", "/api", nil)
	r.Header.Set("Authorization", "Bearer "+resp.Token)
	user, err := authn.Authenticate(r)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, user.ID)
	assert.True(t, user.Admin)
}

func TestAuthenticateApiKey(t *testing.T) {
	st, _, local, authn := newFixture(t)
	ctx := context.Background()

	resp, err := local.Register(ctx, "alice", "password1")
	require.NoError(t, err)

	created, err := CreateLoginSecret(ctx, st, resp.User.ID, "ci")
	require.NoError(t, err)
	assert.True(t, len(created.Key) > 2 && created.Key[:2] == "K-")
	assert.True(t, len(created.Secret) > 2 && created.Secret[:2] == "S-")

	r := httptest.NewRequest("POST", "/api", nil)
	r.Header.Set(HeaderApiKey, created.Key)
	r.Header.Set(HeaderApiSecret, created.Secret)
	user, err := authn.Authenticate(r)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, user.ID)

	// wrong secret for a real key
	r.Header.Set(HeaderApiSecret, "S-wrong")
	_, err = authn.Authenticate(r)
	assert.Equal(t, api.ErrUnauthenticated, api.KindOf(err))

	// duplicate secret name conflicts
	_, err = CreateLoginSecret(ctx, st, resp.User.ID, "ci")
	assert.Equal(t, api.ErrConflict, api.KindOf(err))
}

func TestAuthenticateRejectsDisabledUser(t *testing.T) {
	st, _, local, authn := newFixture(t)
	ctx := context.Background()

	_, err := local.Register(ctx, "alice", "password1")
	require.NoError(t, err)
	resp, err := local.Register(ctx, "bob", "password2")
	require.NoError(t, err)
	require.False(t, resp.User.Enabled)

	r := httptest.NewRequest("POST", "/api", nil)
	r.Header.Set("Authorization", "Bearer "+resp.Token)
	_, err = authn.Authenticate(r)
	assert.Equal(t, api.ErrUnauthenticated, api.KindOf(err))

	enabled := true
	require.NoError(t, st.UpdateUserFlags(ctx, resp.User.ID, &enabled, nil, nil))
	user, err := authn.Authenticate(r)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, user.ID)
}

func TestAuthenticateNoCredentials(t *testing.T) {
	_, _, _, authn := newFixture(t)
	r := httptest.NewRequest("POST", "/api", nil)
	_, err := authn.Authenticate(r)
	assert.Equal(t, api.ErrUnauthenticated, api.KindOf(err))
}
