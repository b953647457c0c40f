package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcoraddatz/komodo/internal/api"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(st.Close)
	return st
}

func serverRecord(name string) *Record {
	config, _ := json.Marshal(api.DefaultServerConfig())
	info, _ := json.Marshal(api.ServerInfo{Status: api.ServerNotOk})
	return &Record{
		Kind:        api.KindServer,
		ID:          uuid.NewString(),
		Name:        name,
		Config:      config,
		Info:        info,
		Permissions: map[string]api.PermissionLevel{"user-1": api.PermissionExecute},
	}
}

func TestResourceLifecycle(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	rec := serverRecord("prod")
	require.NoError(t, st.CreateResource(ctx, rec))
	assert.Equal(t, int64(1), rec.Version)

	got, err := st.GetResource(ctx, api.KindServer, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "prod", got.Name)
	assert.Equal(t, api.PermissionExecute, got.Permissions["user-1"])

	byName, err := st.FindResourceByName(ctx, api.KindServer, "prod")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, byName.ID)

	// same name under another kind is fine
	other := serverRecord("prod")
	other.Kind = api.KindDeployment
	require.NoError(t, st.CreateResource(ctx, other))

	require.NoError(t, st.DeleteResource(ctx, api.KindServer, rec.ID))
	_, err = st.GetResource(ctx, api.KindServer, rec.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, st.DeleteResource(ctx, api.KindServer, rec.ID), ErrNotFound)
}

func TestCreateResourceNameTaken(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.CreateResource(ctx, serverRecord("prod")))
	err := st.CreateResource(ctx, serverRecord("prod"))
	assert.ErrorIs(t, err, ErrNameTaken)
}

func TestUpdateResourceVersionGuard(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	rec := serverRecord("prod")
	require.NoError(t, st.CreateResource(ctx, rec))

	rec.Description = "primary host"
	require.NoError(t, st.UpdateResource(ctx, rec))
	assert.Equal(t, int64(2), rec.Version)

	stale := *rec
	stale.Version = 1
	assert.ErrorIs(t, st.UpdateResource(ctx, &stale), ErrVersionMismatch)

	missing := serverRecord("ghost")
	assert.ErrorIs(t, st.UpdateResource(ctx, missing), ErrNotFound)
}

func TestRenameResource(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	first := serverRecord("prod")
	second := serverRecord("staging")
	require.NoError(t, st.CreateResource(ctx, first))
	require.NoError(t, st.CreateResource(ctx, second))

	assert.ErrorIs(t, st.RenameResource(ctx, api.KindServer, second.ID, "prod"), ErrNameTaken)
	require.NoError(t, st.RenameResource(ctx, api.KindServer, second.ID, "staging-2"))

	renamed, err := st.GetResource(ctx, api.KindServer, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "staging-2", renamed.Name)
	assert.Equal(t, int64(2), renamed.Version)
}

func TestSetResourcePermission(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	rec := serverRecord("prod")
	require.NoError(t, st.CreateResource(ctx, rec))

	require.NoError(t, st.SetResourcePermission(ctx, api.KindServer, rec.ID, "user-2", api.PermissionRead))
	got, err := st.GetResource(ctx, api.KindServer, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, api.PermissionRead, got.Permissions["user-2"])

	// PermissionNone removes the entry entirely
	require.NoError(t, st.SetResourcePermission(ctx, api.KindServer, rec.ID, "user-2", api.PermissionNone))
	got, err = st.GetResource(ctx, api.KindServer, rec.ID)
	require.NoError(t, err)
	_, present := got.Permissions["user-2"]
	assert.False(t, present)

	err = st.SetResourcePermission(ctx, api.KindServer, "missing", "user-2", api.PermissionRead)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListResourcesOrderedByName(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"charlie", "alpha", "bravo"} {
		require.NoError(t, st.CreateResource(ctx, serverRecord(name)))
	}

	recs, err := st.ListResources(ctx, api.KindServer)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "alpha", recs[0].Name)
	assert.Equal(t, "bravo", recs[1].Name)
	assert.Equal(t, "charlie", recs[2].Name)
}

func TestResourceCredentials(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	rec := serverRecord("prod")
	rec.Kind = api.KindRepo
	require.NoError(t, st.CreateResource(ctx, rec))

	cred := &ResourceCredential{
		Kind:            api.KindRepo,
		ResourceID:      rec.ID,
		TokenCiphertext: []byte("cipher"),
		TokenNonce:      []byte("nonce"),
	}
	require.NoError(t, st.UpsertResourceCredential(ctx, cred))

	got, err := st.GetResourceCredential(ctx, api.KindRepo, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("cipher"), got.TokenCiphertext)

	// upsert replaces in place
	cred.TokenCiphertext = []byte("cipher-2")
	require.NoError(t, st.UpsertResourceCredential(ctx, cred))
	got, err = st.GetResourceCredential(ctx, api.KindRepo, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("cipher-2"), got.TokenCiphertext)

	// deleting the resource sweeps its credential
	require.NoError(t, st.DeleteResource(ctx, api.KindRepo, rec.ID))
	_, err = st.GetResourceCredential(ctx, api.KindRepo, rec.ID)
	assert.ErrorIs(t, err, ErrCredentialNotFound)
}

func TestUsers(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	count, err := st.CountUsers(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	user := &api.User{
		ID:           uuid.NewString(),
		Username:     "admin",
		PasswordHash: "hash",
		Admin:        true,
		Enabled:      true,
	}
	require.NoError(t, st.CreateUser(ctx, user))
	assert.ErrorIs(t, st.CreateUser(ctx, &api.User{ID: uuid.NewString(), Username: "admin"}), ErrNameTaken)

	got, err := st.FindUserByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.True(t, got.Admin)
	assert.True(t, got.Enabled)

	enabled := false
	createServers := true
	require.NoError(t, st.UpdateUserFlags(ctx, user.ID, &enabled, &createServers, nil))
	got, err = st.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, got.Enabled)
	assert.True(t, got.CreateServers)
	assert.False(t, got.CreateBuilds)

	assert.ErrorIs(t, st.UpdateUserFlags(ctx, "missing", &enabled, nil, nil), ErrNotFound)
	// all-nil update is a no-op, even for unknown ids
	assert.NoError(t, st.UpdateUserFlags(ctx, "missing", nil, nil, nil))
}

func TestLoginSecrets(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	user := &api.User{ID: uuid.NewString(), Username: "admin"}
	require.NoError(t, st.CreateUser(ctx, user))

	secret := &api.LoginSecret{
		Key:        "K-abc",
		Name:       "ci",
		SecretHash: "hash",
		UserID:     user.ID,
	}
	require.NoError(t, st.CreateLoginSecret(ctx, secret))
	assert.ErrorIs(t, st.CreateLoginSecret(ctx, &api.LoginSecret{
		Key: "K-def", Name: "ci", SecretHash: "hash2", UserID: user.ID,
	}), ErrNameTaken)

	got, err := st.FindLoginSecretByKey(ctx, "K-abc")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.UserID)

	require.NoError(t, st.DeleteLoginSecret(ctx, user.ID, "ci"))
	assert.ErrorIs(t, st.DeleteLoginSecret(ctx, user.ID, "ci"), ErrNotFound)
}

func TestSessions(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	user := &api.User{ID: uuid.NewString(), Username: "admin"}
	require.NoError(t, st.CreateUser(ctx, user))

	now := time.Now().UTC()
	live := &Session{ID: uuid.NewString(), UserID: user.ID, ExpiresAt: now.Add(time.Hour)}
	expired := &Session{ID: uuid.NewString(), UserID: user.ID, ExpiresAt: now.Add(-time.Hour)}
	require.NoError(t, st.CreateSession(ctx, live))
	require.NoError(t, st.CreateSession(ctx, expired))

	require.NoError(t, st.DeleteExpiredSessions(ctx, now))
	_, err := st.GetSession(ctx, expired.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := st.GetSession(ctx, live.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.UserID)

	require.NoError(t, st.DeleteSession(ctx, live.ID))
	_, err = st.GetSession(ctx, live.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
