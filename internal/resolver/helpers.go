package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/marcoraddatz/komodo/internal/api"
	"github.com/marcoraddatz/komodo/internal/permissions"
	"github.com/marcoraddatz/komodo/internal/store"
)

func metaOf(rec *store.Record) api.ResourceMeta {
	return api.ResourceMeta{
		ID:          rec.ID,
		Name:        rec.Name,
		Description: rec.Description,
		Permissions: rec.Permissions,
		Version:     rec.Version,
		UpdatedAt:   rec.UpdatedAt,
	}
}

func toResource[C, I any](rec *store.Record) (*api.Resource[C, I], error) {
	res := &api.Resource[C, I]{ResourceMeta: metaOf(rec)}
	if err := json.Unmarshal(rec.Config, &res.Config); err != nil {
		return nil, api.Internalf("corrupt config for %s %s: %v", rec.Kind, rec.ID, err)
	}
	if len(rec.Info) > 0 {
		if err := json.Unmarshal(rec.Info, &res.Info); err != nil {
			return nil, api.Internalf("corrupt info for %s %s: %v", rec.Kind, rec.ID, err)
		}
	}
	return res, nil
}

// findRecord resolves an id-or-name reference, the form used by read and
// execute operations. Ids win when a name happens to collide.
func (r *Resolver) findRecord(ctx context.Context, kind api.ResourceKind, idOrName string) (*store.Record, error) {
	rec, err := r.Store.GetResource(ctx, kind, idOrName)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to load %s: %w", kind, err)
	}
	rec, err = r.Store.FindResourceByName(ctx, kind, idOrName)
	if errors.Is(err, store.ErrNotFound) {
		return nil, api.NotFoundf("no %s matching %q", kind, idOrName)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", kind, err)
	}
	return rec, nil
}

// getRecordByID is the strict form used by mutations.
func (r *Resolver) getRecordByID(ctx context.Context, kind api.ResourceKind, id string) (*store.Record, error) {
	rec, err := r.Store.GetResource(ctx, kind, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, api.NotFoundf("no %s with id %q", kind, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", kind, err)
	}
	return rec, nil
}

// createRecord persists a new resource and grants the creator execute on
// it, so non-admin creators can manage what they made.
func (r *Resolver) createRecord(ctx context.Context, user api.RequestUser, kind api.ResourceKind, name string, config, info any) (*store.Record, error) {
	rawConfig, err := json.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	rawInfo, err := json.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("failed to encode info: %w", err)
	}

	rec := &store.Record{
		Kind:        kind,
		ID:          uuid.NewString(),
		Name:        name,
		Config:      rawConfig,
		Info:        rawInfo,
		Permissions: map[string]api.PermissionLevel{user.ID: api.PermissionExecute},
		Version:     1,
		UpdatedAt:   time.Now().UTC(),
	}
	if err := r.Store.CreateResource(ctx, rec); err != nil {
		if errors.Is(err, store.ErrNameTaken) {
			return nil, api.Conflictf("%s named %q already exists", kind, name)
		}
		return nil, fmt.Errorf("failed to create %s: %w", kind, err)
	}

	r.Logger.Info("resource created", "kind", kind, "id", rec.ID, "name", name, "user_id", user.ID)
	return rec, nil
}

// updateConfig replaces the config column, guarding on the version the
// caller read. A concurrent writer surfaces as Conflict.
func (r *Resolver) updateConfig(ctx context.Context, rec *store.Record, config any) error {
	raw, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	rec.Config = raw
	if err := r.Store.UpdateResource(ctx, rec); err != nil {
		if errors.Is(err, store.ErrVersionMismatch) {
			return api.Conflictf("%s %s was modified concurrently, retry", rec.Kind, rec.Name)
		}
		if errors.Is(err, store.ErrNotFound) {
			return api.NotFoundf("no %s with id %q", rec.Kind, rec.ID)
		}
		return fmt.Errorf("failed to update %s: %w", rec.Kind, err)
	}
	return nil
}

// updateInfo rewrites the derived info of a resource. Info is written by
// the core itself after operations, so a concurrent bump is retried with
// fresh state instead of surfacing a conflict.
func (r *Resolver) updateInfo(ctx context.Context, kind api.ResourceKind, id string, mutate func(raw []byte) (any, error)) error {
	for attempt := 0; attempt < 3; attempt++ {
		rec, err := r.Store.GetResource(ctx, kind, id)
		if err != nil {
			return fmt.Errorf("failed to reload %s: %w", kind, err)
		}
		info, err := mutate(rec.Info)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(info)
		if err != nil {
			return fmt.Errorf("failed to encode info: %w", err)
		}
		rec.Info = raw
		err = r.Store.UpdateResource(ctx, rec)
		if errors.Is(err, store.ErrVersionMismatch) {
			continue
		}
		return err
	}
	return api.Internalf("failed to update %s info after retries", kind)
}

func (r *Resolver) rename(ctx context.Context, user api.RequestUser, kind api.ResourceKind, id, name string) (*store.Record, error) {
	rec, err := r.getRecordByID(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if err := permissions.Check(user, rec, api.PermissionWrite); err != nil {
		return nil, err
	}
	if err := r.Store.RenameResource(ctx, kind, id, name); err != nil {
		if errors.Is(err, store.ErrNameTaken) {
			return nil, api.Conflictf("%s named %q already exists", kind, name)
		}
		return nil, fmt.Errorf("failed to rename %s: %w", kind, err)
	}
	return r.getRecordByID(ctx, kind, id)
}

func (r *Resolver) delete(ctx context.Context, user api.RequestUser, kind api.ResourceKind, id string) error {
	rec, err := r.getRecordByID(ctx, kind, id)
	if err != nil {
		return err
	}
	if err := permissions.Check(user, rec, api.PermissionWrite); err != nil {
		return err
	}
	if err := r.Store.DeleteResource(ctx, kind, id); err != nil {
		return fmt.Errorf("failed to delete %s: %w", kind, err)
	}
	r.Logger.Info("resource deleted", "kind", kind, "id", id, "name", rec.Name, "user_id", user.ID)
	return nil
}

// listVisible returns the records the user may read, decoded by the caller.
func (r *Resolver) listVisible(ctx context.Context, user api.RequestUser, kind api.ResourceKind) ([]*store.Record, error) {
	recs, err := r.Store.ListResources(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list %ss: %w", kind, err)
	}
	visible := recs[:0]
	for _, rec := range recs {
		if permissions.CanRead(user, rec) {
			visible = append(visible, rec)
		}
	}
	return visible, nil
}

// requireFullUser loads the persisted user record for create-flag checks.
func (r *Resolver) requireFullUser(ctx context.Context, user api.RequestUser) (*api.User, error) {
	full, err := r.Store.GetUser(ctx, user.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, api.Unauthenticatedf("user no longer exists")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return full, nil
}

// storeAccessToken encrypts and saves a git token for a resource.
func (r *Resolver) storeAccessToken(ctx context.Context, kind api.ResourceKind, id, token string) error {
	ciphertext, nonce, err := r.Creds.Encrypt([]byte(token))
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}
	err = r.Store.UpsertResourceCredential(ctx, &store.ResourceCredential{
		Kind:            kind,
		ResourceID:      id,
		TokenCiphertext: ciphertext,
		TokenNonce:      nonce,
	})
	if err != nil {
		return fmt.Errorf("failed to store access token: %w", err)
	}
	return nil
}

// loadAccessToken decrypts the stored token, or returns "" when none exists.
func (r *Resolver) loadAccessToken(ctx context.Context, kind api.ResourceKind, id string) (string, error) {
	cred, err := r.Store.GetResourceCredential(ctx, kind, id)
	if errors.Is(err, store.ErrCredentialNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load access token: %w", err)
	}
	plaintext, err := r.Creds.Decrypt(cred.TokenCiphertext, cred.TokenNonce)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt access token: %w", err)
	}
	return string(plaintext), nil
}

// serverForPeriphery loads a server record, checks it is enabled, and
// returns the typed resource for client addressing.
func (r *Resolver) serverForPeriphery(ctx context.Context, rec *store.Record) (*api.Server, error) {
	server, err := toResource[api.ServerConfig, api.ServerInfo](rec)
	if err != nil {
		return nil, err
	}
	if !server.Config.Enabled {
		return nil, api.Conflictf("server %s is disabled", server.Name)
	}
	if server.Config.Address == "" {
		return nil, api.Conflictf("server %s has no address configured", server.Name)
	}
	return server, nil
}

// serverByID resolves a foreign key held in another resource's config.
func (r *Resolver) serverByID(ctx context.Context, id string) (*api.Server, error) {
	if id == "" {
		return nil, api.InvalidRequestf("no server configured")
	}
	rec, err := r.getRecordByID(ctx, api.KindServer, id)
	if err != nil {
		return nil, err
	}
	return r.serverForPeriphery(ctx, rec)
}
