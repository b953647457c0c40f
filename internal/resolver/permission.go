package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/marcoraddatz/komodo/internal/api"
	"github.com/marcoraddatz/komodo/internal/permissions"
	"github.com/marcoraddatz/komodo/internal/store"
)

func (r *Resolver) updateUserPermissions(ctx context.Context, user api.RequestUser, p api.UpdateUserPermissions) (*api.User, error) {
	if err := permissions.CheckAdmin(user); err != nil {
		return nil, err
	}

	target, err := r.Store.GetUser(ctx, p.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, api.NotFoundf("no user with id %q", p.UserID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if target.Admin {
		return nil, api.PermissionDeniedf("cannot modify permissions of an admin user")
	}

	if err := r.Store.UpdateUserFlags(ctx, p.UserID, p.Enabled, p.CreateServers, p.CreateBuilds); err != nil {
		return nil, fmt.Errorf("failed to update user flags: %w", err)
	}
	r.Logger.Info("user permissions updated", "target_user_id", p.UserID, "by", user.ID)

	updated, err := r.Store.GetUser(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload user: %w", err)
	}
	return updated, nil
}

func (r *Resolver) updateUserPermissionsOnTarget(ctx context.Context, user api.RequestUser, p api.UpdateUserPermissionsOnTarget) (*api.ResourceMeta, error) {
	if err := permissions.CheckAdmin(user); err != nil {
		return nil, err
	}
	if !api.ValidKind(p.Kind) {
		return nil, api.InvalidRequestf("unknown resource kind %q", p.Kind)
	}
	if !api.ValidPermissionLevel(p.Permission) {
		return nil, api.InvalidRequestf("unknown permission level %q", p.Permission)
	}

	target, err := r.Store.GetUser(ctx, p.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, api.NotFoundf("no user with id %q", p.UserID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if target.Admin {
		return nil, api.PermissionDeniedf("admins already hold every permission")
	}

	if _, err := r.getRecordByID(ctx, p.Kind, p.ResourceID); err != nil {
		return nil, err
	}
	if err := r.Store.SetResourcePermission(ctx, p.Kind, p.ResourceID, p.UserID, p.Permission); err != nil {
		return nil, fmt.Errorf("failed to set permission: %w", err)
	}
	r.Logger.Info("resource permission updated",
		"kind", p.Kind, "resource_id", p.ResourceID,
		"target_user_id", p.UserID, "level", p.Permission, "by", user.ID)

	rec, err := r.getRecordByID(ctx, p.Kind, p.ResourceID)
	if err != nil {
		return nil, err
	}
	meta := metaOf(rec)
	return &meta, nil
}
