package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/marcoraddatz/komodo/internal/api"
	"github.com/marcoraddatz/komodo/internal/auth"
	"github.com/marcoraddatz/komodo/internal/store"
)

func (r *Resolver) createLoginSecret(ctx context.Context, user api.RequestUser, p api.CreateLoginSecret) (*api.CreatedLoginSecret, error) {
	secret, err := auth.CreateLoginSecret(ctx, r.Store, user.ID, p.Name)
	if err != nil {
		return nil, err
	}
	r.Logger.Info("login secret created", "user_id", user.ID, "name", p.Name)
	return secret, nil
}

type deletedLoginSecret struct {
	Name string `json:"name"`
}

func (r *Resolver) deleteLoginSecret(ctx context.Context, user api.RequestUser, p api.DeleteLoginSecret) (*deletedLoginSecret, error) {
	if err := r.Store.DeleteLoginSecret(ctx, user.ID, p.Name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, api.NotFoundf("no login secret named %q", p.Name)
		}
		return nil, fmt.Errorf("failed to delete login secret: %w", err)
	}
	r.Logger.Info("login secret deleted", "user_id", user.ID, "name", p.Name)
	return &deletedLoginSecret{Name: p.Name}, nil
}
