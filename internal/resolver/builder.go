package resolver

import (
	"context"

	"github.com/marcoraddatz/komodo/internal/api"
	"github.com/marcoraddatz/komodo/internal/permissions"
)

func (r *Resolver) getBuilder(ctx context.Context, user api.RequestUser, p api.GetBuilder) (*api.Builder, error) {
	rec, err := r.findRecord(ctx, api.KindBuilder, p.Builder)
	if err != nil {
		return nil, err
	}
	if err := permissions.Check(user, rec, api.PermissionRead); err != nil {
		return nil, err
	}
	return toResource[api.BuilderConfig, api.BuilderInfo](rec)
}

func (r *Resolver) listBuilders(ctx context.Context, user api.RequestUser, _ api.ListBuilders) ([]*api.Builder, error) {
	recs, err := r.listVisible(ctx, user, api.KindBuilder)
	if err != nil {
		return nil, err
	}
	builders := make([]*api.Builder, 0, len(recs))
	for _, rec := range recs {
		builder, err := toResource[api.BuilderConfig, api.BuilderInfo](rec)
		if err != nil {
			return nil, err
		}
		builders = append(builders, builder)
	}
	return builders, nil
}

func (r *Resolver) createBuilder(ctx context.Context, user api.RequestUser, p api.CreateBuilder) (*api.Builder, error) {
	full, err := r.requireFullUser(ctx, user)
	if err != nil {
		return nil, err
	}
	if err := permissions.CheckCreate(user, full, api.KindBuilder); err != nil {
		return nil, err
	}

	config := p.Config.Apply(api.DefaultBuilderConfig())
	rec, err := r.createRecord(ctx, user, api.KindBuilder, p.Name, config, api.BuilderInfo{})
	if err != nil {
		return nil, err
	}
	return toResource[api.BuilderConfig, api.BuilderInfo](rec)
}

func (r *Resolver) deleteBuilder(ctx context.Context, user api.RequestUser, p api.DeleteBuilder) (*api.Builder, error) {
	rec, err := r.getRecordByID(ctx, api.KindBuilder, p.ID)
	if err != nil {
		return nil, err
	}
	builder, err := toResource[api.BuilderConfig, api.BuilderInfo](rec)
	if err != nil {
		return nil, err
	}
	if err := r.delete(ctx, user, api.KindBuilder, p.ID); err != nil {
		return nil, err
	}
	return builder, nil
}

func (r *Resolver) updateBuilder(ctx context.Context, user api.RequestUser, p api.UpdateBuilder) (*api.Builder, error) {
	rec, err := r.getRecordByID(ctx, api.KindBuilder, p.ID)
	if err != nil {
		return nil, err
	}
	if err := permissions.Check(user, rec, api.PermissionWrite); err != nil {
		return nil, err
	}
	builder, err := toResource[api.BuilderConfig, api.BuilderInfo](rec)
	if err != nil {
		return nil, err
	}

	config := p.Config.Apply(builder.Config)
	if err := r.updateConfig(ctx, rec, config); err != nil {
		return nil, err
	}

	updated, err := toResource[api.BuilderConfig, api.BuilderInfo](rec)
	if err != nil {
		return nil, err
	}
	r.Hub.PublishJSON(api.KindBuilder, rec.ID, "updated", updated)
	return updated, nil
}
