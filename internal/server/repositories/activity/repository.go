// Package activity appends audit entries under "activity/<id>".
package activity

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/tenantdrive/internal/server/docstore"
	"github.com/dmitrijs2005/tenantdrive/internal/server/models"
)

const Collection = "activity"

type Repository interface {
	Add(ctx context.Context, a *models.Activity) error
	ListByTenant(ctx context.Context, tenantID string) ([]*models.Activity, error)
}

type DocRepository struct {
	store docstore.Store
}

func NewDocRepository(store docstore.Store) *DocRepository {
	return &DocRepository{store: store}
}

func (r *DocRepository) Add(ctx context.Context, a *models.Activity) error {
	if err := r.store.Set(ctx, docstore.Join(Collection, a.ID), a); err != nil {
		return fmt.Errorf("failed to add activity: %w", err)
	}
	return nil
}

func (r *DocRepository) ListByTenant(ctx context.Context, tenantID string) ([]*models.Activity, error) {
	var result []*models.Activity
	if err := r.store.Query(ctx, Collection, "tenant_id", tenantID, &result); err != nil {
		return nil, fmt.Errorf("failed to select activity: %w", err)
	}
	return result, nil
}
