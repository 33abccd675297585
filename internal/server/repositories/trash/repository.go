// Package trash stores DeletedItem records under "deleted_items/<id>".
package trash

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/tenantdrive/internal/common"
	"github.com/dmitrijs2005/tenantdrive/internal/server/docstore"
	"github.com/dmitrijs2005/tenantdrive/internal/server/models"
)

const Collection = "deleted_items"

type Repository interface {
	Get(ctx context.Context, id string) (*models.DeletedItem, error)
	Create(ctx context.Context, item *models.DeletedItem) error
	Remove(ctx context.Context, id string) error
	ListByTenant(ctx context.Context, tenantID string) ([]*models.DeletedItem, error)
	ListExpired(ctx context.Context, now int64) ([]*models.DeletedItem, error)
}

type DocRepository struct {
	store docstore.Store
}

func NewDocRepository(store docstore.Store) *DocRepository {
	return &DocRepository{store: store}
}

func path(id string) string {
	return docstore.Join(Collection, id)
}

func (r *DocRepository) Get(ctx context.Context, id string) (*models.DeletedItem, error) {
	item := &models.DeletedItem{}
	found, err := r.store.Get(ctx, path(id), item)
	if err != nil {
		return nil, fmt.Errorf("failed to get trash item: %w", err)
	}
	if !found {
		return nil, common.ErrorNotFound
	}
	return item, nil
}

func (r *DocRepository) Create(ctx context.Context, item *models.DeletedItem) error {
	if err := r.store.Set(ctx, path(item.ID), item); err != nil {
		return fmt.Errorf("failed to create trash item: %w", err)
	}
	return nil
}

func (r *DocRepository) Remove(ctx context.Context, id string) error {
	if err := r.store.Remove(ctx, path(id)); err != nil {
		return fmt.Errorf("failed to remove trash item: %w", err)
	}
	return nil
}

func (r *DocRepository) ListByTenant(ctx context.Context, tenantID string) ([]*models.DeletedItem, error) {
	var result []*models.DeletedItem
	if err := r.store.Query(ctx, Collection, "tenant_id", tenantID, &result); err != nil {
		return nil, fmt.Errorf("failed to select trash items: %w", err)
	}
	return result, nil
}

// ListExpired returns records whose expires_at is at or before now.
func (r *DocRepository) ListExpired(ctx context.Context, now int64) ([]*models.DeletedItem, error) {
	var result []*models.DeletedItem
	if err := r.store.QueryAtMost(ctx, Collection, "expires_at", now, &result); err != nil {
		return nil, fmt.Errorf("failed to select expired trash items: %w", err)
	}
	return result, nil
}
