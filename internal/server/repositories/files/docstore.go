package files

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/tenantdrive/internal/common"
	"github.com/dmitrijs2005/tenantdrive/internal/server/docstore"
	"github.com/dmitrijs2005/tenantdrive/internal/server/models"
)

type DocRepository struct {
	store docstore.Store
}

func NewDocRepository(store docstore.Store) *DocRepository {
	return &DocRepository{store: store}
}

func path(id string) string {
	return docstore.Join(Collection, id)
}

// Get returns common.ErrorNotFound when no record exists.
func (r *DocRepository) Get(ctx context.Context, id string) (*models.File, error) {
	f := &models.File{}
	found, err := r.store.Get(ctx, path(id), f)
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	if !found {
		return nil, common.ErrorNotFound
	}
	return f, nil
}

func (r *DocRepository) Create(ctx context.Context, file *models.File) error {
	if err := r.store.Set(ctx, path(file.ID), file); err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	return nil
}

func (r *DocRepository) Update(ctx context.Context, id string, fields map[string]any) error {
	if err := r.store.Update(ctx, path(id), fields); err != nil {
		return fmt.Errorf("failed to update file: %w", err)
	}
	return nil
}

func (r *DocRepository) Remove(ctx context.Context, id string) error {
	if err := r.store.Remove(ctx, path(id)); err != nil {
		return fmt.Errorf("failed to remove file: %w", err)
	}
	return nil
}

func (r *DocRepository) ListByTenant(ctx context.Context, tenantID string) ([]*models.File, error) {
	var result []*models.File
	if err := r.store.Query(ctx, Collection, "tenant_id", tenantID, &result); err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	return result, nil
}
