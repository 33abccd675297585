// Package folders stores Folder records under "folders/<id>".
package folders

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/tenantdrive/internal/common"
	"github.com/dmitrijs2005/tenantdrive/internal/server/docstore"
	"github.com/dmitrijs2005/tenantdrive/internal/server/models"
)

const Collection = "folders"

type Repository interface {
	Get(ctx context.Context, id string) (*models.Folder, error)
	Create(ctx context.Context, folder *models.Folder) error
	Update(ctx context.Context, id string, fields map[string]any) error
	Remove(ctx context.Context, id string) error
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

func (r *DocRepository) Get(ctx context.Context, id string) (*models.Folder, error) {
	f := &models.Folder{}
	found, err := r.store.Get(ctx, path(id), f)
	if err != nil {
		return nil, fmt.Errorf("failed to get folder: %w", err)
	}
	if !found {
		return nil, common.ErrorNotFound
	}
	return f, nil
}

func (r *DocRepository) Create(ctx context.Context, folder *models.Folder) error {
	if err := r.store.Set(ctx, path(folder.ID), folder); err != nil {
		return fmt.Errorf("failed to create folder: %w", err)
	}
	return nil
}

func (r *DocRepository) Update(ctx context.Context, id string, fields map[string]any) error {
	if err := r.store.Update(ctx, path(id), fields); err != nil {
		return fmt.Errorf("failed to update folder: %w", err)
	}
	return nil
}

// Remove deletes the folder record only. Files and folders that point at it
// keep their references.
func (r *DocRepository) Remove(ctx context.Context, id string) error {
	if err := r.store.Remove(ctx, path(id)); err != nil {
		return fmt.Errorf("failed to remove folder: %w", err)
	}
	return nil
}
