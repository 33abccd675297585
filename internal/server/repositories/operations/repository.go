// Package operations stores journal entries of multi-step writes under
// "operations/<id>".
package operations

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/tenantdrive/internal/server/docstore"
	"github.com/dmitrijs2005/tenantdrive/internal/server/models"
)

const Collection = "operations"

type Repository interface {
	Save(ctx context.Context, op *models.Operation) error
	ListByStatus(ctx context.Context, status string) ([]*models.Operation, error)
}

type DocRepository struct {
	store docstore.Store
}

func NewDocRepository(store docstore.Store) *DocRepository {
	return &DocRepository{store: store}
}

func (r *DocRepository) Save(ctx context.Context, op *models.Operation) error {
	if err := r.store.Set(ctx, docstore.Join(Collection, op.ID), op); err != nil {
		return fmt.Errorf("failed to save operation: %w", err)
	}
	return nil
}

func (r *DocRepository) ListByStatus(ctx context.Context, status string) ([]*models.Operation, error) {
	var result []*models.Operation
	if err := r.store.Query(ctx, Collection, "status", status, &result); err != nil {
		return nil, fmt.Errorf("failed to select operations: %w", err)
	}
	return result, nil
}
