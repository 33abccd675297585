// Package files stores File metadata records under "files/<id>".
package files

import (
	"context"

	"github.com/dmitrijs2005/tenantdrive/internal/server/models"
)

const Collection = "files"

type Repository interface {
	Get(ctx context.Context, id string) (*models.File, error)
	Create(ctx context.Context, file *models.File) error
	Update(ctx context.Context, id string, fields map[string]any) error
	Remove(ctx context.Context, id string) error
	ListByTenant(ctx context.Context, tenantID string) ([]*models.File, error)
}
