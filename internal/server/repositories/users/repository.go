// Package users stores User records under "users/<id>".
package users

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/tenantdrive/internal/common"
	"github.com/dmitrijs2005/tenantdrive/internal/server/docstore"
	"github.com/dmitrijs2005/tenantdrive/internal/server/models"
)

const Collection = "users"

type Repository interface {
	Get(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

type DocRepository struct {
	store docstore.Store
}

func NewDocRepository(store docstore.Store) *DocRepository {
	return &DocRepository{store: store}
}

func (r *DocRepository) Get(ctx context.Context, id string) (*models.User, error) {
	u := &models.User{}
	found, err := r.store.Get(ctx, docstore.Join(Collection, id), u)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !found {
		return nil, common.ErrorNotFound
	}
	return u, nil
}

func (r *DocRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.store.Set(ctx, docstore.Join(Collection, user.ID), user); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}
