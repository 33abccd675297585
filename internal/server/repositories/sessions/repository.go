// Package sessions keeps the local ledger of multipart upload sessions under
// "upload_sessions/<key>", where key is derived from the provider file id.
package sessions

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"

	"github.com/dmitrijs2005/tenantdrive/internal/common"
	"github.com/dmitrijs2005/tenantdrive/internal/server/docstore"
	"github.com/dmitrijs2005/tenantdrive/internal/server/models"
)

const Collection = "upload_sessions"

type Repository interface {
	Get(ctx context.Context, fileID string) (*models.UploadSession, error)
	Save(ctx context.Context, session *models.UploadSession) error
	Update(ctx context.Context, fileID string, fields map[string]any) error
	ListByStatus(ctx context.Context, status string) ([]*models.UploadSession, error)
}

type DocRepository struct {
	store docstore.Store
}

func NewDocRepository(store docstore.Store) *DocRepository {
	return &DocRepository{store: store}
}

// Key maps a provider file id, which may contain any character, to a path segment.
func Key(fileID string) string {
	sum := sha1.Sum([]byte(fileID))
	return hex.EncodeToString(sum[:])
}

func path(fileID string) string {
	return docstore.Join(Collection, Key(fileID))
}

func (r *DocRepository) Get(ctx context.Context, fileID string) (*models.UploadSession, error) {
	s := &models.UploadSession{}
	found, err := r.store.Get(ctx, path(fileID), s)
	if err != nil {
		return nil, fmt.Errorf("failed to get upload session: %w", err)
	}
	if !found {
		return nil, common.ErrorNotFound
	}
	return s, nil
}

func (r *DocRepository) Save(ctx context.Context, session *models.UploadSession) error {
	if err := r.store.Set(ctx, path(session.FileID), session); err != nil {
		return fmt.Errorf("failed to save upload session: %w", err)
	}
	return nil
}

func (r *DocRepository) Update(ctx context.Context, fileID string, fields map[string]any) error {
	if err := r.store.Update(ctx, path(fileID), fields); err != nil {
		return fmt.Errorf("failed to update upload session: %w", err)
	}
	return nil
}

func (r *DocRepository) ListByStatus(ctx context.Context, status string) ([]*models.UploadSession, error) {
	var result []*models.UploadSession
	if err := r.store.Query(ctx, Collection, "status", status, &result); err != nil {
		return nil, fmt.Errorf("failed to select upload sessions: %w", err)
	}
	return result, nil
}
