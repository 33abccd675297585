package services

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/tenantdrive/internal/common"
	"github.com/dmitrijs2005/tenantdrive/internal/logging"
	"github.com/dmitrijs2005/tenantdrive/internal/server/access"
	"github.com/dmitrijs2005/tenantdrive/internal/server/models"
	"github.com/dmitrijs2005/tenantdrive/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/tenantdrive/internal/server/storage"
)

// FileService issues download authorizations for stored files.
type FileService struct {
	repomanager repomanager.RepositoryManager
	provider    storage.Provider
	validFor    time.Duration
	log         logging.Logger
}

func NewFileService(m repomanager.RepositoryManager, provider storage.Provider, validFor time.Duration, log logging.Logger) *FileService {
	return &FileService{
		repomanager: m,
		provider:    provider,
		validFor:    validFor,
		log:         log.With("module", "files"),
	}
}

// GetDownloadAuthorization returns a time-limited download for a file the
// user may view. Legacy url records return their url as is.
func (s *FileService) GetDownloadAuthorization(ctx context.Context, userID, fileID string) (*storage.DownloadAuthorization, error) {
	user, err := loadActingUser(ctx, s.repomanager, userID)
	if err != nil {
		return nil, err
	}

	file, err := s.repomanager.Files().Get(ctx, fileID)
	if errors.Is(err, common.ErrorNotFound) || (err == nil && file.IsDeleted) {
		return nil, notFound("file")
	}
	if err != nil {
		return nil, internal(err)
	}

	if !access.CanView(user, access.FileResource(file)) {
		return nil, forbidden("not allowed to download this file")
	}

	if file.Provider == models.ProviderURL {
		return &storage.DownloadAuthorization{DownloadURL: file.URL}, nil
	}

	name := file.B2FileName
	if name == "" {
		name = file.StorageKey
	}
	auth, err := s.provider.GetDownloadAuthorization(ctx, name, s.validFor)
	if err != nil {
		s.log.Error(ctx, "download authorization failed", "file_id", file.ID, "error", err)
		return nil, err
	}
	return auth, nil
}
