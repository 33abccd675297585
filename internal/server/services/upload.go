package services

import (
	"context"
	"encoding/hex"
	"errors"

	"github.com/dmitrijs2005/tenantdrive/internal/common"
	"github.com/dmitrijs2005/tenantdrive/internal/logging"
	"github.com/dmitrijs2005/tenantdrive/internal/server/access"
	"github.com/dmitrijs2005/tenantdrive/internal/server/models"
	"github.com/dmitrijs2005/tenantdrive/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/tenantdrive/internal/server/storage"
	"github.com/dmitrijs2005/tenantdrive/internal/timex"
	"github.com/google/uuid"
)

// UploadService coordinates large uploads: start, per-part URLs, then finish
// or cancel. The provider holds the session; the local ledger only mirrors it
// so abandoned sessions can be swept.
type UploadService struct {
	repomanager repomanager.RepositoryManager
	provider    storage.Provider
	journal     *Journal
	clock       timex.Clock
	log         logging.Logger
}

func NewUploadService(m repomanager.RepositoryManager, provider storage.Provider, journal *Journal,
	clock timex.Clock, log logging.Logger) *UploadService {
	return &UploadService{
		repomanager: m,
		provider:    provider,
		journal:     journal,
		clock:       clock,
		log:         log.With("module", "uploads"),
	}
}

// FinishRequest carries the inputs of FinishLargeFile. Optional values are
// empty strings or a nil FileSize.
type FinishRequest struct {
	FileID        string
	PartSha1Array []string
	FileName      string
	FileSize      *int64
	ContentType   string
	FolderID      string
	UserID        string
}

// FinishResult is the persisted record and the provider's object id.
type FinishResult struct {
	File     *models.File
	B2FileID string
}

// GetUploadURL returns a single-shot upload destination.
func (s *UploadService) GetUploadURL(ctx context.Context) (*storage.UploadTarget, error) {
	return s.provider.GetUploadURL(ctx)
}

func (s *UploadService) StartLargeFile(ctx context.Context, fileName, contentType, userID string) (*storage.LargeFile, error) {
	if fileName == "" {
		return nil, common.Required("fileName")
	}

	lf, err := s.provider.StartLargeFile(ctx, fileName, contentType)
	if err != nil {
		s.log.Error(ctx, "start large file failed", "file_name", fileName, "error", err)
		return nil, err
	}

	now := timex.Millis(s.clock.Now())
	session := &models.UploadSession{
		FileID:      lf.FileID,
		FileName:    lf.FileName,
		ContentType: contentType,
		UserID:      userID,
		Status:      models.SessionStarted,
		StartedAt:   now,
		UpdatedAt:   now,
	}
	if userID != "" {
		if user, err := s.repomanager.Users().Get(ctx, userID); err == nil {
			session.TenantID = user.TenantID
		}
	}
	if err := s.repomanager.Sessions().Save(ctx, session); err != nil {
		s.log.Warn(ctx, "upload session ledger write failed", "file_id", lf.FileID, "error", err)
	}

	s.log.Info(ctx, "large file started", "file_id", lf.FileID, "file_name", lf.FileName)
	return lf, nil
}

// GetUploadPartURL does not check the session; the provider rejects unknown
// or expired ones itself. partSha1 is the hex SHA-1 of the part's bytes.
func (s *UploadService) GetUploadPartURL(ctx context.Context, fileID string, partNumber int, partSha1 string) (*storage.UploadTarget, error) {
	if fileID == "" {
		return nil, common.Required("fileId")
	}
	if partNumber < 0 || partNumber > 10000 {
		return nil, common.Invalid("partNumber", "must be between 1 and 10000")
	}
	if partSha1 != "" && !isSHA1Hex(partSha1) {
		return nil, common.Invalid("sha1", "must be a hex SHA-1 digest")
	}
	if partNumber == 0 {
		partNumber = 1
	}

	target, err := s.provider.GetUploadPartURL(ctx, fileID, partNumber, partSha1)
	if err != nil {
		return nil, err
	}

	s.notePartIssued(ctx, fileID, partNumber)
	return target, nil
}

func isSHA1Hex(s string) bool {
	b, err := hex.DecodeString(s)
	return err == nil && len(b) == 20
}

func (s *UploadService) notePartIssued(ctx context.Context, fileID string, partNumber int) {
	session, err := s.repomanager.Sessions().Get(ctx, fileID)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			s.log.Warn(ctx, "upload session ledger read failed", "file_id", fileID, "error", err)
		}
		return
	}
	if partNumber <= session.PartsIssued {
		return
	}
	fields := map[string]any{"parts_issued": partNumber, "updated_at": timex.Millis(s.clock.Now())}
	if err := s.repomanager.Sessions().Update(ctx, fileID, fields); err != nil {
		s.log.Warn(ctx, "upload session ledger write failed", "file_id", fileID, "error", err)
	}
}

func (r *FinishRequest) validate() error {
	if r.FileID == "" {
		return common.Required("fileId")
	}
	if len(r.PartSha1Array) == 0 {
		return common.Required("partSha1Array")
	}
	for _, sum := range r.PartSha1Array {
		if sum == "" {
			return common.Invalid("partSha1Array", "must not contain empty checksums")
		}
	}
	if r.FileName == "" {
		return common.Required("fileName")
	}
	if r.FileSize != nil && *r.FileSize < 0 {
		return common.Invalid("fileSize", "must not be negative")
	}
	return nil
}

// FinishLargeFile assembles the object and persists its File record. Every
// check runs before the provider call. Once the object is assembled nothing
// is rolled back: a failed record write leaves an orphaned object, which is
// logged and journaled for repair.
func (s *UploadService) FinishLargeFile(ctx context.Context, req FinishRequest) (*FinishResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	var user *models.User
	if req.UserID != "" {
		u, err := s.repomanager.Users().Get(ctx, req.UserID)
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.Invalid("userId", "does not exist")
		}
		if err != nil {
			return nil, internal(err)
		}
		user = u
	}

	var tenantID string
	if user != nil {
		tenantID = user.TenantID
	}

	var folderID *string
	if req.FolderID != "" {
		folder, err := s.repomanager.Folders().Get(ctx, req.FolderID)
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.Invalid("folderId", "does not exist")
		}
		if err != nil {
			return nil, internal(err)
		}
		if user != nil && !access.Authorize(user, folder.TenantID) {
			return nil, forbidden("folder belongs to another tenant")
		}
		tenantID = folder.TenantID
		folderID = &folder.ID
	}

	entry := s.journal.Begin(ctx, models.OpFinishUpload, tenantID, req.UserID, req.FileID)

	lf, err := s.provider.FinishLargeFile(ctx, req.FileID, req.PartSha1Array)
	if err != nil {
		entry.Fail(ctx, err)
		s.log.Error(ctx, "finish large file failed, provider session may remain",
			"file_id", req.FileID, "error", err)
		return nil, err
	}
	entry.Step(ctx, "assembled")

	var size int64
	if req.FileSize != nil {
		size = *req.FileSize
	}
	mimeType := req.ContentType
	if mimeType == "" {
		mimeType = common.DefaultMimeType
	}

	now := timex.Millis(s.clock.Now())
	file := &models.File{
		ID:         uuid.NewString(),
		Name:       req.FileName,
		FolderID:   folderID,
		TenantID:   tenantID,
		UploadedBy: req.UserID,
		Size:       size,
		MimeType:   mimeType,
		StorageKey: lf.FileID,
		B2FileName: lf.FileName,
		Provider:   models.ProviderBackblaze,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repomanager.Files().Create(ctx, file); err != nil {
		entry.Fail(ctx, err)
		s.log.Error(ctx, "file record write failed, object is orphaned",
			"operation_id", entry.ID(), "storage_key", lf.FileID, "b2_file_name", lf.FileName, "error", err)
		return nil, internal(err)
	}
	entry.Step(ctx, "persisted")
	entry.Complete(ctx)

	s.closeSession(ctx, req.FileID, models.SessionFinished)
	if user != nil {
		recordActivity(ctx, s.repomanager.Activity(), s.clock, s.log, user, ActionFileUploaded, models.ItemTypeFile, file.ID)
	}

	s.log.Info(ctx, "large file finished", "file_id", file.ID, "storage_key", file.StorageKey, "tenant_id", tenantID)
	return &FinishResult{File: file, B2FileID: lf.FileID}, nil
}

// CancelLargeFile aborts the session. Cancelling a finished, cancelled or
// unknown session surfaces the provider's error unchanged.
func (s *UploadService) CancelLargeFile(ctx context.Context, fileID string) (bool, error) {
	if fileID == "" {
		return false, common.Required("fileId")
	}

	cancelled, err := s.provider.CancelLargeFile(ctx, fileID)
	if err != nil {
		s.log.Warn(ctx, "cancel large file failed", "file_id", fileID, "error", err)
		return false, err
	}

	s.closeSession(ctx, fileID, models.SessionCancelled)
	return cancelled, nil
}

func (s *UploadService) closeSession(ctx context.Context, fileID, status string) {
	if _, err := s.repomanager.Sessions().Get(ctx, fileID); err != nil {
		return
	}
	fields := map[string]any{"status": status, "updated_at": timex.Millis(s.clock.Now())}
	if err := s.repomanager.Sessions().Update(ctx, fileID, fields); err != nil {
		s.log.Warn(ctx, "upload session ledger write failed", "file_id", fileID, "error", err)
	}
}
