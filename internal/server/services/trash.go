package services

import (
	"context"
	"errors"
	"sort"

	"github.com/dmitrijs2005/tenantdrive/internal/common"
	"github.com/dmitrijs2005/tenantdrive/internal/logging"
	"github.com/dmitrijs2005/tenantdrive/internal/server/access"
	"github.com/dmitrijs2005/tenantdrive/internal/server/models"
	"github.com/dmitrijs2005/tenantdrive/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/tenantdrive/internal/timex"
)

// TrashService soft-deletes files into the trash, restores them, and
// hard-removes folders.
//
// Soft delete is two writes, the is_deleted flag and the trash record, with
// no transaction around them. If the second fails the file stays flagged
// without a record; the journal entry is left failed for repair.
type TrashService struct {
	repomanager repomanager.RepositoryManager
	journal     *Journal
	clock       timex.Clock
	log         logging.Logger
}

func NewTrashService(m repomanager.RepositoryManager, journal *Journal, clock timex.Clock, log logging.Logger) *TrashService {
	return &TrashService{
		repomanager: m,
		journal:     journal,
		clock:       clock,
		log:         log.With("module", "trash"),
	}
}

// RestoreResult says where an item went. RestoredTo is the root when IsRoot.
type RestoreResult struct {
	ItemType   string
	ItemID     string
	RestoredTo models.ParentRef
}

// SoftDeleteFile moves a file to the trash. Files already in the trash are
// reported as not found.
func (s *TrashService) SoftDeleteFile(ctx context.Context, userID, fileID string) (*models.DeletedItem, error) {
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

	if !access.CanModify(user, access.FileResource(file)) {
		s.log.Warn(ctx, "soft delete denied", "user_id", user.ID, "tenant_id", user.TenantID, "file_id", file.ID)
		return nil, forbidden("not allowed to delete this file")
	}

	entry := s.journal.Begin(ctx, models.OpSoftDelete, user.TenantID, user.ID, file.ID)

	now := s.clock.Now()
	ms := timex.Millis(now)

	if err := s.repomanager.Files().Update(ctx, file.ID, map[string]any{"is_deleted": true, "updated_at": ms}); err != nil {
		entry.Fail(ctx, err)
		return nil, internal(err)
	}
	entry.Step(ctx, "flag_set")

	id, err := common.NewTimestampedID("del", now)
	if err != nil {
		entry.Fail(ctx, err)
		s.log.Error(ctx, "file flagged deleted without trash record", "operation_id", entry.ID(), "file_id", file.ID, "error", err)
		return nil, internal(err)
	}

	item := &models.DeletedItem{
		ID:           id,
		ItemType:     models.ItemTypeFile,
		ItemID:       file.ID,
		ItemName:     file.Name,
		OriginalPath: models.ParentOf(file.FolderID),
		TenantID:     file.TenantID,
		DeletedBy:    user.ID,
		DeletedAt:    ms,
		ExpiresAt:    models.ExpiresAt(ms),
		Size:         file.Size,
		MimeType:     file.MimeType,
	}

	if err := s.repomanager.Trash().Create(ctx, item); err != nil {
		entry.Fail(ctx, err)
		s.log.Error(ctx, "file flagged deleted without trash record", "operation_id", entry.ID(), "file_id", file.ID, "error", err)
		return nil, internal(err)
	}
	entry.Step(ctx, "trash_created")
	entry.Complete(ctx)

	recordActivity(ctx, s.repomanager.Activity(), s.clock, s.log, user, ActionFileDeleted, models.ItemTypeFile, file.ID)

	s.log.Info(ctx, "file moved to trash", "file_id", file.ID, "trash_id", item.ID, "tenant_id", item.TenantID)
	return item, nil
}

// RemoveFolder deletes a folder record outright. No trash record is written
// and files or folders inside it keep pointing at the removed id.
func (s *TrashService) RemoveFolder(ctx context.Context, userID, folderID string) error {
	user, err := loadActingUser(ctx, s.repomanager, userID)
	if err != nil {
		return err
	}

	folder, err := s.repomanager.Folders().Get(ctx, folderID)
	if errors.Is(err, common.ErrorNotFound) {
		return notFound("folder")
	}
	if err != nil {
		return internal(err)
	}

	if !access.CanModify(user, access.FolderResource(folder)) {
		s.log.Warn(ctx, "folder delete denied", "user_id", user.ID, "tenant_id", user.TenantID, "folder_id", folder.ID)
		return forbidden("not allowed to delete this folder")
	}

	if err := s.repomanager.Folders().Remove(ctx, folder.ID); err != nil {
		return internal(err)
	}

	recordActivity(ctx, s.repomanager.Activity(), s.clock, s.log, user, ActionFolderRemoved, models.ItemTypeFolder, folder.ID)

	s.log.Warn(ctx, "folder hard-removed without trash record, children untouched",
		"folder_id", folder.ID, "tenant_id", folder.TenantID)
	return nil
}

// Restore puts a trashed item back at destination, or where it was deleted
// from when destination is empty. "null" means the tenant root. A record of
// another tenant is reported as not found. Children of a restored folder are
// not restored.
func (s *TrashService) Restore(ctx context.Context, userID, deletedItemID, destination string) (*RestoreResult, error) {
	user, err := loadActingUser(ctx, s.repomanager, userID)
	if err != nil {
		return nil, err
	}
	if deletedItemID == "" {
		return nil, common.Required("id")
	}

	item, err := s.repomanager.Trash().Get(ctx, deletedItemID)
	if errors.Is(err, common.ErrorNotFound) || (err == nil && !access.Authorize(user, item.TenantID)) {
		return nil, notFound("trash item")
	}
	if err != nil {
		return nil, internal(err)
	}

	location := item.OriginalPath
	if destination != "" {
		location = models.ParseParentRef(destination)
		if !location.IsRoot() {
			if err := s.checkDestination(ctx, user, location); err != nil {
				return nil, err
			}
		}
	}

	entry := s.journal.Begin(ctx, models.OpRestore, user.TenantID, user.ID, item.ItemID)
	now := timex.Millis(s.clock.Now())

	switch item.ItemType {
	case models.ItemTypeFile:
		err = s.restoreFile(ctx, user, item, location, now)
	case models.ItemTypeFolder:
		err = s.restoreFolder(ctx, user, item, location, now)
	default:
		err = internal(errors.New("unknown item type " + item.ItemType))
	}
	if err != nil {
		entry.Fail(ctx, err)
		return nil, err
	}
	entry.Step(ctx, "restored")

	if err := s.repomanager.Trash().Remove(ctx, item.ID); err != nil {
		entry.Fail(ctx, err)
		s.log.Error(ctx, "item restored but trash record remains", "operation_id", entry.ID(), "trash_id", item.ID, "error", err)
		return nil, internal(err)
	}
	entry.Step(ctx, "trash_removed")
	entry.Complete(ctx)

	recordActivity(ctx, s.repomanager.Activity(), s.clock, s.log, user, ActionItemRestored, item.ItemType, item.ItemID)

	s.log.Info(ctx, "item restored", "trash_id", item.ID, "item_id", item.ItemID, "restored_to", location.String())
	return &RestoreResult{ItemType: item.ItemType, ItemID: item.ItemID, RestoredTo: location}, nil
}

func (s *TrashService) checkDestination(ctx context.Context, user *models.User, location models.ParentRef) error {
	folder, err := s.repomanager.Folders().Get(ctx, *location.FolderID())
	if errors.Is(err, common.ErrorNotFound) || (err == nil && !access.Authorize(user, folder.TenantID)) {
		return notFound("destination folder")
	}
	if err != nil {
		return internal(err)
	}
	return nil
}

func (s *TrashService) restoreFile(ctx context.Context, user *models.User, item *models.DeletedItem, location models.ParentRef, now int64) error {
	file, err := s.repomanager.Files().Get(ctx, item.ItemID)
	if errors.Is(err, common.ErrorNotFound) {
		return notFound("file")
	}
	if err != nil {
		return internal(err)
	}
	if !access.CanModify(user, access.FileResource(file)) {
		return forbidden("not allowed to restore this file")
	}

	fields := map[string]any{"is_deleted": false, "folder_id": location.FolderID(), "updated_at": now}
	if err := s.repomanager.Files().Update(ctx, file.ID, fields); err != nil {
		return internal(err)
	}
	return nil
}

func (s *TrashService) restoreFolder(ctx context.Context, user *models.User, item *models.DeletedItem, location models.ParentRef, now int64) error {
	folder, err := s.repomanager.Folders().Get(ctx, item.ItemID)
	if errors.Is(err, common.ErrorNotFound) {
		return notFound("folder")
	}
	if err != nil {
		return internal(err)
	}
	if !access.CanModify(user, access.FolderResource(folder)) {
		return forbidden("not allowed to restore this folder")
	}

	fields := map[string]any{"parent_id": location.FolderID(), "updated_at": now}
	if err := s.repomanager.Folders().Update(ctx, folder.ID, fields); err != nil {
		return internal(err)
	}
	return nil
}

// ListTrash returns the acting user's tenant trash, newest first.
func (s *TrashService) ListTrash(ctx context.Context, userID string) ([]*models.DeletedItem, error) {
	user, err := loadActingUser(ctx, s.repomanager, userID)
	if err != nil {
		return nil, err
	}

	items, err := s.repomanager.Trash().ListByTenant(ctx, user.TenantID)
	if err != nil {
		return nil, internal(err)
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].DeletedAt > items[j].DeletedAt })
	return items, nil
}
