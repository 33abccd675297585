package services

import (
	"context"

	"github.com/dmitrijs2005/tenantdrive/internal/logging"
	"github.com/dmitrijs2005/tenantdrive/internal/server/models"
	"github.com/dmitrijs2005/tenantdrive/internal/server/repositories/activity"
	"github.com/dmitrijs2005/tenantdrive/internal/timex"
	"github.com/google/uuid"
)

// Audit actions.
const (
	ActionFileUploaded  = "file_uploaded"
	ActionFileDeleted   = "file_deleted"
	ActionFolderRemoved = "folder_removed"
	ActionItemRestored  = "item_restored"
)

// recordActivity appends an audit entry. Failures are logged and dropped.
func recordActivity(ctx context.Context, repo activity.Repository, clock timex.Clock, log logging.Logger,
	user *models.User, action, itemType, itemID string) {
	a := &models.Activity{
		ID:       uuid.NewString(),
		TenantID: user.TenantID,
		UserID:   user.ID,
		Action:   action,
		ItemType: itemType,
		ItemID:   itemID,
		At:       timex.Millis(clock.Now()),
	}
	if err := repo.Add(ctx, a); err != nil {
		log.Warn(ctx, "activity write failed", "action", action, "item_id", itemID, "error", err)
	}
}
