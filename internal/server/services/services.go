// Package services holds the server's business logic: the multipart upload
// coordinator, the trash lifecycle manager, download authorization, the
// operation journal and the background sweeper.
//
// Every operation receives the acting user id explicitly; role and tenant are
// loaded once at the start and passed to the access guard.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/tenantdrive/internal/common"
	"github.com/dmitrijs2005/tenantdrive/internal/server/models"
	"github.com/dmitrijs2005/tenantdrive/internal/server/repositories/repomanager"
)

// internal marks an unexpected failure; its detail is logged, never shown.
func internal(err error) error {
	return fmt.Errorf("%w: %w", common.ErrorInternal, err)
}

func notFound(what string) error {
	return fmt.Errorf("%s %w", what, common.ErrorNotFound)
}

func forbidden(reason string) error {
	return fmt.Errorf("%w: %s", common.ErrorForbidden, reason)
}

// loadActingUser resolves the user an operation runs as.
func loadActingUser(ctx context.Context, m repomanager.RepositoryManager, userID string) (*models.User, error) {
	if userID == "" {
		return nil, common.Required("userId")
	}
	user, err := m.Users().Get(ctx, userID)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, notFound("user")
	}
	if err != nil {
		return nil, internal(err)
	}
	return user, nil
}
