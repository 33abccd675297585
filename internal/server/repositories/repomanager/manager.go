// Package repomanager vends the document-store repositories and opens the
// configured document store backend.
package repomanager

import (
	"github.com/dmitrijs2005/tenantdrive/internal/server/docstore"
	"github.com/dmitrijs2005/tenantdrive/internal/server/repositories/activity"
	"github.com/dmitrijs2005/tenantdrive/internal/server/repositories/files"
	"github.com/dmitrijs2005/tenantdrive/internal/server/repositories/folders"
	"github.com/dmitrijs2005/tenantdrive/internal/server/repositories/operations"
	"github.com/dmitrijs2005/tenantdrive/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/tenantdrive/internal/server/repositories/trash"
	"github.com/dmitrijs2005/tenantdrive/internal/server/repositories/users"
)

type RepositoryManager interface {
	Users() users.Repository
	Files() files.Repository
	Folders() folders.Repository
	Trash() trash.Repository
	Sessions() sessions.Repository
	Operations() operations.Repository
	Activity() activity.Repository
}

// DocRepositoryManager binds every repository to one document store.
type DocRepositoryManager struct {
	store docstore.Store
}

func NewDocRepositoryManager(store docstore.Store) *DocRepositoryManager {
	return &DocRepositoryManager{store: store}
}

func (m *DocRepositoryManager) Users() users.Repository {
	return users.NewDocRepository(m.store)
}

func (m *DocRepositoryManager) Files() files.Repository {
	return files.NewDocRepository(m.store)
}

func (m *DocRepositoryManager) Folders() folders.Repository {
	return folders.NewDocRepository(m.store)
}

func (m *DocRepositoryManager) Trash() trash.Repository {
	return trash.NewDocRepository(m.store)
}

func (m *DocRepositoryManager) Sessions() sessions.Repository {
	return sessions.NewDocRepository(m.store)
}

func (m *DocRepositoryManager) Operations() operations.Repository {
	return operations.NewDocRepository(m.store)
}

func (m *DocRepositoryManager) Activity() activity.Repository {
	return activity.NewDocRepository(m.store)
}
