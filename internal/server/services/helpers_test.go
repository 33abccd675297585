package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/tenantdrive/internal/logging"
	"github.com/dmitrijs2005/tenantdrive/internal/server/docstore"
	"github.com/dmitrijs2005/tenantdrive/internal/server/models"
	"github.com/dmitrijs2005/tenantdrive/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/tenantdrive/internal/server/storage"
	"github.com/dmitrijs2005/tenantdrive/internal/timex"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// faultyStore fails writes to paths under failPrefix.
type faultyStore struct {
	docstore.Store
	failPrefix string
}

var errStoreDown = errors.New("store unavailable")

func (s *faultyStore) Set(ctx context.Context, path string, value any) error {
	if s.failPrefix != "" && strings.HasPrefix(path, s.failPrefix) {
		return errStoreDown
	}
	return s.Store.Set(ctx, path, value)
}

func (s *faultyStore) Update(ctx context.Context, path string, fields map[string]any) error {
	if s.failPrefix != "" && strings.HasPrefix(path, s.failPrefix) {
		return errStoreDown
	}
	return s.Store.Update(ctx, path, fields)
}

type env struct {
	store    *faultyStore
	rm       *repomanager.DocRepositoryManager
	provider *storage.MemoryProvider
	clock    *timex.StubClock
	journal  *Journal
	uploads  *UploadService
	trash    *TrashService
	files    *FileService
	sweeper  *Sweeper
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := &faultyStore{Store: docstore.NewMemoryStore()}
	rm := repomanager.NewDocRepositoryManager(store)
	provider := storage.NewMemoryProvider()
	clock := timex.NewStubClock(epoch)
	log := logging.NopLogger{}
	journal := NewJournal(rm.Operations(), clock, log)

	return &env{
		store:    store,
		rm:       rm,
		provider: provider,
		clock:    clock,
		journal:  journal,
		uploads:  NewUploadService(rm, provider, journal, clock, log),
		trash:    NewTrashService(rm, journal, clock, log),
		files:    NewFileService(rm, provider, 15*time.Minute, log),
		sweeper:  NewSweeper(rm, provider, clock, log, time.Hour, 24*time.Hour),
	}
}

func (e *env) addUser(t *testing.T, id, tenant, role string) *models.User {
	t.Helper()
	u := &models.User{ID: id, Email: id + "@example.com", TenantID: tenant, Role: role}
	require.NoError(t, e.rm.Users().Create(context.Background(), u))
	return u
}

func (e *env) addFolder(t *testing.T, id, tenant string, parent *string) *models.Folder {
	t.Helper()
	f := &models.Folder{ID: id, Name: id, TenantID: tenant, ParentID: parent, CreatedAt: timex.Millis(epoch)}
	require.NoError(t, e.rm.Folders().Create(context.Background(), f))
	return f
}

// upload runs a full start/finish cycle and returns the stored record.
func (e *env) upload(t *testing.T, userID, folderID, name string) *models.File {
	t.Helper()
	ctx := context.Background()

	lf, err := e.uploads.StartLargeFile(ctx, name, "text/plain", userID)
	require.NoError(t, err)
	res, err := e.uploads.FinishLargeFile(ctx, FinishRequest{
		FileID:        lf.FileID,
		PartSha1Array: []string{"da39a3ee5e6b4b0d3255bfef95601890afd80709"},
		FileName:      name,
		ContentType:   "text/plain",
		FolderID:      folderID,
		UserID:        userID,
	})
	require.NoError(t, err)
	return res.File
}

func (e *env) allTrash(t *testing.T) []*models.DeletedItem {
	t.Helper()
	var items []*models.DeletedItem
	require.NoError(t, e.store.List(context.Background(), "deleted_items", &items))
	return items
}

func (e *env) allFiles(t *testing.T) []*models.File {
	t.Helper()
	var files []*models.File
	require.NoError(t, e.store.List(context.Background(), "files", &files))
	return files
}

func (e *env) operations(t *testing.T, status string) []*models.Operation {
	t.Helper()
	ops, err := e.rm.Operations().ListByStatus(context.Background(), status)
	require.NoError(t, err)
	return ops
}

func strPtr(s string) *string { return &s }
