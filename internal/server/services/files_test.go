package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/tenantdrive/internal/common"
	"github.com/dmitrijs2005/tenantdrive/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDownloadAuthorization(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.addUser(t, "u1", "t1", models.RoleMember)
	e.addUser(t, "viewer", "t1", models.RoleViewer)
	e.addUser(t, "guest", "t1", "guest")
	e.addUser(t, "outsider", "t2", models.RoleOwner)
	f := e.upload(t, "u1", "", "a.txt")

	for _, user := range []string{"u1", "viewer"} {
		auth, err := e.files.GetDownloadAuthorization(ctx, user, f.ID)
		require.NoError(t, err, user)
		assert.Equal(t, "memory://file/"+f.B2FileName, auth.DownloadURL)
		assert.NotEmpty(t, auth.AuthorizationToken)
	}

	_, err := e.files.GetDownloadAuthorization(ctx, "guest", f.ID)
	require.ErrorIs(t, err, common.ErrorForbidden)

	_, err = e.files.GetDownloadAuthorization(ctx, "outsider", f.ID)
	require.ErrorIs(t, err, common.ErrorForbidden)

	_, err = e.files.GetDownloadAuthorization(ctx, "u1", "missing")
	require.ErrorIs(t, err, common.ErrorNotFound)

	_, err = e.trash.SoftDeleteFile(ctx, "u1", f.ID)
	require.NoError(t, err)
	_, err = e.files.GetDownloadAuthorization(ctx, "u1", f.ID)
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestGetDownloadAuthorization_LegacyURL(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.addUser(t, "u1", "t1", models.RoleMember)

	legacy := &models.File{
		ID: "old", Name: "old.pdf", TenantID: "t1", Provider: models.ProviderURL,
		URL: "https://cdn.example.com/old.pdf", StorageKey: "old.pdf",
	}
	require.NoError(t, e.rm.Files().Create(ctx, legacy))

	auth, err := e.files.GetDownloadAuthorization(ctx, "u1", "old")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/old.pdf", auth.DownloadURL)
	assert.Empty(t, auth.AuthorizationToken)
}

func TestGetDownloadAuthorization_MissingObject(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.addUser(t, "u1", "t1", models.RoleMember)

	require.NoError(t, e.rm.Files().Create(ctx, &models.File{
		ID: "f1", TenantID: "t1", Provider: models.ProviderBackblaze, StorageKey: "gone",
	}))

	_, err := e.files.GetDownloadAuthorization(ctx, "u1", "f1")
	require.ErrorIs(t, err, common.ErrorStorageProvider)
}
