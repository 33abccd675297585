package activity

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/tenantdrive/internal/server/docstore"
	"github.com/dmitrijs2005/tenantdrive/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewDocRepository(docstore.NewMemoryStore())

	require.NoError(t, repo.Add(ctx, &models.Activity{ID: "a1", TenantID: "t1", Action: "file_deleted"}))
	require.NoError(t, repo.Add(ctx, &models.Activity{ID: "a2", TenantID: "t2", Action: "file_restored"}))

	got, err := repo.ListByTenant(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "file_deleted", got[0].Action)
}
