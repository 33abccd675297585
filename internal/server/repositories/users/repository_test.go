package users

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/tenantdrive/internal/common"
	"github.com/dmitrijs2005/tenantdrive/internal/server/docstore"
	"github.com/dmitrijs2005/tenantdrive/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewDocRepository(docstore.NewMemoryStore())

	_, err := repo.Get(ctx, "u1")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	want := &models.User{ID: "u1", Email: "a@example.com", TenantID: "t1", Role: models.RoleMember}
	require.NoError(t, repo.Create(ctx, want))

	got, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
