package operations

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

	op := &models.Operation{ID: "op1", Kind: models.OpSoftDelete, Status: models.OpPending}
	require.NoError(t, repo.Save(ctx, op))
	require.NoError(t, repo.Save(ctx, &models.Operation{ID: "op2", Status: models.OpCompleted}))

	op.Steps = append(op.Steps, "flag_set")
	op.Status = models.OpFailed
	require.NoError(t, repo.Save(ctx, op))

	failed, err := repo.ListByStatus(ctx, models.OpFailed)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, []string{"flag_set"}, failed[0].Steps)

	pending, err := repo.ListByStatus(ctx, models.OpPending)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
