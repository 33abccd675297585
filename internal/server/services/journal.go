package services

import (
	"context"

	"github.com/dmitrijs2005/tenantdrive/internal/logging"
	"github.com/dmitrijs2005/tenantdrive/internal/server/models"
	"github.com/dmitrijs2005/tenantdrive/internal/server/repositories/operations"
	"github.com/dmitrijs2005/tenantdrive/internal/timex"
	"github.com/google/uuid"
)

// Journal records the completed steps of non-transactional multi-step writes.
// An operation left pending or failed tells an operator exactly which writes
// happened. Journal writes never fail the operation they describe.
type Journal struct {
	repo  operations.Repository
	clock timex.Clock
	log   logging.Logger
}

func NewJournal(repo operations.Repository, clock timex.Clock, log logging.Logger) *Journal {
	return &Journal{repo: repo, clock: clock, log: log.With("module", "journal")}
}

// JournalEntry is one running operation.
type JournalEntry struct {
	j  *Journal
	op *models.Operation
}

// Begin opens a pending operation.
func (j *Journal) Begin(ctx context.Context, kind, tenantID, userID, itemID string) *JournalEntry {
	now := timex.Millis(j.clock.Now())
	e := &JournalEntry{j: j, op: &models.Operation{
		ID:        uuid.NewString(),
		Kind:      kind,
		TenantID:  tenantID,
		UserID:    userID,
		ItemID:    itemID,
		Steps:     []string{},
		Status:    models.OpPending,
		CreatedAt: now,
		UpdatedAt: now,
	}}
	e.save(ctx)
	return e
}

func (e *JournalEntry) ID() string { return e.op.ID }

// Step marks a write as done.
func (e *JournalEntry) Step(ctx context.Context, name string) {
	e.op.Steps = append(e.op.Steps, name)
	e.save(ctx)
}

func (e *JournalEntry) Complete(ctx context.Context) {
	e.op.Status = models.OpCompleted
	e.save(ctx)
}

// Fail records err and leaves the steps done so far for reconciliation.
func (e *JournalEntry) Fail(ctx context.Context, err error) {
	e.op.Status = models.OpFailed
	if err != nil {
		e.op.Error = err.Error()
	}
	e.save(ctx)
}

func (e *JournalEntry) save(ctx context.Context) {
	e.op.UpdatedAt = timex.Millis(e.j.clock.Now())
	if err := e.j.repo.Save(ctx, e.op); err != nil {
		e.j.log.Warn(ctx, "journal write failed",
			"operation_id", e.op.ID, "kind", e.op.Kind, "status", e.op.Status, "error", err)
	}
}

// ListIncomplete returns pending and failed operations.
func (j *Journal) ListIncomplete(ctx context.Context) ([]*models.Operation, error) {
	var result []*models.Operation
	for _, status := range []string{models.OpPending, models.OpFailed} {
		ops, err := j.repo.ListByStatus(ctx, status)
		if err != nil {
			return nil, internal(err)
		}
		result = append(result, ops...)
	}
	return result, nil
}

