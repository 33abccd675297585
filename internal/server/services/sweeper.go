package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/tenantdrive/internal/common"
	"github.com/dmitrijs2005/tenantdrive/internal/logging"
	"github.com/dmitrijs2005/tenantdrive/internal/server/models"
	"github.com/dmitrijs2005/tenantdrive/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/tenantdrive/internal/server/storage"
	"github.com/dmitrijs2005/tenantdrive/internal/timex"
)

// SweepReport counts what one sweep pass did.
type SweepReport struct {
	TrashPurged     int
	TrashFailed     int
	SessionsExpired int
	SessionsFailed  int
}

// Sweeper purges expired trash (record, file record and stored object) and
// aborts upload sessions left open longer than the session TTL. One item
// failing is logged and does not stop the pass.
type Sweeper struct {
	repomanager repomanager.RepositoryManager
	provider    storage.Provider
	clock       timex.Clock
	log         logging.Logger
	interval    time.Duration
	sessionTTL  time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewSweeper(m repomanager.RepositoryManager, provider storage.Provider, clock timex.Clock, log logging.Logger,
	interval, sessionTTL time.Duration) *Sweeper {
	return &Sweeper{
		repomanager: m,
		provider:    provider,
		clock:       clock,
		log:         log.With("module", "sweeper"),
		interval:    interval,
		sessionTTL:  sessionTTL,
	}
}

// SweepExpiredTrash purges every trash record with expires_at <= now.
func (s *Sweeper) SweepExpiredTrash(ctx context.Context, now time.Time) (purged, failed int, err error) {
	items, err := s.repomanager.Trash().ListExpired(ctx, timex.Millis(now))
	if err != nil {
		return 0, 0, internal(err)
	}

	for _, item := range items {
		if ctx.Err() != nil {
			return purged, failed, ctx.Err()
		}
		if err := s.purge(ctx, item); err != nil {
			failed++
			s.log.Error(ctx, "trash purge failed", "trash_id", item.ID, "item_id", item.ItemID, "error", err)
			continue
		}
		purged++
		s.log.Info(ctx, "trash item purged", "trash_id", item.ID, "item_id", item.ItemID, "tenant_id", item.TenantID)
	}
	return purged, failed, nil
}

// purge removes the payload first so a failure never leaves an object
// without a record pointing at it.
func (s *Sweeper) purge(ctx context.Context, item *models.DeletedItem) error {
	if item.ItemType == models.ItemTypeFile {
		file, err := s.repomanager.Files().Get(ctx, item.ItemID)
		switch {
		case errors.Is(err, common.ErrorNotFound):
		case err != nil:
			return fmt.Errorf("load file: %w", err)
		case !file.IsDeleted:
			// restored through another path; only the stale record goes
		default:
			if file.Provider == models.ProviderBackblaze && file.B2FileName != "" {
				if err := s.provider.DeleteFileVersion(ctx, file.StorageKey, file.B2FileName); err != nil {
					return err
				}
			}
			if err := s.repomanager.Files().Remove(ctx, file.ID); err != nil {
				return fmt.Errorf("remove file: %w", err)
			}
		}
	}

	if err := s.repomanager.Trash().Remove(ctx, item.ID); err != nil {
		return fmt.Errorf("remove trash record: %w", err)
	}
	return nil
}

// SweepStaleSessions aborts started upload sessions older than the TTL and
// marks them expired. A session whose abort fails for any reason other than
// the upload being gone stays started and is retried on the next pass.
func (s *Sweeper) SweepStaleSessions(ctx context.Context, now time.Time) (expired, failed int, err error) {
	sessions, err := s.repomanager.Sessions().ListByStatus(ctx, models.SessionStarted)
	if err != nil {
		return 0, 0, internal(err)
	}

	cutoff := timex.Millis(now.Add(-s.sessionTTL))
	for _, session := range sessions {
		if ctx.Err() != nil {
			return expired, failed, ctx.Err()
		}
		if session.StartedAt > cutoff {
			continue
		}

		if _, err := s.provider.CancelLargeFile(ctx, session.FileID); err != nil {
			if !errors.Is(err, storage.ErrUploadNotFound) {
				failed++
				s.log.Error(ctx, "abort of stale upload failed", "file_id", session.FileID, "error", err)
				continue
			}
			s.log.Warn(ctx, "stale upload already gone at the provider", "file_id", session.FileID)
		}

		fields := map[string]any{"status": models.SessionExpired, "updated_at": timex.Millis(now)}
		if err := s.repomanager.Sessions().Update(ctx, session.FileID, fields); err != nil {
			failed++
			s.log.Error(ctx, "stale upload session update failed", "file_id", session.FileID, "error", err)
			continue
		}
		expired++
		s.log.Info(ctx, "stale upload session expired", "file_id", session.FileID, "started_at", session.StartedAt)
	}
	return expired, failed, nil
}

// RunOnce runs both sweeps at the clock's current time.
func (s *Sweeper) RunOnce(ctx context.Context) (*SweepReport, error) {
	now := s.clock.Now()
	report := &SweepReport{}

	var errs []error
	var err error

	report.TrashPurged, report.TrashFailed, err = s.SweepExpiredTrash(ctx, now)
	if err != nil {
		errs = append(errs, fmt.Errorf("trash sweep: %w", err))
	}

	report.SessionsExpired, report.SessionsFailed, err = s.SweepStaleSessions(ctx, now)
	if err != nil {
		errs = append(errs, fmt.Errorf("session sweep: %w", err))
	}

	return report, errors.Join(errs...)
}

// Start runs a sweep immediately and then on every interval until Stop or
// ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("sweeper: already running")
	}
	if s.interval <= 0 {
		s.mu.Unlock()
		return errors.New("sweeper: interval must be positive")
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.run(ctx)
	return nil
}

// Stop cancels the loop and waits for the pass in flight.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.cancel()
	<-s.done
	s.running = false
}

func (s *Sweeper) run(ctx context.Context) {
	defer close(s.done)

	s.runLogged(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runLogged(ctx)
		}
	}
}

func (s *Sweeper) runLogged(ctx context.Context) {
	report, err := s.RunOnce(ctx)
	if err != nil && ctx.Err() == nil {
		s.log.Error(ctx, "sweep failed", "error", err)
	}
	s.log.Info(ctx, "sweep finished",
		"trash_purged", report.TrashPurged, "trash_failed", report.TrashFailed,
		"sessions_expired", report.SessionsExpired, "sessions_failed", report.SessionsFailed)
}
