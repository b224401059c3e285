// Package records holds the field-agent operations on defect records:
// create, edit, delete and submit for synchronization.
package records

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/garnizeh/pqrs/internal/radicado"
	"github.com/garnizeh/pqrs/pkg/models"
	"github.com/garnizeh/pqrs/pkg/repository"
)

// FormVersion is stamped on records created without one.
const FormVersion = "1.0"

const maxRadicadoAttempts = 5

// Syncer is satisfied by *syncengine.Engine.
type Syncer interface {
	Enqueue(ctx context.Context, id string, action models.Action) (int64, error)
	Trigger()
}

type Service struct {
	store  repository.RecordStore
	sync   Syncer
	logger *slog.Logger
	now    func() time.Time
}

func NewService(store repository.RecordStore, sync Syncer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, sync: sync, logger: logger, now: time.Now}
}

// WithClock replaces the time source used for default timestamps and case
// numbers.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.now = clock
	return s
}

// Create fills defaults and stores a new record. A generated case number
// that collides is regenerated; a caller supplied one is not.
func (s *Service) Create(ctx context.Context, rec *models.DefectRecord) (*models.DefectRecord, error) {
	if rec == nil {
		return nil, fmt.Errorf("record is nil")
	}
	now := s.now()

	rec.ID = ""
	generated := rec.Radicado == ""
	if !generated && !radicado.Validate(rec.Radicado) {
		return nil, models.NewValidationError([]string{fmt.Sprintf("radicado %q must look like PQRS-YYYYMMDD-NNNNN", rec.Radicado)})
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = now.UTC()
	}
	if rec.FormVersion == "" {
		rec.FormVersion = FormVersion
	}
	if rec.Operation.Status == "" {
		rec.Operation.Status = models.StatusRegistered
	}
	rec.SyncState = models.SyncLocalOnly
	rec.SyncError, rec.SyncAttempts, rec.LastSyncAttempt = "", 0, nil

	for attempt := 1; ; attempt++ {
		if generated {
			rec.Radicado = radicado.Generate(now)
		}
		_, err := s.store.Save(ctx, rec)
		if err == nil {
			break
		}
		rec.ID = ""
		if !generated || !errors.Is(err, models.ErrConflict) || attempt >= maxRadicadoAttempts {
			return nil, err
		}
		s.logger.Debug("radicado collision, regenerating", "radicado", rec.Radicado, "attempt", attempt)
	}

	s.logger.Info("record created", "record_id", rec.ID, "radicado", rec.Radicado, "severity", rec.Severity.Level)
	return rec, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.DefectRecord, error) {
	return s.store.Get(ctx, id)
}

// List returns every record, or only those in state when it is set, newest
// first.
func (s *Service) List(ctx context.Context, state models.SyncState) ([]models.DefectRecord, error) {
	var (
		recs []models.DefectRecord
		err  error
	)
	switch {
	case state == "":
		recs, err = s.store.List(ctx)
	case !state.Valid():
		return nil, models.NewValidationError([]string{fmt.Sprintf("unknown sync state %q", state)})
	default:
		recs, err = s.store.ListByState(ctx, state)
	}
	if err != nil {
		return nil, err
	}
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Timestamp.After(recs[j].Timestamp) })
	return recs, nil
}

// Update replaces the editable fields of record id. Identity, case number and
// capture time are kept from the stored record.
func (s *Service) Update(ctx context.Context, id string, rec *models.DefectRecord) (*models.DefectRecord, error) {
	if rec == nil {
		return nil, fmt.Errorf("record is nil")
	}
	existing, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("record %s: %w", id, models.ErrNotFound)
	}

	rec.ID = existing.ID
	rec.Radicado = existing.Radicado
	rec.Timestamp = existing.Timestamp
	if rec.FormVersion == "" {
		rec.FormVersion = existing.FormVersion
	}
	if rec.Operation.Status == "" {
		rec.Operation.Status = existing.Operation.Status
	}
	if _, err := s.store.Save(ctx, rec); err != nil {
		return nil, err
	}

	return s.store.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	existing, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("record %s: %w", id, models.ErrNotFound)
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("record deleted", "record_id", id, "radicado", existing.Radicado)
	return nil
}

// Submit queues the record for synchronization and asks for a drain. A
// record that already reached the remote side is sent as an update.
func (s *Service) Submit(ctx context.Context, id string) (int64, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	if rec == nil {
		return 0, fmt.Errorf("record %s: %w", id, models.ErrNotFound)
	}

	action := models.ActionCreate
	if rec.SyncState == models.SyncSynced {
		action = models.ActionUpdate
	}
	qid, err := s.sync.Enqueue(ctx, id, action)
	if err != nil {
		return 0, err
	}
	s.sync.Trigger()
	return qid, nil
}
