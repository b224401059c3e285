// Package mock holds in-memory repositories for tests.
package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/garnizeh/pqrs/pkg/models"
	"github.com/garnizeh/pqrs/pkg/repository"
	"github.com/google/uuid"
)

var _ repository.RecordStore = (*Store)(nil)
var _ repository.SyncQueue = (*Store)(nil)
var _ repository.AgentRepo = (*AgentRepo)(nil)

// Store is an in-memory RecordStore and SyncQueue. The *Err fields force the
// matching method to fail.
type Store struct {
	mu      sync.Mutex
	records map[string]models.DefectRecord
	queue   []models.QueueEntry
	nextQID int64

	Now func() time.Time

	SaveErr        error
	UpdateSyncErr  error
	EnqueueErr     error
	ListQueueErr   error
	UpdateEntryErr error
	RemoveEntryErr error
}

func NewStore() *Store {
	return &Store{records: map[string]models.DefectRecord{}, Now: time.Now}
}

func (s *Store) Save(ctx context.Context, rec *models.DefectRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return "", s.SaveErr
	}
	if rec == nil {
		return "", fmt.Errorf("record is nil")
	}
	if err := models.NewValidationError(rec.MissingFields()); err != nil {
		return "", err
	}
	for id, r := range s.records {
		if id != rec.ID && r.Radicado == rec.Radicado {
			return "", fmt.Errorf("radicado %s: %w", rec.Radicado, models.ErrConflict)
		}
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	c := rec.Clone()
	if prev, ok := s.records[rec.ID]; ok {
		c.SyncState, c.SyncError, c.SyncAttempts, c.LastSyncAttempt = prev.SyncState, prev.SyncError, prev.SyncAttempts, prev.LastSyncAttempt
	} else if !c.SyncState.Valid() {
		c.SyncState = models.SyncLocalOnly
	}
	s.records[rec.ID] = *c
	return rec.ID, nil
}

// Put stores rec as is, bypassing validation and sync column protection.
func (s *Store) Put(rec models.DefectRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = *rec.Clone()
}

func (s *Store) Get(ctx context.Context, id string) (*models.DefectRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return nil, nil
	}
	return r.Clone(), nil
}

func (s *Store) List(ctx context.Context) ([]models.DefectRecord, error) {
	return s.filter(func(models.DefectRecord) bool { return true }), nil
}

func (s *Store) ListByState(ctx context.Context, state models.SyncState) ([]models.DefectRecord, error) {
	return s.filter(func(r models.DefectRecord) bool { return r.SyncState == state }), nil
}

func (s *Store) filter(keep func(models.DefectRecord) bool) []models.DefectRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.DefectRecord
	for _, r := range s.records {
		if keep(r) {
			out = append(out, *r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

func (s *Store) UpdateSyncState(ctx context.Context, id string, st models.SyncStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.UpdateSyncErr != nil {
		return s.UpdateSyncErr
	}
	if !st.State.Valid() {
		return fmt.Errorf("invalid sync state %q", st.State)
	}
	r, ok := s.records[id]
	if !ok {
		return nil
	}
	r.SyncState, r.SyncError, r.SyncAttempts = st.State, st.Error, st.Attempts
	r.LastSyncAttempt = nil
	if st.LastAttempt != nil {
		t := *st.LastAttempt
		r.LastSyncAttempt = &t
	}
	s.records[id] = r
	return nil
}

func (s *Store) Enqueue(ctx context.Context, rec *models.DefectRecord, action models.Action) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.EnqueueErr != nil {
		return 0, s.EnqueueErr
	}
	if rec == nil || rec.ID == "" {
		return 0, fmt.Errorf("enqueue: record id is required")
	}
	return s.push(models.QueueEntry{RecordID: rec.ID, Action: action, Snapshot: *rec.Clone()}), nil
}

func (s *Store) EntryForRecord(ctx context.Context, recordID string) (*models.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.queue {
		if e.RecordID == recordID {
			e.Snapshot = *e.Snapshot.Clone()
			return &e, nil
		}
	}
	return nil, nil
}

func (s *Store) RefreshEntry(ctx context.Context, id int64, rec *models.DefectRecord, action models.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.EnqueueErr != nil {
		return s.EnqueueErr
	}
	if rec == nil {
		return fmt.Errorf("record is nil")
	}
	for i := range s.queue {
		if s.queue[i].ID == id {
			s.queue[i].Action = action
			s.queue[i].Snapshot = *rec.Clone()
		}
	}
	return nil
}

// PushEntry appends e as is, letting tests queue malformed entries.
func (s *Store) PushEntry(e models.QueueEntry) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.push(e)
}

func (s *Store) push(e models.QueueEntry) int64 {
	s.nextQID++
	e.ID = s.nextQID
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.Now().UTC()
	}
	s.queue = append(s.queue, e)
	return e.ID
}

func (s *Store) ListQueue(ctx context.Context) ([]models.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ListQueueErr != nil {
		return nil, s.ListQueueErr
	}
	out := make([]models.QueueEntry, len(s.queue))
	for i, e := range s.queue {
		e.Snapshot = *e.Snapshot.Clone()
		out[i] = e
	}
	return out, nil
}

func (s *Store) UpdateEntry(ctx context.Context, e *models.QueueEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.UpdateEntryErr != nil {
		return s.UpdateEntryErr
	}
	for i := range s.queue {
		if s.queue[i].ID == e.ID {
			s.queue[i].Attempts = e.Attempts
			s.queue[i].LastAttempt = e.LastAttempt
			s.queue[i].LastError = e.LastError
		}
	}
	return nil
}

func (s *Store) RemoveEntry(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.RemoveEntryErr != nil {
		return s.RemoveEntryErr
	}
	for i := range s.queue {
		if s.queue[i].ID == id {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) QueueSize(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue), nil
}

type AgentRepo struct {
	Stored    *models.Agent
	CreateErr error
}

func (m *AgentRepo) CreateAgent(ctx context.Context, a *models.Agent) (int64, error) {
	if m.CreateErr != nil {
		return 0, m.CreateErr
	}
	m.Stored = &models.Agent{ID: 1, Name: a.Name, Email: a.Email, Crew: a.Crew, PasswordHash: a.PasswordHash}
	return 1, nil
}

func (m *AgentRepo) GetAgentByID(ctx context.Context, id int64) (*models.Agent, error) {
	if m.Stored != nil && m.Stored.ID == id {
		return m.Stored, nil
	}
	return nil, nil
}

func (m *AgentRepo) GetAgentByEmail(ctx context.Context, email string) (*models.Agent, error) {
	if m.Stored != nil && m.Stored.Email == email {
		return m.Stored, nil
	}
	return nil, nil
}
