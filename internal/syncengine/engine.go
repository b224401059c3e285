// Package syncengine drains the sync queue into the remote endpoint.
//
// Entries are processed oldest first, one at a time. A failed entry stays
// queued and is retried on a later drain until it reaches MaxAttempts; the
// record then moves to the error state and the entry is dropped.
package syncengine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/garnizeh/pqrs/pkg/gateway"
	"github.com/garnizeh/pqrs/pkg/models"
	"github.com/garnizeh/pqrs/pkg/repository"
)

const (
	DefaultInterval    = 30 * time.Second
	DefaultMaxAttempts = 5
)

// Submitter is satisfied by *gateway.Client.
type Submitter interface {
	Submit(ctx context.Context, p gateway.Payload) (*gateway.SubmitResult, error)
}

// Prober reports connectivity. *connectivity.Monitor satisfies it.
type Prober interface {
	Online() bool
}

type Config struct {
	Interval    time.Duration
	MaxAttempts int
}

// Result summarizes one drain.
type Result struct {
	Succeeded int  `json:"succeeded"`
	Failed    int  `json:"failed"`
	Purged    int  `json:"purged"`
	Remaining int  `json:"remaining"`
	Offline   bool `json:"offline,omitempty"`
	Skipped   bool `json:"skipped,omitempty"`
}

type outcome int

const (
	outcomeSynced outcome = iota
	outcomeFailed
	outcomePurged
	outcomeDeferred
)

type Engine struct {
	records repository.RecordStore
	queue   repository.SyncQueue
	gw      Submitter
	prober  Prober
	cfg     Config
	logger  *slog.Logger
	now     func() time.Time

	draining atomic.Bool

	trigger   chan struct{}
	stop      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// New builds an engine. A nil prober means always online.
func New(records repository.RecordStore, queue repository.SyncQueue, gw Submitter, prober Prober, cfg Config, logger *slog.Logger) *Engine {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		records: records,
		queue:   queue,
		gw:      gw,
		prober:  prober,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
		trigger: make(chan struct{}, 1),
		stop:    make(chan struct{}),
	}
}

// WithClock replaces the time source used for attempt stamps.
func (e *Engine) WithClock(clock func() time.Time) *Engine {
	e.now = clock
	return e
}

// Syncing reports whether a drain is in progress.
func (e *Engine) Syncing() bool {
	return e.draining.Load()
}

// Enqueue marks the record queued and appends a snapshot of it to the queue.
// A record that already has a pending entry keeps that entry: its snapshot is
// refreshed and its attempt count carries over to the record.
func (e *Engine) Enqueue(ctx context.Context, id string, action models.Action) (int64, error) {
	rec, err := e.records.Get(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("load record %s: %w", id, err)
	}
	if rec == nil {
		return 0, fmt.Errorf("record %s: %w", id, models.ErrNotFound)
	}

	pending, err := e.queue.EntryForRecord(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("lookup queue entry for %s: %w", id, err)
	}

	st := models.SyncStatus{State: models.SyncQueued, LastAttempt: rec.LastSyncAttempt}
	var qid int64
	if pending != nil {
		// a create that never went through stays a create
		if pending.Action == models.ActionCreate {
			action = models.ActionCreate
		}
		if err := e.queue.RefreshEntry(ctx, pending.ID, rec, action); err != nil {
			return 0, err
		}
		qid = pending.ID
		st.Attempts, st.Error, st.LastAttempt = pending.Attempts, pending.LastError, pending.LastAttempt
	} else {
		if qid, err = e.queue.Enqueue(ctx, rec, action); err != nil {
			return 0, err
		}
	}

	if err := e.records.UpdateSyncState(ctx, id, st); err != nil {
		return qid, fmt.Errorf("mark record %s queued: %w", id, err)
	}

	e.logger.Info("record queued", "record_id", id, "queue_id", qid, "action", action, "refreshed", pending != nil)
	return qid, nil
}

// Drain processes the queue once. It returns Skipped when another drain is
// running and Offline, with the queue size, when the prober reports no
// connectivity; in both cases no entry or record is touched.
func (e *Engine) Drain(ctx context.Context) (Result, error) {
	if !e.draining.CompareAndSwap(false, true) {
		return Result{Skipped: true}, nil
	}
	defer e.draining.Store(false)

	if e.prober != nil && !e.prober.Online() {
		res := Result{Offline: true}
		if n, err := e.queue.QueueSize(ctx); err == nil {
			res.Remaining = n
		}
		return res, nil
	}

	entries, err := e.queue.ListQueue(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list queue: %w", err)
	}

	pending := make(map[string]int, len(entries))
	for _, en := range entries {
		pending[en.RecordID]++
	}

	var res Result
	// once listed, the snapshot is processed to the end
	entryCtx := context.WithoutCancel(ctx)
drain:
	for i := range entries {
		en := &entries[i]
		pending[en.RecordID]--

		switch e.process(entryCtx, en, pending[en.RecordID] > 0) {
		case outcomeSynced:
			res.Succeeded++
		case outcomeFailed:
			res.Failed++
		case outcomePurged:
			res.Purged++
		case outcomeDeferred:
			e.logger.Warn("gateway circuit open, stopping drain", "queue_id", en.ID)
			break drain
		}
	}

	if n, err := e.queue.QueueSize(entryCtx); err == nil {
		res.Remaining = n
	}
	e.logger.Info("sync complete",
		"succeeded", res.Succeeded, "failed", res.Failed, "purged", res.Purged, "remaining", res.Remaining)
	return res, nil
}

func (e *Engine) process(ctx context.Context, en *models.QueueEntry, morePending bool) (out outcome) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("panic while syncing entry", "queue_id", en.ID, "record_id", en.RecordID, "panic", r)
			out = e.fail(ctx, en, fmt.Errorf("panic: %v", r))
		}
	}()

	if en.RecordID == "" {
		return e.purge(ctx, en, "record id is missing")
	}
	rec, err := e.records.Get(ctx, en.RecordID)
	if err != nil {
		return e.fail(ctx, en, fmt.Errorf("load record: %w", err))
	}
	if rec == nil {
		return e.purge(ctx, en, "record no longer exists")
	}
	if en.Snapshot.ID != en.RecordID {
		return e.purge(ctx, en, "snapshot does not match record")
	}

	if _, err := e.gw.Submit(ctx, gateway.BuildPayload(en.Snapshot)); err != nil {
		if errors.Is(err, gateway.ErrCircuitOpen) {
			return outcomeDeferred
		}
		return e.fail(ctx, en, err)
	}

	now := e.now().UTC()
	state := models.SyncSynced
	if morePending {
		state = models.SyncQueued
	}
	st := models.SyncStatus{State: state, Attempts: en.Attempts, LastAttempt: &now}
	if err := e.records.UpdateSyncState(ctx, en.RecordID, st); err != nil {
		e.logger.Error("mark record synced", "record_id", en.RecordID, "err", err)
	}
	if err := e.queue.RemoveEntry(ctx, en.ID); err != nil {
		// the entry is resubmitted on the next drain; the receiver upserts by case number
		e.logger.Error("remove synced entry", "queue_id", en.ID, "err", err)
	}
	e.logger.Debug("entry synced", "queue_id", en.ID, "record_id", en.RecordID, "radicado", en.Snapshot.Radicado)
	return outcomeSynced
}

func (e *Engine) fail(ctx context.Context, en *models.QueueEntry, cause error) outcome {
	now := e.now().UTC()
	en.Attempts++
	en.LastAttempt = &now
	en.LastError = cause.Error()

	if en.Attempts >= e.cfg.MaxAttempts {
		st := models.SyncStatus{
			State:       models.SyncError,
			Error:       "max retry attempts reached: " + en.LastError,
			Attempts:    en.Attempts,
			LastAttempt: &now,
		}
		if err := e.records.UpdateSyncState(ctx, en.RecordID, st); err != nil {
			e.logger.Error("mark record failed", "record_id", en.RecordID, "err", err)
		}
		if err := e.queue.RemoveEntry(ctx, en.ID); err != nil {
			e.logger.Error("remove failed entry", "queue_id", en.ID, "err", err)
		}
		e.logger.Warn("entry permanently failed", "queue_id", en.ID, "record_id", en.RecordID, "attempts", en.Attempts, "err", cause)
		return outcomeFailed
	}

	if err := e.queue.UpdateEntry(ctx, en); err != nil {
		e.logger.Error("update queue entry", "queue_id", en.ID, "err", err)
	}
	st := models.SyncStatus{State: models.SyncQueued, Error: en.LastError, Attempts: en.Attempts, LastAttempt: &now}
	if err := e.records.UpdateSyncState(ctx, en.RecordID, st); err != nil {
		e.logger.Error("mirror attempt on record", "record_id", en.RecordID, "err", err)
	}
	e.logger.Warn("entry sync failed", "queue_id", en.ID, "record_id", en.RecordID, "attempts", en.Attempts, "err", cause)
	return outcomeFailed
}

func (e *Engine) purge(ctx context.Context, en *models.QueueEntry, reason string) outcome {
	err := fmt.Errorf("queue entry %d: %s: %w", en.ID, reason, models.ErrQueueCorruption)
	e.logger.Warn("purging queue entry", "queue_id", en.ID, "record_id", en.RecordID, "err", err)
	if rmErr := e.queue.RemoveEntry(ctx, en.ID); rmErr != nil {
		e.logger.Error("remove corrupt entry", "queue_id", en.ID, "err", rmErr)
	}
	return outcomePurged
}

// Start runs one drain immediately, then one per interval tick and one per
// Trigger, until Stop is called or ctx is done. Calling Start twice is a
// no-op.
func (e *Engine) Start(ctx context.Context) {
	e.startOnce.Do(func() {
		e.wg.Add(1)
		go e.loop(ctx)
	})
}

func (e *Engine) loop(ctx context.Context) {
	defer e.wg.Done()
	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	e.runDrain(ctx)
	for {
		select {
		case <-e.stop:
			e.logger.Info("sync engine stopping")
			return
		case <-ctx.Done():
			e.logger.Info("context canceled, sync engine exiting")
			return
		case <-ticker.C:
			e.runDrain(ctx)
		case <-e.trigger:
			e.runDrain(ctx)
		}
	}
}

func (e *Engine) runDrain(ctx context.Context) {
	if _, err := e.Drain(ctx); err != nil {
		e.logger.Error("drain", "err", err)
	}
	// requests that raced the drain are covered by it
	select {
	case <-e.trigger:
	default:
	}
}

// Trigger requests a drain without waiting for it. It is a no-op while a
// drain is running, and requests made while one is pending are coalesced.
func (e *Engine) Trigger() {
	if e.draining.Load() {
		return
	}
	select {
	case e.trigger <- struct{}{}:
	default:
	}
}

// Stop halts future drains and waits for an in-flight one to finish.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stop) })
	e.wg.Wait()
}
