package repository

import (
	"context"

	"github.com/garnizeh/pqrs/pkg/models"
)

// Repository interfaces for domain entities. These are the public contracts
// consumers should depend on; concrete implementations live under internal/.

// RecordStore is durable keyed storage for defect records.
type RecordStore interface {
	// Save validates rec, recomputes its derived fields and upserts it by id,
	// assigning a new id when empty. Sync columns of an existing record are
	// never overwritten. Returns models.ErrConflict on a duplicate radicado.
	Save(ctx context.Context, rec *models.DefectRecord) (string, error)
	// Get returns nil, nil when the record does not exist.
	Get(ctx context.Context, id string) (*models.DefectRecord, error)
	List(ctx context.Context) ([]models.DefectRecord, error)
	ListByState(ctx context.Context, state models.SyncState) ([]models.DefectRecord, error)
	Delete(ctx context.Context, id string) error
	// UpdateSyncState changes only the sync columns. No-op when absent.
	UpdateSyncState(ctx context.Context, id string, st models.SyncStatus) error
}

// SyncQueue is the durable FIFO of pending mutations.
type SyncQueue interface {
	Enqueue(ctx context.Context, rec *models.DefectRecord, action models.Action) (int64, error)
	// EntryForRecord returns the oldest entry for recordID, nil, nil when none.
	EntryForRecord(ctx context.Context, recordID string) (*models.QueueEntry, error)
	// RefreshEntry replaces the snapshot and action of an entry, keeping its
	// attempts and position.
	RefreshEntry(ctx context.Context, id int64, rec *models.DefectRecord, action models.Action) error
	// ListQueue returns entries oldest first.
	ListQueue(ctx context.Context) ([]models.QueueEntry, error)
	// UpdateEntry persists attempts, last attempt and last error.
	UpdateEntry(ctx context.Context, e *models.QueueEntry) error
	RemoveEntry(ctx context.Context, id int64) error
	QueueSize(ctx context.Context) (int, error)
}

type AgentRepo interface {
	CreateAgent(ctx context.Context, a *models.Agent) (int64, error)
	GetAgentByID(ctx context.Context, id int64) (*models.Agent, error)
	GetAgentByEmail(ctx context.Context, email string) (*models.Agent, error)
}

type SchemaRepo interface {
	GetSchemaByVersion(ctx context.Context, version string) (*models.PayloadSchema, error)
	ListSchemas(ctx context.Context) ([]models.PayloadSchema, error)
}

// ReceiptRepo backs the receiving endpoint of the system of record.
type ReceiptRepo interface {
	SaveReceipt(ctx context.Context, r *models.Receipt) error
	GetReceipt(ctx context.Context, caseNumber string) (*models.Receipt, error)
}
