package db_test

import (
	"context"
	"path/filepath"
	"testing"

	dbfs "github.com/garnizeh/pqrs/db"
	"github.com/garnizeh/pqrs/internal/db"
)

func TestMigrate_Idempotent(t *testing.T) {
	ctx := context.Background()

	d, err := db.New(ctx, filepath.Join(t.TempDir(), "migrate.db"), nil)
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	defer d.Close()

	if err := db.Migrate(ctx, d, dbfs.Migrations, dbfs.SeedFiles); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	if err := db.Migrate(ctx, d, dbfs.Migrations, dbfs.SeedFiles); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}

	var count int
	if err := d.QueryRow(ctx, `SELECT COUNT(1) FROM schema_migrations`).Scan(&count); err != nil {
		t.Fatalf("scan schema_migrations count: %v", err)
	}
	if count < 1 {
		t.Fatalf("expected at least 1 migration recorded, got %d", count)
	}

	for _, table := range []string{"records", "sync_queue", "agents", "payload_schemas", "received_submissions"} {
		var name string
		if err := d.QueryRow(ctx, `SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name); err != nil {
			t.Fatalf("expected %s table exists: %v", table, err)
		}
	}

	for _, idx := range []string{"idx_records_radicado", "idx_records_sync_state", "idx_sync_queue_record_id", "idx_sync_queue_created_at"} {
		var name string
		if err := d.QueryRow(ctx, `SELECT name FROM sqlite_master WHERE type='index' AND name=?`, idx).Scan(&name); err != nil {
			t.Fatalf("expected index %s exists: %v", idx, err)
		}
	}

	var schemas int
	if err := d.QueryRow(ctx, `SELECT COUNT(1) FROM payload_schemas WHERE version = 'v1'`).Scan(&schemas); err != nil {
		t.Fatalf("count payload schemas: %v", err)
	}
	if schemas != 1 {
		t.Fatalf("expected seeded v1 payload schema once, got %d", schemas)
	}
}
