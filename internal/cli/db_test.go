package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDB_InitBackupRestore(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "field.db")

	out, err := run(t, "--db", dbPath, "db", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Database initialized at "+dbPath)
	require.FileExists(t, dbPath)

	seedRecord(t, dbPath, "PQRS-20250314-00001")

	backupPath := filepath.Join(dir, "field.bak")
	out, err = run(t, "--db", dbPath, "--format", "json", "db", "backup", "-o", backupPath)
	require.NoError(t, err)
	var resp struct {
		Status string   `json:"status"`
		Data   DBResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, backupPath, resp.Data.Path)
	require.FileExists(t, backupPath)

	_, err = run(t, "--db", dbPath, "db", "backup", "-o", backupPath)
	require.Error(t, err, "existing backup must not be overwritten without --force")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	_, err = run(t, "--db", dbPath, "db", "backup", "-o", backupPath, "--force")
	require.NoError(t, err)

	// restore into a fresh path and check the record came along
	restored := filepath.Join(dir, "restored.db")
	out, err = run(t, "--db", restored, "db", "restore", backupPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Database restored from "+backupPath)

	out, err = run(t, "--db", restored, "records", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "PQRS-20250314-00001")
}

func TestDB_RestoreRejectsForeignFile(t *testing.T) {
	dir := t.TempDir()
	junk := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(junk, []byte("not a database"), 0o644))

	_, err := run(t, "--db", filepath.Join(dir, "field.db"), "db", "restore", junk)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = run(t, "--db", filepath.Join(dir, "field.db"), "db", "restore", filepath.Join(dir, "missing.bak"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backup not found")
}
