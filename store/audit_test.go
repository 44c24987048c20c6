package store

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditLogFileBackend(t *testing.T) {
	dir := t.TempDir()
	log, err := NewAuditLog("file://"+dir, "conn_local_file", "", "tester", nil)
	require.NoError(t, err)

	log.Info("loading data from base")
	log.Warning("metadata does not exist")
	assert.Equal(t, 2, log.Pending())

	require.NoError(t, log.Flush())
	assert.Equal(t, 0, log.Pending())

	raw, err := os.ReadFile(filepath.Join(dir, "logging.jsonl"))
	require.NoError(t, err)

	var records []AuditRecord
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	for scanner.Scan() {
		var record AuditRecord
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &record))
		records = append(records, record)
	}
	require.Len(t, records, 2)
	assert.Equal(t, "INFO", records[0].Status)
	assert.Equal(t, "WARNING", records[1].Status)
	assert.Equal(t, "conn_local_file", records[0].ConfName)
	assert.Equal(t, "tester", records[0].Author)
	// Records of one operation share the parent id but not record ids.
	assert.Equal(t, records[0].ParentID, records[1].ParentID)
	assert.NotEqual(t, records[0].RecordID, records[1].RecordID)
}

func TestAuditLogFlushEmpty(t *testing.T) {
	log, err := NewAuditLog("file://"+t.TempDir(), "conn_local_file", "", "tester", nil)
	require.NoError(t, err)
	require.NoError(t, log.Flush())
}

func TestAuditLogSQLiteBackend(t *testing.T) {
	dir := t.TempDir()
	log, err := NewAuditLog("sqlite://"+dir, "conn_local_file", "sit", "tester", nil)
	require.NoError(t, err)

	log.Debug("computing diff level")
	log.Critical("collision on move target")
	require.NoError(t, log.Flush())

	adapter, err := NewSQLiteStore(dir, auditSchema, nil)
	require.NoError(t, err)
	rows, err := adapter.LoadStage("logging.sit.db/tbl_logging")
	require.NoError(t, err)
	// Rows load keyed by conf_name, both records share one name.
	require.Len(t, rows, 1)
}

func TestAuditLogBadEndpoint(t *testing.T) {
	_, err := NewAuditLog("kafka://topic", "conn_local_file", "", "tester", nil)
	assert.Error(t, err)
}
