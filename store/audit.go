package store

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// auditSchema is the SQLite layout of the audit table.
var auditSchema = []Column{
	{Name: "parent_id", Type: "varchar(64) not null"},
	{Name: "record_id", Type: "varchar(64) primary key not null"},
	{Name: "conf_name", Type: "varchar(256) not null"},
	{Name: "message", Type: "text"},
	{Name: "update_time", Type: "datetime not null"},
	{Name: "status", Type: "varchar(64) not null"},
	{Name: "author", Type: "varchar(512) not null"},
}

// AuditRecord is one buffered audit entry.
type AuditRecord struct {
	ParentID   string `json:"parent_id"`
	RecordID   string `json:"record_id"`
	ConfName   string `json:"conf_name"`
	Message    string `json:"message"`
	UpdateTime string `json:"update_time"`
	Status     string `json:"status"`
	Author     string `json:"author"`
}

// auditSink persists flushed audit records.
type auditSink interface {
	write(records []AuditRecord) error
}

// AuditLog buffers leveled audit records for one register operation
// and writes them in a single batch on Flush. Records share a parent
// id so a whole operation can be traced; every record gets its own
// uuid. Messages also go to the process logger immediately.
type AuditLog struct {
	name     string
	author   string
	parentID string

	buffer []AuditRecord
	sink   auditSink
	logger *zap.Logger
}

// NewAuditLog opens the audit log on the configured endpoint.
func NewAuditLog(endpoint, name, environ, author string, logger *zap.Logger) (*AuditLog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	parsed, err := ParseEndpoint(endpoint)
	if err != nil {
		return nil, fmt.Errorf("audit endpoint: %w", err)
	}
	suffix := ""
	if environ != "" {
		suffix = "." + environ
	}
	log := &AuditLog{
		name:     name,
		author:   author,
		parentID: uuid.NewString(),
		logger:   logger,
	}
	switch parsed.Scheme {
	case "file":
		if err := (OSFileSystem{}).MkdirAll(parsed.Path, 0o755); err != nil {
			return nil, fmt.Errorf("create audit path: %w", err)
		}
		log.sink = &fileAuditSink{
			path: filepath.Join(parsed.Path, "logging"+suffix+".jsonl"),
			fsys: OSFileSystem{},
		}
	case "sqlite":
		adapter, err := NewSQLiteStore(parsed.Path, auditSchema, logger)
		if err != nil {
			return nil, err
		}
		target := "logging" + suffix + ".db/tbl_logging"
		if err := adapter.Create(target, nil); err != nil {
			return nil, fmt.Errorf("initialize audit store: %w", err)
		}
		log.sink = &sqliteAuditSink{adapter: adapter, target: target}
	}
	return log, nil
}

// Debug buffers a debug record.
func (l *AuditLog) Debug(msg string) {
	l.logger.Debug(msg, zap.String("name", l.name))
	l.append("DEBUG", msg)
}

// Info buffers an info record.
func (l *AuditLog) Info(msg string) {
	l.logger.Info(msg, zap.String("name", l.name))
	l.append("INFO", msg)
}

// Warning buffers a warning record.
func (l *AuditLog) Warning(msg string) {
	l.logger.Warn(msg, zap.String("name", l.name))
	l.append("WARNING", msg)
}

// Critical buffers a critical record.
func (l *AuditLog) Critical(msg string) {
	l.logger.Error(msg, zap.String("name", l.name))
	l.append("CRITICAL", msg)
}

func (l *AuditLog) append(status, msg string) {
	l.buffer = append(l.buffer, AuditRecord{
		ParentID:   l.parentID,
		RecordID:   uuid.NewString(),
		ConfName:   l.name,
		Message:    msg,
		UpdateTime: time.Now().Format("2006-01-02 15:04:05"),
		Status:     status,
		Author:     l.author,
	})
}

// Pending returns the number of buffered records.
func (l *AuditLog) Pending() int { return len(l.buffer) }

// Flush writes every buffered record in one batch and clears the
// buffer.
func (l *AuditLog) Flush() error {
	if len(l.buffer) == 0 {
		return nil
	}
	if err := l.sink.write(l.buffer); err != nil {
		return fmt.Errorf("flush audit log: %w", err)
	}
	l.buffer = nil
	return nil
}

// fileAuditSink appends JSON lines to the audit file.
type fileAuditSink struct {
	path string
	fsys FileSystem
}

func (s *fileAuditSink) write(records []AuditRecord) error {
	batch := make([]byte, 0, 256*len(records))
	for _, record := range records {
		line, err := json.Marshal(record)
		if err != nil {
			return err
		}
		batch = append(batch, line...)
		batch = append(batch, '\n')
	}
	return s.fsys.AppendFile(s.path, batch, 0o644)
}

// sqliteAuditSink inserts one row per record.
type sqliteAuditSink struct {
	adapter *SQLiteStore
	target  string
}

func (s *sqliteAuditSink) write(records []AuditRecord) error {
	payload := make(map[string]any, len(records))
	for _, record := range records {
		payload[record.RecordID] = map[string]any{
			"parent_id":   record.ParentID,
			"record_id":   record.RecordID,
			"conf_name":   record.ConfName,
			"message":     record.Message,
			"update_time": record.UpdateTime,
			"status":      record.Status,
			"author":      record.Author,
		}
	}
	return s.adapter.SaveStage(s.target, payload, false)
}
