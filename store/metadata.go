package store

import (
	"fmt"

	"go.uber.org/zap"
)

// metadataSchema is the SQLite layout of the metadata table.
var metadataSchema = []Column{
	{Name: "conf_name", Type: "varchar(256) primary key"},
	{Name: "conf_shortname", Type: "varchar(64) not null"},
	{Name: "conf_fullname", Type: "varchar(256) not null"},
	{Name: "conf_data", Type: "json not null"},
	{Name: "update_time", Type: "datetime not null"},
	{Name: "register_time", Type: "datetime not null"},
	{Name: "author", Type: "varchar(512) not null"},
}

// Metadata stores one record per config fullname: identity names, the
// per-stage data hashes, timestamps and author. The backend comes from
// the metadata endpoint; an empty load is not an error.
type Metadata struct {
	name    string
	target  string
	adapter Adapter
}

// NewMetadata opens the metadata store on the configured endpoint for
// one config fullname. The environ suffix partitions the backing file
// or database per environment.
func NewMetadata(endpoint, name, environ string, logger *zap.Logger) (*Metadata, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	parsed, err := ParseEndpoint(endpoint)
	if err != nil {
		return nil, fmt.Errorf("metadata endpoint: %w", err)
	}
	suffix := ""
	if environ != "" {
		suffix = "." + environ
	}
	m := &Metadata{name: name}
	switch parsed.Scheme {
	case "file":
		adapter, err := NewFileStore(parsed.Path, "json", WithLogger(logger))
		if err != nil {
			return nil, err
		}
		m.adapter = adapter
		m.target = "metadata" + suffix + ".json"
	case "sqlite":
		adapter, err := NewSQLiteStore(parsed.Path, metadataSchema, logger)
		if err != nil {
			return nil, err
		}
		m.adapter = adapter
		m.target = "metadata" + suffix + ".db/tbl_metadata"
	}
	if err := m.adapter.Create(m.target, nil); err != nil {
		return nil, fmt.Errorf("initialize metadata store: %w", err)
	}
	return m, nil
}

// Load returns the stored record of the config name; a missing record
// yields an empty mapping.
func (m *Metadata) Load() (map[string]any, error) {
	data, err := m.adapter.LoadStage(m.target)
	if err != nil {
		return nil, fmt.Errorf("load metadata: %w", err)
	}
	record, ok := data[m.name].(map[string]any)
	if !ok {
		return map[string]any{}, nil
	}
	return record, nil
}

// Save merges the record of the config name into the store.
func (m *Metadata) Save(record map[string]any) error {
	if err := m.adapter.SaveStage(m.target, map[string]any{m.name: record}, true); err != nil {
		return fmt.Errorf("save metadata: %w", err)
	}
	return nil
}

// Remove deletes the record of the config name.
func (m *Metadata) Remove() error {
	if err := m.adapter.RemoveStage(m.target, m.name); err != nil {
		return fmt.Errorf("remove metadata: %w", err)
	}
	return nil
}
