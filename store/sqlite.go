package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"go.uber.org/zap"
)

// payloadColumn is the JSON column carrying nested mapping values.
const payloadColumn = "conf_data"

// Column is one table column of a SQLite backend schema. Order matters
// for the generated DDL.
type Column struct {
	Name string
	Type string
}

// SQLiteStore is the SQLite backend. A stage name addresses a
// "database/table" pair relative to the backend root; rows are keyed
// by the "conf_name" column and nested mappings travel through the
// JSON payload column.
type SQLiteStore struct {
	path   string
	schema []Column
	logger *zap.Logger
}

// NewSQLiteStore opens a SQLite backend rooted at path. The schema is
// applied by Create for every addressed table.
func NewSQLiteStore(path string, schema []Column, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &SQLiteStore{path: path, schema: schema, logger: logger}
	if err := (OSFileSystem{}).MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create store path %s: %w", path, err)
	}
	return s, nil
}

// split resolves a stage name into its database file and table.
func (s *SQLiteStore) split(name string) (string, string, error) {
	idx := strings.LastIndex(name, "/")
	if idx < 0 {
		return "", "", fmt.Errorf("sqlite stage name %q must look like database/table", name)
	}
	return filepath.Join(s.path, name[:idx]), name[idx+1:], nil
}

func (s *SQLiteStore) open(database string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", "file:"+database)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database %s: %w", database, err)
	}
	return db, nil
}

// LoadStage implements Adapter. A missing table returns an empty
// mapping.
func (s *SQLiteStore) LoadStage(name string) (map[string]any, error) {
	database, table, err := s.split(name)
	if err != nil {
		return nil, err
	}
	db, err := s.open(database)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Query("select * from " + table)
	if err != nil {
		// Table absence mirrors a missing file.
		return map[string]any{}, nil
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read sqlite table %s: %w", table, err)
	}
	result := map[string]any{}
	for rows.Next() {
		values := make([]any, len(columns))
		targets := make([]any, len(columns))
		for i := range values {
			targets[i] = &values[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("read sqlite table %s: %w", table, err)
		}
		record := make(map[string]any, len(columns))
		key := ""
		for i, column := range columns {
			value := values[i]
			if raw, ok := value.([]byte); ok {
				value = string(raw)
			}
			if column == payloadColumn {
				decoded := map[string]any{}
				text, _ := value.(string)
				if err := json.Unmarshal([]byte(text), &decoded); err != nil {
					return nil, fmt.Errorf("decode %s in table %s: %w", payloadColumn, table, err)
				}
				record[column] = decoded
				continue
			}
			if column == "conf_name" {
				key, _ = value.(string)
			}
			record[column] = value
		}
		if key == "" {
			continue
		}
		result[key] = record
	}
	return result, rows.Err()
}

// SaveStage implements Adapter: inserts one row per payload entry,
// replacing on conflict when merge is set.
func (s *SQLiteStore) SaveStage(name string, data map[string]any, merge bool) error {
	database, table, err := s.split(name)
	if err != nil {
		return err
	}
	db, err := s.open(database)
	if err != nil {
		return err
	}
	defer db.Close()

	for _, key := range sortedKeys(data) {
		record, ok := data[key].(map[string]any)
		if !ok {
			return fmt.Errorf("sqlite payload entry %q must be a mapping", key)
		}
		columns := sortedKeys(record)
		values := make([]any, 0, len(columns))
		for _, column := range columns {
			value := record[column]
			if nested, ok := value.(map[string]any); ok {
				raw, err := json.Marshal(nested)
				if err != nil {
					return fmt.Errorf("encode column %q: %w", column, err)
				}
				value = string(raw)
			}
			values = append(values, value)
		}
		verb := "insert"
		if merge {
			verb = "insert or replace"
		}
		query := fmt.Sprintf(
			"%s into %s (%s) values (%s)",
			verb, table,
			strings.Join(columns, ", "),
			strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", "),
		)
		if _, err := db.Exec(query, values...); err != nil {
			return fmt.Errorf("write sqlite table %s: %w", table, err)
		}
	}
	return nil
}

// RemoveStage implements Adapter.
func (s *SQLiteStore) RemoveStage(name, dataName string) error {
	database, table, err := s.split(name)
	if err != nil {
		return err
	}
	db, err := s.open(database)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.Exec("delete from "+table+" where conf_name = ?", dataName); err != nil {
		return fmt.Errorf("delete from sqlite table %s: %w", table, err)
	}
	return nil
}

// Create implements Adapter: applies the backend schema to the
// addressed table. The initial payload is ignored, rows come from
// SaveStage.
func (s *SQLiteStore) Create(name string, _ map[string]any) error {
	database, table, err := s.split(name)
	if err != nil {
		return err
	}
	db, err := s.open(database)
	if err != nil {
		return err
	}
	defer db.Close()

	parts := make([]string, len(s.schema))
	for i, column := range s.schema {
		parts[i] = column.Name + " " + column.Type
	}
	ddl := fmt.Sprintf("create table if not exists %s (%s)", table, strings.Join(parts, ", "))
	if _, err := db.Exec(ddl); err != nil {
		return fmt.Errorf("create sqlite table %s: %w", table, err)
	}
	s.logger.Debug("sqlite table ready", zap.String("table", table))
	return nil
}

func sortedKeys(mapping map[string]any) []string {
	keys := make([]string, 0, len(mapping))
	for key := range mapping {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
