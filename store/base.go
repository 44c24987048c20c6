package store

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// BaseStore reads source config documents from the conf directory: one
// YAML mapping per file keyed by config name. Several files may carry
// entries for the same name; the entry with the latest embedded
// version date wins, mapping size breaking ties.
type BaseStore struct {
	path   string
	fsys   FileSystem
	logger *zap.Logger
}

// NewBaseStore opens the base document directory.
func NewBaseStore(path string, logger *zap.Logger) *BaseStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BaseStore{path: path, fsys: OSFileSystem{}, logger: logger}
}

// LoadBase returns the order-th latest entry of a config name across
// every document in the directory. Order counts back from the latest,
// starting at 1. No entry yields an empty mapping with a warning.
func (s *BaseStore) LoadBase(name string, order int) (map[string]any, error) {
	if order < 1 {
		order = 1
	}
	entries, err := s.fsys.ReadDir(s.path)
	if err != nil {
		return nil, fmt.Errorf("list base path %s: %w", s.path, err)
	}
	var results []map[string]any
	for _, entry := range entries {
		if entry.IsDir() || !isYAMLName(entry.Name()) {
			continue
		}
		raw, err := s.fsys.ReadFile(filepath.Join(s.path, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read base document %s: %w", entry.Name(), err)
		}
		document := map[string]any{}
		if err := yaml.Unmarshal(raw, &document); err != nil {
			return nil, fmt.Errorf("decode base document %s: %w", entry.Name(), err)
		}
		if content, ok := document[name].(map[string]any); ok {
			results = append(results, content)
		}
	}
	if len(results) < order {
		s.logger.Warn("base data does not exist",
			zap.String("name", name),
			zap.Int("order", order),
		)
		return map[string]any{}, nil
	}
	sort.SliceStable(results, func(i, j int) bool {
		vi, vj := baseVersionDate(results[i]), baseVersionDate(results[j])
		if !vi.Equal(vj) {
			return vi.Before(vj)
		}
		return len(results[i]) < len(results[j])
	})
	return results[len(results)-order], nil
}

func isYAMLName(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}

// baseVersionDate reads the embedded version date of a base entry,
// defaulting to 1990-01-01 when absent or malformed.
func baseVersionDate(entry map[string]any) time.Time {
	fallback := time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC)
	raw, ok := entry["version"].(string)
	if !ok {
		return fallback
	}
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return fallback
}
