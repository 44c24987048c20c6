package store

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotImplemented marks operations a backend intentionally does not
// support.
var ErrNotImplemented = errors.New("not implemented")

// Adapter is the storage contract shared by the file and SQLite
// backends. A stage name addresses one file for the file backend and
// one "database/table" pair for the SQLite backend. Payloads are
// mappings keyed by config name.
type Adapter interface {
	// LoadStage returns the full payload under name; a missing target
	// yields an empty mapping, not an error.
	LoadStage(name string) (map[string]any, error)

	// SaveStage writes the payload under name. With merge the payload
	// is folded into the existing content key by key.
	SaveStage(name string, data map[string]any, merge bool) error

	// RemoveStage deletes one config entry from the payload under name.
	RemoveStage(name, dataName string) error

	// Create initializes the target under name when it does not exist.
	Create(name string, initial map[string]any) error
}

// Endpoint is a parsed storage locator: "file://<path>" or
// "sqlite://<path>".
type Endpoint struct {
	Scheme string
	Path   string
}

// ParseEndpoint splits a storage locator into scheme and path.
func ParseEndpoint(endpoint string) (Endpoint, error) {
	scheme, path, ok := strings.Cut(endpoint, "://")
	if !ok || scheme == "" || path == "" {
		return Endpoint{}, fmt.Errorf("endpoint %q must look like scheme://path", endpoint)
	}
	switch scheme {
	case "file", "sqlite":
		return Endpoint{Scheme: scheme, Path: path}, nil
	default:
		return Endpoint{}, fmt.Errorf("endpoint scheme %q: %w", scheme, ErrNotImplemented)
	}
}

// mergePayload folds src into dst recursively, src winning on scalar
// conflicts.
func mergePayload(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for key, value := range src {
		next, ok := value.(map[string]any)
		if !ok {
			dst[key] = value
			continue
		}
		prev, ok := dst[key].(map[string]any)
		if !ok {
			prev = nil
		}
		dst[key] = mergePayload(prev, next)
	}
	return dst
}
