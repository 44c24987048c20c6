package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashDataShape(t *testing.T) {
	data := map[string]any{
		"version":     "v1.0.0",
		"update_time": "2024-01-01 00:00:00",
		"active":      true,
		"timeout":     nil,
		"connection":  map[string]any{"host": "localhost", "port": 5432},
		"tags":        []any{"a", "b"},
	}
	hashed, ok := HashData(data, excludeKeys).(map[string]any)
	require.True(t, ok)

	assert.NotContains(t, hashed, "version")
	assert.NotContains(t, hashed, "update_time")
	assert.Equal(t, true, hashed["active"])
	assert.Nil(t, hashed["timeout"])

	connection, ok := hashed["connection"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, connection["host"], 128, "scalar leaves become sha512 hex digests")

	tags, ok := hashed["tags"].([]any)
	require.True(t, ok)
	assert.Len(t, tags, 2)
}

func TestHashDataExcludesTopLevelOnly(t *testing.T) {
	data := map[string]any{
		"version": "v1.0.0",
		"nested":  map[string]any{"version": "kept"},
	}
	hashed := HashData(data, excludeKeys).(map[string]any)
	assert.NotContains(t, hashed, "version")
	assert.Contains(t, hashed["nested"].(map[string]any), "version")
}

func TestHashDataDeterministic(t *testing.T) {
	data := map[string]any{"a": 1, "b": map[string]any{"c": "x"}}
	assert.Equal(t, HashData(data, nil), HashData(data, nil))

	// int and float of equal textual value hash alike
	assert.Equal(t,
		HashData(map[string]any{"n": 3}, nil),
		HashData(map[string]any{"n": "3"}, nil))
}

func TestCompareData(t *testing.T) {
	base := map[string]any{
		"host":  "localhost",
		"ports": []any{"5432", "5433"},
		"auth":  map[string]any{"user": "svc", "mode": "scram"},
	}
	hash := func(m map[string]any) map[string]any {
		return HashData(m, excludeKeys).(map[string]any)
	}

	tests := []struct {
		name   string
		target func() map[string]any
		want   int
	}{
		{"identical", func() map[string]any {
			return hash(base)
		}, DiffNone},
		{"scalar value changed", func() map[string]any {
			m := hash(base)
			m["host"] = hash(map[string]any{"host": "remote"})["host"]
			return m
		}, DiffValue},
		{"nested value changed", func() map[string]any {
			m := hash(base)
			m["auth"] = hash(map[string]any{"auth": map[string]any{"user": "other", "mode": "scram"}})["auth"]
			return m
		}, DiffValue},
		{"top level key added", func() map[string]any {
			m := hash(base)
			m["extra"] = "x"
			return m
		}, DiffStructural},
		{"top level key removed", func() map[string]any {
			m := hash(base)
			delete(m, "host")
			return m
		}, DiffStructural},
		{"nested key added", func() map[string]any {
			m := hash(base)
			auth := map[string]any{}
			for k, v := range m["auth"].(map[string]any) {
				auth[k] = v
			}
			auth["ttl"] = "60"
			m["auth"] = auth
			return m
		}, DiffStructural},
		{"list length changed", func() map[string]any {
			m := hash(base)
			m["ports"] = m["ports"].([]any)[:1]
			return m
		}, DiffStructural},
		{"no record", func() map[string]any {
			return map[string]any{}
		}, DiffNoRecord},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CompareData(hash(base), tt.target(), excludeKeys))
		})
	}
}

func TestCompareDataStructuralWinsOverValue(t *testing.T) {
	current := HashData(map[string]any{"a": "1", "b": "2"}, nil).(map[string]any)
	target := HashData(map[string]any{"a": "9"}, nil).(map[string]any)
	assert.Equal(t, DiffStructural, CompareData(current, target, nil))
}
