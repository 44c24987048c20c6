// Package registry moves named configuration documents through the
// configured lifecycle stages: loading, versioning, filename
// templating and retention.
package registry

import (
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"sort"
)

// Diff levels classifying the change between current data and the
// stored metadata record.
const (
	DiffNone       = 0
	DiffValue      = 1
	DiffStructural = 2
	// DiffMajor is reserved for callers that can detect breaking
	// changes; the structural comparison never reports it.
	DiffMajor    = 3
	DiffNoRecord = 99
)

// HashData returns a structurally hashed copy of a payload: scalar
// leaves become sha512 hex digests while mappings and sequences keep
// their shape. Excluded keys apply to the top level only and keep
// their raw values, so volatile fields stay readable in metadata.
func HashData(value any, exclude map[string]bool) any {
	if mapping, ok := value.(map[string]any); ok {
		result := make(map[string]any, len(mapping))
		for key, entry := range mapping {
			if exclude[key] {
				result[key] = entry
				continue
			}
			result[key] = hashValue(entry)
		}
		return result
	}
	return hashValue(value)
}

func hashValue(value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case bool:
		return v
	case map[string]any:
		result := make(map[string]any, len(v))
		for key, entry := range v {
			result[key] = hashValue(entry)
		}
		return result
	case []any:
		result := make([]any, len(v))
		for i, entry := range v {
			result[i] = hashValue(entry)
		}
		return result
	default:
		digest := sha512.Sum512([]byte(fmt.Sprint(v)))
		return hex.EncodeToString(digest[:])
	}
}

// CompareData classifies the difference between two hashed payloads:
// DiffNoRecord when target is empty, DiffStructural when keys or
// sequence members appear or disappear, DiffValue when only values or
// types changed, DiffNone otherwise. Excluded keys are ignored at the
// top level. Sequence comparison ignores order.
func CompareData(current, target map[string]any, exclude map[string]bool) int {
	if len(target) == 0 {
		return DiffNoRecord
	}
	level := DiffNone
	keys := make(map[string]bool, len(current)+len(target))
	for key := range current {
		keys[key] = true
	}
	for key := range target {
		keys[key] = true
	}
	for key := range keys {
		if exclude[key] {
			continue
		}
		a, inCurrent := current[key]
		b, inTarget := target[key]
		if inCurrent != inTarget {
			return DiffStructural
		}
		if next := compareValues(a, b); next > level {
			level = next
		}
		if level >= DiffStructural {
			return DiffStructural
		}
	}
	return level
}

func compareValues(a, b any) int {
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok {
			return DiffValue
		}
		return compareMappings(av, bv)
	case []any:
		bv, ok := b.([]any)
		if !ok {
			return DiffValue
		}
		return compareSequences(av, bv)
	default:
		if fingerprint(a) != fingerprint(b) {
			return DiffValue
		}
		return DiffNone
	}
}

func compareMappings(a, b map[string]any) int {
	level := DiffNone
	keys := make(map[string]bool, len(a)+len(b))
	for key := range a {
		keys[key] = true
	}
	for key := range b {
		keys[key] = true
	}
	for key := range keys {
		av, inA := a[key]
		bv, inB := b[key]
		if inA != inB {
			return DiffStructural
		}
		if next := compareValues(av, bv); next > level {
			level = next
		}
		if level >= DiffStructural {
			return DiffStructural
		}
	}
	return level
}

// compareSequences treats both sides as multisets of canonical
// fingerprints: any member present on one side only is structural,
// matching how sequence comparison ignores order.
func compareSequences(a, b []any) int {
	if len(a) != len(b) {
		return DiffStructural
	}
	fa := make([]string, len(a))
	fb := make([]string, len(b))
	for i := range a {
		fa[i] = fingerprint(a[i])
		fb[i] = fingerprint(b[i])
	}
	sort.Strings(fa)
	sort.Strings(fb)
	for i := range fa {
		if fa[i] != fb[i] {
			return DiffStructural
		}
	}
	return DiffNone
}

// fingerprint renders a value with its type so "1" and 1 differ.
func fingerprint(value any) string {
	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		out := "map{"
		for _, key := range keys {
			out += key + ":" + fingerprint(v[key]) + ","
		}
		return out + "}"
	case []any:
		parts := make([]string, len(v))
		for i, entry := range v {
			parts[i] = fingerprint(entry)
		}
		sort.Strings(parts)
		out := "seq{"
		for _, part := range parts {
			out += part + ","
		}
		return out + "}"
	default:
		return fmt.Sprintf("%T:%v", value, value)
	}
}
