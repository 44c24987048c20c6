// Package format implements the token-based formatter and parser engine
// used to build comparable filename components: timestamps, semantic
// versions and serial numbers. Each formatter class defines a token
// table mapping tokens such as "%Y" to a regex fragment with a named
// capture group and a value producer; parsing and formatting are
// inverse walks over the same table. Parsed values reduce to a
// canonical standard value which defines equality and ordering, and an
// OrderFormat aggregates heterogeneous formatters into a single
// comparable key.
package format

import (
	"fmt"
	"regexp"
	"strings"
)

// Token is one format token: a zero-argument value producer and a
// regex fragment containing a named capture group.
type Token struct {
	Value func() string
	Regex string
}

// TokenTable maps token strings such as "%Y" to their Token.
type TokenTable map[string]Token

// TokenPattern matches a single format token inside a layout string.
var TokenPattern = regexp.MustCompile(`%[-+!*]?\w`)

// CompileTokens substitutes every recognized token in layout with its
// regex fragment. Unknown tokens are an error naming the class.
func CompileTokens(layout, class string, tokens TokenTable) (string, error) {
	out := layout
	for _, tok := range TokenPattern.FindAllString(layout, -1) {
		t, ok := tokens[tok]
		if !ok {
			return "", fmt.Errorf("format token %q is not supported for %s", tok, class)
		}
		out = strings.ReplaceAll(out, tok, t.Regex)
	}
	return out, nil
}

// parseTokens anchors the compiled layout pattern against value and
// returns the non-empty named captures.
func parseTokens(value, layout, class string, tokens TokenTable) (map[string]string, error) {
	pattern, err := CompileTokens(layout, class, tokens)
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile("^" + pattern + "$")
	if err != nil {
		return nil, fmt.Errorf("format %q does not compile for %s: %w", layout, class, err)
	}
	match := re.FindStringSubmatch(value)
	if match == nil {
		return nil, fmt.Errorf("value %q does not match with format %q", value, layout)
	}
	captures := make(map[string]string)
	for i, name := range re.SubexpNames() {
		if name != "" && match[i] != "" {
			captures[name] = match[i]
		}
	}
	return captures, nil
}

// formatTokens replaces every token present in layout with its
// produced value. Unknown tokens are an error naming the class.
func formatTokens(layout, class string, tokens TokenTable) (string, error) {
	out := layout
	for _, tok := range TokenPattern.FindAllString(layout, -1) {
		t, ok := tokens[tok]
		if !ok {
			return "", fmt.Errorf("format token %q is not supported for %s", tok, class)
		}
		out = strings.ReplaceAll(out, tok, t.Value())
	}
	return out, nil
}

// Formatter is the shape shared by Datetime, Version and Serial: a
// parsed value with a canonical standard form, a specificity level and
// an inverse Format operation.
type Formatter interface {
	fmt.Stringer

	// StandardValue returns the canonical string form which defines
	// equality and ordering.
	StandardValue() string

	// Level reports which sub-fields were explicitly supplied.
	Level() *SlotLevel

	// Format renders the value through an arbitrary token layout.
	Format(layout string) (string, error)

	// Compare orders two formatters of the same concrete type,
	// returning -1, 0 or 1.
	Compare(other Formatter) int
}

// compareSequences orders two formatter sequences lexicographically.
func compareSequences(a, b []Formatter) int {
	for i := range a {
		if i >= len(b) {
			return 1
		}
		if c := a[i].Compare(b[i]); c != 0 {
			return c
		}
	}
	if len(a) < len(b) {
		return -1
	}
	return 0
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// removePad strips leading zero padding, keeping at least one digit.
func removePad(value string) string {
	trimmed := strings.TrimLeft(value, "0")
	if trimmed == "" && value != "" {
		return "0"
	}
	return trimmed
}
