package registry

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/arthur-debert/confstage/config"
	"github.com/arthur-debert/confstage/format"
)

// TemplateValues carries the live values a stage template draws from.
type TemplateValues struct {
	Name      string
	Domain    string
	Environ   string
	Timestamp time.Time
	Version   *format.Version
	Extension string
}

// tokenSet binds one template key to its token table; def is the token
// substituted for a bare {key} placeholder.
type tokenSet struct {
	def   string
	table format.TokenTable
}

// Templater fills, compiles and parses stage filename templates. A
// template references the keys name, domain, environ, timestamp,
// version, compress and extension as {key} or {key:pattern}
// placeholders; the same walk over the token tables drives all three
// directions.
type Templater struct {
	sets      map[string]tokenSet
	extension string
}

var namedGroup = regexp.MustCompile(`\(\?P<(\w+)>`)

// NewTemplater builds the token tables for one register identity.
func NewTemplater(values TemplateValues) *Templater {
	fullname := values.Name
	if values.Domain != "" {
		fullname = values.Domain + "_" + values.Name
	}
	short := shortname(values.Name)
	camel := camelName(values.Name)
	return &Templater{
		extension: values.Extension,
		sets: map[string]tokenSet{
			"name": {def: "%n", table: constantTokens(map[string]string{
				"%n":  values.Name,
				"%N":  strings.ToUpper(values.Name),
				"%s":  short,
				"%S":  strings.ToUpper(short),
				"%f":  fullname,
				"%F":  strings.ToUpper(fullname),
				"%c":  lowerFirst(camel),
				"%-c": camel,
			})},
			"domain": {def: "%n", table: constantTokens(map[string]string{
				"%n": values.Domain,
				"%N": strings.ToUpper(values.Domain),
				"%u": stripVowels(values.Domain),
				"%U": strings.ToUpper(stripVowels(values.Domain)),
			})},
			"environ": {def: "%n", table: constantTokens(map[string]string{
				"%n": values.Environ,
				"%N": strings.ToUpper(values.Environ),
				"%u": stripVowels(values.Environ),
				"%U": strings.ToUpper(stripVowels(values.Environ)),
			})},
			"compress": {def: "%g", table: constantTokens(map[string]string{
				"%g":  "gzip",
				"%-g": "gz",
				"%b":  "bz2",
				"%x":  "xz",
				"%z":  "zip",
			})},
			"extension": {def: "%n", table: constantTokens(map[string]string{
				"%n": values.Extension,
			})},
			"timestamp": {def: "%n", table: format.DatetimeTokens(values.Timestamp)},
			"version":   {def: "%f", table: format.VersionTokens(values.Version)},
		},
	}
}

// constantTokens builds a token table whose regex fragments are the
// quoted values themselves.
func constantTokens(values map[string]string) format.TokenTable {
	table := make(format.TokenTable, len(values))
	for token, value := range values {
		value := value
		table[token] = format.Token{
			Value: func() string { return value },
			Regex: regexp.QuoteMeta(value),
		}
	}
	return table
}

// Fill substitutes live values into a template: {key:pattern} renders
// the pattern through the key's token table, bare {key} renders the
// key's default token.
func (t *Templater) Fill(template string) (string, error) {
	return t.walk(template, func(key, pattern string, set tokenSet, _ int) (string, error) {
		return t.substitute(key, pattern, set, func(token format.Token) string {
			return token.Value()
		})
	}, func(literal string) string { return literal })
}

// Compile turns a stage template into an anchored-ready regular
// expression whose placeholders become named capture groups, plus the
// pattern each group was compiled from. Repeated keys get "_N"
// suffixed group names, nested groups included, so the expression
// stays valid.
func (t *Templater) Compile(template string) (string, map[string]string, error) {
	getters := map[string]string{}
	counts := map[string]int{}
	pattern, err := t.walk(template, func(key, fmtPattern string, set tokenSet, _ int) (string, error) {
		if fmtPattern == "" {
			fmtPattern = set.def
		}
		body, err := t.substitute(key, fmtPattern, set, func(token format.Token) string {
			return token.Regex
		})
		if err != nil {
			return "", err
		}
		counts[key]++
		group := key
		if n := counts[key]; n > 1 {
			group = fmt.Sprintf("%s_%d", key, n-1)
			body = namedGroup.ReplaceAllString(body, fmt.Sprintf(`(?P<${1}_%d>`, n-1))
		}
		getters[group] = fmtPattern
		return fmt.Sprintf("(?P<%s>%s)", group, body), nil
	}, regexp.QuoteMeta)
	if err != nil {
		return "", nil, err
	}
	return pattern, getters, nil
}

// Parse matches a stage filename against a compiled template and
// returns the captured raw value with its pattern per placeholder
// group, ready for an order key.
func (t *Templater) Parse(template, filename string) (map[string]format.Value, error) {
	pattern, getters, err := t.Compile(template)
	if err != nil {
		return nil, err
	}
	full, err := regexp.Compile("^" + pattern + `\.` + regexp.QuoteMeta(t.extension) + "$")
	if err != nil {
		return nil, fmt.Errorf("%w: stage template compiles to an invalid expression: %v", config.ErrArgument, err)
	}
	match := full.FindStringSubmatch(filename)
	if match == nil {
		return nil, fmt.Errorf(
			"%w: %q does not match with the format %q", config.ErrArgument, filename, full.String(),
		)
	}
	values := make(map[string]format.Value, len(getters))
	for i, group := range full.SubexpNames() {
		pattern, ok := getters[group]
		if !ok {
			continue
		}
		values[group] = format.Value{Fmt: pattern, Value: match[i]}
	}
	return values, nil
}

// walk scans a template left to right, passing placeholders to onKey
// and the text between them to onLiteral.
func (t *Templater) walk(
	template string,
	onKey func(key, pattern string, set tokenSet, index int) (string, error),
	onLiteral func(string) string,
) (string, error) {
	var out strings.Builder
	last := 0
	for i, loc := range config.Placeholder.FindAllStringSubmatchIndex(template, -1) {
		out.WriteString(onLiteral(template[last:loc[0]]))
		last = loc[1]
		key := template[loc[2]:loc[3]]
		pattern := ""
		if loc[4] >= 0 {
			pattern = template[loc[4]:loc[5]]
		}
		set, ok := t.sets[key]
		if !ok {
			return "", fmt.Errorf("%w: template placeholder %q is not supported", config.ErrArgument, key)
		}
		rendered, err := onKey(key, pattern, set, i)
		if err != nil {
			return "", err
		}
		out.WriteString(rendered)
	}
	out.WriteString(onLiteral(template[last:]))
	return out.String(), nil
}

// substitute replaces every token of a pattern through pick; a bare
// pattern means the set default.
func (t *Templater) substitute(key, pattern string, set tokenSet, pick func(format.Token) string) (string, error) {
	if pattern == "" {
		pattern = set.def
	}
	var unknown error
	replaced := format.TokenPattern.ReplaceAllStringFunc(pattern, func(token string) string {
		entry, ok := set.table[token]
		if !ok {
			unknown = fmt.Errorf(
				"%w: string formatter of %q does not support token %q", config.ErrArgument, key, token,
			)
			return token
		}
		return pick(entry)
	})
	if unknown != nil {
		return "", unknown
	}
	return replaced, nil
}

// shortname concatenates the first letter of each underscore-split
// word.
func shortname(name string) string {
	var out strings.Builder
	for _, word := range strings.Split(name, "_") {
		if word != "" {
			out.WriteByte(word[0])
		}
	}
	return out.String()
}

// camelName renders an underscore name in camel case with an upper
// first letter.
func camelName(name string) string {
	var out strings.Builder
	for _, word := range strings.Split(name, "_") {
		if word == "" {
			continue
		}
		out.WriteString(strings.ToUpper(word[:1]))
		out.WriteString(word[1:])
	}
	return out.String()
}

func lowerFirst(name string) string {
	if name == "" {
		return ""
	}
	return strings.ToLower(name[:1]) + name[1:]
}

func stripVowels(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case 'a', 'e', 'i', 'o', 'u', 'A', 'E', 'I', 'O', 'U':
			return -1
		}
		return r
	}, name)
}
