package format

import (
	"fmt"
	"strconv"
	"strings"
)

// VersionDefaultFormat is the layout used when none is supplied.
const VersionDefaultFormat = "%m_%n_%c"

// versionLevel: micro=1, minor=2, major/epoch=3.
const versionLevel = 3

// Version is a semantic version parsed from, or formatted through, the
// version token table. The canonical standard value follows PEP 440:
// [E!]vMAJOR.MINOR.MICRO[{pre}][{post}][{dev}][+local], and ordering
// follows PEP 440 precedence.
type Version struct {
	epoch string
	major string
	minor string
	micro string
	pre   string
	post  string
	dev   string
	local string

	level *SlotLevel
	std   string
	key   versionKey
}

// ParseVersion parses value against the token layout. An empty layout
// uses VersionDefaultFormat.
func ParseVersion(value, layout string) (*Version, error) {
	if layout == "" {
		layout = VersionDefaultFormat
	}
	captures, err := parseTokens(value, layout, "Version", VersionTokens(nil))
	if err != nil {
		return nil, err
	}
	return NewVersion(captures)
}

// NewVersion builds a Version from named sub-field captures, resolving
// the priority table in declaration order with zero defaults.
func NewVersion(captures map[string]string) (*Version, error) {
	v := &Version{level: NewSlotLevel(versionLevel)}
	for _, rec := range versionPriorities {
		field := rec.target(v)
		if *field != "" {
			continue
		}
		if rec.def {
			*field = rec.value
			continue
		}
		raw, ok := captures[rec.name]
		if !ok {
			continue
		}
		value, err := rec.apply(raw)
		if err != nil {
			return nil, err
		}
		*field = value
		if err := v.level.Update(rec.slots...); err != nil {
			return nil, err
		}
	}
	v.std = v.render()
	key, err := v.resolveKey()
	if err != nil {
		return nil, err
	}
	v.key = key
	return v, nil
}

func (v *Version) render() string {
	release := fmt.Sprintf("v%s.%s.%s", v.major, v.minor, v.micro)
	if v.epoch != "0" {
		release = v.epoch + "!" + release
	}
	if v.pre != "" {
		release += v.pre
	}
	if v.post != "" {
		release += v.post
	}
	if v.dev != "" {
		release += v.dev
	}
	if v.local != "" {
		release += "+" + v.local
	}
	return release
}

// StandardValue implements Formatter.
func (v *Version) StandardValue() string { return v.std }

// Level implements Formatter.
func (v *Version) Level() *SlotLevel { return v.level }

// Release returns the numeric major, minor and micro components.
func (v *Version) Release() (major, minor, micro int) {
	return v.key.release[0], v.key.release[1], v.key.release[2]
}

// Format implements Formatter by rendering the version through the
// version token table.
func (v *Version) Format(layout string) (string, error) {
	return formatTokens(layout, "Version", VersionTokens(v))
}

// Compare implements Formatter with PEP 440 precedence.
func (v *Version) Compare(other Formatter) int {
	o, ok := other.(*Version)
	if !ok {
		return 0
	}
	return v.key.compare(o.key)
}

func (v *Version) String() string { return v.std }

type vsPriority struct {
	name   string
	target func(v *Version) *string
	def    bool
	value  string
	slots  []int
	apply  func(raw string) (string, error)
}

func vsIdentity(raw string) (string, error) { return raw, nil }

// normalizeRelease maps spelled-out pre/post release prefixes to their
// canonical letters: alpha->a, beta->b, c|pre|preview->rc, rev|r|- ->post.
func normalizeRelease(raw string) (string, error) {
	lowered := strings.ToLower(raw)
	for _, rule := range []struct{ prefix, replace string }{
		{"alpha", "a"},
		{"beta", "b"},
		{"preview", "rc"},
		{"pre", "rc"},
		{"rc", "rc"},
		{"rev", "post"},
		{"post", "post"},
		{"c", "rc"},
		{"r", "post"},
		{"-", "post"},
		{"a", "a"},
		{"b", "b"},
	} {
		if strings.HasPrefix(lowered, rule.prefix) {
			number := strings.TrimLeft(lowered[len(rule.prefix):], "-_.")
			return rule.replace + number, nil
		}
	}
	return "", fmt.Errorf("release segment %q is not recognized", raw)
}

func normalizeDev(raw string) (string, error) {
	lowered := strings.ToLower(raw)
	if !strings.HasPrefix(lowered, "dev") {
		return "", fmt.Errorf("dev segment %q is not recognized", raw)
	}
	return "dev" + strings.TrimLeft(lowered[3:], "-_."), nil
}

var versionPriorities = []vsPriority{
	{name: "epoch", target: func(v *Version) *string { return &v.epoch }, slots: []int{3},
		apply: func(raw string) (string, error) { return strings.TrimSuffix(raw, "!"), nil }},
	{name: "epoch_num", target: func(v *Version) *string { return &v.epoch }, slots: []int{3}, apply: vsIdentity},
	{name: "epoch_default", target: func(v *Version) *string { return &v.epoch }, def: true, value: "0"},
	{name: "major", target: func(v *Version) *string { return &v.major }, slots: []int{3}, apply: vsIdentity},
	{name: "major_default", target: func(v *Version) *string { return &v.major }, def: true, value: "0"},
	{name: "minor", target: func(v *Version) *string { return &v.minor }, slots: []int{2}, apply: vsIdentity},
	{name: "minor_default", target: func(v *Version) *string { return &v.minor }, def: true, value: "0"},
	{name: "micro", target: func(v *Version) *string { return &v.micro }, slots: []int{1}, apply: vsIdentity},
	{name: "micro_default", target: func(v *Version) *string { return &v.micro }, def: true, value: "0"},
	{name: "pre", target: func(v *Version) *string { return &v.pre }, slots: []int{0}, apply: normalizeRelease},
	{name: "post", target: func(v *Version) *string { return &v.post }, slots: []int{0}, apply: normalizeRelease},
	{name: "post_num", target: func(v *Version) *string { return &v.post }, slots: []int{0},
		apply: func(raw string) (string, error) { return "post" + raw, nil }},
	{name: "dev", target: func(v *Version) *string { return &v.dev }, slots: []int{0}, apply: normalizeDev},
	{name: "local", target: func(v *Version) *string { return &v.local }, slots: []int{0},
		apply: func(raw string) (string, error) { return strings.TrimPrefix(raw, "+"), nil }},
	{name: "local_str", target: func(v *Version) *string { return &v.local }, slots: []int{0}, apply: vsIdentity},
}

// VersionTokens returns the version token table bound to v; a nil
// receiver binds a table suitable for parsing only, with the values of
// v0.0.1.
func VersionTokens(v *Version) TokenTable {
	if v == nil {
		v = &Version{epoch: "0", major: "0", minor: "0", micro: "1"}
	}
	constant := func(value string) func() string {
		return func() string { return value }
	}
	return TokenTable{
		"%f": {
			Value: constant(fmt.Sprintf("%s_%s_%s", v.major, v.minor, v.micro)),
			Regex: `(?P<major>\d{1,3})_(?P<minor>\d{1,3})_(?P<micro>\d{1,3})`,
		},
		"%m":  {Value: constant(v.major), Regex: `(?P<major>\d{1,3})`},
		"%n":  {Value: constant(v.minor), Regex: `(?P<minor>\d{1,3})`},
		"%c":  {Value: constant(v.micro), Regex: `(?P<micro>\d{1,3})`},
		"%e":  {Value: constant(v.epoch + "!"), Regex: `(?P<epoch>[0-9]+!)`},
		"%-e": {Value: constant(v.epoch), Regex: `(?P<epoch_num>[0-9]+)`},
		"%q": {
			Value: constant(v.pre),
			Regex: `(?P<pre>(a|b|c|rc|alpha|beta|pre|preview)[-_\.]?[0-9]+)`,
		},
		"%p": {
			Value: constant(v.post),
			Regex: `(?P<post>(?:(post|rev|r)[-_\.]?[0-9]+)|(?:-[0-9]+))`,
		},
		"%-p": {
			Value: constant(strings.TrimPrefix(v.post, "post")),
			Regex: `(?P<post_num>[0-9]+)`,
		},
		"%d": {Value: constant(v.dev), Regex: `(?P<dev>dev[-_\.]?[0-9]+)`},
		"%l": {
			Value: constant(v.local),
			Regex: `(?P<local>\+[a-z0-9]+(?:[-_\.][a-z0-9]+)*)`,
		},
		"%-l": {
			Value: constant(v.local),
			Regex: `(?P<local_str>[a-z0-9]+(?:[-_\.][a-z0-9]+)*)`,
		},
	}
}

// versionKey is the PEP 440 comparison key.
type versionKey struct {
	epoch   int
	release [3]int
	pre     []int
	post    []int
	dev     []int
	local   []localSegment
}

type localSegment struct {
	number  int
	text    string
	numeric bool
}

var preRanks = map[string]int{"a": 0, "b": 1, "rc": 2}

func (v *Version) resolveKey() (versionKey, error) {
	key := versionKey{}
	numbers := [...]struct {
		raw    string
		target *int
	}{
		{v.epoch, &key.epoch},
		{v.major, &key.release[0]},
		{v.minor, &key.release[1]},
		{v.micro, &key.release[2]},
	}
	for _, field := range numbers {
		n, err := strconv.Atoi(field.raw)
		if err != nil {
			return key, fmt.Errorf("version sub-field %q is not numeric: %w", field.raw, err)
		}
		*field.target = n
	}

	// PEP 440 precedence: a dev-only release sorts before any pre
	// release, which sorts before the plain release.
	switch {
	case v.pre == "" && v.post == "" && v.dev != "":
		key.pre = []int{-2}
	case v.pre == "":
		key.pre = []int{0}
	default:
		letters := strings.TrimRight(v.pre, "0123456789")
		rank, ok := preRanks[letters]
		if !ok {
			return key, fmt.Errorf("pre release segment %q is not recognized", v.pre)
		}
		key.pre = []int{-1, rank, segmentNumber(v.pre)}
	}
	if v.post == "" {
		key.post = []int{-1}
	} else {
		key.post = []int{0, segmentNumber(v.post)}
	}
	if v.dev == "" {
		key.dev = []int{1}
	} else {
		key.dev = []int{0, segmentNumber(v.dev)}
	}
	for _, seg := range strings.FieldsFunc(v.local, func(r rune) bool {
		return r == '.' || r == '-' || r == '_'
	}) {
		if n, err := strconv.Atoi(seg); err == nil {
			key.local = append(key.local, localSegment{number: n, numeric: true})
		} else {
			key.local = append(key.local, localSegment{text: seg})
		}
	}
	return key, nil
}

func segmentNumber(segment string) int {
	digits := strings.TrimLeft(segment, "abcdefghijklmnopqrstuvwxyz-_.")
	if digits == "" {
		return 0
	}
	n, _ := strconv.Atoi(digits)
	return n
}

func (k versionKey) compare(other versionKey) int {
	if c := compareInt(k.epoch, other.epoch); c != 0 {
		return c
	}
	for i := range k.release {
		if c := compareInt(k.release[i], other.release[i]); c != 0 {
			return c
		}
	}
	for _, pair := range [][2][]int{
		{k.pre, other.pre},
		{k.post, other.post},
		{k.dev, other.dev},
	} {
		if c := compareIntSlices(pair[0], pair[1]); c != 0 {
			return c
		}
	}
	return compareLocal(k.local, other.local)
}

func compareIntSlices(a, b []int) int {
	for i := range a {
		if i >= len(b) {
			return 1
		}
		if c := compareInt(a[i], b[i]); c != 0 {
			return c
		}
	}
	if len(a) < len(b) {
		return -1
	}
	return 0
}

// compareLocal orders local segments per PEP 440: numeric segments
// compare numerically and rank above alphanumeric ones.
func compareLocal(a, b []localSegment) int {
	for i := range a {
		if i >= len(b) {
			return 1
		}
		x, y := a[i], b[i]
		switch {
		case x.numeric && y.numeric:
			if c := compareInt(x.number, y.number); c != 0 {
				return c
			}
		case x.numeric:
			return 1
		case y.numeric:
			return -1
		default:
			if c := strings.Compare(x.text, y.text); c != 0 {
				return c
			}
		}
	}
	if len(a) < len(b) {
		return -1
	}
	return 0
}
