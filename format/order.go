package format

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Categories lists the formatter categories with registered token
// tables, in fixed comparison priority order.
var Categories = []string{"timestamp", "version", "serial"}

// Value is a raw captured string together with the token layout that
// produced it, ready to be parsed into a Formatter.
type Value struct {
	Fmt   string
	Value string
}

// ParseCategory parses a raw value with its layout under the named
// formatter category.
func ParseCategory(category, value, layout string) (Formatter, error) {
	switch category {
	case "timestamp":
		return ParseDatetime(value, layout)
	case "version":
		return ParseVersion(value, layout)
	case "serial":
		return ParseSerial(value, layout)
	default:
		return nil, fmt.Errorf("formatter category %q is not registered", category)
	}
}

// OrderFormat aggregates named formatter instances extracted from one
// filename into a single comparable key. Keys of the source mapping
// may carry a numeric suffix ("timestamp_1") denoting repeated
// occurrences of the same category; suffixes are stripped to group
// occurrences under the base category in suffix order.
type OrderFormat struct {
	data  map[string][]Formatter
	extra map[string][]string
}

var categorySuffix = regexp.MustCompile(`_(\d+)$`)

// NewOrderFormat builds an OrderFormat from a raw mapping whose values
// are either Value captures to parse or already-built Formatter
// instances. Values under keys outside the registered categories are
// kept as opaque strings with no ordering contract.
func NewOrderFormat(mapping map[string]any) (*OrderFormat, error) {
	o := &OrderFormat{
		data:  make(map[string][]Formatter),
		extra: make(map[string][]string),
	}
	for _, name := range sortedOccurrences(mapping) {
		base := categorySuffix.ReplaceAllString(name, "")
		known := false
		for _, category := range Categories {
			if base == category {
				known = true
				break
			}
		}
		switch value := mapping[name].(type) {
		case Formatter:
			if !known {
				return nil, fmt.Errorf("formatter value under unknown category %q", name)
			}
			o.data[base] = append(o.data[base], value)
		case Value:
			if !known {
				o.extra[base] = append(o.extra[base], value.Value)
				continue
			}
			parsed, err := ParseCategory(base, value.Value, value.Fmt)
			if err != nil {
				return nil, err
			}
			o.data[base] = append(o.data[base], parsed)
		default:
			return nil, fmt.Errorf("value of key %q does not support type %T", name, mapping[name])
		}
	}
	return o, nil
}

// sortedOccurrences orders mapping keys by base name then numeric
// suffix, so repeated occurrences keep their template order.
func sortedOccurrences(mapping map[string]any) []string {
	names := make([]string, 0, len(mapping))
	for name := range mapping {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		bi, ni := splitSuffix(names[i])
		bj, nj := splitSuffix(names[j])
		if bi != bj {
			return bi < bj
		}
		return ni < nj
	})
	return names
}

func splitSuffix(name string) (string, int) {
	match := categorySuffix.FindStringSubmatch(name)
	if match == nil {
		return name, 0
	}
	n, _ := strconv.Atoi(match[1])
	return strings.TrimSuffix(name, match[0]), n
}

// Data returns the grouped formatter sequences by category.
func (o *OrderFormat) Data() map[string][]Formatter { return o.data }

// Get returns the formatter sequence of one category.
func (o *OrderFormat) Get(category string) []Formatter { return o.data[category] }

// AdjustTimestamp replaces every timestamp with the value shifted back
// by the given number of calendar units ("years", "months", "days",
// "hours", "minutes" or "seconds"; empty defaults to months).
func (o *OrderFormat) AdjustTimestamp(value int, metric string) error {
	timestamps, ok := o.data["timestamp"]
	if !ok {
		return fmt.Errorf("order format object does not have %q in name formatter", "timestamp")
	}
	if metric == "" {
		metric = "months"
	}
	replaced := make([]Formatter, 0, len(timestamps))
	for _, entry := range timestamps {
		dt, ok := entry.(*Datetime)
		if !ok {
			return fmt.Errorf("timestamp entry has unexpected type %T", entry)
		}
		shifted, err := subtractCalendar(dt.Time(), value, metric)
		if err != nil {
			return err
		}
		parsed, err := ParseDatetime(shifted.Format("20060102 150405"), "%Y%m%d %H%M%S")
		if err != nil {
			return err
		}
		replaced = append(replaced, parsed)
	}
	o.data["timestamp"] = replaced
	return nil
}

// AdjustVersion replaces every version with a floor computed from a
// 3-component spec: "*" keeps a component, "0" forces it to zero, and
// a literal subtracts from it, floored at zero.
func (o *OrderFormat) AdjustVersion(spec string) error {
	versions, ok := o.data["version"]
	if !ok {
		return fmt.Errorf("order format object does not have %q in name formatter", "version")
	}
	parts := strings.Split(spec, ".")
	if len(parts) != 3 {
		return fmt.Errorf("version adjustment %q must have 3 components", spec)
	}
	offsets := make([]int, 3)
	for i, part := range parts {
		if part == "*" {
			offsets[i] = -1
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return fmt.Errorf("version adjustment component %q is not valid", part)
		}
		offsets[i] = n
	}
	replaced := make([]Formatter, 0, len(versions))
	for _, entry := range versions {
		vs, ok := entry.(*Version)
		if !ok {
			return fmt.Errorf("version entry has unexpected type %T", entry)
		}
		major, minor, micro := vs.Release()
		release := [3]int{major, minor, micro}
		results := make([]string, 3)
		for i := range release {
			switch {
			case offsets[i] == 0:
				results[i] = "0"
			case offsets[i] < 0:
				results[i] = strconv.Itoa(release[i])
			case release[i]-offsets[i] < 0:
				results[i] = "0"
			default:
				results[i] = strconv.Itoa(release[i] - offsets[i])
			}
		}
		parsed, err := ParseVersion(strings.Join(results, "."), "%m.%n.%c")
		if err != nil {
			return err
		}
		replaced = append(replaced, parsed)
	}
	o.data["version"] = replaced
	return nil
}

// AdjustSerial replaces every serial with the value minus the given
// offset, floored at zero.
func (o *OrderFormat) AdjustSerial(value int) error {
	serials, ok := o.data["serial"]
	if !ok {
		return fmt.Errorf("order format object does not have %q in name formatter", "serial")
	}
	replaced := make([]Formatter, 0, len(serials))
	for _, entry := range serials {
		sr, ok := entry.(*Serial)
		if !ok {
			return fmt.Errorf("serial entry has unexpected type %T", entry)
		}
		number := sr.Number() - value
		if number < 0 {
			number = 0
		}
		parsed, err := ParseSerial(strconv.Itoa(number), "%n")
		if err != nil {
			return err
		}
		replaced = append(replaced, parsed)
	}
	o.data["serial"] = replaced
	return nil
}

// Less orders two OrderFormat keys: categories are visited in fixed
// priority order and the first category present in both operands
// decides. No shared category means not-less-than.
func (o *OrderFormat) Less(other *OrderFormat) bool {
	for _, category := range Categories {
		a, aok := o.data[category]
		b, bok := other.data[category]
		if aok && bok {
			return compareSequences(a, b) < 0
		}
	}
	return false
}

// LessEqual is like Less but falls back to equality when no category
// is shared.
func (o *OrderFormat) LessEqual(other *OrderFormat) bool {
	for _, category := range Categories {
		a, aok := o.data[category]
		b, bok := other.data[category]
		if aok && bok {
			return compareSequences(a, b) <= 0
		}
	}
	return o.Equal(other)
}

// Equal reports whether both keys hold the same categories with equal
// sequences.
func (o *OrderFormat) Equal(other *OrderFormat) bool {
	if len(o.data) != len(other.data) {
		return false
	}
	for category, a := range o.data {
		b, ok := other.data[category]
		if !ok || compareSequences(a, b) != 0 {
			return false
		}
	}
	return true
}

func (o *OrderFormat) String() string {
	parts := make([]string, 0, len(o.data))
	for _, category := range Categories {
		if values, ok := o.data[category]; ok {
			rendered := make([]string, len(values))
			for i, value := range values {
				rendered[i] = value.String()
			}
			parts = append(parts, fmt.Sprintf("%s=[%s]", category, strings.Join(rendered, ", ")))
		}
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// subtractCalendar shifts t back by value units of metric. Month and
// year arithmetic clamps to the last day of the target month instead
// of normalizing into the next one.
func subtractCalendar(t time.Time, value int, metric string) (time.Time, error) {
	switch metric {
	case "years":
		return addMonthsClamped(t, -12*value), nil
	case "months":
		return addMonthsClamped(t, -value), nil
	case "days":
		return t.AddDate(0, 0, -value), nil
	case "hours":
		return t.Add(-time.Duration(value) * time.Hour), nil
	case "minutes":
		return t.Add(-time.Duration(value) * time.Minute), nil
	case "seconds":
		return t.Add(-time.Duration(value) * time.Second), nil
	default:
		return time.Time{}, fmt.Errorf("timestamp metric %q is not supported", metric)
	}
}

func addMonthsClamped(t time.Time, months int) time.Time {
	year := t.Year()
	month := int(t.Month()) - 1 + months
	year += month / 12
	month %= 12
	if month < 0 {
		month += 12
		year--
	}
	day := t.Day()
	if last := lastDayOfMonth(year, time.Month(month+1)); day > last {
		day = last
	}
	return time.Date(
		year, time.Month(month+1), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location(),
	)
}

func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
