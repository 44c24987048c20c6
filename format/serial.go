package format

import (
	"fmt"
	"strconv"
)

// SerialDefaultFormat is the layout used when none is supplied.
const SerialDefaultFormat = "%n"

const (
	serialLevel      = 1
	serialMaxPadding = 3
	serialMaxBinary  = 8
)

// Serial is a serial number parsed from, or formatted through, the
// serial token table. The canonical standard value is the decimal
// string and ordering is numeric.
type Serial struct {
	number string

	level  *SlotLevel
	serial int
}

// ParseSerial parses value against the token layout. An empty layout
// uses SerialDefaultFormat.
func ParseSerial(value, layout string) (*Serial, error) {
	if layout == "" {
		layout = SerialDefaultFormat
	}
	captures, err := parseTokens(value, layout, "Serial", SerialTokens(0))
	if err != nil {
		return nil, err
	}
	return NewSerial(captures)
}

// NewSerial builds a Serial from named sub-field captures with a zero
// default.
func NewSerial(captures map[string]string) (*Serial, error) {
	s := &Serial{level: NewSlotLevel(serialLevel)}
	for _, rec := range serialPriorities {
		if s.number != "" {
			break
		}
		if rec.def {
			s.number = "0"
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
		s.number = value
		if err := s.level.Update(rec.slot); err != nil {
			return nil, err
		}
	}
	serial, err := strconv.Atoi(s.number)
	if err != nil {
		return nil, fmt.Errorf("serial %q is not numeric: %w", s.number, err)
	}
	s.serial = serial
	return s, nil
}

// StandardValue implements Formatter.
func (s *Serial) StandardValue() string { return s.number }

// Level implements Formatter.
func (s *Serial) Level() *SlotLevel { return s.level }

// Number returns the resolved serial number.
func (s *Serial) Number() int { return s.serial }

// Format implements Formatter by rendering the number through the
// serial token table.
func (s *Serial) Format(layout string) (string, error) {
	return formatTokens(layout, "Serial", SerialTokens(s.serial))
}

// Compare implements Formatter; ordering is numeric.
func (s *Serial) Compare(other Formatter) int {
	o, ok := other.(*Serial)
	if !ok {
		return 0
	}
	return compareInt(s.serial, o.serial)
}

func (s *Serial) String() string { return s.number }

type srPriority struct {
	name  string
	def   bool
	slot  int
	apply func(raw string) (string, error)
}

var serialPriorities = []srPriority{
	{name: "number", slot: 1, apply: func(raw string) (string, error) { return raw, nil }},
	{name: "number_pad", slot: 1, apply: func(raw string) (string, error) { return removePad(raw), nil }},
	{name: "number_binary", slot: 1, apply: func(raw string) (string, error) {
		n, err := strconv.ParseInt(raw, 2, 64)
		if err != nil {
			return "", fmt.Errorf("binary serial %q does not parse: %w", raw, err)
		}
		return strconv.FormatInt(n, 10), nil
	}},
	{name: "number_default", def: true},
}

// SerialTokens returns the serial token table bound to n.
//
//	%n : plain decimal
//	%p : zero-padded decimal, width 3
//	%b : binary, width 8
func SerialTokens(n int) TokenTable {
	value := ""
	if n != 0 {
		value = strconv.Itoa(n)
	}
	constant := func(v string) func() string {
		return func() string { return v }
	}
	padded := ""
	binary := ""
	if value != "" {
		padded = fmt.Sprintf("%0*d", serialMaxPadding, n)
		binary = fmt.Sprintf("%0*b", serialMaxBinary, n)
	}
	return TokenTable{
		"%n": {Value: constant(value), Regex: `(?P<number>[0-9]*)`},
		"%p": {Value: constant(padded), Regex: fmt.Sprintf(`(?P<number_pad>[0-9]{%d})`, serialMaxPadding)},
		"%b": {Value: constant(binary), Regex: `(?P<number_binary>[0-1]*)`},
	}
}
