package format

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DatetimeDefaultFormat is the layout used when none is supplied.
const DatetimeDefaultFormat = "%Y-%m-%d %H:%M:%S.%f"

// datetimeLevel is the number of specificity slots: microsecond=1,
// second=2, minute=3, am/pm=4, hour=5, day=6, month=7, year=8.
const datetimeLevel = 8

var monthNumbers = map[string]string{
	"Jan": "01", "Feb": "02", "Mar": "03", "Apr": "04",
	"May": "05", "Jun": "06", "Jul": "07", "Aug": "08",
	"Sep": "09", "Oct": "10", "Nov": "11", "Dec": "12",
}

var weekNumbers = map[string]string{
	"Mon": "0", "Thu": "1", "Wed": "2", "Tue": "3",
	"Fri": "4", "Sat": "5", "Sun": "6",
}

// Datetime is a timestamp parsed from, or formatted through, the
// datetime token table. The canonical standard value is
// "YYYY-MM-DD HH:MM:SS.mmm" and ordering is chronological.
type Datetime struct {
	year        string
	month       string
	week        string
	weeks       string
	day         string
	hour        string
	minute      string
	second      string
	microsecond string
	local       string

	level *SlotLevel
	std   string
	t     time.Time
}

// ParseDatetime parses value against the token layout. An empty layout
// uses DatetimeDefaultFormat.
func ParseDatetime(value, layout string) (*Datetime, error) {
	if layout == "" {
		layout = DatetimeDefaultFormat
	}
	captures, err := parseTokens(value, layout, "Datetime", DatetimeTokens(time.Time{}))
	if err != nil {
		return nil, err
	}
	return NewDatetime(captures)
}

// NewDatetime builds a Datetime from named sub-field captures,
// resolving the priority table in declaration order and filling
// defaults (at slot level 0) for anything not supplied.
func NewDatetime(captures map[string]string) (*Datetime, error) {
	d := &Datetime{level: NewSlotLevel(datetimeLevel)}
	for _, rec := range datetimePriorities {
		field := rec.target(d)
		if *field != "" {
			continue
		}
		if rec.def {
			value, err := rec.apply(d, "")
			if err != nil {
				return nil, err
			}
			*field = value
			continue
		}
		raw, ok := captures[rec.name]
		if !ok {
			continue
		}
		value, err := rec.apply(d, raw)
		if err != nil {
			return nil, err
		}
		*field = value
		if err := d.level.Update(rec.slots...); err != nil {
			return nil, err
		}
	}
	d.std = fmt.Sprintf(
		"%s-%s-%s %s:%s:%s.%s",
		d.year, d.month, d.day, d.hour, d.minute, d.second, d.microsecond[:3],
	)
	t, err := d.resolveTime()
	if err != nil {
		return nil, err
	}
	d.t = t
	return d, nil
}

func (d *Datetime) resolveTime() (time.Time, error) {
	fields := [...]string{d.year, d.month, d.day, d.hour, d.minute, d.second, d.microsecond[:3]}
	values := make([]int, len(fields))
	for i, field := range fields {
		n, err := strconv.Atoi(field)
		if err != nil {
			return time.Time{}, fmt.Errorf("datetime sub-field %q is not numeric: %w", field, err)
		}
		values[i] = n
	}
	return time.Date(
		values[0], time.Month(values[1]), values[2],
		values[3], values[4], values[5], values[6]*int(time.Millisecond),
		time.UTC,
	), nil
}

// StandardValue implements Formatter.
func (d *Datetime) StandardValue() string { return d.std }

// Level implements Formatter.
func (d *Datetime) Level() *SlotLevel { return d.level }

// Time returns the resolved timestamp.
func (d *Datetime) Time() time.Time { return d.t }

// ISODate returns the date part of the standard value.
func (d *Datetime) ISODate() string {
	return fmt.Sprintf("%s-%s-%s", d.year, d.month, d.day)
}

// Format implements Formatter by rendering the resolved timestamp
// through the datetime token table.
func (d *Datetime) Format(layout string) (string, error) {
	return formatTokens(layout, "Datetime", DatetimeTokens(d.t))
}

// Compare implements Formatter; ordering is chronological.
func (d *Datetime) Compare(other Formatter) int {
	o, ok := other.(*Datetime)
	if !ok {
		return 0
	}
	return strings.Compare(d.std, o.std)
}

func (d *Datetime) String() string { return d.std }

// dtPriority is one record of the datetime priority table: the capture
// name it consumes, the field it resolves, the slot positions an
// explicit value contributes, and the producer.
type dtPriority struct {
	name   string
	target func(d *Datetime) *string
	def    bool
	slots  []int
	apply  func(d *Datetime, raw string) (string, error)
}

func dtIdentity(_ *Datetime, raw string) (string, error) { return raw, nil }

func dtConstant(value string) func(*Datetime, string) (string, error) {
	return func(*Datetime, string) (string, error) { return value, nil }
}

func dtPad2(_ *Datetime, raw string) (string, error) {
	if len(raw) < 2 {
		return "0" + raw, nil
	}
	return raw, nil
}

func dtMonthName(_ *Datetime, raw string) (string, error) {
	month, ok := monthNumbers[truncate(raw, 3)]
	if !ok {
		return "", fmt.Errorf("unknown month name %q", raw)
	}
	return month, nil
}

func dtWeekName(_ *Datetime, raw string) (string, error) {
	week, ok := weekNumbers[truncate(raw, 3)]
	if !ok {
		return "", fmt.Errorf("unknown weekday name %q", raw)
	}
	return week, nil
}

func dtWeekMon(_ *Datetime, raw string) (string, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return "", fmt.Errorf("weekday %q is not numeric: %w", raw, err)
	}
	return strconv.Itoa(n % 7), nil
}

func dtHour12(d *Datetime, raw string) (string, error) {
	if d.local == "PM" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return "", fmt.Errorf("hour %q is not numeric: %w", raw, err)
		}
		return pad2(strconv.Itoa(n + 12)), nil
	}
	return pad2(raw), nil
}

// dateParts is the multi-field output of a derived producer; deriving
// day-of-year or week-of-year resolves month and day at once.
type dateParts struct {
	month string
	day   string
	value string
}

// dtDayOfYear derives month and day from a day-of-year number anchored
// on the already-resolved year.
func dtDayOfYear(d *Datetime, raw string) (string, error) {
	parts, err := dayOfYearParts(d.year, raw)
	if err != nil {
		return "", err
	}
	d.month = parts.month
	return parts.day, nil
}

func dayOfYearParts(year, raw string) (dateParts, error) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return dateParts{}, fmt.Errorf("year %q is not numeric: %w", year, err)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return dateParts{}, fmt.Errorf("day of year %q is not numeric: %w", raw, err)
	}
	t := time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n-1)
	return dateParts{month: t.Format("01"), day: t.Format("02")}, nil
}

// dtWeekYearMon derives month and day from an ISO week number (Monday
// as the first weekday) anchored on the resolved year, honoring an
// already-captured weekday when present.
func dtWeekYearMon(d *Datetime, raw string) (string, error) {
	parts, err := weekMonParts(d.year, raw, d.week)
	if err != nil {
		return "", err
	}
	d.month = parts.month
	d.day = parts.day
	return parts.value, nil
}

func weekMonParts(year, raw, week string) (dateParts, error) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return dateParts{}, fmt.Errorf("year %q is not numeric: %w", year, err)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return dateParts{}, fmt.Errorf("week of year %q is not numeric: %w", raw, err)
	}
	isoWeekday := 1
	if week != "" {
		w, err := strconv.Atoi(week)
		if err != nil {
			return dateParts{}, fmt.Errorf("weekday %q is not numeric: %w", week, err)
		}
		isoWeekday = (w+6)%7 + 1
	}
	// ISO 8601: January 4 is always inside week 1.
	jan4 := time.Date(y, time.January, 4, 0, 0, 0, 0, time.UTC)
	wd := int(jan4.Weekday())
	if wd == 0 {
		wd = 7
	}
	monday := jan4.AddDate(0, 0, 1-wd)
	t := monday.AddDate(0, 0, (v-1)*7+(isoWeekday-1))
	return dateParts{
		month: t.Format("01"),
		day:   t.Format("02"),
		value: strconv.Itoa(int(t.Weekday())),
	}, nil
}

// dtWeekYearSun derives month and day from a week-of-year number with
// Sunday as the first weekday; days before the first Sunday fall in
// week zero.
func dtWeekYearSun(d *Datetime, raw string) (string, error) {
	parts, err := weekSunParts(d.year, raw, d.week)
	if err != nil {
		return "", err
	}
	d.month = parts.month
	d.day = parts.day
	return parts.value, nil
}

func weekSunParts(year, raw, week string) (dateParts, error) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return dateParts{}, fmt.Errorf("year %q is not numeric: %w", year, err)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return dateParts{}, fmt.Errorf("week of year %q is not numeric: %w", raw, err)
	}
	weekday := 0
	if week != "" {
		w, err := strconv.Atoi(week)
		if err != nil {
			return dateParts{}, fmt.Errorf("weekday %q is not numeric: %w", week, err)
		}
		weekday = w
	}
	jan1 := time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
	toFirstSunday := (7 - int(jan1.Weekday())) % 7
	t := jan1.AddDate(0, 0, toFirstSunday+(v-1)*7+weekday)
	return dateParts{
		month: t.Format("01"),
		day:   t.Format("02"),
		value: strconv.Itoa(int(t.Weekday())),
	}, nil
}

func dtWeekDefault(d *Datetime, _ string) (string, error) {
	t, err := time.Parse("2006-01-02", d.ISODate())
	if err != nil {
		return "", fmt.Errorf("cannot derive weekday from %q: %w", d.ISODate(), err)
	}
	return strconv.Itoa(int(t.Weekday())), nil
}

// datetimePriorities is the static ordered priority table. Anchor
// fields (year) resolve before derived fields (day-of-year, ISO week)
// that back-fill month and day; defaults never contribute slots.
var datetimePriorities = []dtPriority{
	{name: "local", target: func(d *Datetime) *string { return &d.local }, slots: []int{4}, apply: dtIdentity},
	{name: "year", target: func(d *Datetime) *string { return &d.year }, slots: []int{8}, apply: dtIdentity},
	{name: "year_cut_pad", target: func(d *Datetime) *string { return &d.year }, slots: []int{8},
		apply: func(_ *Datetime, raw string) (string, error) { return "19" + raw, nil }},
	{name: "year_cut", target: func(d *Datetime) *string { return &d.year }, slots: []int{8},
		apply: func(_ *Datetime, raw string) (string, error) { return "19" + raw, nil }},
	{name: "year_default", target: func(d *Datetime) *string { return &d.year }, def: true, apply: dtConstant("1990")},
	{name: "day_year", target: func(d *Datetime) *string { return &d.day }, slots: []int{7, 6}, apply: dtDayOfYear},
	{name: "day_year_pad", target: func(d *Datetime) *string { return &d.day }, slots: []int{7, 6}, apply: dtDayOfYear},
	{name: "month", target: func(d *Datetime) *string { return &d.month }, slots: []int{7}, apply: dtPad2},
	{name: "month_pad", target: func(d *Datetime) *string { return &d.month }, slots: []int{7}, apply: dtIdentity},
	{name: "month_short", target: func(d *Datetime) *string { return &d.month }, slots: []int{7}, apply: dtMonthName},
	{name: "month_full", target: func(d *Datetime) *string { return &d.month }, slots: []int{7}, apply: dtMonthName},
	{name: "month_default", target: func(d *Datetime) *string { return &d.month }, def: true, apply: dtConstant("01")},
	{name: "day", target: func(d *Datetime) *string { return &d.day }, slots: []int{6}, apply: dtPad2},
	{name: "day_pad", target: func(d *Datetime) *string { return &d.day }, slots: []int{6}, apply: dtIdentity},
	{name: "day_default", target: func(d *Datetime) *string { return &d.day }, def: true, apply: dtConstant("01")},
	{name: "week", target: func(d *Datetime) *string { return &d.week }, slots: []int{0}, apply: dtIdentity},
	{name: "week_mon", target: func(d *Datetime) *string { return &d.week }, slots: []int{0}, apply: dtWeekMon},
	{name: "week_shortname", target: func(d *Datetime) *string { return &d.week }, slots: []int{0}, apply: dtWeekName},
	{name: "week_fullname", target: func(d *Datetime) *string { return &d.week }, slots: []int{0}, apply: dtWeekName},
	{name: "weeks_year_mon_pad", target: func(d *Datetime) *string { return &d.weeks }, slots: []int{7, 6}, apply: dtWeekYearMon},
	{name: "weeks_year_sun_pad", target: func(d *Datetime) *string { return &d.weeks }, slots: []int{7, 6}, apply: dtWeekYearSun},
	{name: "week_default", target: func(d *Datetime) *string { return &d.week }, def: true, apply: dtWeekDefault},
	{name: "hour", target: func(d *Datetime) *string { return &d.hour }, slots: []int{5, 4}, apply: dtPad2},
	{name: "hour_pad", target: func(d *Datetime) *string { return &d.hour }, slots: []int{5, 4}, apply: dtIdentity},
	{name: "hour_12", target: func(d *Datetime) *string { return &d.hour }, slots: []int{5}, apply: dtHour12},
	{name: "hour_12_pad", target: func(d *Datetime) *string { return &d.hour }, slots: []int{5}, apply: dtHour12},
	{name: "hour_default", target: func(d *Datetime) *string { return &d.hour }, def: true, apply: dtConstant("00")},
	{name: "minute", target: func(d *Datetime) *string { return &d.minute }, slots: []int{3}, apply: dtPad2},
	{name: "minute_pad", target: func(d *Datetime) *string { return &d.minute }, slots: []int{3}, apply: dtIdentity},
	{name: "minute_default", target: func(d *Datetime) *string { return &d.minute }, def: true, apply: dtConstant("00")},
	{name: "second", target: func(d *Datetime) *string { return &d.second }, slots: []int{2}, apply: dtPad2},
	{name: "second_pad", target: func(d *Datetime) *string { return &d.second }, slots: []int{2}, apply: dtIdentity},
	{name: "second_default", target: func(d *Datetime) *string { return &d.second }, def: true, apply: dtConstant("00")},
	{name: "microsecond_pad", target: func(d *Datetime) *string { return &d.microsecond }, slots: []int{1}, apply: dtIdentity},
	{name: "microsecond_default", target: func(d *Datetime) *string { return &d.microsecond }, def: true, apply: dtConstant("000000")},
}

// DatetimeTokens returns the datetime token table bound to t. The zero
// time binds a table suitable for parsing only.
func DatetimeTokens(t time.Time) TokenTable {
	layout := func(layout string) func() string {
		return func() string { return t.Format(layout) }
	}
	unpadded := func(layout string) func() string {
		return func() string { return removePad(t.Format(layout)) }
	}
	return TokenTable{
		"%n": {
			Value: layout("20060102_150405"),
			Regex: `(?P<year>\d{4})(?P<month_pad>01|02|03|04|05|06|07|08|09|10|11|12)` +
				`(?P<day_pad>[0-3][0-9])_(?P<hour_pad>[0-2][0-9])` +
				`(?P<minute_pad>[0-6][0-9])(?P<second_pad>[0-6][0-9])`,
		},
		"%Y":  {Value: layout("2006"), Regex: `(?P<year>\d{4})`},
		"%y":  {Value: layout("06"), Regex: `(?P<year_cut_pad>\d{2})`},
		"%-y": {Value: unpadded("06"), Regex: `(?P<year_cut>\d{1,2})`},
		"%m":  {Value: layout("01"), Regex: `(?P<month_pad>01|02|03|04|05|06|07|08|09|10|11|12)`},
		"%-m": {Value: unpadded("1"), Regex: `(?P<month>1|2|3|4|5|6|7|8|9|10|11|12)`},
		"%b":  {Value: layout("Jan"), Regex: `(?P<month_short>Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)`},
		"%B": {
			Value: layout("January"),
			Regex: `(?P<month_full>January|February|March|April|May|June|July|` +
				`August|September|October|November|December)`,
		},
		"%a": {Value: layout("Mon"), Regex: `(?P<week_shortname>Mon|Thu|Wed|Tue|Fri|Sat|Sun)`},
		"%A": {
			Value: layout("Monday"),
			Regex: `(?P<week_fullname>Monday|Thursday|Wednesday|Tuesday|Friday|Saturday|Sunday)`,
		},
		"%w": {
			Value: func() string { return strconv.Itoa(int(t.Weekday())) },
			Regex: `(?P<week>[0-6])`,
		},
		"%u": {
			Value: func() string { return strconv.Itoa(isoWeekday(t)) },
			Regex: `(?P<week_mon>[1-7])`,
		},
		"%d":  {Value: layout("02"), Regex: `(?P<day_pad>[0-3][0-9])`},
		"%-d": {Value: unpadded("2"), Regex: `(?P<day>\d{1,2})`},
		"%H":  {Value: layout("15"), Regex: `(?P<hour_pad>[0-2][0-9])`},
		"%-H": {Value: unpadded("15"), Regex: `(?P<hour>\d{2})`},
		"%I":  {Value: layout("03"), Regex: `(?P<hour_12_pad>00|01|02|03|04|05|06|07|08|09|10|11|12)`},
		"%-I": {Value: unpadded("3"), Regex: `(?P<hour_12>0|1|2|3|4|5|6|7|8|9|10|11|12)`},
		"%M":  {Value: layout("04"), Regex: `(?P<minute_pad>[0-6][0-9])`},
		"%-M": {Value: unpadded("4"), Regex: `(?P<minute>\d{1,2})`},
		"%S":  {Value: layout("05"), Regex: `(?P<second_pad>[0-6][0-9])`},
		"%-S": {Value: unpadded("5"), Regex: `(?P<second>\d{1,2})`},
		"%j": {
			Value: func() string { return fmt.Sprintf("%03d", t.YearDay()) },
			Regex: `(?P<day_year_pad>[0-3][0-9][0-9])`,
		},
		"%-j": {
			Value: func() string { return strconv.Itoa(t.YearDay()) },
			Regex: `(?P<day_year>\d{1,3})`,
		},
		"%U": {
			Value: func() string { return fmt.Sprintf("%02d", weekOfYearSunday(t)) },
			Regex: `(?P<weeks_year_sun_pad>[0-5][0-9])`,
		},
		"%W": {
			Value: func() string { return fmt.Sprintf("%02d", weekOfYearMonday(t)) },
			Regex: `(?P<weeks_year_mon_pad>[0-5][0-9])`,
		},
		"%p": {Value: layout("PM"), Regex: `(?P<local>PM|AM)`},
		"%f": {
			Value: func() string { return fmt.Sprintf("%06d", t.Nanosecond()/1000) },
			Regex: `(?P<microsecond_pad>\d{6})`,
		},
	}
}

func isoWeekday(t time.Time) int {
	if wd := int(t.Weekday()); wd != 0 {
		return wd
	}
	return 7
}

// weekOfYearSunday counts weeks with Sunday first; days before the
// first Sunday of the year fall in week zero.
func weekOfYearSunday(t time.Time) int {
	return (t.YearDay() + 6 - int(t.Weekday())) / 7
}

// weekOfYearMonday counts weeks with Monday first; days before the
// first Monday of the year fall in week zero.
func weekOfYearMonday(t time.Time) int {
	weekday := (int(t.Weekday()) + 6) % 7
	return (t.YearDay() + 6 - weekday) / 7
}

func pad2(value string) string {
	if len(value) < 2 {
		return "0" + value
	}
	return value
}

func truncate(value string, n int) string {
	if len(value) > n {
		return value[:n]
	}
	return value
}
