package format

import (
	"testing"
	"time"
)

func TestParseDatetime(t *testing.T) {
	tests := []struct {
		name   string
		value  string
		layout string
		want   string
	}{
		{
			name:   "partial fields with defaults",
			value:  "2021-01-1 135043",
			layout: "%Y-%m-%-d %f",
			want:   "2021-01-01 00:00:00.135",
		},
		{
			name:   "compact date",
			value:  "20220102",
			layout: "%Y%m%d",
			want:   "2022-01-02 00:00:00.000",
		},
		{
			name:   "composite token",
			value:  "20220131_235959",
			layout: "%n",
			want:   "2022-01-31 23:59:59.000",
		},
		{
			name:   "month name",
			value:  "2022 Feb 03",
			layout: "%Y %b %d",
			want:   "2022-02-03 00:00:00.000",
		},
		{
			name:   "twelve hour clock pm",
			value:  "2022-06-01 05 PM",
			layout: "%Y-%m-%d %I %p",
			want:   "2022-06-01 17:00:00.000",
		},
		{
			name:   "day of year",
			value:  "2022-059",
			layout: "%Y-%j",
			want:   "2022-02-28 00:00:00.000",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dt, err := ParseDatetime(tt.value, tt.layout)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := dt.StandardValue(); got != tt.want {
				t.Errorf("expected standard value %q, got %q", tt.want, got)
			}
		})
	}
}

func TestParseDatetimeMismatch(t *testing.T) {
	if _, err := ParseDatetime("not-a-date", "%Y%m%d"); err == nil {
		t.Error("expected error for mismatched value")
	}
	if _, err := ParseDatetime("20220101", "%Q"); err == nil {
		t.Error("expected error for unknown token")
	}
}

func TestNewDatetimeWeekOfYear(t *testing.T) {
	// Week 02 of 2022 with Sunday as the first weekday, Saturday:
	// January 15.
	dt, err := NewDatetime(map[string]string{
		"year":               "2022",
		"weeks_year_sun_pad": "02",
		"week":               "6",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := dt.StandardValue(); got != "2022-01-15 00:00:00.000" {
		t.Errorf("expected 2022-01-15, got %q", got)
	}
	if got := dt.Level().Value(); got != 21 {
		t.Errorf("expected level value 21, got %d", got)
	}
}

func TestDatetimeSlotLevel(t *testing.T) {
	dt, err := ParseDatetime("2021-01-1 135043", "%Y-%m-%-d %f")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []bool{true, false, false, false, false, true, true, true}
	got := dt.Level().Slots()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected slots %v, got %v", want, got)
		}
	}
	if value := dt.Level().Value(); value != 22 {
		t.Errorf("expected level value 22, got %d", value)
	}
}

func TestDatetimeOrdering(t *testing.T) {
	earlier, err := ParseDatetime("2021-01-1 135043", "%Y-%m-%-d %f")
	if err != nil {
		t.Fatal(err)
	}
	later, err := ParseDatetime("2021-01-2 135043", "%Y-%m-%-d %f")
	if err != nil {
		t.Fatal(err)
	}

	if earlier.Compare(later) >= 0 {
		t.Error("expected earlier < later")
	}
	if later.Compare(earlier) <= 0 {
		t.Error("expected later > earlier")
	}
	if earlier.Compare(earlier) != 0 {
		t.Error("expected earlier == earlier")
	}
}

func TestDatetimeFormatRoundTrip(t *testing.T) {
	tests := []struct {
		value  string
		layout string
	}{
		{"20220102_131415", "%n"},
		{"2022-01-02", "%Y-%m-%d"},
		{"02/01/2022 13:14", "%d/%m/%Y %H:%M"},
		{"2022-059", "%Y-%j"},
	}
	for _, tt := range tests {
		t.Run(tt.layout, func(t *testing.T) {
			dt, err := ParseDatetime(tt.value, tt.layout)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got, err := dt.Format(tt.layout)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.value {
				t.Errorf("round trip of %q through %q produced %q", tt.value, tt.layout, got)
			}
		})
	}
}

func TestDatetimeTime(t *testing.T) {
	dt, err := ParseDatetime("20220102", "%Y%m%d")
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2022, time.January, 2, 0, 0, 0, 0, time.UTC)
	if !dt.Time().Equal(want) {
		t.Errorf("expected %v, got %v", want, dt.Time())
	}
}
