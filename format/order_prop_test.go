package format

import (
	"fmt"
	"testing"
	"time"

	"pgregory.net/rapid"
)

func genDatetime(t *rapid.T, label string) (*Datetime, time.Time) {
	year := rapid.IntRange(1970, 2099).Draw(t, label+"_year")
	month := rapid.IntRange(1, 12).Draw(t, label+"_month")
	day := rapid.IntRange(1, lastDayOfMonth(year, time.Month(month))).Draw(t, label+"_day")
	hour := rapid.IntRange(0, 23).Draw(t, label+"_hour")
	minute := rapid.IntRange(0, 59).Draw(t, label+"_minute")
	second := rapid.IntRange(0, 59).Draw(t, label+"_second")
	moment := time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
	dt, err := ParseDatetime(moment.Format("20060102 150405"), "%Y%m%d %H%M%S")
	if err != nil {
		t.Fatalf("parse %v: %v", moment, err)
	}
	return dt, moment
}

func TestDatetimeCompareMatchesTime(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a, at := genDatetime(t, "a")
		b, bt := genDatetime(t, "b")
		want := 0
		if at.Before(bt) {
			want = -1
		} else if at.After(bt) {
			want = 1
		}
		if got := a.Compare(b); got != want {
			t.Fatalf("compare %v with %v: expected %d, got %d", at, bt, want, got)
		}
	})
}

func TestDatetimeFormatParseRoundTrip(t *testing.T) {
	layouts := []string{"%Y%m%d %H%M%S", "%Y-%m-%d", "%d/%m/%Y %H:%M", "%Y-%j"}
	rapid.Check(t, func(t *rapid.T) {
		dt, _ := genDatetime(t, "value")
		layout := rapid.SampledFrom(layouts).Draw(t, "layout")
		rendered, err := dt.Format(layout)
		if err != nil {
			t.Fatalf("format %q: %v", layout, err)
		}
		back, err := ParseDatetime(rendered, layout)
		if err != nil {
			t.Fatalf("re-parse %q: %v", rendered, err)
		}
		again, err := back.Format(layout)
		if err != nil {
			t.Fatalf("re-format %q: %v", layout, err)
		}
		if again != rendered {
			t.Fatalf("layout %q: %q re-rendered as %q", layout, rendered, again)
		}
	})
}

func TestVersionCompareConsistency(t *testing.T) {
	genVersion := func(t *rapid.T, label string) *Version {
		value := fmt.Sprintf("%d.%d.%d",
			rapid.IntRange(0, 99).Draw(t, label+"_major"),
			rapid.IntRange(0, 99).Draw(t, label+"_minor"),
			rapid.IntRange(0, 99).Draw(t, label+"_micro"),
		)
		vs, err := ParseVersion(value, "%m.%n.%c")
		if err != nil {
			t.Fatalf("parse %q: %v", value, err)
		}
		return vs
	}
	rapid.Check(t, func(t *rapid.T) {
		a := genVersion(t, "a")
		b := genVersion(t, "b")
		c := genVersion(t, "c")
		if a.Compare(b) != -b.Compare(a) {
			t.Fatalf("compare of %s and %s is not antisymmetric", a, b)
		}
		if a.Compare(b) <= 0 && b.Compare(c) <= 0 && a.Compare(c) > 0 {
			t.Fatalf("compare of %s, %s, %s is not transitive", a, b, c)
		}
	})
}

func TestOrderFormatLessConsistency(t *testing.T) {
	genKey := func(t *rapid.T, label string) *OrderFormat {
		mapping := map[string]any{
			"timestamp": Value{
				Fmt: "%Y%m%d",
				Value: fmt.Sprintf("%04d%02d%02d",
					rapid.IntRange(1970, 2099).Draw(t, label+"_year"),
					rapid.IntRange(1, 12).Draw(t, label+"_month"),
					rapid.IntRange(1, 28).Draw(t, label+"_day"),
				),
			},
			"version": Value{
				Fmt: "%m.%n.%c",
				Value: fmt.Sprintf("%d.%d.%d",
					rapid.IntRange(0, 9).Draw(t, label+"_major"),
					rapid.IntRange(0, 9).Draw(t, label+"_minor"),
					rapid.IntRange(0, 9).Draw(t, label+"_micro"),
				),
			},
		}
		o, err := NewOrderFormat(mapping)
		if err != nil {
			t.Fatalf("build key: %v", err)
		}
		return o
	}
	rapid.Check(t, func(t *rapid.T) {
		a := genKey(t, "a")
		b := genKey(t, "b")
		switch {
		case a.Equal(b):
			if a.Less(b) || b.Less(a) {
				t.Fatalf("equal keys %s and %s must not be ordered", a, b)
			}
			if !a.LessEqual(b) || !b.LessEqual(a) {
				t.Fatalf("equal keys %s and %s must be less-or-equal both ways", a, b)
			}
		case a.Less(b):
			if b.Less(a) {
				t.Fatalf("keys %s and %s ordered both ways", a, b)
			}
			if !a.LessEqual(b) {
				t.Fatalf("key %s less than %s but not less-or-equal", a, b)
			}
		default:
			if !b.Less(a) {
				t.Fatalf("keys %s and %s are neither ordered nor equal", a, b)
			}
		}
	})
}

func TestAdjustSerialNeverNegative(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		start := rapid.IntRange(0, 1000).Draw(t, "start")
		offset := rapid.IntRange(0, 2000).Draw(t, "offset")
		o, err := NewOrderFormat(map[string]any{
			"serial": Value{Fmt: "%n", Value: fmt.Sprintf("%d", start)},
		})
		if err != nil {
			t.Fatalf("build key: %v", err)
		}
		if err := o.AdjustSerial(offset); err != nil {
			t.Fatalf("adjust: %v", err)
		}
		adjusted := o.Get("serial")[0].(*Serial).Number()
		want := start - offset
		if want < 0 {
			want = 0
		}
		if adjusted != want {
			t.Fatalf("start %d offset %d: expected %d, got %d", start, offset, adjusted, want)
		}
	})
}
