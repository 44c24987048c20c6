package format

import "testing"

func TestParseSerial(t *testing.T) {
	tests := []struct {
		name   string
		value  string
		layout string
		number int
	}{
		{"plain", "7", "%n", 7},
		{"padded", "009", "%p", 9},
		{"binary", "00001101", "%b", 13},
		{"empty defaults to zero", "", "%n", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ParseSerial(tt.value, tt.layout)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := s.Number(); got != tt.number {
				t.Errorf("expected number %d, got %d", tt.number, got)
			}
		})
	}
}

func TestParseSerialMismatch(t *testing.T) {
	if _, err := ParseSerial("12", "%p"); err == nil {
		t.Error("expected error for value shorter than the padded width")
	}
	if _, err := ParseSerial("7", "%Z"); err == nil {
		t.Error("expected error for unknown token")
	}
}

func TestSerialFormat(t *testing.T) {
	s, err := ParseSerial("009", "%p")
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		layout string
		want   string
	}{
		{"%n", "9"},
		{"%p", "009"},
		{"%b", "00001001"},
	}
	for _, tt := range tests {
		got, err := s.Format(tt.layout)
		if err != nil {
			t.Fatalf("format %q: %v", tt.layout, err)
		}
		if got != tt.want {
			t.Errorf("format %q: expected %q, got %q", tt.layout, tt.want, got)
		}
	}
}

func TestSerialOrdering(t *testing.T) {
	low, err := ParseSerial("2", "%n")
	if err != nil {
		t.Fatal(err)
	}
	high, err := ParseSerial("00001010", "%b")
	if err != nil {
		t.Fatal(err)
	}
	if low.Compare(high) >= 0 {
		t.Errorf("expected %s < %s", low, high)
	}
	if high.Compare(low) <= 0 {
		t.Errorf("expected %s > %s", high, low)
	}
	same, err := ParseSerial("002", "%p")
	if err != nil {
		t.Fatal(err)
	}
	if low.Compare(same) != 0 {
		t.Errorf("expected %s == %s", low, same)
	}
}

func TestSerialSlotLevel(t *testing.T) {
	s, err := ParseSerial("7", "%n")
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Level().Value(); got != 1 {
		t.Errorf("expected level value 1, got %d", got)
	}
	zero, err := ParseSerial("", "%n")
	if err != nil {
		t.Fatal(err)
	}
	if got := zero.Level().Value(); got != 0 {
		t.Errorf("expected level value 0 for defaulted serial, got %d", got)
	}
}
