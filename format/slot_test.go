package format

import "testing"

func TestSlotLevelUpdate(t *testing.T) {
	slot := NewSlotLevel(8)
	if err := slot.Update(8, 7, 6, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := slot.Count(); got != 4 {
		t.Errorf("expected count 4, got %d", got)
	}
	if got := slot.Value(); got != 22 {
		t.Errorf("expected value 22, got %d", got)
	}

	// Reapplying the same slot is idempotent.
	if err := slot.Update(8); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := slot.Count(); got != 4 {
		t.Errorf("expected count 4 after reapply, got %d", got)
	}

	// Zero is a no-op sentinel.
	if err := slot.Update(0); err != nil {
		t.Fatalf("unexpected error for zero: %v", err)
	}
	if got := slot.Count(); got != 4 {
		t.Errorf("expected count 4 after zero, got %d", got)
	}
}

func TestSlotLevelUpdateOutOfRange(t *testing.T) {
	tests := []struct {
		name   string
		level  int
		number int
	}{
		{"above level", 3, 4},
		{"negative", 3, -1},
		{"far above", 1, 99},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slot := NewSlotLevel(tt.level)
			if err := slot.Update(tt.number); err == nil {
				t.Errorf("expected error for number %d at level %d", tt.number, tt.level)
			}
		})
	}
}

func TestSlotLevelCompare(t *testing.T) {
	a := NewSlotLevel(8)
	b := NewSlotLevel(8)
	if err := a.Update(8, 7); err != nil {
		t.Fatal(err)
	}
	if err := b.Update(6, 5, 1); err != nil {
		t.Fatal(err)
	}

	if got := a.Compare(b); got != 1 {
		t.Errorf("expected a > b, got compare %d", got)
	}
	if got := b.Compare(a); got != -1 {
		t.Errorf("expected b < a, got compare %d", got)
	}
	if got := a.Compare(a); got != 0 {
		t.Errorf("expected a == a, got compare %d", got)
	}
}

func TestSlotLevelSlotsCopy(t *testing.T) {
	slot := NewSlotLevel(3)
	if err := slot.Update(2); err != nil {
		t.Fatal(err)
	}
	slots := slot.Slots()
	slots[0] = true
	if slot.Count() != 1 {
		t.Error("Slots must return a copy, not the backing array")
	}
}
