package format

import "fmt"

// SlotLevel records which positional fields of a formatted value were
// explicitly supplied by input, as opposed to filled from defaults.
// Slots are 1-indexed; higher positions carry more weight, so a value
// parsed from a more specific pattern ranks above one that relied on
// defaults. This drives retention tie-breaks between files.
type SlotLevel struct {
	slots []bool
}

// NewSlotLevel creates a SlotLevel with the given number of slots,
// all unset.
func NewSlotLevel(level int) *SlotLevel {
	return &SlotLevel{slots: make([]bool, level)}
}

// Level returns the number of slots.
func (s *SlotLevel) Level() int {
	return len(s.slots)
}

// Update sets the given 1-indexed slots. A number of 0 is a sentinel
// meaning "no slot" and is skipped; any other number outside
// [1, Level()] is an error.
func (s *SlotLevel) Update(numbers ...int) error {
	for _, num := range numbers {
		if num == 0 {
			continue
		}
		if num < 1 || num > len(s.slots) {
			return fmt.Errorf("slot number %d is not in range [1, %d]", num, len(s.slots))
		}
		s.slots[num-1] = true
	}
	return nil
}

// Count returns the number of set slots.
func (s *SlotLevel) Count() int {
	count := 0
	for _, set := range s.slots {
		if set {
			count++
		}
	}
	return count
}

// Value returns the weighted sum of set slots, where slot i
// contributes i (1-indexed). This is the sole ordering key.
func (s *SlotLevel) Value() int {
	value := 0
	for i, set := range s.slots {
		if set {
			value += i + 1
		}
	}
	return value
}

// Slots returns a copy of the slot states.
func (s *SlotLevel) Slots() []bool {
	out := make([]bool, len(s.slots))
	copy(out, s.slots)
	return out
}

// Compare returns -1, 0 or 1 ordering two slot levels by Value.
func (s *SlotLevel) Compare(other *SlotLevel) int {
	switch a, b := s.Value(), other.Value(); {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (s *SlotLevel) String() string {
	return fmt.Sprintf("SlotLevel(level=%d, value=%d)", len(s.slots), s.Value())
}
