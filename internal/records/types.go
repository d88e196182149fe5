package records

import (
	"fmt"
	"sort"
)

// AbsenceType is the duration of one person's absence on one date
type AbsenceType int

const (
	Half AbsenceType = iota + 1
	Full
)

// String returns the on-disk name of the type ("half" / "full")
func (t AbsenceType) String() string {
	switch t {
	case Half:
		return "half"
	case Full:
		return "full"
	default:
		return fmt.Sprintf("AbsenceType(%d)", int(t))
	}
}

// Valid reports whether t is Half or Full
func (t AbsenceType) Valid() bool {
	return t == Half || t == Full
}

// ParseAbsenceType parses "half" or "full"
func ParseAbsenceType(s string) (AbsenceType, error) {
	switch s {
	case "half":
		return Half, nil
	case "full":
		return Full, nil
	default:
		return 0, &ValidationError{Field: "type", Value: s, Err: ErrInvalidType}
	}
}

// MarshalText implements encoding.TextMarshaler
func (t AbsenceType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, &ValidationError{Field: "type", Value: t.String(), Err: ErrInvalidType}
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (t *AbsenceType) UnmarshalText(text []byte) error {
	parsed, err := ParseAbsenceType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// DayEntry maps person → absence type for one date
type DayEntry map[string]AbsenceType

// Clone returns an independent copy of the entry
func (e DayEntry) Clone() DayEntry {
	out := make(DayEntry, len(e))
	for name, t := range e {
		out[name] = t
	}
	return out
}

// People returns the people in the entry in byte order
func (e DayEntry) People() []string {
	names := make([]string, 0, len(e))
	for name := range e {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Counts returns the number of half and full entries
func (e DayEntry) Counts() (half, full int) {
	for _, t := range e {
		switch t {
		case Half:
			half++
		case Full:
			full++
		}
	}
	return half, full
}

func (e DayEntry) validate() error {
	for name, t := range e {
		if err := ValidatePerson(name); err != nil {
			return err
		}
		if !t.Valid() {
			return &ValidationError{Field: "type", Value: t.String(), Err: ErrInvalidType}
		}
	}
	return nil
}

// Snapshot is an immutable view of the committed state
type Snapshot struct {
	days  map[string]DayEntry
	dates []string // sorted keys of days
}

func newSnapshot(days map[string]DayEntry) *Snapshot {
	dates := make([]string, 0, len(days))
	for date, entry := range days {
		if len(entry) == 0 {
			delete(days, date)
			continue
		}
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return &Snapshot{days: days, dates: dates}
}

// Len returns the number of dates with at least one entry
func (s *Snapshot) Len() int {
	return len(s.dates)
}

// Entry returns a copy of the entry for date, empty when absent
func (s *Snapshot) Entry(date string) DayEntry {
	return s.days[date].Clone()
}

// Dates returns every stored date in ascending order
func (s *Snapshot) Dates() []string {
	out := make([]string, len(s.dates))
	copy(out, s.dates)
	return out
}

// Range calls fn for every stored date in [start, end] in ascending order
// until fn returns false. The entry passed to fn is shared and must not be
// modified.
func (s *Snapshot) Range(start, end string, fn func(date string, entry DayEntry) bool) {
	i := sort.SearchStrings(s.dates, start)
	for ; i < len(s.dates) && s.dates[i] <= end; i++ {
		if !fn(s.dates[i], s.days[s.dates[i]]) {
			return
		}
	}
}

// Each calls fn for every stored date in ascending order
func (s *Snapshot) Each(fn func(date string, entry DayEntry) bool) {
	for _, date := range s.dates {
		if !fn(date, s.days[date]) {
			return
		}
	}
}

// apply returns a new snapshot with staged day replacements applied.
// A nil or empty staged entry deletes the date.
func (s *Snapshot) apply(staged map[string]DayEntry) *Snapshot {
	days := make(map[string]DayEntry, len(s.days)+len(staged))
	for date, entry := range s.days {
		days[date] = entry
	}
	for date, entry := range staged {
		if len(entry) == 0 {
			delete(days, date)
			continue
		}
		days[date] = entry
	}
	return newSnapshot(days)
}
