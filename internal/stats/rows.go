package stats

import (
	"fmt"

	"github.com/username/leave-tracker/internal/records"
	"github.com/username/leave-tracker/pkg/dateutil"
)

// HeadcountLabel is the subject label of an all-people row
func HeadcountLabel(n int) string {
	return fmt.Sprintf("%d人", n)
}

// Rows projects [start, end] into export rows, one per stored date in
// ascending order. An empty person selects all-people mode; otherwise only
// the dates on which person has an entry are emitted.
func (e *Engine) Rows(person, start, end string) ([]Row, error) {
	if err := validateRange(start, end); err != nil {
		return nil, err
	}

	rows := []Row{}
	e.source.Snapshot().Range(start, end, func(date string, entry records.DayEntry) bool {
		t, ok := e.parse(date)
		if !ok {
			return true
		}

		row := Row{
			Date:                date,
			WeekdayLabel:        dateutil.WeekdayLabel(t),
			FullDayParticipants: []string{},
			HalfDayParticipants: []string{},
		}

		if person != "" {
			typ, ok := entry[person]
			if !ok {
				return true
			}
			row.SubjectLabel = person
			if typ == records.Full {
				row.FullDayParticipants = append(row.FullDayParticipants, person)
			} else {
				row.HalfDayParticipants = append(row.HalfDayParticipants, person)
			}
			rows = append(rows, row)
			return true
		}

		for name, typ := range entry {
			if typ == records.Full {
				row.FullDayParticipants = append(row.FullDayParticipants, name)
			} else {
				row.HalfDayParticipants = append(row.HalfDayParticipants, name)
			}
		}
		e.sortNames(row.FullDayParticipants)
		e.sortNames(row.HalfDayParticipants)
		row.SubjectLabel = HeadcountLabel(len(entry))
		rows = append(rows, row)
		return true
	})

	return rows, nil
}
