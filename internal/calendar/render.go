package calendar

import (
	"fmt"
	"io"
	"strings"
)

var columnLabels = []string{"一", "二", "三", "四", "五", "六", "日"}

// Render writes the month as a Monday-first text grid. Days with absences
// carry their headcount in brackets and today is marked with '>'.
func (m *MonthInfo) Render(w io.Writer) error {
	var b strings.Builder

	fmt.Fprintf(&b, "%d年%02d月\n", m.Year, int(m.Month))
	for _, label := range columnLabels {
		// CJK labels are two columns wide
		fmt.Fprintf(&b, "  %s  ", label)
	}
	b.WriteString("\n")

	for _, week := range m.Weeks {
		for _, day := range week {
			b.WriteString(cell(day))
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "请假天数: %d  全天: %d  半天: %d\n", m.AbsenceDays, m.Full, m.Half)

	_, err := io.WriteString(w, b.String())
	return err
}

func cell(day *DayInfo) string {
	if day == nil {
		return strings.Repeat(" ", 6)
	}
	prefix := " "
	if day.IsToday {
		prefix = ">"
	}
	mark := ""
	if day.HasAbsences() {
		mark = fmt.Sprintf("[%d]", len(day.People))
	}
	return fmt.Sprintf("%s%2d%-3s", prefix, day.Date.Day(), mark)
}
