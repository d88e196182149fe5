package calendar

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/username/leave-tracker/internal/records"
	"go.uber.org/zap"
)

func newTestCalendar(t *testing.T) *Calendar {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	store := records.NewStore(filepath.Join(t.TempDir(), "data.json"), time.Second, logger)
	if err := store.Load(); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	for date, entry := range map[string]records.DayEntry{
		"2024-01-06": {"Bob": records.Full},
		"2024-01-07": {"Alice": records.Half, "Bob": records.Half},
		"2024-02-01": {"Carol": records.Full},
	} {
		if err := store.ReplaceDay(ctx, date, entry); err != nil {
			t.Fatal(err)
		}
	}

	cal := New(store, logger)
	cal.now = func() time.Time { return time.Date(2024, 1, 15, 10, 0, 0, 0, time.Local) }
	return cal
}

func TestCalendar_GetMonthInfo(t *testing.T) {
	cal := newTestCalendar(t)

	info, err := cal.GetMonthInfo(2024, time.January)
	if err != nil {
		t.Fatalf("GetMonthInfo() error = %v", err)
	}

	if len(info.Days) != 31 {
		t.Errorf("Days count = %d, want 31", len(info.Days))
	}
	if info.AbsenceDays != 2 || info.Full != 1 || info.Half != 2 {
		t.Errorf("totals = days %d full %d half %d, want 2/1/2", info.AbsenceDays, info.Full, info.Half)
	}

	// January 2024 starts on a Monday and spans five grid rows
	if len(info.Weeks) != 5 {
		t.Fatalf("Weeks = %d, want 5", len(info.Weeks))
	}
	if info.Weeks[0][0] == nil || info.Weeks[0][0].Key != "2024-01-01" {
		t.Errorf("first cell = %+v, want 2024-01-01", info.Weeks[0][0])
	}
	if info.Weeks[4][3] != nil {
		t.Errorf("cell after month end = %+v, want nil", info.Weeks[4][3])
	}

	tests := []struct {
		day      int
		dayType  DayType
		absences bool
		today    bool
	}{
		{1, DayTypeWeekday, false, false},
		{6, DayTypeSaturday, true, false},
		{7, DayTypeSunday, true, false},
		{15, DayTypeWeekday, false, true},
	}
	for _, tt := range tests {
		day := info.Days[tt.day-1]
		if day.Type != tt.dayType || day.HasAbsences() != tt.absences || day.IsToday != tt.today {
			t.Errorf("day %d = %+v", tt.day, day)
		}
	}
}

func TestCalendar_GetMonthInfo_LeadingPadding(t *testing.T) {
	cal := newTestCalendar(t)

	// 2024-02-01 is a Thursday
	info, err := cal.GetMonthInfo(2024, time.February)
	if err != nil {
		t.Fatal(err)
	}
	for col := 0; col < 3; col++ {
		if info.Weeks[0][col] != nil {
			t.Errorf("Weeks[0][%d] = %+v, want nil", col, info.Weeks[0][col])
		}
	}
	if info.Weeks[0][3].Key != "2024-02-01" || !info.Weeks[0][3].HasAbsences() {
		t.Errorf("Weeks[0][3] = %+v", info.Weeks[0][3])
	}

	if _, err := cal.GetMonthInfo(2024, 13); err == nil {
		t.Error("GetMonthInfo(13) error = nil")
	}
}

func TestCalendar_GetDayInfo(t *testing.T) {
	cal := newTestCalendar(t)

	day, err := cal.GetDayInfo(time.Date(2024, 1, 7, 0, 0, 0, 0, time.Local))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(day.People, ",") != "Alice,Bob" || day.Half != 2 {
		t.Errorf("GetDayInfo() = %+v", day)
	}
}

func TestMonthInfo_Render(t *testing.T) {
	cal := newTestCalendar(t)
	info, err := cal.GetMonthInfo(2024, time.January)
	if err != nil {
		t.Fatal(err)
	}

	var b strings.Builder
	if err := info.Render(&b); err != nil {
		t.Fatal(err)
	}
	out := b.String()

	for _, want := range []string{"2024年01月", " 6[1]", " 7[2]", ">15", "请假天数: 2"} {
		if !strings.Contains(out, want) {
			t.Errorf("Render() output missing %q:\n%s", want, out)
		}
	}
}
