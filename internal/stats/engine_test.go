package stats

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/username/leave-tracker/internal/records"
	"github.com/username/leave-tracker/internal/roster"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

func newTestStore(t *testing.T, content string) *records.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.json")
	if content != "" {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	store := records.NewStore(path, time.Second, zap.NewNop())
	if err := store.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return store
}

func set(t *testing.T, store *records.Store, date string, entry records.DayEntry) {
	t.Helper()
	if err := store.ReplaceDay(context.Background(), date, entry); err != nil {
		t.Fatalf("ReplaceDay(%s) error = %v", date, err)
	}
}

func join(names []string) string {
	return strings.Join(names, ",")
}

func TestRangeSummary_EndToEnd(t *testing.T) {
	store := newTestStore(t, `{
		"2024-01-06": {"Bob": {"type": "full"}},
		"2024-01-07": {"Alice": {"type": "half"}, "Bob": {"type": "half"}}
	}`)
	engine := NewEngine(store, nil, nil)

	got, err := engine.RangeSummary("2024-01-01", "2024-01-31")
	if err != nil {
		t.Fatalf("RangeSummary() error = %v", err)
	}

	tests := []struct {
		name         string
		bucket       Bucket
		half, full   int
		participants string
	}{
		{"weekday", BucketWeekday, 0, 0, ""},
		{"saturday", BucketSaturday, 0, 1, "Bob"},
		{"sunday", BucketSunday, 2, 0, "Alice,Bob"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bs := got.Bucket(tt.bucket)
			if bs.Half != tt.half || bs.Full != tt.full {
				t.Errorf("half/full = %d/%d, want %d/%d", bs.Half, bs.Full, tt.half, tt.full)
			}
			if join(bs.Participants) != tt.participants {
				t.Errorf("participants = %v, want %s", bs.Participants, tt.participants)
			}
		})
	}

	if got.Full != 1 || got.Half != 2 {
		t.Errorf("totals = full %d half %d, want full 1 half 2", got.Full, got.Half)
	}
	if got.TotalDays != 2 {
		t.Errorf("TotalDays = %d, want 2", got.TotalDays)
	}
	if join(got.Participants) != "Alice,Bob" {
		t.Errorf("Participants = %v, want Alice,Bob", got.Participants)
	}
	if len(got.Daily) != 2 || got.Daily[0].Date != "2024-01-06" || got.Daily[1].Weekday != "周日" {
		t.Errorf("Daily = %+v", got.Daily)
	}
}

func TestRangeSummary_SingleDayIsInclusive(t *testing.T) {
	store := newTestStore(t, "")
	set(t, store, "2024-01-01", records.DayEntry{"Alice": records.Full})
	set(t, store, "2024-01-02", records.DayEntry{"Bob": records.Half})
	engine := NewEngine(store, nil, nil)

	got, err := engine.RangeSummary("2024-01-01", "2024-01-01")
	if err != nil {
		t.Fatal(err)
	}
	// 2024-01-01 is a Monday
	if got.Full != 1 || got.Half != 0 || got.Weekday.Full != 1 {
		t.Errorf("got %+v, want one weekday full day", got)
	}
	if got.Saturday.Full+got.Sunday.Full != 0 {
		t.Errorf("weekend buckets not empty: %+v", got)
	}
}

func TestRangeSummary_DedupesParticipants(t *testing.T) {
	store := newTestStore(t, "")
	for _, date := range []string{"2024-03-02", "2024-03-09", "2024-03-16"} {
		set(t, store, date, records.DayEntry{"Carol": records.Half})
	}
	engine := NewEngine(store, nil, nil)

	got, err := engine.RangeSummary("2024-03-01", "2024-03-31")
	if err != nil {
		t.Fatal(err)
	}
	if got.Saturday.Half != 3 {
		t.Errorf("Saturday.Half = %d, want 3", got.Saturday.Half)
	}
	if join(got.Saturday.Participants) != "Carol" {
		t.Errorf("Saturday.Participants = %v, want [Carol]", got.Saturday.Participants)
	}
}

func TestRangeSummary_Validation(t *testing.T) {
	engine := NewEngine(newTestStore(t, ""), nil, nil)

	tests := []struct {
		name       string
		start, end string
		want       error
	}{
		{"reversed", "2024-02-01", "2024-01-01", ErrInvalidRange},
		{"bad start", "2024-1-1", "2024-01-31", records.ErrInvalidDate},
		{"bad end", "2024-01-01", "2024-02-30", records.ErrInvalidDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.RangeSummary(tt.start, tt.end)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			if !records.IsValidation(err) {
				t.Errorf("error %v is not a validation error", err)
			}
		})
	}
}

func TestPersonSummary(t *testing.T) {
	store := newTestStore(t, "")
	set(t, store, "2024-01-05", records.DayEntry{"Alice": records.Full, "Bob": records.Half})
	set(t, store, "2024-01-06", records.DayEntry{"Alice": records.Half})
	set(t, store, "2024-01-07", records.DayEntry{"Bob": records.Full})
	set(t, store, "2024-02-01", records.DayEntry{"Alice": records.Full})
	engine := NewEngine(store, nil, nil)

	got, err := engine.PersonSummary("Alice", "2024-01-01", "2024-01-31")
	if err != nil {
		t.Fatal(err)
	}
	if got.Full != 1 || got.Half != 1 {
		t.Errorf("totals = full %d half %d, want 1/1", got.Full, got.Half)
	}
	if got.Weekday.Full != 1 || got.Saturday.Half != 1 || got.Sunday.Full+got.Sunday.Half != 0 {
		t.Errorf("buckets = %+v %+v %+v", got.Weekday, got.Saturday, got.Sunday)
	}
	if len(got.Records) != 2 || got.Records[0].Date != "2024-01-05" || got.Records[1].Weekday != 5 {
		t.Errorf("Records = %+v", got.Records)
	}

	if _, err := engine.PersonSummary("", "2024-01-01", "2024-01-31"); !errors.Is(err, records.ErrEmptyPerson) {
		t.Errorf("empty person error = %v, want ErrEmptyPerson", err)
	}
}

func TestFrequentAbsentees(t *testing.T) {
	store := newTestStore(t, "")
	// window of 5 days ending 2024-05-10 covers 05-06..05-10
	set(t, store, "2024-05-05", records.DayEntry{"Bob": records.Full})
	set(t, store, "2024-05-06", records.DayEntry{"Alice": records.Half, "Bob": records.Full})
	set(t, store, "2024-05-08", records.DayEntry{"Alice": records.Full, "Bob": records.Half})
	set(t, store, "2024-05-10", records.DayEntry{"Alice": records.Half})
	set(t, store, "2024-05-11", records.DayEntry{"Bob": records.Full})
	engine := NewEngine(store, nil, nil)
	now := time.Date(2024, 5, 10, 18, 30, 0, 0, time.Local)

	tests := []struct {
		name              string
		window, threshold int
		want              string
		wantErr           error
	}{
		{"three inside window included", 5, 3, "Alice", nil},
		{"two inside window included at threshold two", 5, 2, "Alice,Bob", nil},
		{"wider window reaches earlier entry", 6, 3, "Alice,Bob", nil},
		{"single day window", 1, 1, "Alice", nil},
		{"zero window", 0, 3, "", ErrInvalidWindow},
		{"zero threshold", 5, 0, "", ErrInvalidThreshold},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.FrequentAbsentees(now, tt.window, tt.threshold)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if join(got) != tt.want {
				t.Errorf("FrequentAbsentees() = %v, want %s", got, tt.want)
			}
		})
	}
}

func TestFrequentAbsentees_SkipsPeopleOffRoster(t *testing.T) {
	store := newTestStore(t, "")
	set(t, store, "2024-05-09", records.DayEntry{"Alice": records.Full, "Bob": records.Full})
	reg := roster.NewRegistry(filepath.Join(t.TempDir(), "students.json"), language.English, nil)
	if err := reg.Load(); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Add("Alice"); err != nil {
		t.Fatal(err)
	}
	engine := NewEngine(store, reg, nil)

	got, err := engine.FrequentAbsentees(time.Date(2024, 5, 10, 0, 0, 0, 0, time.Local), 5, 1)
	if err != nil {
		t.Fatal(err)
	}
	if join(got) != "Alice" {
		t.Errorf("FrequentAbsentees() = %v, want [Alice]", got)
	}
}

func TestHistory_SurvivesRosterRemoval(t *testing.T) {
	store := newTestStore(t, "")
	set(t, store, "2024-01-03", records.DayEntry{"Dave": records.Half})
	set(t, store, "2024-01-01", records.DayEntry{"Dave": records.Full, "Erin": records.Half})
	set(t, store, "2024-01-02", records.DayEntry{"Erin": records.Full})

	reg := roster.NewRegistry(filepath.Join(t.TempDir(), "students.json"), language.English, nil)
	if err := reg.Load(); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.BatchImport([]string{"Dave", "Erin"}); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Remove("Dave"); err != nil {
		t.Fatal(err)
	}
	engine := NewEngine(store, reg, nil)

	got, err := engine.History("Dave")
	if err != nil {
		t.Fatal(err)
	}
	want := []HistoryEntry{
		{Date: "2024-01-01", Type: records.Full},
		{Date: "2024-01-03", Type: records.Half},
	}
	if len(got) != len(want) {
		t.Fatalf("History() = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("History()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}

	if got, _ := engine.History("Nobody"); len(got) != 0 {
		t.Errorf("History(Nobody) = %+v, want empty", got)
	}
}

func TestRows(t *testing.T) {
	store := newTestStore(t, "")
	set(t, store, "2024-01-06", records.DayEntry{"Bob": records.Full, "Alice": records.Full, "Carol": records.Half})
	set(t, store, "2024-01-08", records.DayEntry{"Carol": records.Full})
	engine := NewEngine(store, nil, nil)

	t.Run("all people", func(t *testing.T) {
		rows, err := engine.Rows("", "2024-01-01", "2024-01-31")
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) != 2 {
			t.Fatalf("len(rows) = %d, want 2", len(rows))
		}
		first := rows[0]
		if first.Date != "2024-01-06" || first.WeekdayLabel != "周六" || first.SubjectLabel != "3人" {
			t.Errorf("rows[0] = %+v", first)
		}
		if join(first.FullDayParticipants) != "Alice,Bob" || join(first.HalfDayParticipants) != "Carol" {
			t.Errorf("rows[0] participants = %v / %v", first.FullDayParticipants, first.HalfDayParticipants)
		}
	})

	t.Run("single person", func(t *testing.T) {
		rows, err := engine.Rows("Carol", "2024-01-01", "2024-01-31")
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) != 2 {
			t.Fatalf("len(rows) = %d, want 2", len(rows))
		}
		if rows[0].SubjectLabel != "Carol" || join(rows[0].HalfDayParticipants) != "Carol" || len(rows[0].FullDayParticipants) != 0 {
			t.Errorf("rows[0] = %+v", rows[0])
		}
		if rows[1].WeekdayLabel != "周一" || join(rows[1].FullDayParticipants) != "Carol" {
			t.Errorf("rows[1] = %+v", rows[1])
		}
	})

	t.Run("empty range", func(t *testing.T) {
		rows, err := engine.Rows("", "2023-01-01", "2023-01-31")
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) != 0 {
			t.Errorf("rows = %+v, want none", rows)
		}
	})
}
