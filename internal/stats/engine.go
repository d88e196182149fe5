package stats

import (
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/username/leave-tracker/internal/records"
	"github.com/username/leave-tracker/pkg/dateutil"
	"go.uber.org/zap"
)

var (
	ErrInvalidRange     = errors.New("start date is after end date")
	ErrInvalidWindow    = errors.New("window must be at least one day")
	ErrInvalidThreshold = errors.New("threshold must be at least one")
)

// Source provides the committed record snapshot
type Source interface {
	Snapshot() *records.Snapshot
}

// Roster is the subject registry used for display order and current-roster
// filtering
type Roster interface {
	Contains(name string) bool
	Sort(names []string)
}

// Engine derives aggregates from the record store. It never mutates the
// store; every call recomputes from the current snapshot.
type Engine struct {
	source Source
	roster Roster
	logger *zap.Logger
}

// NewEngine creates a statistics engine. roster may be nil, in which case
// names sort by byte order and no roster filtering is applied.
func NewEngine(source Source, roster Roster, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		source: source,
		roster: roster,
		logger: logger,
	}
}

func (e *Engine) sortNames(names []string) {
	if e.roster != nil {
		e.roster.Sort(names)
		return
	}
	sort.Strings(names)
}

func validateRange(start, end string) error {
	if err := records.ValidateDate(start); err != nil {
		return err
	}
	if err := records.ValidateDate(end); err != nil {
		return err
	}
	if start > end {
		return &records.ValidationError{Field: "range", Value: start + ".." + end, Err: ErrInvalidRange}
	}
	return nil
}

// parse returns the calendar date of a stored key, or false for keys that do
// not parse
func (e *Engine) parse(date string) (time.Time, bool) {
	t, err := dateutil.ParseDate(date)
	if err != nil {
		e.logger.Debug("Skipping unparsable date", zap.String("date", date), zap.Error(err))
		return time.Time{}, false
	}
	return t, true
}

// RangeSummary aggregates every stored date in [start, end]
func (e *Engine) RangeSummary(start, end string) (*RangeStats, error) {
	if err := validateRange(start, end); err != nil {
		return nil, err
	}

	result := &RangeStats{Start: start, End: end, Daily: []DayStats{}}
	bucketSets := map[Bucket]map[string]bool{}
	all := map[string]bool{}

	e.source.Snapshot().Range(start, end, func(date string, entry records.DayEntry) bool {
		t, ok := e.parse(date)
		if !ok {
			return true
		}
		b := BucketOf(t)
		half, full := entry.Counts()
		people := entry.People()
		e.sortNames(people)

		result.TotalDays++
		result.Half += half
		result.Full += full

		bs := result.Bucket(b)
		bs.Half += half
		bs.Full += full
		if bucketSets[b] == nil {
			bucketSets[b] = map[string]bool{}
		}
		for _, name := range people {
			bucketSets[b][name] = true
			all[name] = true
		}

		result.Daily = append(result.Daily, DayStats{
			Date:         date,
			Weekday:      dateutil.WeekdayLabel(t),
			Bucket:       b,
			Half:         half,
			Full:         full,
			Participants: people,
		})
		return true
	})

	for _, b := range Buckets {
		result.Bucket(b).Participants = e.setToSorted(bucketSets[b])
	}
	result.Participants = e.setToSorted(all)

	e.logger.Debug("Range summary computed",
		zap.String("start", start),
		zap.String("end", end),
		zap.Int("days", result.TotalDays),
		zap.Int("half", result.Half),
		zap.Int("full", result.Full))
	return result, nil
}

func (e *Engine) setToSorted(set map[string]bool) []string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	e.sortNames(names)
	return names
}

// PersonSummary aggregates one person's entries in [start, end]
func (e *Engine) PersonSummary(person, start, end string) (*PersonStats, error) {
	if err := records.ValidatePerson(person); err != nil {
		return nil, err
	}
	if err := validateRange(start, end); err != nil {
		return nil, err
	}

	result := &PersonStats{Person: person, Start: start, End: end, Records: []PersonRecord{}}
	for _, b := range Buckets {
		result.Bucket(b).Dates = []string{}
	}

	e.source.Snapshot().Range(start, end, func(date string, entry records.DayEntry) bool {
		typ, ok := entry[person]
		if !ok {
			return true
		}
		t, ok := e.parse(date)
		if !ok {
			return true
		}
		b := BucketOf(t)
		bs := result.Bucket(b)
		switch typ {
		case records.Half:
			result.Half++
			bs.Half++
		case records.Full:
			result.Full++
			bs.Full++
		}
		bs.Dates = append(bs.Dates, date)
		result.Records = append(result.Records, PersonRecord{
			Date:    date,
			Type:    typ,
			Weekday: dateutil.WeekdayIndex(t),
			Bucket:  b,
		})
		return true
	})

	return result, nil
}

// FrequentAbsentees returns the people with at least threshold absence dates
// in the windowDays calendar days ending on now's date (inclusive). Half and
// full entries count the same. When a roster is configured, people no longer
// on it are left out.
func (e *Engine) FrequentAbsentees(now time.Time, windowDays, threshold int) ([]string, error) {
	if windowDays < 1 {
		return nil, &records.ValidationError{Field: "window", Value: strconv.Itoa(windowDays), Err: ErrInvalidWindow}
	}
	if threshold < 1 {
		return nil, &records.ValidationError{Field: "threshold", Value: strconv.Itoa(threshold), Err: ErrInvalidThreshold}
	}

	today := dateutil.StartOfDay(now)
	start := dateutil.Format(today.AddDate(0, 0, -(windowDays - 1)))
	end := dateutil.Format(today)

	counts := map[string]int{}
	e.source.Snapshot().Range(start, end, func(date string, entry records.DayEntry) bool {
		for name := range entry {
			counts[name]++
		}
		return true
	})

	frequent := []string{}
	for name, count := range counts {
		if count < threshold {
			continue
		}
		if e.roster != nil && !e.roster.Contains(name) {
			continue
		}
		frequent = append(frequent, name)
	}
	e.sortNames(frequent)

	e.logger.Debug("Frequent absentees computed",
		zap.String("start", start),
		zap.String("end", end),
		zap.Int("threshold", threshold),
		zap.Strings("people", frequent))
	return frequent, nil
}

// History returns every entry of person across all stored dates, ascending.
// People removed from the roster keep their history.
func (e *Engine) History(person string) ([]HistoryEntry, error) {
	if err := records.ValidatePerson(person); err != nil {
		return nil, err
	}

	history := []HistoryEntry{}
	e.source.Snapshot().Each(func(date string, entry records.DayEntry) bool {
		if typ, ok := entry[person]; ok {
			history = append(history, HistoryEntry{Date: date, Type: typ})
		}
		return true
	})
	return history, nil
}
