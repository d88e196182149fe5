package calendar

import (
	"fmt"
	"time"

	"github.com/username/leave-tracker/internal/records"
	"github.com/username/leave-tracker/pkg/dateutil"
	"go.uber.org/zap"
)

// DayType represents the type of day
type DayType int

const (
	DayTypeWeekday DayType = iota + 1
	DayTypeSaturday
	DayTypeSunday
)

func (t DayType) String() string {
	switch t {
	case DayTypeWeekday:
		return "weekday"
	case DayTypeSaturday:
		return "saturday"
	case DayTypeSunday:
		return "sunday"
	default:
		return fmt.Sprintf("DayType(%d)", int(t))
	}
}

// DayInfo represents information about a specific day
type DayInfo struct {
	Date    time.Time
	Key     string // YYYY-MM-DD
	Type    DayType
	Half    int
	Full    int
	People  []string
	IsToday bool
}

// HasAbsences reports whether anyone is absent on the day
func (d *DayInfo) HasAbsences() bool {
	return d.Half+d.Full > 0
}

// MonthInfo represents calendar information for a month
type MonthInfo struct {
	Year        int
	Month       time.Month
	AbsenceDays int // days with at least one entry
	Half        int
	Full        int
	Days        []DayInfo
	// Weeks is the Monday-first grid; cells outside the month are nil
	Weeks [][]*DayInfo
}

// Source provides the committed record snapshot
type Source interface {
	Snapshot() *records.Snapshot
}

// Calendar builds month views over the record store
type Calendar struct {
	source Source
	logger *zap.Logger
	now    func() time.Time
}

// New creates a calendar over source
func New(source Source, logger *zap.Logger) *Calendar {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Calendar{
		source: source,
		logger: logger,
		now:    time.Now,
	}
}

func dayType(date time.Time) DayType {
	switch dateutil.WeekdayIndex(date) {
	case 5:
		return DayTypeSaturday
	case 6:
		return DayTypeSunday
	default:
		return DayTypeWeekday
	}
}

// GetMonthInfo returns calendar info for the entire month
func (c *Calendar) GetMonthInfo(year int, month time.Month) (*MonthInfo, error) {
	if month < time.January || month > time.December {
		return nil, fmt.Errorf("invalid month %d", int(month))
	}

	first := time.Date(year, month, 1, 0, 0, 0, 0, time.Local)
	last := first.AddDate(0, 1, -1)
	today := dateutil.Format(c.now())
	snap := c.source.Snapshot()

	info := &MonthInfo{
		Year:  year,
		Month: month,
		Days:  make([]DayInfo, 0, last.Day()),
	}

	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		key := dateutil.Format(d)
		day := DayInfo{
			Date:    d,
			Key:     key,
			Type:    dayType(d),
			IsToday: key == today,
		}
		if entry := snap.Entry(key); len(entry) > 0 {
			day.Half, day.Full = entry.Counts()
			day.People = entry.People()
			info.AbsenceDays++
			info.Half += day.Half
			info.Full += day.Full
		}
		info.Days = append(info.Days, day)
	}

	week := make([]*DayInfo, 7)
	for i := range info.Days {
		day := &info.Days[i]
		col := dateutil.WeekdayIndex(day.Date)
		week[col] = day
		if col == 6 || i == len(info.Days)-1 {
			info.Weeks = append(info.Weeks, week)
			week = make([]*DayInfo, 7)
		}
	}

	c.logger.Debug("Month view built",
		zap.Int("year", year),
		zap.String("month", month.String()),
		zap.Int("absence_days", info.AbsenceDays))
	return info, nil
}

// GetDayInfo returns detailed info for a specific day
func (c *Calendar) GetDayInfo(date time.Time) (*DayInfo, error) {
	info, err := c.GetMonthInfo(date.Year(), date.Month())
	if err != nil {
		return nil, err
	}
	return &info.Days[date.Day()-1], nil
}
