package stats

import (
	"fmt"
	"time"

	"github.com/username/leave-tracker/internal/records"
	"github.com/username/leave-tracker/pkg/dateutil"
)

// Bucket is the weekday classification used by every breakdown
type Bucket int

const (
	BucketWeekday Bucket = iota // Mon-Fri
	BucketSaturday
	BucketSunday
)

// Buckets lists every bucket in display order
var Buckets = []Bucket{BucketWeekday, BucketSaturday, BucketSunday}

// BucketOf classifies a date (weekday index 5 = Saturday, 6 = Sunday)
func BucketOf(date time.Time) Bucket {
	switch dateutil.WeekdayIndex(date) {
	case 5:
		return BucketSaturday
	case 6:
		return BucketSunday
	default:
		return BucketWeekday
	}
}

func (b Bucket) String() string {
	switch b {
	case BucketWeekday:
		return "weekday"
	case BucketSaturday:
		return "saturday"
	case BucketSunday:
		return "sunday"
	default:
		return fmt.Sprintf("Bucket(%d)", int(b))
	}
}

// MarshalText implements encoding.TextMarshaler
func (b Bucket) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// BucketStats aggregates one bucket over a range
type BucketStats struct {
	Half         int      `json:"half" yaml:"half"`
	Full         int      `json:"full" yaml:"full"`
	Participants []string `json:"participants" yaml:"participants"`
}

// DayStats is the drill-down for one stored date
type DayStats struct {
	Date         string   `json:"date" yaml:"date"`
	Weekday      string   `json:"weekday" yaml:"weekday"`
	Bucket       Bucket   `json:"bucket" yaml:"bucket"`
	Half         int      `json:"half" yaml:"half"`
	Full         int      `json:"full" yaml:"full"`
	Participants []string `json:"participants" yaml:"participants"`
}

// RangeStats is the all-people summary of an inclusive date range
type RangeStats struct {
	Start        string      `json:"start" yaml:"start"`
	End          string      `json:"end" yaml:"end"`
	TotalDays    int         `json:"total_days" yaml:"total_days"`
	Half         int         `json:"half" yaml:"half"`
	Full         int         `json:"full" yaml:"full"`
	Participants []string    `json:"participants" yaml:"participants"`
	Weekday      BucketStats `json:"weekday" yaml:"weekday"`
	Saturday     BucketStats `json:"saturday" yaml:"saturday"`
	Sunday       BucketStats `json:"sunday" yaml:"sunday"`
	Daily        []DayStats  `json:"daily" yaml:"daily"`
}

// Bucket returns the stats of bucket b
func (r *RangeStats) Bucket(b Bucket) *BucketStats {
	switch b {
	case BucketSaturday:
		return &r.Saturday
	case BucketSunday:
		return &r.Sunday
	default:
		return &r.Weekday
	}
}

// PersonBucketStats aggregates one bucket of a single person's entries
type PersonBucketStats struct {
	Half  int      `json:"half" yaml:"half"`
	Full  int      `json:"full" yaml:"full"`
	Dates []string `json:"dates" yaml:"dates"`
}

// PersonRecord is one of a person's entries
type PersonRecord struct {
	Date    string              `json:"date" yaml:"date"`
	Type    records.AbsenceType `json:"type" yaml:"type"`
	Weekday int                 `json:"weekday" yaml:"weekday"` // Monday = 0
	Bucket  Bucket              `json:"bucket" yaml:"bucket"`
}

// PersonStats is one person's summary over an inclusive date range
type PersonStats struct {
	Person   string            `json:"person" yaml:"person"`
	Start    string            `json:"start" yaml:"start"`
	End      string            `json:"end" yaml:"end"`
	Half     int               `json:"half" yaml:"half"`
	Full     int               `json:"full" yaml:"full"`
	Weekday  PersonBucketStats `json:"weekday" yaml:"weekday"`
	Saturday PersonBucketStats `json:"saturday" yaml:"saturday"`
	Sunday   PersonBucketStats `json:"sunday" yaml:"sunday"`
	Records  []PersonRecord    `json:"records" yaml:"records"`
}

// Bucket returns the stats of bucket b
func (p *PersonStats) Bucket(b Bucket) *PersonBucketStats {
	switch b {
	case BucketSaturday:
		return &p.Saturday
	case BucketSunday:
		return &p.Sunday
	default:
		return &p.Weekday
	}
}

// HistoryEntry is one dated entry of a person's history
type HistoryEntry struct {
	Date string              `json:"date" yaml:"date"`
	Type records.AbsenceType `json:"type" yaml:"type"`
}

// Row is the flat projection consumed by spreadsheet export. SubjectLabel is
// the day's headcount in all-people mode or the person's name in person mode.
type Row struct {
	Date                string   `json:"date" yaml:"date"`
	WeekdayLabel        string   `json:"weekday" yaml:"weekday"`
	SubjectLabel        string   `json:"subject" yaml:"subject"`
	FullDayParticipants []string `json:"full_day" yaml:"full_day"`
	HalfDayParticipants []string `json:"half_day" yaml:"half_day"`
}
