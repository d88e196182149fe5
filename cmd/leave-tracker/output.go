package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/username/leave-tracker/internal/records"
	"github.com/username/leave-tracker/pkg/dateutil"
	"gopkg.in/yaml.v3"
)

var errRangeFlags = errors.New("use only one of --today, --week, --month or --start/--end")

// rangeFlags selects a report range: a preset or explicit bounds
type rangeFlags struct {
	start string
	end   string
	today bool
	week  bool
	month bool
}

func (r *rangeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&r.start, "start", "", "Range start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&r.end, "end", "", "Range end (YYYY-MM-DD, default start)")
	cmd.Flags().BoolVar(&r.today, "today", false, "Report on today")
	cmd.Flags().BoolVar(&r.week, "week", false, "Report on the current Monday..Sunday week")
	cmd.Flags().BoolVar(&r.month, "month", false, "Report on the current month")
}

// resolve returns the inclusive range. With no flag set it defaults to today.
func (r *rangeFlags) resolve(now time.Time) (start, end string, err error) {
	presets := 0
	for _, set := range []bool{r.today, r.week, r.month, r.start != "" || r.end != ""} {
		if set {
			presets++
		}
	}
	if presets > 1 {
		return "", "", errRangeFlags
	}

	switch {
	case r.week:
		start, end = dateutil.WeekRange(now)
	case r.month:
		start, end = dateutil.MonthRange(now)
	case r.start != "" || r.end != "":
		for _, f := range []struct{ name, value string }{{"--start", r.start}, {"--end", r.end}} {
			if f.value != "" && !dateutil.IsValidDate(f.value) {
				return "", "", &records.ValidationError{Field: f.name, Value: f.value, Err: records.ErrInvalidDate}
			}
		}
		start, end = r.start, r.end
		if start == "" {
			start = end
		}
		if end == "" {
			end = start
		}
	default:
		start = dateutil.Format(now)
		end = start
	}
	return start, end, nil
}

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// writeStructured prints v as JSON or YAML. It reports false for the table
// format so callers render their own view.
func writeStructured(format string, v interface{}) (bool, error) {
	switch format {
	case formatTable, "":
		return false, nil
	case formatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return true, fmt.Errorf("failed to encode json: %w", err)
		}
		outPrintln(string(data))
		return true, nil
	case formatYAML:
		enc := yaml.NewEncoder(outWriter)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, fmt.Errorf("failed to encode yaml: %w", err)
		}
		return true, enc.Close()
	default:
		return true, fmt.Errorf("unknown format '%s' (table, json, yaml)", format)
	}
}

func newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(outWriter, 0, 4, 2, ' ', 0)
}

func joinNames(names []string) string {
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, "、")
}
