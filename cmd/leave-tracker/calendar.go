package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/username/leave-tracker/internal/calendar"
	"github.com/username/leave-tracker/pkg/dateutil"
)

// parseMonth parses YYYY-MM, defaulting to the month of now
func parseMonth(arg string, now time.Time) (int, time.Month, error) {
	if arg == "" {
		return now.Year(), now.Month(), nil
	}
	t, err := time.Parse("2006-01", arg)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid month '%s' (want YYYY-MM)", arg)
	}
	return t.Year(), t.Month(), nil
}

func calendarCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "calendar [YYYY-MM]",
		Short: "Show a month grid marking dates with absences",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var arg string
			if len(args) == 1 {
				arg = args[0]
			}
			year, month, err := parseMonth(arg, dateutil.Today())
			if err != nil {
				return err
			}

			a, err := loadApp()
			if err != nil {
				return err
			}
			info, err := calendar.New(a.store, logger).GetMonthInfo(year, month)
			if err != nil {
				return err
			}
			return info.Render(outWriter)
		},
	}
}
