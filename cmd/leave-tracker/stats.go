package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/username/leave-tracker/internal/stats"
	"github.com/username/leave-tracker/pkg/dateutil"
)

func statsCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Absence statistics",
	}
	cmd.PersistentFlags().StringVarP(&format, "format", "f", formatTable, "Output format: table, json or yaml")

	cmd.AddCommand(
		statsRangeCmd(&format),
		statsPersonCmd(&format),
		statsFrequentCmd(&format),
		statsHistoryCmd(&format),
	)
	return cmd
}

func statsRangeCmd(format *string) *cobra.Command {
	var rf rangeFlags

	cmd := &cobra.Command{
		Use:   "range",
		Short: "All-people summary of a date range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, err := rf.resolve(dateutil.Today())
			if err != nil {
				return err
			}
			a, err := loadApp()
			if err != nil {
				return err
			}
			summary, err := a.engine.RangeSummary(start, end)
			if err != nil {
				return err
			}
			if done, err := writeStructured(*format, summary); done {
				return err
			}

			outPrintf("\n📊 Absences %s .. %s\n", summary.Start, summary.End)
			outPrintln("═══════════════════════════════════════════════════════")
			outPrintf("  Days with absences: %d\n", summary.TotalDays)
			outPrintf("  Full-day entries:   %d\n", summary.Full)
			outPrintf("  Half-day entries:   %d\n", summary.Half)
			outPrintf("  People:             %d (%s)\n", len(summary.Participants), joinNames(summary.Participants))

			outPrintln("\n  Bucket     | Full | Half | People")
			outPrintln("-------------+------+------+----------------")
			for _, b := range stats.Buckets {
				bs := summary.Bucket(b)
				outPrintf("  %-10s | %4d | %4d | %s\n", b, bs.Full, bs.Half, joinNames(bs.Participants))
			}

			if len(summary.Daily) > 0 {
				outPrintln("\n📅 Per-day breakdown:")
				tw := newTable()
				fmt.Fprintln(tw, "  Date\tDay\tFull\tHalf\tPeople")
				for _, day := range summary.Daily {
					fmt.Fprintf(tw, "  %s\t%s\t%d\t%d\t%s\n", day.Date, day.Weekday, day.Full, day.Half, joinNames(day.Participants))
				}
				return tw.Flush()
			}
			return nil
		},
	}
	rf.register(cmd)
	return cmd
}

func statsPersonCmd(format *string) *cobra.Command {
	var rf rangeFlags

	cmd := &cobra.Command{
		Use:   "person NAME",
		Short: "One person's summary over a date range",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, err := rf.resolve(dateutil.Today())
			if err != nil {
				return err
			}
			a, err := loadApp()
			if err != nil {
				return err
			}
			summary, err := a.engine.PersonSummary(args[0], start, end)
			if err != nil {
				return err
			}
			if done, err := writeStructured(*format, summary); done {
				return err
			}

			outPrintf("\n📊 %s: %s .. %s\n", summary.Person, summary.Start, summary.End)
			outPrintln("═══════════════════════════════════════════════════════")
			outPrintf("  Full-day: %d\n", summary.Full)
			outPrintf("  Half-day: %d\n", summary.Half)
			for _, b := range stats.Buckets {
				bs := summary.Bucket(b)
				outPrintf("  %-9s full %d, half %d\n", b.String()+":", bs.Full, bs.Half)
			}

			if len(summary.Records) > 0 {
				outPrintln()
				tw := newTable()
				fmt.Fprintln(tw, "  Date\tDay\tType")
				for _, rec := range summary.Records {
					d, _ := dateutil.ParseDate(rec.Date)
					fmt.Fprintf(tw, "  %s\t%s\t%s\n", rec.Date, dateutil.WeekdayLabel(d), rec.Type)
				}
				return tw.Flush()
			}
			return nil
		},
	}
	rf.register(cmd)
	return cmd
}

func statsFrequentCmd(format *string) *cobra.Command {
	var days, count int

	cmd := &cobra.Command{
		Use:   "frequent",
		Short: "People absent on many of the most recent days",
		Long: "List people with at least --count absence dates in the last --days calendar days,\n" +
			"today included. Defaults come from settings.json (frequent_days, frequent_count).",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("days") {
				days = a.settings.FrequentDays
			}
			if !cmd.Flags().Changed("count") {
				count = a.settings.FrequentCount
			}

			people, err := a.engine.FrequentAbsentees(dateutil.Today(), days, count)
			if err != nil {
				return err
			}
			if done, err := writeStructured(*format, people); done {
				return err
			}

			outPrintf("\n⚠️  Absent on %d+ of the last %d days: ", count, days)
			if len(people) == 0 {
				outPrintln("nobody")
				return nil
			}
			outPrintln(joinNames(people))
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "Window length in days (default frequent_days)")
	cmd.Flags().IntVar(&count, "count", 0, "Minimum absence dates (default frequent_count)")
	return cmd
}

func statsHistoryCmd(format *string) *cobra.Command {
	return &cobra.Command{
		Use:   "history NAME",
		Short: "Every recorded absence of a person",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			history, err := a.engine.History(args[0])
			if err != nil {
				return err
			}
			if done, err := writeStructured(*format, history); done {
				return err
			}

			if !a.roster.Contains(args[0]) {
				outPrintf("ℹ️  %s is not on the current roster\n", args[0])
			}
			if len(history) == 0 {
				outPrintf("No absences recorded for %s\n", args[0])
				return nil
			}
			tw := newTable()
			fmt.Fprintln(tw, "  Date\tDay\tType")
			for _, h := range history {
				d, _ := dateutil.ParseDate(h.Date)
				fmt.Fprintf(tw, "  %s\t%s\t%s\n", h.Date, dateutil.WeekdayLabel(d), h.Type)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			outPrintf("\n%d entries\n", len(history))
			return nil
		},
	}
}
