package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/username/leave-tracker/internal/records"
	"github.com/username/leave-tracker/pkg/dateutil"
)

func recordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Edit and inspect leave records",
	}

	cmd.AddCommand(recordSetCmd(), recordClearCmd(), recordDayCmd(), recordShowCmd(), recordDatesCmd())
	return cmd
}

// splitNames splits a comma separated flag value, also accepting the
// full-width comma and the ideographic enumeration comma
func splitNames(value string) []string {
	return strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == '，' || r == '、' || r == ' '
	})
}

func (a *app) warnUnknown(names ...string) {
	for _, name := range names {
		if !a.roster.Contains(name) {
			outPrintf("⚠️  %s is not on the roster\n", name)
		}
	}
}

func recordSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set DATE PERSON half|full",
		Short: "Record one person's absence on a date",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, person := args[0], args[1]
			typ, err := records.ParseAbsenceType(args[2])
			if err != nil {
				return err
			}

			a, err := loadApp()
			if err != nil {
				return err
			}
			a.warnUnknown(person)

			if err := a.store.Update(cmd.Context(), func(txn *records.Txn) error {
				return txn.SetEntry(date, person, typ)
			}); err != nil {
				return fmt.Errorf("failed to save record: %w", err)
			}
			outPrintf("✅ %s %s: %s\n", date, person, typ)
			return nil
		},
	}
}

func recordClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear DATE [PERSON...]",
		Short: "Remove people from a date, or the whole date when none is given",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, people := args[0], args[1:]

			a, err := loadApp()
			if err != nil {
				return err
			}

			err = a.store.Update(cmd.Context(), func(txn *records.Txn) error {
				if len(people) == 0 {
					return txn.ReplaceDay(date, nil)
				}
				for _, person := range people {
					if err := txn.RemoveEntry(date, person); err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				return fmt.Errorf("failed to clear records: %w", err)
			}

			if len(people) == 0 {
				outPrintf("✅ Cleared %s\n", date)
			} else {
				outPrintf("✅ Cleared %s on %s\n", strings.Join(people, ", "), date)
			}
			return nil
		},
	}
}

func recordDayCmd() *cobra.Command {
	var full, half string

	cmd := &cobra.Command{
		Use:   "day DATE",
		Short: "Replace every entry of a date",
		Long: "Replace every entry of a date with the given full-day and half-day lists.\n" +
			"A person named in both lists is recorded as full. With both lists empty the date is deleted.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date := args[0]
			entry := records.DayEntry{}
			for _, name := range splitNames(half) {
				entry[name] = records.Half
			}
			for _, name := range splitNames(full) {
				entry[name] = records.Full
			}

			a, err := loadApp()
			if err != nil {
				return err
			}
			a.warnUnknown(entry.People()...)

			if err := a.store.ReplaceDay(cmd.Context(), date, entry); err != nil {
				return fmt.Errorf("failed to save day: %w", err)
			}

			h, f := entry.Counts()
			outPrintf("✅ %s saved: %d full, %d half\n", date, f, h)
			return nil
		},
	}

	cmd.Flags().StringVar(&full, "full", "", "Comma separated full-day absentees")
	cmd.Flags().StringVar(&half, "half", "", "Comma separated half-day absentees")
	return cmd
}

func recordShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [DATE]",
		Short: "Show the entries of a date (default today)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date := dateutil.Format(dateutil.Today())
			if len(args) == 1 {
				date = args[0]
			}
			if err := records.ValidateDate(date); err != nil {
				return err
			}

			a, err := loadApp()
			if err != nil {
				return err
			}
			d, _ := dateutil.ParseDate(date)
			entry := a.store.GetEntry(date)

			outPrintf("\n📅 %s %s\n", date, dateutil.WeekdayLabel(d))
			outPrintln("═══════════════════════════════════════════════════════")
			if len(entry) == 0 {
				outPrintln("  No absences")
				return nil
			}

			var fullNames, halfNames []string
			for _, name := range entry.People() {
				if entry[name] == records.Full {
					fullNames = append(fullNames, name)
				} else {
					halfNames = append(halfNames, name)
				}
			}
			a.roster.Sort(fullNames)
			a.roster.Sort(halfNames)
			outPrintf("  全天 (%d): %s\n", len(fullNames), strings.Join(fullNames, "、"))
			outPrintf("  半天 (%d): %s\n", len(halfNames), strings.Join(halfNames, "、"))
			return nil
		},
	}
}

func recordDatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dates",
		Short: "List every date that has records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			dates := a.store.GetAllDates()
			for _, date := range dates {
				half, full := a.store.GetEntry(date).Counts()
				outPrintf("  %s  full %2d  half %2d\n", date, full, half)
			}
			outPrintf("\n%d dates\n", len(dates))
			return nil
		},
	}
}
