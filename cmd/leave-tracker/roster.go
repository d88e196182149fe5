package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/username/leave-tracker/internal/roster"
	"go.uber.org/zap"
)

func rosterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roster",
		Short: "Manage the class roster",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List people in collation order",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := loadApp()
				if err != nil {
					return err
				}
				names := a.roster.List()
				if len(names) == 0 {
					outPrintln("Roster is empty")
					return nil
				}
				for i, name := range names {
					outPrintf("%3d. %s\n", i+1, name)
				}
				outPrintf("\n%d people\n", len(names))
				return nil
			},
		},
		&cobra.Command{
			Use:   "add NAME...",
			Short: "Add people to the roster",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := loadApp()
				if err != nil {
					return err
				}
				for _, name := range args {
					added, err := a.roster.Add(name)
					if err != nil {
						return fmt.Errorf("failed to add %s: %w", name, err)
					}
					if added {
						outPrintf("✅ Added %s\n", name)
					} else {
						outPrintf("   %s is already on the roster\n", name)
					}
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "remove NAME...",
			Short: "Remove people from the roster (their records are kept)",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := loadApp()
				if err != nil {
					return err
				}
				for _, name := range args {
					removed, err := a.roster.Remove(name)
					if err != nil {
						return fmt.Errorf("failed to remove %s: %w", name, err)
					}
					if removed {
						outPrintf("✅ Removed %s\n", name)
					} else {
						outPrintf("   %s is not on the roster\n", name)
					}
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "import FILE",
			Short: "Import names from a .txt or .xlsx file",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := loadApp()
				if err != nil {
					return err
				}
				names, err := roster.ReadNames(args[0])
				if err != nil {
					return err
				}
				added, err := a.roster.BatchImport(names)
				if err != nil {
					return fmt.Errorf("failed to import roster: %w", err)
				}
				logger.Info("Roster imported",
					zap.String("file", args[0]),
					zap.Int("read", len(names)),
					zap.Int("added", added))
				outPrintf("✅ Imported %d new of %d names (roster now has %d)\n", added, len(names), a.roster.Len())
				return nil
			},
		},
	)

	return cmd
}
