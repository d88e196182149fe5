package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/username/leave-tracker/internal/archive"
	"go.uber.org/zap"
	"golang.org/x/term"
)

var errNotConfirmed = errors.New("restore not confirmed (use --yes when not on a terminal)")

func backupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create, list, prune and restore data backups",
	}

	cmd.AddCommand(backupCreateCmd(), backupListCmd(), backupPruneCmd(), backupRestoreCmd(), backupDeleteCmd())
	return cmd
}

func backupCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create a manual backup now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			b, err := a.backups.Create(false)
			if err != nil {
				return fmt.Errorf("backup failed: %w", err)
			}
			outPrintf("✅ Created %s (%s)\n", b.ID, formatSize(b.Size))
			return nil
		},
	}
}

func backupListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List backups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			list, err := a.backups.List()
			if err != nil {
				return err
			}
			if len(list) == 0 {
				outPrintf("No backups in %s\n", a.backups.BackupDir())
				return nil
			}

			tw := newTable()
			fmt.Fprintln(tw, "  ID\tKind\tCreated\tSize")
			for _, b := range list {
				kind := "manual"
				if b.Auto {
					kind = "auto"
				}
				fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", b.ID, kind, b.Created.Format("2006-01-02 15:04:05"), formatSize(b.Size))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			outPrintf("\n%d backup(s), keeping %d\n", len(list), a.backups.Keep())
			return nil
		},
	}
}

func backupPruneCmd() *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete the oldest backups beyond the retention limit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("keep") {
				keep = a.settings.BackupDelete
			}

			result, err := a.backups.PruneOldBackups(keep)
			if err != nil {
				return err
			}
			for _, perr := range result.Errors {
				outPrintf("⚠️  %v\n", perr)
			}
			outPrintf("✅ Deleted %d backup(s), freed %s, kept %d\n", result.Deleted, formatSize(result.BytesFreed), result.Kept)
			return nil
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 0, "Backups to keep (default backup_delete)")
	return cmd
}

func backupRestoreCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "restore ID",
		Short: "Overwrite the data files with a backup's contents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			b, err := a.backups.Lookup(args[0])
			if err != nil {
				return err
			}

			if !yes {
				ok, err := confirm(os.Stdin, fmt.Sprintf("Restore %s over %s? Current data will be replaced.", b.ID, a.cfg.Data.Dir))
				if err != nil {
					return err
				}
				if !ok {
					outPrintln("Restore cancelled")
					return nil
				}
			}

			restored, err := a.backups.Restore(b.ID)
			if err != nil {
				return fmt.Errorf("restore failed: %w", err)
			}
			if err := a.reload(cmd.Context()); err != nil {
				return err
			}

			logger.Info("Backup restored",
				zap.String("backup", b.ID),
				zap.Strings("files", restored))
			outPrintf("✅ Restored %d file(s) from %s: %s\n", len(restored), b.ID, strings.Join(restored, ", "))
			outPrintf("   %d dates, %d people on the roster\n", len(a.store.GetAllDates()), a.roster.Len())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func backupDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete one backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			if err := a.backups.Delete(args[0]); err != nil {
				if errors.Is(err, archive.ErrBackupNotFound) {
					return fmt.Errorf("no backup named %s", args[0])
				}
				return err
			}
			outPrintf("✅ Deleted %s\n", args[0])
			return nil
		},
	}
}

// confirm asks a yes/no question on an interactive terminal. Without a
// terminal the answer cannot be trusted and errNotConfirmed is returned.
func confirm(in *os.File, question string) (bool, error) {
	if !term.IsTerminal(int(in.Fd())) {
		return false, errNotConfirmed
	}
	outPrintf("%s [y/N]: ", question)
	return readYes(in)
}

func readYes(r io.Reader) (bool, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func formatSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
