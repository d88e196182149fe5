package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/username/leave-tracker/internal/config"
)

func settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change settings.json",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the current settings",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := config.Load(configPath)
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
				s, err := config.LoadSettings(cfg.Data.SettingsPath())
				if err != nil {
					return err
				}
				outPrintf("%s\n", cfg.Data.SettingsPath())
				outPrintf("  auto_start_web  %t\n", s.AutoStartWeb)
				outPrintf("  backup_freq     %d (days between automatic backups)\n", s.BackupFreq)
				outPrintf("  backup_delete   %d (backups kept)\n", s.BackupDelete)
				outPrintf("  frequent_days   %d\n", s.FrequentDays)
				outPrintf("  frequent_count  %d\n", s.FrequentCount)
				return nil
			},
		},
		&cobra.Command{
			Use:       "set KEY VALUE",
			Short:     "Change one setting",
			Args:      cobra.ExactArgs(2),
			ValidArgs: config.SettingKeys(),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := config.Load(configPath)
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
				path := cfg.Data.SettingsPath()
				s, err := config.LoadSettings(path)
				if err != nil {
					return err
				}
				if err := s.Set(args[0], args[1]); err != nil {
					return err
				}
				if err := config.SaveSettings(path, s); err != nil {
					return err
				}
				outPrintf("✅ %s = %s\n", args[0], args[1])
				return nil
			},
		},
	)
	return cmd
}
