package main

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/username/leave-tracker/internal/config"
	"github.com/username/leave-tracker/internal/daemon"
	"go.uber.org/zap"
)

func daemonCmd() *cobra.Command {
	var duration time.Duration
	var tray bool

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run scheduled automatic backups",
		Long: "Check at startup and every daemon.check_interval whether a backup is due\n" +
			"(settings.json backup_freq days since the newest backup) and create one,\n" +
			"pruning to backup_delete archives. settings.json is re-read on every check.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("tray") {
				tray = a.cfg.Daemon.SystemTray
			}

			settingsPath := a.cfg.Data.SettingsPath()
			schedule := func() (daemon.Schedule, error) {
				s, err := config.LoadSettings(settingsPath)
				if err != nil {
					return daemon.Schedule{}, err
				}
				return daemon.Schedule{FrequencyDays: s.BackupFreq, Keep: s.BackupDelete}, nil
			}

			d := daemon.NewDaemon(a.backups, schedule, a.cfg.Daemon.GetCheckInterval(), tray, logger)
			logger.Info("Starting backup daemon",
				zap.String("data_dir", a.cfg.Data.Dir),
				zap.String("backup_dir", a.backups.BackupDir()),
				zap.Bool("system_tray", tray))

			if duration > 0 {
				return d.RunWithTimeout(duration)
			}
			return d.Start()
		},
	}

	cmd.Flags().DurationVar(&duration, "duration", 0, "Stop after this long (0 runs until interrupted)")
	cmd.Flags().BoolVar(&tray, "tray", false, "Show the system tray icon (Windows only, default daemon.system_tray)")
	return cmd
}
