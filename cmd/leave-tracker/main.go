package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/username/leave-tracker/internal/archive"
	"github.com/username/leave-tracker/internal/config"
	"github.com/username/leave-tracker/internal/records"
	"github.com/username/leave-tracker/internal/roster"
	"github.com/username/leave-tracker/internal/stats"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	configPath string
	logger     *zap.Logger
	outWriter  io.Writer = os.Stdout
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "leave-tracker",
		Short: "Class leave record keeper",
		Long:  "Record half-day and full-day absences, report on them, export spreadsheets and keep rotating backups",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load config to get log file path
			cfg, err := config.Load(configPath)
			if err == nil && cfg.Daemon.LogFile != "" {
				logger, err = initFileLogger(cfg.Daemon.LogFile, cfg.Daemon.LogLevel)
				if err != nil {
					initLogger() // Fallback to console
				}
			} else {
				initLogger() // Default console logger
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (default: search config.yaml)")

	rootCmd.AddCommand(
		rosterCmd(),
		recordCmd(),
		statsCmd(),
		exportCmd(),
		backupCmd(),
		daemonCmd(),
		calendarCmd(),
		settingsCmd(),
	)

	if cmd, err := rootCmd.ExecuteC(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if hint := usageHint(cmd, err); hint != "" {
			fmt.Fprintln(os.Stderr, hint)
		}
		os.Exit(1)
	}
}

// usageHint points at the command's help when the failure was bad input
// rather than a storage problem.
func usageHint(cmd *cobra.Command, err error) string {
	if !records.IsValidation(err) {
		return ""
	}
	return fmt.Sprintf("Run '%s --help' for usage.", cmd.CommandPath())
}

// app holds the components wired from configuration
type app struct {
	cfg      *config.Config
	settings *config.Settings
	store    *records.Store
	roster   *roster.Registry
	engine   *stats.Engine
	backups  *archive.Manager
}

func loadApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.Data.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	settings, err := config.LoadSettings(cfg.Data.SettingsPath())
	if err != nil {
		logger.Warn("Failed to load settings, using defaults", zap.Error(err))
		settings = config.DefaultSettings()
	}

	store := records.NewStore(cfg.Data.RecordsPath(), cfg.Commit.GetTimeout(), logger)
	if err := store.Load(); err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}

	reg := roster.NewRegistry(cfg.Data.RosterPath(), cfg.Roster.GetTag(), logger)
	reg.SetFileLock(store.FileLock())
	if err := reg.Load(); err != nil {
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}

	return &app{
		cfg:      cfg,
		settings: settings,
		store:    store,
		roster:   reg,
		engine:   stats.NewEngine(store, reg, logger),
		backups: archive.NewManager(cfg.Data.Dir, cfg.Data.BackupDir, cfg.Data.SettingsFile,
			settings.BackupDelete, store.FileLock(), logger),
	}, nil
}

// reload re-reads the records and roster files, after a restore
func (a *app) reload(ctx context.Context) error {
	if err := a.store.Reload(ctx); err != nil {
		return fmt.Errorf("failed to reload records: %w", err)
	}
	if err := a.roster.Load(); err != nil {
		return fmt.Errorf("failed to reload roster: %w", err)
	}
	return nil
}

func outPrintf(format string, a ...interface{}) {
	if outWriter == nil {
		outWriter = os.Stdout
	}
	fmt.Fprintf(outWriter, format, a...)
}

func outPrintln(a ...interface{}) {
	if outWriter == nil {
		outWriter = os.Stdout
	}
	fmt.Fprintln(outWriter, a...)
}

func initLogger() {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.OutputPaths = []string{"stderr"}

	var err error
	logger, err = config.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
}

func initFileLogger(logFile string, level string) (*zap.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log dir: %w", err)
	}

	// Setup lumberjack for log rotation
	logWriter := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    100,  // MB
		MaxBackups: 3,    // Keep max 3 old log files
		MaxAge:     28,   // days
		Compress:   true, // Compress old logs with gzip
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(logWriter),
		zapLevel,
	)

	return zap.New(core), nil
}
