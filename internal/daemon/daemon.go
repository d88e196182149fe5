package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/username/leave-tracker/internal/archive"
	"go.uber.org/zap"
)

// ErrBackupRunning is returned when a backup is requested while one is in progress
var ErrBackupRunning = errors.New("backup already in progress")

// Backups is the archive surface the daemon drives
type Backups interface {
	IsBackupDue(frequencyDays int) bool
	Create(auto bool) (*archive.Backup, error)
	SetKeep(keep int)
	List() ([]archive.Backup, error)
}

// Schedule is the backup policy read from settings
type Schedule struct {
	FrequencyDays int
	Keep          int
}

// ScheduleFunc returns the current backup policy. It is called before every
// check so edits to settings.json apply without a restart.
type ScheduleFunc func() (Schedule, error)

// Daemon represents the automatic backup process
type Daemon struct {
	backups       Backups
	schedule      ScheduleFunc
	checkInterval time.Duration
	systemTray    bool // Show system tray icon
	logger        *zap.Logger
	ctx           context.Context
	cancel        context.CancelFunc
	trayApp       *TrayApp
	checks        sync.WaitGroup
	checkMu       sync.Mutex // one schedule check at a time

	mu            sync.Mutex // Protect against concurrent runs
	backupRunning bool
	lastCheck     time.Time
	lastBackup    *archive.Backup
	lastErr       error
}

// NewDaemon creates a new daemon instance that checks the schedule every
// checkInterval
func NewDaemon(backups Backups, schedule ScheduleFunc, checkInterval time.Duration, systemTray bool, logger *zap.Logger) *Daemon {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		backups:       backups,
		schedule:      schedule,
		checkInterval: checkInterval,
		systemTray:    systemTray,
		logger:        logger,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Start starts the daemon
func (d *Daemon) Start() error {
	// Initialize system tray if enabled (Windows only)
	if d.systemTray {
		d.logger.Info("Initializing system tray")
		trayApp, err := NewTrayApp(d, d.logger)
		if err != nil {
			d.logger.Warn("Failed to initialize system tray", zap.Error(err))
			// Fall back to non-tray mode
			d.runLoop()
			return nil
		}
		d.trayApp = trayApp
		// Run tray (blocks until Quit)
		d.trayApp.Run()
		return nil
	}

	d.logger.Info("Running without system tray")
	d.runLoop()
	return nil
}

// runLoop checks at startup and then on every tick until stopped
func (d *Daemon) runLoop() {
	d.logger.Info("Daemon started",
		zap.Duration("check_interval", d.checkInterval))

	// Setup signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	// Run initial check immediately
	d.goCheck()

	ticker := time.NewTicker(d.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			d.logger.Info("Daemon stopped")
			d.checks.Wait()
			if d.trayApp != nil {
				d.trayApp.Stop()
			}
			return

		case sig := <-sigChan:
			d.logger.Info("Received signal, shutting down",
				zap.String("signal", sig.String()))
			d.Stop()

		case <-ticker.C:
			d.goCheck()
		}
	}
}

// RunWithTimeout runs the check loop until timeout elapses (for testing)
func (d *Daemon) RunWithTimeout(timeout time.Duration) error {
	d.logger.Info("Daemon started with timeout",
		zap.Duration("timeout", timeout),
		zap.Duration("check_interval", d.checkInterval))

	timeoutCtx, timeoutCancel := context.WithTimeout(d.ctx, timeout)
	defer timeoutCancel()

	d.goCheck()

	ticker := time.NewTicker(d.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-timeoutCtx.Done():
			d.checks.Wait()
			d.logger.Info("Daemon stopped (timeout reached)")
			return nil

		case <-ticker.C:
			d.goCheck()
		}
	}
}

// Stop stops the daemon
func (d *Daemon) Stop() {
	d.cancel()
}

// goCheck runs a check off the loop goroutine
func (d *Daemon) goCheck() {
	d.checks.Add(1)
	go func() {
		defer d.checks.Done()
		d.runCheck()
	}()
}

// runCheck creates an automatic backup when one is due
func (d *Daemon) runCheck() {
	if !d.checkMu.TryLock() {
		d.logger.Debug("Previous check still running, skipping")
		return
	}
	defer d.checkMu.Unlock()

	s, err := d.schedule()
	if err != nil {
		d.logger.Warn("Failed to read backup schedule, skipping check", zap.Error(err))
		return
	}
	d.backups.SetKeep(s.Keep)

	d.mu.Lock()
	d.lastCheck = time.Now()
	d.mu.Unlock()

	if !d.backups.IsBackupDue(s.FrequencyDays) {
		d.logger.Debug("Backup not due", zap.Int("frequency_days", s.FrequencyDays))
		return
	}

	d.logger.Info("Automatic backup due", zap.Int("frequency_days", s.FrequencyDays))
	if _, err := d.runBackup(true); err != nil {
		if errors.Is(err, archive.ErrNothingToBackup) {
			d.logger.Info("No data files yet, automatic backup skipped")
			return
		}
		d.logger.Error("Automatic backup failed", zap.Error(err))
		d.notify("Backup Failed", fmt.Sprintf("Error: %v", err))
	}
}

// runBackup creates one backup
// Protected with mutex to prevent overlapping runs
func (d *Daemon) runBackup(auto bool) (*archive.Backup, error) {
	d.mu.Lock()
	if d.backupRunning {
		d.mu.Unlock()
		d.logger.Warn("Backup already running, skipping concurrent execution")
		return nil, ErrBackupRunning
	}
	d.backupRunning = true
	d.mu.Unlock()

	b, err := d.backups.Create(auto)

	d.mu.Lock()
	d.backupRunning = false
	d.lastErr = err
	if err == nil {
		d.lastBackup = b
	}
	d.mu.Unlock()

	if err != nil {
		return nil, err
	}

	d.logger.Info("Backup completed",
		zap.String("backup", b.ID),
		zap.Bool("auto", auto))
	return b, nil
}

// BackupNow triggers an immediate manual backup (called from tray menu)
func (d *Daemon) BackupNow() {
	d.logger.Info("Manual backup triggered from tray")
	b, err := d.runBackup(false)
	if err != nil {
		d.logger.Error("Manual backup failed", zap.Error(err))
		d.notify("Backup Failed", fmt.Sprintf("Error: %v", err))
		return
	}
	d.notify("Backup Completed", b.ID)
}

func (d *Daemon) notify(title, message string) {
	if d.trayApp != nil {
		d.trayApp.ShowNotification(title, message)
	}
}

// GetStatus returns daemon status
func (d *Daemon) GetStatus() map[string]interface{} {
	d.mu.Lock()
	status := map[string]interface{}{
		"running":        d.ctx.Err() == nil,
		"check_interval": d.checkInterval.String(),
		"backup_running": d.backupRunning,
	}
	if !d.lastCheck.IsZero() {
		status["last_check"] = d.lastCheck.Format(time.RFC3339)
		status["next_check"] = d.lastCheck.Add(d.checkInterval).Format(time.RFC3339)
	}
	if d.lastBackup != nil {
		status["last_backup"] = d.lastBackup.ID
	}
	if d.lastErr != nil {
		status["last_error"] = d.lastErr.Error()
	}
	d.mu.Unlock()

	if backups, err := d.backups.List(); err == nil {
		status["backups"] = len(backups)
		if len(backups) > 0 {
			status["latest_backup"] = backups[0].ID
			status["latest_backup_time"] = backups[0].Created.Format("2006-01-02 15:04:05")
		}
	}

	return status
}
