//go:build windows
// +build windows

package daemon

import (
	_ "embed"
	"fmt"
	"sync"
	"syscall"
	"unsafe"

	"fyne.io/systray"
	"go.uber.org/zap"
)

//go:embed icon.ico
var trayIcon []byte

var (
	user32      = syscall.NewLazyDLL("user32.dll")
	messageBoxW = user32.NewProc("MessageBoxW")
)

const (
	MB_OK              = 0x00000000
	MB_ICONINFORMATION = 0x00000040
)

// TrayApp represents system tray application
type TrayApp struct {
	daemon   *Daemon
	logger   *zap.Logger
	quit     chan struct{}
	stopOnce sync.Once
}

// NewTrayApp creates a new system tray application
func NewTrayApp(daemon *Daemon, logger *zap.Logger) (*TrayApp, error) {
	return &TrayApp{
		daemon: daemon,
		logger: logger,
		quit:   make(chan struct{}),
	}, nil
}

// Run starts the system tray application (blocks until Quit)
func (t *TrayApp) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *TrayApp) onReady() {
	systray.SetIcon(trayIcon)
	systray.SetTitle("LT")
	systray.SetTooltip("Leave Tracker backups")

	mBackupNow := systray.AddMenuItem("Backup Now", "Create a backup immediately")
	systray.AddSeparator()
	mStatus := systray.AddMenuItem("Status", "Show backup status")
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Exit the application")

	// Start daemon logic in background
	go t.daemon.runLoop()

	// Handle menu item clicks
	go func() {
		for {
			select {
			case <-mBackupNow.ClickedCh:
				t.logger.Info("Backup Now clicked from tray")
				go t.daemon.BackupNow()
			case <-mStatus.ClickedCh:
				t.logger.Info("Status clicked from tray")
				t.showStatus()
			case <-mQuit.ClickedCh:
				t.logger.Info("Quit clicked from tray")
				t.daemon.Stop()
				systray.Quit()
				return
			case <-t.quit:
				systray.Quit()
				return
			}
		}
	}()
}

func (t *TrayApp) onExit() {
	t.logger.Info("System tray exited")
}

// Stop stops the system tray application
func (t *TrayApp) Stop() {
	t.stopOnce.Do(func() { close(t.quit) })
}

// ShowNotification shows a notification (Windows only)
func (t *TrayApp) ShowNotification(title, message string) {
	// fyne.io/systray has no balloon API; surface it in the tooltip and log
	systray.SetTooltip(title + ": " + message)
	t.logger.Info("Notification", zap.String("title", title), zap.String("message", message))
}

// showStatus shows current backup status
func (t *TrayApp) showStatus() {
	status := t.daemon.GetStatus()
	t.logger.Info("Current status", zap.Any("status", status))

	message := fmt.Sprintf("Backups: %v", status["backups"])
	if latest, ok := status["latest_backup"]; ok {
		message += fmt.Sprintf("\nLatest: %v\nCreated: %v", latest, status["latest_backup_time"])
	}
	if next, ok := status["next_check"]; ok {
		message += fmt.Sprintf("\nNext check: %v", next)
	}
	if lastErr, ok := status["last_error"]; ok {
		message += fmt.Sprintf("\nLast error: %v", lastErr)
	}

	showMessageBox("Leave Tracker Backup Status", message)
}

func showMessageBox(title, message string) {
	titlePtr, _ := syscall.UTF16PtrFromString(title)
	messagePtr, _ := syscall.UTF16PtrFromString(message)
	messageBoxW.Call(
		0,
		uintptr(unsafe.Pointer(messagePtr)),
		uintptr(unsafe.Pointer(titlePtr)),
		uintptr(MB_OK|MB_ICONINFORMATION),
	)
}
