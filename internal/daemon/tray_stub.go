//go:build !windows
// +build !windows

package daemon

import (
	"errors"

	"go.uber.org/zap"
)

// ErrTrayUnsupported is returned by NewTrayApp outside Windows
var ErrTrayUnsupported = errors.New("system tray is only supported on Windows")

// TrayApp is the backup tray front-end. Outside Windows the daemon always
// runs headless.
type TrayApp struct{}

// NewTrayApp reports that no tray is available so Start falls back to the
// plain check loop
func NewTrayApp(d *Daemon, logger *zap.Logger) (*TrayApp, error) {
	return nil, ErrTrayUnsupported
}

func (t *TrayApp) Run() {}

func (t *TrayApp) Stop() {}

func (t *TrayApp) ShowNotification(title, msg string) {}
