package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	ErrNothingToBackup = errors.New("no data files to back up")
	ErrBackupNotFound  = errors.New("backup not found")
	ErrUnsafeEntry     = errors.New("archive entry escapes data directory")
	ErrInvalidKeep     = errors.New("retention count must be at least one")
)

const (
	// DefaultKeep is the retention count used when none is configured
	DefaultKeep = 10

	timestampLayout = "2006-01-02-15-04-05"
	archiveExt      = ".zip"

	autoPrefix   = "auto-"
	manualPrefix = "manual-"

	// prefixes written by earlier releases
	legacyAutoPrefix   = "自动备份-"
	legacyManualPrefix = "手动备份-"
)

// Backup describes one archive in the backup directory
type Backup struct {
	ID      string    `json:"id" yaml:"id"`
	Path    string    `json:"path" yaml:"path"`
	Auto    bool      `json:"auto" yaml:"auto"`
	Created time.Time `json:"created" yaml:"created"`
	Size    int64     `json:"size" yaml:"size"`
}

// PruneResult holds the result of a retention pass
type PruneResult struct {
	Deleted    int
	BytesFreed int64
	Kept       int
	Errors     []error
}

// Manager creates, lists, prunes and restores zip backups of the data
// directory
type Manager struct {
	dataDir      string
	backupDir    string
	settingsFile string
	locker       sync.Locker
	logger       *zap.Logger
	now          func() time.Time
	removeFn     func(name string) error // failure injection in tests

	mu   sync.Mutex
	keep int

	group singleflight.Group
}

// NewManager creates a backup manager. settingsFile names the file in dataDir
// that is never archived. locker, when non-nil, is held while data files are
// read or overwritten so a backup never observes a half-written file.
func NewManager(dataDir, backupDir, settingsFile string, keep int, locker sync.Locker, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if keep < 1 {
		keep = DefaultKeep
	}
	return &Manager{
		dataDir:      dataDir,
		backupDir:    backupDir,
		settingsFile: filepath.Base(settingsFile),
		locker:       locker,
		logger:       logger,
		now:          time.Now,
		removeFn:     os.Remove,
		keep:         keep,
	}
}

// SetKeep changes the retention count applied after each backup
func (m *Manager) SetKeep(keep int) {
	if keep < 1 {
		return
	}
	m.mu.Lock()
	m.keep = keep
	m.mu.Unlock()
}

// Keep returns the retention count
func (m *Manager) Keep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keep
}

// BackupDir returns the directory holding the archives
func (m *Manager) BackupDir() string {
	return m.backupDir
}

func (m *Manager) lock() {
	if m.locker != nil {
		m.locker.Lock()
	}
}

func (m *Manager) unlock() {
	if m.locker != nil {
		m.locker.Unlock()
	}
}

// parseName extracts the origin and timestamp embedded in an archive name
func parseName(name string) (auto bool, created time.Time, ok bool) {
	if !strings.HasSuffix(name, archiveExt) {
		return false, time.Time{}, false
	}
	stem := strings.TrimSuffix(name, archiveExt)

	switch {
	case strings.HasPrefix(stem, autoPrefix):
		auto, stem = true, strings.TrimPrefix(stem, autoPrefix)
	case strings.HasPrefix(stem, legacyAutoPrefix):
		auto, stem = true, strings.TrimPrefix(stem, legacyAutoPrefix)
	case strings.HasPrefix(stem, manualPrefix):
		stem = strings.TrimPrefix(stem, manualPrefix)
	case strings.HasPrefix(stem, legacyManualPrefix):
		stem = strings.TrimPrefix(stem, legacyManualPrefix)
	default:
		return false, time.Time{}, true
	}

	if len(stem) < len(timestampLayout) {
		return auto, time.Time{}, true
	}
	t, err := time.ParseInLocation(timestampLayout, stem[:len(timestampLayout)], time.Local)
	if err != nil {
		return auto, time.Time{}, true
	}
	return auto, t, true
}

// List returns every archive in the backup directory, newest first. A
// missing backup directory yields an empty list.
func (m *Manager) List() ([]Backup, error) {
	entries, err := os.ReadDir(m.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Backup{}, nil
		}
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	backups := make([]Backup, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		auto, created, ok := parseName(entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			m.logger.Debug("Skipping unreadable backup", zap.String("file", entry.Name()), zap.Error(err))
			continue
		}
		if created.IsZero() {
			created = info.ModTime()
		}
		backups = append(backups, Backup{
			ID:      entry.Name(),
			Path:    filepath.Join(m.backupDir, entry.Name()),
			Auto:    auto,
			Created: created,
			Size:    info.Size(),
		})
	}

	sort.SliceStable(backups, func(i, j int) bool {
		if !backups[i].Created.Equal(backups[j].Created) {
			return backups[i].Created.After(backups[j].Created)
		}
		return backups[i].ID > backups[j].ID
	})
	return backups, nil
}

// Lookup finds an archive by id (its file name)
func (m *Manager) Lookup(id string) (*Backup, error) {
	if id == "" || filepath.Base(id) != id {
		return nil, fmt.Errorf("%w: %s", ErrBackupNotFound, id)
	}
	backups, err := m.List()
	if err != nil {
		return nil, err
	}
	for i := range backups {
		if backups[i].ID == id {
			return &backups[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrBackupNotFound, id)
}

// IsBackupDue reports whether no backup exists yet or the newest one is at
// least frequencyDays old. A listing failure is treated as not due.
func (m *Manager) IsBackupDue(frequencyDays int) bool {
	backups, err := m.List()
	if err != nil {
		m.logger.Warn("Failed to check backup schedule", zap.Error(err))
		return false
	}
	if len(backups) == 0 {
		return true
	}

	elapsed := m.now().Sub(backups[0].Created)
	due := elapsed >= time.Duration(frequencyDays)*24*time.Hour
	m.logger.Debug("Backup schedule checked",
		zap.String("latest", backups[0].ID),
		zap.Duration("elapsed", elapsed),
		zap.Int("frequency_days", frequencyDays),
		zap.Bool("due", due))
	return due
}

// PruneOldBackups deletes every archive beyond the keep newest. Failures for
// individual files are collected and do not stop the pass.
func (m *Manager) PruneOldBackups(keep int) (*PruneResult, error) {
	if keep < 1 {
		return nil, ErrInvalidKeep
	}
	backups, err := m.List()
	if err != nil {
		return nil, err
	}

	result := &PruneResult{Kept: len(backups)}
	if len(backups) <= keep {
		return result, nil
	}
	result.Kept = keep

	for _, b := range backups[keep:] {
		if err := m.removeFn(b.Path); err != nil {
			m.logger.Warn("Failed to delete old backup",
				zap.String("backup", b.ID),
				zap.Error(err))
			result.Errors = append(result.Errors, fmt.Errorf("delete %s: %w", b.ID, err))
			result.Kept++
			continue
		}
		result.Deleted++
		result.BytesFreed += b.Size
	}

	m.logger.Info("Old backups pruned",
		zap.Int("deleted", result.Deleted),
		zap.Int("kept", result.Kept),
		zap.Int("errors", len(result.Errors)))
	return result, nil
}

// Delete removes one archive
func (m *Manager) Delete(id string) error {
	b, err := m.Lookup(id)
	if err != nil {
		return err
	}
	if err := os.Remove(b.Path); err != nil {
		return fmt.Errorf("failed to delete backup %s: %w", id, err)
	}
	m.logger.Info("Backup deleted", zap.String("backup", id))
	return nil
}
