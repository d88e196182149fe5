package daemon

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/username/leave-tracker/internal/archive"
	"go.uber.org/zap"
)

type fakeBackups struct {
	mu      sync.Mutex
	due     bool
	keep    int
	created int
	block   chan struct{}
	err     error
}

func (f *fakeBackups) IsBackupDue(int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.due
}

func (f *fakeBackups) Create(auto bool) (*archive.Backup, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.created++
	f.due = false
	return &archive.Backup{ID: "auto-test.zip", Auto: auto, Created: time.Now()}, nil
}

func (f *fakeBackups) SetKeep(keep int) {
	f.mu.Lock()
	f.keep = keep
	f.mu.Unlock()
}

func (f *fakeBackups) List() ([]archive.Backup, error) {
	return nil, nil
}

func fixedSchedule(freq, keep int) ScheduleFunc {
	return func() (Schedule, error) {
		return Schedule{FrequencyDays: freq, Keep: keep}, nil
	}
}

func TestDaemon_RunCheck(t *testing.T) {
	tests := []struct {
		name        string
		due         bool
		schedule    ScheduleFunc
		wantCreated int
		wantKeep    int
	}{
		{"due creates backup", true, fixedSchedule(1, 7), 1, 7},
		{"not due does nothing", false, fixedSchedule(1, 4), 0, 4},
		{"schedule error skips", true, func() (Schedule, error) { return Schedule{}, errors.New("bad settings") }, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeBackups{due: tt.due}
			d := NewDaemon(fake, tt.schedule, time.Hour, false, zap.NewNop())

			d.runCheck()

			if fake.created != tt.wantCreated {
				t.Errorf("created = %d, want %d", fake.created, tt.wantCreated)
			}
			if fake.keep != tt.wantKeep {
				t.Errorf("keep = %d, want %d", fake.keep, tt.wantKeep)
			}
		})
	}
}

func TestDaemon_RunBackupRejectsOverlap(t *testing.T) {
	fake := &fakeBackups{block: make(chan struct{})}
	d := NewDaemon(fake, fixedSchedule(1, 10), time.Hour, false, nil)

	done := make(chan error, 1)
	go func() {
		_, err := d.runBackup(false)
		done <- err
	}()

	// wait until the first backup holds the running flag
	deadline := time.Now().Add(2 * time.Second)
	for {
		d.mu.Lock()
		running := d.backupRunning
		d.mu.Unlock()
		if running {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("first backup never started")
		}
		time.Sleep(time.Millisecond)
	}

	if _, err := d.runBackup(true); !errors.Is(err, ErrBackupRunning) {
		t.Errorf("overlapping runBackup() error = %v, want ErrBackupRunning", err)
	}

	close(fake.block)
	if err := <-done; err != nil {
		t.Errorf("first runBackup() error = %v", err)
	}
	if status := d.GetStatus(); status["last_backup"] != "auto-test.zip" {
		t.Errorf("status = %v", status)
	}
}

func TestDaemon_RunWithTimeout(t *testing.T) {
	root := t.TempDir()
	dataDir := filepath.Join(root, "data")
	backupDir := filepath.Join(root, "backup")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dataDir, "students.json"), []byte(`["Alice"]`), 0o644); err != nil {
		t.Fatal(err)
	}

	logger, _ := zap.NewDevelopment()
	mgr := archive.NewManager(dataDir, backupDir, "settings.json", 10, nil, logger)
	d := NewDaemon(mgr, fixedSchedule(1, 10), 20*time.Millisecond, false, logger)

	if err := d.RunWithTimeout(150 * time.Millisecond); err != nil {
		t.Fatalf("RunWithTimeout() error = %v", err)
	}

	backups, err := mgr.List()
	if err != nil {
		t.Fatal(err)
	}
	// the first check creates one backup; later ticks find it fresh
	if len(backups) != 1 || !backups[0].Auto {
		t.Errorf("backups = %+v, want one automatic backup", backups)
	}

	status := d.GetStatus()
	if status["backups"] != 1 || status["last_check"] == nil {
		t.Errorf("status = %v", status)
	}
}

func TestDaemon_NothingToBackupIsQuiet(t *testing.T) {
	root := t.TempDir()
	mgr := archive.NewManager(filepath.Join(root, "data"), filepath.Join(root, "backup"), "settings.json", 10, nil, nil)
	d := NewDaemon(mgr, fixedSchedule(1, 10), time.Hour, false, nil)

	d.runCheck()

	if status := d.GetStatus(); status["backups"] != 0 {
		t.Errorf("status = %v, want no backups", status)
	}
}
