package roster

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Registry is the unique set of person names. Every mutation rewrites the
// whole file.
type Registry struct {
	path   string
	logger *zap.Logger
	fileMu sync.Locker // shared with whoever else reads the data directory

	mu       sync.RWMutex
	names    []string // storage order
	collator *collate.Collator
	collMu   sync.Mutex // collate.Collator is not safe for concurrent use
}

// NewRegistry creates a registry backed by path. Display order follows the
// collation rules of tag (language.Chinese sorts Han names by pinyin).
func NewRegistry(path string, tag language.Tag, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		path:     path,
		logger:   logger,
		fileMu:   &sync.Mutex{},
		collator: collate.New(tag),
	}
}

// SetFileLock makes the registry replace its file under l, so an archive
// taken while holding l never sees a half-written roster.
func (r *Registry) SetFileLock(l sync.Locker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fileMu = l
}

// Load reads the roster file. A missing file creates an empty roster; an
// unreadable one degrades to empty.
func (r *Registry) Load() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			r.names = nil
			return r.saveLocked()
		}
		r.logger.Warn("Failed to read roster file, starting empty",
			zap.String("file", r.path),
			zap.Error(err))
		r.names = nil
		return nil
	}

	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		r.logger.Warn("Failed to parse roster file, starting empty",
			zap.String("file", r.path),
			zap.Error(err))
		r.names = nil
		return nil
	}

	seen := make(map[string]bool, len(names))
	r.names = r.names[:0]
	for _, name := range names {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		r.names = append(r.names, name)
	}

	r.logger.Info("Roster loaded",
		zap.String("file", r.path),
		zap.Int("people", len(r.names)))
	return nil
}

func (r *Registry) saveLocked() error {
	names := r.names
	if names == nil {
		names = []string{}
	}
	data, err := json.MarshalIndent(names, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal roster: %w", err)
	}

	r.fileMu.Lock()
	defer r.fileMu.Unlock()

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create roster dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create roster temp file: %w", err)
	}
	tmpPath := tmp.Name()

	cleanupTmp := true
	defer func() {
		if cleanupTmp {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write roster file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync roster file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close roster file: %w", err)
	}
	if err := os.Rename(tmpPath, r.path); err != nil {
		return fmt.Errorf("failed to replace roster file: %w", err)
	}
	cleanupTmp = false
	return nil
}

func (r *Registry) indexLocked(name string) int {
	for i, n := range r.names {
		if n == name {
			return i
		}
	}
	return -1
}

// Add adds name. It returns false when name is empty or already present.
func (r *Registry) Add(name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" || r.indexLocked(name) >= 0 {
		return false, nil
	}
	r.names = append(r.names, name)
	if err := r.saveLocked(); err != nil {
		r.names = r.names[:len(r.names)-1]
		return false, err
	}

	r.logger.Info("Person added", zap.String("name", name))
	return true, nil
}

// Remove removes name. Absence records for name are left untouched.
func (r *Registry) Remove(name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexLocked(name)
	if i < 0 {
		return false, nil
	}
	prev := append([]string(nil), r.names...)
	r.names = append(r.names[:i], r.names[i+1:]...)
	if err := r.saveLocked(); err != nil {
		r.names = prev
		return false, err
	}

	r.logger.Info("Person removed", zap.String("name", name))
	return true, nil
}

// BatchImport adds every non-empty name not yet present and returns how
// many were added.
func (r *Registry) BatchImport(names []string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	before := len(r.names)
	for _, name := range names {
		if name == "" || r.indexLocked(name) >= 0 {
			continue
		}
		r.names = append(r.names, name)
	}
	added := len(r.names) - before
	if added == 0 {
		return 0, nil
	}
	if err := r.saveLocked(); err != nil {
		r.names = r.names[:before]
		return 0, err
	}

	r.logger.Info("Roster imported",
		zap.Int("added", added),
		zap.Int("skipped", len(names)-added))
	return added, nil
}

// Contains reports whether name is on the roster
func (r *Registry) Contains(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.indexLocked(name) >= 0
}

// Len returns the number of people on the roster
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}

// List returns the roster in display order
func (r *Registry) List() []string {
	r.mu.RLock()
	names := append([]string(nil), r.names...)
	r.mu.RUnlock()

	r.Sort(names)
	return names
}

// Sort orders names in place using the registry's collation
func (r *Registry) Sort(names []string) {
	r.collMu.Lock()
	defer r.collMu.Unlock()
	r.collator.SortStrings(names)
}
