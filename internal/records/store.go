package records

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DefaultCommitTimeout bounds a single commit when no timeout is configured
const DefaultCommitTimeout = 10 * time.Second

// storedEntry is the on-disk value for one person on one date: {"type": "half"}
type storedEntry struct {
	Type AbsenceType `json:"type"`
}

// Store owns the date → person → absence mapping and its backing file.
//
// Readers get the last committed snapshot without locking. Writers go through
// a Txn; only one Txn can be open at a time.
type Store struct {
	path          string
	commitTimeout time.Duration
	logger        *zap.Logger

	slot    chan struct{} // single transaction slot
	fileMu  sync.Mutex    // held for temp write + rename
	current atomic.Pointer[Snapshot]

	// failure injection in tests
	writeFn  func(f *os.File, data []byte) error
	renameFn func(oldpath, newpath string) error
}

// NewStore creates a store backed by path. The store is empty until Load.
func NewStore(path string, commitTimeout time.Duration, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if commitTimeout <= 0 {
		commitTimeout = DefaultCommitTimeout
	}

	s := &Store{
		path:          path,
		commitTimeout: commitTimeout,
		logger:        logger,
		slot:          make(chan struct{}, 1),
		writeFn: func(f *os.File, data []byte) error {
			_, err := f.Write(data)
			return err
		},
		renameFn: os.Rename,
	}
	s.current.Store(newSnapshot(map[string]DayEntry{}))
	return s
}

// Path returns the backing file path
func (s *Store) Path() string {
	return s.path
}

// Load reads the backing file. A missing file is initialized as an empty
// store and persisted. Unreadable or malformed content degrades to an empty
// store; malformed dates are dropped one by one. Only a failure to persist
// the initial empty file is returned.
func (s *Store) Load() error {
	return s.Reload(context.Background())
}

// Reload is Load that waits for the transaction slot with ctx
func (s *Store) Reload(ctx context.Context) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			empty := newSnapshot(map[string]DayEntry{})
			s.current.Store(empty)
			encoded, err := encodeSnapshot(empty)
			if err != nil {
				return err
			}
			if err := s.persist(encoded, &pendingWrite{}); err != nil {
				return fmt.Errorf("failed to initialize records file: %w", err)
			}
			s.logger.Info("Records file initialized", zap.String("file", s.path))
			return nil
		}
		s.logger.Warn("Failed to read records file, starting empty",
			zap.String("file", s.path),
			zap.Error(err))
		s.current.Store(newSnapshot(map[string]DayEntry{}))
		return nil
	}

	snap := s.decode(data)
	s.current.Store(snap)
	s.logger.Info("Records loaded",
		zap.String("file", s.path),
		zap.Int("dates", snap.Len()))
	return nil
}

func (s *Store) decode(data []byte) *Snapshot {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		s.logger.Warn("Failed to parse records file, starting empty",
			zap.String("file", s.path),
			zap.Error(err))
		return newSnapshot(map[string]DayEntry{})
	}

	days := make(map[string]DayEntry, len(raw))
	for date, value := range raw {
		if err := ValidateDate(date); err != nil {
			s.logger.Warn("Dropping malformed date", zap.String("date", date))
			continue
		}

		var stored map[string]storedEntry
		if err := json.Unmarshal(value, &stored); err != nil {
			s.logger.Warn("Dropping malformed day entry",
				zap.String("date", date),
				zap.Error(err))
			continue
		}

		entry := make(DayEntry, len(stored))
		for name, se := range stored {
			entry[name] = se.Type
		}
		if err := entry.validate(); err != nil {
			s.logger.Warn("Dropping malformed day entry",
				zap.String("date", date),
				zap.Error(err))
			continue
		}
		if len(entry) > 0 {
			days[date] = entry
		}
	}
	return newSnapshot(days)
}

func encodeSnapshot(snap *Snapshot) ([]byte, error) {
	out := make(map[string]map[string]storedEntry, len(snap.days))
	for date, entry := range snap.days {
		day := make(map[string]storedEntry, len(entry))
		for name, t := range entry {
			day[name] = storedEntry{Type: t}
		}
		out[date] = day
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, &CommitError{Op: "encode", Err: err}
	}
	return data, nil
}

// Snapshot returns the last committed state
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// GetEntry returns the committed entry for date, empty when absent
func (s *Store) GetEntry(date string) DayEntry {
	return s.current.Load().Entry(date)
}

// GetAllDates returns every committed date with an entry, ascending
func (s *Store) GetAllDates() []string {
	return s.current.Load().Dates()
}

// FileLock returns the lock held while the backing file is being replaced.
// Holders see the file either before or after a commit, never in between.
func (s *Store) FileLock() sync.Locker {
	return &s.fileMu
}

// Begin opens a transaction, waiting for any in-flight transaction to finish
// or ctx to be done.
func (s *Store) Begin(ctx context.Context) (*Txn, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	return &Txn{
		store:  s,
		base:   s.current.Load(),
		staged: make(map[string]DayEntry),
	}, nil
}

func (s *Store) acquire(ctx context.Context) error {
	select {
	case s.slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrBusy, ctx.Err())
	}
}

func (s *Store) release() {
	<-s.slot
}

// pendingWrite arbitrates between a commit watchdog and the rename
type pendingWrite struct {
	mu        sync.Mutex
	abandoned bool
	renamed   bool
}

// abandon marks the write as abandoned. It returns false if the rename has
// already happened.
func (w *pendingWrite) abandon() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.renamed {
		return false
	}
	w.abandoned = true
	return true
}

// persist writes data to a temp file next to the backing file and renames it
// over the backing file. On any failure the temp file is removed and the
// backing file is untouched.
func (s *Store) persist(data []byte, w *pendingWrite) error {
	s.fileMu.Lock()
	defer s.fileMu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &CommitError{Op: "create", Path: dir, Err: err}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return &CommitError{Op: "create", Path: dir, Err: err}
	}
	tmpPath := tmp.Name()

	cleanupTmp := true
	defer func() {
		if cleanupTmp {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if err := s.writeFn(tmp, data); err != nil {
		return &CommitError{Op: "write", Path: tmpPath, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		return &CommitError{Op: "sync", Path: tmpPath, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &CommitError{Op: "close", Path: tmpPath, Err: err}
	}

	w.mu.Lock()
	if w.abandoned {
		w.mu.Unlock()
		return ErrCommitTimeout
	}
	if err := s.renameFn(tmpPath, s.path); err != nil {
		w.mu.Unlock()
		return &CommitError{Op: "rename", Path: s.path, Err: err}
	}
	w.renamed = true
	w.mu.Unlock()
	cleanupTmp = false

	if err := syncDir(dir); err != nil {
		s.logger.Warn("Directory sync failed (records file still valid)",
			zap.String("dir", dir),
			zap.Error(err))
	}
	return nil
}

func syncDir(dirPath string) error {
	dir, err := os.Open(dirPath)
	if err != nil {
		return fmt.Errorf("open dir for sync: %w", err)
	}
	defer dir.Close()

	if err := dir.Sync(); err != nil {
		return fmt.Errorf("sync dir: %w", err)
	}
	return nil
}
