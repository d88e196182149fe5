package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// dataFiles lists the archivable files of the data directory
func (m *Manager) dataFiles() ([]string, error) {
	entries, err := os.ReadDir(m.dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNothingToBackup
		}
		return nil, fmt.Errorf("failed to read data dir: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		if filepath.Ext(name) != ".json" || name == m.settingsFile {
			continue
		}
		files = append(files, name)
	}
	if len(files) == 0 {
		return nil, ErrNothingToBackup
	}
	sort.Strings(files)
	return files, nil
}

// Create writes a new archive of the data directory and applies retention.
// Concurrent calls of the same origin share a single archive; an automatic
// and a manual request always get archives of their own.
func (m *Manager) Create(auto bool) (*Backup, error) {
	key := "create-manual"
	if auto {
		key = "create-auto"
	}
	v, err, shared := m.group.Do(key, func() (interface{}, error) {
		return m.create(auto)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		m.logger.Debug("Backup request coalesced", zap.Bool("auto", auto))
	}
	return v.(*Backup), nil
}

// CreateBackup is Create reduced to a success flag. Failures are logged.
func (m *Manager) CreateBackup(auto bool) bool {
	b, err := m.Create(auto)
	if err != nil {
		if errors.Is(err, ErrNothingToBackup) {
			m.logger.Info("Backup skipped, no data files yet", zap.Bool("auto", auto))
		} else {
			m.logger.Error("Backup failed", zap.Bool("auto", auto), zap.Error(err))
		}
		return false
	}
	return b != nil
}

func (m *Manager) create(auto bool) (*Backup, error) {
	if err := os.MkdirAll(m.backupDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup dir: %w", err)
	}

	prefix := manualPrefix
	if auto {
		prefix = autoPrefix
	}
	created := m.now()
	stem := prefix + created.Format(timestampLayout)

	tmp, err := os.CreateTemp(m.backupDir, stem+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp archive: %w", err)
	}
	tmpPath := tmp.Name()
	cleanupTmp := true
	defer func() {
		if cleanupTmp {
			_ = os.Remove(tmpPath)
		}
	}()

	files, size, err := m.writeArchive(tmp)
	if err != nil {
		_ = tmp.Close()
		return nil, err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return nil, fmt.Errorf("failed to sync archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to close archive: %w", err)
	}

	name, err := m.claimName(stem, tmpPath)
	if err != nil {
		return nil, err
	}
	cleanupTmp = false

	b := &Backup{
		ID:      name,
		Path:    filepath.Join(m.backupDir, name),
		Auto:    auto,
		Created: created,
		Size:    size,
	}
	m.logger.Info("Backup created",
		zap.String("backup", b.ID),
		zap.Bool("auto", auto),
		zap.Strings("files", files),
		zap.Int64("size", size))

	if _, err := m.PruneOldBackups(m.Keep()); err != nil {
		m.logger.Warn("Retention after backup failed", zap.Error(err))
	}
	return b, nil
}

// claimName renames the finished archive to the first free name for stem
func (m *Manager) claimName(stem, tmpPath string) (string, error) {
	for i := 1; ; i++ {
		name := stem + archiveExt
		if i > 1 {
			name = stem + "-" + strconv.Itoa(i) + archiveExt
		}
		target := filepath.Join(m.backupDir, name)
		if _, err := os.Lstat(target); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to stat %s: %w", target, err)
		}
		if err := os.Rename(tmpPath, target); err != nil {
			return "", fmt.Errorf("failed to finalize archive: %w", err)
		}
		return name, nil
	}
}

// writeArchive streams the data files into w while holding the data lock
func (m *Manager) writeArchive(w io.Writer) ([]string, int64, error) {
	m.lock()
	defer m.unlock()

	files, err := m.dataFiles()
	if err != nil {
		return nil, 0, err
	}

	counter := &countingWriter{w: w}
	zw := zip.NewWriter(counter)
	for _, name := range files {
		if err := addFile(zw, filepath.Join(m.dataDir, name), name); err != nil {
			_ = zw.Close()
			return nil, 0, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, 0, fmt.Errorf("failed to finish archive: %w", err)
	}
	return files, counter.n, nil
}

func addFile(zw *zip.Writer, src, name string) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", name, err)
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("failed to build header for %s: %w", name, err)
	}
	header.Name = name
	header.Method = zip.Deflate

	dst, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", name, err)
	}
	if _, err := io.Copy(dst, f); err != nil {
		return fmt.Errorf("failed to compress %s: %w", name, err)
	}
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// safeEntryName rejects entries that would land outside the data directory
func safeEntryName(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") || path.IsAbs(name) {
		return "", fmt.Errorf("%w: %q", ErrUnsafeEntry, name)
	}
	return name, nil
}

// Restore extracts an archive over the data directory, overwriting current
// files. Every entry is vetted before anything is written. Callers must
// reload the record store and roster afterwards.
func (m *Manager) Restore(id string) ([]string, error) {
	b, err := m.Lookup(id)
	if err != nil {
		return nil, err
	}

	zr, err := zip.OpenReader(b.Path)
	if err != nil {
		if zr != nil {
			_ = zr.Close()
		}
		if errors.Is(err, zip.ErrInsecurePath) {
			return nil, fmt.Errorf("%w: %s", ErrUnsafeEntry, id)
		}
		return nil, fmt.Errorf("failed to open backup %s: %w", id, err)
	}
	defer zr.Close()

	var entries []*zip.File
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if _, err := safeEntryName(f.Name); err != nil {
			return nil, err
		}
		entries = append(entries, f)
	}

	if err := os.MkdirAll(m.dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	m.lock()
	defer m.unlock()

	restored := make([]string, 0, len(entries))
	for _, f := range entries {
		if err := m.extract(f); err != nil {
			return restored, err
		}
		restored = append(restored, f.Name)
	}

	m.logger.Info("Backup restored",
		zap.String("backup", id),
		zap.Strings("files", restored))
	return restored, nil
}

// extract replaces one data file through a temp file and rename
func (m *Manager) extract(f *zip.File) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to read %s from archive: %w", f.Name, err)
	}
	defer rc.Close()

	tmp, err := os.CreateTemp(m.dataDir, f.Name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", f.Name, err)
	}
	tmpPath := tmp.Name()
	cleanupTmp := true
	defer func() {
		if cleanupTmp {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmp, rc); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to extract %s: %w", f.Name, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", f.Name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", f.Name, err)
	}
	if err := os.Rename(tmpPath, filepath.Join(m.dataDir, f.Name)); err != nil {
		return fmt.Errorf("failed to replace %s: %w", f.Name, err)
	}
	cleanupTmp = false
	return nil
}
