package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cwbudde/algo-axis/axiserr"
	"github.com/cwbudde/algo-axis/feature"
)

const (
	entryExt = ".axf"
	tempExt  = ".tmp"

	opGet    = "cache.get"
	opPut    = "cache.put"
	opRemove = "cache.remove"
	opClean  = "cache.clean"
	opStats  = "cache.stats"
)

// ErrMiss reports that no usable entry exists for a fingerprint. Corrupt or
// stale entries are returned as cache errors that also match ErrMiss.
var ErrMiss = errors.New("cache miss")

var (
	errBadFingerprint = errors.New("invalid fingerprint")
	errParamsMismatch = errors.New("entry built with different parameters")
)

// Entry is a cached analysis result.
type Entry struct {
	Set  *feature.Set
	Path feature.Path
}

// Stats summarizes the contents of a cache directory.
type Stats struct {
	Entries   int
	Bytes     int64
	TempFiles int
}

// Option configures a [Store].
type Option func(*Store)

// WithLogger sets the logger for hit, miss and write events.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Store is a directory-backed feature cache. A Store holds no mutable state
// and is safe for concurrent use, including by several processes sharing
// the same directory.
type Store struct {
	dir    string
	logger *slog.Logger
}

// New returns a store rooted at dir. An empty dir yields a disabled store
// whose Get always misses and whose Put does nothing.
func New(dir string, opts ...Option) *Store {
	s := &Store{dir: dir, logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Enabled reports whether the store reads and writes entries.
func (s *Store) Enabled() bool { return s.dir != "" }

// Dir returns the cache root directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) entryDir(fp feature.Fingerprint) string {
	return filepath.Join(s.dir, string(fp[:2]))
}

func (s *Store) entryPath(fp feature.Fingerprint) string {
	return filepath.Join(s.entryDir(fp), string(fp)+entryExt)
}

// Get loads the entry for fp. It returns ErrMiss when no entry exists, and a
// cache error matching ErrMiss when the entry is unreadable, corrupt or was
// built with parameters other than paramsID.
func (s *Store) Get(fp feature.Fingerprint, paramsID string) (Entry, error) {
	if !s.Enabled() {
		return Entry{}, ErrMiss
	}
	if !fp.Valid() {
		return Entry{}, axiserr.Cache(opGet, fmt.Errorf("%w: %w %q", ErrMiss, errBadFingerprint, fp))
	}

	data, err := os.ReadFile(s.entryPath(fp))
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Debug("cache miss", "fingerprint", fp)
		return Entry{}, ErrMiss
	}
	if err != nil {
		return Entry{}, axiserr.Cache(opGet, fmt.Errorf("%w: %w", ErrMiss, err))
	}

	entry, err := decode(data)
	if err != nil {
		s.logger.Warn("discarding invalid cache entry", "fingerprint", fp, "error", err)
		return Entry{}, axiserr.Cache(opGet, fmt.Errorf("%w: %w", ErrMiss, err))
	}
	if entry.Set.ParamsID != paramsID {
		s.logger.Debug("cache entry parameters differ", "fingerprint", fp)
		return Entry{}, axiserr.Cache(opGet, fmt.Errorf("%w: %w", ErrMiss, errParamsMismatch))
	}

	s.logger.Debug("cache hit", "fingerprint", fp, "frames", len(entry.Set.Frames))
	return entry, nil
}

// Put stores set and path under fp. The entry is written to a temp file in
// the target directory, synced and renamed into place; on any failure, or
// if ctx is cancelled before the rename, the temp file is removed and the
// previous entry is left untouched.
func (s *Store) Put(ctx context.Context, fp feature.Fingerprint, set *feature.Set, path feature.Path) error {
	if !s.Enabled() {
		return nil
	}
	if !fp.Valid() {
		return axiserr.Cache(opPut, fmt.Errorf("%w %q", errBadFingerprint, fp))
	}
	if err := set.Validate(); err != nil {
		return axiserr.Cache(opPut, err)
	}
	if err := path.ValidateFor(set); err != nil {
		return axiserr.Cache(opPut, err)
	}

	data, err := encode(set, path)
	if err != nil {
		return axiserr.Cache(opPut, err)
	}

	dir := s.entryDir(fp)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return axiserr.Cache(opPut, err)
	}

	tmp := filepath.Join(dir, "."+string(fp)+"."+uuid.NewString()+tempExt)
	if err := writeSynced(tmp, data); err != nil {
		_ = os.Remove(tmp)
		return axiserr.Cache(opPut, err)
	}

	if err := ctx.Err(); err != nil {
		_ = os.Remove(tmp)
		return axiserr.Cache(opPut, err)
	}

	if err := os.Rename(tmp, s.entryPath(fp)); err != nil {
		_ = os.Remove(tmp)
		return axiserr.Cache(opPut, err)
	}

	s.logger.Debug("cache entry written", "fingerprint", fp, "bytes", len(data))
	return nil
}

func writeSynced(name string, data []byte) error {
	f, err := os.OpenFile(name, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}

	return f.Close()
}

// Remove deletes the entry for fp. Removing a missing entry is not an
// error.
func (s *Store) Remove(fp feature.Fingerprint) error {
	if !s.Enabled() {
		return nil
	}
	if !fp.Valid() {
		return axiserr.Cache(opRemove, fmt.Errorf("%w %q", errBadFingerprint, fp))
	}

	err := os.Remove(s.entryPath(fp))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return axiserr.Cache(opRemove, err)
	}
	return nil
}

// CleanTemp removes temp files at least maxAge old, left behind by writers
// that were killed between create and rename. It returns the number of
// files removed.
func (s *Store) CleanTemp(maxAge time.Duration) (int, error) {
	if !s.Enabled() {
		return 0, nil
	}

	now := time.Now()
	removed := 0

	err := s.walk(func(p string, d fs.DirEntry) error {
		if !isTemp(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return err
		}
		if now.Sub(info.ModTime()) < maxAge {
			return nil
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		removed++
		return nil
	})
	if err != nil {
		return removed, axiserr.Cache(opClean, err)
	}

	if removed > 0 {
		s.logger.Info("removed stale cache temp files", "count", removed)
	}
	return removed, nil
}

// Stats counts entries, their total size and pending temp files.
func (s *Store) Stats() (Stats, error) {
	var st Stats
	if !s.Enabled() {
		return st, nil
	}

	err := s.walk(func(_ string, d fs.DirEntry) error {
		name := d.Name()
		switch {
		case isTemp(name):
			st.TempFiles++
		case strings.HasSuffix(name, entryExt):
			info, err := d.Info()
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			if err != nil {
				return err
			}
			st.Entries++
			st.Bytes += info.Size()
		}
		return nil
	})
	if err != nil {
		return st, axiserr.Cache(opStats, err)
	}

	return st, nil
}

// walk visits every regular file in the cache tree. A missing root is
// treated as empty.
func (s *Store) walk(fn func(path string, d fs.DirEntry) error) error {
	err := filepath.WalkDir(s.dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return fn(p, d)
	})
	return err
}

func isTemp(name string) bool {
	return strings.HasPrefix(name, ".") && strings.HasSuffix(name, tempExt)
}
