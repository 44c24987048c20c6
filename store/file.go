package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
)

const lockRetryInterval = 25 * time.Millisecond

// FileStore is the file backend: one directory of stage files encoded
// with a configurable extension codec and optional compression.
// Writes lock a sidecar lock file per directory so concurrent
// processes do not interleave.
type FileStore struct {
	path      string
	extension string
	compress  string

	fsys   FileSystem
	logger *zap.Logger
}

// FileOption adjusts a FileStore during construction.
type FileOption func(*FileStore)

// WithFileSystem swaps the file system implementation, mainly for
// tests.
func WithFileSystem(fsys FileSystem) FileOption {
	return func(s *FileStore) { s.fsys = fsys }
}

// WithCompress sets the compression codec by its configured name.
func WithCompress(name string) FileOption {
	return func(s *FileStore) { s.compress = name }
}

// WithLogger sets the store logger.
func WithLogger(logger *zap.Logger) FileOption {
	return func(s *FileStore) { s.logger = logger }
}

// NewFileStore opens a file backend rooted at path writing files with
// the given extension codec ("json" or "yaml").
func NewFileStore(path, extension string, opts ...FileOption) (*FileStore, error) {
	if extension != "json" && extension != "yaml" {
		return nil, fmt.Errorf("file extension %q is not supported", extension)
	}
	s := &FileStore{
		path:      path,
		extension: extension,
		fsys:      OSFileSystem{},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	codec, err := NormalizeCodec(s.compress)
	if err != nil {
		return nil, err
	}
	s.compress = codec
	if err := s.fsys.MkdirAll(s.path, 0o755); err != nil {
		return nil, fmt.Errorf("create store path %s: %w", s.path, err)
	}
	return s, nil
}

// Path returns the backend root directory.
func (s *FileStore) Path() string { return s.path }

// Join returns the absolute path of a stage file name.
func (s *FileStore) Join(name string) string {
	return filepath.Join(s.path, name)
}

// Exists reports whether a stage file exists.
func (s *FileStore) Exists(name string) bool {
	_, err := s.fsys.Stat(s.Join(name))
	return err == nil
}

// Files lists the stage file names in the backend directory, skipping
// sub-directories, lock files and any name carrying an excluded
// suffix.
func (s *FileStore) Files(excluded ...string) ([]string, error) {
	entries, err := s.fsys.ReadDir(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list store path %s: %w", s.path, err)
	}
	names := make([]string, 0, len(entries))
entry:
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), ".lock") {
			continue
		}
		for _, suffix := range excluded {
			if strings.HasSuffix(e.Name(), suffix) {
				continue entry
			}
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// Remove deletes one stage file.
func (s *FileStore) Remove(name string) error {
	if err := s.fsys.Remove(s.Join(name)); err != nil {
		return fmt.Errorf("remove stage file %s: %w", name, err)
	}
	return nil
}

// Move copies a stage file to a destination path, creating the
// destination directory.
func (s *FileStore) Move(name, destination string) error {
	if err := s.fsys.Copy(s.Join(name), destination); err != nil {
		return fmt.Errorf("move stage file %s: %w", name, err)
	}
	return nil
}

// LoadStage implements Adapter. A missing file returns an empty
// mapping.
func (s *FileStore) LoadStage(name string) (map[string]any, error) {
	raw, err := s.fsys.ReadFile(s.Join(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("read stage file %s: %w", name, err)
	}
	raw, err = Decompress(s.compress, raw)
	if err != nil {
		return nil, fmt.Errorf("read stage file %s: %w", name, err)
	}
	data := map[string]any{}
	if err := Decode(s.extension, raw, &data); err != nil {
		return nil, fmt.Errorf("decode stage file %s: %w", name, err)
	}
	return data, nil
}

// SaveStage implements Adapter.
func (s *FileStore) SaveStage(name string, data map[string]any, merge bool) error {
	unlock, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock()

	if merge {
		current, err := s.LoadStage(name)
		if err != nil {
			return err
		}
		data = mergePayload(current, data)
	}
	raw, err := Encode(s.extension, data)
	if err != nil {
		return fmt.Errorf("encode stage file %s: %w", name, err)
	}
	raw, err = Compress(s.compress, raw)
	if err != nil {
		return fmt.Errorf("encode stage file %s: %w", name, err)
	}
	if err := s.fsys.WriteFile(s.Join(name), raw, 0o644); err != nil {
		return fmt.Errorf("write stage file %s: %w", name, err)
	}
	s.logger.Debug("stage file written",
		zap.String("name", name),
		zap.Int("bytes", len(raw)),
	)
	return nil
}

// RemoveStage implements Adapter.
func (s *FileStore) RemoveStage(name, dataName string) error {
	unlock, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock()

	data, err := s.LoadStage(name)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	delete(data, dataName)
	raw, err := Encode(s.extension, data)
	if err != nil {
		return fmt.Errorf("encode stage file %s: %w", name, err)
	}
	raw, err = Compress(s.compress, raw)
	if err != nil {
		return fmt.Errorf("encode stage file %s: %w", name, err)
	}
	if err := s.fsys.WriteFile(s.Join(name), raw, 0o644); err != nil {
		return fmt.Errorf("write stage file %s: %w", name, err)
	}
	return nil
}

// Create implements Adapter: initializes a stage file when absent.
func (s *FileStore) Create(name string, initial map[string]any) error {
	if s.Exists(name) {
		return nil
	}
	if initial == nil {
		initial = map[string]any{}
	}
	return s.SaveStage(name, initial, false)
}

// lock acquires the directory write lock and returns its release
// function.
func (s *FileStore) lock() (func(), error) {
	lock := flock.New(filepath.Join(s.path, ".store.lock"))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ok, err := lock.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		return nil, fmt.Errorf("lock store path %s: %w", s.path, err)
	}
	if !ok {
		return nil, fmt.Errorf("lock store path %s: timed out", s.path)
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			s.logger.Warn("store unlock failed", zap.Error(err))
		}
	}, nil
}
