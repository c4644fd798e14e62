package storage

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	domainerrors "github.com/reglet-dev/reglet-oracle/domain/errors"
)

type fileStoreConfig struct {
	path     string
	dirPerm  os.FileMode
	filePerm os.FileMode
}

func defaultFileStoreConfig() fileStoreConfig {
	return fileStoreConfig{
		path:     filepath.Join(os.TempDir(), "reglet-oracle", "storage.yaml"),
		dirPerm:  0o755,
		filePerm: 0o600,
	}
}

// FileStoreOption configures a FileStore instance.
type FileStoreOption func(*fileStoreConfig)

// WithPath sets the path to the storage file.
func WithPath(path string) FileStoreOption {
	return func(c *fileStoreConfig) {
		c.path = path
	}
}

// WithFilePermissions sets the permissions of the storage file (default 0o600).
func WithFilePermissions(perm os.FileMode) FileStoreOption {
	return func(c *fileStoreConfig) {
		c.filePerm = perm
	}
}

// FileStore persists host storage in a YAML file mapping "0x"-prefixed hex
// keys to hex values. Every write rewrites the whole file.
type FileStore struct {
	config fileStoreConfig
	mu     sync.Mutex
}

// NewFileStore creates a new FileStore with the given options.
func NewFileStore(opts ...FileStoreOption) *FileStore {
	cfg := defaultFileStoreConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &FileStore{config: cfg}
}

// Path returns the path to the backing file.
func (s *FileStore) Path() string {
	return s.config.path
}

// ReadStorage implements ports.StorageReader.
func (s *FileStore) ReadStorage(_ context.Context, key []byte) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return nil, false, err
	}
	v, ok := entries[encodeHex(key)]
	if !ok {
		return nil, false, nil
	}
	raw, _ := decodeHex(v)
	return raw, true, nil
}

// WriteStorage implements ports.StorageWriter.
func (s *FileStore) WriteStorage(_ context.Context, key []byte, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	entries[encodeHex(key)] = encodeHex(value)

	data, err := yaml.Marshal(entries)
	if err != nil {
		return s.fail(key, fmt.Errorf("marshal: %w", err))
	}
	if err := os.MkdirAll(filepath.Dir(s.config.path), s.config.dirPerm); err != nil {
		return s.fail(key, fmt.Errorf("create directory: %w", err))
	}
	if err := os.WriteFile(s.config.path, data, s.config.filePerm); err != nil {
		return s.fail(key, err)
	}
	return nil
}

// load reads the whole file. A missing file is an empty store; any entry that
// is not 0x-prefixed hex on both sides fails the whole load.
func (s *FileStore) load() (map[string]string, error) {
	entries := make(map[string]string)
	data, err := os.ReadFile(s.config.path)
	if os.IsNotExist(err) {
		return entries, nil
	}
	if err != nil {
		return nil, &domainerrors.StorageError{Backend: "file", Key: s.config.path, Err: err}
	}
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, &domainerrors.StorageError{Backend: "file", Key: s.config.path, Err: fmt.Errorf("parse: %w", err)}
	}
	for k, v := range entries {
		if _, err := decodeHex(k); err != nil {
			return nil, &domainerrors.StorageError{Backend: "file", Key: s.config.path, Err: fmt.Errorf("corrupt key %q: %w", k, err)}
		}
		if _, err := decodeHex(v); err != nil {
			return nil, &domainerrors.StorageError{Backend: "file", Key: s.config.path, Err: fmt.Errorf("corrupt value for %s: %w", k, err)}
		}
	}
	return entries, nil
}

func (s *FileStore) fail(key []byte, err error) error {
	return &domainerrors.StorageError{Backend: "file", Key: encodeHex(key), Err: err}
}

func encodeHex(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

func decodeHex(s string) ([]byte, error) {
	digits, ok := strings.CutPrefix(s, "0x")
	if !ok {
		return nil, fmt.Errorf("missing 0x prefix")
	}
	return hex.DecodeString(digits)
}
