package persistence

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"

	sqliteFileName = "angela.db"
)

// Settings selects where and how the chat snapshot is stored.
type Settings struct {
	Backend string `yaml:"backend" mapstructure:"storage-backend"`
	// Path is a directory. The file backend writes one file per key into it, the sqlite
	// backend keeps its database there.
	Path   string `yaml:"path" mapstructure:"storage-path"`
	Format string `yaml:"format" mapstructure:"snapshot-format"`
}

// DefaultStoragePath is $XDG_DATA_HOME/angela, or ~/.local/share/angela.
func DefaultStoragePath() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "angela")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".angela"
	}
	return filepath.Join(home, ".local", "share", "angela")
}

// Open builds the backend and codec described by settings.
func Open(settings Settings) (Backend, Codec, error) {
	codec, err := NewCodec(settings.Format)
	if err != nil {
		return nil, nil, err
	}

	path := settings.Path
	if path == "" {
		path = DefaultStoragePath()
	}

	switch strings.ToLower(settings.Backend) {
	case "", BackendFile:
		backend, err := NewFileBackend(path, codec.Extension())
		if err != nil {
			return nil, nil, err
		}
		return backend, codec, nil
	case BackendSQLite:
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, nil, errors.Wrapf(err, "create %s", path)
		}
		dsn, err := SQLiteDSNForFile(filepath.Join(path, sqliteFileName))
		if err != nil {
			return nil, nil, err
		}
		backend, err := NewSQLiteBackend(dsn)
		if err != nil {
			return nil, nil, err
		}
		return backend, codec, nil
	case BackendMemory:
		return NewMemoryBackend(), codec, nil
	default:
		return nil, nil, errors.Errorf("unknown storage backend %q", settings.Backend)
	}
}
