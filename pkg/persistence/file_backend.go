package persistence

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// FileBackend stores each key as one file in a directory. Writes go to a temporary sibling
// and are renamed over the target, so a reader never sees a half written snapshot.
type FileBackend struct {
	dir       string
	extension string
}

var _ Backend = (*FileBackend)(nil)

func NewFileBackend(dir string, extension string) (*FileBackend, error) {
	if dir == "" {
		return nil, errors.New("file backend: empty directory")
	}
	return &FileBackend{dir: dir, extension: extension}, nil
}

// Path returns the file a key is stored in.
func (f *FileBackend) Path(key string) string {
	name := key
	if f.extension != "" {
		name += "." + f.extension
	}
	return filepath.Join(f.dir, name)
}

func (f *FileBackend) Read(_ context.Context, key string) ([]byte, error) {
	b, err := os.ReadFile(f.Path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrKeyNotFound
		}
		return nil, errors.Wrapf(err, "read %s", f.Path(key))
	}
	return b, nil
}

func (f *FileBackend) Write(_ context.Context, key string, value []byte) error {
	path := f.Path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create %s", filepath.Dir(path))
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, value, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", tmpPath)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return errors.Wrapf(err, "rename %s", tmpPath)
	}
	return nil
}

func (f *FileBackend) Delete(_ context.Context, key string) error {
	err := os.Remove(f.Path(key))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "remove %s", f.Path(key))
	}
	return nil
}

func (f *FileBackend) Close() error {
	return nil
}
