package target

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// FileTarget stores an output reference on the local filesystem. Writes go
// through a temporary file in the same directory followed by a rename, so a
// crashed writer never leaves a half-written output behind.
type FileTarget struct {
	path string
}

func NewFileTarget(path string) *FileTarget {
	return &FileTarget{path: path}
}

func (t *FileTarget) Exists() (bool, error) {
	_, err := os.Stat(t.path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.Wrapf(err, "stat %s", t.path)
}

func (t *FileTarget) Load() ([]byte, error) {
	data, err := os.ReadFile(t.path)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", t.path)
	}
	return data, nil
}

func (t *FileTarget) Dump(data []byte) error {
	dir := filepath.Dir(t.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create directory %s", dir)
	}
	tmp, err := os.CreateTemp(dir, fmt.Sprintf(".%s.tmp-*", filepath.Base(t.path)))
	if err != nil {
		return errors.Wrapf(err, "create temporary file for %s", t.path)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrapf(err, "write %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "close %s", tmpName)
	}
	if err := os.Rename(tmpName, t.path); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "rename %s to %s", tmpName, t.path)
	}
	return nil
}

func (t *FileTarget) Remove() error {
	if err := os.Remove(t.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "remove %s", t.path)
	}
	return nil
}

func (t *FileTarget) Path() string {
	return t.path
}

func (t *FileTarget) LastModificationTime() (time.Time, error) {
	info, err := os.Stat(t.path)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "stat %s", t.path)
	}
	return info.ModTime(), nil
}
