package filesystem

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

var (
	ErrFileNotFound = errors.New("filesystem: file not found")
	ErrInvalidPath  = errors.New("filesystem: invalid path")
)

// Filesystem is the read-only view handlers use to load page content.
type Filesystem interface {
	ReadFile(name string) ([]byte, error)
	FileExists(name string) (bool, error)
}

type localFileSystem struct {
	root string
}

// NewLocalFileSystem serves files below root. Names are slash separated and
// may not leave root.
func NewLocalFileSystem(root string) Filesystem {
	return &localFileSystem{root: root}
}

func (filesystem *localFileSystem) resolve(name string) (string, error) {
	if name == "" || !filepath.IsLocal(filepath.FromSlash(name)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, name)
	}

	return filepath.Join(filesystem.root, filepath.FromSlash(name)), nil
}

func (filesystem *localFileSystem) FileExists(name string) (bool, error) {
	path, err := filesystem.resolve(name)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}

		return false, err
	}

	return !info.IsDir(), nil
}

func (filesystem *localFileSystem) ReadFile(name string) ([]byte, error) {
	path, err := filesystem.resolve(name)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, name)
		}

		return nil, err
	}

	return content, nil
}
