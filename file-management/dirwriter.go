package filemanagement

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sync"
)

// ErrLocalWriteFailed wraps every failure to persist a frame on the local filesystem
var ErrLocalWriteFailed = errors.New("local write failed")

// DirWriter stores files below a root directory using slash separated relative paths
type DirWriter interface {
	// WriteFile stores data at relPath below the root and returns the local file path
	WriteFile(relPath string, data []byte) (string, error)

	// EnsureRootDirectory creates the root directory if it doesn't exist
	EnsureRootDirectory() error
}

// LocalDirWriter implements DirWriter for the local filesystem
type LocalDirWriter struct {
	rootDir string
	mu      sync.Mutex
}

// NewLocalDirWriter creates a writer rooted at rootDir
func NewLocalDirWriter(rootDir string) *LocalDirWriter {
	return &LocalDirWriter{
		rootDir: rootDir,
	}
}

// RootDir returns the directory files are written below
func (w *LocalDirWriter) RootDir() string {
	return w.rootDir
}

// Resolve maps a slash separated path to a local path below the root.
// Leading slashes and ".." segments can't escape the root.
func (w *LocalDirWriter) Resolve(relPath string) (string, error) {
	clean := path.Clean("/" + relPath)
	if clean == "/" {
		return "", fmt.Errorf("%w: path %q has no file name", ErrLocalWriteFailed, relPath)
	}
	return filepath.Join(w.rootDir, filepath.FromSlash(clean[1:])), nil
}

// EnsureRootDirectory creates the root directory if it doesn't exist
func (w *LocalDirWriter) EnsureRootDirectory() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(w.rootDir, 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrLocalWriteFailed, err)
	}
	return nil
}

// WriteFile writes through a temporary file so readers never see a partial image
func (w *LocalDirWriter) WriteFile(relPath string, data []byte) (string, error) {
	target, err := w.Resolve(relPath)
	if err != nil {
		return "", err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("%w: failed to create directory %s: %v", ErrLocalWriteFailed, dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("%w: failed to create temporary file in %s: %v", ErrLocalWriteFailed, dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("%w: failed to write %s: %v", ErrLocalWriteFailed, target, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("%w: failed to close %s: %v", ErrLocalWriteFailed, target, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("%w: failed to set permissions on %s: %v", ErrLocalWriteFailed, target, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("%w: failed to move %s into place: %v", ErrLocalWriteFailed, target, err)
	}

	return target, nil
}
