package filemanagement

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalDirWriter_WriteFileCreatesDirectories(t *testing.T) {
	root := t.TempDir()
	writer := NewLocalDirWriter(root)

	target, err := writer.WriteFile("/some-dir/2021-01-02/2021-01-02T03-04-05Z.jpg", []byte("frame"))
	if err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	expected := filepath.Join(root, "some-dir", "2021-01-02", "2021-01-02T03-04-05Z.jpg")
	if target != expected {
		t.Errorf("Expected %s, got %s", expected, target)
	}

	data, err := os.ReadFile(expected)
	if err != nil {
		t.Fatalf("Expected file to exist: %v", err)
	}
	if string(data) != "frame" {
		t.Errorf("Expected 'frame', got %q", string(data))
	}

	// no temporary files are left behind
	entries, err := os.ReadDir(filepath.Dir(expected))
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected exactly 1 file in directory, got %d", len(entries))
	}
}

func TestLocalDirWriter_OverwritesExistingFile(t *testing.T) {
	root := t.TempDir()
	writer := NewLocalDirWriter(root)

	if _, err := writer.WriteFile("latest.jpg", []byte("old")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	target, err := writer.WriteFile("latest.jpg", []byte("new"))
	if err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	data, _ := os.ReadFile(target)
	if string(data) != "new" {
		t.Errorf("Expected 'new', got %q", string(data))
	}
}

func TestLocalDirWriter_ResolveStaysBelowRoot(t *testing.T) {
	root := t.TempDir()
	writer := NewLocalDirWriter(root)

	got, err := writer.Resolve("../../etc/passwd")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != filepath.Join(root, "etc", "passwd") {
		t.Errorf("Expected path below root, got %s", got)
	}

	if _, err := writer.Resolve("/"); !errors.Is(err, ErrLocalWriteFailed) {
		t.Errorf("Expected ErrLocalWriteFailed for a path without file name, got %v", err)
	}
}

func TestLocalDirWriter_FailureIsLocalWriteFailed(t *testing.T) {
	root := t.TempDir()

	// a regular file where a directory is needed
	blocker := filepath.Join(root, "blocked")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	writer := NewLocalDirWriter(root)
	if _, err := writer.WriteFile("blocked/frame.jpg", []byte("frame")); !errors.Is(err, ErrLocalWriteFailed) {
		t.Errorf("Expected ErrLocalWriteFailed, got %v", err)
	}
}

func TestLocalDirWriter_EnsureRootDirectory(t *testing.T) {
	root := filepath.Join(t.TempDir(), "a", "b")
	writer := NewLocalDirWriter(root)

	if err := writer.EnsureRootDirectory(); err != nil {
		t.Fatalf("EnsureRootDirectory failed: %v", err)
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		t.Errorf("Expected root directory to exist, got %v", err)
	}
	if writer.RootDir() != root {
		t.Errorf("Expected root %s, got %s", root, writer.RootDir())
	}
}
