package client

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/yeti47/webcam-ftpry/ccc/logging"
)

func TestLocalDirConnector_StoreAndRecord(t *testing.T) {
	dir := t.TempDir()
	connector := NewLocalDirConnector(dir, logging.NopLogger)

	session, err := connector.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer session.Close()

	if err := session.Store(context.Background(), "/d/2021-03-04/a.jpg", []byte("abc")); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "d", "2021-03-04", "a.jpg"))
	if err != nil {
		t.Fatalf("Expected stored file: %v", err)
	}
	if string(data) != "abc" {
		t.Errorf("Expected 'abc', got %q", string(data))
	}

	uploads := connector.GetUploads()
	if len(uploads) != 1 {
		t.Fatalf("Expected 1 upload record, got %d", len(uploads))
	}
	if uploads[0].RemotePath != "/d/2021-03-04/a.jpg" || uploads[0].Size != 3 {
		t.Errorf("Unexpected upload record: %+v", uploads[0])
	}
}

func TestLocalDirConnector_ClosedSession(t *testing.T) {
	connector := NewLocalDirConnector(t.TempDir(), logging.NopLogger)

	session, err := connector.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	session.Close()

	if err := session.Store(context.Background(), "a.jpg", []byte("x")); !IsKind(err, UploadFailed) {
		t.Errorf("Expected UploadFailed, got %v", err)
	}
}

func TestLocalDirConnector_UnwritableRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(root, []byte("x"), 0644); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	_, err := NewLocalDirConnector(root, logging.NopLogger).Connect(context.Background())
	if !IsKind(err, ConnectionFailed) {
		t.Errorf("Expected ConnectionFailed, got %v", err)
	}
}
