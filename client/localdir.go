package client

import (
	"context"
	"sync"
	"time"

	"github.com/yeti47/webcam-ftpry/ccc/logging"
	filemanagement "github.com/yeti47/webcam-ftpry/file-management"
)

// UploadRecord tracks a stored file
type UploadRecord struct {
	Timestamp  time.Time
	Size       int
	RemotePath string
	FilePath   string // Path where the file was saved
}

// LocalDirConnector is a Connector whose sessions store files in a local directory.
// It stands in for the FTP server in test mode.
type LocalDirConnector struct {
	writer  *filemanagement.LocalDirWriter
	logger  logging.Logger
	mu      sync.Mutex
	uploads []UploadRecord
}

// NewLocalDirConnector creates a connector writing below outputDir
func NewLocalDirConnector(outputDir string, logger logging.Logger) *LocalDirConnector {
	return &LocalDirConnector{
		writer: filemanagement.NewLocalDirWriter(outputDir),
		logger: logger,
	}
}

func (c *LocalDirConnector) Connect(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, newFileServerError(ConnectionFailed, "connect", c.writer.RootDir(), err)
	}
	if err := c.writer.EnsureRootDirectory(); err != nil {
		return nil, newFileServerError(ConnectionFailed, "connect", c.writer.RootDir(), err)
	}
	c.logger.Info("[MOCK] Storing uploads locally", "dir", c.writer.RootDir())
	return &localDirSession{connector: c}, nil
}

// GetUploads returns all recorded uploads
func (c *LocalDirConnector) GetUploads() []UploadRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	uploads := make([]UploadRecord, len(c.uploads))
	copy(uploads, c.uploads)
	return uploads
}

func (c *LocalDirConnector) record(upload UploadRecord) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.uploads = append(c.uploads, upload)
	return len(c.uploads)
}

type localDirSession struct {
	connector *LocalDirConnector
	closed    bool
}

func (s *localDirSession) Store(ctx context.Context, remotePath string, data []byte) error {
	if s.closed {
		return newFileServerError(UploadFailed, "store", remotePath, errSessionClosed)
	}
	if err := ctx.Err(); err != nil {
		return newFileServerError(UploadFailed, "store", remotePath, err)
	}

	filePath, err := s.connector.writer.WriteFile(remotePath, data)
	if err != nil {
		return newFileServerError(UploadFailed, "store", remotePath, err)
	}

	total := s.connector.record(UploadRecord{
		Timestamp:  time.Now(),
		Size:       len(data),
		RemotePath: remotePath,
		FilePath:   filePath,
	})
	s.connector.logger.Info("[MOCK] Upload completed", "path", remotePath, "saved_to", filePath, "bytes", len(data), "total", total)
	return nil
}

func (s *localDirSession) Close() error {
	s.closed = true
	return nil
}
