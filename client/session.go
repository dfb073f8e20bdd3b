package client

import (
	"context"
	"net"
	"strconv"
	"time"
)

// DefaultTimeout matches the idle timeout of common FTP servers
const DefaultTimeout = 60 * time.Second

// FTPSettings holds what is needed to reach the file server
type FTPSettings struct {
	Hostname string
	Port     int
	User     string
	Password string
	Timeout  time.Duration // dial timeout and per read/write deadline
}

// Addr returns the host:port of the control connection
func (s FTPSettings) Addr() string {
	return net.JoinHostPort(s.Hostname, strconv.Itoa(s.Port))
}

// Session is a live connection to the file server.
// A session is owned by a single goroutine.
type Session interface {
	// Store writes data to remotePath, creating missing parent directories
	Store(ctx context.Context, remotePath string, data []byte) error
	// Close ends the session; the session can't be used afterwards
	Close() error
}

// Connector establishes new sessions
type Connector interface {
	Connect(ctx context.Context) (Session, error)
}
