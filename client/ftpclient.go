package client

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/textproto"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/yeti47/webcam-ftpry/ccc/logging"
)

// ftpConnector implements Connector for FTP servers
type ftpConnector struct {
	settings FTPSettings
	logger   logging.Logger
}

// NewFTPConnector creates a Connector that logs in to an FTP server with user and password
func NewFTPConnector(settings FTPSettings, logger logging.Logger) Connector {
	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}
	return &ftpConnector{
		settings: settings,
		logger:   logger,
	}
}

// Connect dials the server and logs in
func (c *ftpConnector) Connect(ctx context.Context) (Session, error) {
	addr := c.settings.Addr()

	if err := ctx.Err(); err != nil {
		return nil, newFileServerError(ConnectionFailed, "connect", addr, err)
	}

	s := &ftpSession{
		settings:  c.settings,
		logger:    c.logger,
		knownDirs: make(map[string]bool),
		opCtx:     ctx,
	}

	stop := context.AfterFunc(ctx, s.abort)
	defer stop()

	// s.dial applies the timeout; the library ignores DialWithTimeout once a dial func is set
	conn, err := ftp.Dial(addr, ftp.DialWithDialFunc(s.dial))
	if err != nil {
		s.abort()
		return nil, newFileServerError(ConnectionFailed, "connect", addr, err)
	}

	if err := conn.Login(c.settings.User, c.settings.Password); err != nil {
		conn.Quit()
		kind := ConnectionFailed
		var protoErr *textproto.Error
		if errors.As(err, &protoErr) && protoErr.Code == ftp.StatusNotLoggedIn {
			kind = AuthenticationFailed
		}
		return nil, newFileServerError(kind, "login", addr, err)
	}

	s.conn = conn
	s.home = "/"
	if dir, err := conn.CurrentDir(); err == nil && dir != "" {
		s.home = dir
	}

	c.logger.Info("Connected to FTP server", "address", addr, "user", c.settings.User)
	return s, nil
}

type ftpSession struct {
	settings FTPSettings
	logger   logging.Logger
	conn     *ftp.ServerConn
	home     string

	// directories known to exist on the server during this session
	knownDirs map[string]bool

	// context of the running operation, used for dialing data connections
	opCtx context.Context

	controlMu sync.Mutex
	control   net.Conn
}

// dial opens control and data connections with idle deadlines applied to every read and write
func (s *ftpSession) dial(network, address string) (net.Conn, error) {
	ctx := s.opCtx
	if ctx == nil {
		ctx = context.Background()
	}

	dialer := net.Dialer{Timeout: s.settings.Timeout}
	conn, err := dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, err
	}

	dc := &deadlineConn{Conn: conn, timeout: s.settings.Timeout}

	s.controlMu.Lock()
	if s.control == nil {
		// the first connection of a session is the control connection
		s.control = dc
	}
	s.controlMu.Unlock()

	return dc, nil
}

// abort tears down the control connection, failing any command in flight
func (s *ftpSession) abort() {
	s.controlMu.Lock()
	defer s.controlMu.Unlock()

	if s.control != nil {
		s.control.Close()
	}
}

func (s *ftpSession) Store(ctx context.Context, remotePath string, data []byte) error {
	if s.conn == nil {
		return newFileServerError(UploadFailed, "store", remotePath, errSessionClosed)
	}

	s.opCtx = ctx
	stop := context.AfterFunc(ctx, s.abort)
	defer stop()

	if err := s.ensureDir(path.Dir(remotePath)); err != nil {
		return err
	}

	start := time.Now()
	if err := s.conn.Stor(remotePath, bytes.NewReader(data)); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = errors.Join(err, ctxErr)
		}
		return newFileServerError(UploadFailed, "store", remotePath, err)
	}

	s.logger.Debug("Stored file", "path", remotePath, "bytes", len(data), "duration", time.Since(start))
	return nil
}

// ensureDir creates dir and all of its parents, one MKD per path component.
// A failed MKD is accepted when the directory exists anyway.
func (s *ftpSession) ensureDir(dir string) error {
	if dir == "" || dir == "." || dir == "/" || s.knownDirs[dir] {
		return nil
	}

	current := ""
	if strings.HasPrefix(dir, "/") {
		current = "/"
	}

	for _, part := range strings.Split(strings.Trim(dir, "/"), "/") {
		if part == "" || part == "." {
			continue
		}
		current = path.Join(current, part)
		if s.knownDirs[current] {
			continue
		}

		if err := s.conn.MakeDir(current); err != nil {
			if !s.dirExists(current) {
				return newFileServerError(RemoteDirectoryError, "mkdir", current, err)
			}
		} else {
			s.logger.Info("Created remote directory", "path", current)
		}
		s.knownDirs[current] = true
	}

	return nil
}

// dirExists probes a directory with CWD and returns to the login directory
func (s *ftpSession) dirExists(dir string) bool {
	if err := s.conn.ChangeDir(dir); err != nil {
		return false
	}
	if err := s.conn.ChangeDir(s.home); err != nil {
		s.logger.Warn("Failed to return to login directory", "path", s.home, "error", err)
	}
	return true
}

func (s *ftpSession) Close() error {
	if s.conn == nil {
		return nil
	}

	err := s.conn.Quit()
	s.conn = nil
	s.knownDirs = make(map[string]bool)
	if err != nil {
		return newFileServerError(ConnectionFailed, "quit", s.settings.Addr(), err)
	}
	return nil
}

// deadlineConn pushes the deadline forward before every read and write, so a silent peer
// fails the operation after timeout instead of blocking forever
type deadlineConn struct {
	net.Conn
	timeout time.Duration
}

func (c *deadlineConn) Read(b []byte) (int, error) {
	if err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Read(b)
}

func (c *deadlineConn) Write(b []byte) (int, error) {
	if err := c.Conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Write(b)
}
