package client

import (
	"errors"
	"fmt"
)

// ErrorKind classifies file server failures
type ErrorKind int

const (
	// AuthenticationFailed means the server rejected the credentials
	AuthenticationFailed ErrorKind = iota + 1
	// ConnectionFailed covers dial, greeting and timeout errors while connecting
	ConnectionFailed
	// UploadFailed covers I/O and protocol errors during a transfer
	UploadFailed
	// RemoteDirectoryError means a missing directory could not be created
	RemoteDirectoryError
)

func (k ErrorKind) String() string {
	switch k {
	case AuthenticationFailed:
		return "authentication failed"
	case ConnectionFailed:
		return "connection failed"
	case UploadFailed:
		return "upload failed"
	case RemoteDirectoryError:
		return "remote directory error"
	default:
		return fmt.Sprintf("error kind %d", int(k))
	}
}

var errSessionClosed = errors.New("session is closed")

// FileServerError represents a failed operation against the file server
type FileServerError struct {
	Kind       ErrorKind
	Op         string
	Path       string
	InnerError error
}

func (e *FileServerError) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", e.Op, msg)
	}
	if e.Path != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Path)
	}
	if e.InnerError != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.InnerError)
	}
	return msg
}

func (e *FileServerError) Unwrap() error {
	return e.InnerError
}

func newFileServerError(kind ErrorKind, op, path string, inner error) *FileServerError {
	return &FileServerError{
		Kind:       kind,
		Op:         op,
		Path:       path,
		InnerError: inner,
	}
}

// KindOf returns the kind of a FileServerError anywhere in err's chain
func KindOf(err error) (ErrorKind, bool) {
	var fsErr *FileServerError
	if errors.As(err, &fsErr) {
		return fsErr.Kind, true
	}
	return 0, false
}

// IsKind checks whether err is a FileServerError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// IsReconnectable returns true if a fresh session may cure the error
func IsReconnectable(err error) bool {
	kind, ok := KindOf(err)
	if !ok {
		return false
	}
	switch kind {
	case ConnectionFailed, UploadFailed, RemoteDirectoryError:
		return true
	default:
		return false
	}
}
