package client

import (
	"crypto/tls"
	"errors"
	"net"
	"testing"

	ftpserver "github.com/fclairamb/ftpserverlib"
	"github.com/spf13/afero"
)

const (
	testUser     = "some-user"
	testPassword = "some-password"
)

// testDriver serves an in-memory filesystem to a single user
type testDriver struct {
	fs       afero.Fs
	settings *ftpserver.Settings
}

func (d *testDriver) GetSettings() (*ftpserver.Settings, error) {
	return d.settings, nil
}

func (d *testDriver) ClientConnected(cc ftpserver.ClientContext) (string, error) {
	return "webcam-ftpry test server", nil
}

func (d *testDriver) ClientDisconnected(cc ftpserver.ClientContext) {}

func (d *testDriver) AuthUser(cc ftpserver.ClientContext, user, pass string) (ftpserver.ClientDriver, error) {
	if user != testUser || pass != testPassword {
		return nil, errors.New("invalid credentials")
	}
	return d.fs, nil
}

func (d *testDriver) GetTLSConfig() (*tls.Config, error) {
	return nil, errors.New("TLS is not supported")
}

// startTestServer runs an FTP server on a free local port until the test ends
func startTestServer(t *testing.T) (afero.Fs, FTPSettings) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}

	fs := afero.NewMemMapFs()
	driver := &testDriver{
		fs: fs,
		settings: &ftpserver.Settings{
			Listener:    listener,
			IdleTimeout: 60,
		},
	}

	server := ftpserver.NewFtpServer(driver)
	if err := server.Listen(); err != nil {
		t.Fatalf("Failed to start FTP server: %v", err)
	}
	go server.Serve()
	t.Cleanup(func() { server.Stop() })

	addr := listener.Addr().(*net.TCPAddr)

	return fs, FTPSettings{
		Hostname: addr.IP.String(),
		Port:     addr.Port,
		User:     testUser,
		Password: testPassword,
	}
}
