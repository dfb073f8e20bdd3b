package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yeti47/webcam-ftpry/capturing"
	"github.com/yeti47/webcam-ftpry/ccc/logging"
	"github.com/yeti47/webcam-ftpry/client"
	"github.com/yeti47/webcam-ftpry/common"
	filemanagement "github.com/yeti47/webcam-ftpry/file-management"
	"github.com/yeti47/webcam-ftpry/pathformat"
	postprocessing "github.com/yeti47/webcam-ftpry/post-processing"
	"gocv.io/x/gocv"
)

// State is the lifecycle state of the capture loop
type State int

const (
	StateStarting State = iota
	StateRunning
	StateReconnecting
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateReconnecting:
		return "reconnecting"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var allowedTransitions = map[State][]State{
	StateStarting:     {StateRunning, StateStopping},
	StateRunning:      {StateReconnecting, StateStopping},
	StateReconnecting: {StateRunning},
	StateStopping:     {StateStopped},
}

var errAlreadyStarted = errors.New("capture client can only run once")

// CaptureSettings are the loop parameters that don't change while it runs
type CaptureSettings struct {
	DeviceID    int
	Period      time.Duration
	Angle       float64 // counter-clockwise degrees, 0 disables rotation
	Timeout     time.Duration
	JPEGQuality int
}

// Stats counts what happened to the frames of a run
type Stats struct {
	Ticks           int
	Captured        int
	Uploaded        int
	Dropped         int
	CaptureFailures int
	Reconnects      int
}

// CaptureClient captures, rotates and uploads one frame per period
type CaptureClient struct {
	// Core components
	openCamera   capturing.Opener
	connector    client.Connector
	formatter    *pathformat.Formatter
	operationDir filemanagement.DirWriter // nil when no local copy is kept
	logger       logging.Logger

	// Configuration
	settings CaptureSettings
	ext      gocv.FileExt
	now      func() time.Time

	// Owned by the loop goroutine
	camera  capturing.Camera
	session client.Session

	// State management
	mu    sync.RWMutex
	state State
	stats Stats
}

// NewCaptureClient creates a new capture client with injected dependencies.
// operationDir may be nil.
func NewCaptureClient(
	openCamera capturing.Opener,
	connector client.Connector,
	formatter *pathformat.Formatter,
	operationDir filemanagement.DirWriter,
	settings CaptureSettings,
	logger logging.Logger,
) *CaptureClient {
	if settings.Timeout <= 0 {
		settings.Timeout = client.DefaultTimeout
	}
	return &CaptureClient{
		openCamera:   openCamera,
		connector:    connector,
		formatter:    formatter,
		operationDir: operationDir,
		logger:       logger,
		settings:     settings,
		ext:          common.ImageFileExt(formatter.Template()),
		now:          time.Now,
		state:        StateStarting,
	}
}

// State returns the current lifecycle state
func (c *CaptureClient) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Stats returns a snapshot of the frame counters
func (c *CaptureClient) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

func (c *CaptureClient) count(update func(*Stats)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	update(&c.stats)
}

// transition moves the loop to the next state. Illegal transitions are bugs and panic.
func (c *CaptureClient) transition(to State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, allowed := range allowedTransitions[c.state] {
		if allowed == to {
			c.logger.Debug("Capture client state changed", "from", c.state.String(), "to", to.String())
			c.state = to
			return
		}
	}
	panic(fmt.Sprintf("illegal capture client state transition %s -> %s", c.state, to))
}

// Run opens the camera and the file server session and captures until ctx is cancelled.
// Startup failures are returned; failures of single ticks are logged and never end the loop.
func (c *CaptureClient) Run(ctx context.Context) error {
	if c.State() != StateStarting {
		return errAlreadyStarted
	}

	if err := c.start(ctx); err != nil {
		c.shutdown()
		return err
	}

	c.transition(StateRunning)
	c.logger.Info("Capture client started",
		"period", c.settings.Period,
		"angle", c.settings.Angle,
		"template", c.formatter.Template(),
		"format", common.ImageMimeType(c.ext),
	)

	for ctx.Err() == nil {
		start := time.Now()
		c.tick()

		timer := time.NewTimer(nextDelay(c.settings.Period, time.Since(start)))
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
		}
	}

	c.logger.Info("Shutdown requested, stopping capture client")
	c.shutdown()
	return nil
}

// nextDelay returns how long to wait before the next tick. A tick that overran its period
// is followed immediately, missed ticks are not caught up.
func nextDelay(period, elapsed time.Duration) time.Duration {
	if elapsed >= period {
		return 0
	}
	return period - elapsed
}

func (c *CaptureClient) start(ctx context.Context) error {
	camera, err := c.openCamera(c.settings.DeviceID)
	if err != nil {
		return fmt.Errorf("failed to open camera: %w", err)
	}
	c.camera = camera

	connectCtx, cancel := context.WithTimeout(ctx, c.settings.Timeout)
	defer cancel()

	session, err := c.connector.Connect(connectCtx)
	if err != nil {
		return fmt.Errorf("failed to connect to file server: %w", err)
	}
	c.session = session

	if c.operationDir != nil {
		if err := c.operationDir.EnsureRootDirectory(); err != nil {
			c.logger.Warn("Failed to create operation directory", "error", err)
		}
	}

	return nil
}

// shutdown closes the session, then the camera
func (c *CaptureClient) shutdown() {
	c.transition(StateStopping)

	if c.session != nil {
		if err := c.session.Close(); err != nil {
			c.logger.Warn("Failed to close file server session", "error", err)
		}
		c.session = nil
	}
	if c.camera != nil {
		if err := c.camera.Close(); err != nil {
			c.logger.Warn("Failed to close camera", "error", err)
		}
		c.camera = nil
	}

	c.transition(StateStopped)

	stats := c.Stats()
	c.logger.Info("Capture client stopped",
		"ticks", stats.Ticks,
		"captured", stats.Captured,
		"uploaded", stats.Uploaded,
		"dropped", stats.Dropped,
		"capture_failures", stats.CaptureFailures,
		"reconnects", stats.Reconnects,
	)
}

// tick captures one frame and delivers it. Network work is bounded by the timeout and is
// not cut short by shutdown.
func (c *CaptureClient) tick() {
	timestamp := c.now().UTC()
	logArgs := []any{"tick", uuid.NewString(), "timestamp", timestamp.Format(time.RFC3339)}
	c.count(func(s *Stats) { s.Ticks++ })

	ctx, cancel := context.WithTimeout(context.Background(), c.settings.Timeout)
	defer cancel()

	frame, err := c.camera.Capture()
	if err != nil {
		c.count(func(s *Stats) { s.CaptureFailures++ })
		c.logger.Warn("Skipping tick", append(logArgs, "step", "capture", "error", err)...)
		return
	}
	defer frame.Close()
	c.count(func(s *Stats) { s.Captured++ })

	img := frame
	if c.settings.Angle != 0 {
		rotated := postprocessing.Rotate(frame, c.settings.Angle)
		defer rotated.Close()
		img = rotated
	}

	data, err := postprocessing.Encode(img, c.ext, c.settings.JPEGQuality)
	if err != nil {
		c.count(func(s *Stats) { s.Dropped++ })
		c.logger.Error("Skipping tick", append(logArgs, "step", "encode", "error", err)...)
		return
	}

	remotePath := c.formatter.Format(timestamp)
	logArgs = append(logArgs, "path", remotePath)

	if c.operationDir != nil {
		if localPath, err := c.operationDir.WriteFile(remotePath, data); err != nil {
			c.logger.Warn("Failed to write local copy", append(logArgs, "step", "local-write", "error", err)...)
		} else {
			c.logger.Debug("Wrote local copy", append(logArgs, "file", localPath)...)
		}
	}

	if err := c.deliver(ctx, remotePath, data, logArgs); err != nil {
		c.count(func(s *Stats) { s.Dropped++ })
		c.logger.Error("Dropping frame", append(logArgs, "step", "upload", "error", err)...)
		return
	}

	c.count(func(s *Stats) { s.Uploaded++ })
	c.logger.Info("Frame uploaded", append(logArgs, "bytes", len(data))...)
}

// deliver stores data on the file server. A missing or broken session is replaced at
// most once per tick.
func (c *CaptureClient) deliver(ctx context.Context, remotePath string, data []byte, logArgs []any) error {
	if c.session != nil {
		err := c.session.Store(ctx, remotePath, data)
		if err == nil {
			return nil
		}
		if !client.IsReconnectable(err) {
			return err
		}
		c.logger.Warn("Upload failed, reconnecting", append(logArgs, "error", err)...)
	}

	if err := c.reconnect(ctx); err != nil {
		return err
	}
	return c.session.Store(ctx, remotePath, data)
}

// reconnect replaces the current session with a new one
func (c *CaptureClient) reconnect(ctx context.Context) error {
	c.transition(StateReconnecting)
	defer c.transition(StateRunning)
	c.count(func(s *Stats) { s.Reconnects++ })

	if c.session != nil {
		if err := c.session.Close(); err != nil {
			c.logger.Debug("Failed to close stale session", "error", err)
		}
		c.session = nil
	}

	session, err := c.connector.Connect(ctx)
	if err != nil {
		return fmt.Errorf("reconnect failed: %w", err)
	}
	c.session = session

	c.logger.Info("Reconnected to file server")
	return nil
}
