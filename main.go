package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"github.com/yeti47/webcam-ftpry/capturing"
	"github.com/yeti47/webcam-ftpry/ccc/logging"
	"github.com/yeti47/webcam-ftpry/client"
	"github.com/yeti47/webcam-ftpry/config"
	filemanagement "github.com/yeti47/webcam-ftpry/file-management"
	"github.com/yeti47/webcam-ftpry/pathformat"
	postprocessing "github.com/yeti47/webcam-ftpry/post-processing"
	"github.com/yeti47/webcam-ftpry/resolution"
	"gocv.io/x/gocv"
)

const (
	appName       = "webcam-ftpry"
	mockUploadDir = "mock-uploads"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatalf("%s: %v", appName, err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:   appName,
		Usage:  "Capture webcam frames periodically and upload them to an FTP server",
		Flags:  runFlags(),
		Action: runAction,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Start the capture loop (default)",
				Flags:  runFlags(),
				Action: runAction,
			},
			{
				Name:      "rotate",
				Usage:     "Rotate an image file counter-clockwise",
				ArgsUsage: "IN OUT",
				Description: `Rotate an image about its center, keeping its size.

Examples:
  webcam-ftpry rotate --angle 45.2 frame.jpg rotated.jpg`,
				Flags: []cli.Flag{
					&cli.Float64Flag{
						Name:     "angle",
						Aliases:  []string{"a"},
						Required: true,
						Usage:    "Rotation angle in degrees",
					},
				},
				Action: rotateAction,
			},
		},
	}
}

func runFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: "config.yaml", Usage: "Configuration file"},
		&cli.BoolFlag{Name: "test", Usage: "Store frames in ./" + mockUploadDir + " instead of uploading them"},
		&cli.IntFlag{Name: "device-id", Usage: "Camera index (overrides config)"},
		&cli.StringFlag{Name: "operation-dir", Usage: "Directory for local frame copies (overrides config)"},
		&cli.Float64Flag{Name: "period", Usage: "Capture period in seconds (overrides config)"},
		&cli.StringFlag{Name: "hostname", Usage: "FTP server host (overrides config)"},
		&cli.IntFlag{Name: "port", Usage: "FTP server port (overrides config)"},
		&cli.StringFlag{Name: "user", Usage: "FTP user (overrides config)"},
		&cli.StringFlag{Name: "password", Usage: "FTP password (overrides config)", EnvVars: []string{"WEBCAM_FTPRY_PASSWORD"}},
		&cli.StringFlag{Name: "path-format", Usage: "strftime template for remote paths (overrides config)"},
		&cli.Float64Flag{Name: "angle", Usage: "Counter-clockwise rotation in degrees (overrides config)"},
		&cli.IntFlag{Name: "timeout", Usage: "Network timeout in seconds (overrides config)"},
		&cli.StringFlag{Name: "resolution", Usage: "Camera resolution, e.g. 1280x720 or 720p (overrides config)"},
		&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error (overrides config)"},
	}
}

func runAction(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Apply CLI overrides if provided
	cfg.Override(config.ConfigOverrides{
		DeviceID:       intFlag(c, "device-id"),
		OperationDir:   stringFlag(c, "operation-dir"),
		PeriodSeconds:  float64Flag(c, "period"),
		Hostname:       stringFlag(c, "hostname"),
		Port:           intFlag(c, "port"),
		User:           stringFlag(c, "user"),
		Password:       stringFlag(c, "password"),
		PathFormat:     stringFlag(c, "path-format"),
		Angle:          float64Flag(c, "angle"),
		TimeoutSeconds: intFlag(c, "timeout"),
		Resolution:     stringFlag(c, "resolution"),
		LogLevel:       stringFlag(c, "log-level"),
	})

	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.CreateLogger(logging.LogLevel(cfg.LogLevel), cfg.LogPath, appName)

	// Log final configuration (without sensitive data)
	logger.Info("Configuration loaded",
		"device", cfg.DeviceID,
		"hostname", cfg.Hostname,
		"port", cfg.Port,
		"user", cfg.User,
		"period", cfg.Period(),
		"path_format", cfg.PathFormat,
		"angle", cfg.Angle,
		"operation_dir", cfg.OperationDir,
	)

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var connector client.Connector
	if c.Bool("test") {
		logger.Info("Running in TEST MODE, frames are stored locally", "dir", mockUploadDir)
		connector = client.NewLocalDirConnector(mockUploadDir, logger)
	} else {
		connector = client.NewFTPConnector(client.FTPSettings{
			Hostname: cfg.Hostname,
			Port:     cfg.Port,
			User:     cfg.User,
			Password: cfg.Password,
			Timeout:  cfg.Timeout(),
		}, logger)
	}

	return run(ctx, cfg, connector, logger)
}

// run captures frames from the configured camera and delivers them through connector
// until ctx is cancelled
func run(ctx context.Context, cfg *config.Config, connector client.Connector, logger logging.Logger) error {
	res, err := resolution.Parse(cfg.Resolution)
	if err != nil {
		return fmt.Errorf("invalid resolution: %w", err)
	}

	return runWith(ctx, cfg, capturing.NewGoCVOpener(logger, res), connector, logger)
}

func runWith(ctx context.Context, cfg *config.Config, openCamera capturing.Opener, connector client.Connector, logger logging.Logger) error {
	formatter, err := pathformat.New(cfg.PathFormat)
	if err != nil {
		return err
	}

	var operationDir filemanagement.DirWriter
	if cfg.OperationDir != "" {
		operationDir = filemanagement.NewLocalDirWriter(cfg.OperationDir)
	}

	captureClient := NewCaptureClient(openCamera, connector, formatter, operationDir, CaptureSettings{
		DeviceID:    cfg.DeviceID,
		Period:      cfg.Period(),
		Angle:       cfg.Angle,
		Timeout:     cfg.Timeout(),
		JPEGQuality: cfg.JPEGQuality,
	}, logger)

	return captureClient.Run(ctx)
}

func rotateAction(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("expected IN and OUT arguments, got %d", c.NArg())
	}
	in, out := c.Args().Get(0), c.Args().Get(1)

	img := gocv.IMRead(in, gocv.IMReadColor)
	defer img.Close()
	if img.Empty() {
		return fmt.Errorf("failed to read image %s", in)
	}

	rotated := postprocessing.Rotate(img, c.Float64("angle"))
	defer rotated.Close()

	if ok := gocv.IMWrite(out, rotated); !ok {
		return fmt.Errorf("failed to write image %s", out)
	}
	return nil
}

func stringFlag(c *cli.Context, name string) *string {
	if !c.IsSet(name) {
		return nil
	}
	v := c.String(name)
	return &v
}

func intFlag(c *cli.Context, name string) *int {
	if !c.IsSet(name) {
		return nil
	}
	v := c.Int(name)
	return &v
}

func float64Flag(c *cli.Context, name string) *float64 {
	if !c.IsSet(name) {
		return nil
	}
	v := c.Float64(name)
	return &v
}
