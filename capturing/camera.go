package capturing

import (
	"errors"
	"fmt"

	"github.com/yeti47/webcam-ftpry/ccc/logging"
	"github.com/yeti47/webcam-ftpry/resolution"
	"gocv.io/x/gocv"
)

var (
	// ErrDeviceUnavailable is returned when the camera cannot be claimed (absent, busy, no permission)
	ErrDeviceUnavailable = errors.New("camera device unavailable")
	// ErrCaptureFailed is returned when the camera delivers no frame
	ErrCaptureFailed = errors.New("frame capture failed")
)

// Camera produces single frames on request.
// Implementations are not safe for concurrent use.
type Camera interface {
	// Capture grabs the current frame. The caller owns the returned Mat and must close it.
	Capture() (gocv.Mat, error)
	// Close releases the device
	Close() error
}

// Opener opens the camera with the given device index
type Opener func(deviceID int) (Camera, error)

// GoCVCamera is a Camera backed by a gocv VideoCapture device
type GoCVCamera struct {
	deviceID int
	webcam   *gocv.VideoCapture
	logger   logging.Logger
}

// NewGoCVOpener returns an Opener for gocv webcams requesting the given resolution
func NewGoCVOpener(logger logging.Logger, res resolution.Resolution) Opener {
	return func(deviceID int) (Camera, error) {
		return OpenGoCVCamera(logger, deviceID, res)
	}
}

// OpenGoCVCamera claims the webcam with the given index
func OpenGoCVCamera(logger logging.Logger, deviceID int, res resolution.Resolution) (*GoCVCamera, error) {
	webcam, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return nil, fmt.Errorf("%w: device %d: %v", ErrDeviceUnavailable, deviceID, err)
	}
	if !webcam.IsOpened() {
		webcam.Close()
		return nil, fmt.Errorf("%w: device %d could not be opened", ErrDeviceUnavailable, deviceID)
	}

	// Frames are grabbed once per period, a deeper driver buffer would hand out stale images
	webcam.Set(gocv.VideoCaptureBufferSize, 1)

	if !res.IsEmpty() {
		webcam.Set(gocv.VideoCaptureFrameWidth, float64(res.Width))
		webcam.Set(gocv.VideoCaptureFrameHeight, float64(res.Height))
	}

	width := int(webcam.Get(gocv.VideoCaptureFrameWidth))
	height := int(webcam.Get(gocv.VideoCaptureFrameHeight))
	logger.Info("Camera opened", "device", deviceID, "width", width, "height", height)

	return &GoCVCamera{
		deviceID: deviceID,
		webcam:   webcam,
		logger:   logger,
	}, nil
}

// Capture reads the next frame from the device
func (c *GoCVCamera) Capture() (gocv.Mat, error) {
	if c.webcam == nil {
		return gocv.Mat{}, fmt.Errorf("%w: camera %d is closed", ErrCaptureFailed, c.deviceID)
	}

	img := gocv.NewMat()
	if ok := c.webcam.Read(&img); !ok {
		img.Close()
		return gocv.Mat{}, fmt.Errorf("%w: device %d returned no frame", ErrCaptureFailed, c.deviceID)
	}
	if img.Empty() {
		img.Close()
		return gocv.Mat{}, fmt.Errorf("%w: device %d returned an empty frame", ErrCaptureFailed, c.deviceID)
	}

	return img, nil
}

// Close releases the device. Closing twice is a no-op.
func (c *GoCVCamera) Close() error {
	if c.webcam == nil {
		return nil
	}
	c.logger.Info("Closing camera", "device", c.deviceID)
	err := c.webcam.Close()
	c.webcam = nil
	return err
}
