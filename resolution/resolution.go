package resolution

import (
	"fmt"
	"strconv"
	"strings"
)

// Resolution is a requested camera frame size
type Resolution struct {
	Width  int
	Height int
}

// presets maps the common "<height>p" names to their 16:9 frame sizes
var presets = map[string]Resolution{
	"240p":  {Width: 426, Height: 240},
	"360p":  {Width: 640, Height: 360},
	"480p":  {Width: 854, Height: 480},
	"720p":  {Width: 1280, Height: 720},
	"1080p": {Width: 1920, Height: 1080},
}

// Returns the string representation of this Resolution (e.g. 640x480)
func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// IsEmpty checks if the resolution is empty (both width and height are zero).
// An empty resolution leaves the camera at its driver default.
func (r Resolution) IsEmpty() bool {
	return r.Width == 0 && r.Height == 0
}

// Parse converts a string representation of a resolution into a Resolution struct.
// Supported formats:
// - "" (empty resolution)
// - "1920x1080"
// - "1920:1080"
// - "1080p", "720p", "480p", "360p", "240p"
func Parse(resolutionStr string) (Resolution, error) {
	resolutionStr = strings.ToLower(strings.TrimSpace(resolutionStr))

	switch {
	case resolutionStr == "":
		return Resolution{}, nil
	case strings.Contains(resolutionStr, "x"):
		return parseDimensions(resolutionStr)
	case strings.Contains(resolutionStr, ":"):
		return parseDimensions(strings.ReplaceAll(resolutionStr, ":", "x"))
	case strings.HasSuffix(resolutionStr, "p"):
		if res, ok := presets[resolutionStr]; ok {
			return res, nil
		}
		return Resolution{}, fmt.Errorf("unsupported resolution preset: %s", resolutionStr)
	default:
		return Resolution{}, fmt.Errorf("invalid resolution format: %s", resolutionStr)
	}
}

func parseDimensions(dimStr string) (Resolution, error) {
	parts := strings.Split(dimStr, "x")
	if len(parts) != 2 {
		return Resolution{}, fmt.Errorf("invalid dimensions: %s", dimStr)
	}

	width, err := strconv.Atoi(parts[0])
	if err != nil || width <= 0 {
		return Resolution{}, fmt.Errorf("invalid width: %s", parts[0])
	}

	height, err := strconv.Atoi(parts[1])
	if err != nil || height <= 0 {
		return Resolution{}, fmt.Errorf("invalid height: %s", parts[1])
	}

	return Resolution{Width: width, Height: height}, nil
}
