package opencv

import (
	"context"
	"fmt"

	"facewatch-go/internal/config"
	"facewatch-go/internal/core/processor"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// Camera reads frames from a local video device
type Camera struct {
	device  int
	capture *gocv.VideoCapture
}

// OpenCamera opens the configured device
func OpenCamera(cfg config.CameraConfig) (*Camera, error) {
	capture, err := gocv.OpenVideoCapture(cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("failed to open video device %d: %w", cfg.Device, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("video device %d is not available", cfg.Device)
	}

	if cfg.Width > 0 {
		capture.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	}
	if cfg.Height > 0 {
		capture.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	}

	log.Infof("Opened video device %d (%.0fx%.0f)", cfg.Device,
		capture.Get(gocv.VideoCaptureFrameWidth), capture.Get(gocv.VideoCaptureFrameHeight))

	return &Camera{device: cfg.Device, capture: capture}, nil
}

// Read implements processor.FrameSource. A successful read of an empty
// frame returns the empty frame, the processor decides what to do with it.
func (c *Camera) Read(ctx context.Context) (processor.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok {
		mat.Close()
		return nil, fmt.Errorf("%w: device %d returned no frame", processor.ErrFrameAcquisition, c.device)
	}
	return NewFrame(mat), nil
}

// Close releases the device
func (c *Camera) Close() error {
	log.Infof("Releasing video device %d", c.device)
	return c.capture.Close()
}
