package processor

import (
	"context"
	"errors"
)

var (
	// ErrFrameAcquisition marks a failed or unusable camera read. The loop skips
	// the frame and retries.
	ErrFrameAcquisition = errors.New("frame acquisition failed")
	// ErrFrameEncoding marks a frame the encoder could not handle. The frame is
	// skipped and the next one is processed instead.
	ErrFrameEncoding = errors.New("frame encoding failed")
	// ErrTooManyReadFailures stops the loop after camera.max_read_failures
	// consecutive acquisition errors.
	ErrTooManyReadFailures = errors.New("too many consecutive frame read failures")
)

// Frame is one captured full-resolution video frame.
// Implementations may hold native memory and must be closed.
type Frame interface {
	// Empty reports a frame without pixel data
	Empty() bool
	// DownscaledJPEG shrinks the frame to 1/factor per side and encodes it
	DownscaledJPEG(factor int) ([]byte, error)
	// JPEG encodes the frame at full resolution, including anything drawn on it
	JPEG() ([]byte, error)
	Close() error
}

// FrameSource delivers frames from a camera. Read returns an error wrapping
// ErrFrameAcquisition when no frame could be obtained.
type FrameSource interface {
	Read(ctx context.Context) (Frame, error)
	Close() error
}

// Renderer draws an overlay onto a frame and shows it. It reports quit=true
// once the user pressed the quit key.
type Renderer interface {
	Render(ctx context.Context, frame Frame, overlay Overlay) (quit bool, err error)
	Close() error
}

// Observer is notified after drawing, for every frame the processor handled.
// Frames shown without labels after an encoding failure are not observed.
type Observer interface {
	Observe(ctx context.Context, frame Frame, overlay Overlay)
}
