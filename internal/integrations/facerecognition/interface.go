package facerecognition

import (
	"context"
	"image"

	"facewatch-go/internal/recognition"
)

// ProviderType names a face detection/encoding backend
type ProviderType string

const (
	// ProviderDlib is the local dlib ResNet encoder (go-face)
	ProviderDlib ProviderType = "dlib"
)

// Box is a face location as top, right, bottom, left pixel coordinates
type Box struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

// BoxFromRect converts an image.Rectangle into a Box
func BoxFromRect(r image.Rectangle) Box {
	return Box{Top: r.Min.Y, Right: r.Max.X, Bottom: r.Max.Y, Left: r.Min.X}
}

// Rect converts the box back into an image.Rectangle
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.Left, b.Top, b.Right, b.Bottom)
}

// Scale multiplies every coordinate by factor
func (b Box) Scale(factor int) Box {
	return Box{
		Top:    b.Top * factor,
		Right:  b.Right * factor,
		Bottom: b.Bottom * factor,
		Left:   b.Left * factor,
	}
}

// Width returns the horizontal extent of the box
func (b Box) Width() int {
	return b.Right - b.Left
}

// Height returns the vertical extent of the box
func (b Box) Height() int {
	return b.Bottom - b.Top
}

// Detection is one located face and its encoding
type Detection struct {
	Box      Box
	Encoding recognition.Encoding
}

// Encodings returns the encodings of detections in order
func Encodings(detections []Detection) []recognition.Encoding {
	out := make([]recognition.Encoding, len(detections))
	for i, d := range detections {
		out[i] = d.Encoding
	}
	return out
}

// Encoder locates faces in an encoded image (JPEG/PNG bytes) and returns
// one Detection per face. The order of the returned slice is kept by callers.
type Encoder interface {
	// GetProviderName returns the backend name
	GetProviderName() ProviderType

	// Encode detects and encodes all faces in imgData
	Encode(ctx context.Context, imgData []byte) ([]Detection, error)

	// EncodeFile detects and encodes all faces in the image at path
	EncodeFile(ctx context.Context, path string) ([]Detection, error)

	// Close releases native resources
	Close() error
}
