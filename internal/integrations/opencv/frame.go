package opencv

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Frame is a captured BGR frame backed by a gocv.Mat
type Frame struct {
	mat gocv.Mat
}

// NewFrame takes ownership of mat
func NewFrame(mat gocv.Mat) *Frame {
	return &Frame{mat: mat}
}

// Mat exposes the underlying matrix for drawing
func (f *Frame) Mat() *gocv.Mat {
	return &f.mat
}

// Empty implements processor.Frame
func (f *Frame) Empty() bool {
	return f.mat.Empty()
}

// DownscaledJPEG implements processor.Frame
func (f *Frame) DownscaledJPEG(factor int) ([]byte, error) {
	if factor <= 1 {
		return encodeJPEG(f.mat)
	}

	width := f.mat.Cols() / factor
	height := f.mat.Rows() / factor
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("frame %dx%d is too small for downscale factor %d", f.mat.Cols(), f.mat.Rows(), factor)
	}

	small := gocv.NewMat()
	defer small.Close()
	gocv.Resize(f.mat, &small, image.Point{X: width, Y: height}, 0, 0, gocv.InterpolationLinear)

	return encodeJPEG(small)
}

// JPEG implements processor.Frame
func (f *Frame) JPEG() ([]byte, error) {
	return encodeJPEG(f.mat)
}

// Close releases the native matrix
func (f *Frame) Close() error {
	return f.mat.Close()
}

func encodeJPEG(mat gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(".jpg", mat)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame as JPEG: %w", err)
	}
	defer buf.Close()

	// GetBytes points into native memory, copy before closing
	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	return data, nil
}
