package processor

import (
	"context"
	"errors"
	"fmt"

	"facewatch-go/internal/integrations/facerecognition"
	"facewatch-go/internal/recognition"
)

type fakeFrame struct {
	empty   bool
	id      int
	closed  bool
	jpegErr error
	factors []int
}

func (f *fakeFrame) Empty() bool { return f.empty }

func (f *fakeFrame) DownscaledJPEG(factor int) ([]byte, error) {
	f.factors = append(f.factors, factor)
	if f.jpegErr != nil {
		return nil, f.jpegErr
	}
	return []byte(fmt.Sprintf("frame-%d", f.id)), nil
}

func (f *fakeFrame) JPEG() ([]byte, error) { return []byte("full"), nil }

func (f *fakeFrame) Close() error {
	f.closed = true
	return nil
}

// scriptedEncoder returns detections keyed by the frame payload
type scriptedEncoder struct {
	byPayload map[string][]facerecognition.Detection
	err       error
	calls     []string
}

func (e *scriptedEncoder) GetProviderName() facerecognition.ProviderType { return "scripted" }

func (e *scriptedEncoder) Encode(ctx context.Context, data []byte) ([]facerecognition.Detection, error) {
	e.calls = append(e.calls, string(data))
	if e.err != nil {
		return nil, e.err
	}
	return e.byPayload[string(data)], nil
}

func (e *scriptedEncoder) EncodeFile(ctx context.Context, path string) ([]facerecognition.Detection, error) {
	return nil, errors.New("not used")
}

func (e *scriptedEncoder) Close() error { return nil }

type sourceStep struct {
	frame *fakeFrame
	err   error
}

type scriptedSource struct {
	steps []sourceStep
	pos   int
	// onExhausted runs once the script is used up
	onExhausted func()
}

func (s *scriptedSource) Read(ctx context.Context) (Frame, error) {
	if s.pos >= len(s.steps) {
		if s.onExhausted != nil {
			s.onExhausted()
		}
		return nil, fmt.Errorf("%w: end of script", ErrFrameAcquisition)
	}
	step := s.steps[s.pos]
	s.pos++
	if step.err != nil {
		return nil, step.err
	}
	return step.frame, nil
}

func (s *scriptedSource) Close() error { return nil }

type recordingRenderer struct {
	overlays []Overlay
	quitAt   int // quit after this many renders, 0 = never
}

func (r *recordingRenderer) Render(ctx context.Context, frame Frame, overlay Overlay) (bool, error) {
	r.overlays = append(r.overlays, overlay)
	return r.quitAt > 0 && len(r.overlays) >= r.quitAt, nil
}

func (r *recordingRenderer) Close() error { return nil }

type recordingObserver struct {
	overlays []Overlay
}

func (o *recordingObserver) Observe(ctx context.Context, frame Frame, overlay Overlay) {
	o.overlays = append(o.overlays, overlay)
}

func detection(top, right, bottom, left int, enc recognition.Encoding) facerecognition.Detection {
	return facerecognition.Detection{
		Box:      facerecognition.Box{Top: top, Right: right, Bottom: bottom, Left: left},
		Encoding: enc,
	}
}
