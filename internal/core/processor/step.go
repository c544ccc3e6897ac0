package processor

import (
	"context"
	"fmt"

	"facewatch-go/internal/integrations/facerecognition"
	"facewatch-go/internal/recognition"
)

// State carries detections and match results across loop iterations.
// Skipped frames reuse the values computed for the last processed frame.
type State struct {
	Detections       []facerecognition.Detection
	Results          []recognition.MatchResult
	ProcessThisFrame bool
	FrameIndex       uint64 // index of the next non-empty frame
}

// NewState returns the state before the first frame: the first frame is processed.
func NewState() State {
	return State{ProcessThisFrame: true}
}

// Label is one face to draw, in full-resolution coordinates
type Label struct {
	Box      facerecognition.Box `json:"box"`
	Name     string              `json:"name"`
	Known    bool                `json:"known"`
	Distance float64             `json:"distance"`
}

// Overlay is what the renderer draws on the current frame
type Overlay struct {
	FrameIndex uint64  `json:"frame_index"`
	Processed  bool    `json:"processed"` // detection ran on this frame
	Labels     []Label `json:"labels"`
}

// FrameProcessor runs detection and matching on a subset of frames
type FrameProcessor struct {
	encoder       facerecognition.Encoder
	gallery       *recognition.Gallery
	downscale     int
	everyNthFrame int
}

// NewFrameProcessor creates a processor. downscale and everyNthFrame below 1 are treated as 1.
func NewFrameProcessor(encoder facerecognition.Encoder, gallery *recognition.Gallery, downscale, everyNthFrame int) *FrameProcessor {
	if downscale < 1 {
		downscale = 1
	}
	if everyNthFrame < 1 {
		everyNthFrame = 1
	}
	return &FrameProcessor{
		encoder:       encoder,
		gallery:       gallery,
		downscale:     downscale,
		everyNthFrame: everyNthFrame,
	}
}

// Step handles one frame and returns the overlay for it together with the
// state for the next frame.
//
// An empty frame yields an empty overlay, drops the carried detections and
// leaves the frame parity untouched. Encoder failures wrap ErrFrameEncoding and
// return the input state. Matcher errors are returned as they are.
func (p *FrameProcessor) Step(ctx context.Context, frame Frame, state State) (Overlay, State, error) {
	next := state

	if frame == nil || frame.Empty() {
		next.Detections = nil
		next.Results = nil
		return Overlay{FrameIndex: state.FrameIndex}, next, nil
	}

	if state.ProcessThisFrame {
		data, err := frame.DownscaledJPEG(p.downscale)
		if err != nil {
			return Overlay{}, state, fmt.Errorf("%w: %v", ErrFrameEncoding, err)
		}

		detections, err := p.encoder.Encode(ctx, data)
		if err != nil {
			return Overlay{}, state, fmt.Errorf("%w: %v", ErrFrameEncoding, err)
		}

		results, err := p.gallery.MatchAll(facerecognition.Encodings(detections))
		if err != nil {
			return Overlay{}, state, fmt.Errorf("matching frame %d: %w", state.FrameIndex, err)
		}

		next.Detections = detections
		next.Results = results
	}

	overlay := Overlay{
		FrameIndex: state.FrameIndex,
		Processed:  state.ProcessThisFrame,
		Labels:     make([]Label, len(next.Detections)),
	}
	for i, d := range next.Detections {
		res := next.Results[i]
		overlay.Labels[i] = Label{
			Box:      d.Box.Scale(p.downscale),
			Name:     res.Name,
			Known:    res.Known(),
			Distance: res.Distance,
		}
	}

	next.FrameIndex = state.FrameIndex + 1
	next.ProcessThisFrame = next.FrameIndex%uint64(p.everyNthFrame) == 0

	return overlay, next, nil
}
