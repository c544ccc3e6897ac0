package notifier

import (
	"context"
	"time"

	"facewatch-go/internal/integrations/facerecognition"
)

// Event is one sighting of a name on a processed frame
type Event struct {
	Type         string              `json:"type"`
	RunID        string              `json:"run_id"`
	Name         string              `json:"name"`
	Known        bool                `json:"known"`
	Distance     float64             `json:"distance"`
	Box          facerecognition.Box `json:"box"`
	FrameIndex   uint64              `json:"frame_index"`
	SeenAt       time.Time           `json:"seen_at"`
	SnapshotPath string              `json:"snapshot_path,omitempty"`
	SnapshotURL  string              `json:"snapshot_url,omitempty"`

	// annotated full frame, shared by all events of the frame
	snapshot []byte
}

// Sink receives events. Sinks run in registration order for each event, so
// a sink may rely on fields filled in by an earlier one.
type Sink interface {
	Name() string
	Handle(ctx context.Context, event *Event) error
}
