package notifier

import (
	"context"
	"sync"
	"time"

	"facewatch-go/internal/core/processor"
	"facewatch-go/internal/util/timezone"

	log "github.com/sirupsen/logrus"
)

// EventTypeSighting is the Type of every Event
const EventTypeSighting = "sighting"

// Submitter queues events for delivery
type Submitter interface {
	Submit(event *Event) bool
}

// Notifier turns overlays of processed frames into sighting events,
// at most one per name per cooldown period
type Notifier struct {
	runID     string
	cooldown  time.Duration
	snapshots bool
	out       Submitter
	now       func() time.Time

	mu       sync.Mutex
	lastSent map[string]time.Time
}

// New creates a notifier. With snapshots set, the annotated frame is attached to events.
func New(runID string, cooldown time.Duration, snapshots bool, out Submitter) *Notifier {
	return &Notifier{
		runID:     runID,
		cooldown:  cooldown,
		snapshots: snapshots,
		out:       out,
		now:       timezone.Now,
		lastSent:  make(map[string]time.Time),
	}
}

// Observe implements processor.Observer
func (n *Notifier) Observe(ctx context.Context, frame processor.Frame, overlay processor.Overlay) {
	if !overlay.Processed || len(overlay.Labels) == 0 {
		return
	}

	now := n.now()
	events := n.collect(overlay, now)
	if len(events) == 0 {
		return
	}

	if n.snapshots && frame != nil {
		data, err := frame.JPEG()
		if err != nil {
			log.Warnf("Failed to encode snapshot for frame %d: %v", overlay.FrameIndex, err)
		} else {
			for _, e := range events {
				e.snapshot = data
			}
		}
	}

	for _, e := range events {
		n.out.Submit(e)
	}
}

func (n *Notifier) collect(overlay processor.Overlay, now time.Time) []*Event {
	n.mu.Lock()
	defer n.mu.Unlock()

	var events []*Event
	for _, label := range overlay.Labels {
		if last, ok := n.lastSent[label.Name]; ok && now.Sub(last) < n.cooldown {
			continue
		}
		n.lastSent[label.Name] = now
		events = append(events, &Event{
			Type:       EventTypeSighting,
			RunID:      n.runID,
			Name:       label.Name,
			Known:      label.Known,
			Distance:   label.Distance,
			Box:        label.Box,
			FrameIndex: overlay.FrameIndex,
			SeenAt:     now,
		})
	}
	return events
}
