package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"facewatch-go/internal/database"
	"facewatch-go/internal/models"

	"gorm.io/datatypes"
)

// SnapshotSink writes the annotated frame of each event to disk and sets
// SnapshotPath and SnapshotURL. Register it before sinks that report them.
type SnapshotSink struct {
	dir     string
	urlBase string
}

// NewSnapshotSink stores files below dir; urlBase is the HTTP prefix they are served under
func NewSnapshotSink(dir, urlBase string) *SnapshotSink {
	return &SnapshotSink{dir: dir, urlBase: urlBase}
}

func (s *SnapshotSink) Name() string { return "snapshot" }

func (s *SnapshotSink) Handle(ctx context.Context, event *Event) error {
	if len(event.snapshot) == 0 {
		return nil
	}

	rel := filepath.Join(event.RunID,
		fmt.Sprintf("%s_%06d_%s.jpg", event.SeenAt.Format("20060102T150405"), event.FrameIndex, safeFileName(event.Name)))
	path := filepath.Join(s.dir, rel)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	if err := os.WriteFile(path, event.snapshot, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	event.SnapshotPath = filepath.ToSlash(rel)
	if s.urlBase != "" {
		event.SnapshotURL = s.urlBase + "/" + event.SnapshotPath
	}
	return nil
}

func safeFileName(name string) string {
	out := []rune(name)
	for i, r := range out {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			out[i] = '_'
		}
	}
	return string(out)
}

// DatabaseSink persists events as sightings
type DatabaseSink struct {
	repo database.Repository
}

// NewDatabaseSink creates a sink writing to repo
func NewDatabaseSink(repo database.Repository) *DatabaseSink {
	return &DatabaseSink{repo: repo}
}

func (s *DatabaseSink) Name() string { return "database" }

func (s *DatabaseSink) Handle(ctx context.Context, event *Event) error {
	box, err := json.Marshal(event.Box)
	if err != nil {
		return err
	}
	return s.repo.SaveSighting(ctx, &models.Sighting{
		RunID:        event.RunID,
		Name:         event.Name,
		Known:        event.Known,
		Distance:     event.Distance,
		Box:          datatypes.JSON(box),
		FrameIndex:   event.FrameIndex,
		SnapshotPath: event.SnapshotPath,
		SeenAt:       event.SeenAt,
	})
}

// MQTTPublisher is the part of the MQTT client the sink needs
type MQTTPublisher interface {
	Publish(topic string, payload interface{}) error
	SightingTopic(name string) string
}

// MQTTSink publishes each event as JSON on the sighting topic of its name
type MQTTSink struct {
	client MQTTPublisher
}

// NewMQTTSink creates a sink publishing through client
func NewMQTTSink(client MQTTPublisher) *MQTTSink {
	return &MQTTSink{client: client}
}

func (s *MQTTSink) Name() string { return "mqtt" }

func (s *MQTTSink) Handle(ctx context.Context, event *Event) error {
	return s.client.Publish(s.client.SightingTopic(event.Name), event)
}

// Broadcaster is the part of the SSE hub the sink needs
type Broadcaster interface {
	BroadcastJSON(v interface{}) error
}

// SSESink pushes events to connected browsers
type SSESink struct {
	hub Broadcaster
}

// NewSSESink creates a sink broadcasting on hub
func NewSSESink(hub Broadcaster) *SSESink {
	return &SSESink{hub: hub}
}

func (s *SSESink) Name() string { return "sse" }

func (s *SSESink) Handle(ctx context.Context, event *Event) error {
	if event == nil {
		return errors.New("nil event")
	}
	return s.hub.BroadcastJSON(event)
}
