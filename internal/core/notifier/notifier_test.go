package notifier

import (
	"context"
	"errors"
	"testing"
	"time"

	"facewatch-go/internal/core/processor"
	"facewatch-go/internal/integrations/facerecognition"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collectingSubmitter struct {
	events []*Event
}

func (c *collectingSubmitter) Submit(e *Event) bool {
	c.events = append(c.events, e)
	return true
}

type stubFrame struct {
	jpeg    []byte
	jpegErr error
	encodes int
}

func (f *stubFrame) Empty() bool { return false }
func (f *stubFrame) DownscaledJPEG(int) ([]byte, error) { return nil, errors.New("not used") }
func (f *stubFrame) Close() error { return nil }
func (f *stubFrame) JPEG() ([]byte, error) {
	f.encodes++
	return f.jpeg, f.jpegErr
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestNotifier(cooldown time.Duration, snapshots bool) (*Notifier, *collectingSubmitter, *clock) {
	out := &collectingSubmitter{}
	c := &clock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	n := New("run-1", cooldown, snapshots, out)
	n.now = c.now
	return n, out, c
}

func overlay(index uint64, processed bool, names ...string) processor.Overlay {
	o := processor.Overlay{FrameIndex: index, Processed: processed}
	for i, name := range names {
		o.Labels = append(o.Labels, processor.Label{
			Box:   facerecognition.Box{Top: i, Right: i + 10, Bottom: i + 10, Left: i},
			Name:  name,
			Known: name != "Unknown",
		})
	}
	return o
}

func TestObserve_EmitsOneEventPerLabel(t *testing.T) {
	n, out, _ := newTestNotifier(10*time.Second, false)

	n.Observe(context.Background(), &stubFrame{}, overlay(4, true, "a_person", "Unknown"))

	require.Len(t, out.events, 2)
	e := out.events[0]
	assert.Equal(t, EventTypeSighting, e.Type)
	assert.Equal(t, "run-1", e.RunID)
	assert.Equal(t, "a_person", e.Name)
	assert.True(t, e.Known)
	assert.Equal(t, uint64(4), e.FrameIndex)
	assert.Equal(t, facerecognition.Box{Top: 0, Right: 10, Bottom: 10, Left: 0}, e.Box)
	assert.False(t, out.events[1].Known)
	assert.Nil(t, e.snapshot)
}

func TestObserve_IgnoresSkippedAndEmptyFrames(t *testing.T) {
	n, out, _ := newTestNotifier(0, false)

	n.Observe(context.Background(), &stubFrame{}, overlay(1, false, "a_person"))
	n.Observe(context.Background(), &stubFrame{}, overlay(2, true))
	assert.Empty(t, out.events)
}

func TestObserve_Cooldown(t *testing.T) {
	n, out, c := newTestNotifier(10*time.Second, false)
	ctx := context.Background()

	n.Observe(ctx, nil, overlay(0, true, "a_person"))
	c.t = c.t.Add(5 * time.Second)
	n.Observe(ctx, nil, overlay(2, true, "a_person", "b_person"))
	c.t = c.t.Add(5 * time.Second)
	n.Observe(ctx, nil, overlay(4, true, "a_person", "b_person"))

	var names []string
	for _, e := range out.events {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"a_person", "b_person", "a_person"}, names)
}

func TestObserve_AttachesSnapshotOnce(t *testing.T) {
	n, out, _ := newTestNotifier(0, true)
	frame := &stubFrame{jpeg: []byte("jpeg")}

	n.Observe(context.Background(), frame, overlay(0, true, "a_person", "b_person"))

	require.Len(t, out.events, 2)
	assert.Equal(t, 1, frame.encodes)
	assert.Equal(t, []byte("jpeg"), out.events[0].snapshot)
	assert.Equal(t, []byte("jpeg"), out.events[1].snapshot)
}

func TestObserve_SnapshotFailureStillNotifies(t *testing.T) {
	n, out, _ := newTestNotifier(0, true)

	n.Observe(context.Background(), &stubFrame{jpegErr: errors.New("no buffer")}, overlay(0, true, "a_person"))
	require.Len(t, out.events, 1)
	assert.Nil(t, out.events[0].snapshot)
}
