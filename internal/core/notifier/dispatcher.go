package notifier

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

// Dispatcher delivers events to the sinks on a small pool of workers so the
// capture loop never waits for disk or network I/O
type Dispatcher struct {
	sinks       []Sink
	jobs        chan *Event
	workerCount int
	activeJobs  atomic.Int64
	dropped     atomic.Uint64
	wg          sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher starts workerCount workers with a queue of queueSize events
func NewDispatcher(sinks []Sink, workerCount, queueSize int) *Dispatcher {
	if workerCount < 1 {
		workerCount = 1
	}
	if queueSize < 1 {
		queueSize = workerCount * 2
	}

	d := &Dispatcher{
		sinks:       sinks,
		jobs:        make(chan *Event, queueSize),
		workerCount: workerCount,
	}

	log.Debugf("Starting sighting dispatcher with %d workers", workerCount)
	for i := 0; i < workerCount; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	return d
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()
	for event := range d.jobs {
		d.activeJobs.Add(1)
		start := time.Now()
		d.deliver(event)
		d.activeJobs.Add(-1)
		log.Debugf("Worker %d delivered sighting of %s in %v", id, event.Name, time.Since(start))
	}
}

func (d *Dispatcher) deliver(event *Event) {
	// sinks outlive the frame loop context so queued events still drain on shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, sink := range d.sinks {
		if err := sink.Handle(ctx, event); err != nil {
			log.Warnf("Sink %s failed for sighting of %s: %v", sink.Name(), event.Name, err)
		}
	}
}

// Submit queues event without blocking. A full queue drops the event.
func (d *Dispatcher) Submit(event *Event) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}

	select {
	case d.jobs <- event:
		return true
	default:
		d.dropped.Add(1)
		log.Warnf("Sighting queue full, dropping sighting of %s", event.Name)
		return false
	}
}

// ActiveJobCount returns the number of events being delivered right now
func (d *Dispatcher) ActiveJobCount() int {
	return int(d.activeJobs.Load())
}

// QueueLength returns the number of waiting events
func (d *Dispatcher) QueueLength() int {
	return len(d.jobs)
}

// Dropped returns the number of events lost to a full queue
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

// Shutdown stops accepting events and waits for queued ones, or for ctx
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
