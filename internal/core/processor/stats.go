package processor

import "sync/atomic"

// Counters are updated by the run loop and read by the stats endpoint
type Counters struct {
	framesRead      atomic.Uint64
	framesProcessed atomic.Uint64
	facesDetected   atomic.Uint64
	readFailures    atomic.Uint64
	encodeFailures  atomic.Uint64
}

// CounterSnapshot is a point-in-time copy of Counters
type CounterSnapshot struct {
	FramesRead      uint64 `json:"frames_read"`
	FramesProcessed uint64 `json:"frames_processed"`
	FacesDetected   uint64 `json:"faces_detected"`
	ReadFailures    uint64 `json:"read_failures"`
	EncodeFailures  uint64 `json:"encode_failures"`
}

// Snapshot returns the current values
func (c *Counters) Snapshot() CounterSnapshot {
	return CounterSnapshot{
		FramesRead:      c.framesRead.Load(),
		FramesProcessed: c.framesProcessed.Load(),
		FacesDetected:   c.facesDetected.Load(),
		ReadFailures:    c.readFailures.Load(),
		EncodeFailures:  c.encodeFailures.Load(),
	}
}
