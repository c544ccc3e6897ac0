package processor

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Runner drives the capture, process and render loop on the calling goroutine
type Runner struct {
	source          FrameSource
	processor       *FrameProcessor
	renderer        Renderer
	observers       []Observer
	maxReadFailures int
	counters        *Counters
}

// NewRunner wires a loop. maxReadFailures of 0 retries forever.
func NewRunner(source FrameSource, processor *FrameProcessor, renderer Renderer, maxReadFailures int, observers ...Observer) *Runner {
	return &Runner{
		source:          source,
		processor:       processor,
		renderer:        renderer,
		observers:       observers,
		maxReadFailures: maxReadFailures,
		counters:        &Counters{},
	}
}

// Counters exposes the loop counters
func (r *Runner) Counters() *Counters {
	return r.counters
}

// Run loops until ctx is cancelled, the renderer reports the quit key, or a
// fatal error occurs. Cancellation and quitting return nil.
func (r *Runner) Run(ctx context.Context) error {
	state := NewState()
	failures := 0

	log.Info("Frame loop started")
	defer log.Info("Frame loop stopped")

	for {
		if ctx.Err() != nil {
			return nil
		}

		frame, err := r.source.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			failures++
			r.counters.readFailures.Add(1)
			log.Warnf("Skipping frame: %v", err)
			if r.maxReadFailures > 0 && failures >= r.maxReadFailures {
				return fmt.Errorf("%w: %d in a row, last: %v", ErrTooManyReadFailures, failures, err)
			}
			continue
		}
		failures = 0
		r.counters.framesRead.Add(1)

		quit, err := r.handle(ctx, frame, &state)
		if cerr := frame.Close(); cerr != nil {
			log.Debugf("Failed to release frame: %v", cerr)
		}
		if err != nil {
			return err
		}
		if quit {
			log.Info("Quit key pressed")
			return nil
		}
	}
}

func (r *Runner) handle(ctx context.Context, frame Frame, state *State) (bool, error) {
	overlay, next, err := r.processor.Step(ctx, frame, *state)
	if err != nil {
		if !errors.Is(err, ErrFrameEncoding) {
			return false, err
		}
		// shown without labels, the state stays so the next frame is retried
		r.counters.encodeFailures.Add(1)
		log.Warnf("No detections for frame %d: %v", state.FrameIndex, err)
		quit, rerr := r.renderer.Render(ctx, frame, Overlay{FrameIndex: state.FrameIndex})
		if rerr != nil {
			log.Warnf("Failed to render frame %d: %v", state.FrameIndex, rerr)
		}
		return quit, nil
	}
	*state = next

	if overlay.Processed {
		r.counters.framesProcessed.Add(1)
		r.counters.facesDetected.Add(uint64(len(overlay.Labels)))
	}

	quit, err := r.renderer.Render(ctx, frame, overlay)
	if err != nil {
		log.Warnf("Failed to render frame %d: %v", overlay.FrameIndex, err)
	}

	for _, o := range r.observers {
		o.Observe(ctx, frame, overlay)
	}

	return quit, nil
}
