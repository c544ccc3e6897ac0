package gallery

import (
	"context"
	"fmt"

	"facewatch-go/internal/config"
	"facewatch-go/internal/integrations/facerecognition"
	"facewatch-go/internal/recognition"

	log "github.com/sirupsen/logrus"
)

// Sample is one labeled enrollment image
type Sample struct {
	Name string
	Path string
}

// StartupEnrollmentError means a sample could not be turned into exactly
// one reference encoding. The process must not enter the main loop.
type StartupEnrollmentError struct {
	Sample Sample
	Faces  int
	Err    error
}

func (e *StartupEnrollmentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("enrollment of %q from %s failed: %v", e.Sample.Name, e.Sample.Path, e.Err)
	}
	return fmt.Sprintf("enrollment of %q from %s failed: expected exactly one face, found %d",
		e.Sample.Name, e.Sample.Path, e.Faces)
}

func (e *StartupEnrollmentError) Unwrap() error {
	return e.Err
}

// Progress receives one tick per enrolled sample.
// *progressbar.ProgressBar satisfies it.
type Progress interface {
	Add(num int) error
}

type options struct {
	progress Progress
}

// Option customizes Load
type Option func(*options)

// WithProgress reports enrollment progress to p
func WithProgress(p Progress) Option {
	return func(o *options) {
		o.progress = p
	}
}

// SamplesFromConfig converts configured gallery entries, keeping their order
func SamplesFromConfig(entries []config.GalleryEntry) []Sample {
	samples := make([]Sample, len(entries))
	for i, e := range entries {
		samples[i] = Sample{Name: e.Name, Path: e.Image}
	}
	return samples
}

// Load encodes every sample in order and builds the gallery from the results.
// Gallery order equals sample order.
func Load(ctx context.Context, encoder facerecognition.Encoder, samples []Sample, tolerance float64, opts ...Option) (*recognition.Gallery, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	if len(samples) == 0 {
		return nil, recognition.ErrEmptyGallery
	}

	identities := make([]recognition.KnownIdentity, 0, len(samples))
	for _, sample := range samples {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		detections, err := encoder.EncodeFile(ctx, sample.Path)
		if err != nil {
			return nil, &StartupEnrollmentError{Sample: sample, Err: err}
		}
		if len(detections) != 1 {
			return nil, &StartupEnrollmentError{Sample: sample, Faces: len(detections)}
		}

		identities = append(identities, recognition.KnownIdentity{
			Name:     sample.Name,
			Encoding: detections[0].Encoding,
		})
		log.Debugf("Enrolled %s from %s (%d dimensions)", sample.Name, sample.Path, detections[0].Encoding.Dimensions())

		if o.progress != nil {
			_ = o.progress.Add(1)
		}
	}

	g, err := recognition.NewGallery(identities, tolerance)
	if err != nil {
		return nil, fmt.Errorf("failed to build gallery: %w", err)
	}
	log.Infof("Gallery loaded with %d identities using %s", g.Len(), encoder.GetProviderName())
	return g, nil
}
