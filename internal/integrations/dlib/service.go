package dlib

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"facewatch-go/internal/config"
	"facewatch-go/internal/integrations/facerecognition"
	"facewatch-go/internal/recognition"

	face "github.com/Kagami/go-face"
	log "github.com/sirupsen/logrus"
)

// Model files the go-face recognizer expects in its models directory
var requiredModels = []string{
	"shape_predictor_5_face_landmarks.dat",
	"dlib_face_recognition_resnet_model_v1.dat",
	"mmod_human_face_detector.dat",
}

// Service wraps a go-face recognizer as a facerecognition.Encoder
type Service struct {
	cfg        config.RecognitionConfig
	recognizer *face.Recognizer
	mutex      sync.Mutex
}

// NewService loads the dlib models from cfg.ModelsDir
func NewService(cfg config.RecognitionConfig) (*Service, error) {
	for _, name := range requiredModels {
		path := filepath.Join(cfg.ModelsDir, name)
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("dlib model %s not found: %w", path, err)
		}
	}

	log.Infof("Loading dlib face models from %s (detector: %s)", cfg.ModelsDir, cfg.Detector)
	rec, err := face.NewRecognizer(cfg.ModelsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize dlib recognizer: %w", err)
	}
	log.Info("dlib face recognizer initialized")

	return &Service{cfg: cfg, recognizer: rec}, nil
}

// GetProviderName implements facerecognition.Encoder
func (s *Service) GetProviderName() facerecognition.ProviderType {
	return facerecognition.ProviderDlib
}

// Encode detects faces in JPEG or PNG bytes
func (s *Service) Encode(ctx context.Context, imgData []byte) ([]facerecognition.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mutex.Lock()
	var faces []face.Face
	var err error
	if s.cfg.Detector == config.DetectorCNN {
		faces, err = s.recognizer.RecognizeCNN(imgData)
	} else {
		faces, err = s.recognizer.Recognize(imgData)
	}
	s.mutex.Unlock()
	if err != nil {
		return nil, fmt.Errorf("dlib recognition failed: %w", err)
	}
	return toDetections(faces), nil
}

// EncodeFile detects faces in the image stored at path
func (s *Service) EncodeFile(ctx context.Context, path string) ([]facerecognition.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mutex.Lock()
	var faces []face.Face
	var err error
	if s.cfg.Detector == config.DetectorCNN {
		faces, err = s.recognizer.RecognizeFileCNN(path)
	} else {
		faces, err = s.recognizer.RecognizeFile(path)
	}
	s.mutex.Unlock()
	if err != nil {
		return nil, fmt.Errorf("dlib recognition failed for %s: %w", path, err)
	}
	return toDetections(faces), nil
}

// Close frees the recognizer
func (s *Service) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.recognizer != nil {
		s.recognizer.Close()
		s.recognizer = nil
	}
	return nil
}

func toDetections(faces []face.Face) []facerecognition.Detection {
	out := make([]facerecognition.Detection, len(faces))
	for i, f := range faces {
		enc := make(recognition.Encoding, len(f.Descriptor))
		for j, v := range f.Descriptor {
			enc[j] = float64(v)
		}
		out[i] = facerecognition.Detection{
			Box:      facerecognition.BoxFromRect(f.Rectangle),
			Encoding: enc,
		}
	}
	return out
}
