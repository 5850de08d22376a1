// Package detector is the landmark extractor adapter: it finds faces in a
// frame and returns their landmark points in frame-pixel space.
package detector

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/dudu/gazecursor/internal/landmark"
)

// FaceDetector finds face boxes
type FaceDetector interface {
	Detect(img gocv.Mat) ([]landmark.Face, error)
	Close() error
}

// LandmarkDetector fills the landmark points of one face
type LandmarkDetector interface {
	Detect(img gocv.Mat, face *landmark.Face) error
	Close() error
}

// Config holds extractor configuration
type Config struct {
	FaceModelPath     string
	LandmarkModelPath string
	Scheme            landmark.Scheme
	DetectionSize     int
	ConfThreshold     float32
	NMSThreshold      float32
	// MaxFaces caps how many faces get landmarks, best scores first
	MaxFaces int
}

// Extractor runs face detection followed by landmark regression
type Extractor struct {
	faces     FaceDetector
	landmarks LandmarkDetector
	scheme    landmark.Scheme
	maxFaces  int
}

// New creates an extractor from ONNX models. inference.Initialize must have run.
func New(cfg Config) (*Extractor, error) {
	faces, err := NewSCRFD(cfg.FaceModelPath, cfg.DetectionSize, cfg.ConfThreshold, cfg.NMSThreshold)
	if err != nil {
		return nil, err
	}

	landmarks, err := NewRegressor(DefaultRegressorConfig(cfg.LandmarkModelPath, cfg.Scheme.Points))
	if err != nil {
		faces.Close()
		return nil, err
	}

	return NewWithDetectors(faces, landmarks, cfg.Scheme, cfg.MaxFaces), nil
}

// NewWithDetectors assembles an extractor from existing stages
func NewWithDetectors(faces FaceDetector, landmarks LandmarkDetector, scheme landmark.Scheme, maxFaces int) *Extractor {
	if maxFaces <= 0 {
		maxFaces = 1
	}
	return &Extractor{faces: faces, landmarks: landmarks, scheme: scheme, maxFaces: maxFaces}
}

// Detect returns the faces in img with their landmarks. No faces yields an empty slice.
func (e *Extractor) Detect(img gocv.Mat) ([]landmark.Face, error) {
	found, err := e.faces.Detect(img)
	if err != nil {
		return nil, fmt.Errorf("detection failed: %w", err)
	}
	if len(found) > e.maxFaces {
		found = found[:e.maxFaces]
	}

	out := make([]landmark.Face, 0, len(found))
	for i := range found {
		if err := e.landmarks.Detect(img, &found[i]); err != nil {
			return nil, fmt.Errorf("landmarks for face %d: %w", i, err)
		}
		if len(found[i].Points) < e.scheme.Points {
			return nil, fmt.Errorf("landmark model returned %d points, scheme %s needs %d",
				len(found[i].Points), e.scheme.Name, e.scheme.Points)
		}
		out = append(out, found[i])
	}
	return out, nil
}

// Close releases both stages
func (e *Extractor) Close() error {
	var errs []error
	if err := e.faces.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := e.landmarks.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("cleanup errors: %v", errs)
	}
	return nil
}
