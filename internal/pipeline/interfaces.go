package pipeline

import (
	"gocv.io/x/gocv"

	"github.com/dudu/gazecursor/internal/emotion"
	"github.com/dudu/gazecursor/internal/geom"
	"github.com/dudu/gazecursor/internal/landmark"
	"github.com/dudu/gazecursor/internal/tracker"
)

// Extractor finds faces and their landmarks in a frame
type Extractor interface {
	Detect(img gocv.Mat) ([]landmark.Face, error)
	Close() error
}

// Observer turns landmarks into cursor motion and clicks
type Observer interface {
	Observe(faces []landmark.Face, frame geom.Size) (tracker.Result, error)
}

// Annotator receives face crops for background classification
type Annotator interface {
	Submit(frame gocv.Mat, box landmark.BoundingBox) bool
	Latest() (emotion.Label, bool)
	Close() error
}
