package emotion

import (
	"image"
	"sync"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/dudu/gazecursor/internal/landmark"
)

// Annotator classifies face crops on its own goroutine. Submit never
// blocks: while a crop is being classified, newer crops are dropped.
type Annotator struct {
	classifier    Classifier
	minConfidence float64
	log           logrus.FieldLogger

	jobs chan gocv.Mat
	done chan struct{}

	mu     sync.RWMutex
	latest Label
	ok     bool
}

// NewAnnotator starts the worker goroutine. The annotator owns classifier.
func NewAnnotator(classifier Classifier, minConfidence float64, log logrus.FieldLogger) *Annotator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	a := &Annotator{
		classifier:    classifier,
		minConfidence: minConfidence,
		log:           log.WithField("component", "emotion"),
		jobs:          make(chan gocv.Mat, 1),
		done:          make(chan struct{}),
	}
	go a.work()
	return a
}

// Submit queues the face region of frame for classification.
// It reports whether the crop was accepted.
func (a *Annotator) Submit(frame gocv.Mat, box landmark.BoundingBox) bool {
	rect := image.Rect(int(box.X1), int(box.Y1), int(box.X2), int(box.Y2)).
		Intersect(image.Rect(0, 0, frame.Cols(), frame.Rows()))
	if rect.Empty() {
		return false
	}

	region := frame.Region(rect)
	crop := region.Clone()
	region.Close()

	select {
	case a.jobs <- crop:
		return true
	default:
		crop.Close()
		return false
	}
}

// Latest returns the most recent confident label
func (a *Annotator) Latest() (Label, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.latest, a.ok
}

func (a *Annotator) work() {
	defer close(a.done)
	for crop := range a.jobs {
		scores, err := a.classifier.Classify(crop)
		crop.Close()
		if err != nil {
			a.log.WithError(err).Warn("emotion classification failed")
			a.mu.Lock()
			a.ok = false
			a.mu.Unlock()
			continue
		}

		label, ok := top(scores, a.classifier.Labels(), a.minConfidence)
		a.mu.Lock()
		a.latest, a.ok = label, ok
		a.mu.Unlock()
	}
}

// Close stops the worker and releases the classifier
func (a *Annotator) Close() error {
	close(a.jobs)
	<-a.done
	return a.classifier.Close()
}
