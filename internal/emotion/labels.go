// Package emotion is an optional annotator that classifies the facial
// expression of the tracked face. It runs beside the control loop and has
// no influence on cursor movement or clicks.
package emotion

import (
	"fmt"
	"math"
)

// FERPlusLabels is the output order of the FER+ classifier
var FERPlusLabels = []string{
	"neutral", "happiness", "surprise", "sadness",
	"anger", "disgust", "fear", "contempt",
}

// Label is one classification result
type Label struct {
	Name       string
	Confidence float64
}

func (l Label) String() string {
	return fmt.Sprintf("%s %.0f%%", l.Name, l.Confidence*100)
}

// softmax converts raw scores into probabilities
func softmax(scores []float32) []float64 {
	if len(scores) == 0 {
		return nil
	}
	peak := math.Inf(-1)
	for _, s := range scores {
		peak = math.Max(peak, float64(s))
	}

	out := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		out[i] = math.Exp(float64(s) - peak)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// top returns the most likely label if it reaches minConfidence
func top(scores []float32, labels []string, minConfidence float64) (Label, bool) {
	probs := softmax(scores)
	best := -1
	for i, p := range probs {
		if i >= len(labels) {
			break
		}
		if best < 0 || p > probs[best] {
			best = i
		}
	}
	if best < 0 || probs[best] < minConfidence {
		return Label{}, false
	}
	return Label{Name: labels[best], Confidence: probs[best]}, true
}
