package emotion

import (
	"fmt"
	"image"

	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"

	"github.com/dudu/gazecursor/internal/inference"
)

// Classifier scores a face crop against a fixed label set
type Classifier interface {
	Classify(face gocv.Mat) ([]float32, error)
	Labels() []string
	Close() error
}

// FERPlus runs the FER+ expression model on 64x64 grayscale crops
type FERPlus struct {
	session   *inference.Session
	inputSize int
}

// NewFERPlus creates the classifier. inference.Initialize must have run.
func NewFERPlus(modelPath, inputName, outputName string) (*FERPlus, error) {
	session, err := inference.NewSession(modelPath, []string{inputName}, []string{outputName})
	if err != nil {
		return nil, fmt.Errorf("failed to create emotion session: %w", err)
	}
	return &FERPlus{session: session, inputSize: 64}, nil
}

// Classify returns one raw score per label
func (f *FERPlus) Classify(face gocv.Mat) ([]float32, error) {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(face, &gray, gocv.ColorBGRToGray)

	// FER+ expects raw 0..255 intensities
	blob := gocv.BlobFromImage(gray, 1.0, image.Pt(f.inputSize, f.inputSize),
		gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	data, err := blob.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read input blob: %w", err)
	}

	size := int64(f.inputSize)
	input, err := ort.NewTensor(ort.NewShape(1, 1, size, size), data)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer input.Destroy()

	output, err := inference.CreateEmptyTensor[float32]([]int64{1, int64(len(FERPlusLabels))})
	if err != nil {
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer output.Destroy()

	if err := f.session.Run([]ort.Value{input}, []ort.Value{output}); err != nil {
		return nil, fmt.Errorf("emotion inference failed: %w", err)
	}

	return append([]float32(nil), output.GetData()...), nil
}

// Labels returns the FER+ label order
func (f *FERPlus) Labels() []string {
	return FERPlusLabels
}

// Close releases classifier resources
func (f *FERPlus) Close() error {
	return f.session.Destroy()
}
