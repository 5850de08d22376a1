package detector

import (
	"fmt"
	"image"

	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"

	"github.com/dudu/gazecursor/internal/geom"
	"github.com/dudu/gazecursor/internal/inference"
	"github.com/dudu/gazecursor/internal/landmark"
)

// RegressorConfig describes a landmark regression model.
// The model takes a square RGB crop and emits Points (x, y) pairs in [-1, 1]
// relative to the crop, the layout used by the insightface 2d landmark models.
type RegressorConfig struct {
	ModelPath  string
	Points     int
	InputSize  int
	InputName  string
	OutputName string
	// CropScale enlarges the face box before cropping
	CropScale float64
}

// DefaultRegressorConfig returns the settings of the insightface-style 192px regressors
func DefaultRegressorConfig(modelPath string, points int) RegressorConfig {
	return RegressorConfig{
		ModelPath:  modelPath,
		Points:     points,
		InputSize:  192,
		InputName:  "data",
		OutputName: "fc1",
		CropScale:  1.5,
	}
}

// Regressor predicts landmark points inside a detected face box
type Regressor struct {
	session *inference.Session
	cfg     RegressorConfig
}

// NewRegressor creates a landmark regressor
func NewRegressor(cfg RegressorConfig) (*Regressor, error) {
	if cfg.Points <= 0 || cfg.InputSize <= 0 || cfg.CropScale <= 0 {
		return nil, fmt.Errorf("invalid regressor config: %d points, %dpx input, crop x%v", cfg.Points, cfg.InputSize, cfg.CropScale)
	}

	session, err := inference.NewSession(cfg.ModelPath, []string{cfg.InputName}, []string{cfg.OutputName})
	if err != nil {
		return nil, fmt.Errorf("failed to create landmark session: %w", err)
	}

	return &Regressor{session: session, cfg: cfg}, nil
}

// Detect fills face.Points for a face whose box is set
func (r *Regressor) Detect(img gocv.Mat, face *landmark.Face) error {
	crop := cropFor(face.Box, r.cfg.InputSize, r.cfg.CropScale)
	if crop.scale <= 0 {
		return fmt.Errorf("empty face box %+v", face.Box)
	}

	M := crop.matrix(r.cfg.InputSize)
	defer M.Close()

	aligned := gocv.NewMat()
	defer aligned.Close()
	gocv.WarpAffine(img, &aligned, M, image.Pt(r.cfg.InputSize, r.cfg.InputSize))

	// (x - 127.5) / 128, BGR -> RGB, HWC -> NCHW
	blob := gocv.BlobFromImage(aligned, 1.0/128.0, image.Pt(r.cfg.InputSize, r.cfg.InputSize),
		gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	defer blob.Close()

	floatData, err := blob.DataPtrFloat32()
	if err != nil {
		return fmt.Errorf("failed to read input blob: %w", err)
	}

	size := int64(r.cfg.InputSize)
	inputTensor, err := ort.NewTensor(ort.NewShape(1, 3, size, size), floatData)
	if err != nil {
		return fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputTensor, err := inference.CreateEmptyTensor[float32]([]int64{1, int64(r.cfg.Points * 2)})
	if err != nil {
		return fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer outputTensor.Destroy()

	if err := r.session.Run([]ort.Value{inputTensor}, []ort.Value{outputTensor}); err != nil {
		return fmt.Errorf("landmark inference failed: %w", err)
	}

	face.Points = crop.project(outputTensor.GetData(), r.cfg.Points, r.cfg.InputSize)
	return nil
}

// Close releases regressor resources
func (r *Regressor) Close() error {
	return r.session.Destroy()
}

// faceCrop is a square, unrotated crop centred on a face box
type faceCrop struct {
	centerX, centerY float64
	scale            float64
}

func cropFor(box landmark.BoundingBox, inputSize int, cropScale float64) faceCrop {
	maxDim := max(box.Width(), box.Height())
	if maxDim <= 0 {
		return faceCrop{}
	}
	c := box.Center()
	return faceCrop{
		centerX: c.X,
		centerY: c.Y,
		scale:   float64(inputSize) / (maxDim * cropScale),
	}
}

// matrix builds the 2x3 affine transform from frame to crop
func (c faceCrop) matrix(inputSize int) gocv.Mat {
	M := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F)
	half := float64(inputSize) / 2

	M.SetDoubleAt(0, 0, c.scale)
	M.SetDoubleAt(0, 1, 0)
	M.SetDoubleAt(0, 2, half-c.centerX*c.scale)
	M.SetDoubleAt(1, 0, 0)
	M.SetDoubleAt(1, 1, c.scale)
	M.SetDoubleAt(1, 2, half-c.centerY*c.scale)

	return M
}

// project maps model output in [-1, 1] crop space back to frame pixels
func (c faceCrop) project(output []float32, points, inputSize int) []geom.FramePoint {
	half := float64(inputSize) / 2
	n := min(points, len(output)/2)
	out := make([]geom.FramePoint, n)
	for i := range out {
		x := (float64(output[i*2]) + 1) * half
		y := (float64(output[i*2+1]) + 1) * half
		out[i] = geom.FramePoint{
			X: (x-half)/c.scale + c.centerX,
			Y: (y-half)/c.scale + c.centerY,
		}
	}
	return out
}
