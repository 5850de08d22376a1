package detector

import (
	"fmt"
	"image"
	"math"

	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"

	"github.com/dudu/gazecursor/internal/inference"
	"github.com/dudu/gazecursor/internal/landmark"
)

// SCRFD finds face boxes with the SCRFD detector
type SCRFD struct {
	session        *inference.Session
	inputSize      int
	confThreshold  float32
	nmsThreshold   float32
	featureStrides []int
	numAnchors     int
}

// NewSCRFD creates a new SCRFD detector
func NewSCRFD(modelPath string, inputSize int, confThreshold, nmsThreshold float32) (*SCRFD, error) {
	if inputSize <= 0 || inputSize%32 != 0 {
		return nil, fmt.Errorf("detection size %d must be a positive multiple of 32", inputSize)
	}

	// 1 input and 9 outputs (3 levels x score, bbox, kps)
	inputNames := []string{"input.1"}
	outputNames := []string{
		"score_8", "score_16", "score_32",
		"bbox_8", "bbox_16", "bbox_32",
		"kps_8", "kps_16", "kps_32",
	}

	session, err := inference.NewSession(modelPath, inputNames, outputNames)
	if err != nil {
		return nil, fmt.Errorf("failed to create SCRFD session: %w", err)
	}

	return &SCRFD{
		session:        session,
		inputSize:      inputSize,
		confThreshold:  confThreshold,
		nmsThreshold:   nmsThreshold,
		featureStrides: []int{8, 16, 32},
		numAnchors:     2,
	}, nil
}

// Detect finds faces in an image. Returned faces carry a box and score only.
func (s *SCRFD) Detect(img gocv.Mat) ([]landmark.Face, error) {
	if img.Empty() {
		return nil, nil
	}
	origHeight := img.Rows()
	origWidth := img.Cols()

	inputBlob, scale := s.preprocess(img)
	defer inputBlob.Close()

	floatData, err := inputBlob.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read input blob: %w", err)
	}

	inputTensor, err := ort.NewTensor(
		ort.NewShape(1, 3, int64(s.inputSize), int64(s.inputSize)),
		floatData,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputs := make([]ort.Value, 9)
	outputTensors := make([]*ort.Tensor[float32], 0, 9)
	defer func() {
		for _, t := range outputTensors {
			t.Destroy()
		}
	}()

	widths := []int64{1, 4, 10}
	for kind, width := range widths {
		for level, stride := range s.featureStrides {
			fm := s.inputSize / stride
			anchors := int64(fm * fm * s.numAnchors)
			t, err := inference.CreateEmptyTensor[float32]([]int64{anchors, width})
			if err != nil {
				return nil, fmt.Errorf("failed to create output tensor: %w", err)
			}
			outputs[kind*3+level] = t
			outputTensors = append(outputTensors, t)
		}
	}

	if err := s.session.Run([]ort.Value{inputTensor}, outputs); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	levels := make([]levelOutput, len(s.featureStrides))
	for level, stride := range s.featureStrides {
		levels[level] = levelOutput{
			stride: stride,
			scores: outputTensors[level].GetData(),
			boxes:  outputTensors[level+3].GetData(),
		}
	}

	faces := decodeBoxes(levels, s.inputSize, s.numAnchors, s.confThreshold, scale, origWidth, origHeight)
	return nms(faces, s.nmsThreshold), nil
}

// preprocess letterboxes the image into the model input and normalizes it
func (s *SCRFD) preprocess(img gocv.Mat) (gocv.Mat, float32) {
	height := img.Rows()
	width := img.Cols()

	scale := float32(s.inputSize) / float32(max(height, width))

	newWidth := int(float32(width) * scale)
	newHeight := int(float32(height) * scale)

	resized := gocv.NewMat()
	gocv.Resize(img, &resized, image.Pt(newWidth, newHeight), 0, 0, gocv.InterpolationLinear)

	padded := gocv.NewMatWithSize(s.inputSize, s.inputSize, gocv.MatTypeCV8UC3)
	padded.SetTo(gocv.NewScalar(0, 0, 0, 0))

	roi := padded.Region(image.Rect(0, 0, newWidth, newHeight))
	resized.CopyTo(&roi)
	roi.Close()
	resized.Close()

	// (x - 127.5) / 128, BGR -> RGB, HWC -> NCHW
	blob := gocv.BlobFromImage(padded, 1.0/128.0, image.Pt(s.inputSize, s.inputSize),
		gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	padded.Close()

	return blob, scale
}

// levelOutput holds the raw outputs of one feature stride
type levelOutput struct {
	stride int
	scores []float32
	boxes  []float32
}

// decodeBoxes turns anchor distances into frame-space boxes above the threshold
func decodeBoxes(levels []levelOutput, inputSize, numAnchors int, confThreshold, scale float32, origWidth, origHeight int) []landmark.Face {
	var faces []landmark.Face

	for _, lv := range levels {
		fm := inputSize / lv.stride
		stride := float32(lv.stride)

		anchorIdx := 0
		for y := 0; y < fm; y++ {
			for x := 0; x < fm; x++ {
				for a := 0; a < numAnchors; a++ {
					if anchorIdx >= len(lv.scores) || anchorIdx*4+3 >= len(lv.boxes) {
						return faces
					}
					score := lv.scores[anchorIdx]
					if score > confThreshold {
						// SCRFD anchors sit on the grid corner, distances are in stride units
						cx := float32(x) * stride
						cy := float32(y) * stride
						b := lv.boxes[anchorIdx*4:]

						faces = append(faces, landmark.Face{
							Box: landmark.BoundingBox{
								X1: float64(clamp((cx-b[0]*stride)/scale, 0, float32(origWidth))),
								Y1: float64(clamp((cy-b[1]*stride)/scale, 0, float32(origHeight))),
								X2: float64(clamp((cx+b[2]*stride)/scale, 0, float32(origWidth))),
								Y2: float64(clamp((cy+b[3]*stride)/scale, 0, float32(origHeight))),
							},
							Score: float64(score),
						})
					}
					anchorIdx++
				}
			}
		}
	}

	return faces
}

// Close releases detector resources
func (s *SCRFD) Close() error {
	return s.session.Destroy()
}

func clamp(x, lo, hi float32) float32 {
	return float32(math.Min(math.Max(float64(x), float64(lo)), float64(hi)))
}
