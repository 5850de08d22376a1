package ui

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/dudu/gazecursor/internal/geom"
	"github.com/dudu/gazecursor/internal/landmark"
	"github.com/dudu/gazecursor/internal/tracker"
)

var (
	colorLandmark = color.RGBA{G: 255, A: 255}
	colorCenter   = color.RGBA{B: 255, A: 255}
	colorGaze     = color.RGBA{R: 255, A: 255}
	colorText     = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	colorWarn     = color.RGBA{R: 255, G: 160, A: 255}
)

// Overlay is the diagnostic information drawn on a frame
type Overlay struct {
	Result  tracker.Result
	Scheme  landmark.Scheme
	Paused  bool
	Emotion string
}

// Draw renders eye landmarks, eye centres, the gaze anchor and status text
func Draw(frame *gocv.Mat, o Overlay) {
	res := o.Result
	if !res.FaceDetected {
		gocv.PutText(frame, "no face", image.Pt(10, 60), gocv.FontHersheyPlain, 1.5, colorWarn, 2)
		drawFooter(frame, o)
		return
	}

	for _, side := range []landmark.Side{landmark.Left, landmark.Right} {
		eye, err := res.Face.Eye(o.Scheme, side)
		if err != nil {
			continue
		}
		for _, p := range eye {
			gocv.Circle(frame, pt(p), 2, colorLandmark, -1)
		}
	}

	if res.Skipped {
		gocv.PutText(frame, "eyes not measurable", image.Pt(10, 60), gocv.FontHersheyPlain, 1.5, colorWarn, 2)
		drawFooter(frame, o)
		return
	}

	if res.Anchor.LeftOK {
		gocv.Circle(frame, pt(res.Anchor.LeftCenter), 5, colorCenter, -1)
	}
	if res.Anchor.RightOK {
		gocv.Circle(frame, pt(res.Anchor.RightCenter), 5, colorCenter, -1)
	}
	crosshair(frame, pt(res.Anchor.Point), 8, colorGaze)

	status := fmt.Sprintf("EAR %.3f %s -> (%d, %d)", res.Ratio, res.State.Phase, res.Cursor.X, res.Cursor.Y)
	if res.Click {
		status += " CLICK"
	}
	gocv.PutText(frame, status, image.Pt(10, 60), gocv.FontHersheyPlain, 1.5, colorText, 2)
	drawFooter(frame, o)
}

func drawFooter(frame *gocv.Mat, o Overlay) {
	y := frame.Rows() - 15
	if o.Paused {
		gocv.PutText(frame, "paused (space to resume)", image.Pt(10, y), gocv.FontHersheyPlain, 1.5, colorWarn, 2)
		y -= 25
	}
	if o.Emotion != "" {
		gocv.PutText(frame, o.Emotion, image.Pt(10, y), gocv.FontHersheyPlain, 1.5, colorText, 2)
	}
}

func crosshair(frame *gocv.Mat, c image.Point, size int, col color.RGBA) {
	gocv.Line(frame, image.Pt(c.X-size, c.Y), image.Pt(c.X+size, c.Y), col, 2)
	gocv.Line(frame, image.Pt(c.X, c.Y-size), image.Pt(c.X, c.Y+size), col, 2)
}

func pt(p geom.FramePoint) image.Point {
	return image.Pt(int(p.X), int(p.Y))
}
