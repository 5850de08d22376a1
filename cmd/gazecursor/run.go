package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gocv.io/x/gocv"

	"github.com/dudu/gazecursor/internal/camera"
	"github.com/dudu/gazecursor/internal/config"
	"github.com/dudu/gazecursor/internal/cursor"
	"github.com/dudu/gazecursor/internal/cursor/desktop"
	"github.com/dudu/gazecursor/internal/detector"
	"github.com/dudu/gazecursor/internal/emotion"
	"github.com/dudu/gazecursor/internal/geom"
	"github.com/dudu/gazecursor/internal/inference"
	"github.com/dudu/gazecursor/internal/logging"
	"github.com/dudu/gazecursor/internal/pipeline"
	"github.com/dudu/gazecursor/internal/telemetry"
	"github.com/dudu/gazecursor/internal/tracker"
	"github.com/dudu/gazecursor/internal/ui"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Track the eyes and drive the pointer",
	Long: `Opens the camera, follows the midpoint of both eyes with the pointer and
clicks on a held blink. Press space in the preview to pause the pointer,
q or ESC to quit.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, cfg, err := loadConfig(cmd.Flags())
		if err != nil {
			return err
		}

		log, err := logging.New(cfg.Logging)
		if err != nil {
			return err
		}

		updates := make(chan config.Config, 1)
		if v.ConfigFileUsed() != "" {
			config.Watch(v, log, updates)
		}

		return run(cfg, log, updates)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Int("camera", 0, "Camera device index")
	runCmd.Flags().String("backend", "", "Cursor backend: desktop or dryrun")
	runCmd.Flags().String("scheme", "", "Landmark scheme: ibug68 or mesh468")
	runCmd.Flags().String("metric", "", "Eye closure metric: ear or gap")
	runCmd.Flags().String("policy", "", "Click policy: counter or latch")
	runCmd.Flags().Float64("threshold", 0, "Openness ratio below which an eye counts as closed")
	runCmd.Flags().Int("frames", 0, "Consecutive closed frames needed for a click")
	runCmd.Flags().Bool("preview", true, "Show preview window")
	runCmd.Flags().Bool("emotion", false, "Annotate the preview with the detected emotion")
	runCmd.Flags().Bool("telemetry", false, "Stream tracker events over websocket")
}

func run(cfg config.Config, log *logrus.Logger, updates <-chan config.Config) error {
	log.Info("gazecursor starting")

	provider, err := inference.ParseProvider(cfg.Models.Provider)
	if err != nil {
		return err
	}
	if err := inference.Initialize(inference.Options{
		LibraryPath: cfg.Models.RuntimeLibrary,
		Provider:    provider,
		Threads:     cfg.Models.Threads,
	}, log); err != nil {
		return fmt.Errorf("failed to initialize inference: %w", err)
	}
	defer inference.Shutdown()

	act, err := newActuator(cfg.Cursor, log)
	if err != nil {
		return err
	}

	var opts []tracker.Option
	if cfg.Telemetry.Enabled {
		hub := telemetry.NewHub(cfg.Telemetry.AllowAnyOrigin, log)
		if err := hub.Start(cfg.Telemetry.Addr); err != nil {
			return fmt.Errorf("failed to start telemetry: %w", err)
		}
		defer hub.Close()
		opts = append(opts, tracker.WithSink(hub))
	}

	trk, err := tracker.New(cfg.TrackerConfig(), act, log, opts...)
	if err != nil {
		return fmt.Errorf("failed to create tracker: %w", err)
	}
	trk.SetEnabled(cfg.Cursor.Enabled)

	log.WithFields(logrus.Fields{
		"face":      cfg.Models.FaceDetector,
		"landmarks": cfg.Models.Landmarks,
		"scheme":    cfg.Tracking.Scheme,
	}).Info("loading models")
	ext, err := detector.New(detector.Config{
		FaceModelPath:     cfg.Models.FaceDetector,
		LandmarkModelPath: cfg.Models.Landmarks,
		Scheme:            cfg.Scheme(),
		DetectionSize:     cfg.Models.DetectionSize,
		ConfThreshold:     cfg.Models.ConfThreshold,
		NMSThreshold:      cfg.Models.NMSThreshold,
		MaxFaces:          1,
	})
	if err != nil {
		return fmt.Errorf("failed to create landmark extractor: %w", err)
	}

	var pipeOpts []pipeline.Option
	if cfg.Emotion.Enabled {
		cls, err := emotion.NewFERPlus(cfg.Emotion.Model, cfg.Emotion.InputName, cfg.Emotion.OutputName)
		if err != nil {
			ext.Close()
			return fmt.Errorf("failed to create emotion classifier: %w", err)
		}
		pipeOpts = append(pipeOpts, pipeline.WithAnnotator(emotion.NewAnnotator(cls, cfg.Emotion.MinConfidence, log)))
	}

	p, err := pipeline.New(ext, trk, pipeOpts...)
	if err != nil {
		ext.Close()
		return err
	}
	defer p.Close()
	log.Info("models loaded")

	cam, err := camera.NewCapture(camera.Config{
		DeviceID:        cfg.Camera.Device,
		Width:           cfg.Camera.Width,
		Height:          cfg.Camera.Height,
		TargetFPS:       cfg.Camera.FPS,
		Mirror:          cfg.Camera.Mirror,
		MaxReadFailures: cfg.Camera.MaxReadFailures,
	})
	if err != nil {
		return fmt.Errorf("failed to open camera: %w", err)
	}
	defer cam.Close()
	size := cam.Size()
	log.WithFields(logrus.Fields{"width": size.Width, "height": size.Height}).Info("camera opened")

	var window *ui.Window
	if cfg.Preview.Enabled {
		window = ui.NewWindow("gazecursor", cfg.Preview.Width, cfg.Preview.Height)
		defer window.Close()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	frame := gocv.NewMat()
	defer frame.Close()

	scheme := cfg.Scheme()
	log.Info("running, press q to quit")

	for {
		select {
		case <-sigChan:
			log.Info("shutting down")
			return nil
		case next := <-updates:
			if err := trk.SetTuning(next.Tuning()); err != nil {
				log.WithError(err).Warn("ignoring reloaded tracking settings")
			} else {
				log.WithField("tuning", fmt.Sprintf("%+v", next.Tuning())).Info("tracking settings reloaded")
			}
		default:
		}

		ok, err := cam.Read(&frame)
		if errors.Is(err, camera.ErrAcquisition) {
			log.WithError(err).Info("camera stopped delivering frames")
			return nil
		}
		if !ok {
			continue
		}

		res, err := p.Process(&frame)
		if err != nil {
			log.WithError(err).Warn("frame failed")
		}
		if res.Click {
			log.WithField("cursor", res.Cursor).Info("click")
		}

		timing := p.LastTiming()
		log.WithFields(logrus.Fields{
			"detect_ms": timing.Detection.Milliseconds(),
			"track_ms":  timing.Tracking.Milliseconds(),
			"ratio":     res.Ratio,
			"phase":     res.State.Phase,
		}).Debug("frame")

		if window == nil {
			continue
		}

		overlay := ui.Overlay{Result: res, Scheme: scheme, Paused: !trk.Enabled()}
		if label, ok := p.Emotion(); ok {
			overlay.Emotion = label.String()
		}
		ui.Draw(&frame, overlay)
		window.Show(&frame)

		// WaitKey must be called to process window events on macOS
		switch window.PollKey(1) {
		case ui.ActionQuit:
			log.Info("quitting")
			return nil
		case ui.ActionToggle:
			trk.SetEnabled(!trk.Enabled())
			log.WithField("enabled", trk.Enabled()).Info("pointer control toggled")
		}
	}
}

func newActuator(cfg config.CursorConfig, log logrus.FieldLogger) (cursor.Actuator, error) {
	backend, err := cursor.ParseBackend(cfg.Backend)
	if err != nil {
		return nil, err
	}
	if backend == cursor.BackendDryRun {
		size := geom.Size{Width: cfg.DryRunWidth, Height: cfg.DryRunHeight}
		return cursor.NewDryRun(size, log), nil
	}
	return desktop.New(cfg.Button), nil
}
