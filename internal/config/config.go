// Package config loads gazecursor settings from defaults, an optional YAML
// file, GAZECURSOR_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/dudu/gazecursor/internal/blink"
	"github.com/dudu/gazecursor/internal/cursor"
	"github.com/dudu/gazecursor/internal/inference"
	"github.com/dudu/gazecursor/internal/landmark"
	"github.com/dudu/gazecursor/internal/tracker"
)

// EnvPrefix prefixes environment overrides, e.g. GAZECURSOR_TRACKING_EAR_THRESHOLD
const EnvPrefix = "GAZECURSOR"

// Config is the top-level configuration structure.
type Config struct {
	Camera    CameraConfig    `mapstructure:"camera" json:"camera"`
	Models    ModelsConfig    `mapstructure:"models" json:"models"`
	Tracking  TrackingConfig  `mapstructure:"tracking" json:"tracking"`
	Cursor    CursorConfig    `mapstructure:"cursor" json:"cursor"`
	Emotion   EmotionConfig   `mapstructure:"emotion" json:"emotion"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" json:"telemetry"`
	Preview   PreviewConfig   `mapstructure:"preview" json:"preview"`
	Logging   LoggingConfig   `mapstructure:"logging" json:"logging"`
}

// CameraConfig holds capture settings.
type CameraConfig struct {
	Device          int  `mapstructure:"device" json:"device"`
	Width           int  `mapstructure:"width" json:"width"`
	Height          int  `mapstructure:"height" json:"height"`
	FPS             int  `mapstructure:"fps" json:"fps"`
	Mirror          bool `mapstructure:"mirror" json:"mirror"`
	MaxReadFailures int  `mapstructure:"max_read_failures" json:"max_read_failures"`
}

// ModelsConfig locates the ONNX models and runtime.
type ModelsConfig struct {
	RuntimeLibrary string  `mapstructure:"runtime_library" json:"runtime_library"`
	Provider       string  `mapstructure:"provider" json:"provider"`
	Threads        int     `mapstructure:"threads" json:"threads"`
	FaceDetector   string  `mapstructure:"face_detector" json:"face_detector"`
	Landmarks      string  `mapstructure:"landmarks" json:"landmarks"`
	DetectionSize  int     `mapstructure:"detection_size" json:"detection_size"`
	ConfThreshold  float32 `mapstructure:"conf_threshold" json:"conf_threshold"`
	NMSThreshold   float32 `mapstructure:"nms_threshold" json:"nms_threshold"`
}

// TrackingConfig holds the eye metric and click debounce settings.
type TrackingConfig struct {
	Scheme        string        `mapstructure:"scheme" json:"scheme"`
	Metric        string        `mapstructure:"metric" json:"metric"`
	EARThreshold  float64       `mapstructure:"ear_threshold" json:"ear_threshold"`
	GapThreshold  float64       `mapstructure:"gap_threshold" json:"gap_threshold"`
	ConsecFrames  int           `mapstructure:"consec_frames" json:"consec_frames"`
	Policy        string        `mapstructure:"policy" json:"policy"`
	ClickCooldown time.Duration `mapstructure:"click_cooldown" json:"click_cooldown"`
	Smoothing     float64       `mapstructure:"smoothing" json:"smoothing"`
}

// CursorConfig selects how the pointer is driven.
type CursorConfig struct {
	Backend string `mapstructure:"backend" json:"backend"`
	Button  string `mapstructure:"button" json:"button"`
	Enabled bool   `mapstructure:"enabled" json:"enabled"`
	// DryRunWidth and DryRunHeight are the screen size reported by the dry-run backend
	DryRunWidth  int `mapstructure:"dryrun_width" json:"dryrun_width"`
	DryRunHeight int `mapstructure:"dryrun_height" json:"dryrun_height"`
}

// EmotionConfig holds the optional emotion annotator settings.
type EmotionConfig struct {
	Enabled       bool    `mapstructure:"enabled" json:"enabled"`
	Model         string  `mapstructure:"model" json:"model"`
	InputName     string  `mapstructure:"input_name" json:"input_name"`
	OutputName    string  `mapstructure:"output_name" json:"output_name"`
	MinConfidence float64 `mapstructure:"min_confidence" json:"min_confidence"`
}

// TelemetryConfig holds the websocket event stream settings.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled" json:"enabled"`
	Addr           string `mapstructure:"addr" json:"addr"`
	AllowAnyOrigin bool   `mapstructure:"allow_any_origin" json:"allow_any_origin"`
}

// PreviewConfig controls the preview window.
type PreviewConfig struct {
	Enabled bool `mapstructure:"enabled" json:"enabled"`
	Width   int  `mapstructure:"width" json:"width"`
	Height  int  `mapstructure:"height" json:"height"`
}

// LoggingConfig holds settings for the logger.
type LoggingConfig struct {
	Level      string `mapstructure:"level" json:"level"`
	File       string `mapstructure:"file" json:"file"`
	MaxSize    int    `mapstructure:"max_size" json:"max_size"`
	MaxBackups int    `mapstructure:"max_backups" json:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" json:"max_age"`
	Compress   bool   `mapstructure:"compress" json:"compress"`
	NoColors   bool   `mapstructure:"no_colors" json:"no_colors"`
}

// setDefaults sets the default values for the configuration.
func setDefaults(v *viper.Viper) {
	v.SetDefault("camera.device", 0)
	v.SetDefault("camera.width", 640)
	v.SetDefault("camera.height", 480)
	v.SetDefault("camera.fps", 30)
	v.SetDefault("camera.mirror", true)
	v.SetDefault("camera.max_read_failures", 1)

	v.SetDefault("models.runtime_library", "")
	v.SetDefault("models.provider", "cpu")
	v.SetDefault("models.threads", 0)
	v.SetDefault("models.face_detector", "models/scrfd_2.5g.onnx")
	v.SetDefault("models.landmarks", "models/landmark_68.onnx")
	v.SetDefault("models.detection_size", 320)
	v.SetDefault("models.conf_threshold", 0.5)
	v.SetDefault("models.nms_threshold", 0.4)

	v.SetDefault("tracking.scheme", landmark.IBUG68.Name)
	v.SetDefault("tracking.metric", string(tracker.MetricEAR))
	v.SetDefault("tracking.ear_threshold", 0.2)
	v.SetDefault("tracking.gap_threshold", 0.004)
	v.SetDefault("tracking.consec_frames", 3)
	v.SetDefault("tracking.policy", blink.PolicyCounter)
	v.SetDefault("tracking.click_cooldown", "0s")
	v.SetDefault("tracking.smoothing", 0.0)

	v.SetDefault("cursor.backend", string(cursor.BackendDesktop))
	v.SetDefault("cursor.button", "left")
	v.SetDefault("cursor.enabled", true)
	v.SetDefault("cursor.dryrun_width", 1920)
	v.SetDefault("cursor.dryrun_height", 1080)

	v.SetDefault("emotion.enabled", false)
	v.SetDefault("emotion.model", "models/emotion-ferplus-8.onnx")
	v.SetDefault("emotion.input_name", "Input3")
	v.SetDefault("emotion.output_name", "Plus692_Output_0")
	v.SetDefault("emotion.min_confidence", 0.2)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.addr", "127.0.0.1:8765")
	v.SetDefault("telemetry.allow_any_origin", false)

	v.SetDefault("preview.enabled", true)
	v.SetDefault("preview.width", 960)
	v.SetDefault("preview.height", 720)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size", 10)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 7)
	v.SetDefault("logging.compress", true)
	v.SetDefault("logging.no_colors", false)
}

// New returns a viper instance with defaults, file search paths and
// environment binding set up. Flags may be bound to it before Load.
func New(path string) *viper.Viper {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("config")
		v.SetConfigName("gazecursor")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the configuration file if present and decodes the result.
// A missing file is fine when no explicit path was given.
func Load(v *viper.Viper) (Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return decode(v)
}

func decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail deep inside the pipeline.
func (c Config) Validate() error {
	var errs []error

	if _, err := landmark.Lookup(c.Tracking.Scheme); err != nil {
		errs = append(errs, err)
	}
	if _, err := tracker.ParseMetric(c.Tracking.Metric); err != nil {
		errs = append(errs, err)
	}
	if _, err := blink.NewPolicy(c.Tracking.Policy, c.Tracking.ConsecFrames); err != nil {
		errs = append(errs, err)
	}
	if c.Tracking.EARThreshold <= 0 || c.Tracking.EARThreshold >= 1 {
		errs = append(errs, fmt.Errorf("tracking.ear_threshold %v outside (0, 1)", c.Tracking.EARThreshold))
	}
	if c.Tracking.GapThreshold <= 0 {
		errs = append(errs, fmt.Errorf("tracking.gap_threshold must be positive, got %v", c.Tracking.GapThreshold))
	}
	if c.Tracking.Smoothing < 0 || c.Tracking.Smoothing > 1 {
		errs = append(errs, fmt.Errorf("tracking.smoothing %v outside [0, 1]", c.Tracking.Smoothing))
	}
	if c.Tracking.ClickCooldown < 0 {
		errs = append(errs, fmt.Errorf("tracking.click_cooldown must not be negative, got %v", c.Tracking.ClickCooldown))
	}
	if _, err := cursor.ParseBackend(c.Cursor.Backend); err != nil {
		errs = append(errs, err)
	}
	if _, err := inference.ParseProvider(c.Models.Provider); err != nil {
		errs = append(errs, err)
	}
	if c.Models.DetectionSize <= 0 || c.Models.DetectionSize%32 != 0 {
		errs = append(errs, fmt.Errorf("models.detection_size %d must be a positive multiple of 32", c.Models.DetectionSize))
	}
	if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}

	return errors.Join(errs...)
}

// Scheme returns the configured landmark scheme
func (c Config) Scheme() landmark.Scheme {
	s, _ := landmark.Lookup(c.Tracking.Scheme)
	return s
}

// TrackerConfig converts the tracking section for tracker.New
func (c Config) TrackerConfig() tracker.Config {
	return tracker.Config{
		Scheme: c.Scheme(),
		Metric: tracker.Metric(strings.ToLower(strings.TrimSpace(c.Tracking.Metric))),
		Tuning: c.Tuning(),
	}
}

// Tuning returns the hot-reloadable part of the tracking section
func (c Config) Tuning() tracker.Tuning {
	return tracker.Tuning{
		EARThreshold: c.Tracking.EARThreshold,
		GapThreshold: c.Tracking.GapThreshold,
		ConsecFrames: c.Tracking.ConsecFrames,
		Policy:       c.Tracking.Policy,
		Cooldown:     c.Tracking.ClickCooldown,
		Smoothing:    c.Tracking.Smoothing,
	}
}

// Watch reloads the file on change and sends each valid configuration to
// updates without blocking; a pending unread update is replaced.
func Watch(v *viper.Viper, log logrus.FieldLogger, updates chan Config) {
	v.OnConfigChange(func(e fsnotify.Event) {
		log.WithField("file", e.Name).Info("configuration file changed, reloading")
		cfg, err := decode(v)
		if err != nil {
			log.WithError(err).Error("error reloading configuration")
			return
		}
		for {
			select {
			case updates <- cfg:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	})
	v.WatchConfig()
}
