package main

var (
	verbose    bool
	configPath string
)

// runFlags maps run command flags onto configuration keys
var runFlags = map[string]string{
	"camera":    "camera.device",
	"backend":   "cursor.backend",
	"scheme":    "tracking.scheme",
	"metric":    "tracking.metric",
	"policy":    "tracking.policy",
	"threshold": "tracking.ear_threshold",
	"frames":    "tracking.consec_frames",
	"preview":   "preview.enabled",
	"emotion":   "emotion.enabled",
	"telemetry": "telemetry.enabled",
}
