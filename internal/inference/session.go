// Package inference wraps the ONNX Runtime environment and sessions shared
// by the face detector, the landmark regressor and the emotion classifier.
package inference

import (
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"
)

var (
	initialized bool
	initMu      sync.Mutex
)

// Provider selects the execution provider appended to new sessions
type Provider string

const (
	ProviderCPU    Provider = "cpu"
	ProviderCoreML Provider = "coreml"
	ProviderCUDA   Provider = "cuda"
)

// ParseProvider validates a provider name
func ParseProvider(name string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(name)))
	switch p {
	case ProviderCPU, ProviderCoreML, ProviderCUDA:
		return p, nil
	case "":
		return ProviderCPU, nil
	}
	return "", fmt.Errorf("invalid execution provider: %s (use 'cpu', 'coreml' or 'cuda')", name)
}

// Options configure the runtime environment and its sessions
type Options struct {
	// LibraryPath points at the onnxruntime shared library; empty keeps the platform default
	LibraryPath string
	Provider    Provider
	Threads     int
}

var (
	sessionOpts Options
	logger      logrus.FieldLogger = logrus.StandardLogger()
)

// Initialize sets up ONNX Runtime environment (call once at startup)
func Initialize(opts Options, log logrus.FieldLogger) error {
	initMu.Lock()
	defer initMu.Unlock()

	if initialized {
		return nil
	}
	if log != nil {
		logger = log.WithField("component", "inference")
	}

	if opts.LibraryPath != "" {
		ort.SetSharedLibraryPath(opts.LibraryPath)
	}

	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX Runtime: %w", err)
	}

	sessionOpts = opts
	initialized = true
	logger.WithFields(logrus.Fields{"version": ort.GetVersion(), "provider": opts.Provider}).Info("onnxruntime ready")
	return nil
}

// Shutdown cleans up ONNX Runtime environment
func Shutdown() error {
	initMu.Lock()
	defer initMu.Unlock()

	if !initialized {
		return nil
	}

	if err := ort.DestroyEnvironment(); err != nil {
		return err
	}

	initialized = false
	return nil
}

// Session wraps an ONNX Runtime inference session
type Session struct {
	session     *ort.DynamicAdvancedSession
	modelPath   string
	inputNames  []string
	outputNames []string
}

// NewSession creates a new inference session from an ONNX model
func NewSession(modelPath string, inputNames, outputNames []string) (*Session, error) {
	initMu.Lock()
	ready, opts := initialized, sessionOpts
	initMu.Unlock()
	if !ready {
		return nil, fmt.Errorf("ONNX Runtime not initialized, call Initialize() first")
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer options.Destroy()

	if opts.Threads > 0 {
		if err := options.SetIntraOpNumThreads(opts.Threads); err != nil {
			return nil, fmt.Errorf("failed to set thread count: %w", err)
		}
	}
	appendProvider(options, opts.Provider, modelPath)

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		inputNames,
		outputNames,
		options,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session for %s: %w", modelPath, err)
	}

	return &Session{
		session:     session,
		modelPath:   modelPath,
		inputNames:  inputNames,
		outputNames: outputNames,
	}, nil
}

// appendProvider falls back to CPU when the requested provider is unavailable
func appendProvider(options *ort.SessionOptions, p Provider, modelPath string) {
	var err error
	switch p {
	case ProviderCoreML:
		err = options.AppendExecutionProviderCoreML(0)
	case ProviderCUDA:
		var cuda *ort.CUDAProviderOptions
		cuda, err = ort.NewCUDAProviderOptions()
		if err == nil {
			defer cuda.Destroy()
			err = options.AppendExecutionProviderCUDA(cuda)
		}
	default:
		logger.WithField("model", modelPath).Debug("session on cpu")
		return
	}

	if err != nil {
		logger.WithError(err).WithFields(logrus.Fields{"model": modelPath, "provider": p}).Warn("execution provider unavailable, using cpu")
		return
	}
	logger.WithFields(logrus.Fields{"model": modelPath, "provider": p}).Debug("session accelerated")
}

// Run executes inference with the given inputs
func (s *Session) Run(inputs []ort.Value, outputs []ort.Value) error {
	return s.session.Run(inputs, outputs)
}

// ModelPath returns the model file the session was created from
func (s *Session) ModelPath() string {
	return s.modelPath
}

// Destroy releases session resources
func (s *Session) Destroy() error {
	if s.session != nil {
		return s.session.Destroy()
	}
	return nil
}

// CreateEmptyTensor creates a zeroed tensor for output
func CreateEmptyTensor[T ort.TensorData](shape []int64) (*ort.Tensor[T], error) {
	return ort.NewEmptyTensor[T](ort.NewShape(shape...))
}
