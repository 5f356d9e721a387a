// Package onnx runs the canonical tensor through an ONNX model with ONNX Runtime.
package onnx

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/menta2k/region-tensor/pkg/types"
)

// Config holds the parameters to open an ONNX model
type Config struct {
	// Required
	ModelPath          string // .onnx file
	OnnxRuntimeLibPath string // onnxruntime shared library (.so, .dylib or .dll)

	// Optional
	InputName  string // defaults to the model's first input
	OutputName string // defaults to the model's first output
	Side       int    // input/output edge length, defaults to types.Side
	UseCuda    bool
	NumThreads int // intra-op threads, 0 lets the runtime decide
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() Config {
	return Config{
		ModelPath:          "./weights/model.onnx",
		OnnxRuntimeLibPath: DefaultLibraryPath(),
		Side:               types.Side,
	}
}

var (
	initErr  error
	initOnce sync.Once
)

// initEnvironment loads the runtime library once per process
func initEnvironment(libPath string) error {
	initOnce.Do(func() {
		ort.SetSharedLibraryPath(libPath)
		initErr = ort.InitializeEnvironment()
	})
	if initErr != nil {
		return fmt.Errorf("failed to initialize ONNX Runtime: %w", initErr)
	}
	return nil
}

// Engine owns one ONNX session. Runs are serialized.
type Engine struct {
	mu      sync.Mutex
	session *ort.DynamicAdvancedSession
	options *ort.SessionOptions
	config  Config
}

// NewEngine initializes the runtime and opens cfg.ModelPath
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("model path must not be empty")
	}
	if cfg.OnnxRuntimeLibPath == "" {
		return nil, fmt.Errorf("onnxruntime library path must not be empty")
	}
	if cfg.Side <= 0 {
		cfg.Side = types.Side
	}

	if err := initEnvironment(cfg.OnnxRuntimeLibPath); err != nil {
		return nil, err
	}

	if cfg.InputName == "" || cfg.OutputName == "" {
		inputs, outputs, err := ort.GetInputOutputInfo(cfg.ModelPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read model info: %w", err)
		}
		if len(inputs) == 0 || len(outputs) == 0 {
			return nil, fmt.Errorf("model %s has no inputs or outputs", cfg.ModelPath)
		}
		if cfg.InputName == "" {
			cfg.InputName = inputs[0].Name
		}
		if cfg.OutputName == "" {
			cfg.OutputName = outputs[0].Name
		}
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	if cfg.NumThreads > 0 {
		if err := options.SetIntraOpNumThreads(cfg.NumThreads); err != nil {
			options.Destroy()
			return nil, err
		}
	}
	if cfg.UseCuda {
		cudaOptions, err := ort.NewCUDAProviderOptions()
		if err != nil {
			options.Destroy()
			return nil, fmt.Errorf("failed to create CUDA provider options: %w", err)
		}
		defer cudaOptions.Destroy()
		if err := options.AppendExecutionProviderCUDA(cudaOptions); err != nil {
			options.Destroy()
			return nil, fmt.Errorf("failed to enable CUDA: %w", err)
		}
	}

	session, err := ort.NewDynamicAdvancedSession(
		cfg.ModelPath,
		[]string{cfg.InputName},
		[]string{cfg.OutputName},
		options,
	)
	if err != nil {
		options.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &Engine{
		session: session,
		options: options,
		config:  cfg,
	}, nil
}

// Infer feeds a [1,1,side,side] float32 tensor and returns the flattened output
func (e *Engine) Infer(ctx context.Context, in types.Tensor) (types.Tensor, error) {
	want := e.config.Side * e.config.Side
	if len(in) != want {
		return nil, fmt.Errorf("%w: input has %d samples, want %d", types.ErrShapeMismatch, len(in), want)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return nil, fmt.Errorf("engine is destroyed")
	}

	side := int64(e.config.Side)
	input, err := ort.NewTensor(ort.NewShape(1, 1, side, side), []float32(in.Clone()))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer input.Destroy()

	outputs := []ort.Value{nil}
	if err := e.session.Run([]ort.Value{input}, outputs); err != nil {
		return nil, fmt.Errorf("onnx run failed: %w", err)
	}
	defer outputs[0].Destroy()

	output, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output type %T", outputs[0])
	}

	// the runtime owns the output buffer until Destroy
	data := output.GetData()
	out := make(types.Tensor, len(data))
	copy(out, data)
	return out, nil
}

// Destroy releases the session
func (e *Engine) Destroy() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session != nil {
		if err := e.session.Destroy(); err != nil {
			return fmt.Errorf("failed to destroy ONNX session: %w", err)
		}
		e.session = nil
	}
	if e.options != nil {
		e.options.Destroy()
		e.options = nil
	}
	return nil
}

// DefaultLibraryPath picks the runtime library name for the current platform
func DefaultLibraryPath() string {
	baseDir := "./lib/"
	libName := "onnxruntime"

	if runtime.GOOS == "windows" {
		return baseDir + libName + ".dll"
	}

	var ext string
	switch runtime.GOOS {
	case "darwin":
		ext = "dylib"
	case "linux":
		ext = "so"
	default:
		return baseDir + libName + "_amd64.so"
	}

	return fmt.Sprintf("%s%s_%s.%s", baseDir, libName, runtime.GOARCH, ext)
}
