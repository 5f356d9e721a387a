package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	regiontensor "github.com/menta2k/region-tensor"
	"github.com/menta2k/region-tensor/internal/config"
	"github.com/menta2k/region-tensor/internal/utils"
	"github.com/menta2k/region-tensor/pkg/cropper"
	"github.com/menta2k/region-tensor/pkg/imageio"
	"github.com/menta2k/region-tensor/pkg/model"
	"github.com/menta2k/region-tensor/pkg/onnx"
	"github.com/menta2k/region-tensor/pkg/pipeline"
	"github.com/menta2k/region-tensor/pkg/preprocess"
	"github.com/menta2k/region-tensor/pkg/remote"
	"github.com/menta2k/region-tensor/pkg/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// tensorDump is the layout of tensor.json
type tensorDump struct {
	Source     string           `json:"source"`
	SourceRect types.SourceRect `json:"source_rect"`
	Shape      []int            `json:"shape"`
	Input      []float32        `json:"input"`
	Output     []float32        `json:"output,omitempty"`
}

func main() {
	var in, mimeType, container, selection string
	var backend, modelPath, ortLib, url string
	var outDir, ext, configPath, filter string
	var quality int
	var lossless, debug, skipInfer bool

	flag.StringVar(&in, "in", "", "input image path (jpg/png/gif/bmp/tiff/webp)")
	flag.StringVar(&mimeType, "mime", "", "declared MIME type, sniffed from content when empty")
	flag.StringVar(&container, "container", "", "display container size WxH (default from config)")
	flag.StringVar(&selection, "select", "", "selection corners x0,y0,x1,y1 in display coordinates (default: whole display)")

	flag.StringVar(&backend, "backend", "", "model backend: identity|invert|onnx|remote")
	flag.StringVar(&modelPath, "model", "", "ONNX model path")
	flag.StringVar(&ortLib, "ortlib", "", "onnxruntime shared library path")
	flag.StringVar(&url, "url", "", "remote inference server URL")
	flag.BoolVar(&skipInfer, "noinfer", false, "stop after preprocessing")

	flag.StringVar(&outDir, "out", "", "output directory")
	flag.StringVar(&ext, "ext", "", "output format: png|jpg|webp")
	flag.IntVar(&quality, "quality", 0, "JPEG/WebP output quality (1-100)")
	flag.BoolVar(&lossless, "lossless", false, "WebP output lossless mode")
	flag.StringVar(&filter, "filter", "", "resampling filter: catmullrom|lanczos|box|linear|mitchell")

	flag.StringVar(&configPath, "config", "", "config file (default "+config.GetConfigPath()+" when present)")
	flag.BoolVar(&debug, "debug", false, "enable debug logging")
	flag.Parse()

	logger := initLogger(debug)

	if in == "" {
		logger.Fatalf("usage: %s -in input.png [-container 800x600] [-select x0,y0,x1,y1] [-backend identity|invert|onnx|remote] [-out outdir] [-ext png|jpg|webp]", filepath.Base(os.Args[0]))
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	// Flags override the config file
	if backend != "" {
		cfg.Model.Backend = backend
	}
	if modelPath != "" {
		cfg.Model.ModelPath = modelPath
	}
	if ortLib != "" {
		cfg.Model.RuntimeLibPath = ortLib
	}
	if url != "" {
		cfg.Model.URL = url
	}
	if outDir != "" {
		cfg.Output.OutputDir = outDir
	}
	if ext != "" {
		cfg.Output.DefaultFormat = strings.ToLower(ext)
	}
	if quality != 0 {
		cfg.Output.Quality = quality
	}
	if lossless {
		cfg.Output.Lossless = true
	}
	if filter != "" {
		cfg.Pipeline.Filter = filter
	}
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}

	containerW, containerH := cfg.Pipeline.MaxDisplayWidth, cfg.Pipeline.MaxDisplayHeight
	if container != "" {
		containerW, containerH, err = parseSize(container)
		if err != nil {
			logger.WithError(err).Fatal("Invalid -container")
		}
	}

	logger.WithFields(logrus.Fields{
		"version": regiontensor.Version,
		"backend": cfg.Model.Backend,
		"filter":  cfg.Pipeline.Filter,
		"side":    cfg.Pipeline.Side,
	}).Info("Starting region-tensor")

	m, closeModel, err := newModel(cfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create model backend")
	}
	defer closeModel()

	// Keep the raw model output for tensor.json
	var output types.Tensor
	recorder := model.Func(func(ctx context.Context, in types.Tensor) (types.Tensor, error) {
		out, err := m.Infer(ctx, in)
		if err == nil {
			output = out
		}
		return out, err
	})

	surfaces := pipeline.Surfaces{
		Display:      pipeline.NewMemorySurface(),
		Preprocessed: pipeline.NewMemorySurface(),
		Result:       pipeline.NewMemorySurface(),
	}
	session, err := pipeline.NewWithConfig(pipelineConfig(cfg), recorder, surfaces, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create session")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	data, detected, err := imageio.LoadFile(in)
	if err != nil {
		logger.WithError(err).Fatal("Failed to read input")
	}
	if mimeType == "" {
		mimeType = detected
	}
	logger.WithFields(logrus.Fields{
		"path": in,
		"mime": mimeType,
		"size": utils.FormatFileSize(int64(len(data))),
	}).Debug("Read input file")

	if err := session.Load(ctx, data, mimeType); err != nil {
		logger.WithError(err).Fatal(session.Status())
	}
	if err := session.SurfaceReady(containerW, containerH); err != nil {
		logger.WithError(err).Fatal("Failed to lay out display")
	}

	dispW, dispH := session.DisplaySize()
	corners := [4]float64{0, 0, float64(dispW), float64(dispH)}
	if selection != "" {
		corners, err = parseCorners(selection)
		if err != nil {
			logger.WithError(err).Fatal("Invalid -select")
		}
	}

	session.PointerDown(types.Point{X: corners[0], Y: corners[1]})
	session.PointerMove(types.Point{X: corners[2], Y: corners[3]})
	if !session.PointerUp() {
		logger.WithFields(logrus.Fields{
			"select":  corners,
			"display": fmt.Sprintf("%dx%d", dispW, dispH),
		}).Fatal("Selection was too small or outside the image")
	}

	if err := utils.EnsureDir(cfg.Output.OutputDir); err != nil {
		logger.WithError(err).Fatal("Failed to create output directory")
	}

	if !skipInfer {
		inferCtx := ctx
		if cfg.Model.TimeoutSeconds > 0 {
			var cancel context.CancelFunc
			inferCtx, cancel = context.WithTimeout(ctx, time.Duration(cfg.Model.TimeoutSeconds)*time.Second)
			defer cancel()
		}
		if err := session.Infer(inferCtx); err != nil {
			logger.WithError(err).Fatal(session.Status())
		}
	}
	logger.Info(session.Status())

	save := func(stage string, img image.Image) {
		if img == nil {
			return
		}
		path := utils.OutputPath(cfg.Output.OutputDir, cfg.Output.Prefix, stage, cfg.Output.Suffix, cfg.Output.DefaultFormat)
		if err := imageio.Save(img, path, cfg.Output.DefaultFormat, cfg.Output.Quality, cfg.Output.Lossless); err != nil {
			logger.WithError(err).WithField("path", path).Error("Save failed")
			return
		}
		logger.WithField("path", path).Info("Wrote image")
	}
	save("display", surfaces.Display.(*pipeline.MemorySurface).Image())
	save("preprocessed", surfaces.Preprocessed.(*pipeline.MemorySurface).Image())
	save("result", surfaces.Result.(*pipeline.MemorySurface).Image())

	prepared, _ := session.Preprocessed()
	rect, _ := session.SourceRect()
	side := cfg.Pipeline.Side
	dump := tensorDump{
		Source:     in,
		SourceRect: rect,
		Shape:      []int{1, 1, side, side},
		Input:      prepared.Tensor,
		Output:     output,
	}
	js, err := json.MarshalIndent(dump, "", "  ")
	if err != nil {
		logger.WithError(err).Fatal("Failed to encode tensor dump")
	}
	tensorPath := filepath.Join(cfg.Output.OutputDir, cfg.Output.Prefix+"tensor"+cfg.Output.Suffix+".json")
	if err := os.WriteFile(tensorPath, js, 0o644); err != nil {
		logger.WithError(err).Fatal("Failed to write tensor dump")
	}
	logger.WithField("path", tensorPath).Info("Wrote tensor dump")
}

// initLogger initializes the logger with appropriate level
func initLogger(debugMode bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	if debugMode {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
		logger.Debug("Debug logging enabled")
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	return logger
}

// loadConfig reads path, or the default config file when path is empty and
// that file exists, or falls back to built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	if def := config.GetConfigPath(); utils.FileExists(def) {
		return config.LoadFromFile(def)
	}
	return config.Default(), nil
}

func pipelineConfig(cfg *config.Config) pipeline.Config {
	return pipeline.Config{
		Preprocess: preprocess.Config{
			Side:         cfg.Pipeline.Side,
			Filter:       cfg.Pipeline.Filter,
			FlattenAlpha: cfg.Pipeline.FlattenAlpha,
		},
		Crop:                cropper.CropConfig{MinSize: 1},
		DegenerateThreshold: cfg.Pipeline.DegenerateThreshold,
		OverlayStroke:       cfg.Pipeline.OverlayStroke,
	}
}

// newModel builds the configured backend and a function releasing it
func newModel(cfg *config.Config) (model.Model, func(), error) {
	noop := func() {}

	switch cfg.Model.Backend {
	case "identity":
		return model.Identity, noop, nil
	case "invert":
		return model.Invert, noop, nil
	case "onnx":
		oc := onnx.DefaultConfig()
		oc.ModelPath = cfg.Model.ModelPath
		if cfg.Model.RuntimeLibPath != "" {
			oc.OnnxRuntimeLibPath = cfg.Model.RuntimeLibPath
		}
		oc.InputName = cfg.Model.InputName
		oc.OutputName = cfg.Model.OutputName
		oc.NumThreads = cfg.Model.NumThreads
		oc.UseCuda = cfg.Model.UseCuda
		oc.Side = cfg.Pipeline.Side

		engine, err := onnx.NewEngine(oc)
		if err != nil {
			return nil, noop, err
		}
		return engine, func() { _ = engine.Destroy() }, nil
	case "remote":
		client, err := remote.NewClient(cfg.Model.URL, time.Duration(cfg.Model.TimeoutSeconds)*time.Second)
		if err != nil {
			return nil, noop, err
		}
		client.SetSide(cfg.Pipeline.Side)
		return client, noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown backend: %s", cfg.Model.Backend)
	}
}

func parseSize(s string) (int, int, error) {
	parts := strings.SplitN(strings.ToLower(s), "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected WxH, got %q", s)
	}
	w, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("bad width: %w", err)
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("bad height: %w", err)
	}
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("size must be positive, got %dx%d", w, h)
	}
	return w, h, nil
}

func parseCorners(s string) ([4]float64, error) {
	var out [4]float64
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return out, fmt.Errorf("expected x0,y0,x1,y1, got %q", s)
	}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return out, fmt.Errorf("bad coordinate %q: %w", p, err)
		}
		out[i] = v
	}
	return out, nil
}
