package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/menta2k/region-tensor/internal/utils"
	"github.com/menta2k/region-tensor/pkg/preprocess"
	"github.com/menta2k/region-tensor/pkg/types"
)

// Config holds the application configuration
type Config struct {
	Pipeline PipelineConfig `json:"pipeline"`
	Model    ModelConfig    `json:"model"`
	Output   OutputConfig   `json:"output"`
}

// PipelineConfig holds configuration for selection, cropping and preprocessing
type PipelineConfig struct {
	Side                int     `json:"side"`
	Filter              string  `json:"filter"`
	FlattenAlpha        bool    `json:"flatten_alpha"`
	DegenerateThreshold float64 `json:"degenerate_threshold"`
	MaxDisplayWidth     int     `json:"max_display_width"`
	MaxDisplayHeight    int     `json:"max_display_height"`
	OverlayStroke       int     `json:"overlay_stroke"`
}

// ModelConfig selects and configures the inference backend
type ModelConfig struct {
	Backend        string `json:"backend"`
	ModelPath      string `json:"model_path"`
	RuntimeLibPath string `json:"runtime_lib_path"`
	InputName      string `json:"input_name"`
	OutputName     string `json:"output_name"`
	NumThreads     int    `json:"num_threads"`
	UseCuda        bool   `json:"use_cuda"`
	URL            string `json:"url"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// OutputConfig holds configuration for output generation
type OutputConfig struct {
	DefaultFormat string `json:"default_format"`
	OutputDir     string `json:"output_dir"`
	Prefix        string `json:"prefix"`
	Suffix        string `json:"suffix"`
	Quality       int    `json:"quality"`
	Lossless      bool   `json:"lossless"`
}

// Backends lists the accepted model backends
var Backends = []string{"identity", "invert", "onnx", "remote"}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			Side:                types.Side,
			Filter:              "catmullrom",
			FlattenAlpha:        false,
			DegenerateThreshold: 5,
			MaxDisplayWidth:     800,
			MaxDisplayHeight:    600,
			OverlayStroke:       2,
		},
		Model: ModelConfig{
			Backend:        "invert",
			ModelPath:      "./weights/model.onnx",
			URL:            "http://localhost:8080",
			TimeoutSeconds: 300,
		},
		Output: OutputConfig{
			DefaultFormat: "png",
			OutputDir:     "./output",
			Prefix:        "",
			Suffix:        "",
			Quality:       90,
			Lossless:      false,
		},
	}
}

// LoadFromFile loads configuration from a JSON file. Missing fields keep
// their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Pipeline.Side < 1 {
		return fmt.Errorf("pipeline.side must be positive")
	}

	if _, err := preprocess.ParseFilter(c.Pipeline.Filter); err != nil {
		return fmt.Errorf("pipeline.filter: %w", err)
	}

	if c.Pipeline.DegenerateThreshold < 0 {
		return fmt.Errorf("pipeline.degenerate_threshold must not be negative")
	}

	if c.Pipeline.MaxDisplayWidth < 1 || c.Pipeline.MaxDisplayHeight < 1 {
		return fmt.Errorf("pipeline.max_display_width and max_display_height must be positive")
	}

	if c.Pipeline.OverlayStroke < 1 {
		return fmt.Errorf("pipeline.overlay_stroke must be positive")
	}

	if !isBackend(c.Model.Backend) {
		return fmt.Errorf("model.backend must be one of %v", Backends)
	}

	if c.Model.Backend == "onnx" && c.Model.ModelPath == "" {
		return fmt.Errorf("model.model_path is required for the onnx backend")
	}

	if c.Model.Backend == "remote" && c.Model.URL == "" {
		return fmt.Errorf("model.url is required for the remote backend")
	}

	if c.Model.TimeoutSeconds < 0 {
		return fmt.Errorf("model.timeout_seconds must not be negative")
	}

	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("output.quality must be between 1 and 100")
	}

	if !utils.IsWritableFormat(c.Output.DefaultFormat) {
		return fmt.Errorf("output.default_format must be png, jpg or webp")
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "region-tensor", "config.json")
}

func isBackend(name string) bool {
	for _, b := range Backends {
		if b == name {
			return true
		}
	}
	return false
}
