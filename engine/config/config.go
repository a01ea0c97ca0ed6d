// Package config holds the engine configuration loaded from YAML.
package config

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/Carmen-Shannon/nucleus-go/common"
	"github.com/Carmen-Shannon/nucleus-go/common/log"
	"gopkg.in/yaml.v3"
)

const (
	DefaultMinFPS        = 30
	DefaultSampleSeconds = 3
	DefaultWidth         = 1280
	DefaultHeight        = 720
)

// Config is the top-level engine configuration.
type Config struct {
	// Backend is the backend version name, e.g. "GLES30" or "VULKAN10".
	Backend string `json:"backend" yaml:"backend"`

	// MinFPS is the frame-rate floor: the frame delta never exceeds 1/MinFPS seconds.
	MinFPS int `json:"min_fps" yaml:"min_fps"`

	// MultiThread enables the dedicated component processing worker when more than one CPU is available.
	MultiThread bool `json:"multi_thread" yaml:"multi_thread"`

	// UseVBO uploads glTF attribute and index buffers to GPU buffer objects after loading.
	UseVBO bool `json:"use_vbo" yaml:"use_vbo"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level" yaml:"log_level"`

	// AssetRoot is the directory external references are resolved against.
	AssetRoot string `json:"asset_root" yaml:"asset_root"`

	// WorkerCount sizes the CPU worker pool used for tangent generation.
	WorkerCount int `json:"worker_count" yaml:"worker_count"`

	// FrustumCulling skips primitives whose bounds are outside the camera's view volume.
	FrustumCulling bool `json:"frustum_culling" yaml:"frustum_culling"`

	Window    WindowConfig    `json:"window" yaml:"window"`
	Profiling ProfilingConfig `json:"profiling" yaml:"profiling"`
}

// WindowConfig describes the platform window.
type WindowConfig struct {
	Width  int    `json:"width" yaml:"width"`
	Height int    `json:"height" yaml:"height"`
	Title  string `json:"title" yaml:"title"`
	VSync  bool   `json:"vsync" yaml:"vsync"`
}

// ProfilingConfig controls the frame sampler output.
type ProfilingConfig struct {
	Enabled       bool `json:"enabled" yaml:"enabled"`
	SampleSeconds int  `json:"sample_seconds" yaml:"sample_seconds"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Backend:        "GLES30",
		MinFPS:         DefaultMinFPS,
		MultiThread:    true,
		UseVBO:         true,
		LogLevel:       "info",
		AssetRoot:      ".",
		WorkerCount:    runtime.NumCPU(),
		FrustumCulling: true,
		Window: WindowConfig{
			Width:  DefaultWidth,
			Height: DefaultHeight,
			Title:  "nucleus",
			VSync:  true,
		},
		Profiling: ProfilingConfig{
			Enabled:       true,
			SampleSeconds: DefaultSampleSeconds,
		},
	}
}

// Load decodes YAML from r on top of Default and validates the result.
func Load(r io.Reader) (*Config, error) {
	c := Default()
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(c); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadFile opens path and calls Load.
func LoadFile(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config %s: %w", path, err)
	}
	defer file.Close()

	return Load(file)
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.MinFPS <= 0 {
		return common.ArgumentError("config", "min_fps must be positive, got %d", c.MinFPS)
	}
	if c.WorkerCount <= 0 {
		return common.ArgumentError("config", "worker_count must be positive, got %d", c.WorkerCount)
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return common.ArgumentError("config", "window size must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Profiling.SampleSeconds <= 0 {
		return common.ArgumentError("config", "profiling.sample_seconds must be positive, got %d", c.Profiling.SampleSeconds)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return common.ArgumentError("config", "%v", err)
	}
	return nil
}

// Level returns the parsed log level, defaulting to info.
func (c *Config) Level() log.Level {
	level, _ := log.ParseLevel(c.LogLevel)
	return level
}

// UseMultiThread reports whether the component worker should run on its own goroutine.
func (c *Config) UseMultiThread() bool {
	return c.MultiThread && runtime.NumCPU() > 1
}
