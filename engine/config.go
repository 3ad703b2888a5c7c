package engine

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/azer/engine/core"
	"github.com/spaghettifunk/azer/engine/math"
	"github.com/spaghettifunk/azer/engine/platform"
)

type RendererConfig struct {
	// RGBA in [0, 1]; out of range components are clamped.
	ClearColor     [4]float32 `toml:"clear_color"`
	ShaderDir      string     `toml:"shader_dir"`
	VertexShader   string     `toml:"vertex_shader"`
	FragmentShader string     `toml:"fragment_shader"`
	// Validation enables the Vulkan validation layer.
	Validation bool `toml:"validation"`
	// WatchShaders rebuilds the pipeline when a shader file changes on disk.
	WatchShaders bool `toml:"watch_shaders"`
	// FormatFallback accepts a BGRA swapchain when RGBA is not supported.
	FormatFallback bool `toml:"format_fallback"`
}

type PhysicsConfig struct {
	// Step is the fixed simulation step in seconds.
	Step     float64 `toml:"step"`
	MaxSteps int     `toml:"max_steps"`
}

// Config is the application configuration, usually read from a TOML file.
type Config struct {
	Window        platform.WindowConfig `toml:"window"`
	Renderer      RendererConfig        `toml:"renderer"`
	Physics       PhysicsConfig         `toml:"physics"`
	LogLevel      string                `toml:"log_level"`
	CloseOnEscape bool                  `toml:"close_on_escape"`
}

func DefaultConfig() Config {
	return Config{
		Window: platform.WindowConfig{
			Title:  "Azer Engine",
			Width:  1280,
			Height: 720,
			X:      100,
			Y:      100,
		},
		Renderer: RendererConfig{
			ClearColor:     [4]float32{0.1, 0.1, 0.1, 1.0},
			ShaderDir:      "assets/shaders",
			VertexShader:   "triangle.vert.spv",
			FragmentShader: "triangle.frag.spv",
		},
		Physics: PhysicsConfig{
			Step:     core.DefaultPhysicsStep,
			MaxSteps: core.DefaultMaxPhysicsSteps,
		},
		LogLevel:      "info",
		CloseOnEscape: true,
	}
}

// LoadConfig decodes the TOML file at path over DefaultConfig and validates
// the result. Keys missing from the file keep their default value.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()

	if err := toml.NewDecoder(f).DisallowUnknownFields().Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode %s: %s: %w", path, err, core.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects unusable values and clamps the clear color into range.
func (c *Config) Validate() error {
	if c.Window.Width == 0 || c.Window.Height == 0 {
		return fmt.Errorf("window size %dx%d: %w", c.Window.Width, c.Window.Height, core.ErrInvalidConfig)
	}
	if c.Physics.Step <= 0 {
		return fmt.Errorf("physics step %v must be positive: %w", c.Physics.Step, core.ErrInvalidConfig)
	}
	if c.Physics.MaxSteps <= 0 {
		return fmt.Errorf("physics max steps %d must be positive: %w", c.Physics.MaxSteps, core.ErrInvalidConfig)
	}
	if c.Renderer.VertexShader == "" || c.Renderer.FragmentShader == "" {
		return fmt.Errorf("both shader stages must be named: %w", core.ErrInvalidConfig)
	}
	if _, err := core.ParseLogLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log level %q: %w", c.LogLevel, core.ErrInvalidConfig)
	}
	for i, v := range c.Renderer.ClearColor {
		c.Renderer.ClearColor[i] = math.Clamp(v, 0, 1)
	}
	return nil
}
