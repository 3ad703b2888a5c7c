package engine

import (
	"fmt"

	"github.com/spaghettifunk/azer/engine/assets"
	"github.com/spaghettifunk/azer/engine/platform"
	"github.com/spaghettifunk/azer/engine/renderer"
	"github.com/spaghettifunk/azer/engine/renderer/vulkan"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
	// Engine has released everything and left the loop
	EngineStageStopped
)

func (s Stage) String() string {
	switch s {
	case EngineStageUninitialized:
		return "uninitialized"
	case EngineStageInitializing:
		return "initializing"
	case EngineStageRunning:
		return "running"
	case EngineStageShuttingDown:
		return "shutting down"
	case EngineStageStopped:
		return "stopped"
	}
	return "unknown"
}

// WindowFactory opens the application window.
type WindowFactory func(cfg platform.WindowConfig) (platform.Window, error)

// BackendFactory creates the GPU backend presenting to window.
type BackendFactory func(window platform.Window, cfg Config) (renderer.Backend, error)

// ShaderSource provides the pipeline shaders and notifies when they change.
type ShaderSource interface {
	LoadShaders(vertex, fragment string) (renderer.ShaderStages, error)
	Changes() <-chan string
	Close() error
}

func defaultWindowFactory(cfg platform.WindowConfig) (platform.Window, error) {
	return platform.NewGLFWWindow(cfg)
}

func defaultBackendFactory(window platform.Window, cfg Config) (renderer.Backend, error) {
	surface, ok := window.(vulkan.WindowSurface)
	if !ok {
		return renderer.Backend{}, fmt.Errorf("window %T cannot create a vulkan surface", window)
	}
	return vulkan.New(surface, vulkan.Config{
		AppName:        cfg.Window.Title,
		Validation:     cfg.Renderer.Validation,
		FormatFallback: cfg.Renderer.FormatFallback,
	})
}

func defaultShaderSource(cfg Config) (ShaderSource, error) {
	am, err := assets.NewAssetManager(cfg.Renderer.ShaderDir)
	if err != nil {
		return nil, err
	}
	if cfg.Renderer.WatchShaders {
		if err := am.Watch(); err != nil {
			am.Close()
			return nil, err
		}
	}
	return am, nil
}
