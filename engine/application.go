package engine

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/spaghettifunk/azer/engine/core"
	"github.com/spaghettifunk/azer/engine/platform"
	"github.com/spaghettifunk/azer/engine/renderer"
)

// Application drives layers, physics and rendering from window events. All
// methods except RequestClose must be called from the loop thread.
type Application struct {
	config Config
	stage  Stage

	layers  *core.LayerStack
	input   *core.Input
	clock   *core.Clock
	frame   *core.Clock
	physics *core.PhysicsAccumulator
	metrics *core.FrameMetrics

	newWindow  WindowFactory
	newBackend BackendFactory
	shaders    ShaderSource

	window   platform.Window
	graphics *renderer.Graphics
	renderer *renderer.Renderer

	resumed        bool
	presented      uint64
	closeRequested atomic.Bool
}

type Option func(*Application)

func WithWindowFactory(f WindowFactory) Option {
	return func(a *Application) { a.newWindow = f }
}

func WithBackendFactory(f BackendFactory) Option {
	return func(a *Application) { a.newBackend = f }
}

func WithShaderSource(s ShaderSource) Option {
	return func(a *Application) { a.shaders = s }
}

// WithClock replaces the wall clock used to measure elapsed time between events.
func WithClock(c *core.Clock) Option {
	return func(a *Application) { a.clock = c }
}

func New(cfg Config, opts ...Option) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	level, err := core.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	core.SetLogLevel(level)

	a := &Application{
		config:     cfg,
		stage:      EngineStageUninitialized,
		layers:     core.NewLayerStack(),
		input:      core.NewInput(),
		clock:      core.NewClock(),
		frame:      core.NewClock(),
		physics:    core.NewPhysicsAccumulator(cfg.Physics.Step, cfg.Physics.MaxSteps),
		metrics:    core.NewFrameMetrics(),
		newWindow:  defaultWindowFactory,
		newBackend: defaultBackendFactory,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// PushLayer appends l to the layer stack. Layers pushed after Resumed do not
// get OnReady.
func (a *Application) PushLayer(l core.Layer) uuid.UUID {
	return a.layers.Push(l)
}

func (a *Application) Stage() Stage {
	return a.stage
}

// Input exposes the keyboard and mouse state tracked from window events.
func (a *Application) Input() *core.Input {
	return a.input
}

func (a *Application) Metrics() *core.FrameMetrics {
	return a.metrics
}

// Frames returns the number of frames presented.
func (a *Application) Frames() uint64 {
	if a.graphics == nil {
		return a.presented
	}
	return a.graphics.Frames()
}

// RequestClose asks the loop to close between frames. Safe to call from any
// goroutine.
func (a *Application) RequestClose() {
	a.closeRequested.Store(true)
}

// Resumed runs the startup transition: OnReady for every layer, then the
// window, graphics and renderer, then the first command buffers. Later calls
// do nothing.
func (a *Application) Resumed() error {
	if a.resumed {
		return nil
	}
	a.resumed = true
	a.stage = EngineStageInitializing

	a.layers.ForEach(func(l core.Layer) { l.OnReady() })

	window, err := a.newWindow(a.config.Window)
	if err != nil {
		return fmt.Errorf("failed to create window: %w", err)
	}
	a.window = window

	if a.shaders == nil {
		shaders, err := defaultShaderSource(a.config)
		if err != nil {
			return fmt.Errorf("failed to open shader directory: %w", err)
		}
		a.shaders = shaders
	}
	stages, err := a.shaders.LoadShaders(a.config.Renderer.VertexShader, a.config.Renderer.FragmentShader)
	if err != nil {
		return fmt.Errorf("failed to load shaders: %w", err)
	}

	backend, err := a.newBackend(window, a.config)
	if err != nil {
		return fmt.Errorf("failed to create graphics backend: %w", err)
	}

	width, height := window.Size()
	graphics, err := renderer.NewGraphics(backend, renderer.Extent{Width: width, Height: height})
	if err != nil {
		backend.Device.Destroy()
		backend.Surface.Destroy()
		if backend.Release != nil {
			backend.Release()
		}
		return fmt.Errorf("failed to create graphics context: %w", err)
	}
	a.graphics = graphics

	r, err := renderer.NewRenderer(graphics.Context(), stages, graphics.Extent(), renderer.ClearColor(a.config.Renderer.ClearColor))
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}
	a.renderer = r

	if err := graphics.BuildCommandBuffers(r, a.layers); err != nil {
		return err
	}

	a.clock.Start()
	a.frame.Start()
	a.stage = EngineStageRunning
	window.RequestRedraw()
	core.LogInfo("application running with %d layer(s)", a.layers.Len())
	return nil
}

// HandleEvent runs one loop iteration for evt. Only fatal errors are returned.
func (a *Application) HandleEvent(evt core.Event) error {
	if a.stage != EngineStageRunning {
		core.LogDebug("ignoring %s event while %s", evt.Code(), a.stage)
		return nil
	}

	elapsed := a.clock.Tick()
	a.physics.Advance(elapsed, func(dt core.DeltaTime) {
		a.layers.ForEach(func(l core.Layer) { l.OnPhysicsUpdate(dt) })
	})
	dt := core.NewDeltaTime(elapsed)
	a.layers.ForEach(func(l core.Layer) { l.OnUpdate(dt) })

	var pending core.Event
	switch e := evt.(type) {
	case core.CloseRequestedEvent:
		a.shutdown()
		return nil
	case core.RedrawRequestedEvent:
		if err := a.redraw(); err != nil {
			return err
		}
	case core.ResizedEvent:
		if !e.IsZero() {
			a.graphics.MarkResized()
		}
		pending = e
	case core.KeyboardInputEvent:
		a.input.Process(e)
		if a.config.CloseOnEscape && e.Key == core.KEY_ESCAPE && e.Pressed {
			a.window.RequestClose()
		}
		pending = e
	case core.CursorMovedEvent, core.MouseInputEvent:
		a.input.Process(e)
		pending = e
	}

	if pending != nil {
		a.layers.ForEach(func(l core.Layer) { l.OnEvent(pending) })
	}
	return nil
}

func (a *Application) redraw() error {
	a.reloadShaders()

	width, height := a.window.Size()
	if err := a.graphics.RecreateSwapchain(renderer.Extent{Width: width, Height: height}, a.renderer, a.layers); err != nil {
		return err
	}

	status, err := a.graphics.Submit()
	if err != nil {
		return err
	}
	if status == renderer.FrameSubmitted {
		a.metrics.Update(a.frame.Tick())
	}
	a.input.Update()
	a.window.RequestRedraw()
	return nil
}

// reloadShaders drains pending shader change notifications and, if there
// were any, schedules a pipeline rebuild with the new code. A broken shader
// keeps the current pipeline.
func (a *Application) reloadShaders() {
	changed := false
drain:
	for {
		select {
		case path, ok := <-a.shaders.Changes():
			if !ok {
				break drain
			}
			core.LogDebug("shader changed: %s", path)
			changed = true
		default:
			break drain
		}
	}
	if !changed {
		return
	}
	stages, err := a.shaders.LoadShaders(a.config.Renderer.VertexShader, a.config.Renderer.FragmentShader)
	if err != nil {
		core.LogWarn("keeping current shaders: %s", err)
		return
	}
	a.renderer.SetShaders(stages)
	a.graphics.RequestPipelineRebuild()
	core.LogInfo("shaders reloaded")
}

// Run resumes the application if needed and pumps window events until the
// window closes.
func (a *Application) Run() error {
	if err := a.Resumed(); err != nil {
		a.teardown()
		return err
	}
	for a.stage == EngineStageRunning {
		if a.closeRequested.Load() {
			a.closeRequested.Store(false)
			a.window.RequestClose()
		}
		for _, evt := range a.window.PumpEvents() {
			if err := a.HandleEvent(evt); err != nil {
				a.teardown()
				return err
			}
			if a.stage != EngineStageRunning {
				break
			}
		}
	}
	return nil
}

func (a *Application) shutdown() {
	a.stage = EngineStageShuttingDown
	core.LogInfo("closing after %d frame(s)", a.Frames())
	a.layers.ForEach(func(l core.Layer) { l.OnClose() })
	a.layers.Clear()
	a.teardown()
}

// teardown releases the GPU objects, the shader source and the window.
func (a *Application) teardown() {
	if a.graphics != nil {
		a.presented = a.graphics.Frames()
		a.graphics.Destroy(a.renderer)
		a.graphics = nil
		a.renderer = nil
	} else if a.renderer != nil {
		a.renderer.Destroy()
		a.renderer = nil
	}
	if a.shaders != nil {
		if err := a.shaders.Close(); err != nil {
			core.LogWarn("failed to close shader source: %s", err)
		}
		a.shaders = nil
	}
	if a.window != nil {
		a.window.Destroy()
		a.window = nil
	}
	a.stage = EngineStageStopped
}
