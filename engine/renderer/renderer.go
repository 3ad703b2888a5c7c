package renderer

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/azer/engine/core"
)

type RecordingState uint8

const (
	RecordingReady RecordingState = iota
	RecordingInRenderPass
	RecordingEnded
)

func (s RecordingState) String() string {
	switch s {
	case RecordingReady:
		return "READY"
	case RecordingInRenderPass:
		return "IN_RENDER_PASS"
	case RecordingEnded:
		return "RECORDING_ENDED"
	}
	return "UNKNOWN"
}

// Renderer owns the graphics pipeline and the placeholder geometry, and
// records command buffers on behalf of the layers. It implements core.Recorder.
type Renderer struct {
	device   Device
	pass     RenderPass
	commands CommandAllocator

	stages   ShaderStages
	clear    ClearColor
	pipeline Pipeline
	triangle Buffer

	recording Recording
	state     RecordingState
	drawErr   error
}

var _ core.Recorder = (*Renderer)(nil)

// NewRenderer builds the pipeline for viewport and opens the first recording.
func NewRenderer(ctx *GraphicsContext, stages ShaderStages, viewport Extent, clear ClearColor) (*Renderer, error) {
	r := &Renderer{
		stages: stages,
		clear:  clear,
	}
	var memory MemoryAllocator
	if err := ctx.View(func(s ContextState) error {
		r.device = s.Device
		r.pass = s.RenderPass
		r.commands = s.CommandAllocator
		memory = s.MemoryAllocator
		return nil
	}); err != nil {
		return nil, err
	}

	triangle, err := createTriangle(memory)
	if err != nil {
		return nil, fmt.Errorf("failed to create triangle vertex buffer: %w", err)
	}
	r.triangle = triangle

	pipeline, err := r.device.CreateGraphicsPipeline(r.pass, r.stages, viewport)
	if err != nil {
		r.triangle.Destroy()
		return nil, fmt.Errorf("failed to create graphics pipeline: %w", err)
	}
	r.pipeline = pipeline

	recording, err := r.commands.NewRecording()
	if err != nil {
		r.Destroy()
		return nil, fmt.Errorf("failed to open command recording: %w", err)
	}
	r.recording = recording
	return r, nil
}

// State returns the state of the open recording.
func (r *Renderer) State() RecordingState {
	return r.state
}

// Viewport returns the extent the current pipeline was built for.
func (r *Renderer) Viewport() Extent {
	return r.pipeline.Viewport()
}

// SetShaders replaces the shader stages used by the next pipeline build.
func (r *Renderer) SetShaders(stages ShaderStages) {
	r.stages = stages
}

// RecreatePipeline builds a pipeline for viewport and swaps it in. The old
// pipeline is destroyed only once the new one exists.
func (r *Renderer) RecreatePipeline(viewport Extent) error {
	pipeline, err := r.device.CreateGraphicsPipeline(r.pass, r.stages, viewport)
	if err != nil {
		return fmt.Errorf("failed to recreate graphics pipeline: %w", err)
	}
	if err := r.device.WaitIdle(); err != nil {
		pipeline.Destroy()
		return fmt.Errorf("failed to wait for device idle: %w", err)
	}
	r.pipeline.Destroy()
	r.pipeline = pipeline
	core.LogDebug("graphics pipeline recreated for %dx%d", viewport.Width, viewport.Height)
	return nil
}

// ClearColor returns the color framebuffers are cleared to.
func (r *Renderer) ClearColor() ClearColor {
	return r.clear
}

// Begin opens a render pass scope targeting fb, cleared to clear.
func (r *Renderer) Begin(fb Framebuffer, clear ClearColor) error {
	if r.state == RecordingInRenderPass {
		return core.ErrRecordingScopeOpen
	}
	if r.recording == nil {
		if err := r.reset(); err != nil {
			return fmt.Errorf("failed to open command recording: %w", err)
		}
	}
	if err := r.recording.BeginRenderPass(r.pass, fb, clear); err != nil {
		return fmt.Errorf("failed to begin render pass: %w", err)
	}
	r.state = RecordingInRenderPass
	r.drawErr = nil
	return nil
}

// DrawTriangle records the placeholder triangle. Failures are kept and
// reported by End.
func (r *Renderer) DrawTriangle() {
	if r.drawErr != nil {
		return
	}
	if r.state != RecordingInRenderPass {
		r.drawErr = core.ErrNoRecordingScope
		return
	}
	if err := r.recording.BindPipeline(r.pipeline); err != nil {
		r.drawErr = fmt.Errorf("failed to bind pipeline: %w", err)
		return
	}
	if err := r.recording.BindVertexBuffer(r.triangle); err != nil {
		r.drawErr = fmt.Errorf("failed to bind vertex buffer: %w", err)
		return
	}
	if err := r.recording.Draw(r.triangle.VertexCount(), 1); err != nil {
		r.drawErr = fmt.Errorf("failed to record draw: %w", err)
	}
}

// End closes the open render pass scope. It also reports the first draw
// failure recorded inside the scope.
func (r *Renderer) End() error {
	if r.state != RecordingInRenderPass {
		return core.ErrNoRecordingScope
	}
	if err := r.recording.EndRenderPass(); err != nil {
		return fmt.Errorf("failed to end render pass: %w", err)
	}
	r.state = RecordingEnded
	err := r.drawErr
	r.drawErr = nil
	return err
}

// Submit finishes the current recording into a command buffer and opens a
// fresh recording for the next one.
func (r *Renderer) Submit() (CommandBuffer, error) {
	if r.state == RecordingInRenderPass {
		return nil, core.ErrRecordingScopeOpen
	}
	if r.recording == nil {
		return nil, core.ErrNoRecordingScope
	}
	cb, err := r.recording.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build command buffer: %w", err)
	}
	// the recording now lives on as cb
	r.recording = nil
	recording, err := r.commands.NewRecording()
	if err != nil {
		cb.Destroy()
		return nil, fmt.Errorf("failed to open command recording: %w", err)
	}
	r.recording = recording
	r.state = RecordingReady
	return cb, nil
}

// reset destroys the current recording and opens a fresh one.
func (r *Renderer) reset() error {
	if r.recording != nil {
		r.recording.Destroy()
		r.recording = nil
	}
	recording, err := r.commands.NewRecording()
	if err != nil {
		return err
	}
	r.recording = recording
	r.state = RecordingReady
	r.drawErr = nil
	return nil
}

// BuildCommandBuffers records one command buffer per framebuffer, in order,
// letting every layer draw into each.
func (r *Renderer) BuildCommandBuffers(framebuffers []Framebuffer, layers *core.LayerStack) ([]CommandBuffer, error) {
	cbs := make([]CommandBuffer, 0, len(framebuffers))
	fail := func(err error) ([]CommandBuffer, error) {
		for _, cb := range cbs {
			cb.Destroy()
		}
		if resetErr := r.reset(); resetErr != nil {
			core.LogError("failed to reset command recording: %s", resetErr)
		}
		return nil, err
	}

	for i, fb := range framebuffers {
		if err := r.Begin(fb, r.clear); err != nil {
			return fail(fmt.Errorf("command buffer %d: %w", i, err))
		}
		layers.ForEach(func(l core.Layer) {
			l.OnRender(r)
		})
		if err := r.End(); err != nil {
			return fail(fmt.Errorf("command buffer %d: %w", i, err))
		}
		cb, err := r.Submit()
		if err != nil {
			return fail(fmt.Errorf("command buffer %d: %w", i, err))
		}
		cbs = append(cbs, cb)
	}
	return cbs, nil
}

// Destroy releases the open recording, the pipeline and the vertex buffer.
func (r *Renderer) Destroy() {
	if r.recording != nil {
		r.recording.Destroy()
		r.recording = nil
	}
	if r.pipeline != nil {
		r.pipeline.Destroy()
		r.pipeline = nil
	}
	if r.triangle != nil {
		r.triangle.Destroy()
		r.triangle = nil
	}
}

// IsScopeError reports whether err comes from misusing Begin/End/Submit.
func IsScopeError(err error) bool {
	return errors.Is(err, core.ErrRecordingScopeOpen) || errors.Is(err, core.ErrNoRecordingScope)
}
