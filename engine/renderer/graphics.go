package renderer

import (
	"fmt"

	"github.com/spaghettifunk/azer/engine/core"
)

// Graphics keeps the swapchain consistent with the window and presents
// frames. Resizes and stale swapchains only raise flags; the actual
// recreation happens in RecreateSwapchain, on the next redraw.
type Graphics struct {
	ctx        *GraphicsContext
	swapchains *SwapchainManager
	submitter  *FrameSubmitter
	release    func()

	windowResized   bool
	rebuildPipeline bool
}

// NewGraphics creates the swapchain, the render pass and the framebuffers
// for the given backend. Command buffers are built later with
// BuildCommandBuffers, once a Renderer exists.
func NewGraphics(backend Backend, extent Extent) (*Graphics, error) {
	swapchains := NewSwapchainManager()
	sc, images, err := swapchains.Create(backend.Device, backend.Surface, extent)
	if err != nil {
		return nil, err
	}

	pass, err := backend.Device.CreateRenderPass(sc.Info().Format)
	if err != nil {
		sc.Destroy()
		return nil, fmt.Errorf("failed to create render pass: %w", err)
	}

	framebuffers, err := swapchains.BuildFramebuffers(backend.Device, pass, images)
	if err != nil {
		pass.Destroy()
		sc.Destroy()
		return nil, err
	}

	ctx := NewGraphicsContext(ContextState{
		Device:           backend.Device,
		Queue:            backend.Queue,
		Surface:          backend.Surface,
		Swapchain:        sc,
		Images:           images,
		RenderPass:       pass,
		Framebuffers:     framebuffers,
		MemoryAllocator:  backend.Memory,
		CommandAllocator: backend.Commands,
	})

	return &Graphics{
		ctx:        ctx,
		swapchains: swapchains,
		submitter:  NewFrameSubmitter(),
		release:    backend.Release,
	}, nil
}

func (g *Graphics) Context() *GraphicsContext {
	return g.ctx
}

// Extent returns the extent of the current swapchain.
func (g *Graphics) Extent() Extent {
	var extent Extent
	_ = g.ctx.View(func(s ContextState) error {
		extent = s.Swapchain.Info().Extent
		return nil
	})
	return extent
}

// MarkResized records that the window size changed.
func (g *Graphics) MarkResized() {
	g.windowResized = true
}

// RequestPipelineRebuild asks for the pipeline and command buffers to be
// rebuilt at the next recreation point, e.g. after new shaders were loaded.
func (g *Graphics) RequestPipelineRebuild() {
	g.rebuildPipeline = true
}

// NeedsRecreation reports whether the swapchain will be recreated on the next call to RecreateSwapchain.
func (g *Graphics) NeedsRecreation() bool {
	return g.windowResized || g.submitter.NeedsRecreation()
}

// Frames returns the number of frames presented.
func (g *Graphics) Frames() uint64 {
	return g.submitter.Frames()
}

// RecreateSwapchain brings the swapchain, the pipeline and the command
// buffers up to date with extent. It does nothing when no flag is raised, or
// when extent is zero (the flags then stay raised for a later call).
//
// Command buffers are rebuilt after every swapchain recreation, since the old
// ones reference destroyed framebuffers. The pipeline is rebuilt when the
// window was resized, when new shaders were requested, or when its viewport
// no longer matches the swapchain.
func (g *Graphics) RecreateSwapchain(extent Extent, r *Renderer, layers *core.LayerStack) error {
	stale := g.NeedsRecreation()
	if !stale && !g.rebuildPipeline {
		return nil
	}
	if extent.IsZero() {
		return nil
	}

	if stale {
		if err := g.swapchains.Recreate(g.ctx, extent); err != nil {
			return err
		}
		g.submitter.ClearRecreation()
	}

	current := g.Extent()
	if g.windowResized || g.rebuildPipeline || r.Viewport() != current {
		if err := r.RecreatePipeline(current); err != nil {
			return err
		}
	}
	g.windowResized = false
	g.rebuildPipeline = false

	return g.BuildCommandBuffers(r, layers)
}

// BuildCommandBuffers records one command buffer per swapchain image and
// installs them, replacing any previous set. Recording and installation
// happen under one exclusive borrow, so the buffers always target the
// framebuffers they are installed next to.
func (g *Graphics) BuildCommandBuffers(r *Renderer, layers *core.LayerStack) error {
	return g.ctx.Update(func(s *ContextState) error {
		if len(s.Framebuffers) != len(s.Images) {
			return fmt.Errorf("%d framebuffers for %d images", len(s.Framebuffers), len(s.Images))
		}
		cbs, err := r.BuildCommandBuffers(s.Framebuffers, layers)
		if err != nil {
			return fmt.Errorf("failed to build command buffers: %w", err)
		}
		for _, cb := range s.CommandBuffers {
			cb.Destroy()
		}
		s.CommandBuffers = cbs
		return nil
	})
}

// Submit presents one frame with the current command buffers. While a
// recreation is pending (e.g. the window is minimized) the frame is skipped
// without touching the swapchain.
func (g *Graphics) Submit() (FrameStatus, error) {
	if g.NeedsRecreation() {
		core.LogDebug("swapchain recreation pending, skipping frame")
		return FrameSkipped, nil
	}
	return g.submitter.SubmitFrame(g.ctx)
}

// Destroy waits for the device and releases every GPU object, including the
// renderer's.
func (g *Graphics) Destroy(r *Renderer) {
	_ = g.ctx.Update(func(s *ContextState) error {
		if err := s.Device.WaitIdle(); err != nil {
			core.LogWarn("failed to wait for device idle on shutdown: %s", err)
		}
		if r != nil {
			r.Destroy()
		}
		for _, cb := range s.CommandBuffers {
			cb.Destroy()
		}
		for _, fb := range s.Framebuffers {
			fb.Destroy()
		}
		s.Swapchain.Destroy()
		s.RenderPass.Destroy()
		s.Device.Destroy()
		s.Surface.Destroy()

		s.CommandBuffers = nil
		s.Framebuffers = nil
		s.Images = nil
		return nil
	})
	if g.release != nil {
		g.release()
	}
}
