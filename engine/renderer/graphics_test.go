package renderer_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/azer/engine/core"
	"github.com/spaghettifunk/azer/engine/renderer"
	"github.com/spaghettifunk/azer/engine/renderer/rendertest"
)

type triangleLayer struct {
	renders int
}

func (l *triangleLayer) OnReady()                       {}
func (l *triangleLayer) OnUpdate(core.DeltaTime)        {}
func (l *triangleLayer) OnPhysicsUpdate(core.DeltaTime) {}
func (l *triangleLayer) OnEvent(core.Event)             {}
func (l *triangleLayer) OnClose()                       {}
func (l *triangleLayer) OnRender(r core.Recorder) {
	l.renders++
	r.DrawTriangle()
}

var (
	initialExtent = renderer.Extent{Width: 1280, Height: 720}
	clearColor    = renderer.ClearColor{0.1, 0.1, 0.1, 1.0}
)

func setup(t *testing.T, f *rendertest.Fake) (*renderer.Graphics, *renderer.Renderer, *core.LayerStack) {
	t.Helper()
	g, err := renderer.NewGraphics(f.Backend(), initialExtent)
	require.NoError(t, err)
	r, err := renderer.NewRenderer(g.Context(), renderer.ShaderStages{}, g.Extent(), clearColor)
	require.NoError(t, err)
	layers := core.NewLayerStack()
	layers.Push(&triangleLayer{})
	require.NoError(t, g.BuildCommandBuffers(r, layers))
	return g, r, layers
}

func requireConsistent(t *testing.T, g *renderer.Graphics) {
	t.Helper()
	require.NoError(t, g.Context().View(func(s renderer.ContextState) error {
		require.Len(t, s.Framebuffers, len(s.Images))
		require.Len(t, s.CommandBuffers, len(s.Images))
		return nil
	}))
}

func TestSubmitFrame(t *testing.T) {
	errDeviceLost := errors.New("device lost")

	tests := []struct {
		name          string
		acquire       []rendertest.AcquireResult
		submit        []error
		fenceErr      error
		wantStatus    renderer.FrameStatus
		wantErr       bool
		wantSubmitted int
		wantFlag      bool
	}{
		{
			name:          "ready image is presented",
			wantStatus:    renderer.FrameSubmitted,
			wantSubmitted: 1,
		},
		{
			name:       "stale acquire skips the frame",
			acquire:    []rendertest.AcquireResult{rendertest.Stale},
			wantStatus: renderer.FrameSkipped,
			wantFlag:   true,
		},
		{
			name:       "suboptimal acquire skips the frame",
			acquire:    []rendertest.AcquireResult{{Index: 1, Suboptimal: true}},
			wantStatus: renderer.FrameSkipped,
			wantFlag:   true,
		},
		{
			name:       "acquired index without command buffer is stale",
			acquire:    []rendertest.AcquireResult{{Index: 7}},
			wantStatus: renderer.FrameSkipped,
			wantFlag:   true,
		},
		{
			name:    "acquire failure is fatal",
			acquire: []rendertest.AcquireResult{{Err: errDeviceLost}},
			wantErr: true,
		},
		{
			name:       "stale present skips the frame",
			submit:     []error{core.ErrSwapchainOutOfDate},
			wantStatus: renderer.FrameSkipped,
			wantFlag:   true,
		},
		{
			name:       "other present failure drops the frame",
			submit:     []error{fmt.Errorf("%w: %w", core.ErrPresentFailed, errDeviceLost)},
			wantStatus: renderer.FrameDropped,
		},
		{
			name:    "submit failure is fatal",
			submit:  []error{errDeviceLost},
			wantErr: true,
		},
		{
			name:          "fence failure is fatal",
			fenceErr:      errDeviceLost,
			wantErr:       true,
			wantSubmitted: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := rendertest.New()
			g, _, _ := setup(t, f)
			f.AcquireScript = tt.acquire
			f.SubmitScript = tt.submit
			f.FenceErr = tt.fenceErr

			status, err := g.Submit()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantStatus, status)
			}
			assert.Equal(t, tt.wantSubmitted, f.Submissions)
			assert.Equal(t, tt.wantFlag, g.NeedsRecreation())
		})
	}
}

func TestSubmitCountsFrames(t *testing.T) {
	f := rendertest.New()
	g, _, _ := setup(t, f)

	for i := 0; i < 4; i++ {
		status, err := g.Submit()
		require.NoError(t, err)
		require.Equal(t, renderer.FrameSubmitted, status)
	}
	assert.Equal(t, uint64(4), g.Frames())
	assert.Equal(t, []uint32{0, 1, 2, 0}, f.SubmittedImages)
}

func TestRecreateSwapchainWithoutFlagIsNoop(t *testing.T) {
	f := rendertest.New()
	g, r, layers := setup(t, f)

	require.NoError(t, g.RecreateSwapchain(initialExtent, r, layers))
	assert.Equal(t, 1, f.SwapchainsCreated)
	assert.Equal(t, 1, f.PipelinesCreated)
	assert.Equal(t, 3, f.CommandBuffersBuilt)
}

func TestRecreateSwapchainZeroExtentKeepsFlag(t *testing.T) {
	f := rendertest.New()
	g, r, layers := setup(t, f)

	g.MarkResized()
	require.NoError(t, g.RecreateSwapchain(renderer.Extent{Width: 0, Height: 720}, r, layers))
	assert.Equal(t, 1, f.SwapchainsCreated)
	assert.True(t, g.NeedsRecreation())
}

func TestRecreateAfterResizeRebuildsEverything(t *testing.T) {
	f := rendertest.New()
	g, r, layers := setup(t, f)

	f.ImageCount = 2
	g.MarkResized()
	next := renderer.Extent{Width: 800, Height: 600}
	require.NoError(t, g.RecreateSwapchain(next, r, layers))

	assert.False(t, g.NeedsRecreation())
	assert.Equal(t, 2, f.SwapchainsCreated)
	assert.Equal(t, 2, f.PipelinesCreated)
	assert.Equal(t, next, f.LastViewport)
	assert.Equal(t, next, r.Viewport())
	assert.Equal(t, next, g.Extent())

	requireConsistent(t, g)
	assert.Equal(t, 1, f.LiveSwapchains)
	assert.Equal(t, 2, f.LiveFramebuffers)
	assert.Equal(t, 2, f.LiveCommandBuffers)
	assert.Equal(t, 1, f.LivePipelines)
}

func TestRecreateAfterStaleKeepsPipeline(t *testing.T) {
	f := rendertest.New()
	g, r, layers := setup(t, f)

	f.AcquireScript = []rendertest.AcquireResult{rendertest.Stale}
	status, err := g.Submit()
	require.NoError(t, err)
	require.Equal(t, renderer.FrameSkipped, status)

	require.NoError(t, g.RecreateSwapchain(initialExtent, r, layers))
	assert.Equal(t, 2, f.SwapchainsCreated)
	assert.Equal(t, 1, f.PipelinesCreated)
	assert.Equal(t, 6, f.CommandBuffersBuilt)
	requireConsistent(t, g)

	status, err = g.Submit()
	require.NoError(t, err)
	assert.Equal(t, renderer.FrameSubmitted, status)
}

func TestPipelineRebuildRequest(t *testing.T) {
	f := rendertest.New()
	g, r, layers := setup(t, f)

	stages := renderer.ShaderStages{Vertex: []uint32{1}, Fragment: []uint32{2}}
	r.SetShaders(stages)
	g.RequestPipelineRebuild()
	require.NoError(t, g.RecreateSwapchain(initialExtent, r, layers))

	assert.Equal(t, 1, f.SwapchainsCreated)
	assert.Equal(t, 2, f.PipelinesCreated)
	assert.Equal(t, stages, f.LastStages)
	assert.Equal(t, 3, f.LiveCommandBuffers)
	requireConsistent(t, g)
}

func TestRecreateFramebufferFailureKeepsOldState(t *testing.T) {
	f := rendertest.New()
	g, r, layers := setup(t, f)

	f.FailFramebuffer = errors.New("out of memory")
	g.MarkResized()
	require.Error(t, g.RecreateSwapchain(renderer.Extent{Width: 640, Height: 480}, r, layers))

	requireConsistent(t, g)
	assert.Equal(t, initialExtent, g.Extent())
	assert.Equal(t, 1, f.LiveSwapchains)
}

func TestDestroyReleasesEverything(t *testing.T) {
	f := rendertest.New()
	g, r, _ := setup(t, f)

	g.Destroy(r)
	assert.Zero(t, f.LiveSwapchains)
	assert.Zero(t, f.LiveFramebuffers)
	assert.Zero(t, f.LiveCommandBuffers)
	assert.Zero(t, f.LivePipelines)
	assert.True(t, f.DeviceDestroyed)
	assert.True(t, f.SurfaceDestroyed)
	assert.True(t, f.Released)
}

func TestSubmitSkipsWhileRecreationPending(t *testing.T) {
	f := rendertest.New()
	g, r, layers := setup(t, f)

	f.AcquireScript = []rendertest.AcquireResult{{Index: 0, Suboptimal: true}}
	status, err := g.Submit()
	require.NoError(t, err)
	require.Equal(t, renderer.FrameSkipped, status)

	// minimized: recreation is deferred, so nothing may reach the old swapchain
	require.NoError(t, g.RecreateSwapchain(renderer.Extent{}, r, layers))
	status, err = g.Submit()
	require.NoError(t, err)
	assert.Equal(t, renderer.FrameSkipped, status)
	assert.Zero(t, f.Submissions)
	assert.True(t, g.NeedsRecreation())
	assert.Equal(t, 1, f.SwapchainsCreated)

	require.NoError(t, g.RecreateSwapchain(initialExtent, r, layers))
	status, err = g.Submit()
	require.NoError(t, err)
	assert.Equal(t, renderer.FrameSubmitted, status)
	assert.Equal(t, 1, f.Submissions)
}

func TestCommandBuffersTargetInstalledFramebuffers(t *testing.T) {
	f := rendertest.New()
	g, r, layers := setup(t, f)

	g.MarkResized()
	require.NoError(t, g.RecreateSwapchain(renderer.Extent{Width: 800, Height: 600}, r, layers))

	require.NoError(t, g.Context().View(func(s renderer.ContextState) error {
		require.Len(t, s.CommandBuffers, len(s.Framebuffers))
		for i, cb := range s.CommandBuffers {
			assert.Same(t, s.Framebuffers[i], cb.(*rendertest.CommandBuffer).Framebuffer)
		}
		return nil
	}))
}

func TestNewGraphicsRejectsZeroExtent(t *testing.T) {
	_, err := renderer.NewGraphics(rendertest.New().Backend(), renderer.Extent{})
	assert.ErrorIs(t, err, core.ErrSurfaceUnsupported)
}
