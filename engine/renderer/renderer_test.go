package renderer_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/azer/engine/core"
	"github.com/spaghettifunk/azer/engine/renderer"
	"github.com/spaghettifunk/azer/engine/renderer/rendertest"
)

func newRenderer(t *testing.T, f *rendertest.Fake) (*renderer.Renderer, []renderer.Framebuffer) {
	t.Helper()
	g, err := renderer.NewGraphics(f.Backend(), initialExtent)
	require.NoError(t, err)
	r, err := renderer.NewRenderer(g.Context(), renderer.ShaderStages{}, g.Extent(), clearColor)
	require.NoError(t, err)

	var fbs []renderer.Framebuffer
	require.NoError(t, g.Context().View(func(s renderer.ContextState) error {
		fbs = append(fbs, s.Framebuffers...)
		return nil
	}))
	return r, fbs
}

func TestRecorderScopes(t *testing.T) {
	f := rendertest.New()
	r, fbs := newRenderer(t, f)

	assert.ErrorIs(t, r.End(), core.ErrNoRecordingScope)

	require.NoError(t, r.Begin(fbs[0], clearColor))
	assert.Equal(t, renderer.RecordingInRenderPass, r.State())
	assert.ErrorIs(t, r.Begin(fbs[0], clearColor), core.ErrRecordingScopeOpen)

	_, err := r.Submit()
	assert.ErrorIs(t, err, core.ErrRecordingScopeOpen)
	assert.True(t, renderer.IsScopeError(err))

	r.DrawTriangle()
	require.NoError(t, r.End())
	assert.Equal(t, renderer.RecordingEnded, r.State())

	cb, err := r.Submit()
	require.NoError(t, err)
	assert.Equal(t, renderer.RecordingReady, r.State())

	fake := cb.(*rendertest.CommandBuffer)
	assert.Equal(t, []string{
		"begin [0.1 0.1 0.1 1]",
		"bind_pipeline",
		"bind_vertex_buffer",
		"draw 3 1",
		"end",
	}, fake.Ops)
}

func TestRecorderDrawOutsideScope(t *testing.T) {
	f := rendertest.New()
	r, fbs := newRenderer(t, f)

	r.DrawTriangle()
	assert.Zero(t, f.Draws)

	// a fresh scope starts without the stale draw failure
	require.NoError(t, r.Begin(fbs[0], clearColor))
	require.NoError(t, r.End())
}

func TestBuildCommandBuffersOnePerFramebuffer(t *testing.T) {
	f := rendertest.New()
	r, fbs := newRenderer(t, f)

	layer := &triangleLayer{}
	layers := core.NewLayerStack()
	layers.Push(layer)

	cbs, err := r.BuildCommandBuffers(fbs, layers)
	require.NoError(t, err)
	require.Len(t, cbs, len(fbs))
	assert.Equal(t, len(fbs), layer.renders)
	assert.Equal(t, len(fbs), f.Draws)
}

func TestBuildCommandBuffersFailureReleasesPartialSet(t *testing.T) {
	f := rendertest.New()
	r, fbs := newRenderer(t, f)

	layers := core.NewLayerStack()
	layers.Push(&triangleLayer{})

	// the first Submit succeeds, the fresh recording it opens fails
	f.FailRecording = errors.New("pool exhausted")
	_, err := r.BuildCommandBuffers(fbs, layers)
	require.Error(t, err)
	assert.Zero(t, f.LiveCommandBuffers)
	assert.Equal(t, 1, f.LiveRecordings, "only the replacement recording is open")
}

// endingLayer closes the render pass itself, so the outer End fails.
type endingLayer struct {
	r *renderer.Renderer
}

func (l *endingLayer) OnReady()                       {}
func (l *endingLayer) OnUpdate(core.DeltaTime)        {}
func (l *endingLayer) OnPhysicsUpdate(core.DeltaTime) {}
func (l *endingLayer) OnEvent(core.Event)             {}
func (l *endingLayer) OnClose()                       {}
func (l *endingLayer) OnRender(core.Recorder)         { _ = l.r.End() }

func TestBuildCommandBuffersFailureDiscardsRecording(t *testing.T) {
	f := rendertest.New()
	r, fbs := newRenderer(t, f)
	require.Equal(t, 1, f.LiveRecordings)

	layers := core.NewLayerStack()
	layers.Push(&endingLayer{r: r})

	_, err := r.BuildCommandBuffers(fbs, layers)
	require.ErrorIs(t, err, core.ErrNoRecordingScope)
	assert.Equal(t, 1, f.LiveRecordings)
	assert.Equal(t, renderer.RecordingReady, r.State())

	r.Destroy()
	assert.Zero(t, f.LiveRecordings)
	assert.Zero(t, f.LivePipelines)
}

func TestBeginUsesGivenClearColor(t *testing.T) {
	f := rendertest.New()
	r, fbs := newRenderer(t, f)
	assert.Equal(t, clearColor, r.ClearColor())

	require.NoError(t, r.Begin(fbs[1], renderer.ClearColor{1, 0, 0, 1}))
	require.NoError(t, r.End())
	cb, err := r.Submit()
	require.NoError(t, err)

	fake := cb.(*rendertest.CommandBuffer)
	assert.Equal(t, []string{"begin [1 0 0 1]", "end"}, fake.Ops)
	assert.Same(t, fbs[1], fake.Framebuffer)
}

func TestNewRendererUsesTriangle(t *testing.T) {
	assert.Len(t, renderer.TriangleVertices, 3)
	assert.Equal(t, [2]float32{0.0, -0.5}, renderer.TriangleVertices[2].Position)
}
