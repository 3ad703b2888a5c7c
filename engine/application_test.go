package engine

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/azer/engine/core"
	"github.com/spaghettifunk/azer/engine/platform"
	"github.com/spaghettifunk/azer/engine/renderer"
	"github.com/spaghettifunk/azer/engine/renderer/rendertest"
)

type fakeWindow struct {
	width, height  uint32
	batches        [][]core.Event
	redraws        int
	closeRequested bool
	destroyed      bool
}

func (w *fakeWindow) Size() (uint32, uint32) { return w.width, w.height }
func (w *fakeWindow) RequestRedraw()         { w.redraws++ }
func (w *fakeWindow) RequestClose()          { w.closeRequested = true }
func (w *fakeWindow) Destroy()               { w.destroyed = true }

// PumpEvents replays the scripted batches, then closes.
func (w *fakeWindow) PumpEvents() []core.Event {
	if w.closeRequested || len(w.batches) == 0 {
		w.closeRequested = false
		return []core.Event{core.CloseRequestedEvent{}}
	}
	batch := w.batches[0]
	w.batches = w.batches[1:]
	return batch
}

type fakeShaders struct {
	stages  renderer.ShaderStages
	err     error
	changes chan string
	closed  int
}

func newFakeShaders() *fakeShaders {
	return &fakeShaders{
		stages:  renderer.ShaderStages{Vertex: []uint32{1}, Fragment: []uint32{2}},
		changes: make(chan string, 4),
	}
}

func (s *fakeShaders) LoadShaders(_, _ string) (renderer.ShaderStages, error) {
	return s.stages, s.err
}
func (s *fakeShaders) Changes() <-chan string { return s.changes }
func (s *fakeShaders) Close() error {
	s.closed++
	return nil
}

// recordingLayer appends "<name>:<callback>" to a shared log.
type recordingLayer struct {
	name   string
	log    *[]string
	events []core.Event
	dts    []float64
	steps  int
	closes int
	ready  int
}

func (l *recordingLayer) record(what string) { *l.log = append(*l.log, l.name+":"+what) }

func (l *recordingLayer) OnReady() {
	l.ready++
	l.record("ready")
}
func (l *recordingLayer) OnUpdate(dt core.DeltaTime) {
	l.dts = append(l.dts, dt.Seconds())
	l.record("update")
}
func (l *recordingLayer) OnPhysicsUpdate(core.DeltaTime) {
	l.steps++
	l.record("physics")
}
func (l *recordingLayer) OnRender(r core.Recorder) {
	l.record("render")
	r.DrawTriangle()
}
func (l *recordingLayer) OnEvent(evt core.Event) {
	l.events = append(l.events, evt)
	l.record(fmt.Sprintf("event %s", evt.Code()))
}
func (l *recordingLayer) OnClose() {
	l.closes++
	l.record("close")
}

type harness struct {
	app     *Application
	fake    *rendertest.Fake
	window  *fakeWindow
	shaders *fakeShaders
	now     time.Time
	log     []string
}

func (h *harness) advance(d time.Duration) { h.now = h.now.Add(d) }

func (h *harness) layer(name string) *recordingLayer {
	l := &recordingLayer{name: name, log: &h.log}
	h.app.PushLayer(l)
	return l
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		fake:    rendertest.New(),
		window:  &fakeWindow{width: 1280, height: 720},
		shaders: newFakeShaders(),
		now:     time.Unix(1000, 0),
	}
	app, err := New(DefaultConfig(),
		WithWindowFactory(func(platform.WindowConfig) (platform.Window, error) { return h.window, nil }),
		WithBackendFactory(func(platform.Window, Config) (renderer.Backend, error) { return h.fake.Backend(), nil }),
		WithShaderSource(h.shaders),
		WithClock(core.NewClockWithSource(func() time.Time { return h.now })),
	)
	require.NoError(t, err)
	h.app = app
	return h
}

func TestScriptedSession(t *testing.T) {
	h := newHarness(t)
	l := h.layer("a")
	require.NoError(t, h.app.Resumed())

	require.NoError(t, h.app.HandleEvent(core.ResizedEvent{Width: 1280, Height: 720}))
	require.NoError(t, h.app.HandleEvent(core.RedrawRequestedEvent{}))
	require.NoError(t, h.app.HandleEvent(core.RedrawRequestedEvent{}))
	require.NoError(t, h.app.HandleEvent(core.CloseRequestedEvent{}))

	assert.Equal(t, 2, h.fake.PipelinesCreated, "initial pipeline plus one rebuild")
	assert.Equal(t, 2, h.fake.Submissions)
	assert.Equal(t, uint64(2), h.app.Frames())
	assert.Equal(t, 1, l.closes)
	assert.Equal(t, EngineStageStopped, h.app.Stage())

	assert.True(t, h.fake.DeviceDestroyed)
	assert.True(t, h.fake.SurfaceDestroyed)
	assert.True(t, h.fake.Released)
	assert.Zero(t, h.fake.LivePipelines)
	assert.Zero(t, h.fake.LiveFramebuffers)
	assert.Zero(t, h.fake.LiveCommandBuffers)
	assert.True(t, h.window.destroyed)
	assert.Equal(t, 1, h.shaders.closed)

	// The loop is terminal once closed.
	require.NoError(t, h.app.HandleEvent(core.RedrawRequestedEvent{}))
	assert.Equal(t, 2, h.fake.Submissions)
}

func TestRunScriptedSession(t *testing.T) {
	h := newHarness(t)
	l := h.layer("a")
	h.window.batches = [][]core.Event{
		{core.ResizedEvent{Width: 1280, Height: 720}},
		{core.RedrawRequestedEvent{}},
		{core.RedrawRequestedEvent{}},
		{core.CloseRequestedEvent{}, core.RedrawRequestedEvent{}},
	}

	require.NoError(t, h.app.Run())

	assert.Equal(t, 1, l.ready)
	assert.Equal(t, 2, h.fake.PipelinesCreated)
	assert.Equal(t, 2, h.fake.Submissions)
	assert.Equal(t, 1, l.closes)
	assert.Equal(t, EngineStageStopped, h.app.Stage())
	assert.GreaterOrEqual(t, h.window.redraws, 3, "startup plus one per presented frame")
}

func TestZeroResizeIsIgnored(t *testing.T) {
	h := newHarness(t)
	l := h.layer("a")
	require.NoError(t, h.app.Resumed())

	require.NoError(t, h.app.HandleEvent(core.ResizedEvent{Width: 0, Height: 720}))
	require.NoError(t, h.app.HandleEvent(core.RedrawRequestedEvent{}))

	assert.Equal(t, 1, h.fake.SwapchainsCreated)
	assert.Equal(t, 1, h.fake.PipelinesCreated)
	assert.Equal(t, 1, h.fake.Submissions)
	require.Len(t, l.events, 1, "resize events are still forwarded")
	assert.Equal(t, core.ResizedEvent{Width: 0, Height: 720}, l.events[0])
}

func TestCallbacksRunInPushOrder(t *testing.T) {
	h := newHarness(t)
	a := h.layer("a")
	b := h.layer("b")
	require.NoError(t, h.app.Resumed())
	h.log = nil

	h.advance(200 * time.Millisecond)
	require.NoError(t, h.app.HandleEvent(core.CursorMovedEvent{X: 3, Y: 4}))

	assert.Equal(t, 10, a.steps, "physics is capped at 10 steps")
	assert.Equal(t, 10, b.steps)
	require.Len(t, a.dts, 1)
	assert.InDelta(t, 0.2, a.dts[0], 1e-9)

	var tail []string
	for _, entry := range h.log {
		if entry != "a:physics" && entry != "b:physics" {
			tail = append(tail, entry)
		}
	}
	assert.Equal(t, []string{"a:update", "b:update", "a:event CursorMoved", "b:event CursorMoved"}, tail)
	assert.Equal(t, "a:physics", h.log[0])
	assert.Equal(t, "b:physics", h.log[1])

	x, y := h.app.Input().MousePosition()
	assert.Equal(t, 3.0, x)
	assert.Equal(t, 4.0, y)
}

func TestRedrawAndCloseAreNotForwarded(t *testing.T) {
	h := newHarness(t)
	l := h.layer("a")
	require.NoError(t, h.app.Resumed())

	require.NoError(t, h.app.HandleEvent(core.RedrawRequestedEvent{}))
	require.NoError(t, h.app.HandleEvent(core.CloseRequestedEvent{}))
	assert.Empty(t, l.events)
	assert.Len(t, l.dts, 2, "every event advances the update")
}

func TestEscapeRequestsClose(t *testing.T) {
	h := newHarness(t)
	h.layer("a")
	require.NoError(t, h.app.Resumed())

	require.NoError(t, h.app.HandleEvent(core.KeyboardInputEvent{Key: core.KEY_W, Pressed: true}))
	assert.False(t, h.window.closeRequested)
	assert.True(t, h.app.Input().IsKeyDown(core.KEY_W))

	require.NoError(t, h.app.HandleEvent(core.KeyboardInputEvent{Key: core.KEY_ESCAPE, Pressed: true}))
	assert.True(t, h.window.closeRequested)
}

func TestResumedIsLatched(t *testing.T) {
	h := newHarness(t)
	l := h.layer("a")
	require.NoError(t, h.app.Resumed())
	require.NoError(t, h.app.Resumed())

	assert.Equal(t, 1, l.ready)
	assert.Equal(t, 1, h.fake.SwapchainsCreated)
	assert.Equal(t, 1, h.window.redraws)
	assert.Equal(t, EngineStageRunning, h.app.Stage())
	assert.Equal(t, []string{"a:ready", "a:render", "a:render", "a:render"}, h.log, "one recording per swapchain image")
}

func TestEventsBeforeResumeAreIgnored(t *testing.T) {
	h := newHarness(t)
	l := h.layer("a")
	require.NoError(t, h.app.HandleEvent(core.RedrawRequestedEvent{}))
	assert.Empty(t, l.dts)
	assert.Zero(t, h.fake.Submissions)
}

func TestStaleAcquireRecoversOnNextRedraw(t *testing.T) {
	h := newHarness(t)
	h.layer("a")
	h.fake.AcquireScript = []rendertest.AcquireResult{rendertest.Stale}
	require.NoError(t, h.app.Resumed())

	require.NoError(t, h.app.HandleEvent(core.RedrawRequestedEvent{}))
	assert.Zero(t, h.fake.Submissions)

	require.NoError(t, h.app.HandleEvent(core.RedrawRequestedEvent{}))
	assert.Equal(t, 2, h.fake.SwapchainsCreated)
	assert.Equal(t, 1, h.fake.PipelinesCreated, "same extent keeps the pipeline")
	assert.Equal(t, 1, h.fake.Submissions)
}

func TestMinimizedWindowSkipsFlaggedSwapchain(t *testing.T) {
	h := newHarness(t)
	h.layer("a")
	h.fake.AcquireScript = []rendertest.AcquireResult{{Index: 0, Suboptimal: true}}
	require.NoError(t, h.app.Resumed())

	require.NoError(t, h.app.HandleEvent(core.RedrawRequestedEvent{}))
	require.Zero(t, h.fake.Submissions)

	h.window.width = 0
	redraws := h.window.redraws
	require.NoError(t, h.app.HandleEvent(core.RedrawRequestedEvent{}))
	assert.Zero(t, h.fake.Submissions)
	assert.Equal(t, 1, h.fake.SwapchainsCreated)
	assert.Equal(t, redraws+1, h.window.redraws, "the render loop keeps going while minimized")

	h.window.width = 1280
	require.NoError(t, h.app.HandleEvent(core.RedrawRequestedEvent{}))
	assert.Equal(t, 2, h.fake.SwapchainsCreated)
	assert.Equal(t, 1, h.fake.Submissions)
}

func TestShaderChangeRebuildsPipeline(t *testing.T) {
	h := newHarness(t)
	h.layer("a")
	require.NoError(t, h.app.Resumed())

	h.shaders.stages = renderer.ShaderStages{Vertex: []uint32{7}, Fragment: []uint32{8}}
	h.shaders.changes <- "triangle.frag.spv"
	require.NoError(t, h.app.HandleEvent(core.RedrawRequestedEvent{}))

	assert.Equal(t, 2, h.fake.PipelinesCreated)
	assert.Equal(t, h.shaders.stages, h.fake.LastStages)
	assert.Equal(t, 1, h.fake.SwapchainsCreated)
	assert.Equal(t, 1, h.fake.Submissions)
}

func TestBrokenShaderKeepsPipeline(t *testing.T) {
	h := newHarness(t)
	h.layer("a")
	require.NoError(t, h.app.Resumed())

	h.shaders.err = core.ErrInvalidShader
	h.shaders.changes <- "triangle.frag.spv"
	require.NoError(t, h.app.HandleEvent(core.RedrawRequestedEvent{}))
	assert.Equal(t, 1, h.fake.PipelinesCreated)
	assert.Equal(t, 1, h.fake.Submissions)
}

func TestRequestCloseStopsRun(t *testing.T) {
	h := newHarness(t)
	l := h.layer("a")
	h.window.batches = [][]core.Event{{core.RedrawRequestedEvent{}}}
	h.app.RequestClose()

	require.NoError(t, h.app.Run())
	assert.Equal(t, 1, l.closes)
	assert.Zero(t, h.fake.Submissions, "close is honored before the next frame")
}

func TestFatalAcquireEndsRun(t *testing.T) {
	h := newHarness(t)
	l := h.layer("a")
	h.fake.AcquireScript = []rendertest.AcquireResult{{Err: errors.New("device lost")}}
	h.window.batches = [][]core.Event{{core.RedrawRequestedEvent{}}}

	err := h.app.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "device lost")
	assert.Zero(t, l.closes)
	assert.True(t, h.fake.DeviceDestroyed)
	assert.True(t, h.window.destroyed)
}

func TestResumedFailsWithoutShaders(t *testing.T) {
	h := newHarness(t)
	h.shaders.err = core.ErrInvalidShader
	err := h.app.Resumed()
	assert.ErrorIs(t, err, core.ErrInvalidShader)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Physics.MaxSteps = 0
	_, err := New(cfg)
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}
