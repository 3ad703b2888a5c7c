package testbed

import (
	"github.com/spaghettifunk/azer/engine/core"
)

// How often, in seconds, the frame metrics are logged.
const reportInterval float64 = 1.0

type gameState struct {
	width  uint32
	height uint32

	elapsed      float64
	sinceReport  float64
	physicsTicks uint64
	renders      uint64
}

// TestLayer draws the placeholder triangle and logs input and frame
// statistics.
type TestLayer struct {
	input   *core.Input
	metrics *core.FrameMetrics
	state   *gameState
}

func NewTestLayer(input *core.Input, metrics *core.FrameMetrics) *TestLayer {
	return &TestLayer{
		input:   input,
		metrics: metrics,
		state:   &gameState{},
	}
}

func (g *TestLayer) OnReady() {
	core.LogInfo("booting testbed...")
}

func (g *TestLayer) OnUpdate(dt core.DeltaTime) {
	g.state.elapsed += dt.Seconds()
	g.state.sinceReport += dt.Seconds()
	if g.state.sinceReport < reportInterval {
		return
	}
	g.state.sinceReport = 0
	if g.metrics != nil {
		core.LogDebug("fps: %.1f, frame time: %.3fms, physics ticks: %d", g.metrics.FPS(), g.metrics.FrameTime(), g.state.physicsTicks)
	}
	if g.input != nil && g.input.IsKeyDown(core.KEY_SPACE) {
		core.LogDebug("space held for at least a second")
	}
}

func (g *TestLayer) OnPhysicsUpdate(dt core.DeltaTime) {
	g.state.physicsTicks++
}

func (g *TestLayer) OnRender(r core.Recorder) {
	g.state.renders++
	r.DrawTriangle()
}

func (g *TestLayer) OnEvent(evt core.Event) {
	switch e := evt.(type) {
	case core.ResizedEvent:
		g.state.width = e.Width
		g.state.height = e.Height
		core.LogDebug("window resized to %dx%d", e.Width, e.Height)
	case core.KeyboardInputEvent:
		g.onKey(e)
	}
}

func (g *TestLayer) onKey(e core.KeyboardInputEvent) {
	if e.Repeat {
		return
	}
	if e.Pressed {
		if e.Key == core.KEY_A {
			// Example on checking for a key
			core.LogDebug("Explicit - A key pressed!")
		} else {
			core.LogDebug("'%d' key pressed in window.", e.Key)
		}
		return
	}
	core.LogDebug("'%d' key released in window.", e.Key)
}

func (g *TestLayer) OnClose() {
	core.LogInfo("testbed closing after %.2fs, %d physics ticks", g.state.elapsed, g.state.physicsTicks)
}
