package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInputTracksCurrentAndPrevious(t *testing.T) {
	in := NewInput()

	in.Process(KeyboardInputEvent{Key: KEY_W, Pressed: true})
	in.Process(MouseInputEvent{Button: BUTTON_LEFT, Pressed: true})
	in.Process(CursorMovedEvent{X: 10, Y: 20})

	assert.True(t, in.IsKeyDown(KEY_W))
	assert.True(t, in.WasKeyUp(KEY_W))
	assert.True(t, in.IsButtonDown(BUTTON_LEFT))
	x, y := in.MousePosition()
	assert.Equal(t, 10.0, x)
	assert.Equal(t, 20.0, y)

	in.Update()
	in.Process(KeyboardInputEvent{Key: KEY_W, Pressed: false})

	assert.True(t, in.IsKeyUp(KEY_W))
	assert.True(t, in.WasKeyDown(KEY_W))
	assert.True(t, in.WasButtonDown(BUTTON_LEFT))
	px, py := in.PreviousMousePosition()
	assert.Equal(t, 10.0, px)
	assert.Equal(t, 20.0, py)
}

func TestInputIgnoresOutOfRange(t *testing.T) {
	in := NewInput()
	in.Process(MouseInputEvent{Button: BUTTON_MAX_BUTTONS + 4, Pressed: true})
	in.Process(ResizedEvent{Width: 10, Height: 10})
	assert.False(t, in.IsButtonDown(BUTTON_MAX_BUTTONS+4))
	assert.False(t, in.IsKeyDown(KEYS_MAX_KEYS))
}

func TestFrameMetrics(t *testing.T) {
	m := NewFrameMetrics()
	for i := 0; i < int(AVG_COUNT); i++ {
		m.Update(0.010)
	}
	assert.InDelta(t, 10.0, m.FrameTime(), 1e-9)

	for i := 0; i < 100; i++ {
		m.Update(0.010)
	}
	assert.Greater(t, m.FPS(), 0.0)
}
