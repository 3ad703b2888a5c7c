package platform

import (
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/stretchr/testify/assert"

	"github.com/spaghettifunk/azer/engine/core"
)

func TestTranslateKey(t *testing.T) {
	tests := []struct {
		key  glfw.Key
		want core.KeyCode
	}{
		{glfw.KeyA, core.KEY_A},
		{glfw.KeyW, core.KEY_W},
		{glfw.KeyZ, core.KEY_Z},
		{glfw.Key0, core.KEY_0},
		{glfw.Key9, core.KEY_9},
		{glfw.KeyF1, core.KEY_F1},
		{glfw.KeyF12, core.KEY_F12},
		{glfw.KeyEscape, core.KEY_ESCAPE},
		{glfw.KeyLeftShift, core.KEY_LSHIFT},
		{glfw.KeyWorld1, core.KEY_UNKNOWN},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, translateKey(tt.key), "glfw key %d", tt.key)
	}
}

func TestTranslateButton(t *testing.T) {
	b, ok := translateButton(glfw.MouseButtonRight)
	assert.True(t, ok)
	assert.Equal(t, core.BUTTON_RIGHT, b)

	_, ok = translateButton(glfw.MouseButton5)
	assert.False(t, ok)
}
