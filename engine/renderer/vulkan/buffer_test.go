package vulkan

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/azer/engine/renderer"
)

func TestEncodeVertices(t *testing.T) {
	data := encodeVertices([]renderer.Vertex2D{
		{Position: [2]float32{-0.5, 0.5}},
		{Position: [2]float32{0, -0.5}},
	})
	require.Len(t, data, 2*vertex2DStride)

	word := func(i int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	assert.Equal(t, float32(-0.5), word(0))
	assert.Equal(t, float32(0.5), word(1))
	assert.Equal(t, float32(0), word(2))
	assert.Equal(t, float32(-0.5), word(3))
}
