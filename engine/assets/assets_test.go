package assets

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/azer/engine/assets/loaders"
	"github.com/spaghettifunk/azer/engine/core"
)

func writeModule(t *testing.T, path string, words ...uint32) {
	t.Helper()
	b := binary.LittleEndian.AppendUint32(nil, loaders.SPIRVMagic)
	for _, w := range words {
		b = binary.LittleEndian.AppendUint32(b, w)
	}
	require.NoError(t, os.WriteFile(path, b, 0o644))
}

func TestLoadShaders(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, filepath.Join(dir, "triangle.vert.spv"), 1)
	writeModule(t, filepath.Join(dir, "triangle.frag.spv"), 2, 3)

	am, err := NewAssetManager(dir)
	require.NoError(t, err)
	defer am.Close()

	stages, err := am.LoadShaders("triangle.vert.spv", "triangle.frag.spv")
	require.NoError(t, err)
	assert.Equal(t, []uint32{loaders.SPIRVMagic, 1}, stages.Vertex)
	assert.Equal(t, []uint32{loaders.SPIRVMagic, 2, 3}, stages.Fragment)
}

func TestLoadShadersErrors(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, filepath.Join(dir, "ok.spv"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.spv"), []byte{1, 2, 3}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644))

	am, err := NewAssetManager(dir)
	require.NoError(t, err)
	defer am.Close()

	_, err = am.LoadShaders("missing.spv", "ok.spv")
	assert.Error(t, err)

	_, err = am.LoadShaders("ok.spv", "broken.spv")
	assert.ErrorIs(t, err, core.ErrInvalidShader)

	_, err = am.LoadAsset("notes.txt")
	assert.Error(t, err)
}

func TestNewAssetManagerRequiresDirectory(t *testing.T) {
	_, err := NewAssetManager(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = NewAssetManager(file)
	assert.Error(t, err)
}

func TestWatchReportsShaderChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "triangle.frag.spv")
	writeModule(t, path, 1)

	am, err := NewAssetManager(dir)
	require.NoError(t, err)
	require.NoError(t, am.Watch())
	defer am.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.md"), []byte("ignored"), 0o644))
	writeModule(t, path, 2)

	select {
	case changed := <-am.Changes():
		assert.Equal(t, path, changed)
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification for rewritten shader")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	am, err := NewAssetManager(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, am.Watch())
	require.NoError(t, am.Close())
	require.NoError(t, am.Close())
	assert.Error(t, am.Watch())
}
