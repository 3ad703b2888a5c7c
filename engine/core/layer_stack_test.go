package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namedLayer struct {
	name string
	log  *[]string
}

func (l *namedLayer) OnReady()                  { *l.log = append(*l.log, l.name+":ready") }
func (l *namedLayer) OnUpdate(DeltaTime)        {}
func (l *namedLayer) OnPhysicsUpdate(DeltaTime) {}
func (l *namedLayer) OnRender(Recorder)         {}
func (l *namedLayer) OnEvent(Event)             { *l.log = append(*l.log, l.name+":event") }
func (l *namedLayer) OnClose()                  { *l.log = append(*l.log, l.name+":close") }

func TestLayerStackDispatchOrder(t *testing.T) {
	var calls []string
	ls := NewLayerStack()
	ls.Push(&namedLayer{name: "a", log: &calls})
	ls.Push(&namedLayer{name: "b", log: &calls})
	ls.Push(&namedLayer{name: "c", log: &calls})

	ls.ForEach(func(l Layer) { l.OnEvent(CursorMovedEvent{}) })
	assert.Equal(t, []string{"a:event", "b:event", "c:event"}, calls)
}

func TestLayerStackPushPop(t *testing.T) {
	var calls []string
	ls := NewLayerStack()

	_, ok := ls.Pop()
	require.False(t, ok)

	a := &namedLayer{name: "a", log: &calls}
	b := &namedLayer{name: "b", log: &calls}
	idA := ls.Push(a)
	idB := ls.Push(b)
	require.NotEqual(t, idA, idB)
	require.Equal(t, 2, ls.Len())
	assert.Equal(t, idA, ls.IDs()[0])

	got, ok := ls.Pop()
	require.True(t, ok)
	assert.Same(t, b, got)
	assert.Equal(t, 1, ls.Len())
}

func TestLayerStackClear(t *testing.T) {
	var calls []string
	ls := NewLayerStack()
	ls.Push(&namedLayer{name: "a", log: &calls})
	ls.Clear()

	assert.Equal(t, 0, ls.Len())
	visited := 0
	ls.ForEach(func(Layer) { visited++ })
	assert.Zero(t, visited)
	assert.Empty(t, calls)
}
