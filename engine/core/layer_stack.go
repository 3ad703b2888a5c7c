package core

import "github.com/google/uuid"

type layerEntry struct {
	id    uuid.UUID
	layer Layer
}

// LayerStack is an ordered collection of layers. Iteration follows push order.
type LayerStack struct {
	entries []layerEntry
}

func NewLayerStack() *LayerStack {
	return &LayerStack{}
}

// Push appends a layer and returns the identifier it was tagged with.
func (ls *LayerStack) Push(l Layer) uuid.UUID {
	id := uuid.New()
	ls.entries = append(ls.entries, layerEntry{id: id, layer: l})
	LogDebug("layer %s pushed (%T)", id, l)
	return id
}

// Pop removes and returns the most recently pushed layer.
func (ls *LayerStack) Pop() (Layer, bool) {
	if len(ls.entries) == 0 {
		return nil, false
	}
	i := len(ls.entries) - 1
	e := ls.entries[i]
	ls.entries[i] = layerEntry{}
	ls.entries = ls.entries[:i]
	LogDebug("layer %s popped", e.id)
	return e.layer, true
}

// ForEach calls f for every layer in push order.
func (ls *LayerStack) ForEach(f func(l Layer)) {
	for _, e := range ls.entries {
		f(e.layer)
	}
}

// IDs returns the layer identifiers in push order.
func (ls *LayerStack) IDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(ls.entries))
	for _, e := range ls.entries {
		ids = append(ids, e.id)
	}
	return ids
}

func (ls *LayerStack) Len() int {
	return len(ls.entries)
}

// Clear drops every layer without calling any callback.
func (ls *LayerStack) Clear() {
	ls.entries = nil
}
