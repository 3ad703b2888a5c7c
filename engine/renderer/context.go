package renderer

import "sync"

// ContextState is the long-lived set of GPU handles shared by the swapchain
// manager, the submitter and the renderer.
//
// Whenever CommandBuffers is non-empty, Images, Framebuffers and
// CommandBuffers have the same length and index i of each refers to the
// same swapchain image.
type ContextState struct {
	Device           Device
	Queue            Queue
	Surface          Surface
	Swapchain        Swapchain
	Images           []Image
	RenderPass       RenderPass
	Framebuffers     []Framebuffer
	CommandBuffers   []CommandBuffer
	MemoryAllocator  MemoryAllocator
	CommandAllocator CommandAllocator
}

// GraphicsContext guards a ContextState behind a single reader/writer lock.
// Callers borrow the whole state for one operation; borrows are not
// re-entrant.
type GraphicsContext struct {
	mu    sync.RWMutex
	state ContextState
}

func NewGraphicsContext(state ContextState) *GraphicsContext {
	return &GraphicsContext{state: state}
}

// View runs fn with shared access. fn must not retain slices past its return.
func (c *GraphicsContext) View(fn func(s ContextState) error) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return fn(c.state)
}

// Update runs fn with exclusive access.
func (c *GraphicsContext) Update(fn func(s *ContextState) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fn(&c.state)
}
