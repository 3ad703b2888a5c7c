package platform

import (
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/azer/engine/containers"
	"github.com/spaghettifunk/azer/engine/core"
)

// eventQueueSize bounds the events buffered between two pumps.
const eventQueueSize = 256

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

// Window is what the application loop needs from the OS window.
type Window interface {
	// Size returns the framebuffer size in pixels.
	Size() (uint32, uint32)
	// RequestRedraw makes the next PumpEvents deliver a RedrawRequested event.
	RequestRedraw()
	// RequestClose makes the next PumpEvents deliver a CloseRequested event.
	RequestClose()
	// PumpEvents processes pending OS events and returns them in arrival order.
	PumpEvents() []core.Event
	Destroy()
}

type WindowConfig struct {
	Title  string `toml:"title"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
	X      int    `toml:"x"`
	Y      int    `toml:"y"`
}

// GLFWWindow is a Window on top of GLFW with no client API, ready for a
// Vulkan surface.
type GLFWWindow struct {
	window *glfw.Window
	events *containers.RingQueue[core.Event]

	redrawRequested bool
	closeRequested  bool
}

var _ Window = (*GLFWWindow)(nil)

func NewGLFWWindow(cfg WindowConfig) (*GLFWWindow, error) {
	if err := glfw.Init(); err != nil {
		core.LogError("failed to initialize glfw: %s", err)
		return nil, err
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	window, err := glfw.CreateWindow(int(cfg.Width), int(cfg.Height), cfg.Title, nil, nil)
	if err != nil {
		core.LogError("failed to create window: %s", err)
		glfw.Terminate()
		return nil, err
	}

	w := &GLFWWindow{
		window: window,
		events: containers.NewRingQueue[core.Event](eventQueueSize),
	}

	window.SetKeyCallback(w.keyCallback)
	window.SetMouseButtonCallback(w.mouseButtonCallback)
	window.SetCursorPosCallback(w.cursorPosCallback)
	window.SetFramebufferSizeCallback(w.framebufferSizeCallback)
	window.SetPos(cfg.X, cfg.Y)
	window.Show()

	core.LogInfo("window '%s' created (%dx%d)", cfg.Title, cfg.Width, cfg.Height)
	return w, nil
}

func (w *GLFWWindow) Size() (uint32, uint32) {
	width, height := w.window.GetFramebufferSize()
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return uint32(width), uint32(height)
}

func (w *GLFWWindow) RequestRedraw() {
	w.redrawRequested = true
}

func (w *GLFWWindow) RequestClose() {
	w.closeRequested = true
}

func (w *GLFWWindow) PumpEvents() []core.Event {
	glfw.PollEvents()

	if w.window.ShouldClose() || w.closeRequested {
		w.closeRequested = false
		w.window.SetShouldClose(false)
		w.push(core.CloseRequestedEvent{})
	}
	if w.redrawRequested {
		w.redrawRequested = false
		w.push(core.RedrawRequestedEvent{})
	}
	return w.events.Drain()
}

func (w *GLFWWindow) Destroy() {
	if w.window != nil {
		w.window.Destroy()
		w.window = nil
	}
	glfw.Terminate()
}

// GetRequiredInstanceExtensions lists the Vulkan instance extensions the
// window surface needs.
func (w *GLFWWindow) GetRequiredInstanceExtensions() []string {
	return w.window.GetRequiredInstanceExtensions()
}

// CreateWindowSurface creates a VkSurfaceKHR for instance.
func (w *GLFWWindow) CreateWindowSurface(instance interface{}, allocCallbacks unsafe.Pointer) (uintptr, error) {
	return w.window.CreateWindowSurface(instance, allocCallbacks)
}

func (w *GLFWWindow) push(evt core.Event) {
	if err := w.events.Enqueue(evt); err != nil {
		core.LogWarn("dropping %s event: %s", evt.Code(), err)
	}
}

func (w *GLFWWindow) keyCallback(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
	w.push(core.KeyboardInputEvent{
		Key:     translateKey(key),
		Pressed: action != glfw.Release,
		Repeat:  action == glfw.Repeat,
	})
}

func (w *GLFWWindow) mouseButtonCallback(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
	b, ok := translateButton(button)
	if !ok {
		return
	}
	w.push(core.MouseInputEvent{Button: b, Pressed: action == glfw.Press})
}

func (w *GLFWWindow) cursorPosCallback(_ *glfw.Window, xpos, ypos float64) {
	w.push(core.CursorMovedEvent{X: xpos, Y: ypos})
}

func (w *GLFWWindow) framebufferSizeCallback(_ *glfw.Window, width, height int) {
	if width < 0 || height < 0 {
		return
	}
	w.push(core.ResizedEvent{Width: uint32(width), Height: uint32(height)})
}
