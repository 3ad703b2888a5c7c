package core

import "fmt"

// EventCode identifies the kind of a window event.
type EventCode int

const (
	// The window asked to close. Ends the application loop.
	EVENT_CODE_CLOSE_REQUESTED EventCode = 0x01
	// The window wants a new frame.
	EVENT_CODE_REDRAW_REQUESTED EventCode = 0x02
	// Surface size changed from the OS.
	EVENT_CODE_RESIZED EventCode = 0x03
	// Cursor moved inside the window.
	EVENT_CODE_CURSOR_MOVED EventCode = 0x04
	// Mouse button pressed or released.
	EVENT_CODE_MOUSE_INPUT EventCode = 0x05
	// Keyboard key pressed, released or repeated.
	EVENT_CODE_KEYBOARD_INPUT EventCode = 0x06
)

func (c EventCode) String() string {
	switch c {
	case EVENT_CODE_CLOSE_REQUESTED:
		return "CloseRequested"
	case EVENT_CODE_REDRAW_REQUESTED:
		return "RedrawRequested"
	case EVENT_CODE_RESIZED:
		return "Resized"
	case EVENT_CODE_CURSOR_MOVED:
		return "CursorMoved"
	case EVENT_CODE_MOUSE_INPUT:
		return "MouseInput"
	case EVENT_CODE_KEYBOARD_INPUT:
		return "KeyboardInput"
	}
	return fmt.Sprintf("EventCode(%d)", int(c))
}

// Event is a window event delivered to the application loop and, for the
// input kinds, forwarded to every layer.
type Event interface {
	Code() EventCode
}

type CloseRequestedEvent struct{}

func (CloseRequestedEvent) Code() EventCode { return EVENT_CODE_CLOSE_REQUESTED }

type RedrawRequestedEvent struct{}

func (RedrawRequestedEvent) Code() EventCode { return EVENT_CODE_REDRAW_REQUESTED }

// ResizedEvent carries the new framebuffer size in pixels.
type ResizedEvent struct {
	Width  uint32
	Height uint32
}

func (ResizedEvent) Code() EventCode { return EVENT_CODE_RESIZED }

// IsZero reports whether either dimension is zero (minimized window).
func (e ResizedEvent) IsZero() bool {
	return e.Width == 0 || e.Height == 0
}

// CursorMovedEvent carries the cursor position in window coordinates.
type CursorMovedEvent struct {
	X float64
	Y float64
}

func (CursorMovedEvent) Code() EventCode { return EVENT_CODE_CURSOR_MOVED }

type MouseInputEvent struct {
	Button  Button
	Pressed bool
}

func (MouseInputEvent) Code() EventCode { return EVENT_CODE_MOUSE_INPUT }

type KeyboardInputEvent struct {
	Key     KeyCode
	Pressed bool
	Repeat  bool
}

func (KeyboardInputEvent) Code() EventCode { return EVENT_CODE_KEYBOARD_INPUT }
