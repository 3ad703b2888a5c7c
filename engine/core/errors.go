package core

import (
	"errors"
)

var (
	// The surface no longer matches the swapchain; it must be recreated before presenting again.
	ErrSwapchainOutOfDate = errors.New("swapchain out of date")
	ErrSurfaceUnsupported = errors.New("surface capabilities not supported")
	ErrRecordingScopeOpen = errors.New("a recording scope is already open")
	ErrNoRecordingScope   = errors.New("no recording scope is open")
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrInvalidShader      = errors.New("invalid shader binary")
	// Work was queued but the image could not be presented. The frame is lost, the device is not.
	ErrPresentFailed = errors.New("presentation failed")
)
