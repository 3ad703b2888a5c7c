package renderer

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/azer/engine/core"
)

type FrameStatus uint8

const (
	// The frame was executed and presented.
	FrameSubmitted FrameStatus = iota
	// The swapchain is stale; nothing was submitted and recreation is flagged.
	FrameSkipped
	// Submission or presentation failed for a non-stale reason; the failure was logged.
	FrameDropped
)

func (s FrameStatus) String() string {
	switch s {
	case FrameSubmitted:
		return "submitted"
	case FrameSkipped:
		return "skipped"
	case FrameDropped:
		return "dropped"
	}
	return "unknown"
}

type AcquireKind uint8

const (
	AcquireReady AcquireKind = iota
	AcquireStale
	AcquireFatal
)

// AcquireOutcome is the classified result of an image acquisition.
type AcquireOutcome struct {
	Kind       AcquireKind
	Index      uint32
	Suboptimal bool
	Err        error
}

// ClassifyAcquire maps the raw result of Swapchain.AcquireNextImage.
func ClassifyAcquire(index uint32, suboptimal bool, err error) AcquireOutcome {
	switch {
	case errors.Is(err, core.ErrSwapchainOutOfDate):
		return AcquireOutcome{Kind: AcquireStale, Err: err}
	case err != nil:
		return AcquireOutcome{Kind: AcquireFatal, Err: err}
	}
	return AcquireOutcome{Kind: AcquireReady, Index: index, Suboptimal: suboptimal}
}

// FrameSubmitter drives one acquire, execute, present cycle per call. It is
// only used from the loop thread.
type FrameSubmitter struct {
	recreateSwapchain bool
	frames            uint64
}

func NewFrameSubmitter() *FrameSubmitter {
	return &FrameSubmitter{}
}

// NeedsRecreation reports whether a stale or suboptimal swapchain was observed.
func (f *FrameSubmitter) NeedsRecreation() bool {
	return f.recreateSwapchain
}

// FlagRecreation marks the swapchain stale.
func (f *FrameSubmitter) FlagRecreation() {
	f.recreateSwapchain = true
}

// ClearRecreation is called once the swapchain has been recreated.
func (f *FrameSubmitter) ClearRecreation() {
	f.recreateSwapchain = false
}

// Frames returns the number of frames presented so far.
func (f *FrameSubmitter) Frames() uint64 {
	return f.frames
}

// SubmitFrame acquires the next image, executes the matching command buffer
// and presents it, then waits for the GPU to finish. Only fatal failures are
// returned as errors: a failed present drops the frame, a failed submit does
// not.
func (f *FrameSubmitter) SubmitFrame(ctx *GraphicsContext) (FrameStatus, error) {
	var fence Fence
	status := FrameSubmitted

	err := ctx.View(func(s ContextState) error {
		outcome := ClassifyAcquire(s.Swapchain.AcquireNextImage())
		switch outcome.Kind {
		case AcquireFatal:
			return fmt.Errorf("failed to acquire next swapchain image: %w", outcome.Err)
		case AcquireStale:
			core.LogDebug("swapchain out of date on acquire, skipping frame")
			f.recreateSwapchain = true
			status = FrameSkipped
			return nil
		}
		if outcome.Suboptimal {
			core.LogDebug("swapchain suboptimal on acquire, skipping frame")
			f.recreateSwapchain = true
			status = FrameSkipped
			return nil
		}
		if int(outcome.Index) >= len(s.CommandBuffers) {
			core.LogWarn("no command buffer for swapchain image %d, skipping frame", outcome.Index)
			f.recreateSwapchain = true
			status = FrameSkipped
			return nil
		}

		fnc, err := s.Queue.Submit(s.Swapchain, outcome.Index, s.CommandBuffers[outcome.Index])
		if err != nil {
			if errors.Is(err, core.ErrSwapchainOutOfDate) {
				core.LogDebug("swapchain out of date on present, skipping frame")
				f.recreateSwapchain = true
				status = FrameSkipped
				return nil
			}
			if errors.Is(err, core.ErrPresentFailed) {
				core.LogError("failed to present frame: %s", err)
				status = FrameDropped
				return nil
			}
			return fmt.Errorf("failed to submit frame: %w", err)
		}
		fence = fnc
		return nil
	})
	if err != nil {
		return status, err
	}
	if fence == nil {
		return status, nil
	}

	if err := fence.Wait(); err != nil {
		return status, fmt.Errorf("failed to wait for frame fence: %w", err)
	}
	f.frames++
	return FrameSubmitted, nil
}
