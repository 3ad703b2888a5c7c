package vulkan

import (
	"errors"
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/azer/engine/core"
	"github.com/spaghettifunk/azer/engine/renderer"
)

// VulkanQueue submits to the graphics queue and presents on the present
// queue. One frame is in flight at a time, tracked by the device fence.
type VulkanQueue struct {
	context *VulkanContext
	locks   *VulkanLockPool
}

var _ renderer.Queue = (*VulkanQueue)(nil)

// Submit executes cb once the image-available semaphore of sc fires and
// presents image index once rendering has finished. When presenting fails
// after a successful submit, the fence is waited on before returning so it
// is never left pending.
func (q *VulkanQueue) Submit(sc renderer.Swapchain, index uint32, cb renderer.CommandBuffer) (renderer.Fence, error) {
	swapchain, ok := sc.(*VulkanSwapchain)
	if !ok {
		return nil, fmt.Errorf("swapchain %T is not a vulkan swapchain", sc)
	}
	commandBuffer, ok := cb.(*VulkanCommandBuffer)
	if !ok {
		return nil, fmt.Errorf("command buffer %T is not a vulkan command buffer", cb)
	}
	if commandBuffer.State != COMMAND_BUFFER_STATE_RECORDING_ENDED {
		return nil, commandBuffer.stateError("submit")
	}

	device := q.context.Device
	fence := device.InFlightFence
	if err := fence.Reset(); err != nil {
		return nil, err
	}

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{swapchain.ImageAvailable},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{commandBuffer.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{swapchain.RenderFinished},
	}

	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{swapchain.RenderFinished},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{swapchain.Handle},
		PImageIndices:      []uint32{index},
	}

	var presentErr error
	if err := q.locks.SafeCall(QueueManagement, func() error {
		if err := resultError("vkQueueSubmit", vk.QueueSubmit(device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, fence.Handle)); err != nil {
			return err
		}
		presentErr = resultError("vkQueuePresentKHR", vk.QueuePresent(device.PresentQueue, &presentInfo))
		return nil
	}); err != nil {
		return nil, err
	}

	if presentErr != nil {
		if err := fence.Wait(); err != nil {
			core.LogError("failed to wait for frame fence after present failure: %s", err)
		}
		if errors.Is(presentErr, core.ErrSwapchainOutOfDate) {
			return nil, presentErr
		}
		return nil, fmt.Errorf("%w: %w", core.ErrPresentFailed, presentErr)
	}
	return fence, nil
}
