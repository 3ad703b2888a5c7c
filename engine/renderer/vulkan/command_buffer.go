package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/azer/engine/renderer"
)

type VulkanCommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY VulkanCommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_IN_RENDER_PASS
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

func (s VulkanCommandBufferState) String() string {
	switch s {
	case COMMAND_BUFFER_STATE_READY:
		return "ready"
	case COMMAND_BUFFER_STATE_RECORDING:
		return "recording"
	case COMMAND_BUFFER_STATE_IN_RENDER_PASS:
		return "in render pass"
	case COMMAND_BUFFER_STATE_RECORDING_ENDED:
		return "recording ended"
	case COMMAND_BUFFER_STATE_NOT_ALLOCATED:
		return "not allocated"
	}
	return "unknown"
}

// VulkanCommandBuffer is a primary command buffer from the graphics pool. It
// is a renderer.Recording until Build, then a replayable renderer.CommandBuffer.
type VulkanCommandBuffer struct {
	context *VulkanContext
	locks   *VulkanLockPool

	Handle vk.CommandBuffer
	// Command buffer state.
	State VulkanCommandBufferState
}

var (
	_ renderer.Recording     = (*VulkanCommandBuffer)(nil)
	_ renderer.CommandBuffer = (*VulkanCommandBuffer)(nil)
)

func NewVulkanCommandBuffer(context *VulkanContext, locks *VulkanLockPool, isPrimary bool) (*VulkanCommandBuffer, error) {
	vCommandBuffer := &VulkanCommandBuffer{
		context: context,
		locks:   locks,
		State:   COMMAND_BUFFER_STATE_NOT_ALLOCATED,
	}

	level := vk.CommandBufferLevelPrimary
	if !isPrimary {
		level = vk.CommandBufferLevelSecondary
	}

	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        context.Device.GraphicsCommandPool,
		CommandBufferCount: 1,
		Level:              level,
	}

	handles := make([]vk.CommandBuffer, 1)
	if err := locks.SafeCall(CommandPoolManagement, func() error {
		return resultError("vkAllocateCommandBuffers", vk.AllocateCommandBuffers(context.Device.LogicalDevice, &allocateInfo, handles))
	}); err != nil {
		return nil, err
	}
	vCommandBuffer.Handle = handles[0]
	vCommandBuffer.State = COMMAND_BUFFER_STATE_READY

	return vCommandBuffer, nil
}

func (v *VulkanCommandBuffer) Begin(isSingleUse, isRenderpassContinue, isSimultaneousUse bool) error {
	if v.State != COMMAND_BUFFER_STATE_READY {
		return v.stateError("begin")
	}
	vBeginInfo := &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: 0,
	}

	if isSingleUse {
		vBeginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	if isRenderpassContinue {
		vBeginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageRenderPassContinueBit)
	}
	if isSimultaneousUse {
		vBeginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit)
	}

	if err := resultError("vkBeginCommandBuffer", vk.BeginCommandBuffer(v.Handle, vBeginInfo)); err != nil {
		return err
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING
	return nil
}

func (v *VulkanCommandBuffer) BeginRenderPass(pass renderer.RenderPass, fb renderer.Framebuffer, clear renderer.ClearColor) error {
	if v.State != COMMAND_BUFFER_STATE_RECORDING {
		return v.stateError("begin render pass")
	}
	renderpass, ok := pass.(*VulkanRenderpass)
	if !ok {
		return fmt.Errorf("render pass %T is not a vulkan render pass", pass)
	}
	framebuffer, ok := fb.(*VulkanFramebuffer)
	if !ok {
		return fmt.Errorf("framebuffer %T is not a vulkan framebuffer", fb)
	}

	var clearValue vk.ClearValue
	clearValue.SetColor(clear[:])

	extent := framebuffer.Extent()
	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  renderpass.Handle,
		Framebuffer: framebuffer.Handle,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: vk.Extent2D{Width: extent.Width, Height: extent.Height},
		},
		ClearValueCount: 1,
		PClearValues:    []vk.ClearValue{clearValue},
	}
	vk.CmdBeginRenderPass(v.Handle, &beginInfo, vk.SubpassContentsInline)
	v.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
	return nil
}

func (v *VulkanCommandBuffer) BindPipeline(p renderer.Pipeline) error {
	if v.State != COMMAND_BUFFER_STATE_IN_RENDER_PASS {
		return v.stateError("bind pipeline")
	}
	pipeline, ok := p.(*VulkanPipeline)
	if !ok {
		return fmt.Errorf("pipeline %T is not a vulkan pipeline", p)
	}
	vk.CmdBindPipeline(v.Handle, vk.PipelineBindPointGraphics, pipeline.Handle)
	return nil
}

func (v *VulkanCommandBuffer) BindVertexBuffer(b renderer.Buffer) error {
	if v.State != COMMAND_BUFFER_STATE_IN_RENDER_PASS {
		return v.stateError("bind vertex buffer")
	}
	buffer, ok := b.(*VulkanBuffer)
	if !ok {
		return fmt.Errorf("buffer %T is not a vulkan buffer", b)
	}
	vk.CmdBindVertexBuffers(v.Handle, 0, 1, []vk.Buffer{buffer.Handle}, []vk.DeviceSize{0})
	return nil
}

func (v *VulkanCommandBuffer) Draw(vertexCount, instanceCount uint32) error {
	if v.State != COMMAND_BUFFER_STATE_IN_RENDER_PASS {
		return v.stateError("draw")
	}
	vk.CmdDraw(v.Handle, vertexCount, instanceCount, 0, 0)
	return nil
}

func (v *VulkanCommandBuffer) EndRenderPass() error {
	if v.State != COMMAND_BUFFER_STATE_IN_RENDER_PASS {
		return v.stateError("end render pass")
	}
	vk.CmdEndRenderPass(v.Handle)
	v.State = COMMAND_BUFFER_STATE_RECORDING
	return nil
}

func (v *VulkanCommandBuffer) End() error {
	if v.State != COMMAND_BUFFER_STATE_RECORDING {
		return v.stateError("end")
	}
	if err := resultError("vkEndCommandBuffer", vk.EndCommandBuffer(v.Handle)); err != nil {
		return err
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

// Build finishes recording. The returned command buffer may be submitted any
// number of times.
func (v *VulkanCommandBuffer) Build() (renderer.CommandBuffer, error) {
	if err := v.End(); err != nil {
		return nil, err
	}
	return v, nil
}

// Destroy returns the command buffer to the pool.
func (v *VulkanCommandBuffer) Destroy() {
	if v.State == COMMAND_BUFFER_STATE_NOT_ALLOCATED {
		return
	}
	_ = v.locks.SafeCall(CommandPoolManagement, func() error {
		vk.FreeCommandBuffers(v.context.Device.LogicalDevice, v.context.Device.GraphicsCommandPool, 1, []vk.CommandBuffer{v.Handle})
		return nil
	})
	v.Handle = nil
	v.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
}

func (v *VulkanCommandBuffer) stateError(op string) error {
	return fmt.Errorf("cannot %s: command buffer is %s", op, v.State)
}

// commandAllocator opens primary recordings on the graphics command pool.
type commandAllocator struct {
	context *VulkanContext
	locks   *VulkanLockPool
}

func (a *commandAllocator) NewRecording() (renderer.Recording, error) {
	cb, err := NewVulkanCommandBuffer(a.context, a.locks, true)
	if err != nil {
		return nil, err
	}
	if err := cb.Begin(false, false, false); err != nil {
		cb.Destroy()
		return nil, err
	}
	return cb, nil
}
