package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/azer/engine/renderer"
)

// VulkanRenderpass has a single subpass writing one color attachment that is
// cleared on load and left ready for presentation.
type VulkanRenderpass struct {
	context *VulkanContext
	Handle  vk.RenderPass
	format  renderer.ImageFormat
}

var _ renderer.RenderPass = (*VulkanRenderpass)(nil)

// CreateRenderPass implements renderer.Device.
func (vd *VulkanDevice) CreateRenderPass(format renderer.ImageFormat) (renderer.RenderPass, error) {
	vkFormat := toVkFormat(format)
	if vkFormat == vk.FormatUndefined {
		return nil, fmt.Errorf("cannot create render pass for format %s", format)
	}

	// Color attachment
	colorAttachment := vk.AttachmentDescription{
		Format:         vkFormat,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,  // Do not expect any particular layout before render pass starts.
		FinalLayout:    vk.ImageLayoutPresentSrc, // Transitioned to after the render pass
	}

	colorAttachmentReference := []vk.AttachmentReference{
		{
			Attachment: 0,
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		},
	}

	// Main subpass
	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments:    colorAttachmentReference,
	}

	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
	}

	createInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vk.AttachmentDescription{colorAttachment},
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	var handle vk.RenderPass
	if err := resultError("vkCreateRenderPass", vk.CreateRenderPass(vd.LogicalDevice, &createInfo, vd.context.Allocator, &handle)); err != nil {
		return nil, err
	}
	return &VulkanRenderpass{
		context: vd.context,
		Handle:  handle,
		format:  format,
	}, nil
}

func (vr *VulkanRenderpass) Format() renderer.ImageFormat {
	return vr.format
}

func (vr *VulkanRenderpass) Destroy() {
	if vr.Handle != vk.NullRenderPass {
		vk.DestroyRenderPass(vr.context.Device.LogicalDevice, vr.Handle, vr.context.Allocator)
		vr.Handle = vk.NullRenderPass
	}
}
