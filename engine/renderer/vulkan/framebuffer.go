package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/azer/engine/renderer"
)

// VulkanFramebuffer owns the image view of the swapchain image it targets.
type VulkanFramebuffer struct {
	context    *VulkanContext
	Handle     vk.Framebuffer
	View       vk.ImageView
	Renderpass *VulkanRenderpass
	extent     renderer.Extent
}

var _ renderer.Framebuffer = (*VulkanFramebuffer)(nil)

// CreateFramebuffer implements renderer.Device.
func (vd *VulkanDevice) CreateFramebuffer(pass renderer.RenderPass, image renderer.Image) (renderer.Framebuffer, error) {
	renderpass, ok := pass.(*VulkanRenderpass)
	if !ok {
		return nil, fmt.Errorf("render pass %T is not a vulkan render pass", pass)
	}
	img, ok := image.(*VulkanImage)
	if !ok {
		return nil, fmt.Errorf("image %T is not a vulkan image", image)
	}

	viewCreateInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    img.Handle,
		ViewType: vk.ImageViewType2d,
		Format:   img.Format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	var view vk.ImageView
	if err := resultError("vkCreateImageView", vk.CreateImageView(vd.LogicalDevice, &viewCreateInfo, vd.context.Allocator, &view)); err != nil {
		return nil, err
	}

	extent := img.Extent()
	framebufferCreateInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderpass.Handle,
		AttachmentCount: 1,
		PAttachments:    []vk.ImageView{view},
		Width:           extent.Width,
		Height:          extent.Height,
		Layers:          1,
	}

	var handle vk.Framebuffer
	if err := resultError("vkCreateFramebuffer", vk.CreateFramebuffer(vd.LogicalDevice, &framebufferCreateInfo, vd.context.Allocator, &handle)); err != nil {
		vk.DestroyImageView(vd.LogicalDevice, view, vd.context.Allocator)
		return nil, err
	}

	return &VulkanFramebuffer{
		context:    vd.context,
		Handle:     handle,
		View:       view,
		Renderpass: renderpass,
		extent:     extent,
	}, nil
}

func (vfb *VulkanFramebuffer) Extent() renderer.Extent {
	return vfb.extent
}

func (vfb *VulkanFramebuffer) Destroy() {
	device := vfb.context.Device.LogicalDevice
	if vfb.Handle != vk.NullFramebuffer {
		vk.DestroyFramebuffer(device, vfb.Handle, vfb.context.Allocator)
		vfb.Handle = vk.NullFramebuffer
	}
	if vfb.View != vk.NullImageView {
		vk.DestroyImageView(device, vfb.View, vfb.context.Allocator)
		vfb.View = vk.NullImageView
	}
	vfb.Renderpass = nil
}
