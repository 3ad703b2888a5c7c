package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/azer/engine/core"
	emath "github.com/spaghettifunk/azer/engine/math"
	"github.com/spaghettifunk/azer/engine/renderer"
)

// undefinedExtent in CurrentExtent means the surface size is decided by the swapchain.
const undefinedExtent = 0xFFFFFFFF

// VulkanImage is a swapchain owned image. Views are created by framebuffers.
type VulkanImage struct {
	Handle vk.Image
	Format vk.Format
	extent renderer.Extent
}

func (vi *VulkanImage) Extent() renderer.Extent {
	return vi.extent
}

// VulkanSwapchain owns its images and the two semaphores that order
// acquire, render and present for one frame.
type VulkanSwapchain struct {
	context *VulkanContext

	Handle      vk.Swapchain
	ImageFormat vk.SurfaceFormat
	Images      []*VulkanImage

	ImageAvailable vk.Semaphore
	RenderFinished vk.Semaphore

	info renderer.SwapchainInfo
}

var _ renderer.Swapchain = (*VulkanSwapchain)(nil)

type surfaceLimits struct {
	current vk.Extent2D
	min     vk.Extent2D
	max     vk.Extent2D
}

func toVkFormat(format renderer.ImageFormat) vk.Format {
	switch format {
	case renderer.FormatR8G8B8A8Unorm:
		return vk.FormatR8g8b8a8Unorm
	case renderer.FormatB8G8R8A8Unorm:
		return vk.FormatB8g8r8a8Unorm
	}
	return vk.FormatUndefined
}

func fromVkFormat(format vk.Format) renderer.ImageFormat {
	switch format {
	case vk.FormatR8g8b8a8Unorm:
		return renderer.FormatR8G8B8A8Unorm
	case vk.FormatB8g8r8a8Unorm:
		return renderer.FormatB8G8R8A8Unorm
	}
	return renderer.FormatUndefined
}

func toVkPresentMode(mode renderer.PresentMode) vk.PresentMode {
	switch mode {
	case renderer.PresentModeMailbox:
		return vk.PresentModeMailbox
	case renderer.PresentModeImmediate:
		return vk.PresentModeImmediate
	}
	return vk.PresentModeFifo
}

func fromVkPresentMode(mode vk.PresentMode) renderer.PresentMode {
	switch mode {
	case vk.PresentModeMailbox:
		return renderer.PresentModeMailbox
	case vk.PresentModeImmediate:
		return renderer.PresentModeImmediate
	}
	return renderer.PresentModeFifo
}

func chooseExtent(limits surfaceLimits, requested renderer.Extent) renderer.Extent {
	if limits.current.Width != undefinedExtent {
		return renderer.Extent{Width: limits.current.Width, Height: limits.current.Height}
	}
	w, h := emath.ClampExtent(
		requested.Width, requested.Height,
		limits.min.Width, limits.min.Height,
		limits.max.Width, limits.max.Height,
	)
	return renderer.Extent{Width: w, Height: h}
}

func chooseImageCount(minCount, maxCount uint32) uint32 {
	count := minCount + 1
	if maxCount > 0 && count > maxCount {
		count = maxCount
	}
	return count
}

// chooseSurfaceFormat picks the requested format. With fallback set,
// B8G8R8A8_UNORM is accepted when the requested format is missing.
func chooseSurfaceFormat(formats []vk.SurfaceFormat, requested renderer.ImageFormat, fallback bool) (vk.SurfaceFormat, error) {
	find := func(f vk.Format) (vk.SurfaceFormat, bool) {
		for _, format := range formats {
			if format.Format == f && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
				return format, true
			}
		}
		return vk.SurfaceFormat{}, false
	}
	if format, ok := find(toVkFormat(requested)); ok {
		return format, nil
	}
	if !fallback {
		return vk.SurfaceFormat{}, fmt.Errorf("surface does not support %s: %w", requested, core.ErrSurfaceUnsupported)
	}
	if format, ok := find(vk.FormatB8g8r8a8Unorm); ok {
		core.LogWarn("surface does not support %s, falling back to %s", requested, renderer.FormatB8G8R8A8Unorm)
		return format, nil
	}
	return vk.SurfaceFormat{}, fmt.Errorf("no usable surface format for %s: %w", requested, core.ErrSurfaceUnsupported)
}

func choosePresentMode(modes []vk.PresentMode, requested renderer.PresentMode) vk.PresentMode {
	want := toVkPresentMode(requested)
	for _, mode := range modes {
		if mode == want {
			return mode
		}
	}
	if want != vk.PresentModeFifo {
		core.LogWarn("present mode %s unavailable, using FIFO", requested)
	}
	return vk.PresentModeFifo
}

// CreateSwapchain implements renderer.Device.
func (vd *VulkanDevice) CreateSwapchain(surface renderer.Surface, info renderer.SwapchainInfo) (renderer.Swapchain, []renderer.Image, error) {
	if _, ok := surface.(*VulkanSurface); !ok {
		return nil, nil, fmt.Errorf("surface %T is not a vulkan surface", surface)
	}
	return createSwapchain(vd.context, info, vk.NullSwapchain)
}

// Recreate builds a replacement from info, handing the current chain to the
// driver as the old swapchain. The receiver must still be destroyed.
func (vs *VulkanSwapchain) Recreate(info renderer.SwapchainInfo) (renderer.Swapchain, []renderer.Image, error) {
	return createSwapchain(vs.context, info, vs.Handle)
}

func (vs *VulkanSwapchain) Info() renderer.SwapchainInfo {
	return vs.info
}

// AcquireNextImage waits without timeout for the next presentable image. The
// image-available semaphore is signaled once it can be written.
func (vs *VulkanSwapchain) AcquireNextImage() (uint32, bool, error) {
	var index uint32
	result := vk.AcquireNextImage(vs.context.Device.LogicalDevice, vs.Handle, vk.MaxUint64, vs.ImageAvailable, vk.NullFence, &index)
	if err := resultError("vkAcquireNextImageKHR", result); err != nil {
		return 0, false, err
	}
	return index, result == vk.Suboptimal, nil
}

func (vs *VulkanSwapchain) Destroy() {
	device := vs.context.Device.LogicalDevice
	if vs.ImageAvailable != vk.NullSemaphore {
		vk.DestroySemaphore(device, vs.ImageAvailable, vs.context.Allocator)
		vs.ImageAvailable = vk.NullSemaphore
	}
	if vs.RenderFinished != vk.NullSemaphore {
		vk.DestroySemaphore(device, vs.RenderFinished, vs.context.Allocator)
		vs.RenderFinished = vk.NullSemaphore
	}
	if vs.Handle != vk.NullSwapchain {
		vk.DestroySwapchain(device, vs.Handle, vs.context.Allocator)
		vs.Handle = vk.NullSwapchain
	}
	vs.Images = nil
}

func createSwapchain(context *VulkanContext, info renderer.SwapchainInfo, old vk.Swapchain) (*VulkanSwapchain, []renderer.Image, error) {
	device := context.Device
	if err := device.QuerySwapchainSupport(); err != nil {
		return nil, nil, err
	}
	support := device.SwapchainSupport

	format, err := chooseSurfaceFormat(support.Formats, info.Format, context.formatFallback)
	if err != nil {
		return nil, nil, err
	}
	presentMode := choosePresentMode(support.PresentModes, info.PresentMode)

	extent := chooseExtent(surfaceLimits{
		current: support.Capabilities.CurrentExtent,
		min:     support.Capabilities.MinImageExtent,
		max:     support.Capabilities.MaxImageExtent,
	}, info.Extent)
	if extent.IsZero() {
		return nil, nil, fmt.Errorf("surface reports extent %dx%d: %w", extent.Width, extent.Height, core.ErrSurfaceUnsupported)
	}

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          context.Surface,
		MinImageCount:    chooseImageCount(support.Capabilities.MinImageCount, support.Capabilities.MaxImageCount),
		ImageFormat:      format.Format,
		ImageColorSpace:  format.ColorSpace,
		ImageExtent:      vk.Extent2D{Width: extent.Width, Height: extent.Height},
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     support.Capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vk.True,
		OldSwapchain:     old,
	}

	// Setup the queue family indices
	if device.GraphicsQueueIndex != device.PresentQueueIndex {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCreateInfo.QueueFamilyIndexCount = 2
		swapchainCreateInfo.PQueueFamilyIndices = []uint32{device.GraphicsQueueIndex, device.PresentQueueIndex}
	} else {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	swapchain := &VulkanSwapchain{
		context:     context,
		ImageFormat: format,
		info: renderer.SwapchainInfo{
			Format:      fromVkFormat(format.Format),
			PresentMode: fromVkPresentMode(presentMode),
			Extent:      extent,
		},
	}

	var handle vk.Swapchain
	if err := resultError("vkCreateSwapchainKHR", vk.CreateSwapchain(device.LogicalDevice, &swapchainCreateInfo, context.Allocator, &handle)); err != nil {
		return nil, nil, err
	}
	swapchain.Handle = handle

	var imageCount uint32
	if err := resultError("vkGetSwapchainImagesKHR", vk.GetSwapchainImages(device.LogicalDevice, handle, &imageCount, nil)); err != nil {
		swapchain.Destroy()
		return nil, nil, err
	}
	handles := make([]vk.Image, imageCount)
	if err := resultError("vkGetSwapchainImagesKHR", vk.GetSwapchainImages(device.LogicalDevice, handle, &imageCount, handles)); err != nil {
		swapchain.Destroy()
		return nil, nil, err
	}

	images := make([]renderer.Image, 0, imageCount)
	for _, h := range handles {
		img := &VulkanImage{Handle: h, Format: format.Format, extent: extent}
		swapchain.Images = append(swapchain.Images, img)
		images = append(images, img)
	}

	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	for _, s := range []*vk.Semaphore{&swapchain.ImageAvailable, &swapchain.RenderFinished} {
		var semaphore vk.Semaphore
		if err := resultError("vkCreateSemaphore", vk.CreateSemaphore(device.LogicalDevice, &semaphoreCreateInfo, context.Allocator, &semaphore)); err != nil {
			swapchain.Destroy()
			return nil, nil, err
		}
		*s = semaphore
	}

	core.LogDebug("vulkan swapchain created with %d images at %dx%d", imageCount, extent.Width, extent.Height)
	return swapchain, images, nil
}
