package renderer

import (
	"fmt"

	"github.com/spaghettifunk/azer/engine/core"
)

const (
	DefaultImageFormat = FormatR8G8B8A8Unorm
	DefaultPresentMode = PresentModeFifo
)

// SwapchainManager creates and replaces the swapchain and everything sized by it.
type SwapchainManager struct {
	format      ImageFormat
	presentMode PresentMode
}

func NewSwapchainManager() *SwapchainManager {
	return &SwapchainManager{
		format:      DefaultImageFormat,
		presentMode: DefaultPresentMode,
	}
}

// Create builds the initial swapchain for surface at extent.
func (m *SwapchainManager) Create(device Device, surface Surface, extent Extent) (Swapchain, []Image, error) {
	if extent.IsZero() {
		return nil, nil, fmt.Errorf("cannot create swapchain with extent %dx%d: %w", extent.Width, extent.Height, core.ErrSurfaceUnsupported)
	}
	info := SwapchainInfo{
		Format:      m.format,
		PresentMode: m.presentMode,
		Extent:      extent,
	}
	sc, images, err := device.CreateSwapchain(surface, info)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create swapchain: %w", err)
	}
	core.LogInfo("swapchain created: %d images, %s, %s, %dx%d", len(images), info.Format, info.PresentMode, extent.Width, extent.Height)
	return sc, images, nil
}

// Recreate replaces the swapchain with one of the given extent, keeping the
// previous format and present mode. Framebuffers are rebuilt, and the old
// framebuffers, command buffers and swapchain destroyed, all under one
// exclusive borrow of ctx. The command buffer set is left empty.
func (m *SwapchainManager) Recreate(ctx *GraphicsContext, extent Extent) error {
	if extent.IsZero() {
		return fmt.Errorf("cannot recreate swapchain with extent %dx%d: %w", extent.Width, extent.Height, core.ErrSurfaceUnsupported)
	}
	return ctx.Update(func(s *ContextState) error {
		if err := s.Device.WaitIdle(); err != nil {
			return fmt.Errorf("failed to wait for device idle: %w", err)
		}

		info := s.Swapchain.Info()
		info.Extent = extent
		sc, images, err := s.Swapchain.Recreate(info)
		if err != nil {
			return fmt.Errorf("failed to recreate swapchain: %w", err)
		}

		framebuffers, err := m.BuildFramebuffers(s.Device, s.RenderPass, images)
		if err != nil {
			sc.Destroy()
			return err
		}

		for _, fb := range s.Framebuffers {
			fb.Destroy()
		}
		for _, cb := range s.CommandBuffers {
			cb.Destroy()
		}
		s.Swapchain.Destroy()

		s.Swapchain = sc
		s.Images = images
		s.Framebuffers = framebuffers
		s.CommandBuffers = nil

		core.LogDebug("swapchain recreated: %d images, %dx%d", len(images), extent.Width, extent.Height)
		return nil
	})
}

// BuildFramebuffers creates one framebuffer per image, in image order. On
// failure the framebuffers already built are destroyed.
func (m *SwapchainManager) BuildFramebuffers(device Device, pass RenderPass, images []Image) ([]Framebuffer, error) {
	framebuffers := make([]Framebuffer, 0, len(images))
	for i, img := range images {
		fb, err := device.CreateFramebuffer(pass, img)
		if err != nil {
			for _, built := range framebuffers {
				built.Destroy()
			}
			return nil, fmt.Errorf("failed to create framebuffer %d: %w", i, err)
		}
		framebuffers = append(framebuffers, fb)
	}
	return framebuffers, nil
}
