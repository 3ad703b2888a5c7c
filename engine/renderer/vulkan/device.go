package vulkan

import (
	"fmt"
	"runtime"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/azer/engine/core"
	"github.com/spaghettifunk/azer/engine/renderer"
)

// VulkanDevice is the selected physical device, its logical device and the
// graphics command pool. It implements renderer.Device.
type VulkanDevice struct {
	context *VulkanContext
	locks   *VulkanLockPool

	PhysicalDevice     vk.PhysicalDevice
	LogicalDevice      vk.Device
	SwapchainSupport   VulkanSwapchainSupportInfo
	GraphicsQueueIndex uint32
	PresentQueueIndex  uint32

	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue

	GraphicsCommandPool vk.CommandPool
	// Signaled when the last submitted frame has finished executing.
	InFlightFence *VulkanFence

	Properties vk.PhysicalDeviceProperties
}

var _ renderer.Device = (*VulkanDevice)(nil)

type VulkanSwapchainSupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

type queueFamilyInfo struct {
	graphics, present       uint32
	hasGraphics, hasPresent bool
}

func (q queueFamilyInfo) complete() bool {
	return q.hasGraphics && q.hasPresent
}

// DeviceCreate selects a physical device able to render to context.Surface
// and creates the logical device, its queues and the graphics command pool.
func DeviceCreate(context *VulkanContext, locks *VulkanLockPool) (*VulkanDevice, error) {
	device := &VulkanDevice{
		context: context,
		locks:   locks,
	}
	if err := device.selectPhysicalDevice(); err != nil {
		return nil, err
	}

	core.LogInfo("Creating logical device...")

	families := []uint32{device.GraphicsQueueIndex}
	if device.PresentQueueIndex != device.GraphicsQueueIndex {
		families = append(families, device.PresentQueueIndex)
	}
	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, 0, len(families))
	for _, family := range families {
		queueCreateInfos = append(queueCreateInfos, vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		})
	}

	extensionNames := []string{vk.KhrSwapchainExtensionName}
	if device.hasExtension("VK_KHR_portability_subset") {
		core.LogInfo("Adding required extension 'VK_KHR_portability_subset'.")
		extensionNames = append(extensionNames, "VK_KHR_portability_subset")
	}
	extensionNames = VulkanSafeStrings(extensionNames)

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{{}},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: extensionNames,
	}

	var logicalDevice vk.Device
	if err := resultError("vkCreateDevice", vk.CreateDevice(device.PhysicalDevice, &deviceCreateInfo, context.Allocator, &logicalDevice)); err != nil {
		return nil, err
	}
	device.LogicalDevice = logicalDevice
	core.LogInfo("Logical device created.")

	var graphicsQueue, presentQueue vk.Queue
	vk.GetDeviceQueue(device.LogicalDevice, device.GraphicsQueueIndex, 0, &graphicsQueue)
	vk.GetDeviceQueue(device.LogicalDevice, device.PresentQueueIndex, 0, &presentQueue)
	device.GraphicsQueue = graphicsQueue
	device.PresentQueue = presentQueue
	core.LogInfo("Queues obtained.")

	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: device.GraphicsQueueIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if err := resultError("vkCreateCommandPool", vk.CreateCommandPool(device.LogicalDevice, &poolCreateInfo, context.Allocator, &pool)); err != nil {
		vk.DestroyDevice(device.LogicalDevice, context.Allocator)
		return nil, err
	}
	device.GraphicsCommandPool = pool
	core.LogInfo("Graphics command pool created.")

	return device, nil
}

// WaitIdle blocks until the device has finished all submitted work.
func (vd *VulkanDevice) WaitIdle() error {
	return resultError("vkDeviceWaitIdle", vk.DeviceWaitIdle(vd.LogicalDevice))
}

// Destroy releases the command pool and the logical device. Physical devices
// are not destroyed.
func (vd *VulkanDevice) Destroy() {
	if vd.LogicalDevice == nil {
		return
	}
	if vd.InFlightFence != nil {
		vd.InFlightFence.Destroy()
		vd.InFlightFence = nil
	}

	core.LogInfo("Destroying command pools...")
	if vd.GraphicsCommandPool != vk.NullCommandPool {
		vk.DestroyCommandPool(vd.LogicalDevice, vd.GraphicsCommandPool, vd.context.Allocator)
		vd.GraphicsCommandPool = vk.NullCommandPool
	}

	core.LogInfo("Destroying logical device...")
	vk.DestroyDevice(vd.LogicalDevice, vd.context.Allocator)
	vd.LogicalDevice = nil
	vd.GraphicsQueue = nil
	vd.PresentQueue = nil
	vd.SwapchainSupport = VulkanSwapchainSupportInfo{}
}

// QuerySwapchainSupport refreshes the surface capabilities, formats and present modes.
func (vd *VulkanDevice) QuerySwapchainSupport() error {
	support, err := querySwapchainSupport(vd.PhysicalDevice, vd.context.Surface)
	if err != nil {
		return err
	}
	vd.SwapchainSupport = support
	return nil
}

func querySwapchainSupport(physicalDevice vk.PhysicalDevice, surface vk.Surface) (VulkanSwapchainSupportInfo, error) {
	var supportInfo VulkanSwapchainSupportInfo

	var capabilities vk.SurfaceCapabilities
	if err := resultError("vkGetPhysicalDeviceSurfaceCapabilitiesKHR", vk.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, surface, &capabilities)); err != nil {
		return supportInfo, err
	}
	capabilities.Deref()
	capabilities.CurrentExtent.Deref()
	capabilities.MinImageExtent.Deref()
	capabilities.MaxImageExtent.Deref()
	supportInfo.Capabilities = capabilities

	var formatCount uint32
	if err := resultError("vkGetPhysicalDeviceSurfaceFormatsKHR", vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, nil)); err != nil {
		return supportInfo, err
	}
	if formatCount != 0 {
		formats := make([]vk.SurfaceFormat, formatCount)
		if err := resultError("vkGetPhysicalDeviceSurfaceFormatsKHR", vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, formats)); err != nil {
			return supportInfo, err
		}
		for i := range formats {
			formats[i].Deref()
		}
		supportInfo.Formats = formats
	}

	var presentModeCount uint32
	if err := resultError("vkGetPhysicalDeviceSurfacePresentModesKHR", vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, nil)); err != nil {
		return supportInfo, err
	}
	if presentModeCount != 0 {
		presentModes := make([]vk.PresentMode, presentModeCount)
		if err := resultError("vkGetPhysicalDeviceSurfacePresentModesKHR", vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, presentModes)); err != nil {
			return supportInfo, err
		}
		supportInfo.PresentModes = presentModes
	}
	return supportInfo, nil
}

func (vd *VulkanDevice) selectPhysicalDevice() error {
	var physicalDeviceCount uint32
	if err := resultError("vkEnumeratePhysicalDevices", vk.EnumeratePhysicalDevices(vd.context.Instance, &physicalDeviceCount, nil)); err != nil {
		return err
	}
	if physicalDeviceCount == 0 {
		return fmt.Errorf("no devices which support Vulkan were found")
	}
	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if err := resultError("vkEnumeratePhysicalDevices", vk.EnumeratePhysicalDevices(vd.context.Instance, &physicalDeviceCount, physicalDevices)); err != nil {
		return err
	}

	var bestScore int
	for _, physicalDevice := range physicalDevices {
		var properties vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(physicalDevice, &properties)
		properties.Deref()

		queues, support, ok := vd.meetsRequirements(physicalDevice, &properties)
		if !ok {
			continue
		}

		score := 1
		if properties.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu {
			score += 1000
		}
		if score <= bestScore {
			continue
		}
		bestScore = score
		vd.PhysicalDevice = physicalDevice
		vd.Properties = properties
		vd.GraphicsQueueIndex = queues.graphics
		vd.PresentQueueIndex = queues.present
		vd.SwapchainSupport = support
	}

	if bestScore == 0 {
		return fmt.Errorf("no physical devices were found which meet the requirements")
	}

	core.LogInfo("Selected device: '%s'.", vk.ToString(vd.Properties.DeviceName[:]))
	switch vd.Properties.DeviceType {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		core.LogInfo("GPU type is Integrated.")
	case vk.PhysicalDeviceTypeDiscreteGpu:
		core.LogInfo("GPU type is Discrete.")
	case vk.PhysicalDeviceTypeVirtualGpu:
		core.LogInfo("GPU type is Virtual.")
	case vk.PhysicalDeviceTypeCpu:
		core.LogInfo("GPU type is CPU.")
	default:
		core.LogInfo("GPU type is Unknown.")
	}
	core.LogInfo("Vulkan API version: %s", vk.Version(vd.Properties.ApiVersion))
	return nil
}

func (vd *VulkanDevice) meetsRequirements(physicalDevice vk.PhysicalDevice, properties *vk.PhysicalDeviceProperties) (queueFamilyInfo, VulkanSwapchainSupportInfo, bool) {
	name := vk.ToString(properties.DeviceName[:])

	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(physicalDevice, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(physicalDevice, &queueFamilyCount, queueFamilies)

	var queues queueFamilyInfo
	for i := range queueFamilies {
		queueFamilies[i].Deref()
		if queueFamilies[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 && !queues.hasGraphics {
			queues.graphics = uint32(i)
			queues.hasGraphics = true
		}
		var supportsPresent vk.Bool32
		if res := vk.GetPhysicalDeviceSurfaceSupport(physicalDevice, uint32(i), vd.context.Surface, &supportsPresent); res != vk.Success {
			continue
		}
		if supportsPresent == vk.True && !queues.hasPresent {
			queues.present = uint32(i)
			queues.hasPresent = true
		}
	}
	if !queues.complete() {
		core.LogInfo("Device '%s' lacks a graphics or present queue, skipping.", name)
		return queues, VulkanSwapchainSupportInfo{}, false
	}

	if !deviceHasExtension(physicalDevice, vk.KhrSwapchainExtensionName) {
		core.LogInfo("Device '%s' lacks '%s', skipping.", name, vk.KhrSwapchainExtensionName)
		return queues, VulkanSwapchainSupportInfo{}, false
	}

	support, err := querySwapchainSupport(physicalDevice, vd.context.Surface)
	if err != nil || len(support.Formats) == 0 || len(support.PresentModes) == 0 {
		core.LogInfo("Required swapchain support not present on '%s', skipping device.", name)
		return queues, support, false
	}

	core.LogDebug("Device '%s' meets requirements (graphics family %d, present family %d).", name, queues.graphics, queues.present)
	return queues, support, true
}

func (vd *VulkanDevice) hasExtension(name string) bool {
	return deviceHasExtension(vd.PhysicalDevice, name)
}

func deviceHasExtension(physicalDevice vk.PhysicalDevice, name string) bool {
	var count uint32
	if res := vk.EnumerateDeviceExtensionProperties(physicalDevice, "", &count, nil); res != vk.Success || count == 0 {
		return false
	}
	available := make([]vk.ExtensionProperties, count)
	if res := vk.EnumerateDeviceExtensionProperties(physicalDevice, "", &count, available); res != vk.Success {
		return false
	}
	for i := range available {
		available[i].Deref()
		if vk.ToString(available[i].ExtensionName[:]) == name {
			return true
		}
	}
	return false
}

// portabilityEnumeration reports whether the instance must enumerate
// portability drivers (MoltenVK).
func portabilityEnumeration() bool {
	return runtime.GOOS == "darwin"
}
