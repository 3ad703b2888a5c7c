package vulkan

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/azer/engine/core"
	"github.com/spaghettifunk/azer/engine/renderer"
)

const validationLayer = "VK_LAYER_KHRONOS_validation"

type Config struct {
	AppName string
	// Validation enables the Khronos validation layer and the debug report callback.
	Validation bool
	// FormatFallback lets the swapchain use B8G8R8A8_UNORM when R8G8B8A8_UNORM
	// is not offered by the surface.
	FormatFallback bool
}

// WindowSurface is the part of a window the backend needs: instance
// extensions and a way to create a presentable surface. *glfw.Window
// satisfies it.
type WindowSurface interface {
	GetRequiredInstanceExtensions() []string
	CreateWindowSurface(instance interface{}, allocCallbacks unsafe.Pointer) (uintptr, error)
}

// VulkanSurface implements renderer.Surface.
type VulkanSurface struct {
	context *VulkanContext
	Handle  vk.Surface
}

func (vs *VulkanSurface) Destroy() {
	if vs.Handle != vk.NullSurface {
		vk.DestroySurface(vs.context.Instance, vs.Handle, vs.context.Allocator)
		vs.Handle = vk.NullSurface
	}
}

// New creates the instance, surface and device for window and returns them
// as a renderer.Backend.
func New(window WindowSurface, cfg Config) (renderer.Backend, error) {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		return renderer.Backend{}, fmt.Errorf("GetInstanceProcAddress is nil")
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		return renderer.Backend{}, fmt.Errorf("failed to initialize vk: %w", err)
	}

	context := &VulkanContext{formatFallback: cfg.FormatFallback}
	if err := createInstance(context, window.GetRequiredInstanceExtensions(), cfg); err != nil {
		return renderer.Backend{}, err
	}
	release := func() {
		if context.debugCallback != vk.NullDebugReportCallback {
			vk.DestroyDebugReportCallback(context.Instance, context.debugCallback, context.Allocator)
			context.debugCallback = vk.NullDebugReportCallback
		}
		if context.Instance != nil {
			core.LogInfo("Destroying Vulkan instance...")
			vk.DestroyInstance(context.Instance, context.Allocator)
			context.Instance = nil
		}
	}

	// Surface
	core.LogDebug("Creating Vulkan surface...")
	surfacePtr, err := window.CreateWindowSurface(context.Instance, nil)
	if err != nil {
		release()
		return renderer.Backend{}, fmt.Errorf("vulkan surface creation failed: %w", err)
	}
	context.Surface = vk.SurfaceFromPointer(surfacePtr)
	surface := &VulkanSurface{context: context, Handle: context.Surface}
	core.LogDebug("Vulkan surface created.")

	locks := NewVulkanLockPool()
	device, err := DeviceCreate(context, locks)
	if err != nil {
		surface.Destroy()
		release()
		return renderer.Backend{}, fmt.Errorf("failed to create device: %w", err)
	}
	context.Device = device

	fence, err := NewFence(context, true)
	if err != nil {
		device.Destroy()
		surface.Destroy()
		release()
		return renderer.Backend{}, err
	}
	device.InFlightFence = fence

	return renderer.Backend{
		Device:   device,
		Queue:    &VulkanQueue{context: context, locks: locks},
		Surface:  surface,
		Memory:   &memoryAllocator{context: context},
		Commands: &commandAllocator{context: context, locks: locks},
		Release:  release,
	}, nil
}

func createInstance(context *VulkanContext, windowExtensions []string, cfg Config) error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(cfg.AppName),
		PEngineName:        VulkanSafeString("Azer Engine"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	// Obtain a list of required extensions
	requiredExtensions := append([]string{}, windowExtensions...)
	if portabilityEnumeration() {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}
	if cfg.Validation {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
	}
	core.LogInfo("Required extensions:")
	for _, ext := range requiredExtensions {
		core.LogInfo(ext)
	}
	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)

	// Validation layers.
	if cfg.Validation {
		core.LogInfo("Validation layers enabled. Enumerating...")
		found, err := hasInstanceLayer(validationLayer)
		if err != nil {
			return err
		}
		if found {
			layers := VulkanSafeStrings([]string{validationLayer})
			createInfo.EnabledLayerCount = uint32(len(layers))
			createInfo.PpEnabledLayerNames = layers
			core.LogInfo("All required validation layers are present.")
		} else {
			core.LogWarn("Validation layer %s is missing, continuing without it.", validationLayer)
		}
	}

	var instance vk.Instance
	if err := resultError("vkCreateInstance", vk.CreateInstance(&createInfo, context.Allocator, &instance)); err != nil {
		return err
	}
	context.Instance = instance
	if err := vk.InitInstance(context.Instance); err != nil {
		vk.DestroyInstance(context.Instance, context.Allocator)
		context.Instance = nil
		return err
	}
	core.LogInfo("Vulkan Instance created.")

	// Debugger
	if cfg.Validation {
		core.LogDebug("Creating Vulkan debugger...")
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: dbgCallbackFunc,
		}

		var dbg vk.DebugReportCallback
		if err := vk.Error(vk.CreateDebugReportCallback(context.Instance, &debugCreateInfo, context.Allocator, &dbg)); err != nil {
			core.LogWarn("vk.CreateDebugReportCallback failed with %s", err)
		} else {
			context.debugCallback = dbg
			core.LogDebug("Vulkan debugger created.")
		}
	}
	return nil
}

func hasInstanceLayer(name string) (bool, error) {
	var count uint32
	if err := resultError("vkEnumerateInstanceLayerProperties", vk.EnumerateInstanceLayerProperties(&count, nil)); err != nil {
		return false, err
	}
	available := make([]vk.LayerProperties, count)
	if err := resultError("vkEnumerateInstanceLayerProperties", vk.EnumerateInstanceLayerProperties(&count, available)); err != nil {
		return false, err
	}
	for i := range available {
		available[i].Deref()
		if vk.ToString(available[i].LayerName[:]) == name {
			return true, nil
		}
	}
	return false, nil
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportDebugBit) != 0:
		core.LogDebug("DEBUG: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogInfo("INFORMATION: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
