package renderer

// Extent is a 2D size in pixels.
type Extent struct {
	Width  uint32
	Height uint32
}

// IsZero reports whether either dimension is zero.
func (e Extent) IsZero() bool {
	return e.Width == 0 || e.Height == 0
}

type ImageFormat uint8

const (
	FormatUndefined ImageFormat = iota
	FormatR8G8B8A8Unorm
	FormatB8G8R8A8Unorm
)

func (f ImageFormat) String() string {
	switch f {
	case FormatR8G8B8A8Unorm:
		return "R8G8B8A8_UNORM"
	case FormatB8G8R8A8Unorm:
		return "B8G8R8A8_UNORM"
	}
	return "UNDEFINED"
}

type PresentMode uint8

const (
	PresentModeFifo PresentMode = iota
	PresentModeMailbox
	PresentModeImmediate
)

func (m PresentMode) String() string {
	switch m {
	case PresentModeFifo:
		return "FIFO"
	case PresentModeMailbox:
		return "MAILBOX"
	case PresentModeImmediate:
		return "IMMEDIATE"
	}
	return "UNKNOWN"
}

// SwapchainInfo describes how a swapchain was (or will be) created.
type SwapchainInfo struct {
	Format      ImageFormat
	PresentMode PresentMode
	Extent      Extent
}

// ClearColor is an RGBA clear value.
type ClearColor [4]float32

// Vertex2D is the only vertex layout the pipeline knows: a vec2 position.
type Vertex2D struct {
	Position [2]float32
}

// ShaderStages holds SPIR-V words for the graphics pipeline.
type ShaderStages struct {
	Vertex   []uint32
	Fragment []uint32
}

// Surface is the presentable window surface.
type Surface interface {
	Destroy()
}

// Image is a swapchain image.
type Image interface {
	Extent() Extent
}

// RenderPass is the single-subpass, single-color-attachment render target layout.
type RenderPass interface {
	Format() ImageFormat
	Destroy()
}

type Framebuffer interface {
	Extent() Extent
	Destroy()
}

type Pipeline interface {
	Viewport() Extent
	Destroy()
}

type Buffer interface {
	VertexCount() uint32
	Destroy()
}

// CommandBuffer is a finished, replayable recording.
type CommandBuffer interface {
	Destroy()
}

// Swapchain is a presentation image chain bound to a surface.
type Swapchain interface {
	Info() SwapchainInfo
	// AcquireNextImage blocks until an image is available. suboptimal is set
	// when the image can still be presented but no longer matches the surface.
	// A stale swapchain is reported as core.ErrSwapchainOutOfDate.
	AcquireNextImage() (index uint32, suboptimal bool, err error)
	// Recreate builds a replacement swapchain from info. The receiver stays
	// valid until destroyed by the caller.
	Recreate(info SwapchainInfo) (Swapchain, []Image, error)
	Destroy()
}

// Fence signals completion of a submission.
type Fence interface {
	// Wait blocks with no timeout until the fence signals.
	Wait() error
}

// Queue executes command buffers and presents the result.
type Queue interface {
	// Submit waits on the image-available signal of index, executes cb and
	// presents index on sc. A stale swapchain is reported as
	// core.ErrSwapchainOutOfDate, any other present failure wraps
	// core.ErrPresentFailed.
	Submit(sc Swapchain, index uint32, cb CommandBuffer) (Fence, error)
}

// Device creates GPU objects.
type Device interface {
	CreateSwapchain(surface Surface, info SwapchainInfo) (Swapchain, []Image, error)
	CreateRenderPass(format ImageFormat) (RenderPass, error)
	CreateFramebuffer(pass RenderPass, image Image) (Framebuffer, error)
	CreateGraphicsPipeline(pass RenderPass, stages ShaderStages, viewport Extent) (Pipeline, error)
	WaitIdle() error
	Destroy()
}

// CommandAllocator hands out fresh recordings.
type CommandAllocator interface {
	NewRecording() (Recording, error)
}

// Recording is a command buffer under construction.
type Recording interface {
	BeginRenderPass(pass RenderPass, fb Framebuffer, clear ClearColor) error
	BindPipeline(p Pipeline) error
	BindVertexBuffer(b Buffer) error
	Draw(vertexCount, instanceCount uint32) error
	EndRenderPass() error
	Build() (CommandBuffer, error)
	// Destroy discards a recording that will not be built.
	Destroy()
}

// MemoryAllocator allocates device buffers.
type MemoryAllocator interface {
	CreateVertexBuffer(vertices []Vertex2D) (Buffer, error)
}

// Backend is the set of handles a GPU implementation provides at startup.
type Backend struct {
	Device   Device
	Queue    Queue
	Surface  Surface
	Memory   MemoryAllocator
	Commands CommandAllocator
	// Release tears down what the handles above do not own (instance, debug
	// callback). May be nil.
	Release func()
}
