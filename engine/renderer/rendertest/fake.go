// Package rendertest provides an in-memory GPU backend for exercising the
// frame loop without a device.
package rendertest

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/azer/engine/core"
	"github.com/spaghettifunk/azer/engine/renderer"
)

// AcquireResult scripts one call to Swapchain.AcquireNextImage.
type AcquireResult struct {
	Index      uint32
	Suboptimal bool
	Err        error
}

// Stale is the acquire result of an out of date swapchain.
var Stale = AcquireResult{Err: core.ErrSwapchainOutOfDate}

// Fake is a scriptable renderer backend. Scripted results are consumed in
// order; once exhausted every call succeeds and images are handed out round
// robin.
type Fake struct {
	ImageCount int

	AcquireScript []AcquireResult
	SubmitScript  []error
	FenceErr      error

	FailFramebuffer error
	FailPipeline    error
	FailRecording   error

	SwapchainsCreated   int
	FramebuffersCreated int
	PipelinesCreated    int
	CommandBuffersBuilt int
	Submissions         int
	Draws               int
	WaitIdleCalls       int

	LiveSwapchains     int
	LiveFramebuffers   int
	LivePipelines      int
	LiveCommandBuffers int
	LiveRecordings     int

	SubmittedImages []uint32
	LastViewport    renderer.Extent
	LastStages      renderer.ShaderStages

	DeviceDestroyed  bool
	SurfaceDestroyed bool
	Released         bool

	next uint32
}

func New() *Fake {
	return &Fake{ImageCount: 3}
}

// Backend returns the handles the fake serves.
func (f *Fake) Backend() renderer.Backend {
	return renderer.Backend{
		Device:   &device{f: f},
		Queue:    &queue{f: f},
		Surface:  &surface{f: f},
		Memory:   &memory{f: f},
		Commands: &commands{f: f},
		Release:  func() { f.Released = true },
	}
}

type surface struct{ f *Fake }

func (s *surface) Destroy() { s.f.SurfaceDestroyed = true }

type image struct {
	index  int
	extent renderer.Extent
}

func (i *image) Extent() renderer.Extent { return i.extent }

type swapchain struct {
	f         *Fake
	info      renderer.SwapchainInfo
	destroyed bool
}

func (f *Fake) newSwapchain(info renderer.SwapchainInfo) (*swapchain, []renderer.Image) {
	f.SwapchainsCreated++
	f.LiveSwapchains++
	images := make([]renderer.Image, f.ImageCount)
	for i := range images {
		images[i] = &image{index: i, extent: info.Extent}
	}
	return &swapchain{f: f, info: info}, images
}

func (s *swapchain) Info() renderer.SwapchainInfo { return s.info }

func (s *swapchain) AcquireNextImage() (uint32, bool, error) {
	if len(s.f.AcquireScript) > 0 {
		r := s.f.AcquireScript[0]
		s.f.AcquireScript = s.f.AcquireScript[1:]
		return r.Index, r.Suboptimal, r.Err
	}
	idx := s.f.next % uint32(s.f.ImageCount)
	s.f.next++
	return idx, false, nil
}

func (s *swapchain) Recreate(info renderer.SwapchainInfo) (renderer.Swapchain, []renderer.Image, error) {
	if s.destroyed {
		return nil, nil, errors.New("recreate from destroyed swapchain")
	}
	sc, images := s.f.newSwapchain(info)
	return sc, images, nil
}

func (s *swapchain) Destroy() {
	if !s.destroyed {
		s.destroyed = true
		s.f.LiveSwapchains--
	}
}

type renderPass struct {
	format renderer.ImageFormat
}

func (p *renderPass) Format() renderer.ImageFormat { return p.format }
func (p *renderPass) Destroy()                     {}

type framebuffer struct {
	f         *Fake
	image     *image
	destroyed bool
}

func (fb *framebuffer) Extent() renderer.Extent { return fb.image.extent }

func (fb *framebuffer) Destroy() {
	if !fb.destroyed {
		fb.destroyed = true
		fb.f.LiveFramebuffers--
	}
}

type pipeline struct {
	f         *Fake
	viewport  renderer.Extent
	destroyed bool
}

func (p *pipeline) Viewport() renderer.Extent { return p.viewport }

func (p *pipeline) Destroy() {
	if !p.destroyed {
		p.destroyed = true
		p.f.LivePipelines--
	}
}

type device struct{ f *Fake }

func (d *device) CreateSwapchain(_ renderer.Surface, info renderer.SwapchainInfo) (renderer.Swapchain, []renderer.Image, error) {
	sc, images := d.f.newSwapchain(info)
	return sc, images, nil
}

func (d *device) CreateRenderPass(format renderer.ImageFormat) (renderer.RenderPass, error) {
	return &renderPass{format: format}, nil
}

func (d *device) CreateFramebuffer(_ renderer.RenderPass, img renderer.Image) (renderer.Framebuffer, error) {
	if err := d.f.FailFramebuffer; err != nil {
		d.f.FailFramebuffer = nil
		return nil, err
	}
	i, ok := img.(*image)
	if !ok {
		return nil, fmt.Errorf("foreign image %T", img)
	}
	d.f.FramebuffersCreated++
	d.f.LiveFramebuffers++
	return &framebuffer{f: d.f, image: i}, nil
}

func (d *device) CreateGraphicsPipeline(_ renderer.RenderPass, stages renderer.ShaderStages, viewport renderer.Extent) (renderer.Pipeline, error) {
	if err := d.f.FailPipeline; err != nil {
		d.f.FailPipeline = nil
		return nil, err
	}
	d.f.PipelinesCreated++
	d.f.LivePipelines++
	d.f.LastViewport = viewport
	d.f.LastStages = stages
	return &pipeline{f: d.f, viewport: viewport}, nil
}

func (d *device) WaitIdle() error {
	d.f.WaitIdleCalls++
	return nil
}

func (d *device) Destroy() { d.f.DeviceDestroyed = true }

type fence struct{ err error }

func (fc *fence) Wait() error { return fc.err }

type queue struct{ f *Fake }

func (q *queue) Submit(_ renderer.Swapchain, index uint32, cb renderer.CommandBuffer) (renderer.Fence, error) {
	if len(q.f.SubmitScript) > 0 {
		err := q.f.SubmitScript[0]
		q.f.SubmitScript = q.f.SubmitScript[1:]
		if err != nil {
			return nil, err
		}
	}
	if c, ok := cb.(*CommandBuffer); !ok || c.destroyed {
		return nil, errors.New("submitted an invalid command buffer")
	}
	q.f.Submissions++
	q.f.SubmittedImages = append(q.f.SubmittedImages, index)
	return &fence{err: q.f.FenceErr}, nil
}

type buffer struct {
	count uint32
}

func (b *buffer) VertexCount() uint32 { return b.count }
func (b *buffer) Destroy()            {}

type memory struct{ f *Fake }

func (m *memory) CreateVertexBuffer(vertices []renderer.Vertex2D) (renderer.Buffer, error) {
	return &buffer{count: uint32(len(vertices))}, nil
}

// CommandBuffer is a finished fake recording. Ops lists the recorded commands
// and Framebuffer the target of the last render pass.
type CommandBuffer struct {
	f           *Fake
	Ops         []string
	Framebuffer renderer.Framebuffer
	destroyed   bool
}

func (c *CommandBuffer) Destroy() {
	if !c.destroyed {
		c.destroyed = true
		c.f.LiveCommandBuffers--
	}
}

type commands struct{ f *Fake }

func (c *commands) NewRecording() (renderer.Recording, error) {
	if err := c.f.FailRecording; err != nil {
		c.f.FailRecording = nil
		return nil, err
	}
	c.f.LiveRecordings++
	return &recording{f: c.f}, nil
}

type recording struct {
	f      *Fake
	ops    []string
	target renderer.Framebuffer
	closed bool
}

func (r *recording) close() {
	if !r.closed {
		r.closed = true
		r.f.LiveRecordings--
	}
}

func (r *recording) BeginRenderPass(_ renderer.RenderPass, fb renderer.Framebuffer, clear renderer.ClearColor) error {
	r.target = fb
	r.ops = append(r.ops, fmt.Sprintf("begin %v", clear))
	return nil
}

func (r *recording) BindPipeline(renderer.Pipeline) error {
	r.ops = append(r.ops, "bind_pipeline")
	return nil
}

func (r *recording) BindVertexBuffer(renderer.Buffer) error {
	r.ops = append(r.ops, "bind_vertex_buffer")
	return nil
}

func (r *recording) Draw(vertexCount, instanceCount uint32) error {
	r.f.Draws++
	r.ops = append(r.ops, fmt.Sprintf("draw %d %d", vertexCount, instanceCount))
	return nil
}

func (r *recording) EndRenderPass() error {
	r.ops = append(r.ops, "end")
	return nil
}

func (r *recording) Build() (renderer.CommandBuffer, error) {
	if r.closed {
		return nil, errors.New("build of a closed recording")
	}
	r.close()
	r.f.CommandBuffersBuilt++
	r.f.LiveCommandBuffers++
	return &CommandBuffer{f: r.f, Ops: r.ops, Framebuffer: r.target}, nil
}

func (r *recording) Destroy() { r.close() }
