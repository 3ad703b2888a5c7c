package vulkan

import (
	"encoding/binary"
	"fmt"
	"math"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/azer/engine/renderer"
)

// VulkanBuffer is a host visible vertex buffer.
type VulkanBuffer struct {
	context *VulkanContext

	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   vk.DeviceSize

	vertexCount uint32
}

var _ renderer.Buffer = (*VulkanBuffer)(nil)

func (b *VulkanBuffer) VertexCount() uint32 {
	return b.vertexCount
}

func (b *VulkanBuffer) Destroy() {
	device := b.context.Device.LogicalDevice
	if b.Handle != vk.NullBuffer {
		vk.DestroyBuffer(device, b.Handle, b.context.Allocator)
		b.Handle = vk.NullBuffer
	}
	if b.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(device, b.Memory, b.context.Allocator)
		b.Memory = vk.NullDeviceMemory
	}
}

// memoryAllocator creates buffers in host visible, coherent memory.
type memoryAllocator struct {
	context *VulkanContext
}

// CreateVertexBuffer uploads vertices to a new buffer.
func (m *memoryAllocator) CreateVertexBuffer(vertices []renderer.Vertex2D) (renderer.Buffer, error) {
	if len(vertices) == 0 {
		return nil, fmt.Errorf("cannot create an empty vertex buffer")
	}
	data := encodeVertices(vertices)

	device := m.context.Device.LogicalDevice
	buffer := &VulkanBuffer{
		context:     m.context,
		Size:        vk.DeviceSize(len(data)),
		vertexCount: uint32(len(vertices)),
	}

	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        buffer.Size,
		Usage:       vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit),
		SharingMode: vk.SharingModeExclusive,
	}
	var handle vk.Buffer
	if err := resultError("vkCreateBuffer", vk.CreateBuffer(device, &bufferInfo, m.context.Allocator, &handle)); err != nil {
		return nil, err
	}
	buffer.Handle = handle

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(device, handle, &requirements)
	requirements.Deref()

	memoryIndex := m.context.FindMemoryIndex(
		requirements.MemoryTypeBits,
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit),
	)
	if memoryIndex == -1 {
		buffer.Destroy()
		return nil, fmt.Errorf("unable to create vertex buffer: no host visible memory type")
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: uint32(memoryIndex),
	}
	var memory vk.DeviceMemory
	if err := resultError("vkAllocateMemory", vk.AllocateMemory(device, &allocateInfo, m.context.Allocator, &memory)); err != nil {
		buffer.Destroy()
		return nil, err
	}
	buffer.Memory = memory

	if err := resultError("vkBindBufferMemory", vk.BindBufferMemory(device, handle, memory, 0)); err != nil {
		buffer.Destroy()
		return nil, err
	}

	var pData unsafe.Pointer
	if err := resultError("vkMapMemory", vk.MapMemory(device, memory, 0, buffer.Size, 0, &pData)); err != nil {
		buffer.Destroy()
		return nil, err
	}
	vk.Memcopy(pData, data)
	vk.UnmapMemory(device, memory)

	return buffer, nil
}

// encodeVertices lays vertices out as tightly packed little endian float32 pairs.
func encodeVertices(vertices []renderer.Vertex2D) []byte {
	data := make([]byte, 0, len(vertices)*vertex2DStride)
	for _, v := range vertices {
		data = binary.LittleEndian.AppendUint32(data, math.Float32bits(v.Position[0]))
		data = binary.LittleEndian.AppendUint32(data, math.Float32bits(v.Position[1]))
	}
	return data
}
