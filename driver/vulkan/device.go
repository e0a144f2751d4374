package vulkan

import (
	"fmt"
	"unsafe"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/celer/vkgrt/driver"
)

// Device is a logical device with one queue.
type Device struct {
	adapter  *Adapter
	vkDevice vk.Device
	family   int
	queue    *Queue
	nv       *nvProcs
}

var _ driver.Device = (*Device)(nil)

func (d *Device) String() string {
	return fmt.Sprintf("{ PhysicalDevice: %s Family: %d }", d.adapter, d.family)
}

// VK returns the native device.
func (d *Device) VK() vk.Device { return d.vkDevice }

func (d *Device) Queue() driver.Queue { return d.queue }

func (d *Device) WaitIdle() error {
	return vk.Error(vk.DeviceWaitIdle(d.vkDevice))
}

func (d *Device) Destroy() {
	vk.DestroyDevice(d.vkDevice, nil)
}

// Buffer is a VkBuffer.
type Buffer struct {
	device   *Device
	vkBuffer vk.Buffer
	size     uint64
	usage    driver.BufferUsage
}

// NewBuffer creates an exclusive buffer. The usage bits are passed to
// Vulkan unchanged.
func (d *Device) NewBuffer(size uint64, usage driver.BufferUsage) (driver.Buffer, error) {
	createInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       vk.BufferUsageFlags(usage),
		SharingMode: vk.SharingModeExclusive,
	}
	var buf vk.Buffer
	if err := vk.Error(vk.CreateBuffer(d.vkDevice, &createInfo, nil, &buf)); err != nil {
		return nil, errors.Wrap(err, "vulkan: create buffer")
	}
	return &Buffer{device: d, vkBuffer: buf, size: size, usage: usage}, nil
}

func (b *Buffer) Size() uint64 { return b.size }

func (b *Buffer) Usage() driver.BufferUsage { return b.usage }

func (b *Buffer) Requirements() driver.MemoryRequirements {
	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(b.device.vkDevice, b.vkBuffer, &req)
	req.Deref()
	return driver.MemoryRequirements{
		Size:      uint64(req.Size),
		Alignment: uint64(req.Alignment),
		TypeBits:  req.MemoryTypeBits,
	}
}

func (b *Buffer) Bind(m driver.Memory, offset uint64) error {
	mem, ok := m.(*Memory)
	if !ok {
		return errors.Wrap(driver.ErrUnknownHandle, "bind buffer memory")
	}
	return vk.Error(vk.BindBufferMemory(b.device.vkDevice, b.vkBuffer, mem.vkMemory, vk.DeviceSize(offset)))
}

func (b *Buffer) Destroy() {
	vk.DestroyBuffer(b.device.vkDevice, b.vkBuffer, nil)
}

func vkBuffer(b driver.Buffer) vk.Buffer {
	if vb, ok := b.(*Buffer); ok {
		return vb.vkBuffer
	}
	return vk.NullBuffer
}

// Memory is a VkDeviceMemory allocation.
type Memory struct {
	device    *Device
	vkMemory  vk.DeviceMemory
	size      uint64
	typeIndex int
	mapped    bool
}

func (d *Device) Allocate(size uint64, typeIndex int) (driver.Memory, error) {
	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  vk.DeviceSize(size),
		MemoryTypeIndex: uint32(typeIndex),
	}
	var mem vk.DeviceMemory
	res := vk.AllocateMemory(d.vkDevice, &allocateInfo, nil, &mem)
	if res == vk.ErrorOutOfDeviceMemory || res == vk.ErrorOutOfHostMemory {
		return nil, errors.Wrapf(driver.ErrNoDeviceMemory, "%d bytes of type %d", size, typeIndex)
	}
	if err := vk.Error(res); err != nil {
		return nil, errors.Wrap(err, "vulkan: allocate memory")
	}
	return &Memory{device: d, vkMemory: mem, size: size, typeIndex: typeIndex}, nil
}

func (m *Memory) Size() uint64 { return m.size }

func (m *Memory) TypeIndex() int { return m.typeIndex }

// Map maps the entirety of this memory.
func (m *Memory) Map() ([]byte, error) {
	if m.mapped {
		return nil, errors.New("vulkan: memory already mapped")
	}
	var ptr unsafe.Pointer
	if err := vk.Error(vk.MapMemory(m.device.vkDevice, m.vkMemory, 0, vk.DeviceSize(m.size), 0, &ptr)); err != nil {
		return nil, errors.Wrap(err, "vulkan: map memory")
	}
	m.mapped = true
	return unsafe.Slice((*byte)(ptr), m.size), nil
}

func (m *Memory) Unmap() {
	if !m.mapped {
		return
	}
	vk.UnmapMemory(m.device.vkDevice, m.vkMemory)
	m.mapped = false
}

func (m *Memory) Destroy() {
	vk.FreeMemory(m.device.vkDevice, m.vkMemory, nil)
}

type Semaphore struct {
	device      *Device
	vkSemaphore vk.Semaphore
}

func (d *Device) NewSemaphore() (driver.Semaphore, error) {
	createInfo := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
	var sema vk.Semaphore
	if err := vk.Error(vk.CreateSemaphore(d.vkDevice, &createInfo, nil, &sema)); err != nil {
		return nil, errors.Wrap(err, "vulkan: create semaphore")
	}
	return &Semaphore{device: d, vkSemaphore: sema}, nil
}

func (s *Semaphore) Destroy() {
	vk.DestroySemaphore(s.device.vkDevice, s.vkSemaphore, nil)
}

func vkSemaphores(list []driver.Semaphore) ([]vk.Semaphore, error) {
	ret := make([]vk.Semaphore, len(list))
	for i, s := range list {
		vs, ok := s.(*Semaphore)
		if !ok {
			return nil, errors.Wrap(driver.ErrUnknownHandle, "semaphore")
		}
		ret[i] = vs.vkSemaphore
	}
	return ret, nil
}

type Fence struct {
	device  *Device
	vkFence vk.Fence
}

func (d *Device) NewFence(signaled bool) (driver.Fence, error) {
	createInfo := vk.FenceCreateInfo{SType: vk.StructureTypeFenceCreateInfo}
	if signaled {
		createInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var fence vk.Fence
	if err := vk.Error(vk.CreateFence(d.vkDevice, &createInfo, nil, &fence)); err != nil {
		return nil, errors.Wrap(err, "vulkan: create fence")
	}
	return &Fence{device: d, vkFence: fence}, nil
}

func (d *Device) ResetFence(f driver.Fence) error {
	vf, ok := f.(*Fence)
	if !ok {
		return errors.Wrap(driver.ErrUnknownHandle, "reset fence")
	}
	return vk.Error(vk.ResetFences(d.vkDevice, 1, []vk.Fence{vf.vkFence}))
}

func (d *Device) WaitFence(f driver.Fence) error {
	vf, ok := f.(*Fence)
	if !ok {
		return errors.Wrap(driver.ErrUnknownHandle, "wait fence")
	}
	return vk.Error(vk.WaitForFences(d.vkDevice, 1, []vk.Fence{vf.vkFence}, vk.True, vk.MaxUint64))
}

// Signaled reports the current fence status.
func (f *Fence) Signaled() bool {
	return vk.GetFenceStatus(f.device.vkDevice, f.vkFence) == vk.Success
}

func (f *Fence) Destroy() {
	vk.DestroyFence(f.device.vkDevice, f.vkFence, nil)
}
