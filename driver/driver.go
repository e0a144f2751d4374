// Package driver defines the device collaborator consumed by the harness:
// capability queries, allocation, command recording and submission,
// presentation and acceleration structures.
//
// Two implementations exist: driver/vulkan on top of vulkan-go and
// driver/soft, an in-memory device used for tests and headless runs.
package driver

import (
	"github.com/pkg/errors"
)

// ErrNoDevice means that no adapter could be found.
var ErrNoDevice = errors.New("driver: no suitable device found")

// ErrNoDeviceMemory means that device memory could not be allocated.
var ErrNoDeviceMemory = errors.New("driver: out of device memory")

// ErrNotBound means that a buffer or structure was used before memory
// was bound to it.
var ErrNotBound = errors.New("driver: resource has no bound memory")

// ErrUnknownHandle means that a handle did not originate from the device
// it was passed to, or was already destroyed.
var ErrUnknownHandle = errors.New("driver: unknown handle")

// ErrFenceUnsignaled means that a fence wait could never complete because
// no pending work will signal it.
var ErrFenceUnsignaled = errors.New("driver: fence will never be signaled")

// ErrNotBuilt means that an acceleration structure was queried before a
// build completed.
var ErrNotBuilt = errors.New("driver: acceleration structure not built")

// ErrMissingExtension means that a required extension is unavailable.
var ErrMissingExtension = errors.New("driver: missing extension")

// Destroyer is implemented by every object that owns device resources.
type Destroyer interface {
	Destroy()
}

// Instance is the entry point of a driver.
type Instance interface {
	Destroyer

	// Name identifies the backend ("vulkan", "soft").
	Name() string

	// Extensions lists the enabled instance extensions.
	Extensions() []string

	// Adapters enumerates the physical devices.
	Adapters() ([]Adapter, error)

	// NewSurface creates a presentable surface for the given window
	// handle. The handle type is backend specific.
	NewSurface(window any) (Surface, error)
}

// Surface is a presentation target.
type Surface interface {
	Destroyer
}

// Adapter describes a physical device.
type Adapter interface {
	Info() AdapterInfo
	QueueFamilies() []QueueFamily
	SupportsPresent(family int, s Surface) (bool, error)
	MemoryTypes() []MemoryType
	MemoryHeaps() []MemoryHeap
	Extensions() ([]string, error)
	RayTracingProperties() (RayTracingProperties, error)
	SurfaceCapabilities(s Surface) (SurfaceCapabilities, error)

	// Open creates a logical device with one queue from family.
	Open(family int, extensions []string) (Device, error)
}

// Device is a logical device with a single queue.
type Device interface {
	Destroyer

	Queue() Queue
	WaitIdle() error

	NewBuffer(size uint64, usage BufferUsage) (Buffer, error)
	Allocate(size uint64, typeIndex int) (Memory, error)
	NewCommandPool() (CommandPool, error)
	NewAccelStruct(desc *AccelDesc) (AccelStruct, error)

	NewSemaphore() (Semaphore, error)
	NewFence(signaled bool) (Fence, error)
	ResetFence(f Fence) error
	// WaitFence blocks without timeout until f is signaled.
	WaitFence(f Fence) error

	NewSwapchain(s Surface, cfg *SwapchainConfig) (Swapchain, error)
	NewImageView(img Image, format Format) (ImageView, error)
	NewRenderPass(format Format) (RenderPass, error)
	NewFramebuffer(rp RenderPass, view ImageView, extent Extent) (Framebuffer, error)
	NewShaderModule(code []byte) (ShaderModule, error)
	NewPipelineLayout() (PipelineLayout, error)
	NewGraphicsPipeline(desc *GraphicsPipelineDesc) (Pipeline, error)
}

// Queue executes command buffers and presents images.
type Queue interface {
	Submit(sub *Submission) error
	WaitIdle() error
	Present(sc Swapchain, index int, wait []Semaphore) error
}

// Submission is one queue submit.
type Submission struct {
	Buffers    []CmdBuffer
	Wait       []Semaphore
	WaitStages []PipelineStage
	Signal     []Semaphore
	// Fence, if not nil, is signaled when the work completes.
	Fence Fence
}

// Buffer is a linear region of device memory.
type Buffer interface {
	Destroyer
	Size() uint64
	Usage() BufferUsage
	Requirements() MemoryRequirements
	Bind(m Memory, offset uint64) error
}

// Memory is a single device allocation.
type Memory interface {
	Destroyer
	Size() uint64
	TypeIndex() int
	// Map returns a host view of the whole allocation. The memory type
	// must be host visible.
	Map() ([]byte, error)
	Unmap()
}

// CommandPool allocates command buffers.
type CommandPool interface {
	Destroyer
	Allocate(n int) ([]CmdBuffer, error)
	// Reset returns every buffer from the pool to the initial state and,
	// if release is set, frees the resources backing them.
	Reset(release bool) error
}

// CmdBuffer records GPU work.
type CmdBuffer interface {
	Begin(oneTime bool) error
	End() error

	CopyBuffer(src, dst Buffer, size uint64)
	BuildAccelStruct(desc *AccelDesc, instances Buffer, dst AccelStruct, scratch Buffer)

	BeginRenderPass(rp RenderPass, fb Framebuffer, extent Extent, clear [4]float32)
	BindPipeline(p Pipeline)
	Draw(vertexCount, instanceCount, firstVertex, firstInstance int)
	EndRenderPass()
}

// AccelStruct is a ray tracing acceleration structure.
type AccelStruct interface {
	Destroyer
	Kind() AccelKind
	// Requirements reports the memory needs for object storage or for
	// build scratch space.
	Requirements(scratch bool) MemoryRequirements
	Bind(m Memory) error
	// Handle returns the opaque identifier referenced by instance
	// records. It is only valid after a completed build.
	Handle() (uint64, error)
}

// Semaphore orders work between queue operations.
type Semaphore interface {
	Destroyer
}

// Fence signals completion to the host.
type Fence interface {
	Destroyer
}

// Swapchain is the set of presentable images of a surface.
type Swapchain interface {
	Destroyer
	Format() Format
	Extent() Extent
	Images() []Image
	// Acquire blocks without timeout until an image is available and
	// returns its index. signal is signaled once the image can be used.
	Acquire(signal Semaphore) (int, error)
}

// Image is a presentable image; it is owned by its swapchain.
type Image interface{}

type ImageView interface {
	Destroyer
}

type RenderPass interface {
	Destroyer
}

type Framebuffer interface {
	Destroyer
}

type ShaderModule interface {
	Destroyer
}

type PipelineLayout interface {
	Destroyer
}

type Pipeline interface {
	Destroyer
}
