package driver

// AdapterKind is the physical device type.
type AdapterKind int

const (
	AdapterOther AdapterKind = iota
	AdapterIntegrated
	AdapterDiscrete
	AdapterVirtual
	AdapterCPU
)

func (k AdapterKind) String() string {
	switch k {
	case AdapterIntegrated:
		return "integrated"
	case AdapterDiscrete:
		return "discrete"
	case AdapterVirtual:
		return "virtual"
	case AdapterCPU:
		return "cpu"
	}
	return "other"
}

type AdapterInfo struct {
	Name       string
	Kind       AdapterKind
	APIVersion uint32
	VendorID   uint32
	DeviceID   uint32
}

// QueueFlags are the capabilities of a queue family.
type QueueFlags uint32

const (
	QueueGraphics QueueFlags = 1 << iota
	QueueCompute
	QueueTransfer
)

type QueueFamily struct {
	Index int
	Flags QueueFlags
	Count int
}

// MemoryProperty is a set of memory type property flags. The bit values
// match VkMemoryPropertyFlagBits.
type MemoryProperty uint32

const (
	MemoryDeviceLocal MemoryProperty = 1 << iota
	MemoryHostVisible
	MemoryHostCoherent
	MemoryHostCached
	MemoryLazilyAllocated
)

// Has reports whether p contains every flag of q.
func (p MemoryProperty) Has(q MemoryProperty) bool {
	return p&q == q
}

type MemoryType struct {
	Properties MemoryProperty
	HeapIndex  int
}

type MemoryHeap struct {
	Size        uint64
	DeviceLocal bool
}

type MemoryRequirements struct {
	Size      uint64
	Alignment uint64
	// TypeBits has bit i set if memory type i can back the resource.
	TypeBits uint32
}

// BufferUsage mirrors VkBufferUsageFlagBits for the usages the harness
// needs.
type BufferUsage uint32

const (
	UsageTransferSrc BufferUsage = 0x1
	UsageTransferDst BufferUsage = 0x2
	UsageUniform     BufferUsage = 0x10
	UsageStorage     BufferUsage = 0x20
	UsageIndex       BufferUsage = 0x40
	UsageVertex      BufferUsage = 0x80
	// UsageRayTracing is VK_BUFFER_USAGE_RAY_TRACING_BIT_NV.
	UsageRayTracing BufferUsage = 0x400
)

type AccelKind int

const (
	AccelBottomLevel AccelKind = iota
	AccelTopLevel
)

func (k AccelKind) String() string {
	if k == AccelTopLevel {
		return "top-level"
	}
	return "bottom-level"
}

// Triangles is an indexed triangle geometry.
type Triangles struct {
	Vertices     Buffer
	VertexCount  int
	VertexStride uint64
	VertexFormat Format
	Indices      Buffer
	IndexCount   int
	Opaque       bool
}

// AccelDesc describes an acceleration structure. Bottom-level structures
// have exactly one geometry; top-level structures have InstanceCount
// instances and no geometry.
type AccelDesc struct {
	Kind          AccelKind
	Geometry      *Triangles
	InstanceCount int
}

type RayTracingProperties struct {
	ShaderGroupHandleSize    uint32
	MaxRecursionDepth        uint32
	MaxShaderGroupStride     uint32
	ShaderGroupBaseAlignment uint32
	MaxGeometryCount         uint64
	MaxInstanceCount         uint64
	MaxTriangleCount         uint64
}

// Format mirrors the VkFormat values used by the harness.
type Format int

const (
	FormatUndefined        Format = 0
	FormatB8G8R8A8Unorm    Format = 44
	FormatB8G8R8A8Srgb     Format = 50
	FormatR32G32B32Sfloat  Format = 106
	FormatR8G8B8A8Unorm    Format = 37
	FormatA2B10G10R10Unorm Format = 64
)

type ColorSpace int

const ColorSpaceSrgbNonlinear ColorSpace = 0

type SurfaceFormat struct {
	Format     Format
	ColorSpace ColorSpace
}

type PresentMode int

const (
	PresentImmediate PresentMode = iota
	PresentMailbox
	PresentFifo
	PresentFifoRelaxed
)

type Extent struct {
	Width, Height int
}

type SurfaceCapabilities struct {
	MinImageCount int
	// MaxImageCount is 0 when there is no limit.
	MaxImageCount int
	CurrentExtent Extent
	Formats       []SurfaceFormat
	PresentModes  []PresentMode
}

type SwapchainConfig struct {
	Format      SurfaceFormat
	PresentMode PresentMode
	ImageCount  int
	Extent      Extent
}

// PipelineStage mirrors VkPipelineStageFlagBits.
type PipelineStage uint32

const (
	StageTopOfPipe             PipelineStage = 0x1
	StageColorAttachmentOutput PipelineStage = 0x400
	StageBottomOfPipe          PipelineStage = 0x2000
)

type CullMode int

const (
	CullNone CullMode = iota
	CullFront
	CullBack
)

type FrontFace int

const (
	FrontCounterClockwise FrontFace = iota
	FrontClockwise
)

// GraphicsPipelineDesc describes a two stage raster pipeline without
// vertex input.
type GraphicsPipelineDesc struct {
	Vertex        ShaderModule
	VertexEntry   string
	Fragment      ShaderModule
	FragmentEntry string
	Layout        PipelineLayout
	RenderPass    RenderPass
	Extent        Extent
	CullMode      CullMode
	FrontFace     FrontFace
	Samples       int
}
