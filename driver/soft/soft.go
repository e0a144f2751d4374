// Package soft implements driver interfaces in host memory.
//
// Commands execute when they are submitted, so every wait completes
// immediately once the work it depends on was submitted. Misuse that
// would hang or corrupt a real device (waiting on a fence nothing will
// signal, submitting a command buffer that is still pending, presenting
// an image that was never acquired) is reported as an error instead.
//
// A soft device is not safe for concurrent use.
package soft

import (
	"github.com/pkg/errors"

	"github.com/celer/vkgrt/driver"
)

const (
	// MiB is used by the default heap sizes.
	MiB = 1 << 20
)

// AdapterConfig describes one simulated physical device.
type AdapterConfig struct {
	Name          string
	Kind          driver.AdapterKind
	QueueFamilies []driver.QueueFamily
	// PresentFamilies lists the queue families that can present.
	PresentFamilies []int
	MemoryTypes     []driver.MemoryType
	MemoryHeaps     []driver.MemoryHeap
	Extensions      []string
	RayTracing      driver.RayTracingProperties
	Surface         driver.SurfaceCapabilities
}

// DefaultAdapter returns a discrete adapter with a device-local heap, a
// host heap, one universal queue family and the ray tracing extensions.
func DefaultAdapter() AdapterConfig {
	return AdapterConfig{
		Name: "soft discrete",
		Kind: driver.AdapterDiscrete,
		QueueFamilies: []driver.QueueFamily{
			{Index: 0, Flags: driver.QueueGraphics | driver.QueueCompute | driver.QueueTransfer, Count: 1},
			{Index: 1, Flags: driver.QueueTransfer, Count: 1},
		},
		PresentFamilies: []int{0},
		MemoryHeaps: []driver.MemoryHeap{
			{Size: 256 * MiB, DeviceLocal: true},
			{Size: 64 * MiB},
		},
		MemoryTypes: []driver.MemoryType{
			{Properties: driver.MemoryDeviceLocal, HeapIndex: 0},
			{Properties: driver.MemoryHostVisible | driver.MemoryHostCoherent, HeapIndex: 1},
			{Properties: driver.MemoryHostVisible | driver.MemoryHostCoherent | driver.MemoryHostCached, HeapIndex: 1},
		},
		Extensions: []string{
			"VK_KHR_swapchain",
			"VK_NV_ray_tracing",
			"VK_KHR_get_memory_requirements2",
		},
		RayTracing: driver.RayTracingProperties{
			ShaderGroupHandleSize:    16,
			MaxRecursionDepth:        31,
			MaxShaderGroupStride:     4096,
			ShaderGroupBaseAlignment: 64,
			MaxGeometryCount:         1 << 24,
			MaxInstanceCount:         1 << 24,
			MaxTriangleCount:         1 << 29,
		},
		Surface: driver.SurfaceCapabilities{
			MinImageCount: 2,
			MaxImageCount: 8,
			CurrentExtent: driver.Extent{Width: 1280, Height: 720},
			Formats: []driver.SurfaceFormat{
				{Format: driver.FormatB8G8R8A8Unorm, ColorSpace: driver.ColorSpaceSrgbNonlinear},
				{Format: driver.FormatB8G8R8A8Srgb, ColorSpace: driver.ColorSpaceSrgbNonlinear},
			},
			PresentModes: []driver.PresentMode{driver.PresentFifo, driver.PresentMailbox},
		},
	}
}

// IntegratedAdapter is DefaultAdapter with a single shared heap.
func IntegratedAdapter() AdapterConfig {
	c := DefaultAdapter()
	c.Name = "soft integrated"
	c.Kind = driver.AdapterIntegrated
	c.MemoryHeaps = []driver.MemoryHeap{{Size: 128 * MiB, DeviceLocal: true}}
	c.MemoryTypes = []driver.MemoryType{
		{Properties: driver.MemoryDeviceLocal, HeapIndex: 0},
		{Properties: driver.MemoryDeviceLocal | driver.MemoryHostVisible | driver.MemoryHostCoherent, HeapIndex: 0},
	}
	return c
}

// Instance is the soft driver entry point.
type Instance struct {
	adapters   []*Adapter
	extensions []string
	surfaces   int
}

// New creates an instance exposing the given adapters in order.
func New(adapters ...AdapterConfig) *Instance {
	inst := &Instance{extensions: []string{"VK_KHR_surface"}}
	for _, c := range adapters {
		inst.adapters = append(inst.adapters, &Adapter{cfg: c, inst: inst})
	}
	return inst
}

// NewDefault creates an instance with a single DefaultAdapter.
func NewDefault() *Instance {
	return New(DefaultAdapter())
}

func (i *Instance) Name() string { return "soft" }

func (i *Instance) Extensions() []string { return i.extensions }

func (i *Instance) Adapters() ([]driver.Adapter, error) {
	if len(i.adapters) == 0 {
		return nil, driver.ErrNoDevice
	}
	ret := make([]driver.Adapter, len(i.adapters))
	for j, a := range i.adapters {
		ret[j] = a
	}
	return ret, nil
}

// NewSurface accepts any window value; soft surfaces have no backing.
func (i *Instance) NewSurface(window any) (driver.Surface, error) {
	i.surfaces++
	return &surface{id: i.surfaces}, nil
}

func (i *Instance) Destroy() {}

type surface struct {
	id        int
	destroyed bool
}

func (s *surface) Destroy() { s.destroyed = true }

// Adapter is a simulated physical device.
type Adapter struct {
	cfg  AdapterConfig
	inst *Instance
}

func (a *Adapter) Info() driver.AdapterInfo {
	return driver.AdapterInfo{Name: a.cfg.Name, Kind: a.cfg.Kind, APIVersion: 1<<22 | 1<<12}
}

func (a *Adapter) QueueFamilies() []driver.QueueFamily { return a.cfg.QueueFamilies }

func (a *Adapter) SupportsPresent(family int, s driver.Surface) (bool, error) {
	if _, ok := s.(*surface); !ok {
		return false, errors.Wrap(driver.ErrUnknownHandle, "surface")
	}
	for _, f := range a.cfg.PresentFamilies {
		if f == family {
			return true, nil
		}
	}
	return false, nil
}

func (a *Adapter) MemoryTypes() []driver.MemoryType { return a.cfg.MemoryTypes }

func (a *Adapter) MemoryHeaps() []driver.MemoryHeap { return a.cfg.MemoryHeaps }

func (a *Adapter) Extensions() ([]string, error) { return a.cfg.Extensions, nil }

func (a *Adapter) RayTracingProperties() (driver.RayTracingProperties, error) {
	if !a.hasExtension("VK_NV_ray_tracing") {
		return driver.RayTracingProperties{}, errors.Wrap(driver.ErrMissingExtension, "VK_NV_ray_tracing")
	}
	return a.cfg.RayTracing, nil
}

func (a *Adapter) SurfaceCapabilities(s driver.Surface) (driver.SurfaceCapabilities, error) {
	if _, ok := s.(*surface); !ok {
		return driver.SurfaceCapabilities{}, errors.Wrap(driver.ErrUnknownHandle, "surface")
	}
	return a.cfg.Surface, nil
}

func (a *Adapter) hasExtension(name string) bool {
	for _, e := range a.cfg.Extensions {
		if e == name {
			return true
		}
	}
	return false
}

// Open creates a Device. Every requested extension must be supported.
func (a *Adapter) Open(family int, extensions []string) (driver.Device, error) {
	if family < 0 || family >= len(a.cfg.QueueFamilies) {
		return nil, errors.Errorf("soft: queue family %d out of range", family)
	}
	for _, e := range extensions {
		if !a.hasExtension(e) {
			return nil, errors.Wrap(driver.ErrMissingExtension, e)
		}
	}
	return newDevice(a, family), nil
}
