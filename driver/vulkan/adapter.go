package vulkan

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/celer/vkgrt/driver"
)

// Adapter is a physical device.
type Adapter struct {
	inst  *Instance
	vkPD  vk.PhysicalDevice
	props vk.PhysicalDeviceProperties
	mem   vk.PhysicalDeviceMemoryProperties
}

var _ driver.Adapter = (*Adapter)(nil)

func newAdapter(inst *Instance, pd vk.PhysicalDevice) *Adapter {
	a := &Adapter{inst: inst, vkPD: pd}
	vk.GetPhysicalDeviceProperties(pd, &a.props)
	a.props.Deref()
	vk.GetPhysicalDeviceMemoryProperties(pd, &a.mem)
	a.mem.Deref()
	return a
}

func (a *Adapter) String() string { return vk.ToString(a.props.DeviceName[:]) }

func (a *Adapter) Info() driver.AdapterInfo {
	kind := driver.AdapterOther
	switch a.props.DeviceType {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		kind = driver.AdapterIntegrated
	case vk.PhysicalDeviceTypeDiscreteGpu:
		kind = driver.AdapterDiscrete
	case vk.PhysicalDeviceTypeVirtualGpu:
		kind = driver.AdapterVirtual
	case vk.PhysicalDeviceTypeCpu:
		kind = driver.AdapterCPU
	}
	return driver.AdapterInfo{
		Name:       a.String(),
		Kind:       kind,
		APIVersion: a.props.ApiVersion,
		VendorID:   a.props.VendorID,
		DeviceID:   a.props.DeviceID,
	}
}

func (a *Adapter) QueueFamilies() []driver.QueueFamily {
	var n uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(a.vkPD, &n, nil)
	if n == 0 {
		return nil
	}
	props := make([]vk.QueueFamilyProperties, n)
	vk.GetPhysicalDeviceQueueFamilyProperties(a.vkPD, &n, props)
	ret := make([]driver.QueueFamily, n)
	for i, p := range props {
		p.Deref()
		ret[i] = driver.QueueFamily{
			Index: i,
			Flags: driver.QueueFlags(p.QueueFlags) & (driver.QueueGraphics | driver.QueueCompute | driver.QueueTransfer),
			Count: int(p.QueueCount),
		}
	}
	return ret
}

func (a *Adapter) SupportsPresent(family int, s driver.Surface) (bool, error) {
	surf, err := vkSurface(s)
	if err != nil {
		return false, err
	}
	var supported vk.Bool32
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceSupport(a.vkPD, uint32(family), surf, &supported)); err != nil {
		return false, errors.Wrap(err, "vulkan: query present support")
	}
	return supported == vk.True, nil
}

func (a *Adapter) MemoryTypes() []driver.MemoryType {
	ret := make([]driver.MemoryType, a.mem.MemoryTypeCount)
	for i := range ret {
		mt := a.mem.MemoryTypes[i]
		mt.Deref()
		ret[i] = driver.MemoryType{
			Properties: driver.MemoryProperty(mt.PropertyFlags),
			HeapIndex:  int(mt.HeapIndex),
		}
	}
	return ret
}

func (a *Adapter) MemoryHeaps() []driver.MemoryHeap {
	ret := make([]driver.MemoryHeap, a.mem.MemoryHeapCount)
	for i := range ret {
		h := a.mem.MemoryHeaps[i]
		h.Deref()
		ret[i] = driver.MemoryHeap{
			Size:        uint64(h.Size),
			DeviceLocal: h.Flags&vk.MemoryHeapFlags(vk.MemoryHeapDeviceLocalBit) != 0,
		}
	}
	return ret
}

// Extensions lists the device extensions.
func (a *Adapter) Extensions() ([]string, error) {
	var n uint32
	if err := vk.Error(vk.EnumerateDeviceExtensionProperties(a.vkPD, "", &n, nil)); err != nil {
		return nil, errors.Wrap(err, "vulkan: enumerate device extensions")
	}
	props := make([]vk.ExtensionProperties, n)
	if err := vk.Error(vk.EnumerateDeviceExtensionProperties(a.vkPD, "", &n, props)); err != nil {
		return nil, errors.Wrap(err, "vulkan: enumerate device extensions")
	}
	ret := make([]string, 0, n)
	for _, p := range props {
		p.Deref()
		ret = append(ret, vk.ToString(p.ExtensionName[:]))
	}
	return ret, nil
}

func (a *Adapter) RayTracingProperties() (driver.RayTracingProperties, error) {
	exts, err := a.Extensions()
	if err != nil {
		return driver.RayTracingProperties{}, err
	}
	if !contains(exts, "VK_NV_ray_tracing") {
		return driver.RayTracingProperties{}, errors.Wrap(driver.ErrMissingExtension, "VK_NV_ray_tracing")
	}
	return rayTracingProperties(a.inst, a.vkPD)
}

func (a *Adapter) SurfaceCapabilities(s driver.Surface) (driver.SurfaceCapabilities, error) {
	var ret driver.SurfaceCapabilities
	surf, err := vkSurface(s)
	if err != nil {
		return ret, err
	}

	var caps vk.SurfaceCapabilities
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceCapabilities(a.vkPD, surf, &caps)); err != nil {
		return ret, errors.Wrap(err, "vulkan: surface capabilities")
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	ret.MinImageCount = int(caps.MinImageCount)
	ret.MaxImageCount = int(caps.MaxImageCount)
	ret.CurrentExtent = extentOf(caps.CurrentExtent)

	var n uint32
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceFormats(a.vkPD, surf, &n, nil)); err != nil {
		return ret, errors.Wrap(err, "vulkan: surface formats")
	}
	formats := make([]vk.SurfaceFormat, n)
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceFormats(a.vkPD, surf, &n, formats)); err != nil {
		return ret, errors.Wrap(err, "vulkan: surface formats")
	}
	for _, f := range formats {
		f.Deref()
		ret.Formats = append(ret.Formats, driver.SurfaceFormat{
			Format:     driver.Format(f.Format),
			ColorSpace: driver.ColorSpace(f.ColorSpace),
		})
	}

	if err := vk.Error(vk.GetPhysicalDeviceSurfacePresentModes(a.vkPD, surf, &n, nil)); err != nil {
		return ret, errors.Wrap(err, "vulkan: present modes")
	}
	modes := make([]vk.PresentMode, n)
	if err := vk.Error(vk.GetPhysicalDeviceSurfacePresentModes(a.vkPD, surf, &n, modes)); err != nil {
		return ret, errors.Wrap(err, "vulkan: present modes")
	}
	for _, m := range modes {
		ret.PresentModes = append(ret.PresentModes, driver.PresentMode(m))
	}
	return ret, nil
}

// Open creates a logical device with a single queue from family and
// loads the ray tracing entry points.
func (a *Adapter) Open(family int, extensions []string) (driver.Device, error) {
	var features vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(a.vkPD, &features)

	createInfo := vk.DeviceCreateInfo{
		SType:                vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount: 1,
		PQueueCreateInfos: []vk.DeviceQueueCreateInfo{{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: uint32(family),
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}},
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: safeStrings(append([]string{}, extensions...)),
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{features},
	}

	var dev vk.Device
	if err := vk.Error(vk.CreateDevice(a.vkPD, &createInfo, nil, &dev)); err != nil {
		return nil, errors.Wrap(err, "vulkan: create device")
	}
	d := &Device{adapter: a, vkDevice: dev, family: family}
	if contains(extensions, "VK_NV_ray_tracing") {
		if err := d.loadRayTracing(); err != nil {
			vk.DestroyDevice(dev, nil)
			return nil, err
		}
	}
	var q vk.Queue
	vk.GetDeviceQueue(dev, uint32(family), 0, &q)
	d.queue = &Queue{device: d, vkQueue: q}
	return d, nil
}
