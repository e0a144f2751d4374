package vulkan

/*
#include <string.h>
#include <vulkan/vulkan.h>

typedef struct {
	PFN_vkCreateAccelerationStructureNV create;
	PFN_vkDestroyAccelerationStructureNV destroy;
	PFN_vkGetAccelerationStructureMemoryRequirementsNV memReq;
	PFN_vkBindAccelerationStructureMemoryNV bind;
	PFN_vkCmdBuildAccelerationStructureNV build;
	PFN_vkGetAccelerationStructureHandleNV handle;
} vkrtNV;

static VkResult vkrtLoad(void *gipa, VkInstance inst, VkDevice dev, vkrtNV *nv) {
	PFN_vkGetInstanceProcAddr getInstanceProcAddr = (PFN_vkGetInstanceProcAddr)gipa;
	PFN_vkGetDeviceProcAddr getDeviceProcAddr =
		(PFN_vkGetDeviceProcAddr)getInstanceProcAddr(inst, "vkGetDeviceProcAddr");
	if (getDeviceProcAddr == NULL) {
		return VK_ERROR_INITIALIZATION_FAILED;
	}
	nv->create = (PFN_vkCreateAccelerationStructureNV)getDeviceProcAddr(dev, "vkCreateAccelerationStructureNV");
	nv->destroy = (PFN_vkDestroyAccelerationStructureNV)getDeviceProcAddr(dev, "vkDestroyAccelerationStructureNV");
	nv->memReq = (PFN_vkGetAccelerationStructureMemoryRequirementsNV)getDeviceProcAddr(dev, "vkGetAccelerationStructureMemoryRequirementsNV");
	nv->bind = (PFN_vkBindAccelerationStructureMemoryNV)getDeviceProcAddr(dev, "vkBindAccelerationStructureMemoryNV");
	nv->build = (PFN_vkCmdBuildAccelerationStructureNV)getDeviceProcAddr(dev, "vkCmdBuildAccelerationStructureNV");
	nv->handle = (PFN_vkGetAccelerationStructureHandleNV)getDeviceProcAddr(dev, "vkGetAccelerationStructureHandleNV");
	if (!nv->create || !nv->destroy || !nv->memReq || !nv->bind || !nv->build || !nv->handle) {
		return VK_ERROR_EXTENSION_NOT_PRESENT;
	}
	return VK_SUCCESS;
}

static void vkrtGeometry(VkGeometryNV *g, VkBuffer vb, uint32_t vcount, VkDeviceSize vstride,
		VkBuffer ib, uint32_t icount, int opaque) {
	memset(g, 0, sizeof(*g));
	g->sType = VK_STRUCTURE_TYPE_GEOMETRY_NV;
	g->geometryType = VK_GEOMETRY_TYPE_TRIANGLES_NV;
	g->geometry.triangles.sType = VK_STRUCTURE_TYPE_GEOMETRY_TRIANGLES_NV;
	g->geometry.triangles.vertexData = vb;
	g->geometry.triangles.vertexCount = vcount;
	g->geometry.triangles.vertexStride = vstride;
	g->geometry.triangles.vertexFormat = VK_FORMAT_R32G32B32_SFLOAT;
	g->geometry.triangles.indexData = ib;
	g->geometry.triangles.indexCount = icount;
	g->geometry.triangles.indexType = VK_INDEX_TYPE_UINT32;
	g->geometry.aabbs.sType = VK_STRUCTURE_TYPE_GEOMETRY_AABB_NV;
	if (opaque) {
		g->flags = VK_GEOMETRY_OPAQUE_BIT_NV;
	}
}

static void vkrtInfo(VkAccelerationStructureInfoNV *info, int topLevel, uint32_t instanceCount, VkGeometryNV *g) {
	memset(info, 0, sizeof(*info));
	info->sType = VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_INFO_NV;
	if (topLevel) {
		info->type = VK_ACCELERATION_STRUCTURE_TYPE_TOP_LEVEL_NV;
		info->instanceCount = instanceCount;
	} else {
		info->type = VK_ACCELERATION_STRUCTURE_TYPE_BOTTOM_LEVEL_NV;
		info->geometryCount = 1;
		info->pGeometries = g;
	}
}

static VkResult vkrtCreateAS(vkrtNV *nv, VkDevice dev, int topLevel, uint32_t instanceCount,
		VkBuffer vb, uint32_t vcount, VkDeviceSize vstride, VkBuffer ib, uint32_t icount, int opaque,
		VkAccelerationStructureNV *out) {
	VkGeometryNV g;
	VkAccelerationStructureInfoNV info;
	VkAccelerationStructureCreateInfoNV ci;
	vkrtGeometry(&g, vb, vcount, vstride, ib, icount, opaque);
	vkrtInfo(&info, topLevel, instanceCount, &g);
	memset(&ci, 0, sizeof(ci));
	ci.sType = VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_CREATE_INFO_NV;
	ci.info = info;
	return nv->create(dev, &ci, NULL, out);
}

static void vkrtASMemReq(vkrtNV *nv, VkDevice dev, VkAccelerationStructureNV as, int scratch,
		VkDeviceSize *size, VkDeviceSize *align, uint32_t *bits) {
	VkAccelerationStructureMemoryRequirementsInfoNV ri;
	VkMemoryRequirements2 req;
	memset(&ri, 0, sizeof(ri));
	memset(&req, 0, sizeof(req));
	ri.sType = VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_MEMORY_REQUIREMENTS_INFO_NV;
	ri.type = scratch ? VK_ACCELERATION_STRUCTURE_MEMORY_REQUIREMENTS_TYPE_BUILD_SCRATCH_NV
		: VK_ACCELERATION_STRUCTURE_MEMORY_REQUIREMENTS_TYPE_OBJECT_NV;
	ri.accelerationStructure = as;
	req.sType = VK_STRUCTURE_TYPE_MEMORY_REQUIREMENTS_2;
	nv->memReq(dev, &ri, &req);
	*size = req.memoryRequirements.size;
	*align = req.memoryRequirements.alignment;
	*bits = req.memoryRequirements.memoryTypeBits;
}

static VkResult vkrtBindAS(vkrtNV *nv, VkDevice dev, VkAccelerationStructureNV as, VkDeviceMemory mem) {
	VkBindAccelerationStructureMemoryInfoNV bi;
	memset(&bi, 0, sizeof(bi));
	bi.sType = VK_STRUCTURE_TYPE_BIND_ACCELERATION_STRUCTURE_MEMORY_INFO_NV;
	bi.accelerationStructure = as;
	bi.memory = mem;
	return nv->bind(dev, 1, &bi);
}

static void vkrtCmdBuildAS(vkrtNV *nv, VkCommandBuffer cmd, int topLevel, uint32_t instanceCount,
		VkBuffer instBuf, VkBuffer vb, uint32_t vcount, VkDeviceSize vstride, VkBuffer ib,
		uint32_t icount, int opaque, VkAccelerationStructureNV dst, VkBuffer scratch) {
	VkGeometryNV g;
	VkAccelerationStructureInfoNV info;
	vkrtGeometry(&g, vb, vcount, vstride, ib, icount, opaque);
	vkrtInfo(&info, topLevel, instanceCount, &g);
	nv->build(cmd, &info, instBuf, 0, VK_FALSE, dst, VK_NULL_HANDLE, scratch, 0);
}

static VkResult vkrtASHandle(vkrtNV *nv, VkDevice dev, VkAccelerationStructureNV as, uint64_t *handle) {
	return nv->handle(dev, as, sizeof(*handle), handle);
}

static void vkrtDestroyAS(vkrtNV *nv, VkDevice dev, VkAccelerationStructureNV as) {
	nv->destroy(dev, as, NULL);
}

static VkResult vkrtRTProps(void *gipa, VkInstance inst, VkPhysicalDevice pd,
		VkPhysicalDeviceRayTracingPropertiesNV *rt) {
	PFN_vkGetInstanceProcAddr getInstanceProcAddr = (PFN_vkGetInstanceProcAddr)gipa;
	PFN_vkGetPhysicalDeviceProperties2 props2 =
		(PFN_vkGetPhysicalDeviceProperties2)getInstanceProcAddr(inst, "vkGetPhysicalDeviceProperties2");
	if (props2 == NULL) {
		props2 = (PFN_vkGetPhysicalDeviceProperties2)getInstanceProcAddr(inst, "vkGetPhysicalDeviceProperties2KHR");
	}
	if (props2 == NULL) {
		return VK_ERROR_EXTENSION_NOT_PRESENT;
	}
	VkPhysicalDeviceProperties2 p;
	memset(rt, 0, sizeof(*rt));
	memset(&p, 0, sizeof(p));
	rt->sType = VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_RAY_TRACING_PROPERTIES_NV;
	p.sType = VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_PROPERTIES_2;
	p.pNext = rt;
	props2(pd, &p);
	return VK_SUCCESS;
}
*/
import "C"

import (
	"unsafe"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/celer/vkgrt/driver"
)

// nvProcs holds the VK_NV_ray_tracing entry points of one device.
type nvProcs struct {
	c C.vkrtNV
}

func rayTracingProperties(inst *Instance, pd vk.PhysicalDevice) (driver.RayTracingProperties, error) {
	var rt C.VkPhysicalDeviceRayTracingPropertiesNV
	res := vk.Result(C.vkrtRTProps(inst.procAddr, C.VkInstance(unsafe.Pointer(inst.vkInstance)),
		C.VkPhysicalDevice(unsafe.Pointer(pd)), &rt))
	if err := vk.Error(res); err != nil {
		return driver.RayTracingProperties{}, errors.Wrap(err, "vulkan: ray tracing properties")
	}
	return driver.RayTracingProperties{
		ShaderGroupHandleSize:    uint32(rt.shaderGroupHandleSize),
		MaxRecursionDepth:        uint32(rt.maxRecursionDepth),
		MaxShaderGroupStride:     uint32(rt.maxShaderGroupStride),
		ShaderGroupBaseAlignment: uint32(rt.shaderGroupBaseAlignment),
		MaxGeometryCount:         uint64(rt.maxGeometryCount),
		MaxInstanceCount:         uint64(rt.maxInstanceCount),
		MaxTriangleCount:         uint64(rt.maxTriangleCount),
	}, nil
}

func (d *Device) loadRayTracing() error {
	nv := &nvProcs{}
	inst := d.adapter.inst
	res := vk.Result(C.vkrtLoad(inst.procAddr, C.VkInstance(unsafe.Pointer(inst.vkInstance)),
		C.VkDevice(unsafe.Pointer(d.vkDevice)), &nv.c))
	if res == vk.ErrorExtensionNotPresent {
		return errors.Wrap(driver.ErrMissingExtension, "VK_NV_ray_tracing entry points")
	}
	if err := vk.Error(res); err != nil {
		return errors.Wrap(err, "vulkan: load ray tracing")
	}
	d.nv = nv
	return nil
}

func cBuffer(b driver.Buffer) C.VkBuffer {
	return C.VkBuffer(unsafe.Pointer(vkBuffer(b)))
}

func cBool(b bool) C.int {
	if b {
		return 1
	}
	return 0
}

// geometryArgs flattens a bottom-level geometry for the C side. Top-level
// descriptions pass null buffers.
type geometryArgs struct {
	vb, ib         C.VkBuffer
	vcount, icount C.uint32_t
	vstride        C.VkDeviceSize
	opaque         C.int
}

func newGeometryArgs(desc *driver.AccelDesc) geometryArgs {
	var g geometryArgs
	if desc.Geometry == nil {
		return g
	}
	t := desc.Geometry
	g.vb = cBuffer(t.Vertices)
	g.ib = cBuffer(t.Indices)
	g.vcount = C.uint32_t(t.VertexCount)
	g.icount = C.uint32_t(t.IndexCount)
	g.vstride = C.VkDeviceSize(t.VertexStride)
	g.opaque = cBool(t.Opaque)
	return g
}

type accelStruct struct {
	device *Device
	desc   driver.AccelDesc
	as     C.VkAccelerationStructureNV
	built  bool
}

func (d *Device) NewAccelStruct(desc *driver.AccelDesc) (driver.AccelStruct, error) {
	if d.nv == nil {
		return nil, errors.Wrap(driver.ErrMissingExtension, "VK_NV_ray_tracing not enabled")
	}
	if desc.Kind == driver.AccelBottomLevel && desc.Geometry == nil {
		return nil, errors.New("vulkan: bottom-level structure needs one geometry")
	}
	if desc.Geometry != nil && desc.Geometry.VertexFormat != driver.FormatR32G32B32Sfloat {
		return nil, errors.Errorf("vulkan: unsupported vertex format %d", desc.Geometry.VertexFormat)
	}
	g := newGeometryArgs(desc)
	a := &accelStruct{device: d, desc: *desc}
	res := vk.Result(C.vkrtCreateAS(&d.nv.c, C.VkDevice(unsafe.Pointer(d.vkDevice)),
		cBool(desc.Kind == driver.AccelTopLevel), C.uint32_t(desc.InstanceCount),
		g.vb, g.vcount, g.vstride, g.ib, g.icount, g.opaque, &a.as))
	if err := vk.Error(res); err != nil {
		return nil, errors.Wrap(err, "vulkan: create acceleration structure")
	}
	return a, nil
}

func (a *accelStruct) Kind() driver.AccelKind { return a.desc.Kind }

func (a *accelStruct) Requirements(scratch bool) driver.MemoryRequirements {
	var size, align C.VkDeviceSize
	var bits C.uint32_t
	C.vkrtASMemReq(&a.device.nv.c, C.VkDevice(unsafe.Pointer(a.device.vkDevice)), a.as,
		cBool(scratch), &size, &align, &bits)
	return driver.MemoryRequirements{
		Size:      uint64(size),
		Alignment: uint64(align),
		TypeBits:  uint32(bits),
	}
}

func (a *accelStruct) Bind(m driver.Memory) error {
	mem, ok := m.(*Memory)
	if !ok {
		return errors.Wrap(driver.ErrUnknownHandle, "bind structure memory")
	}
	res := vk.Result(C.vkrtBindAS(&a.device.nv.c, C.VkDevice(unsafe.Pointer(a.device.vkDevice)), a.as,
		C.VkDeviceMemory(unsafe.Pointer(mem.vkMemory))))
	return vk.Error(res)
}

// Handle is available once a build has been recorded and submitted.
func (a *accelStruct) Handle() (uint64, error) {
	if !a.built {
		return 0, driver.ErrNotBuilt
	}
	var handle C.uint64_t
	res := vk.Result(C.vkrtASHandle(&a.device.nv.c, C.VkDevice(unsafe.Pointer(a.device.vkDevice)), a.as, &handle))
	if err := vk.Error(res); err != nil {
		return 0, errors.Wrap(err, "vulkan: acceleration structure handle")
	}
	return uint64(handle), nil
}

func (a *accelStruct) Destroy() {
	C.vkrtDestroyAS(&a.device.nv.c, C.VkDevice(unsafe.Pointer(a.device.vkDevice)), a.as)
}

// BuildAccelStruct records a build of dst. Each build is submitted on its
// own and waited on, so no barrier is recorded.
func (c *CmdBuffer) BuildAccelStruct(desc *driver.AccelDesc, instances driver.Buffer, dst driver.AccelStruct, scratch driver.Buffer) {
	as, ok := dst.(*accelStruct)
	if !ok || c.device.nv == nil {
		return
	}
	var inst C.VkBuffer
	if instances != nil {
		inst = cBuffer(instances)
	}
	g := newGeometryArgs(desc)
	C.vkrtCmdBuildAS(&c.device.nv.c, C.VkCommandBuffer(unsafe.Pointer(c.vkCommandBuffer)),
		cBool(desc.Kind == driver.AccelTopLevel), C.uint32_t(desc.InstanceCount), inst,
		g.vb, g.vcount, g.vstride, g.ib, g.icount, g.opaque, as.as, cBuffer(scratch))
	as.built = true
}
