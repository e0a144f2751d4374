// Package vulkan implements the driver interfaces on top of vulkan-go.
// Ray tracing goes through VK_NV_ray_tracing, loaded at device creation.
package vulkan

import (
	"unsafe"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	vk "github.com/vulkan-go/vulkan"

	"github.com/celer/vkgrt/driver"
	"github.com/celer/vkgrt/window"
)

// Version is used to specify versions of components
type Version struct {
	Major int
	Minor int
	Patch int
}

// VKVersion returns a Vulkan compatible version representation
func (v *Version) VKVersion() uint32 {
	return vk.MakeVersion(v.Major, v.Minor, v.Patch)
}

// App describes the application to Vulkan.
type App struct {
	Name       string
	EngineName string
	Version    Version
	// APIVersion is the minimum Vulkan API version, 1.1 if unset.
	APIVersion Version

	// Validation enables VK_LAYER_KHRONOS_validation and routes debug
	// reports to the logger.
	Validation bool

	// Extensions are the instance extensions the window needs.
	Extensions []string
}

// SupportedLayers lists the instance layers known to the loader.
func SupportedLayers() ([]string, error) {
	var n uint32
	if err := vk.Error(vk.EnumerateInstanceLayerProperties(&n, nil)); err != nil {
		return nil, err
	}
	props := make([]vk.LayerProperties, n)
	if err := vk.Error(vk.EnumerateInstanceLayerProperties(&n, props)); err != nil {
		return nil, err
	}
	names := make([]string, 0, n)
	for _, p := range props {
		p.Deref()
		names = append(names, vk.ToString(p.LayerName[:]))
	}
	return names, nil
}

// SupportedExtensions lists the instance extensions known to the loader.
func SupportedExtensions() ([]string, error) {
	var n uint32
	if err := vk.Error(vk.EnumerateInstanceExtensionProperties("", &n, nil)); err != nil {
		return nil, err
	}
	props := make([]vk.ExtensionProperties, n)
	if err := vk.Error(vk.EnumerateInstanceExtensionProperties("", &n, props)); err != nil {
		return nil, err
	}
	names := make([]string, 0, n)
	for _, p := range props {
		p.Deref()
		names = append(names, vk.ToString(p.ExtensionName[:]))
	}
	return names, nil
}

func (a *App) applicationInfo() vk.ApplicationInfo {
	api := a.APIVersion
	if api.Major < 1 {
		api = Version{Major: 1, Minor: 1}
	}
	return vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         api.VKVersion(),
		ApplicationVersion: a.Version.VKVersion(),
		PApplicationName:   safeString(a.Name),
		PEngineName:        safeString(a.EngineName),
	}
}

// Instance is a Vulkan instance together with the loader entry point it
// was created from.
type Instance struct {
	log        logrus.FieldLogger
	procAddr   unsafe.Pointer
	vkInstance vk.Instance
	extensions []string
	debug      vk.DebugReportCallback
	hasDebug   bool
}

var _ driver.Instance = (*Instance)(nil)

// New loads Vulkan through procAddr, the vkGetInstanceProcAddr of the
// windowing library, and creates an instance for app.
func New(app App, procAddr unsafe.Pointer, log logrus.FieldLogger) (*Instance, error) {
	if procAddr == nil {
		return nil, errors.New("vulkan: no vkGetInstanceProcAddr")
	}
	vk.SetGetInstanceProcAddr(procAddr)
	if err := vk.Init(); err != nil {
		return nil, errors.Wrap(err, "vulkan: init")
	}

	extensions := append([]string{}, app.Extensions...)
	var layers []string
	if app.Validation {
		supported, err := SupportedLayers()
		if err != nil {
			return nil, errors.Wrap(err, "vulkan: enumerate layers")
		}
		if contains(supported, "VK_LAYER_KHRONOS_validation") {
			layers = append(layers, "VK_LAYER_KHRONOS_validation")
		} else {
			log.Warn("validation layer VK_LAYER_KHRONOS_validation not found")
		}
		if exts, err := SupportedExtensions(); err == nil && contains(exts, "VK_EXT_debug_report") {
			extensions = append(extensions, "VK_EXT_debug_report")
		}
	}

	appInfo := app.applicationInfo()
	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: safeStrings(append([]string{}, extensions...)),
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     safeStrings(layers),
	}

	inst := &Instance{log: log, procAddr: procAddr, extensions: extensions}
	if err := vk.Error(vk.CreateInstance(&createInfo, nil, &inst.vkInstance)); err != nil {
		return nil, errors.Wrap(err, "vulkan: create instance")
	}
	if err := vk.InitInstance(inst.vkInstance); err != nil {
		vk.DestroyInstance(inst.vkInstance, nil)
		return nil, errors.Wrap(err, "vulkan: init instance")
	}
	if contains(extensions, "VK_EXT_debug_report") {
		if err := inst.setDebugCallback(); err != nil {
			log.WithError(err).Warn("debug report callback not installed")
		}
	}
	return inst, nil
}

func (i *Instance) setDebugCallback() error {
	err := vk.Error(vk.CreateDebugReportCallback(i.vkInstance, &vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: i.debugReport,
	}, nil, &i.debug))
	if err != nil {
		return err
	}
	i.hasDebug = true
	return nil
}

func (i *Instance) debugReport(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
	object uint64, location uint, messageCode int32, pLayerPrefix string,
	pMessage string, pUserData unsafe.Pointer) vk.Bool32 {

	entry := i.log.WithFields(logrus.Fields{"layer": pLayerPrefix, "code": messageCode})
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		entry.Error(pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		entry.Warn(pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		entry.Warn(pMessage)
	default:
		entry.Debug(pMessage)
	}
	return vk.Bool32(vk.False)
}

func (i *Instance) Name() string { return "vulkan" }

func (i *Instance) Extensions() []string { return i.extensions }

// VK returns the native instance.
func (i *Instance) VK() vk.Instance { return i.vkInstance }

// Adapters returns the physical devices known to Vulkan.
func (i *Instance) Adapters() ([]driver.Adapter, error) {
	var n uint32
	if err := vk.Error(vk.EnumeratePhysicalDevices(i.vkInstance, &n, nil)); err != nil {
		return nil, errors.Wrap(err, "vulkan: enumerate physical devices")
	}
	if n == 0 {
		return nil, driver.ErrNoDevice
	}
	devices := make([]vk.PhysicalDevice, n)
	if err := vk.Error(vk.EnumeratePhysicalDevices(i.vkInstance, &n, devices)); err != nil {
		return nil, errors.Wrap(err, "vulkan: enumerate physical devices")
	}
	ret := make([]driver.Adapter, n)
	for k, pd := range devices {
		ret[k] = newAdapter(i, pd)
	}
	return ret, nil
}

type surface struct {
	inst      *Instance
	vkSurface vk.Surface
}

// NewSurface creates a surface for a window implementing
// window.VulkanSurfacer.
func (i *Instance) NewSurface(w any) (driver.Surface, error) {
	vs, ok := w.(window.VulkanSurfacer)
	if !ok {
		return nil, errors.Errorf("vulkan: %T cannot create Vulkan surfaces", w)
	}
	ptr, err := vs.CreateVulkanSurface(i.vkInstance)
	if err != nil {
		return nil, errors.Wrap(err, "vulkan: create window surface")
	}
	return &surface{inst: i, vkSurface: vk.SurfaceFromPointer(ptr)}, nil
}

func (s *surface) Destroy() {
	vk.DestroySurface(s.inst.vkInstance, s.vkSurface, nil)
}

func vkSurface(s driver.Surface) (vk.Surface, error) {
	sf, ok := s.(*surface)
	if !ok {
		return vk.NullSurface, errors.Wrap(driver.ErrUnknownHandle, "surface")
	}
	return sf.vkSurface, nil
}

func (i *Instance) Destroy() {
	if i.hasDebug {
		vk.DestroyDebugReportCallback(i.vkInstance, i.debug, nil)
		i.hasDebug = false
	}
	vk.DestroyInstance(i.vkInstance, nil)
}
