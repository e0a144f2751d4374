package vkgrt

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/celer/vkgrt/driver"
)

// RequiredDeviceExtensions are enabled on the logical device.
var RequiredDeviceExtensions = []string{
	"VK_KHR_swapchain",
	"VK_NV_ray_tracing",
	"VK_KHR_get_memory_requirements2",
}

// Selection is the outcome of capability discovery.
type Selection struct {
	Adapter     driver.Adapter
	QueueFamily int
	RayTracing  driver.RayTracingProperties
}

// PickAdapter returns the first discrete adapter, or the first integrated
// one when no discrete adapter exists.
func PickAdapter(adapters []driver.Adapter) (driver.Adapter, error) {
	var integrated driver.Adapter
	for _, a := range adapters {
		switch a.Info().Kind {
		case driver.AdapterDiscrete:
			return a, nil
		case driver.AdapterIntegrated:
			if integrated == nil {
				integrated = a
			}
		}
	}
	if integrated == nil {
		return nil, failf(ErrInitialization, "pick adapter", "no discrete or integrated adapter among %d", len(adapters))
	}
	return integrated, nil
}

// SelectQueueFamily returns the first family with graphics support that
// can present to s.
func SelectQueueFamily(a driver.Adapter, s driver.Surface) (int, error) {
	for _, qf := range a.QueueFamilies() {
		if qf.Flags&driver.QueueGraphics == 0 {
			continue
		}
		ok, err := a.SupportsPresent(qf.Index, s)
		if err != nil {
			return 0, fail(ErrInitialization, "query present support", err)
		}
		if ok {
			return qf.Index, nil
		}
	}
	return 0, fail(ErrNoSuitableQueueFamily, "select queue family", nil)
}

// Discover chooses the adapter and queue family used for s and checks
// that the adapter can ray trace.
func Discover(inst driver.Instance, s driver.Surface, log logrus.FieldLogger) (*Selection, error) {
	log.WithField("extensions", strings.Join(inst.Extensions(), " ")).Info("instance extensions")

	adapters, err := inst.Adapters()
	if err != nil {
		return nil, fail(ErrInitialization, "enumerate adapters", err)
	}
	a, err := PickAdapter(adapters)
	if err != nil {
		return nil, err
	}
	info := a.Info()
	log.WithFields(logrus.Fields{"name": info.Name, "kind": info.Kind}).Info("selected adapter")

	exts, err := a.Extensions()
	if err != nil {
		return nil, fail(ErrInitialization, "enumerate device extensions", err)
	}
	log.WithField("extensions", strings.Join(exts, " ")).Info("device extensions")
	for _, req := range RequiredDeviceExtensions {
		if !contains(exts, req) {
			return nil, failf(ErrInitialization, "check device extensions", "%s not supported by %s", req, info.Name)
		}
	}

	family, err := SelectQueueFamily(a, s)
	if err != nil {
		return nil, err
	}

	rt, err := a.RayTracingProperties()
	if err != nil {
		return nil, fail(ErrInitialization, "query ray tracing properties", err)
	}
	log.WithFields(logrus.Fields{
		"shaderGroupHandleSize":    rt.ShaderGroupHandleSize,
		"maxRecursionDepth":        rt.MaxRecursionDepth,
		"shaderGroupBaseAlignment": rt.ShaderGroupBaseAlignment,
		"maxGeometryCount":         rt.MaxGeometryCount,
		"maxInstanceCount":         rt.MaxInstanceCount,
		"maxTriangleCount":         rt.MaxTriangleCount,
	}).Info("ray tracing properties")

	return &Selection{Adapter: a, QueueFamily: family, RayTracing: rt}, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
