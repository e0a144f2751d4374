package vkgrt

import (
	units "github.com/docker/go-units"
	"github.com/sirupsen/logrus"

	"github.com/celer/vkgrt/driver"
)

// Window dimensions of the harness.
const (
	WindowWidth  = 1280
	WindowHeight = 720
)

// Context holds every device scoped object of the harness. Components
// receive it explicitly; there is no package level state.
//
// Objects created through a Context are released by Destroy in reverse
// order of creation. Destroy is safe to call more than once, so it can be
// both deferred and bound to the fatal exit path.
//
// A Context is not safe for concurrent use.
type Context struct {
	Log logrus.FieldLogger

	Instance    driver.Instance
	Adapter     driver.Adapter
	Device      driver.Device
	Queue       driver.Queue
	QueueFamily int
	RayTracing  driver.RayTracingProperties

	memoryTypes []driver.MemoryType
	memoryHeaps []driver.MemoryHeap

	// pool and oneShot serialize every transient operation.
	pool    driver.CommandPool
	oneShot driver.CmdBuffer

	// built holds the identifiers of completed bottom-level builds.
	built map[uint64]bool

	objects releaser
}

// NewContext takes ownership of inst.
func NewContext(inst driver.Instance, log logrus.FieldLogger) *Context {
	if log == nil {
		log = logrus.StandardLogger()
	}
	c := &Context{Log: log, Instance: inst, built: make(map[uint64]bool)}
	c.objects.manage(inst)
	return c
}

// NewSurface creates a presentation surface for window and keeps it until
// the context is destroyed.
func (c *Context) NewSurface(window any) (driver.Surface, error) {
	s, err := c.Instance.NewSurface(window)
	if err != nil {
		return nil, fail(ErrInitialization, "create surface", err)
	}
	c.objects.manage(s)
	return s, nil
}

// Open runs capability discovery against s, creates the logical device
// and the one-shot command buffer.
func (c *Context) Open(s driver.Surface) error {
	sel, err := Discover(c.Instance, s, c.Log)
	if err != nil {
		return err
	}
	return c.OpenSelection(sel)
}

// OpenSelection creates the device for a previous discovery.
func (c *Context) OpenSelection(sel *Selection) error {
	dev, err := sel.Adapter.Open(sel.QueueFamily, RequiredDeviceExtensions)
	if err != nil {
		return fail(ErrInitialization, "create device", err)
	}
	c.objects.manage(dev)

	c.Adapter = sel.Adapter
	c.Device = dev
	c.Queue = dev.Queue()
	c.QueueFamily = sel.QueueFamily
	c.RayTracing = sel.RayTracing
	c.memoryTypes = sel.Adapter.MemoryTypes()
	c.memoryHeaps = sel.Adapter.MemoryHeaps()

	for i, h := range c.memoryHeaps {
		c.Log.WithFields(logrus.Fields{"heap": i, "size": units.BytesSize(float64(h.Size)), "deviceLocal": h.DeviceLocal}).Debug("memory heap")
	}

	pool, err := dev.NewCommandPool()
	if err != nil {
		return fail(ErrInitialization, "create command pool", err)
	}
	c.objects.manage(pool)
	cbs, err := pool.Allocate(1)
	if err != nil {
		return fail(ErrInitialization, "allocate command buffer", err)
	}
	c.pool = pool
	c.oneShot = cbs[0]
	return nil
}

// Manage hands d to the context, which destroys it during Destroy.
func (c *Context) Manage(d driver.Destroyer) {
	c.objects.manage(d)
}

// Destroy releases every object owned by the context, newest first.
func (c *Context) Destroy() {
	if c.objects.Len() == 0 {
		return
	}
	if c.Device != nil {
		if err := c.Device.WaitIdle(); err != nil {
			c.Log.WithError(err).Warn("wait idle before teardown")
		}
	}
	c.Log.WithField("objects", c.objects.Len()).Debug("releasing device objects")
	c.objects.Release()
	c.Device = nil
	c.Queue = nil
}

// allocate picks a memory type for req with props and allocates it. A
// request larger than the heap backing the chosen type is rejected
// without calling the driver.
func (c *Context) allocate(req driver.MemoryRequirements, props driver.MemoryProperty, op string) (driver.Memory, error) {
	idx, err := SelectMemoryType(req.TypeBits, props, c.memoryTypes)
	if err != nil {
		return nil, err
	}
	h := c.memoryTypes[idx].HeapIndex
	if h < len(c.memoryHeaps) && req.Size > c.memoryHeaps[h].Size {
		return nil, failf(ErrAllocation, op, "%s exceeds heap %d of %s",
			units.BytesSize(float64(req.Size)), h, units.BytesSize(float64(c.memoryHeaps[h].Size)))
	}
	mem, err := c.Device.Allocate(req.Size, idx)
	if err != nil {
		return nil, fail(ErrAllocation, op, err)
	}
	return mem, nil
}

// oneShotSubmit records with record into the shared command buffer, submits it,
// waits for the queue to go idle and resets the pool.
func (c *Context) oneShotSubmit(kind error, op string, record func(cb driver.CmdBuffer)) error {
	cb := c.oneShot
	if err := cb.Begin(true); err != nil {
		return fail(kind, op+": begin command buffer", err)
	}
	record(cb)
	if err := cb.End(); err != nil {
		return fail(kind, op+": end command buffer", err)
	}
	if err := c.Queue.Submit(&driver.Submission{Buffers: []driver.CmdBuffer{cb}}); err != nil {
		return fail(kind, op+": submit", err)
	}
	if err := c.Queue.WaitIdle(); err != nil {
		return fail(kind, op+": wait idle", err)
	}
	if err := c.pool.Reset(true); err != nil {
		return fail(kind, op+": reset command pool", err)
	}
	return nil
}
