package vkgrt

import (
	units "github.com/docker/go-units"
	"github.com/sirupsen/logrus"

	"github.com/celer/vkgrt/driver"
)

// AccelStruct is a built acceleration structure and its object storage.
type AccelStruct struct {
	Kind driver.AccelKind
	// ID is the identifier instance records use to reference a
	// bottom-level structure.
	ID uint64

	ctx       *Context
	as        driver.AccelStruct
	mem       driver.Memory
	destroyed bool
}

// Driver returns the underlying driver structure.
func (a *AccelStruct) Driver() driver.AccelStruct { return a.as }

// Handle queries the identifier from the driver again.
func (a *AccelStruct) Handle() (uint64, error) {
	h, err := a.as.Handle()
	if err != nil {
		return 0, fail(ErrBuild, "query structure handle", err)
	}
	return h, nil
}

// Valid reports whether the driver considers the build usable. Drivers
// that cannot tell report true.
func (a *AccelStruct) Valid() bool {
	if v, ok := a.as.(interface{ Valid() bool }); ok {
		return v.Valid()
	}
	return true
}

func (a *AccelStruct) Destroy() {
	if a.destroyed {
		return
	}
	a.destroyed = true
	if a.Kind == driver.AccelBottomLevel {
		delete(a.ctx.built, a.ID)
	}
	a.as.Destroy()
	a.mem.Destroy()
}

// BuildBottomLevel builds a structure over one opaque indexed triangle
// geometry with R32G32B32_SFLOAT positions and uint32 indices. It blocks
// until the build has completed.
func (c *Context) BuildBottomLevel(vertices *Buffer, vertexCount, stride int, indices *Buffer, indexCount int) (*AccelStruct, error) {
	desc := &driver.AccelDesc{
		Kind: driver.AccelBottomLevel,
		Geometry: &driver.Triangles{
			Vertices:     vertices.buf,
			VertexCount:  vertexCount,
			VertexStride: uint64(stride),
			VertexFormat: driver.FormatR32G32B32Sfloat,
			Indices:      indices.buf,
			IndexCount:   indexCount,
			Opaque:       true,
		},
	}
	return c.build("build bottom level", desc, nil)
}

// BuildTopLevel builds a structure over count packed instance records in
// instances. Every record must reference a completed bottom-level build;
// this is not checked, see BuildScene.
func (c *Context) BuildTopLevel(instances *Buffer, count int) (*AccelStruct, error) {
	desc := &driver.AccelDesc{Kind: driver.AccelTopLevel, InstanceCount: count}
	return c.build("build top level", desc, instances.buf)
}

// BuildScene encodes and uploads records and builds a top-level structure
// over them. Records referencing anything but a live, completed
// bottom-level build of this context are rejected.
func (c *Context) BuildScene(records []InstanceRecord) (*AccelStruct, error) {
	const op = "build scene"
	if len(records) == 0 {
		return nil, failf(ErrBuild, op, "no instances")
	}
	for i := range records {
		if !c.built[records[i].AccelStructID] {
			return nil, failf(ErrBuild, op, "instance %d references unbuilt bottom-level structure %#x", i, records[i].AccelStructID)
		}
	}
	data, err := EncodeInstanceRecords(records)
	if err != nil {
		return nil, err
	}
	instances, err := c.Upload(data, driver.UsageRayTracing)
	if err != nil {
		return nil, err
	}
	return c.BuildTopLevel(instances, len(records))
}

func (c *Context) build(op string, desc *driver.AccelDesc, instances driver.Buffer) (*AccelStruct, error) {
	as, err := c.Device.NewAccelStruct(desc)
	if err != nil {
		return nil, fail(ErrBuild, op+": create structure", err)
	}
	objReq := as.Requirements(false)
	scratchReq := as.Requirements(true)
	log := c.Log.WithFields(logrus.Fields{"op": op, "kind": desc.Kind})
	log.WithFields(logrus.Fields{
		"object":  units.BytesSize(float64(objReq.Size)),
		"scratch": units.BytesSize(float64(scratchReq.Size)),
	}).Info("structure memory requirements")

	mem, err := c.allocate(objReq, driver.MemoryDeviceLocal, op+" object")
	if err != nil {
		as.Destroy()
		return nil, err
	}
	if err := as.Bind(mem); err != nil {
		as.Destroy()
		mem.Destroy()
		return nil, fail(ErrBuild, op+": bind structure memory", err)
	}
	a := &AccelStruct{Kind: desc.Kind, ctx: c, as: as, mem: mem}

	scratch, err := c.newBuffer(scratchReq.Size, driver.UsageRayTracing, driver.MemoryDeviceLocal, op+" scratch")
	if err != nil {
		a.Destroy()
		return nil, err
	}
	defer scratch.Destroy()

	err = c.oneShotSubmit(ErrBuild, op, func(cb driver.CmdBuffer) {
		cb.BuildAccelStruct(desc, instances, as, scratch.buf)
	})
	if err != nil {
		a.Destroy()
		return nil, err
	}

	id, err := as.Handle()
	if err != nil {
		a.Destroy()
		return nil, fail(ErrBuild, op+": query structure handle", err)
	}
	if id == 0 {
		a.Destroy()
		return nil, failf(ErrBuild, op, "driver returned a zero identifier")
	}
	a.ID = id
	if desc.Kind == driver.AccelBottomLevel {
		c.built[id] = true
	}
	c.objects.manage(a)
	log.WithField("id", id).Info("built acceleration structure")
	return a, nil
}
