package soft

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/celer/vkgrt/driver"
)

const (
	// instanceStride is the size of one packed geometry instance.
	instanceStride = 64
	// instanceHandleOffset locates the bottom-level handle in an instance.
	instanceHandleOffset = 56
)

type accelStruct struct {
	*object
	desc   driver.AccelDesc
	mem    *memory
	handle uint64
	built  bool
	valid  bool
}

func (d *Device) NewAccelStruct(desc *driver.AccelDesc) (driver.AccelStruct, error) {
	switch desc.Kind {
	case driver.AccelBottomLevel:
		g := desc.Geometry
		if g == nil || desc.InstanceCount != 0 {
			return nil, errors.New("soft: bottom-level structure needs one geometry")
		}
		if g.VertexFormat != driver.FormatR32G32B32Sfloat {
			return nil, errors.Errorf("soft: unsupported vertex format %d", g.VertexFormat)
		}
		if g.IndexCount <= 0 || g.IndexCount%3 != 0 || g.VertexCount <= 0 {
			return nil, errors.Errorf("soft: bad triangle counts (%d vertices, %d indices)", g.VertexCount, g.IndexCount)
		}
	case driver.AccelTopLevel:
		if desc.Geometry != nil || desc.InstanceCount <= 0 {
			return nil, errors.New("soft: top-level structure needs instances and no geometry")
		}
	default:
		return nil, errors.Errorf("soft: unknown structure kind %d", desc.Kind)
	}
	return &accelStruct{object: d.newObject("accel-struct"), desc: *desc}, nil
}

func (a *accelStruct) Kind() driver.AccelKind { return a.desc.Kind }

// Requirements grows with the primitive or instance count.
func (a *accelStruct) Requirements(scratch bool) driver.MemoryRequirements {
	var size uint64
	if a.desc.Kind == driver.AccelBottomLevel {
		size = 4096 + 64*uint64(a.desc.Geometry.IndexCount/3)
	} else {
		size = 4096 + 128*uint64(a.desc.InstanceCount)
	}
	if scratch {
		size /= 2
	}
	return driver.MemoryRequirements{
		Size:      alignUp(size, 256),
		Alignment: 256,
		TypeBits:  a.d.typeBits(driver.MemoryDeviceLocal),
	}
}

func (a *accelStruct) Bind(m driver.Memory) error {
	mem, ok := m.(*memory)
	if !ok || mem.d != a.d || mem.destroyed {
		return errors.Wrap(driver.ErrUnknownHandle, "bind structure memory")
	}
	if a.mem != nil {
		return errors.New("soft: structure already bound")
	}
	req := a.Requirements(false)
	if mem.size() < req.Size || req.TypeBits&(1<<uint(mem.typeIndex)) == 0 {
		return errors.New("soft: memory does not satisfy structure requirements")
	}
	a.mem = mem
	return nil
}

func (a *accelStruct) Handle() (uint64, error) {
	if a.destroyed {
		return 0, errors.Wrap(driver.ErrUnknownHandle, "destroyed structure")
	}
	if !a.built {
		return 0, driver.ErrNotBuilt
	}
	return a.handle, nil
}

// Valid is false for a top-level structure built over an instance that
// references no completed bottom-level build.
func (a *accelStruct) Valid() bool { return a.built && a.valid }

func (a *accelStruct) Destroy() {
	if a.destroyed {
		return
	}
	if a.built {
		delete(a.d.built, a.handle)
	}
	a.object.Destroy()
}

func (cb *cmdBuffer) BuildAccelStruct(desc *driver.AccelDesc, instances driver.Buffer, dst driver.AccelStruct, scratch driver.Buffer) {
	d := cb.pool.d
	dc := *desc
	cb.add("build-accel-struct "+dc.Kind.String(), func() error {
		if err := d.fault(OpBuild); err != nil {
			return err
		}
		a, ok := dst.(*accelStruct)
		if !ok || a.destroyed {
			return errors.Wrap(driver.ErrUnknownHandle, "build destination")
		}
		if a.mem == nil {
			return driver.ErrNotBound
		}
		if dc.Kind != a.desc.Kind {
			return errors.New("soft: build kind does not match structure")
		}
		sb, ok := scratch.(*buffer)
		if !ok {
			return errors.Wrap(driver.ErrUnknownHandle, "build scratch")
		}
		if sb.usage&driver.UsageRayTracing == 0 {
			return errors.New("soft: scratch buffer lacks ray tracing usage")
		}
		if _, err := sb.bytes(); err != nil {
			return errors.Wrap(err, "scratch")
		}
		if sb.size < a.Requirements(true).Size {
			return errors.Errorf("soft: scratch of %d bytes is too small", sb.size)
		}

		var err error
		if dc.Kind == driver.AccelBottomLevel {
			a.valid, err = d.checkTriangles(dc.Geometry)
		} else {
			a.valid, err = d.checkInstances(instances, dc.InstanceCount)
		}
		if err != nil {
			return err
		}
		if !a.built {
			a.handle = d.nextHandle
			d.nextHandle += 0x100
		}
		a.built = true
		if dc.Kind == driver.AccelBottomLevel {
			d.built[a.handle] = a
		}
		d.stats.Builds++
		return nil
	})
}

func (d *Device) checkTriangles(g *driver.Triangles) (bool, error) {
	vb, ok := g.Vertices.(*buffer)
	if !ok {
		return false, errors.Wrap(driver.ErrUnknownHandle, "vertex buffer")
	}
	ib, ok := g.Indices.(*buffer)
	if !ok {
		return false, errors.Wrap(driver.ErrUnknownHandle, "index buffer")
	}
	if _, err := vb.bytes(); err != nil {
		return false, errors.Wrap(err, "vertex buffer")
	}
	idx, err := ib.bytes()
	if err != nil {
		return false, errors.Wrap(err, "index buffer")
	}
	if uint64(g.VertexCount)*g.VertexStride > vb.size {
		return false, errors.New("soft: vertices exceed vertex buffer")
	}
	if uint64(g.IndexCount)*4 > ib.size {
		return false, errors.New("soft: indices exceed index buffer")
	}
	for i := 0; i < g.IndexCount; i++ {
		if v := binary.LittleEndian.Uint32(idx[i*4:]); int(v) >= g.VertexCount {
			return false, errors.Errorf("soft: index %d references vertex %d of %d", i, v, g.VertexCount)
		}
	}
	return true, nil
}

// checkInstances reports whether every instance references a completed
// bottom-level build.
func (d *Device) checkInstances(instances driver.Buffer, count int) (bool, error) {
	ib, ok := instances.(*buffer)
	if !ok {
		return false, errors.Wrap(driver.ErrUnknownHandle, "instance buffer")
	}
	data, err := ib.bytes()
	if err != nil {
		return false, errors.Wrap(err, "instance buffer")
	}
	if uint64(count)*instanceStride > uint64(len(data)) {
		return false, errors.New("soft: instances exceed instance buffer")
	}
	valid := true
	for i := 0; i < count; i++ {
		h := binary.LittleEndian.Uint64(data[i*instanceStride+instanceHandleOffset:])
		if _, ok := d.built[h]; !ok {
			valid = false
		}
	}
	return valid, nil
}
