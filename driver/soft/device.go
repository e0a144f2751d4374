package soft

import (
	"github.com/pkg/errors"

	"github.com/celer/vkgrt/driver"
)

// Op names a traced device operation.
type Op string

const (
	OpAllocate   Op = "allocate"
	OpAcquire    Op = "acquire"
	OpSubmit     Op = "submit"
	OpPresent    Op = "present"
	OpWaitFence  Op = "wait-fence"
	OpResetFence Op = "reset-fence"
	OpWaitIdle   Op = "wait-idle"
	OpBuild      Op = "build"
	OpPoolReset  Op = "pool-reset"
)

// Event is one entry of the device trace.
type Event struct {
	Op Op
	// Index is the swapchain image index for acquire and present.
	Index int
	// Buffers holds the ids of the command buffers of a submit.
	Buffers []int
}

// Stats counts device activity.
type Stats struct {
	Allocations int
	Acquires    int
	Submits     int
	Presents    int
	FenceWaits  int
	FenceResets int
	WaitIdles   int
	Builds      int
	Copies      int
	Draws       int
	PoolResets  int
}

// Device is a soft logical device.
type Device struct {
	adapter *Adapter
	family  int
	queue   *queue
	heaps   []*heap

	nextID     int
	nextHandle uint64
	// built maps the handles of completed bottom-level builds.
	built map[uint64]*accelStruct

	live   map[string]int
	stats  Stats
	trace  []Event
	faults map[Op]error

	destroyed bool
}

func newDevice(a *Adapter, family int) *Device {
	d := &Device{
		adapter:    a,
		family:     family,
		nextHandle: 0x10000,
		built:      make(map[uint64]*accelStruct),
		live:       make(map[string]int),
		faults:     make(map[Op]error),
	}
	for _, h := range a.cfg.MemoryHeaps {
		d.heaps = append(d.heaps, &heap{size: h.Size})
	}
	d.queue = &queue{d: d}
	return d
}

// FailNext makes the next operation op return err.
func (d *Device) FailNext(op Op, err error) {
	d.faults[op] = err
}

func (d *Device) fault(op Op) error {
	if err, ok := d.faults[op]; ok {
		delete(d.faults, op)
		return err
	}
	return nil
}

// Stats returns a snapshot of the activity counters.
func (d *Device) Stats() Stats { return d.stats }

// Trace returns the queue level events in the order they happened.
func (d *Device) Trace() []Event {
	ret := make([]Event, len(d.trace))
	copy(ret, d.trace)
	return ret
}

// Live returns how many objects of each kind are still alive. Kinds
// with no live objects are omitted.
func (d *Device) Live() map[string]int {
	ret := make(map[string]int)
	for k, n := range d.live {
		if n != 0 {
			ret[k] = n
		}
	}
	return ret
}

// HeapUsed returns the bytes allocated from heap i.
func (d *Device) HeapUsed(i int) uint64 { return d.heaps[i].used() }

// Destroyed reports whether Destroy was called.
func (d *Device) Destroyed() bool { return d.destroyed }

func (d *Device) Destroy() { d.destroyed = true }

func (d *Device) record(ev Event) { d.trace = append(d.trace, ev) }

func (d *Device) id() int {
	d.nextID++
	return d.nextID
}

// object is a device child without behavior of its own.
type object struct {
	d         *Device
	kind      string
	destroyed bool
}

func (d *Device) newObject(kind string) *object {
	d.live[kind]++
	return &object{d: d, kind: kind}
}

func (o *object) Destroy() {
	if o.destroyed {
		return
	}
	o.destroyed = true
	o.d.live[o.kind]--
}

func (d *Device) Queue() driver.Queue { return d.queue }

func (d *Device) WaitIdle() error { return d.queue.WaitIdle() }

type buffer struct {
	*object
	id     int
	size   uint64
	usage  driver.BufferUsage
	mem    *memory
	offset uint64
}

func (d *Device) NewBuffer(size uint64, usage driver.BufferUsage) (driver.Buffer, error) {
	if size == 0 {
		return nil, errors.New("soft: zero sized buffer")
	}
	return &buffer{object: d.newObject("buffer"), id: d.id(), size: size, usage: usage}, nil
}

func (b *buffer) Size() uint64 { return b.size }

func (b *buffer) Usage() driver.BufferUsage { return b.usage }

func (b *buffer) Requirements() driver.MemoryRequirements {
	return driver.MemoryRequirements{
		Size:      alignUp(b.size, 16),
		Alignment: 16,
		TypeBits:  b.d.typeBits(0),
	}
}

func (b *buffer) Bind(m driver.Memory, offset uint64) error {
	mem, ok := m.(*memory)
	if !ok || mem.d != b.d || mem.destroyed {
		return errors.Wrap(driver.ErrUnknownHandle, "bind buffer memory")
	}
	if b.mem != nil {
		return errors.New("soft: buffer already bound")
	}
	req := b.Requirements()
	if offset%req.Alignment != 0 || offset+req.Size > mem.size() {
		return errors.Errorf("soft: buffer of %d bytes does not fit memory of %d bytes at offset %d", b.size, mem.size(), offset)
	}
	if req.TypeBits&(1<<uint(mem.typeIndex)) == 0 {
		return errors.Errorf("soft: memory type %d not allowed for buffer", mem.typeIndex)
	}
	b.mem = mem
	b.offset = offset
	return nil
}

// bytes returns the device view of the buffer contents.
func (b *buffer) bytes() ([]byte, error) {
	if b.destroyed {
		return nil, errors.Wrap(driver.ErrUnknownHandle, "destroyed buffer")
	}
	if b.mem == nil || b.mem.destroyed {
		return nil, driver.ErrNotBound
	}
	return b.mem.data[b.offset : b.offset+b.size], nil
}

// typeBits returns the memory types having every flag of props.
func (d *Device) typeBits(props driver.MemoryProperty) uint32 {
	var bits uint32
	for i, t := range d.adapter.cfg.MemoryTypes {
		if t.Properties.Has(props) {
			bits |= 1 << uint(i)
		}
	}
	return bits
}

type memory struct {
	*object
	typeIndex int
	data      []byte
	heap      *heap
	span      *span
	mapped    bool
}

func (d *Device) Allocate(size uint64, typeIndex int) (driver.Memory, error) {
	if err := d.fault(OpAllocate); err != nil {
		return nil, err
	}
	types := d.adapter.cfg.MemoryTypes
	if typeIndex < 0 || typeIndex >= len(types) {
		return nil, errors.Errorf("soft: memory type %d out of range", typeIndex)
	}
	h := d.heaps[types[typeIndex].HeapIndex]
	s := h.alloc(size, 256)
	if s == nil {
		return nil, errors.Wrapf(driver.ErrNoDeviceMemory, "%d bytes from heap %d", size, types[typeIndex].HeapIndex)
	}
	d.stats.Allocations++
	return &memory{
		object:    d.newObject("memory"),
		typeIndex: typeIndex,
		data:      make([]byte, size),
		heap:      h,
		span:      s,
	}, nil
}

func (m *memory) Size() uint64 { return m.size() }

func (m *memory) size() uint64 { return uint64(len(m.data)) }

func (m *memory) TypeIndex() int { return m.typeIndex }

func (m *memory) Map() ([]byte, error) {
	if !m.d.adapter.cfg.MemoryTypes[m.typeIndex].Properties.Has(driver.MemoryHostVisible) {
		return nil, errors.Errorf("soft: memory type %d is not host visible", m.typeIndex)
	}
	if m.mapped {
		return nil, errors.New("soft: memory already mapped")
	}
	m.mapped = true
	return m.data, nil
}

func (m *memory) Unmap() { m.mapped = false }

func (m *memory) Destroy() {
	if m.destroyed {
		return
	}
	m.heap.free(m.span)
	m.object.Destroy()
}

type semaphore struct {
	*object
	signaled bool
}

func (d *Device) NewSemaphore() (driver.Semaphore, error) {
	return &semaphore{object: d.newObject("semaphore")}, nil
}

type fence struct {
	*object
	signaled bool
	pending  []*cmdBuffer
}

func (d *Device) NewFence(signaled bool) (driver.Fence, error) {
	return &fence{object: d.newObject("fence"), signaled: signaled}, nil
}

func (d *Device) ResetFence(f driver.Fence) error {
	fc, ok := f.(*fence)
	if !ok || fc.destroyed {
		return errors.Wrap(driver.ErrUnknownHandle, "reset fence")
	}
	fc.signaled = false
	d.stats.FenceResets++
	d.record(Event{Op: OpResetFence})
	return nil
}

func (d *Device) WaitFence(f driver.Fence) error {
	if err := d.fault(OpWaitFence); err != nil {
		return err
	}
	fc, ok := f.(*fence)
	if !ok || fc.destroyed {
		return errors.Wrap(driver.ErrUnknownHandle, "wait fence")
	}
	if !fc.signaled {
		return driver.ErrFenceUnsignaled
	}
	for _, cb := range fc.pending {
		cb.pending = false
	}
	fc.pending = nil
	d.stats.FenceWaits++
	d.record(Event{Op: OpWaitFence})
	return nil
}

// Signaled reports whether f is a signaled soft fence.
func Signaled(f driver.Fence) bool {
	fc, ok := f.(*fence)
	return ok && fc.signaled
}

// Contents returns the device view of a bound soft buffer.
func Contents(b driver.Buffer) ([]byte, error) {
	sb, ok := b.(*buffer)
	if !ok {
		return nil, driver.ErrUnknownHandle
	}
	return sb.bytes()
}
