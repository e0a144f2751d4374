package vkgrt

import (
	units "github.com/docker/go-units"
	"github.com/sirupsen/logrus"

	"github.com/celer/vkgrt/driver"
)

// Buffer is a driver buffer together with the one memory block bound to
// it. Destroying the buffer frees the block.
type Buffer struct {
	buf       driver.Buffer
	mem       driver.Memory
	size      uint64
	usage     driver.BufferUsage
	destroyed bool
}

// Driver returns the underlying driver buffer.
func (b *Buffer) Driver() driver.Buffer { return b.buf }

func (b *Buffer) Size() uint64 { return b.size }

func (b *Buffer) Usage() driver.BufferUsage { return b.usage }

func (b *Buffer) Destroy() {
	if b.destroyed {
		return
	}
	b.destroyed = true
	b.buf.Destroy()
	b.mem.Destroy()
}

// newBuffer creates a buffer and binds a fresh allocation with props to
// it. The caller owns the result.
func (c *Context) newBuffer(size uint64, usage driver.BufferUsage, props driver.MemoryProperty, op string) (*Buffer, error) {
	buf, err := c.Device.NewBuffer(size, usage)
	if err != nil {
		return nil, fail(ErrInitialization, op+": create buffer", err)
	}
	mem, err := c.allocate(buf.Requirements(), props, op)
	if err != nil {
		buf.Destroy()
		return nil, err
	}
	if err := buf.Bind(mem, 0); err != nil {
		buf.Destroy()
		mem.Destroy()
		return nil, fail(ErrInitialization, op+": bind buffer memory", err)
	}
	return &Buffer{buf: buf, mem: mem, size: size, usage: usage}, nil
}

// hostWrite maps the memory of a host visible buffer and copies data in.
func (b *Buffer) hostWrite(data []byte) error {
	m, err := b.mem.Map()
	if err != nil {
		return err
	}
	copy(m, data)
	b.mem.Unmap()
	return nil
}

// Upload copies data into a new device-local buffer with the given usage
// through a host visible staging buffer. It blocks until the copy has
// completed; the staging buffer is gone when it returns.
//
// The returned buffer is owned by the context.
func (c *Context) Upload(data []byte, usage driver.BufferUsage) (*Buffer, error) {
	const op = "upload"
	if len(data) == 0 {
		return nil, failf(ErrInitialization, op, "no data")
	}
	size := uint64(len(data))

	staging, err := c.newBuffer(size, driver.UsageTransferSrc, driver.MemoryHostVisible|driver.MemoryHostCoherent, op+" staging")
	if err != nil {
		return nil, err
	}
	defer staging.Destroy()
	if err := staging.hostWrite(data); err != nil {
		return nil, fail(ErrSubmission, op+": map staging memory", err)
	}

	dst, err := c.newBuffer(size, usage|driver.UsageTransferDst, driver.MemoryDeviceLocal, op+" destination")
	if err != nil {
		return nil, err
	}
	err = c.oneShotSubmit(ErrSubmission, op, func(cb driver.CmdBuffer) {
		cb.CopyBuffer(staging.buf, dst.buf, size)
	})
	if err != nil {
		dst.Destroy()
		return nil, err
	}
	c.objects.manage(dst)

	c.Log.WithFields(logrus.Fields{"op": op, "size": units.HumanSize(float64(size)), "usage": usage}).Debug("uploaded buffer")
	return dst, nil
}

// Download reads the contents of b back to the host through a staging
// buffer. b must have been created with UsageTransferSrc.
func (c *Context) Download(b *Buffer) ([]byte, error) {
	const op = "download"
	if b.usage&driver.UsageTransferSrc == 0 {
		return nil, failf(ErrSubmission, op, "buffer usage %#x lacks transfer source", uint32(b.usage))
	}
	staging, err := c.newBuffer(b.size, driver.UsageTransferDst, driver.MemoryHostVisible|driver.MemoryHostCoherent, op+" staging")
	if err != nil {
		return nil, err
	}
	defer staging.Destroy()

	err = c.oneShotSubmit(ErrSubmission, op, func(cb driver.CmdBuffer) {
		cb.CopyBuffer(b.buf, staging.buf, b.size)
	})
	if err != nil {
		return nil, err
	}

	m, err := staging.mem.Map()
	if err != nil {
		return nil, fail(ErrSubmission, op+": map staging memory", err)
	}
	out := make([]byte, b.size)
	copy(out, m)
	staging.mem.Unmap()
	return out, nil
}
