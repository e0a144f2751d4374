package soft

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/celer/vkgrt/driver"
)

type queue struct {
	d *Device
	// inflight holds the command buffers submitted since the last idle
	// wait.
	inflight []*cmdBuffer
}

func (q *queue) Submit(sub *driver.Submission) error {
	d := q.d
	if err := d.fault(OpSubmit); err != nil {
		return err
	}
	cbs := make([]*cmdBuffer, len(sub.Buffers))
	ids := make([]int, len(sub.Buffers))
	for i, b := range sub.Buffers {
		cb, ok := b.(*cmdBuffer)
		if !ok || cb.pool.d != d {
			return errors.Wrap(driver.ErrUnknownHandle, "submit")
		}
		if cb.state != cmdExecutable {
			return errors.Errorf("soft: command buffer %d is not executable", cb.id)
		}
		if cb.pending {
			return errors.Errorf("soft: command buffer %d has an outstanding submission", cb.id)
		}
		cbs[i] = cb
		ids[i] = cb.id
	}
	var fc *fence
	if sub.Fence != nil {
		var ok bool
		if fc, ok = sub.Fence.(*fence); !ok || fc.destroyed {
			return errors.Wrap(driver.ErrUnknownHandle, "submit fence")
		}
		if fc.signaled {
			return errors.New("soft: submit fence is already signaled")
		}
	}
	for _, s := range sub.Wait {
		sem, ok := s.(*semaphore)
		if !ok || sem.destroyed {
			return errors.Wrap(driver.ErrUnknownHandle, "wait semaphore")
		}
		if !sem.signaled {
			return errors.New("soft: wait semaphore will never be signaled")
		}
		sem.signaled = false
	}

	for _, cb := range cbs {
		for _, c := range cb.cmds {
			if err := c.run(); err != nil {
				return errors.Wrapf(err, "command buffer %d: %s", cb.id, c.name)
			}
		}
		cb.pending = true
		if cb.oneTime {
			cb.state = cmdInitial
		}
		q.inflight = append(q.inflight, cb)
	}

	for _, s := range sub.Signal {
		sem, ok := s.(*semaphore)
		if !ok || sem.destroyed {
			return errors.Wrap(driver.ErrUnknownHandle, "signal semaphore")
		}
		sem.signaled = true
	}
	if fc != nil {
		fc.signaled = true
		fc.pending = append(fc.pending, cbs...)
	}
	d.stats.Submits++
	d.record(Event{Op: OpSubmit, Buffers: ids})
	return nil
}

func (q *queue) WaitIdle() error {
	if err := q.d.fault(OpWaitIdle); err != nil {
		return err
	}
	for _, cb := range q.inflight {
		cb.pending = false
	}
	q.inflight = nil
	q.d.stats.WaitIdles++
	q.d.record(Event{Op: OpWaitIdle})
	return nil
}

func (q *queue) Present(sc driver.Swapchain, index int, wait []driver.Semaphore) error {
	d := q.d
	if err := d.fault(OpPresent); err != nil {
		return err
	}
	s, ok := sc.(*swapchain)
	if !ok || s.destroyed {
		return errors.Wrap(driver.ErrUnknownHandle, "present swapchain")
	}
	if index < 0 || index >= len(s.images) || !s.acquired[index] {
		return errors.Errorf("soft: image %d was not acquired", index)
	}
	for _, w := range wait {
		sem, ok := w.(*semaphore)
		if !ok || sem.destroyed {
			return errors.Wrap(driver.ErrUnknownHandle, "present semaphore")
		}
		if !sem.signaled {
			return errors.New("soft: present semaphore will never be signaled")
		}
		sem.signaled = false
	}
	s.acquired[index] = false
	d.stats.Presents++
	d.record(Event{Op: OpPresent, Index: index})
	return nil
}

type commandPool struct {
	*object
	buffers []*cmdBuffer
}

func (d *Device) NewCommandPool() (driver.CommandPool, error) {
	return &commandPool{object: d.newObject("command-pool")}, nil
}

func (p *commandPool) Allocate(n int) ([]driver.CmdBuffer, error) {
	if n <= 0 {
		return nil, errors.Errorf("soft: cannot allocate %d command buffers", n)
	}
	ret := make([]driver.CmdBuffer, n)
	for i := range ret {
		cb := &cmdBuffer{pool: p, id: p.d.id()}
		p.buffers = append(p.buffers, cb)
		ret[i] = cb
	}
	return ret, nil
}

func (p *commandPool) Reset(release bool) error {
	for _, cb := range p.buffers {
		if cb.pending {
			return errors.Errorf("soft: pool reset while command buffer %d is pending", cb.id)
		}
		cb.state = cmdInitial
		cb.cmds = nil
		cb.err = nil
	}
	p.d.stats.PoolResets++
	return nil
}

type cmdState int

const (
	cmdInitial cmdState = iota
	cmdRecording
	cmdExecutable
)

type command struct {
	name string
	run  func() error
}

type cmdBuffer struct {
	pool    *commandPool
	id      int
	state   cmdState
	oneTime bool
	pending bool
	cmds    []command
	err     error
}

// CommandID returns the device unique id of a soft command buffer, as
// used in submit events.
func CommandID(cb driver.CmdBuffer) int {
	if c, ok := cb.(*cmdBuffer); ok {
		return c.id
	}
	return 0
}

// Commands lists the names of the commands recorded in cb.
func Commands(cb driver.CmdBuffer) []string {
	c, ok := cb.(*cmdBuffer)
	if !ok {
		return nil
	}
	ret := make([]string, len(c.cmds))
	for i, cmd := range c.cmds {
		ret[i] = cmd.name
	}
	return ret
}

func (cb *cmdBuffer) Begin(oneTime bool) error {
	if cb.pending {
		return errors.Errorf("soft: begin on pending command buffer %d", cb.id)
	}
	cb.state = cmdRecording
	cb.oneTime = oneTime
	cb.cmds = nil
	cb.err = nil
	return nil
}

func (cb *cmdBuffer) End() error {
	if cb.state != cmdRecording {
		return errors.Errorf("soft: end on command buffer %d that is not recording", cb.id)
	}
	if cb.err != nil {
		return cb.err
	}
	cb.state = cmdExecutable
	return nil
}

func (cb *cmdBuffer) add(name string, run func() error) {
	if cb.state != cmdRecording {
		if cb.err == nil {
			cb.err = errors.Errorf("soft: %s recorded outside begin/end", name)
		}
		return
	}
	cb.cmds = append(cb.cmds, command{name: name, run: run})
}

func (cb *cmdBuffer) CopyBuffer(src, dst driver.Buffer, size uint64) {
	d := cb.pool.d
	cb.add("copy-buffer", func() error {
		s, ok1 := src.(*buffer)
		t, ok2 := dst.(*buffer)
		if !ok1 || !ok2 {
			return driver.ErrUnknownHandle
		}
		if s.usage&driver.UsageTransferSrc == 0 || t.usage&driver.UsageTransferDst == 0 {
			return errors.New("soft: copy without transfer usage")
		}
		sb, err := s.bytes()
		if err != nil {
			return err
		}
		tb, err := t.bytes()
		if err != nil {
			return err
		}
		if size > uint64(len(sb)) || size > uint64(len(tb)) {
			return errors.Errorf("soft: copy of %d bytes out of range", size)
		}
		copy(tb[:size], sb[:size])
		d.stats.Copies++
		return nil
	})
}

func (cb *cmdBuffer) BeginRenderPass(rp driver.RenderPass, fb driver.Framebuffer, extent driver.Extent, clear [4]float32) {
	cb.add("begin-render-pass", func() error {
		if _, ok := rp.(*object); !ok {
			return errors.Wrap(driver.ErrUnknownHandle, "render pass")
		}
		if _, ok := fb.(*object); !ok {
			return errors.Wrap(driver.ErrUnknownHandle, "framebuffer")
		}
		return nil
	})
}

func (cb *cmdBuffer) BindPipeline(p driver.Pipeline) {
	cb.add("bind-pipeline", func() error {
		if _, ok := p.(*pipeline); !ok {
			return errors.Wrap(driver.ErrUnknownHandle, "pipeline")
		}
		return nil
	})
}

func (cb *cmdBuffer) Draw(vertexCount, instanceCount, firstVertex, firstInstance int) {
	d := cb.pool.d
	name := fmt.Sprintf("draw %d %d %d %d", vertexCount, instanceCount, firstVertex, firstInstance)
	cb.add(name, func() error {
		d.stats.Draws++
		return nil
	})
}

func (cb *cmdBuffer) EndRenderPass() {
	cb.add("end-render-pass", func() error { return nil })
}
