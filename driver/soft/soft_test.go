package soft

import (
	"testing"

	"github.com/pkg/errors"

	"github.com/celer/vkgrt/driver"
)

func openDefault(t *testing.T) (*Device, driver.Surface) {
	t.Helper()
	inst := NewDefault()
	adapters, err := inst.Adapters()
	if err != nil {
		t.Fatal(err)
	}
	dev, err := adapters[0].Open(0, []string{"VK_NV_ray_tracing"})
	if err != nil {
		t.Fatal(err)
	}
	s, _ := inst.NewSurface(nil)
	return dev.(*Device), s
}

func TestOpenMissingExtension(t *testing.T) {
	adapters, _ := NewDefault().Adapters()
	if _, err := adapters[0].Open(0, []string{"VK_KHR_ray_query"}); !errors.Is(err, driver.ErrMissingExtension) {
		t.Errorf("got %v, want ErrMissingExtension", err)
	}
	if _, err := New().Adapters(); !errors.Is(err, driver.ErrNoDevice) {
		t.Errorf("got %v, want ErrNoDevice", err)
	}
}

func TestMemory(t *testing.T) {
	d, _ := openDefault(t)
	m, err := d.Allocate(1000, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Map(); err == nil {
		t.Error("mapped device-local memory")
	}
	if d.HeapUsed(0) != 1000 {
		t.Errorf("heap 0 used %d", d.HeapUsed(0))
	}
	m.Destroy()
	m.Destroy()
	if d.HeapUsed(0) != 0 {
		t.Errorf("heap 0 used %d after free", d.HeapUsed(0))
	}
	if _, err := d.Allocate(65*MiB, 1); !errors.Is(err, driver.ErrNoDeviceMemory) {
		t.Errorf("got %v, want ErrNoDeviceMemory", err)
	}
	if len(d.Live()) != 0 {
		t.Errorf("live %v", d.Live())
	}
}

func TestFenceMisuse(t *testing.T) {
	d, _ := openDefault(t)
	f, _ := d.NewFence(false)
	if err := d.WaitFence(f); !errors.Is(err, driver.ErrFenceUnsignaled) {
		t.Errorf("wait on unsignaled fence: got %v", err)
	}

	pool, _ := d.NewCommandPool()
	cbs, _ := pool.Allocate(1)
	cb := cbs[0]
	if err := cb.Begin(false); err != nil {
		t.Fatal(err)
	}
	if err := cb.End(); err != nil {
		t.Fatal(err)
	}
	q := d.Queue()
	if err := q.Submit(&driver.Submission{Buffers: cbs, Fence: f}); err != nil {
		t.Fatal(err)
	}
	if err := q.Submit(&driver.Submission{Buffers: cbs}); err == nil {
		t.Error("resubmitted a pending command buffer")
	}
	if err := pool.Reset(false); err == nil {
		t.Error("reset a pool with pending work")
	}
	other, _ := d.NewFence(true)
	if err := q.Submit(&driver.Submission{Buffers: nil, Fence: other}); err == nil {
		t.Error("submitted with a signaled fence")
	}
	if err := d.WaitFence(f); err != nil {
		t.Fatal(err)
	}
	if !Signaled(f) {
		t.Error("fence not signaled")
	}
	if err := q.Submit(&driver.Submission{Buffers: cbs}); err != nil {
		t.Errorf("resubmit after wait: %v", err)
	}
}

func TestSemaphoreMisuse(t *testing.T) {
	d, s := openDefault(t)
	sc, err := d.NewSwapchain(s, &driver.SwapchainConfig{ImageCount: 2, Extent: driver.Extent{Width: 64, Height: 64}})
	if err != nil {
		t.Fatal(err)
	}
	sem, _ := d.NewSemaphore()
	done, _ := d.NewSemaphore()
	idx, err := sc.Acquire(sem)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sc.Acquire(sem); err == nil {
		t.Error("acquired with a signaled semaphore")
	}
	q := d.Queue()
	if err := q.Present(sc, idx, []driver.Semaphore{done}); err == nil {
		t.Error("presented waiting on a semaphore nobody signals")
	}
	if err := q.Submit(&driver.Submission{Wait: []driver.Semaphore{sem}, Signal: []driver.Semaphore{done}}); err != nil {
		t.Fatal(err)
	}
	if err := q.Present(sc, idx, []driver.Semaphore{done}); err != nil {
		t.Fatal(err)
	}
	if err := q.Present(sc, idx, nil); err == nil {
		t.Error("presented an image twice")
	}
}

func TestShaderModule(t *testing.T) {
	d, _ := openDefault(t)
	for _, code := range [][]byte{nil, make([]byte, 20), make([]byte, 21)} {
		if _, err := d.NewShaderModule(code); err == nil {
			t.Errorf("accepted %d bytes without magic", len(code))
		}
	}
	code := make([]byte, 20)
	code[0], code[1], code[2], code[3] = 0x03, 0x02, 0x23, 0x07
	if _, err := d.NewShaderModule(code); err != nil {
		t.Error(err)
	}
}
