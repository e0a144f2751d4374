package soft

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/celer/vkgrt/driver"
)

// spirvMagic is the first word of every SPIR-V module.
const spirvMagic = 0x07230203

type image struct {
	sc    *swapchain
	index int
}

type swapchain struct {
	*object
	cfg      driver.SwapchainConfig
	images   []driver.Image
	acquired []bool
	next     int
}

func (d *Device) NewSwapchain(s driver.Surface, cfg *driver.SwapchainConfig) (driver.Swapchain, error) {
	if sf, ok := s.(*surface); !ok || sf.destroyed {
		return nil, errors.Wrap(driver.ErrUnknownHandle, "swapchain surface")
	}
	caps := d.adapter.cfg.Surface
	if cfg.ImageCount < caps.MinImageCount || (caps.MaxImageCount > 0 && cfg.ImageCount > caps.MaxImageCount) {
		return nil, errors.Errorf("soft: %d swapchain images out of range", cfg.ImageCount)
	}
	sc := &swapchain{object: d.newObject("swapchain"), cfg: *cfg}
	for i := 0; i < cfg.ImageCount; i++ {
		sc.images = append(sc.images, &image{sc: sc, index: i})
	}
	sc.acquired = make([]bool, cfg.ImageCount)
	return sc, nil
}

func (s *swapchain) Format() driver.Format { return s.cfg.Format.Format }

func (s *swapchain) Extent() driver.Extent { return s.cfg.Extent }

func (s *swapchain) Images() []driver.Image { return s.images }

// Acquire hands out images in round-robin order.
func (s *swapchain) Acquire(signal driver.Semaphore) (int, error) {
	d := s.d
	if err := d.fault(OpAcquire); err != nil {
		return 0, err
	}
	sem, ok := signal.(*semaphore)
	if !ok || sem.destroyed {
		return 0, errors.Wrap(driver.ErrUnknownHandle, "acquire semaphore")
	}
	if sem.signaled {
		return 0, errors.New("soft: acquire semaphore is already signaled")
	}
	n := len(s.images)
	for k := 0; k < n; k++ {
		i := (s.next + k) % n
		if s.acquired[i] {
			continue
		}
		s.acquired[i] = true
		s.next = (i + 1) % n
		sem.signaled = true
		d.stats.Acquires++
		d.record(Event{Op: OpAcquire, Index: i})
		return i, nil
	}
	return 0, errors.New("soft: every swapchain image is acquired")
}

func (d *Device) NewImageView(img driver.Image, format driver.Format) (driver.ImageView, error) {
	if _, ok := img.(*image); !ok {
		return nil, errors.Wrap(driver.ErrUnknownHandle, "image view image")
	}
	return d.newObject("image-view"), nil
}

func (d *Device) NewRenderPass(format driver.Format) (driver.RenderPass, error) {
	if format == driver.FormatUndefined {
		return nil, errors.New("soft: render pass with undefined format")
	}
	return d.newObject("render-pass"), nil
}

func (d *Device) NewFramebuffer(rp driver.RenderPass, view driver.ImageView, extent driver.Extent) (driver.Framebuffer, error) {
	if o, ok := rp.(*object); !ok || o.kind != "render-pass" {
		return nil, errors.Wrap(driver.ErrUnknownHandle, "framebuffer render pass")
	}
	if o, ok := view.(*object); !ok || o.kind != "image-view" {
		return nil, errors.Wrap(driver.ErrUnknownHandle, "framebuffer attachment")
	}
	return d.newObject("framebuffer"), nil
}

// NewShaderModule accepts SPIR-V only.
func (d *Device) NewShaderModule(code []byte) (driver.ShaderModule, error) {
	if len(code) < 20 || len(code)%4 != 0 {
		return nil, errors.Errorf("soft: %d bytes is not a SPIR-V module", len(code))
	}
	if binary.LittleEndian.Uint32(code) != spirvMagic {
		return nil, errors.New("soft: bad SPIR-V magic")
	}
	return d.newObject("shader-module"), nil
}

func (d *Device) NewPipelineLayout() (driver.PipelineLayout, error) {
	return d.newObject("pipeline-layout"), nil
}

type pipeline struct {
	*object
	desc driver.GraphicsPipelineDesc
}

func (d *Device) NewGraphicsPipeline(desc *driver.GraphicsPipelineDesc) (driver.Pipeline, error) {
	if desc.Vertex == nil || desc.Fragment == nil || desc.Layout == nil || desc.RenderPass == nil {
		return nil, errors.New("soft: incomplete graphics pipeline")
	}
	if desc.VertexEntry == "" || desc.FragmentEntry == "" {
		return nil, errors.New("soft: missing shader entry point")
	}
	return &pipeline{object: d.newObject("pipeline"), desc: *desc}, nil
}
