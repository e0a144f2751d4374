package vkgrt

import (
	"github.com/sirupsen/logrus"

	"github.com/celer/vkgrt/driver"
)

// ShaderCode holds the SPIR-V of the two raster stages.
type ShaderCode struct {
	Vertex        []byte
	VertexEntry   string
	Fragment      []byte
	FragmentEntry string
}

// ClearColor is the render pass clear value.
var ClearColor = [4]float32{0, 0, 0, 1}

// SwapchainImageCount is the number of presentable images requested.
const SwapchainImageCount = 2

// FramePipeline is everything the frame loop needs, created once. All of
// it is owned by the context; the synchronization objects are created
// last so they are released first.
type FramePipeline struct {
	Swapchain    driver.Swapchain
	Format       driver.SurfaceFormat
	PresentMode  driver.PresentMode
	Extent       driver.Extent
	Views        []driver.ImageView
	RenderPass   driver.RenderPass
	Framebuffers []driver.Framebuffer
	Layout       driver.PipelineLayout
	Pipeline     driver.Pipeline
	Pool         driver.CommandPool
	// Commands[i] draws into swapchain image i.
	Commands []driver.CmdBuffer

	ImageAvailable driver.Semaphore
	RenderFinished driver.Semaphore
	Done           driver.Fence
}

// ChooseSurfaceFormat prefers B8G8R8A8_UNORM with the sRGB non-linear
// color space and falls back to the first reported format.
func ChooseSurfaceFormat(formats []driver.SurfaceFormat) (driver.SurfaceFormat, error) {
	want := driver.SurfaceFormat{Format: driver.FormatB8G8R8A8Unorm, ColorSpace: driver.ColorSpaceSrgbNonlinear}
	if len(formats) == 0 {
		return driver.SurfaceFormat{}, failf(ErrInitialization, "choose surface format", "surface reports no formats")
	}
	if len(formats) == 1 && formats[0].Format == driver.FormatUndefined {
		return want, nil
	}
	for _, f := range formats {
		if f == want {
			return f, nil
		}
	}
	return formats[0], nil
}

// swapchainImageCount clamps SwapchainImageCount to the surface limits.
func swapchainImageCount(caps driver.SurfaceCapabilities) int {
	n := SwapchainImageCount
	if n < caps.MinImageCount {
		n = caps.MinImageCount
	}
	if caps.MaxImageCount > 0 && n > caps.MaxImageCount {
		n = caps.MaxImageCount
	}
	return n
}

// NewFramePipeline creates the swapchain, per image views and
// framebuffers, the render pass and raster pipeline, and pre-records one
// command buffer per image.
func (c *Context) NewFramePipeline(s driver.Surface, code *ShaderCode) (*FramePipeline, error) {
	caps, err := c.Adapter.SurfaceCapabilities(s)
	if err != nil {
		return nil, fail(ErrInitialization, "query surface capabilities", err)
	}
	format, err := ChooseSurfaceFormat(caps.Formats)
	if err != nil {
		return nil, err
	}
	p := &FramePipeline{
		Format: format,
		// FIFO is the only mode every implementation supports and it
		// waits for vertical blank.
		PresentMode: driver.PresentFifo,
		Extent:      driver.Extent{Width: WindowWidth, Height: WindowHeight},
	}

	p.Swapchain, err = c.Device.NewSwapchain(s, &driver.SwapchainConfig{
		Format:      format,
		PresentMode: p.PresentMode,
		ImageCount:  swapchainImageCount(caps),
		Extent:      p.Extent,
	})
	if err != nil {
		return nil, fail(ErrInitialization, "create swapchain", err)
	}
	c.objects.manage(p.Swapchain)
	// The surface may dictate its own size.
	p.Extent = p.Swapchain.Extent()
	images := p.Swapchain.Images()

	for _, img := range images {
		v, err := c.Device.NewImageView(img, format.Format)
		if err != nil {
			return nil, fail(ErrInitialization, "create image view", err)
		}
		c.objects.manage(v)
		p.Views = append(p.Views, v)
	}

	if p.RenderPass, err = c.Device.NewRenderPass(format.Format); err != nil {
		return nil, fail(ErrInitialization, "create render pass", err)
	}
	c.objects.manage(p.RenderPass)

	for _, v := range p.Views {
		fb, err := c.Device.NewFramebuffer(p.RenderPass, v, p.Extent)
		if err != nil {
			return nil, fail(ErrInitialization, "create framebuffer", err)
		}
		c.objects.manage(fb)
		p.Framebuffers = append(p.Framebuffers, fb)
	}

	if err := c.newRasterPipeline(p, code); err != nil {
		return nil, err
	}

	if p.Pool, err = c.Device.NewCommandPool(); err != nil {
		return nil, fail(ErrInitialization, "create frame command pool", err)
	}
	c.objects.manage(p.Pool)
	if p.Commands, err = p.Pool.Allocate(len(images)); err != nil {
		return nil, fail(ErrInitialization, "allocate frame command buffers", err)
	}
	for i, cb := range p.Commands {
		if err := p.record(cb, i); err != nil {
			return nil, fail(ErrInitialization, "record frame command buffer", err)
		}
	}

	if p.ImageAvailable, err = c.Device.NewSemaphore(); err != nil {
		return nil, fail(ErrInitialization, "create semaphore", err)
	}
	c.objects.manage(p.ImageAvailable)
	if p.RenderFinished, err = c.Device.NewSemaphore(); err != nil {
		return nil, fail(ErrInitialization, "create semaphore", err)
	}
	c.objects.manage(p.RenderFinished)
	if p.Done, err = c.Device.NewFence(false); err != nil {
		return nil, fail(ErrInitialization, "create fence", err)
	}
	c.objects.manage(p.Done)

	c.Log.WithFields(logrus.Fields{
		"images": len(images),
		"format": format.Format,
		"width":  p.Extent.Width,
		"height": p.Extent.Height,
	}).Info("frame pipeline ready")
	return p, nil
}

func (c *Context) newRasterPipeline(p *FramePipeline, code *ShaderCode) error {
	vs, err := c.Device.NewShaderModule(code.Vertex)
	if err != nil {
		return fail(ErrInitialization, "create vertex shader module", err)
	}
	c.objects.manage(vs)
	fs, err := c.Device.NewShaderModule(code.Fragment)
	if err != nil {
		return fail(ErrInitialization, "create fragment shader module", err)
	}
	c.objects.manage(fs)

	if p.Layout, err = c.Device.NewPipelineLayout(); err != nil {
		return fail(ErrInitialization, "create pipeline layout", err)
	}
	c.objects.manage(p.Layout)

	p.Pipeline, err = c.Device.NewGraphicsPipeline(&driver.GraphicsPipelineDesc{
		Vertex:        vs,
		VertexEntry:   code.VertexEntry,
		Fragment:      fs,
		FragmentEntry: code.FragmentEntry,
		Layout:        p.Layout,
		RenderPass:    p.RenderPass,
		Extent:        p.Extent,
		CullMode:      driver.CullBack,
		FrontFace:     driver.FrontClockwise,
		Samples:       1,
	})
	if err != nil {
		return fail(ErrInitialization, "create graphics pipeline", err)
	}
	c.objects.manage(p.Pipeline)
	return nil
}

func (p *FramePipeline) record(cb driver.CmdBuffer, image int) error {
	if err := cb.Begin(false); err != nil {
		return err
	}
	cb.BeginRenderPass(p.RenderPass, p.Framebuffers[image], p.Extent, ClearColor)
	cb.BindPipeline(p.Pipeline)
	cb.Draw(3, 1, 0, 0)
	cb.EndRenderPass()
	return cb.End()
}
