package vulkan

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/celer/vkgrt/driver"
)

type Swapchain struct {
	device      *Device
	vkSwapchain vk.Swapchain
	format      driver.Format
	extent      driver.Extent
	images      []driver.Image
}

// NewSwapchain creates a swapchain for s. The surface's current extent
// wins over cfg.Extent unless the surface leaves it to the application.
func (d *Device) NewSwapchain(s driver.Surface, cfg *driver.SwapchainConfig) (driver.Swapchain, error) {
	surf, err := vkSurface(s)
	if err != nil {
		return nil, err
	}

	var caps vk.SurfaceCapabilities
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceCapabilities(d.adapter.vkPD, surf, &caps)); err != nil {
		return nil, errors.Wrap(err, "vulkan: surface capabilities")
	}
	caps.Deref()
	caps.CurrentExtent.Deref()

	size := vk.Extent2D{Width: uint32(cfg.Extent.Width), Height: uint32(cfg.Extent.Height)}
	if caps.CurrentExtent.Width != vk.MaxUint32 {
		size = caps.CurrentExtent
	}

	createInfo := &vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          surf,
		MinImageCount:    uint32(cfg.ImageCount),
		ImageFormat:      vk.Format(cfg.Format.Format),
		ImageColorSpace:  vk.ColorSpace(cfg.Format.ColorSpace),
		ImageExtent:      size,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      vk.PresentMode(cfg.PresentMode),
		Clipped:          vk.True,
		OldSwapchain:     vk.NullSwapchain,
	}

	var swapchain vk.Swapchain
	if err := vk.Error(vk.CreateSwapchain(d.vkDevice, createInfo, nil, &swapchain)); err != nil {
		return nil, errors.Wrap(err, "vulkan: create swapchain")
	}
	ret := &Swapchain{
		device:      d,
		vkSwapchain: swapchain,
		format:      cfg.Format.Format,
		extent:      extentOf(size),
	}

	var n uint32
	if err := vk.Error(vk.GetSwapchainImages(d.vkDevice, swapchain, &n, nil)); err != nil {
		ret.Destroy()
		return nil, errors.Wrap(err, "vulkan: swapchain images")
	}
	images := make([]vk.Image, n)
	if err := vk.Error(vk.GetSwapchainImages(d.vkDevice, swapchain, &n, images)); err != nil {
		ret.Destroy()
		return nil, errors.Wrap(err, "vulkan: swapchain images")
	}
	for _, img := range images {
		ret.images = append(ret.images, img)
	}
	return ret, nil
}

func (s *Swapchain) Format() driver.Format { return s.format }

func (s *Swapchain) Extent() driver.Extent { return s.extent }

// Images returns the swapchain images as vk.Image values.
func (s *Swapchain) Images() []driver.Image { return s.images }

func (s *Swapchain) Acquire(signal driver.Semaphore) (int, error) {
	sema, ok := signal.(*Semaphore)
	if !ok {
		return 0, errors.Wrap(driver.ErrUnknownHandle, "acquire semaphore")
	}
	var index uint32
	res := vk.AcquireNextImage(s.device.vkDevice, s.vkSwapchain, vk.MaxUint64, sema.vkSemaphore, vk.NullFence, &index)
	if res != vk.Success && res != vk.Suboptimal {
		return 0, vk.Error(res)
	}
	return int(index), nil
}

func (s *Swapchain) Destroy() {
	vk.DestroySwapchain(s.device.vkDevice, s.vkSwapchain, nil)
}

type ImageView struct {
	device      *Device
	vkImageView vk.ImageView
}

func (d *Device) NewImageView(img driver.Image, format driver.Format) (driver.ImageView, error) {
	vkImage, ok := img.(vk.Image)
	if !ok {
		return nil, errors.Wrap(driver.ErrUnknownHandle, "image view image")
	}
	createInfo := &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    vkImage,
		ViewType: vk.ImageViewType2d,
		Format:   vk.Format(format),
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleR,
			G: vk.ComponentSwizzleG,
			B: vk.ComponentSwizzleB,
			A: vk.ComponentSwizzleA,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: 1,
		},
	}
	var view vk.ImageView
	if err := vk.Error(vk.CreateImageView(d.vkDevice, createInfo, nil, &view)); err != nil {
		return nil, errors.Wrap(err, "vulkan: create image view")
	}
	return &ImageView{device: d, vkImageView: view}, nil
}

func (i *ImageView) Destroy() {
	vk.DestroyImageView(i.device.vkDevice, i.vkImageView, nil)
}

type RenderPass struct {
	device       *Device
	vkRenderPass vk.RenderPass
}

// NewRenderPass creates a single subpass render pass with one color
// attachment that is cleared on load and left ready for presentation.
func (d *Device) NewRenderPass(format driver.Format) (driver.RenderPass, error) {
	attachments := []vk.AttachmentDescription{{
		Format:         vk.Format(format),
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutPresentSrc,
	}}

	subpasses := []vk.SubpassDescription{{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments: []vk.AttachmentReference{{
			Attachment: 0,
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		}},
	}}

	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit),
	}

	createInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: 1,
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      subpasses,
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}
	var rp vk.RenderPass
	if err := vk.Error(vk.CreateRenderPass(d.vkDevice, &createInfo, nil, &rp)); err != nil {
		return nil, errors.Wrap(err, "vulkan: create render pass")
	}
	return &RenderPass{device: d, vkRenderPass: rp}, nil
}

func (r *RenderPass) Destroy() {
	vk.DestroyRenderPass(r.device.vkDevice, r.vkRenderPass, nil)
}

func vkRenderPass(rp driver.RenderPass) vk.RenderPass {
	if r, ok := rp.(*RenderPass); ok {
		return r.vkRenderPass
	}
	return vk.NullRenderPass
}

type Framebuffer struct {
	device        *Device
	vkFramebuffer vk.Framebuffer
}

func (d *Device) NewFramebuffer(rp driver.RenderPass, view driver.ImageView, extent driver.Extent) (driver.Framebuffer, error) {
	iv, ok := view.(*ImageView)
	if !ok {
		return nil, errors.Wrap(driver.ErrUnknownHandle, "framebuffer image view")
	}
	createInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      vkRenderPass(rp),
		Layers:          1,
		AttachmentCount: 1,
		PAttachments:    []vk.ImageView{iv.vkImageView},
		Width:           uint32(extent.Width),
		Height:          uint32(extent.Height),
	}
	var fb vk.Framebuffer
	if err := vk.Error(vk.CreateFramebuffer(d.vkDevice, &createInfo, nil, &fb)); err != nil {
		return nil, errors.Wrap(err, "vulkan: create framebuffer")
	}
	return &Framebuffer{device: d, vkFramebuffer: fb}, nil
}

func (f *Framebuffer) Destroy() {
	vk.DestroyFramebuffer(f.device.vkDevice, f.vkFramebuffer, nil)
}

func vkFramebuffer(fb driver.Framebuffer) vk.Framebuffer {
	if f, ok := fb.(*Framebuffer); ok {
		return f.vkFramebuffer
	}
	return vk.NullFramebuffer
}
