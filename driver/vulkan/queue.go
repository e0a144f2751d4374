package vulkan

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/celer/vkgrt/driver"
)

type Queue struct {
	device  *Device
	vkQueue vk.Queue
}

func (q *Queue) WaitIdle() error {
	return vk.Error(vk.QueueWaitIdle(q.vkQueue))
}

func (q *Queue) Submit(sub *driver.Submission) error {
	buffers := make([]vk.CommandBuffer, len(sub.Buffers))
	for i, b := range sub.Buffers {
		cb, ok := b.(*CmdBuffer)
		if !ok {
			return errors.Wrap(driver.ErrUnknownHandle, "submit command buffer")
		}
		buffers[i] = cb.vkCommandBuffer
	}
	wait, err := vkSemaphores(sub.Wait)
	if err != nil {
		return err
	}
	signal, err := vkSemaphores(sub.Signal)
	if err != nil {
		return err
	}
	stages := make([]vk.PipelineStageFlags, len(sub.WaitStages))
	for i, s := range sub.WaitStages {
		stages[i] = vk.PipelineStageFlags(s)
	}

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   uint32(len(wait)),
		PWaitSemaphores:      wait,
		PWaitDstStageMask:    stages,
		CommandBufferCount:   uint32(len(buffers)),
		PCommandBuffers:      buffers,
		SignalSemaphoreCount: uint32(len(signal)),
		PSignalSemaphores:    signal,
	}

	fence := vk.NullFence
	if sub.Fence != nil {
		f, ok := sub.Fence.(*Fence)
		if !ok {
			return errors.Wrap(driver.ErrUnknownHandle, "submit fence")
		}
		fence = f.vkFence
	}
	return vk.Error(vk.QueueSubmit(q.vkQueue, 1, []vk.SubmitInfo{submitInfo}, fence))
}

// Present queues image index of sc for presentation. A suboptimal
// swapchain is not an error.
func (q *Queue) Present(sc driver.Swapchain, index int, wait []driver.Semaphore) error {
	s, ok := sc.(*Swapchain)
	if !ok {
		return errors.Wrap(driver.ErrUnknownHandle, "present swapchain")
	}
	semas, err := vkSemaphores(wait)
	if err != nil {
		return err
	}
	res := vk.QueuePresent(q.vkQueue, &vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: uint32(len(semas)),
		PWaitSemaphores:    semas,
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{s.vkSwapchain},
		PImageIndices:      []uint32{uint32(index)},
	})
	if res == vk.Suboptimal {
		return nil
	}
	return vk.Error(res)
}

type CommandPool struct {
	device        *Device
	vkCommandPool vk.CommandPool
}

func (d *Device) NewCommandPool() (driver.CommandPool, error) {
	createInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit | vk.CommandPoolCreateTransientBit),
		QueueFamilyIndex: uint32(d.family),
	}
	var pool vk.CommandPool
	if err := vk.Error(vk.CreateCommandPool(d.vkDevice, &createInfo, nil, &pool)); err != nil {
		return nil, errors.Wrap(err, "vulkan: create command pool")
	}
	return &CommandPool{device: d, vkCommandPool: pool}, nil
}

func (c *CommandPool) Allocate(n int) ([]driver.CmdBuffer, error) {
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        c.vkCommandPool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: uint32(n),
	}
	cmdBuffers := make([]vk.CommandBuffer, n)
	if err := vk.Error(vk.AllocateCommandBuffers(c.device.vkDevice, &allocateInfo, cmdBuffers)); err != nil {
		return nil, errors.Wrap(err, "vulkan: allocate command buffers")
	}
	ret := make([]driver.CmdBuffer, n)
	for i := range ret {
		ret[i] = &CmdBuffer{device: c.device, vkCommandBuffer: cmdBuffers[i]}
	}
	return ret, nil
}

func (c *CommandPool) Reset(release bool) error {
	var flags vk.CommandPoolResetFlags
	if release {
		flags = vk.CommandPoolResetFlags(vk.CommandPoolResetReleaseResourcesBit)
	}
	return vk.Error(vk.ResetCommandPool(c.device.vkDevice, c.vkCommandPool, flags))
}

// Destroy frees the pool and every buffer allocated from it.
func (c *CommandPool) Destroy() {
	vk.DestroyCommandPool(c.device.vkDevice, c.vkCommandPool, nil)
}

// CmdBuffer describes a sequence of commands executed once submitted to
// the queue.
type CmdBuffer struct {
	device          *Device
	vkCommandBuffer vk.CommandBuffer
}

// VK returns the native command buffer.
func (c *CmdBuffer) VK() vk.CommandBuffer { return c.vkCommandBuffer }

// Begin capturing work. A one time buffer is submitted once and then
// reset.
func (c *CmdBuffer) Begin(oneTime bool) error {
	beginInfo := vk.CommandBufferBeginInfo{SType: vk.StructureTypeCommandBufferBeginInfo}
	if oneTime {
		beginInfo.Flags = vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	return vk.Error(vk.BeginCommandBuffer(c.vkCommandBuffer, &beginInfo))
}

func (c *CmdBuffer) End() error {
	return vk.Error(vk.EndCommandBuffer(c.vkCommandBuffer))
}

func (c *CmdBuffer) CopyBuffer(src, dst driver.Buffer, size uint64) {
	vk.CmdCopyBuffer(c.vkCommandBuffer, vkBuffer(src), vkBuffer(dst), 1, []vk.BufferCopy{{
		SrcOffset: 0,
		DstOffset: 0,
		Size:      vk.DeviceSize(size),
	}})
}

func (c *CmdBuffer) BeginRenderPass(rp driver.RenderPass, fb driver.Framebuffer, extent driver.Extent, clear [4]float32) {
	var clearValue vk.ClearValue
	clearValue.SetColor(clear[:])
	vk.CmdBeginRenderPass(c.vkCommandBuffer, &vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  vkRenderPass(rp),
		Framebuffer: vkFramebuffer(fb),
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: vk.Extent2D{Width: uint32(extent.Width), Height: uint32(extent.Height)},
		},
		ClearValueCount: 1,
		PClearValues:    []vk.ClearValue{clearValue},
	}, vk.SubpassContentsInline)
}

func (c *CmdBuffer) BindPipeline(p driver.Pipeline) {
	if gp, ok := p.(*Pipeline); ok {
		vk.CmdBindPipeline(c.vkCommandBuffer, vk.PipelineBindPointGraphics, gp.vkPipeline)
	}
}

func (c *CmdBuffer) Draw(vertexCount, instanceCount, firstVertex, firstInstance int) {
	vk.CmdDraw(c.vkCommandBuffer, uint32(vertexCount), uint32(instanceCount), uint32(firstVertex), uint32(firstInstance))
}

func (c *CmdBuffer) EndRenderPass() {
	vk.CmdEndRenderPass(c.vkCommandBuffer)
}
