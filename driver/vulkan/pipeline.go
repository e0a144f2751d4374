package vulkan

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/celer/vkgrt/driver"
)

type ShaderModule struct {
	device         *Device
	vkShaderModule vk.ShaderModule
}

// NewShaderModule wraps SPIR-V code. len(code) must be a multiple of 4.
func (d *Device) NewShaderModule(code []byte) (driver.ShaderModule, error) {
	if len(code) == 0 || len(code)%4 != 0 {
		return nil, errors.Errorf("vulkan: shader code size %d is not a multiple of 4", len(code))
	}
	var module vk.ShaderModule
	err := vk.Error(vk.CreateShaderModule(d.vkDevice, &vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    sliceUint32(code),
	}, nil, &module))
	if err != nil {
		return nil, errors.Wrap(err, "vulkan: create shader module")
	}
	return &ShaderModule{device: d, vkShaderModule: module}, nil
}

func (s *ShaderModule) stage(stage vk.ShaderStageFlagBits, entryPoint string) vk.PipelineShaderStageCreateInfo {
	return vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  stage,
		Module: s.vkShaderModule,
		PName:  safeString(entryPoint),
	}
}

func (s *ShaderModule) Destroy() {
	vk.DestroyShaderModule(s.device.vkDevice, s.vkShaderModule, nil)
}

type PipelineLayout struct {
	device           *Device
	vkPipelineLayout vk.PipelineLayout
}

// NewPipelineLayout creates a layout with no descriptor sets and no push
// constants.
func (d *Device) NewPipelineLayout() (driver.PipelineLayout, error) {
	createInfo := vk.PipelineLayoutCreateInfo{
		SType: vk.StructureTypePipelineLayoutCreateInfo,
	}
	var layout vk.PipelineLayout
	if err := vk.Error(vk.CreatePipelineLayout(d.vkDevice, &createInfo, nil, &layout)); err != nil {
		return nil, errors.Wrap(err, "vulkan: create pipeline layout")
	}
	return &PipelineLayout{device: d, vkPipelineLayout: layout}, nil
}

func (p *PipelineLayout) Destroy() {
	vk.DestroyPipelineLayout(p.device.vkDevice, p.vkPipelineLayout, nil)
}

type Pipeline struct {
	device     *Device
	vkPipeline vk.Pipeline
}

// NewGraphicsPipeline creates a triangle list pipeline with a fixed
// viewport covering desc.Extent and no depth testing.
func (d *Device) NewGraphicsPipeline(desc *driver.GraphicsPipelineDesc) (driver.Pipeline, error) {
	vs, ok := desc.Vertex.(*ShaderModule)
	if !ok {
		return nil, errors.Wrap(driver.ErrUnknownHandle, "vertex shader")
	}
	fs, ok := desc.Fragment.(*ShaderModule)
	if !ok {
		return nil, errors.Wrap(driver.ErrUnknownHandle, "fragment shader")
	}
	layout, ok := desc.Layout.(*PipelineLayout)
	if !ok {
		return nil, errors.Wrap(driver.ErrUnknownHandle, "pipeline layout")
	}

	extent := vk.Extent2D{Width: uint32(desc.Extent.Width), Height: uint32(desc.Extent.Height)}

	vertexInputState := vk.PipelineVertexInputStateCreateInfo{
		SType: vk.StructureTypePipelineVertexInputStateCreateInfo,
	}
	inputAssemblyState := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vk.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: vk.False,
	}
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		PViewports: []vk.Viewport{{
			Width:    float32(extent.Width),
			Height:   float32(extent.Height),
			MinDepth: 0.0,
			MaxDepth: 1.0,
		}},
		ScissorCount: 1,
		PScissors:    []vk.Rect2D{{Extent: extent}},
	}
	rasterState := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		LineWidth:               1.0,
		CullMode:                vk.CullModeFlags(desc.CullMode),
		FrontFace:               vk.FrontFace(desc.FrontFace),
		DepthBiasEnable:         vk.False,
	}

	samples := vk.SampleCount1Bit
	if desc.Samples > 1 {
		samples = vk.SampleCountFlagBits(desc.Samples)
	}
	multisampleState := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:  vk.False,
		RasterizationSamples: samples,
	}

	blend := vk.PipelineColorBlendAttachmentState{
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit | vk.ColorComponentBBit | vk.ColorComponentABit),
		BlendEnable:    vk.False,
	}
	colorBlendState := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{blend},
	}

	createInfo := vk.GraphicsPipelineCreateInfo{
		SType:      vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount: 2,
		PStages: []vk.PipelineShaderStageCreateInfo{
			vs.stage(vk.ShaderStageVertexBit, desc.VertexEntry),
			fs.stage(vk.ShaderStageFragmentBit, desc.FragmentEntry),
		},
		PVertexInputState:   &vertexInputState,
		PInputAssemblyState: &inputAssemblyState,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterState,
		PMultisampleState:   &multisampleState,
		PColorBlendState:    &colorBlendState,
		Layout:              layout.vkPipelineLayout,
		RenderPass:          vkRenderPass(desc.RenderPass),
		Subpass:             0,
	}

	cache, err := d.pipelineCache()
	if err != nil {
		return nil, err
	}
	pipelines := make([]vk.Pipeline, 1)
	err = vk.Error(vk.CreateGraphicsPipelines(d.vkDevice, cache, 1, []vk.GraphicsPipelineCreateInfo{createInfo}, nil, pipelines))
	vk.DestroyPipelineCache(d.vkDevice, cache, nil)
	if err != nil {
		return nil, errors.Wrap(err, "vulkan: create graphics pipeline")
	}
	return &Pipeline{device: d, vkPipeline: pipelines[0]}, nil
}

func (d *Device) pipelineCache() (vk.PipelineCache, error) {
	createInfo := vk.PipelineCacheCreateInfo{
		SType: vk.StructureTypePipelineCacheCreateInfo,
	}
	var cache vk.PipelineCache
	if err := vk.Error(vk.CreatePipelineCache(d.vkDevice, &createInfo, nil, &cache)); err != nil {
		return cache, errors.Wrap(err, "vulkan: create pipeline cache")
	}
	return cache, nil
}

func (p *Pipeline) Destroy() {
	vk.DestroyPipeline(p.device.vkDevice, p.vkPipeline, nil)
}
