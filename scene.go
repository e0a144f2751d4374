package vkgrt

import (
	lin "github.com/xlab/linmath"

	"github.com/celer/vkgrt/driver"
)

// Scene is the single triangle scene of the harness.
type Scene struct {
	Vertices *Buffer
	Indices  *Buffer
	Bottom   *AccelStruct
	Top      *AccelStruct
}

// BuildTriangleScene uploads the harness triangle, builds a bottom-level
// structure over it and a top-level structure with one instance of it
// placed by placement.
func (c *Context) BuildTriangleScene(placement *lin.Mat4x4) (*Scene, error) {
	vertices, err := c.Upload(Float32Bytes(TriangleVertices), driver.UsageVertex|driver.UsageRayTracing)
	if err != nil {
		return nil, err
	}
	indices, err := c.Upload(Uint32Bytes(TriangleIndices), driver.UsageIndex|driver.UsageRayTracing)
	if err != nil {
		return nil, err
	}
	bottom, err := c.BuildBottomLevel(vertices, len(TriangleVertices)/3, VertexStride, indices, len(TriangleIndices))
	if err != nil {
		return nil, err
	}

	rec := NewInstanceRecord(bottom.ID)
	if placement != nil {
		rec.Transform = TransformFromMat4x4(placement)
	}
	top, err := c.BuildScene([]InstanceRecord{rec})
	if err != nil {
		return nil, err
	}
	return &Scene{Vertices: vertices, Indices: indices, Bottom: bottom, Top: top}, nil
}
