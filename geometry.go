package vkgrt

import (
	"encoding/binary"
	"math"
)

// VertexStride is the size of one R32G32B32_SFLOAT position.
const VertexStride = 12

// TriangleVertices and TriangleIndices are the harness geometry.
var (
	TriangleVertices = []float32{
		0, -0.5, 0,
		0.5, 0.5, 0,
		-0.5, 0.5, 0,
	}
	TriangleIndices = []uint32{0, 1, 2}
)

// Float32Bytes encodes v little-endian.
func Float32Bytes(v []float32) []byte {
	b := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(f))
	}
	return b
}

// Uint32Bytes encodes v little-endian.
func Uint32Bytes(v []uint32) []byte {
	b := make([]byte, 4*len(v))
	for i, u := range v {
		binary.LittleEndian.PutUint32(b[i*4:], u)
	}
	return b
}
