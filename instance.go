package vkgrt

import (
	"encoding/binary"
	"math"

	lin "github.com/xlab/linmath"
)

// InstanceRecordSize is the encoded size of an InstanceRecord.
const InstanceRecordSize = 64

// Instance flags, as in VkGeometryInstanceFlagBitsNV.
const (
	InstanceTriangleCullDisable       uint8 = 0x1
	InstanceTriangleFrontCounterClock uint8 = 0x2
	InstanceForceOpaque               uint8 = 0x4
	InstanceForceNoOpaque             uint8 = 0x8
)

const max24 = 1<<24 - 1

// InstanceRecord places one bottom-level structure in a top-level
// structure.
//
// Encoded layout, little-endian, 64 bytes:
//
//	offset  size  field
//	 0      48    Transform, 12 float32, row-major 3x4 (Transform[r*4+c])
//	48       4    CustomIndex (bits 0-23) | Mask << 24
//	52       4    InstanceOffset (bits 0-23) | Flags << 24
//	56       8    AccelStructID
type InstanceRecord struct {
	Transform      [12]float32
	CustomIndex    uint32
	Mask           uint8
	InstanceOffset uint32
	Flags          uint8
	AccelStructID  uint64
}

// NewInstanceRecord returns a record for id with the identity transform
// and a full visibility mask.
func NewInstanceRecord(id uint64) InstanceRecord {
	return InstanceRecord{
		Transform:     IdentityTransform(),
		Mask:          0xff,
		AccelStructID: id,
	}
}

// IdentityTransform returns the row-major 3x4 identity.
func IdentityTransform() [12]float32 {
	return [12]float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
	}
}

// TransformFromMat4x4 converts a column-major linmath matrix to the
// row-major 3x4 used by instance records. The last row of m is dropped.
func TransformFromMat4x4(m *lin.Mat4x4) [12]float32 {
	var t [12]float32
	for r := 0; r < 3; r++ {
		for c := 0; c < 4; c++ {
			t[r*4+c] = m[c][r]
		}
	}
	return t
}

// Validate checks that the packed fields fit in 24 bits.
func (r *InstanceRecord) Validate() error {
	if r.CustomIndex > max24 {
		return failf(ErrBuild, "encode instance", "custom index %d does not fit 24 bits", r.CustomIndex)
	}
	if r.InstanceOffset > max24 {
		return failf(ErrBuild, "encode instance", "instance offset %d does not fit 24 bits", r.InstanceOffset)
	}
	return nil
}

// AppendBinary appends the encoded record to b.
func (r *InstanceRecord) AppendBinary(b []byte) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return b, err
	}
	var buf [InstanceRecordSize]byte
	for i, f := range r.Transform {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	binary.LittleEndian.PutUint32(buf[48:], r.CustomIndex|uint32(r.Mask)<<24)
	binary.LittleEndian.PutUint32(buf[52:], r.InstanceOffset|uint32(r.Flags)<<24)
	binary.LittleEndian.PutUint64(buf[56:], r.AccelStructID)
	return append(b, buf[:]...), nil
}

func (r *InstanceRecord) MarshalBinary() ([]byte, error) {
	return r.AppendBinary(make([]byte, 0, InstanceRecordSize))
}

func (r *InstanceRecord) UnmarshalBinary(data []byte) error {
	if len(data) != InstanceRecordSize {
		return failf(ErrBuild, "decode instance", "%d bytes, want %d", len(data), InstanceRecordSize)
	}
	for i := range r.Transform {
		r.Transform[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	w := binary.LittleEndian.Uint32(data[48:])
	r.CustomIndex = w & max24
	r.Mask = uint8(w >> 24)
	w = binary.LittleEndian.Uint32(data[52:])
	r.InstanceOffset = w & max24
	r.Flags = uint8(w >> 24)
	r.AccelStructID = binary.LittleEndian.Uint64(data[56:])
	return nil
}

// EncodeInstanceRecords packs records back to back.
func EncodeInstanceRecords(records []InstanceRecord) ([]byte, error) {
	b := make([]byte, 0, len(records)*InstanceRecordSize)
	var err error
	for i := range records {
		if b, err = records[i].AppendBinary(b); err != nil {
			return nil, err
		}
	}
	return b, nil
}
