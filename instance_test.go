package vkgrt

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/pkg/errors"
	lin "github.com/xlab/linmath"
)

func TestInstanceRecordLayout(t *testing.T) {
	rec := InstanceRecord{
		CustomIndex:    0x123456,
		Mask:           0xab,
		InstanceOffset: 0x654321,
		Flags:          InstanceForceOpaque,
		AccelStructID:  0x1122334455667788,
	}
	for i := range rec.Transform {
		rec.Transform[i] = float32(i + 1)
	}
	data, err := rec.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != InstanceRecordSize {
		t.Fatalf("encoded %d bytes, want %d", len(data), InstanceRecordSize)
	}
	for i := 0; i < 12; i++ {
		if f := math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:])); f != float32(i+1) {
			t.Errorf("transform[%d] = %v", i, f)
		}
	}
	if w := binary.LittleEndian.Uint32(data[48:]); w != 0xab123456 {
		t.Errorf("custom index word = %#x", w)
	}
	if w := binary.LittleEndian.Uint32(data[52:]); w != 0x04654321 {
		t.Errorf("instance offset word = %#x", w)
	}
	want := []byte{0x88, 0x77, 0x66, 0x55, 0x44, 0x33, 0x22, 0x11}
	for i, b := range want {
		if data[56+i] != b {
			t.Errorf("byte %d = %#x, want %#x", 56+i, data[56+i], b)
		}
	}

	var back InstanceRecord
	if err := back.UnmarshalBinary(data); err != nil {
		t.Fatal(err)
	}
	if back != rec {
		t.Errorf("decoded %+v, want %+v", back, rec)
	}
}

func TestInstanceRecordValidate(t *testing.T) {
	tests := []struct {
		name string
		rec  InstanceRecord
	}{
		{"custom index", InstanceRecord{CustomIndex: 1 << 24}},
		{"instance offset", InstanceRecord{InstanceOffset: 1 << 24}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.rec.MarshalBinary(); !errors.Is(err, ErrBuild) {
				t.Errorf("got %v, want ErrBuild", err)
			}
		})
	}
	ok := InstanceRecord{CustomIndex: max24, InstanceOffset: max24}
	if err := ok.Validate(); err != nil {
		t.Errorf("24-bit maximum rejected: %v", err)
	}
	var r InstanceRecord
	if err := r.UnmarshalBinary(make([]byte, 63)); !errors.Is(err, ErrBuild) {
		t.Errorf("short record: got %v", err)
	}
}

func TestTransformFromMat4x4(t *testing.T) {
	var m lin.Mat4x4
	m.Identity()
	if got := TransformFromMat4x4(&m); got != IdentityTransform() {
		t.Errorf("identity = %v", got)
	}
	m.Translate(1, 2, 3)
	got := TransformFromMat4x4(&m)
	if got[3] != 1 || got[7] != 2 || got[11] != 3 {
		t.Errorf("translation column = %v %v %v", got[3], got[7], got[11])
	}
	if got[0] != 1 || got[5] != 1 || got[10] != 1 {
		t.Errorf("rotation part changed: %v", got)
	}
}

func TestEncodeInstanceRecords(t *testing.T) {
	records := []InstanceRecord{NewInstanceRecord(0x10000), NewInstanceRecord(0x10100)}
	data, err := EncodeInstanceRecords(records)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 2*InstanceRecordSize {
		t.Fatalf("encoded %d bytes", len(data))
	}
	if id := binary.LittleEndian.Uint64(data[InstanceRecordSize+56:]); id != 0x10100 {
		t.Errorf("second id = %#x", id)
	}
	if data[48+3] != 0xff {
		t.Errorf("mask = %#x, want 0xff", data[51])
	}

	records[1].CustomIndex = 1 << 24
	if _, err := EncodeInstanceRecords(records); !errors.Is(err, ErrBuild) {
		t.Errorf("got %v, want ErrBuild", err)
	}
}
