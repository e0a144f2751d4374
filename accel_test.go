package vkgrt

import (
	"testing"

	"github.com/pkg/errors"
	lin "github.com/xlab/linmath"

	"github.com/celer/vkgrt/driver"
	"github.com/celer/vkgrt/driver/soft"
)

func uploadTriangle(t *testing.T, ctx *Context) (vertices, indices *Buffer) {
	t.Helper()
	var err error
	vertices, err = ctx.Upload(Float32Bytes(TriangleVertices), driver.UsageVertex|driver.UsageRayTracing)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	indices, err = ctx.Upload(Uint32Bytes(TriangleIndices), driver.UsageIndex|driver.UsageRayTracing)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	return vertices, indices
}

func TestBuildBottomLevel(t *testing.T) {
	ctx, dev, _ := newTestContext(t)
	vertices, indices := uploadTriangle(t, ctx)
	buffers := dev.Live()["buffer"]

	bottom, err := ctx.BuildBottomLevel(vertices, 3, VertexStride, indices, 3)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if bottom.ID == 0 {
		t.Fatal("zero structure identifier")
	}
	if bottom.Kind != driver.AccelBottomLevel {
		t.Errorf("kind = %v", bottom.Kind)
	}
	for i := 0; i < 3; i++ {
		h, err := bottom.Handle()
		if err != nil {
			t.Fatal(err)
		}
		if h != bottom.ID {
			t.Errorf("handle query %d = %#x, want %#x", i, h, bottom.ID)
		}
	}
	if !bottom.Valid() {
		t.Error("bottom-level structure not valid")
	}
	if got := dev.Live()["buffer"]; got != buffers {
		t.Errorf("scratch buffer not released: %d live buffers, want %d", got, buffers)
	}
	if got := dev.Stats().Builds; got != 1 {
		t.Errorf("%d builds, want 1", got)
	}
}

func TestBuildBottomLevelBadIndex(t *testing.T) {
	ctx, _, _ := newTestContext(t)
	vertices, _ := uploadTriangle(t, ctx)
	indices, err := ctx.Upload(Uint32Bytes([]uint32{0, 1, 5}), driver.UsageIndex|driver.UsageRayTracing)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ctx.BuildBottomLevel(vertices, 3, VertexStride, indices, 3); !errors.Is(err, ErrBuild) {
		t.Errorf("got %v, want ErrBuild", err)
	}
}

func TestBuildTriangleScene(t *testing.T) {
	ctx, dev, _ := newTestContext(t)
	var placement lin.Mat4x4
	placement.Identity()
	placement.Translate(0, 0, -2)

	scene, err := ctx.BuildTriangleScene(&placement)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if scene.Top.ID == 0 || scene.Top.ID == scene.Bottom.ID {
		t.Errorf("top-level id %#x, bottom-level id %#x", scene.Top.ID, scene.Bottom.ID)
	}
	if !scene.Top.Valid() {
		t.Error("top-level structure over a built instance is not valid")
	}
	if got := dev.Stats().Builds; got != 2 {
		t.Errorf("%d builds, want 2", got)
	}
	if got := dev.Live()["accel-struct"]; got != 2 {
		t.Errorf("%d live structures, want 2", got)
	}
}

func TestBuildSceneRejectsUnbuilt(t *testing.T) {
	ctx, dev, _ := newTestContext(t)
	for _, id := range []uint64{0, 0xdead0000} {
		_, err := ctx.BuildScene([]InstanceRecord{NewInstanceRecord(id)})
		if !errors.Is(err, ErrBuild) {
			t.Errorf("id %#x: got %v, want ErrBuild", id, err)
		}
	}
	if _, err := ctx.BuildScene(nil); !errors.Is(err, ErrBuild) {
		t.Errorf("empty scene: got %v, want ErrBuild", err)
	}
	if got := dev.Stats().Builds; got != 0 {
		t.Errorf("%d builds recorded for rejected scenes", got)
	}
}

func TestBuildSceneAfterDestroy(t *testing.T) {
	ctx, _, _ := newTestContext(t)
	vertices, indices := uploadTriangle(t, ctx)
	bottom, err := ctx.BuildBottomLevel(vertices, 3, VertexStride, indices, 3)
	if err != nil {
		t.Fatal(err)
	}
	id := bottom.ID
	bottom.Destroy()
	if _, err := ctx.BuildScene([]InstanceRecord{NewInstanceRecord(id)}); !errors.Is(err, ErrBuild) {
		t.Errorf("got %v, want ErrBuild", err)
	}
}

func TestBuildTopLevelUnchecked(t *testing.T) {
	ctx, _, _ := newTestContext(t)
	rec := NewInstanceRecord(0xdead0000)
	data, err := rec.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	instances, err := ctx.Upload(data, driver.UsageRayTracing)
	if err != nil {
		t.Fatal(err)
	}
	top, err := ctx.BuildTopLevel(instances, 1)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if top.Valid() {
		t.Error("top-level structure over an unknown instance reported valid")
	}
}

func TestBuildFailure(t *testing.T) {
	ctx, dev, _ := newTestContext(t)
	vertices, indices := uploadTriangle(t, ctx)
	before := dev.Live()

	dev.FailNext(soft.OpBuild, errors.New("device lost"))
	_, err := ctx.BuildBottomLevel(vertices, 3, VertexStride, indices, 3)
	if !errors.Is(err, ErrBuild) {
		t.Fatalf("got %v, want ErrBuild", err)
	}
	after := dev.Live()
	for _, kind := range []string{"buffer", "memory", "accel-struct"} {
		if after[kind] != before[kind] {
			t.Errorf("%s: %d live after failed build, want %d", kind, after[kind], before[kind])
		}
	}

	if _, err := ctx.BuildBottomLevel(vertices, 3, VertexStride, indices, 3); err != nil {
		t.Errorf("build after failure: %+v", err)
	}
}
