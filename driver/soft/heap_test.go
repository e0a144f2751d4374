package soft

import (
	"testing"
)

func TestAlign(t *testing.T) {
	if alignUp(12, 3) != 12 {
		t.Fail()
	}

	if alignUp(10, 3) != 12 {
		t.Fail()
	}

	if alignUp(7, 0) != 7 {
		t.Fail()
	}
}

func TestHeap(t *testing.T) {
	h := heap{size: 1024}

	if s := h.alloc(2048, 1); s != nil {
		t.Error("oversized allocation succeeded")
	}

	fa := h.alloc(512, 1)
	if fa == nil {
		t.Fatal("failed 2nd allocation")
	}

	if s := h.alloc(768, 1); s != nil {
		t.Error("3rd allocation should not fit")
	}

	k := h.alloc(500, 1)
	if k == nil {
		t.Fatal("failed 4th allocation")
	}

	if s := h.alloc(50, 1); s != nil {
		t.Error("5th allocation should not fit")
	}

	if s := h.alloc(5, 1); s == nil {
		t.Error("failed 6th allocation")
	}

	if s := h.alloc(20, 1); s != nil {
		t.Error("7th allocation should not fit")
	}

	h.free(k)
	if s := h.alloc(500, 1); s == nil || s.offset != 512 {
		t.Errorf("8th allocation should reuse the freed gap, got %v", s)
	}

	h.free(fa)
	t.Logf("after free %s", h.String())
	for i, size := range []uint64{20, 40, 12} {
		if s := h.alloc(size, 1); s == nil {
			t.Errorf("failed allocation %d of %d bytes", i, size)
		}
	}

	if s := h.alloc(500, 1); s != nil {
		t.Error("12th allocation should not fit")
	}
	if s := h.alloc(5, 1); s == nil || s.offset != 72 {
		t.Errorf("13th allocation should land at 72, got %v", s)
	}
	if h.used() != 582 {
		t.Errorf("used = %d, want 582", h.used())
	}
}

func TestHeapAlignment(t *testing.T) {
	h := heap{size: 4096}
	h.alloc(10, 1)
	s := h.alloc(64, 256)
	if s == nil || s.offset != 256 {
		t.Fatalf("aligned allocation = %v, want offset 256", s)
	}
	if s := h.alloc(4096-320+1, 1); s != nil {
		t.Errorf("allocation past capacity succeeded: %v", s)
	}
	if s := h.alloc(0, 1); s != nil {
		t.Error("zero sized allocation succeeded")
	}
}
