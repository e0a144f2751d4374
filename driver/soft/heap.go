package soft

import (
	"fmt"
)

// span is a sub-allocated range of a heap.
type span struct {
	offset uint64
	size   uint64
}

func (s *span) String() string {
	return fmt.Sprintf("[%d %d]", s.offset, s.size)
}

// heap hands out first-fit ranges of a fixed capacity. spans is kept
// sorted by offset.
type heap struct {
	size  uint64
	spans []*span
}

func alignUp(a uint64, align uint64) uint64 {
	if align <= 1 {
		return a
	}
	m := a % align
	if m == 0 {
		return a
	}
	return a - m + align
}

// alloc returns nil if no gap can hold size bytes at the given alignment.
func (h *heap) alloc(size uint64, align uint64) *span {
	if size == 0 || size > h.size {
		return nil
	}
	var end uint64
	for i, s := range h.spans {
		off := alignUp(end, align)
		if off+size <= s.offset {
			ns := &span{offset: off, size: size}
			h.spans = append(h.spans[:i], append([]*span{ns}, h.spans[i:]...)...)
			return ns
		}
		end = s.offset + s.size
	}
	off := alignUp(end, align)
	if off > h.size || h.size-off < size {
		return nil
	}
	ns := &span{offset: off, size: size}
	h.spans = append(h.spans, ns)
	return ns
}

func (h *heap) free(fs *span) {
	for i, s := range h.spans {
		if s == fs {
			h.spans = append(h.spans[:i], h.spans[i+1:]...)
			return
		}
	}
}

func (h *heap) used() uint64 {
	var n uint64
	for _, s := range h.spans {
		n += s.size
	}
	return n
}

func (h *heap) String() string {
	return fmt.Sprintf("%v", h.spans)
}
