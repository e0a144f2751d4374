package vulkan

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"github.com/celer/vkgrt/driver"
)

const end = "\x00"

// safeString null terminates s for the C side.
func safeString(s string) string {
	if len(s) == 0 || s[len(s)-1] != 0 {
		return s + end
	}
	return s
}

// safeStrings null terminates every string of list in place.
func safeStrings(list []string) []string {
	for i := range list {
		list[i] = safeString(list[i])
	}
	return list
}

// sliceUint32 reinterprets SPIR-V bytes as words.
func sliceUint32(data []byte) []uint32 {
	if len(data) < 4 {
		return nil
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(&data[0])), len(data)/4)
}

func extentOf(e vk.Extent2D) driver.Extent {
	return driver.Extent{Width: int(e.Width), Height: int(e.Height)}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
