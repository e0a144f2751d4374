package vkgrt

import (
	"github.com/celer/vkgrt/driver"
)

// SelectMemoryType returns the lowest index i such that bit i of filter
// is set and types[i] has every property in required.
//
// Memory type bits come from the resource's memory requirements; see the
// documentation of VkPhysicalDeviceMemoryProperties for how the table is
// ordered.
func SelectMemoryType(filter uint32, required driver.MemoryProperty, types []driver.MemoryType) (int, error) {
	for i := 0; i < len(types) && i < 32; i++ {
		if filter&(1<<uint(i)) != 0 && types[i].Properties.Has(required) {
			return i, nil
		}
	}
	return 0, failf(ErrNoSuitableMemoryType, "select memory type", "filter %#x, properties %#x", filter, uint32(required))
}
