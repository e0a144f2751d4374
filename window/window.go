// Package window defines the windowing collaborator: a native window that
// can back a presentation surface and a polled event stream.
package window

import (
	"unsafe"
)

type EventKind int

const (
	EventQuit EventKind = iota + 1
	EventKeyDown
	EventWindowClose
)

type Key int

const (
	KeyUnknown Key = iota
	KeyEscape
)

type Event struct {
	Kind EventKind
	// Key is set for EventKeyDown.
	Key Key
}

// Quits reports whether ev ends the frame loop: a quit request, the
// escape key or closing the window.
func (ev Event) Quits() bool {
	switch ev.Kind {
	case EventQuit, EventWindowClose:
		return true
	case EventKeyDown:
		return ev.Key == KeyEscape
	}
	return false
}

// Window is a native window.
type Window interface {
	// Poll returns the next pending event without blocking. ok is false
	// when no event is pending.
	Poll() (ev Event, ok bool)
	Size() (width, height int)
	Destroy()
}

// VulkanSurfacer is implemented by windows that can create Vulkan
// surfaces.
type VulkanSurfacer interface {
	// VulkanProcAddr returns vkGetInstanceProcAddr as loaded by the
	// windowing library.
	VulkanProcAddr() unsafe.Pointer
	// VulkanInstanceExtensions lists the instance extensions required to
	// present to the window.
	VulkanInstanceExtensions() []string
	// CreateVulkanSurface creates a VkSurfaceKHR for the given VkInstance
	// and returns the address of the new handle, the form
	// vk.SurfaceFromPointer reads.
	CreateVulkanSurface(instance any) (uintptr, error)
}
