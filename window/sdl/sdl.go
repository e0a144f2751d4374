// Package sdl implements window.Window on top of SDL2. SDL must be driven
// from the main thread.
package sdl

import (
	"unsafe"

	"github.com/pkg/errors"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/celer/vkgrt/window"
)

type Window struct {
	win *sdl.Window
}

var (
	_ window.Window         = (*Window)(nil)
	_ window.VulkanSurfacer = (*Window)(nil)
)

// New initializes the SDL video subsystem and opens a Vulkan capable
// window.
func New(title string, width, height int) (*Window, error) {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return nil, errors.Wrap(err, "sdl: init")
	}
	win, err := sdl.CreateWindow(title, sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		int32(width), int32(height), sdl.WINDOW_SHOWN|sdl.WINDOW_VULKAN)
	if err != nil {
		sdl.Quit()
		return nil, errors.Wrap(err, "sdl: create window")
	}
	return &Window{win: win}, nil
}

func (w *Window) Poll() (window.Event, bool) {
	for ev := sdl.PollEvent(); ev != nil; ev = sdl.PollEvent() {
		switch ev := ev.(type) {
		case *sdl.QuitEvent:
			return window.Event{Kind: window.EventQuit}, true
		case *sdl.WindowEvent:
			if ev.Event == sdl.WINDOWEVENT_CLOSE {
				return window.Event{Kind: window.EventWindowClose}, true
			}
		case *sdl.KeyboardEvent:
			if ev.Type != sdl.KEYDOWN {
				continue
			}
			key := window.KeyUnknown
			if ev.Keysym.Sym == sdl.K_ESCAPE {
				key = window.KeyEscape
			}
			return window.Event{Kind: window.EventKeyDown, Key: key}, true
		}
	}
	return window.Event{}, false
}

func (w *Window) Size() (int, int) {
	width, height := w.win.GetSize()
	return int(width), int(height)
}

func (w *Window) VulkanProcAddr() unsafe.Pointer {
	return sdl.VulkanGetVkGetInstanceProcAddr()
}

func (w *Window) VulkanInstanceExtensions() []string {
	return w.win.VulkanGetInstanceExtensions()
}

func (w *Window) CreateVulkanSurface(instance any) (uintptr, error) {
	ptr, err := w.win.VulkanCreateSurface(instance)
	if err != nil {
		return 0, err
	}
	return uintptr(ptr), nil
}

func (w *Window) Destroy() {
	if w.win != nil {
		w.win.Destroy()
		w.win = nil
	}
	sdl.Quit()
}
