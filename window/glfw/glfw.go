// Package glfw implements window.Window on top of GLFW. GLFW calls must
// come from the main thread.
package glfw

import (
	"unsafe"

	"github.com/pkg/errors"
	"github.com/vulkan-go/glfw/v3.3/glfw"

	"github.com/celer/vkgrt/window"
)

type Window struct {
	win    *glfw.Window
	events []window.Event
	closed bool
}

var (
	_ window.Window         = (*Window)(nil)
	_ window.VulkanSurfacer = (*Window)(nil)
)

// New initializes GLFW and opens a window without a client API.
func New(title string, width, height int) (*Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, errors.Wrap(err, "glfw: init")
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return nil, errors.New("glfw: vulkan is not supported")
	}
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	win, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, errors.Wrap(err, "glfw: create window")
	}
	w := &Window{win: win}
	win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if action != glfw.Press {
			return
		}
		k := window.KeyUnknown
		if key == glfw.KeyEscape {
			k = window.KeyEscape
		}
		w.events = append(w.events, window.Event{Kind: window.EventKeyDown, Key: k})
	})
	return w, nil
}

func (w *Window) Poll() (window.Event, bool) {
	if len(w.events) == 0 {
		glfw.PollEvents()
		if w.win.ShouldClose() && !w.closed {
			w.closed = true
			w.events = append(w.events, window.Event{Kind: window.EventWindowClose})
		}
	}
	if len(w.events) == 0 {
		return window.Event{}, false
	}
	ev := w.events[0]
	w.events = w.events[1:]
	return ev, true
}

func (w *Window) Size() (int, int) {
	return w.win.GetFramebufferSize()
}

func (w *Window) VulkanProcAddr() unsafe.Pointer {
	return glfw.GetVulkanGetInstanceProcAddress()
}

func (w *Window) VulkanInstanceExtensions() []string {
	return w.win.GetRequiredInstanceExtensions()
}

func (w *Window) CreateVulkanSurface(instance any) (uintptr, error) {
	return w.win.CreateWindowSurface(instance, nil)
}

func (w *Window) Destroy() {
	if w.win != nil {
		w.win.Destroy()
		w.win = nil
	}
	glfw.Terminate()
}
