// Package headless provides a scripted window with no display.
package headless

import (
	"github.com/celer/vkgrt/window"
)

// Window delivers scripted events. Events scheduled for tick t are
// returned by Poll after t calls to Poll have reported no pending event;
// the frame loop drains the queue once per frame, so a tick is a frame.
type Window struct {
	width, height int
	script        map[int][]window.Event
	tick          int
	pending       []window.Event
	destroyed     bool
}

// New creates a window of the given size with an empty script.
func New(width, height int) *Window {
	return &Window{width: width, height: height, script: make(map[int][]window.Event)}
}

// At schedules ev to be delivered on tick.
func (w *Window) At(tick int, ev window.Event) *Window {
	w.script[tick] = append(w.script[tick], ev)
	return w
}

// QuitAt schedules a quit event on tick.
func (w *Window) QuitAt(tick int) *Window {
	return w.At(tick, window.Event{Kind: window.EventQuit})
}

func (w *Window) Poll() (window.Event, bool) {
	if w.pending == nil {
		w.pending = append([]window.Event{}, w.script[w.tick]...)
	}
	if len(w.pending) == 0 {
		w.tick++
		w.pending = nil
		return window.Event{}, false
	}
	ev := w.pending[0]
	w.pending = w.pending[1:]
	return ev, true
}

// Tick returns how many times the event queue was drained.
func (w *Window) Tick() int { return w.tick }

func (w *Window) Size() (int, int) { return w.width, w.height }

func (w *Window) Destroy() { w.destroyed = true }

// Destroyed reports whether Destroy was called.
func (w *Window) Destroyed() bool { return w.destroyed }
