package headless

import (
	"testing"

	"github.com/celer/vkgrt/window"
)

func drain(w *Window) []window.Event {
	var evs []window.Event
	for {
		ev, ok := w.Poll()
		if !ok {
			return evs
		}
		evs = append(evs, ev)
	}
}

func TestScript(t *testing.T) {
	w := New(640, 480).
		At(1, window.Event{Kind: window.EventKeyDown, Key: window.KeyEscape}).
		At(1, window.Event{Kind: window.EventKeyDown}).
		QuitAt(3)

	counts := []int{0, 2, 0, 1, 0}
	for tick, want := range counts {
		if got := len(drain(w)); got != want {
			t.Errorf("tick %d: %d events, want %d", tick, got, want)
		}
	}
	if w.Tick() != len(counts) {
		t.Errorf("tick = %d, want %d", w.Tick(), len(counts))
	}
}

func TestSizeAndDestroy(t *testing.T) {
	w := New(1280, 720)
	if width, height := w.Size(); width != 1280 || height != 720 {
		t.Errorf("size %dx%d", width, height)
	}
	w.Destroy()
	if !w.Destroyed() {
		t.Error("not destroyed")
	}
}

func TestQuits(t *testing.T) {
	tests := []struct {
		ev   window.Event
		want bool
	}{
		{window.Event{Kind: window.EventQuit}, true},
		{window.Event{Kind: window.EventWindowClose}, true},
		{window.Event{Kind: window.EventKeyDown, Key: window.KeyEscape}, true},
		{window.Event{Kind: window.EventKeyDown, Key: window.KeyUnknown}, false},
		{window.Event{}, false},
	}
	for _, tt := range tests {
		if got := tt.ev.Quits(); got != tt.want {
			t.Errorf("%+v.Quits() = %v, want %v", tt.ev, got, tt.want)
		}
	}
}
