package vkgrt

import (
	"context"
	"reflect"
	"testing"

	"github.com/pkg/errors"

	"github.com/celer/vkgrt/driver"
	"github.com/celer/vkgrt/driver/soft"
	"github.com/celer/vkgrt/window"
	"github.com/celer/vkgrt/window/headless"
)

func newTestLoop(t *testing.T, events EventSource, maxFrames int) (*FrameLoop, *soft.Device) {
	t.Helper()
	ctx, dev, s := newTestContext(t)
	if _, err := ctx.BuildTriangleScene(nil); err != nil {
		t.Fatalf("%+v", err)
	}
	p, err := ctx.NewFramePipeline(s, testShaders())
	if err != nil {
		t.Fatalf("%+v", err)
	}
	return &FrameLoop{Ctx: ctx, Pipeline: p, Events: events, MaxFrames: maxFrames, Record: true}, dev
}

func TestFramePipelineRecording(t *testing.T) {
	loop, _ := newTestLoop(t, nil, 1)
	p := loop.Pipeline
	if len(p.Commands) != SwapchainImageCount || len(p.Framebuffers) != SwapchainImageCount {
		t.Fatalf("%d command buffers, %d framebuffers", len(p.Commands), len(p.Framebuffers))
	}
	want := []string{"begin-render-pass", "bind-pipeline", "draw 3 1 0 0", "end-render-pass"}
	for i, cb := range p.Commands {
		if got := soft.Commands(cb); !reflect.DeepEqual(got, want) {
			t.Errorf("command buffer %d records %v, want %v", i, got, want)
		}
	}
	if p.PresentMode != driver.PresentFifo {
		t.Errorf("present mode %v", p.PresentMode)
	}
	if p.Format.Format != driver.FormatB8G8R8A8Unorm {
		t.Errorf("format %v", p.Format.Format)
	}
	if p.Extent != (driver.Extent{Width: WindowWidth, Height: WindowHeight}) {
		t.Errorf("extent %+v", p.Extent)
	}
}

func TestChooseSurfaceFormat(t *testing.T) {
	unorm := driver.SurfaceFormat{Format: driver.FormatB8G8R8A8Unorm, ColorSpace: driver.ColorSpaceSrgbNonlinear}
	srgb := driver.SurfaceFormat{Format: driver.FormatB8G8R8A8Srgb, ColorSpace: driver.ColorSpaceSrgbNonlinear}
	tests := []struct {
		name    string
		formats []driver.SurfaceFormat
		want    driver.SurfaceFormat
	}{
		{"preferred", []driver.SurfaceFormat{srgb, unorm}, unorm},
		{"fallback", []driver.SurfaceFormat{srgb}, srgb},
		{"undefined", []driver.SurfaceFormat{{Format: driver.FormatUndefined}}, unorm},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ChooseSurfaceFormat(tt.formats)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
	if _, err := ChooseSurfaceFormat(nil); !errors.Is(err, ErrInitialization) {
		t.Errorf("got %v, want ErrInitialization", err)
	}
}

func TestFrameLoopFrames(t *testing.T) {
	for _, k := range []int{1, 2, 5, 8} {
		loop, dev := newTestLoop(t, headless.New(WindowWidth, WindowHeight), k)
		before := dev.Stats()
		stats, err := loop.Run(context.Background())
		if err != nil {
			t.Fatalf("%d frames: %+v", k, err)
		}
		if stats.Frames != k || stats.Acquires != k || stats.Submits != k || stats.Presents != k || stats.FenceWaits != k {
			t.Errorf("%d frames: stats %+v", k, stats)
		}
		after := dev.Stats()
		if after.Presents-before.Presents != k || after.FenceWaits-before.FenceWaits != k {
			t.Errorf("%d frames: device saw %d presents, %d fence waits", k, after.Presents-before.Presents, after.FenceWaits-before.FenceWaits)
		}
		for i := 0; i < k; i++ {
			if stats.Submitted[i] != loop.Pipeline.Commands[stats.Images[i]] {
				t.Errorf("frame %d submitted the buffer of another image", i)
			}
		}
	}
}

// TestFrameLoopOrder checks each frame against the device trace: the
// acquired image is the one whose buffer is submitted and presented, and
// the fence is waited before the next acquire.
func TestFrameLoopOrder(t *testing.T) {
	const frames = 4
	loop, dev := newTestLoop(t, nil, frames)
	start := len(dev.Trace())
	stats, err := loop.Run(context.Background())
	if err != nil {
		t.Fatalf("%+v", err)
	}

	var ops []soft.Event
	for _, ev := range dev.Trace()[start:] {
		switch ev.Op {
		case soft.OpAcquire, soft.OpResetFence, soft.OpSubmit, soft.OpPresent, soft.OpWaitFence:
			ops = append(ops, ev)
		}
	}
	if len(ops) != 5*frames {
		t.Fatalf("%d frame events, want %d", len(ops), 5*frames)
	}
	for f := 0; f < frames; f++ {
		ev := ops[f*5 : f*5+5]
		want := []soft.Op{soft.OpAcquire, soft.OpResetFence, soft.OpSubmit, soft.OpPresent, soft.OpWaitFence}
		for i, op := range want {
			if ev[i].Op != op {
				t.Fatalf("frame %d event %d = %s, want %s", f, i, ev[i].Op, op)
			}
		}
		img := ev[0].Index
		if img != stats.Images[f] || ev[3].Index != img {
			t.Errorf("frame %d acquired %d, presented %d, reported %d", f, img, ev[3].Index, stats.Images[f])
		}
		id := soft.CommandID(loop.Pipeline.Commands[img])
		if len(ev[2].Buffers) != 1 || ev[2].Buffers[0] != id {
			t.Errorf("frame %d submitted %v, want [%d]", f, ev[2].Buffers, id)
		}
	}
	if !reflect.DeepEqual(stats.Images, []int{0, 1, 0, 1}) {
		t.Errorf("images %v", stats.Images)
	}
}

func TestFrameLoopQuit(t *testing.T) {
	tests := []struct {
		name   string
		events *headless.Window
		frames int
	}{
		{"quit", headless.New(WindowWidth, WindowHeight).QuitAt(3), 4},
		{"escape", headless.New(WindowWidth, WindowHeight).At(1, window.Event{Kind: window.EventKeyDown, Key: window.KeyEscape}), 2},
		{"close", headless.New(WindowWidth, WindowHeight).At(0, window.Event{Kind: window.EventWindowClose}), 1},
		{"other key", headless.New(WindowWidth, WindowHeight).At(0, window.Event{Kind: window.EventKeyDown}).QuitAt(2), 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loop, dev := newTestLoop(t, tt.events, 100)
			stats, err := loop.Run(context.Background())
			if err != nil {
				t.Fatalf("%+v", err)
			}
			if stats.Frames != tt.frames || stats.Presents != tt.frames || stats.FenceWaits != tt.frames {
				t.Errorf("stats %+v, want %d frames", stats, tt.frames)
			}
			if !soft.Signaled(loop.Pipeline.Done) {
				t.Error("frame fence not signaled after the last frame")
			}

			loop.Ctx.Destroy()
			if live := dev.Live(); len(live) != 0 {
				t.Errorf("objects left after teardown: %v", live)
			}
		})
	}
}

func TestFrameLoopCancel(t *testing.T) {
	loop, _ := newTestLoop(t, nil, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stats, err := loop.Run(ctx)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if stats.Frames != 1 {
		t.Errorf("%d frames after cancel, want 1", stats.Frames)
	}
}

func TestFrameLoopFailure(t *testing.T) {
	for _, op := range []soft.Op{soft.OpAcquire, soft.OpSubmit, soft.OpPresent, soft.OpWaitFence} {
		t.Run(string(op), func(t *testing.T) {
			loop, dev := newTestLoop(t, nil, 3)
			dev.FailNext(op, errors.New("surface lost"))
			stats, err := loop.Run(context.Background())
			if !errors.Is(err, ErrSubmission) {
				t.Fatalf("got %v, want ErrSubmission", err)
			}
			if stats.Frames != 0 {
				t.Errorf("%d frames completed", stats.Frames)
			}
		})
	}
}

func TestFrameLoopNoHistory(t *testing.T) {
	loop, _ := newTestLoop(t, nil, 6)
	loop.Record = false
	stats, err := loop.Run(context.Background())
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if stats.Frames != 6 || stats.Presents != 6 {
		t.Errorf("stats %+v", stats)
	}
	if stats.Images != nil || stats.Submitted != nil {
		t.Errorf("history kept without Record: %v, %d buffers", stats.Images, len(stats.Submitted))
	}
}
