package vkgrt

import (
	"context"

	"github.com/celer/vkgrt/driver"
	"github.com/celer/vkgrt/window"
)

// EventSource is polled once per frame.
type EventSource interface {
	Poll() (window.Event, bool)
}

// FrameStats counts what the frame loop did.
type FrameStats struct {
	Frames     int
	Acquires   int
	Submits    int
	Presents   int
	FenceWaits int
	// Images holds the acquired image index of each frame, when recording.
	Images []int
	// Submitted holds the command buffer submitted in each frame, when
	// recording.
	Submitted []driver.CmdBuffer
}

// FrameLoop drives one frame at a time: acquire, reset fence, submit,
// present and wait for the fence.
type FrameLoop struct {
	Ctx      *Context
	Pipeline *FramePipeline
	Events   EventSource
	// MaxFrames stops the loop after that many frames when positive.
	MaxFrames int
	// Record keeps the per frame history in FrameStats. It grows with
	// every frame, so leave it off for unbounded runs.
	Record bool
}

// Run renders frames until a quit event arrives, ctx is done or MaxFrames
// is reached. The frame in which the quit is seen is still rendered and
// waited for.
func (l *FrameLoop) Run(ctx context.Context) (FrameStats, error) {
	var stats FrameStats
	log := l.Ctx.Log
	for {
		if l.MaxFrames > 0 && stats.Frames >= l.MaxFrames {
			log.WithField("frames", stats.Frames).Info("frame limit reached")
			break
		}
		quit := l.poll(ctx)
		if err := l.frame(&stats); err != nil {
			return stats, err
		}
		if quit {
			log.WithField("frames", stats.Frames).Info("quit requested")
			break
		}
	}
	return stats, nil
}

// poll drains pending events and reports whether any of them, or ctx,
// asks to quit.
func (l *FrameLoop) poll(ctx context.Context) bool {
	quit := false
	if l.Events != nil {
		for {
			ev, ok := l.Events.Poll()
			if !ok {
				break
			}
			if ev.Quits() {
				quit = true
			}
		}
	}
	select {
	case <-ctx.Done():
		quit = true
	default:
	}
	return quit
}

func (l *FrameLoop) frame(stats *FrameStats) error {
	p := l.Pipeline
	dev := l.Ctx.Device
	q := l.Ctx.Queue

	idx, err := p.Swapchain.Acquire(p.ImageAvailable)
	if err != nil {
		return fail(ErrSubmission, "acquire next image", err)
	}
	stats.Acquires++
	if idx < 0 || idx >= len(p.Commands) {
		return failf(ErrSubmission, "acquire next image", "image index %d out of range", idx)
	}

	if err := dev.ResetFence(p.Done); err != nil {
		return fail(ErrSubmission, "reset fence", err)
	}

	cb := p.Commands[idx]
	err = q.Submit(&driver.Submission{
		Buffers:    []driver.CmdBuffer{cb},
		Wait:       []driver.Semaphore{p.ImageAvailable},
		WaitStages: []driver.PipelineStage{driver.StageTopOfPipe},
		Signal:     []driver.Semaphore{p.RenderFinished},
		Fence:      p.Done,
	})
	if err != nil {
		return fail(ErrSubmission, "submit frame", err)
	}
	stats.Submits++

	if err := q.Present(p.Swapchain, idx, []driver.Semaphore{p.RenderFinished}); err != nil {
		return fail(ErrSubmission, "present", err)
	}
	stats.Presents++

	if err := dev.WaitFence(p.Done); err != nil {
		return fail(ErrSubmission, "wait for frame fence", err)
	}
	stats.FenceWaits++

	stats.Frames++
	if l.Record {
		stats.Images = append(stats.Images, idx)
		stats.Submitted = append(stats.Submitted, cb)
	}
	l.Ctx.Log.WithField("image", idx).Trace("frame")
	return nil
}
