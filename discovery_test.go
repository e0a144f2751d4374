package vkgrt

import (
	"testing"

	"github.com/pkg/errors"

	"github.com/celer/vkgrt/driver"
	"github.com/celer/vkgrt/driver/soft"
)

func TestPickAdapter(t *testing.T) {
	cpu := soft.DefaultAdapter()
	cpu.Name = "soft cpu"
	cpu.Kind = driver.AdapterCPU

	tests := []struct {
		name     string
		adapters []soft.AdapterConfig
		want     string
		err      error
	}{
		{"discrete after integrated", []soft.AdapterConfig{soft.IntegratedAdapter(), soft.DefaultAdapter()}, "soft discrete", nil},
		{"integrated only", []soft.AdapterConfig{cpu, soft.IntegratedAdapter()}, "soft integrated", nil},
		{"cpu only", []soft.AdapterConfig{cpu}, "", ErrInitialization},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapters, err := soft.New(tt.adapters...).Adapters()
			if err != nil {
				t.Fatal(err)
			}
			a, err := PickAdapter(adapters)
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Errorf("got %v, want %v", err, tt.err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if a.Info().Name != tt.want {
				t.Errorf("picked %q, want %q", a.Info().Name, tt.want)
			}
		})
	}
}

func TestDiscoverNoAdapters(t *testing.T) {
	inst := soft.New()
	s, _ := inst.NewSurface(nil)
	if _, err := Discover(inst, s, testLogger()); !errors.Is(err, ErrInitialization) {
		t.Errorf("got %v, want ErrInitialization", err)
	}
}

func TestSelectQueueFamily(t *testing.T) {
	graphics := driver.QueueGraphics | driver.QueueCompute | driver.QueueTransfer
	tests := []struct {
		name     string
		families []driver.QueueFamily
		present  []int
		want     int
		err      error
	}{
		{
			name:     "first qualifying",
			families: []driver.QueueFamily{{Index: 0, Flags: driver.QueueTransfer}, {Index: 1, Flags: graphics}, {Index: 2, Flags: graphics}},
			present:  []int{0, 1, 2},
			want:     1,
		},
		{
			name:     "graphics without present",
			families: []driver.QueueFamily{{Index: 0, Flags: graphics}, {Index: 1, Flags: graphics}},
			present:  []int{1},
			want:     1,
		},
		{
			name:     "present without graphics",
			families: []driver.QueueFamily{{Index: 0, Flags: driver.QueueTransfer}, {Index: 1, Flags: graphics}},
			present:  []int{0},
			err:      ErrNoSuitableQueueFamily,
		},
		{
			name:     "no present support",
			families: []driver.QueueFamily{{Index: 0, Flags: graphics}},
			err:      ErrNoSuitableQueueFamily,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := soft.DefaultAdapter()
			cfg.QueueFamilies = tt.families
			cfg.PresentFamilies = tt.present
			inst := soft.New(cfg)
			s, _ := inst.NewSurface(nil)
			sel, err := Discover(inst, s, testLogger())
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Errorf("got %v, want %v", err, tt.err)
				}
				return
			}
			if err != nil {
				t.Fatalf("%+v", err)
			}
			if sel.QueueFamily != tt.want {
				t.Errorf("family %d, want %d", sel.QueueFamily, tt.want)
			}
		})
	}
}

func TestDiscoverMissingExtension(t *testing.T) {
	cfg := soft.DefaultAdapter()
	cfg.Extensions = []string{"VK_KHR_swapchain"}
	inst := soft.New(cfg)
	s, _ := inst.NewSurface(nil)
	_, err := Discover(inst, s, testLogger())
	if !errors.Is(err, ErrInitialization) {
		t.Errorf("got %v, want ErrInitialization", err)
	}
}

func TestDiscoverRayTracingProperties(t *testing.T) {
	ctx, _, _ := newTestContext(t)
	want := soft.DefaultAdapter().RayTracing
	if ctx.RayTracing != want {
		t.Errorf("properties %+v, want %+v", ctx.RayTracing, want)
	}
	if ctx.QueueFamily != 0 {
		t.Errorf("queue family %d", ctx.QueueFamily)
	}
}
