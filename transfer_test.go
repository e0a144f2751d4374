package vkgrt

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"

	"github.com/celer/vkgrt/driver"
	"github.com/celer/vkgrt/driver/soft"
)

func pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*7 + 3)
	}
	return b
}

func TestUploadRoundTrip(t *testing.T) {
	ctx, dev, _ := newTestContext(t)
	for _, n := range []int{1, 3, 64, 4097} {
		data := pattern(n)
		before := dev.Live()["buffer"]

		buf, err := ctx.Upload(data, driver.UsageStorage|driver.UsageTransferSrc)
		if err != nil {
			t.Fatalf("upload %d bytes: %+v", n, err)
		}
		if buf.Size() != uint64(n) {
			t.Errorf("size = %d, want %d", buf.Size(), n)
		}
		if buf.Usage()&driver.UsageTransferDst == 0 {
			t.Error("destination lacks transfer destination usage")
		}
		if got := dev.Live()["buffer"]; got != before+1 {
			t.Errorf("%d live buffers after upload, want %d", got, before+1)
		}

		device, err := soft.Contents(buf.Driver())
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(device[:n], data) {
			t.Errorf("device contents differ after %d byte upload", n)
		}

		back, err := ctx.Download(buf)
		if err != nil {
			t.Fatalf("download: %+v", err)
		}
		if !bytes.Equal(back, data) {
			t.Errorf("round trip of %d bytes differs", n)
		}
		if got := dev.Live()["buffer"]; got != before+1 {
			t.Errorf("download leaked a staging buffer")
		}
	}
}

func TestUploadIntegrated(t *testing.T) {
	ctx, _, _ := newTestContext(t, soft.IntegratedAdapter())
	data := Float32Bytes(TriangleVertices)
	buf, err := ctx.Upload(data, driver.UsageVertex|driver.UsageTransferSrc)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	back, err := ctx.Download(buf)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if !bytes.Equal(back, data) {
		t.Error("round trip differs")
	}
}

func TestUploadEmpty(t *testing.T) {
	ctx, _, _ := newTestContext(t)
	if _, err := ctx.Upload(nil, driver.UsageVertex); !errors.Is(err, ErrInitialization) {
		t.Errorf("got %v, want ErrInitialization", err)
	}
}

func TestUploadSubmitFailure(t *testing.T) {
	ctx, dev, _ := newTestContext(t)
	before := dev.Live()
	dev.FailNext(soft.OpSubmit, errors.New("device lost"))
	_, err := ctx.Upload(pattern(32), driver.UsageVertex)
	if !errors.Is(err, ErrSubmission) {
		t.Fatalf("got %v, want ErrSubmission", err)
	}
	after := dev.Live()
	if after["buffer"] != before["buffer"] || after["memory"] != before["memory"] {
		t.Errorf("failed upload leaked objects: before %v after %v", before, after)
	}

	// The shared command buffer is usable again.
	if _, err := ctx.Upload(pattern(32), driver.UsageVertex); err != nil {
		t.Errorf("upload after failure: %+v", err)
	}
}

func TestUploadNoHostVisibleMemory(t *testing.T) {
	cfg := soft.DefaultAdapter()
	cfg.MemoryTypes = cfg.MemoryTypes[:1]
	ctx, _, _ := newTestContext(t, cfg)
	_, err := ctx.Upload(pattern(16), driver.UsageVertex)
	if !errors.Is(err, ErrNoSuitableMemoryType) {
		t.Errorf("got %v, want ErrNoSuitableMemoryType", err)
	}
}

func TestDownloadNeedsTransferSource(t *testing.T) {
	ctx, _, _ := newTestContext(t)
	buf, err := ctx.Upload(pattern(16), driver.UsageVertex)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ctx.Download(buf); !errors.Is(err, ErrSubmission) {
		t.Errorf("got %v, want ErrSubmission", err)
	}
}
