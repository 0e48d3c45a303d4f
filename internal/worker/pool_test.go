package worker

import (
	"context"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/bryanchriswhite/focusshot/internal/annotate"
)

func checker(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				img.SetRGBA(x, y, color.RGBA{255, 255, 255, 255})
			} else {
				img.SetRGBA(x, y, color.RGBA{0, 0, 0, 255})
			}
		}
	}
	return img
}

func waitResult(t *testing.T, p *Pool) Result {
	t.Helper()
	select {
	case r := <-p.Results():
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for result")
	}
	return Result{}
}

func TestPoolComputesEffect(t *testing.T) {
	p := New(1)
	defer p.Close()

	owner := new(int)
	r := image.Rect(4, 4, 44, 34)
	ok := p.Submit(Job{
		Owner:   owner,
		Source:  checker(64, 48),
		Preview: annotate.Preview{EffectKind: annotate.MosaicPreview, Rect: r},
		Params:  annotate.DefaultEffectParams,
	})
	if !ok {
		t.Fatal("first submit should succeed")
	}

	res := waitResult(t, p)
	if res.Err != nil {
		t.Fatalf("job error: %v", res.Err)
	}
	if res.Owner != owner {
		t.Error("result lost its owner tag")
	}
	if res.Committed.Rect != r {
		t.Errorf("committed rect = %v, want %v", res.Committed.Rect, r)
	}
}

func TestPoolSubmitDropWhenBusy(t *testing.T) {
	p := New(2)
	defer p.Close()

	job := Job{
		Source:  checker(32, 32),
		Preview: annotate.Preview{EffectKind: annotate.BlurPreview, Rect: image.Rect(0, 0, 32, 32)},
		Params:  annotate.DefaultEffectParams,
	}
	if !p.Submit(job) {
		t.Fatal("first submit should succeed")
	}
	// the first result has not been drained, so the pool stays busy
	if p.Submit(job) {
		t.Fatal("second submit should drop while a job is outstanding")
	}
	if !p.Busy() {
		t.Error("pool should report busy")
	}

	waitResult(t, p)
	deadline := time.Now().Add(5 * time.Second)
	for p.Busy() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !p.Submit(job) {
		t.Fatal("submit should succeed once the result is drained")
	}
	waitResult(t, p)
}

func TestPoolCancelledJob(t *testing.T) {
	p := New(1)
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.Submit(Job{
		Ctx:     ctx,
		Source:  checker(8, 8),
		Preview: annotate.Preview{EffectKind: annotate.MosaicPreview, Rect: image.Rect(0, 0, 8, 8)},
	})
	if res := waitResult(t, p); res.Err == nil {
		t.Error("expected context error")
	}
}

func TestPoolClose(t *testing.T) {
	p := New(1)
	p.Close()
	p.Close()
	if p.Submit(Job{Source: checker(4, 4)}) {
		t.Error("submit accepted after close")
	}
}
