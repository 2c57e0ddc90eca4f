package arena

import (
	"bytes"
	"testing"

	"ship-renderer/internal/graphics/gpu"
	"ship-renderer/internal/graphics/gpu/gputest"
)

func TestAllocateRangesAreDisjoint(t *testing.T) {
	dev := gputest.New()
	a := New(dev, gpu.ArrayBuffer, gpu.StreamDraw)

	chunks := [][]byte{
		{1, 2, 3},
		bytes.Repeat([]byte{4}, 40),
		{5},
		bytes.Repeat([]byte{6}, 300),
		{7, 8},
	}
	type rng struct{ off, n int }
	var got []rng
	for _, c := range chunks {
		buf, off := a.Allocate(c)
		if buf != a.Handle(false) {
			t.Fatalf("Expected buffer %d, got %d", a.Handle(false), buf)
		}
		got = append(got, rng{off, len(c)})
	}

	for i := range got {
		for j := range got {
			if i == j {
				continue
			}
			if got[i].off < got[j].off+got[j].n && got[j].off < got[i].off+got[i].n {
				t.Errorf("Ranges %d %v and %d %v overlap", i, got[i], j, got[j])
			}
		}
	}

	// every chunk must survive the reallocations that happened after it
	for i, c := range chunks {
		data := dev.BufferRange(a.Handle(false), got[i].off, got[i].n)
		if !bytes.Equal(data, c) {
			t.Errorf("Chunk %d: expected %v, got %v", i, c, data)
		}
	}
	if a.Len() != 3+40+1+300+2 {
		t.Errorf("Expected Len 346, got %d", a.Len())
	}
	if a.Cap() < a.Len() {
		t.Errorf("Cap %d smaller than Len %d", a.Cap(), a.Len())
	}
}

func TestGrowthFormula(t *testing.T) {
	dev := gputest.New()
	a := New(dev, gpu.ArrayBuffer, gpu.StreamDraw)

	a.Allocate(make([]byte, 10))
	if a.Cap() != 10 {
		t.Fatalf("Expected capacity 10 after first allocation, got %d", a.Cap())
	}
	a.Allocate(make([]byte, 5))
	if a.Cap() != 25 {
		t.Fatalf("Expected capacity 10+(10+5)=25, got %d", a.Cap())
	}
	a.Allocate(make([]byte, 10))
	if a.Cap() != 25 {
		t.Fatalf("Expected an exact fit to keep capacity 25, got %d", a.Cap())
	}
}

func TestClearRewindsToZero(t *testing.T) {
	dev := gputest.New()
	a := New(dev, gpu.UniformBuffer, gpu.StreamDraw)
	a.Allocate(make([]byte, 64))
	a.Allocate(make([]byte, 64))
	capBefore := a.Cap()

	a.Clear()
	if a.Len() != 0 {
		t.Errorf("Expected Len 0 after Clear, got %d", a.Len())
	}
	_, off := a.Allocate([]byte{9})
	if off != 0 {
		t.Errorf("Expected first allocation after Clear at 0, got %d", off)
	}
	if a.Cap() != capBefore {
		t.Errorf("Expected Clear to keep capacity %d, got %d", capBefore, a.Cap())
	}
}

func TestAlign(t *testing.T) {
	dev := gputest.New()
	a := New(dev, gpu.UniformBuffer, gpu.StreamDraw)
	a.Allocate(make([]byte, 3))
	a.Align(256)
	_, off := a.Allocate(make([]byte, 16))
	if off != 256 {
		t.Errorf("Expected aligned offset 256, got %d", off)
	}
	a.Align(256)
	if a.Len() != 512 {
		t.Errorf("Expected Len 512, got %d", a.Len())
	}
	a.Align(256)
	if a.Len() != 512 {
		t.Errorf("Expected aligning an aligned cursor to be a no-op, got %d", a.Len())
	}
}

func TestReleaseOnce(t *testing.T) {
	dev := gputest.New()
	a := New(dev, gpu.ArrayBuffer, gpu.StaticDraw)
	h := a.Handle(false)
	a.Release()
	a.Release()
	if n := dev.Deleted[uint32(h)]; n != 1 {
		t.Errorf("Expected buffer deleted once, got %d", n)
	}
}

func TestLeakedHandleSurvivesRelease(t *testing.T) {
	dev := gputest.New()
	a := New(dev, gpu.ArrayBuffer, gpu.StaticDraw)
	a.Allocate([]byte{1, 2, 3, 4})
	h := a.Handle(true)
	a.Release()
	if n := dev.Deleted[uint32(h)]; n != 0 {
		t.Errorf("Expected leaked buffer to stay alive, deleted %d times", n)
	}
}

func BenchmarkAllocate(b *testing.B) {
	dev := gputest.New()
	a := New(dev, gpu.ArrayBuffer, gpu.StreamDraw)
	data := make([]byte, 64)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if i%1024 == 0 {
			a.Clear()
		}
		a.Allocate(data)
	}
}
