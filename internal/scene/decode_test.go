package scene

import (
	"bytes"
	"image"
	"image/png"
	"strings"
	"testing"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

func TestDecodeImagesKeepsIndices(t *testing.T) {
	var jobs []decodeJob
	for i := 1; i <= 8; i++ {
		jobs = append(jobs, decodeJob{index: i, data: encodePNG(t, i, 1)})
	}
	out, err := decodeImages(jobs, 10)
	if err != nil {
		t.Fatalf("decodeImages failed: %v", err)
	}
	if len(out) != 10 || out[0] != nil || out[9] != nil {
		t.Fatalf("Expected 10 slots with 0 and 9 empty, got %d", len(out))
	}
	for i := 1; i <= 8; i++ {
		if w := out[i].Rect.Dx(); w != i {
			t.Errorf("Expected image %d to be %d wide, got %d", i, i, w)
		}
	}
}

func TestDecodeImagesReportsLowestFailure(t *testing.T) {
	jobs := []decodeJob{
		{index: 0, data: encodePNG(t, 2, 2)},
		{index: 3, data: []byte("not an image")},
		{index: 2, data: []byte("also not an image")},
	}
	_, err := decodeImages(jobs, 4)
	if err == nil {
		t.Fatalf("Expected a decode error")
	}
	if !strings.HasPrefix(err.Error(), "image 2:") {
		t.Errorf("Expected the error of image 2, got %v", err)
	}
}

func TestDecodeImagesEmpty(t *testing.T) {
	out, err := decodeImages(nil, 3)
	if err != nil || len(out) != 3 {
		t.Errorf("Expected 3 empty slots, got %v %v", out, err)
	}
}

func BenchmarkDecodeImages(b *testing.B) {
	var buf bytes.Buffer
	png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 256, 256)))
	jobs := make([]decodeJob, 16)
	for i := range jobs {
		jobs[i] = decodeJob{index: i, data: buf.Bytes()}
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := decodeImages(jobs, len(jobs)); err != nil {
			b.Fatal(err)
		}
	}
}
