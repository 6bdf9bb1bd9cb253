package imagefile

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"testing"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestSniffValidPNG(t *testing.T) {
	info, err := Sniff(pngBytes(t, 32, 16), 1<<20)
	if err != nil {
		t.Fatalf("sniff: %v", err)
	}
	if info.Format != "png" || info.Width != 32 || info.Height != 16 {
		t.Fatalf("info = %+v", info)
	}
}

func TestSniffEmpty(t *testing.T) {
	if _, err := Sniff(nil, 1<<20); !errors.Is(err, ErrEmpty) {
		t.Fatalf("err = %v", err)
	}
}

func TestSniffTooLarge(t *testing.T) {
	data := pngBytes(t, 8, 8)
	if _, err := Sniff(data, int64(len(data)-1)); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("err = %v", err)
	}
}

func TestSniffNotAnImage(t *testing.T) {
	if _, err := Sniff([]byte("definitely not pixels"), 1<<20); !errors.Is(err, ErrNotAnImage) {
		t.Fatalf("err = %v", err)
	}
}
