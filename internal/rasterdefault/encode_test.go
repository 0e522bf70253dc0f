package rasterdefault

import (
	"bytes"
	"image"
	"image/color"
	"testing"
)

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func TestEncodeICOHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := encodeICO(&buf, testImage(32, 32)); err != nil {
		t.Fatalf("encodeICO: %v", err)
	}
	data := buf.Bytes()
	if len(data) < 6+16 {
		t.Fatalf("ICO output too short: %d bytes", len(data))
	}
	if data[2] != 1 || data[3] != 0 {
		t.Errorf("ICONDIR type field should be 1 (icon), got %d/%d", data[2], data[3])
	}
	if data[4] != 1 || data[5] != 0 {
		t.Errorf("ICONDIR count field should be 1, got %d/%d", data[4], data[5])
	}
	// PNG signature should begin right after the 22-byte header.
	pngSig := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}
	if !bytes.Equal(data[22:22+len(pngSig)], pngSig) {
		t.Error("embedded payload does not start with a PNG signature")
	}
}

func TestEncodeICOLargeDimension(t *testing.T) {
	var buf bytes.Buffer
	if err := encodeICO(&buf, testImage(750, 250)); err != nil {
		t.Fatalf("encodeICO: %v", err)
	}
	data := buf.Bytes()
	// Width/height bytes (offsets 6,7) must be 0 ("256") for
	// dimensions that don't fit a single byte.
	if data[6] != 0 || data[7] != 0 {
		t.Errorf("expected width/height byte 0 for an out-of-range dimension, got %d/%d", data[6], data[7])
	}
}

func TestEncodePDFStructure(t *testing.T) {
	var buf bytes.Buffer
	if err := encodePDF(&buf, testImage(100, 50)); err != nil {
		t.Fatalf("encodePDF: %v", err)
	}
	data := buf.Bytes()
	if !bytes.HasPrefix(data, []byte("%PDF-1.4")) {
		t.Error("missing PDF header")
	}
	if !bytes.Contains(data, []byte("/Type /Catalog")) {
		t.Error("missing catalog object")
	}
	if !bytes.Contains(data, []byte("/Filter /DCTDecode")) {
		t.Error("missing DCTDecode image filter")
	}
	if !bytes.Contains(data, []byte("startxref")) {
		t.Error("missing xref trailer")
	}
}

func TestDimByte(t *testing.T) {
	cases := map[int]byte{0: 0, 1: 1, 255: 255, 256: 0, 750: 0, -1: 0}
	for in, want := range cases {
		if got := dimByte(in); got != want {
			t.Errorf("dimByte(%d) = %d, want %d", in, got, want)
		}
	}
}
