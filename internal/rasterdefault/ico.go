package rasterdefault

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/png"
	"io"
)

// encodeICO writes img as a single-frame Windows icon wrapping a PNG
// payload, the format every icon reader since Vista accepts in place
// of the legacy uncompressed DIB encoding. No ICO writer appears
// anywhere in the reference corpus (only PDF/font readers do), so this
// is a minimal from-scratch container: a 6-byte ICONDIR header, one
// 16-byte ICONDIRENTRY, then the PNG bytes themselves.
func encodeICO(w io.Writer, img image.Image) error {
	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		return fmt.Errorf("encode embedded PNG: %w", err)
	}
	payload := pngBuf.Bytes()

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	var out bytes.Buffer

	// ICONDIR: reserved(0), type(1=icon), count(1)
	binary.Write(&out, binary.LittleEndian, uint16(0))
	binary.Write(&out, binary.LittleEndian, uint16(1))
	binary.Write(&out, binary.LittleEndian, uint16(1))

	// ICONDIRENTRY. Width/height fields are single bytes; 0 means 256,
	// which also covers any dimension that doesn't fit in a byte — the
	// real pixel size is still recoverable from the embedded PNG header.
	out.WriteByte(dimByte(width))
	out.WriteByte(dimByte(height))
	out.WriteByte(0)  // color count, 0 = no palette
	out.WriteByte(0)  // reserved
	binary.Write(&out, binary.LittleEndian, uint16(1))  // color planes
	binary.Write(&out, binary.LittleEndian, uint16(32)) // bits per pixel
	binary.Write(&out, binary.LittleEndian, uint32(len(payload)))
	binary.Write(&out, binary.LittleEndian, uint32(6+16)) // offset: header + one entry

	out.Write(payload)

	_, err := w.Write(out.Bytes())
	return err
}

func dimByte(v int) byte {
	if v <= 0 || v >= 256 {
		return 0
	}
	return byte(v)
}
