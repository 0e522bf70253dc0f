package rasterdefault

import (
	"bytes"
	"fmt"
	"image/gif"
	"image/jpeg"
	"image/png"

	"github.com/chai2010/webp"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"captchaforge/render"
)

// Encode serializes the canvas image in the requested format. BMP and
// TIFF route through golang.org/x/image, WEBP through chai2010/webp;
// everything else the standard library already covers. ICO and PDF
// have no encoder anywhere in the reference corpus, so they are
// hand-rolled minimal container writers (see ico.go, pdf.go).
func (b *Backend) Encode(c render.Canvas, format render.Format) ([]byte, error) {
	cv, ok := c.(*canvas)
	if !ok {
		return nil, fmt.Errorf("rasterdefault: Encode: not a rasterdefault canvas")
	}
	img := cv.dc.Image()

	var buf bytes.Buffer
	switch format {
	case render.FormatPNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("rasterdefault: encode PNG: %w", err)
		}
	case render.FormatJPEG:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
			return nil, fmt.Errorf("rasterdefault: encode JPEG: %w", err)
		}
	case render.FormatGIF:
		if err := gif.Encode(&buf, img, nil); err != nil {
			return nil, fmt.Errorf("rasterdefault: encode GIF: %w", err)
		}
	case render.FormatBMP:
		if err := bmp.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("rasterdefault: encode BMP: %w", err)
		}
	case render.FormatTIFF:
		if err := tiff.Encode(&buf, img, nil); err != nil {
			return nil, fmt.Errorf("rasterdefault: encode TIFF: %w", err)
		}
	case render.FormatWEBP:
		if err := webp.Encode(&buf, img, &webp.Options{Lossless: true}); err != nil {
			return nil, fmt.Errorf("rasterdefault: encode WEBP: %w", err)
		}
	case render.FormatICO:
		if err := encodeICO(&buf, img); err != nil {
			return nil, fmt.Errorf("rasterdefault: encode ICO: %w", err)
		}
	case render.FormatPDF:
		if err := encodePDF(&buf, img); err != nil {
			return nil, fmt.Errorf("rasterdefault: encode PDF: %w", err)
		}
	default:
		return nil, fmt.Errorf("rasterdefault: unsupported format %q", format)
	}
	return buf.Bytes(), nil
}
