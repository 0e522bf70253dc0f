package rasterdefault

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"io"
)

// encodePDF writes img as a single-page PDF whose page is exactly the
// image's pixel dimensions (in points), with the image embedded as a
// DCTDecode (JPEG) XObject. No PDF *writer* exists anywhere in the
// reference corpus — only readers (ledongthuc/pdf, a seehuhn-go-pdf
// font-table snippet, a Geek0x0-pdf inspector) — so this hand-rolls the
// minimal object graph a PDF viewer needs: catalog, one page, one
// image XObject, one content stream that paints it full-bleed.
func encodePDF(w io.Writer, img image.Image) error {
	var jpegBuf bytes.Buffer
	if err := jpeg.Encode(&jpegBuf, img, &jpeg.Options{Quality: 92}); err != nil {
		return fmt.Errorf("encode embedded JPEG: %w", err)
	}
	jpegBytes := jpegBuf.Bytes()

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	content := []byte(fmt.Sprintf("q %d 0 0 %d 0 0 cm /Im0 Do Q\n", width, height))

	var buf bytes.Buffer
	offsets := make([]int, 0, 6)
	buf.WriteString("%PDF-1.4\n")

	writeObj := func(n int, body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", n, body)
	}

	writeObj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	writeObj(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	writeObj(3, fmt.Sprintf(
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %d %d] "+
			"/Resources << /XObject << /Im0 4 0 R >> >> /Contents 5 0 R >>",
		width, height))
	writeObj(4, fmt.Sprintf(
		"<< /Type /XObject /Subtype /Image /Width %d /Height %d "+
			"/ColorSpace /DeviceRGB /BitsPerComponent 8 /Filter /DCTDecode "+
			"/Length %d >>\nstream\n%s\nendstream",
		width, height, len(jpegBytes), jpegBytes))
	writeObj(5, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))

	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF",
		len(offsets)+1, xrefOffset)

	_, err := w.Write(buf.Bytes())
	return err
}
