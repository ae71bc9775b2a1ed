// Package render turns an order receipt into a printed image: the HTML
// receipt is rendered in a headless browser, scaled to the paper width,
// and converted to the 1-bit raster format thermal printers accept.
package render

import "image"

// Printable dot widths for the supported paper sizes at 203 dpi.
const (
	dots58mm = 384
	dots80mm = 576
)

// dotsForPaper maps paper width in millimeters to printable dots.
func dotsForPaper(paperWidthMM int) int {
	if paperWidthMM == 58 {
		return dots58mm
	}
	return dots80mm
}

// resizeToWidth scales src to the target width, preserving aspect
// ratio, with nearest-neighbor sampling. Receipts are text on white, so
// cheap sampling is fine.
func resizeToWidth(src image.Image, targetWidth int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w == targetWidth {
		return src
	}

	scale := float64(targetWidth) / float64(w)
	newHeight := int(float64(h) * scale)

	dst := image.NewRGBA(image.Rect(0, 0, targetWidth, newHeight))
	for y := 0; y < newHeight; y++ {
		for x := 0; x < targetWidth; x++ {
			sx := int(float64(x) / scale)
			sy := int(float64(y) / scale)
			dst.Set(x, y, src.At(bounds.Min.X+sx, bounds.Min.Y+sy))
		}
	}
	return dst
}

// rasterize converts img to a GS v 0 raster command. Pixels darker than
// mid-gray print black. The raster width is rounded down to a multiple
// of 8 because the format packs 8 dots per byte.
func rasterize(img image.Image) []byte {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	width -= width % 8
	rowBytes := width / 8
	raster := make([]byte, rowBytes*height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			gray := (r + g + b) / 3
			if gray < 0x8000 {
				raster[y*rowBytes+x/8] |= 1 << (7 - x%8)
			}
		}
	}

	header := []byte{
		0x1D, 0x76, 0x30, 0x00,
		byte(rowBytes), byte(rowBytes >> 8),
		byte(height), byte(height >> 8),
	}
	return append(header, raster...)
}

// buildJob wraps a raster in a complete print job: initialize, image,
// feed, and cut.
func buildJob(raster []byte) []byte {
	job := make([]byte, 0, len(raster)+16)
	job = append(job, 0x1B, 0x40) // ESC @ initialize
	job = append(job, raster...)
	job = append(job, 0x1B, 0x64, 0x03)       // ESC d 3 feed
	job = append(job, 0x1D, 0x56, 0x41, 0x00) // GS V A 0 partial cut
	return job
}
