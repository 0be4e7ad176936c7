package convert

import "image"

// Pack4 packs img into 4 bits per pixel for 16-level e-ink panels.
//
// Layout is y-major with two pixels per byte, the left pixel in the high
// nibble. Each row starts on a byte boundary, so the row stride is
// (width+1)/2 and an odd final pixel leaves the low nibble zero.
// Nibble value is the top four bits of the grey value: 0x0 is black, 0xF white.
func Pack4(img *image.Gray) []byte {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	stride := (w + 1) / 2
	out := make([]byte, stride*h)

	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w]
		dst := out[y*stride : (y+1)*stride]
		for x, v := range row {
			nibble := v >> 4
			if x&1 == 0 {
				dst[x>>1] = nibble << 4
			} else {
				dst[x>>1] |= nibble
			}
		}
	}
	return out
}
