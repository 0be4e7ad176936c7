// Package convert post-processes the rendered greyscale canvas for the panel:
// level quantization, rotation and packed frame output.
package convert

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

// Quantize maps every pixel onto levels evenly spaced grey values, both
// extremes included. levels <= 1 or >= 256 returns img unchanged; otherwise
// the result is a new image.
func Quantize(img *image.Gray, levels int) *image.Gray {
	if levels <= 1 || levels >= 256 {
		return img
	}

	// One lookup entry per input value.
	var lut [256]uint8
	n := levels - 1
	for v := range lut {
		idx := (v*n + 127) / 255
		lut[v] = uint8(idx * 255 / n)
	}

	b := img.Bounds()
	out := image.NewGray(b)
	w := b.Dx()
	for y := 0; y < b.Dy(); y++ {
		src := img.Pix[y*img.Stride : y*img.Stride+w]
		dst := out.Pix[y*out.Stride : y*out.Stride+w]
		for x, v := range src {
			dst[x] = lut[v]
		}
	}
	return out
}

// Rotate turns img counter-clockwise by degrees, which must be 0, 90, 180 or
// 270.
func Rotate(img *image.Gray, degrees int) (*image.Gray, error) {
	var rotated *image.NRGBA
	switch degrees {
	case 0:
		return img, nil
	case 90:
		rotated = imaging.Rotate90(img)
	case 180:
		rotated = imaging.Rotate180(img)
	case 270:
		rotated = imaging.Rotate270(img)
	default:
		return nil, fmt.Errorf("convert: unsupported rotation %d", degrees)
	}

	out := image.NewGray(rotated.Bounds())
	draw.Draw(out, out.Rect, rotated, rotated.Rect.Min, draw.Src)
	return out, nil
}
