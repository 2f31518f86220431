package imaging

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/convolution"
	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
)

// ContrastFactor is the fixed contrast multiplier applied during normalization.
const ContrastFactor = 2.0

// ITU-R 601-2 luma weights.
const (
	lumaR = 0.299
	lumaG = 0.587
	lumaB = 0.114
)

// sharpenKernel is the classic 3x3 "sharpen" filter, applied with a scale of
// sharpenScale so flat regions keep their level.
var sharpenKernel = []float64{
	-2, -2, -2,
	-2, 32, -2,
	-2, -2, -2,
}

const sharpenScale = 16

// Normalize converts an arbitrary decoded image into the canonical bitmap used
// for text recognition.
//
// The steps run in a fixed order:
//
//  1. Force a 3-channel interpretation (alpha is discarded, not composited)
//  2. Convert to single-channel luminance
//  3. Enhance contrast by ContrastFactor around the mean luminance
//  4. Apply the fixed sharpen kernel
//
// No resizing, deskewing or rotation is performed. The input is never
// modified; the result is a new *image.Gray with the same dimensions.
func Normalize(img image.Image) *image.Gray {
	rgb := opaque(img)
	gray := toGray(effect.GrayscaleWithWeights(rgb, lumaR, lumaG, lumaB))
	return Sharpen(Contrast(gray, ContrastFactor))
}

// Contrast scales each pixel's distance from the image's mean luminance by
// factor. A factor of 1 returns an identical copy; values are clamped to 0..255.
func Contrast(gray *image.Gray, factor float64) *image.Gray {
	mean := math.Floor(meanLuminance(gray) + 0.5)

	var lut [256]uint8
	for i := range lut {
		v := mean + factor*(float64(i)-mean)
		lut[i] = uint8(math.Max(0, math.Min(255, math.Round(v))))
	}

	out := adjust.Apply(gray, func(c color.RGBA) color.RGBA {
		return color.RGBA{R: lut[c.R], G: lut[c.G], B: lut[c.B], A: c.A}
	})
	return toGray(out)
}

// Sharpen applies the fixed 3x3 sharpen kernel. Results are rounded to the
// nearest level; edge pixels are convolved against clamped neighbours.
func Sharpen(gray *image.Gray) *image.Gray {
	k := convolution.NewKernel(3, 3)
	for i, w := range sharpenKernel {
		k.Matrix[i] = w / sharpenScale
	}

	out := convolution.Convolve(gray, k, &convolution.Options{
		Bias:      0.5,
		Wrap:      false,
		KeepAlpha: true,
	})
	return toGray(out)
}

// Invert returns the tonal inverse of a bitmap (light text on dark becomes
// dark text on light).
func Invert(img image.Image) *image.Gray {
	return toGray(imaging.Invert(img))
}

// opaque returns an NRGBA copy of img with every pixel's alpha forced to 255.
func opaque(img image.Image) *image.NRGBA {
	dst := imaging.Clone(img)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}

func meanLuminance(gray *image.Gray) float64 {
	b := gray.Bounds()
	if b.Empty() {
		return 0
	}

	var sum uint64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := gray.Pix[gray.PixOffset(b.Min.X, y):gray.PixOffset(b.Max.X, y)]
		for _, v := range row {
			sum += uint64(v)
		}
	}
	return float64(sum) / float64(b.Dx()*b.Dy())
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	dst := image.NewGray(b)
	draw.Draw(dst, b, img, b.Min, draw.Src)
	return dst
}
