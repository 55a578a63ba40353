package ocr

import (
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"
)

// Variant is one pre-processed rendering of the source scan.
type Variant struct {
	Name  string
	Image image.Image
}

// Rendering names, in the fixed order they are produced and scored.
const (
	VariantOtsu         = "otsu"
	VariantOtsuInverted = "otsu-inverted"
	VariantAdaptive     = "adaptive"
	VariantContrastOtsu = "contrast-otsu"
	VariantBlurOtsu     = "blur-otsu"
)

// VariantNames lists the renderings produced by Render, in order.
var VariantNames = []string{VariantOtsu, VariantOtsuInverted, VariantAdaptive, VariantContrastOtsu, VariantBlurOtsu}

const (
	adaptiveSigma  = 35.0 / 6 // gaussian approximating a 35px neighbourhood
	adaptiveOffset = 11
	contrastBoost  = 40
	blurRadius     = 1.0
)

// Render produces the binarized renderings of img in VariantNames order.
func Render(img image.Image) []Variant {
	gray := toGray(effect.Grayscale(img))
	otsu := binarize(gray)

	return []Variant{
		{Name: VariantOtsu, Image: otsu},
		// inverted labels sometimes pop better on dark chart backgrounds
		{Name: VariantOtsuInverted, Image: effect.Grayscale(effect.Invert(otsu))},
		{Name: VariantAdaptive, Image: adaptiveThreshold(gray, adaptiveSigma, adaptiveOffset)},
		{Name: VariantContrastOtsu, Image: binarize(toGray(effect.Grayscale(imaging.AdjustContrast(gray, contrastBoost))))},
		// light blur first helps with speckle
		{Name: VariantBlurOtsu, Image: binarize(toGray(effect.Grayscale(blur.Gaussian(gray, blurRadius))))},
	}
}

// toGray copies img into an *image.Gray; bild's Grayscale returns *image.RGBA.
func toGray(img image.Image) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out.Set(x, y, color.GrayModel.Convert(img.At(x, y)))
		}
	}
	return out
}

func binarize(gray *image.Gray) *image.Gray {
	return segment.Threshold(gray, OtsuLevel(gray))
}

// OtsuLevel returns the threshold that maximizes between-class variance of the
// grey histogram. Pixels at or above the level are foreground-white.
func OtsuLevel(gray *image.Gray) uint8 {
	var hist [256]int
	b := gray.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			hist[gray.GrayAt(x, y).Y]++
		}
	}
	total := b.Dx() * b.Dy()
	if total == 0 {
		return 128
	}

	var sumAll float64
	for i, c := range hist {
		sumAll += float64(i * c)
	}

	var (
		sumBg    float64
		weightBg int
		bestVar  float64
		level    int
	)
	for t := 0; t < 256; t++ {
		weightBg += hist[t]
		if weightBg == 0 {
			continue
		}
		weightFg := total - weightBg
		if weightFg == 0 {
			break
		}
		sumBg += float64(t * hist[t])
		meanBg := sumBg / float64(weightBg)
		meanFg := (sumAll - sumBg) / float64(weightFg)
		between := float64(weightBg) * float64(weightFg) * (meanBg - meanFg) * (meanBg - meanFg)
		if between > bestVar {
			bestVar = between
			level = t
		}
	}
	// segment.Threshold keeps values >= level, the class above t.
	return uint8(min(level+1, 255))
}

// adaptiveThreshold marks a pixel white when it is brighter than its gaussian
// neighbourhood mean minus offset.
func adaptiveThreshold(gray *image.Gray, sigma float64, offset int) *image.Gray {
	mean := imaging.Blur(gray, sigma)
	b := gray.Bounds()
	out := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			local := int(mean.NRGBAAt(x-b.Min.X, y-b.Min.Y).R)
			if int(gray.GrayAt(x, y).Y) > local-offset {
				out.SetGray(x, y, color.Gray{Y: 255})
			} else {
				out.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
	return out
}
