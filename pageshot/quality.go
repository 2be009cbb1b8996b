// CLAUDE:SUMMARY Quality verifier: minimum size and non-blank checks on captures, grayscale helpers shared with the stitcher.
package pageshot

import (
	"fmt"
	"image"
	"image/color"
)

// Verdict is the outcome of a quality check.
type Verdict struct {
	OK       bool    `json:"ok"`
	Reason   string  `json:"reason,omitempty"`
	InkRatio float64 `json:"ink_ratio"`
}

// Err returns nil for an accepted verdict, or an error wrapping
// ErrQualityRejected.
func (v Verdict) Err() error {
	if v.OK {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrQualityRejected, v.Reason)
}

// QualityParams are the acceptance thresholds for a capture.
type QualityParams struct {
	MinSide     int
	NearWhite   uint8
	MinInkRatio float64
}

func (c Config) qualityParams() QualityParams {
	return QualityParams{MinSide: c.MinSide, NearWhite: c.NearWhite, MinInkRatio: c.MinInkRatio}
}

// CheckSize rejects images narrower or shorter than minSide.
func CheckSize(width, height, minSide int) Verdict {
	if width < minSide || height < minSide {
		return Verdict{Reason: fmt.Sprintf("too small: %dx%d (min %d)", width, height, minSide)}
	}
	return Verdict{OK: true}
}

// VerifyCapture accepts an image when both sides reach MinSide and at least
// MinInkRatio of its pixels are darker than NearWhite. Anything else is
// treated as a blank or still-loading capture.
func VerifyCapture(img image.Image, p QualityParams) Verdict {
	if img == nil {
		return Verdict{Reason: "no image"}
	}
	b := img.Bounds()
	if v := CheckSize(b.Dx(), b.Dy(), p.MinSide); !v.OK {
		return v
	}

	total := b.Dx() * b.Dy()
	need := int(p.MinInkRatio * float64(total))
	if need < 1 {
		need = 1
	}

	gray := grayFunc(img)
	ink := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if gray(x, y) < p.NearWhite {
				ink++
			}
		}
	}

	ratio := float64(ink) / float64(total)
	if ink < need {
		return Verdict{InkRatio: ratio, Reason: fmt.Sprintf("blank: ink ratio %.4f below %.4f", ratio, p.MinInkRatio)}
	}
	return Verdict{OK: true, InkRatio: ratio}
}

// grayFunc returns a fast 8-bit luma accessor for img. The RGBA and NRGBA
// paths use the same weights as color.GrayModel.
func grayFunc(img image.Image) func(x, y int) uint8 {
	switch m := img.(type) {
	case *image.RGBA:
		return func(x, y int) uint8 {
			i := m.PixOffset(x, y)
			return luma(m.Pix[i], m.Pix[i+1], m.Pix[i+2])
		}
	case *image.NRGBA:
		return func(x, y int) uint8 {
			i := m.PixOffset(x, y)
			a := uint32(m.Pix[i+3])
			r := uint32(m.Pix[i]) * a / 0xff
			g := uint32(m.Pix[i+1]) * a / 0xff
			bl := uint32(m.Pix[i+2]) * a / 0xff
			return luma(uint8(r), uint8(g), uint8(bl))
		}
	case *image.Gray:
		return func(x, y int) uint8 { return m.Pix[m.PixOffset(x, y)] }
	default:
		return func(x, y int) uint8 {
			return color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y
		}
	}
}

func luma(r, g, b uint8) uint8 {
	r16, g16, b16 := uint32(r)*0x101, uint32(g)*0x101, uint32(b)*0x101
	y := (19595*r16 + 38470*g16 + 7471*b16 + 1<<15) >> 24
	return uint8(y)
}
