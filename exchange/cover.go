package exchange

import (
	"image"

	xdraw "golang.org/x/image/draw"

	"github.com/mezonai/vessel/stego"
)

// prepareCover picks the image a payload of n bytes is embedded into:
//   - no cover: a generated square, TargetSize if set, else the smallest side
//     (at least MinSide) that fits the payload
//   - cover and TargetSize: the cover resampled to TargetSize x TargetSize
//   - otherwise the cover unchanged
func prepareCover(cover image.Image, n uint64, opts ExportOptions) image.Image {
	if cover == nil {
		side := opts.TargetSize
		if side <= 0 {
			minSide := opts.MinSide
			if minSide <= 0 {
				minSide = stego.DefaultMinSide
			}
			side = stego.SideFor(n, minSide)
		}
		fill := opts.Fill
		if fill.A == 0 {
			fill = stego.DefaultFill
		}
		return stego.NewCover(side, fill)
	}

	if opts.TargetSize > 0 {
		b := cover.Bounds()
		if b.Dx() != opts.TargetSize || b.Dy() != opts.TargetSize {
			return ResizeCover(cover, opts.TargetSize)
		}
	}
	return cover
}

// ResizeCover resamples cover into a new side x side NRGBA image
func ResizeCover(cover image.Image, side int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, side, side))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), cover, cover.Bounds(), xdraw.Src, nil)
	return dst
}
