package stego

import (
	"image"
	"image/color"

	xdraw "golang.org/x/image/draw"

	ledgererr "github.com/mezonai/vessel/errors"
)

// pixelBuffer addresses the RGB samples of an 8-bit, 4-bytes-per-pixel image
// by channel number: channel c lives in pixel c/3, sample c%3.
type pixelBuffer struct {
	pix    []uint8
	stride int
	rect   image.Rectangle
}

func (p pixelBuffer) capacity() uint64 {
	return uint64(p.rect.Dx()) * uint64(p.rect.Dy()) * channelsPerPixel
}

func (p pixelBuffer) offset(channel uint64) int {
	pixel := channel / channelsPerPixel
	width := uint64(p.rect.Dx())
	x := int(pixel % width)
	y := int(pixel / width)
	return y*p.stride + x*4 + int(channel%channelsPerPixel)
}

type bitWriter struct {
	buf pixelBuffer
	pos uint64
}

func (w *bitWriter) writeBytes(data []byte) {
	for _, b := range data {
		for shift := 7; shift >= 0; shift-- {
			bit := (b >> uint(shift)) & 1
			off := w.buf.offset(w.pos)
			w.buf.pix[off] = (w.buf.pix[off] &^ 1) | bit
			w.pos++
		}
	}
}

type bitReader struct {
	buf pixelBuffer
	pos uint64
}

func (r *bitReader) readByte() byte {
	var b byte
	for i := 0; i < 8; i++ {
		b = (b << 1) | (r.buf.pix[r.buf.offset(r.pos)] & 1)
		r.pos++
	}
	return b
}

func (r *bitReader) readBytes(n uint64) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = r.readByte()
	}
	return out
}

func (r *bitReader) readUint32() uint32 {
	var v uint32
	for i := 0; i < 4; i++ {
		v = (v << 8) | uint32(r.readByte())
	}
	return v
}

// cloneBuffer copies img into a new image of the same direct-colour type when
// possible so that untouched samples keep their exact bytes.
func cloneBuffer(img image.Image) (image.Image, pixelBuffer, error) {
	switch src := img.(type) {
	case *image.Paletted:
		return nil, pixelBuffer{}, ledgererr.NewUnsupportedImageError("paletted")
	case *image.NRGBA:
		out := &image.NRGBA{Pix: append([]uint8(nil), src.Pix...), Stride: src.Stride, Rect: src.Rect}
		return out, bufferOf(out.Pix, out.Stride, out.Rect, out.PixOffset), nil
	case *image.RGBA:
		// Premultiplied samples under partial alpha do not survive png.Encode,
		// which un-premultiplies them.
		if !src.Opaque() {
			out := toNRGBA(src)
			return out, bufferOf(out.Pix, out.Stride, out.Rect, out.PixOffset), nil
		}
		out := &image.RGBA{Pix: append([]uint8(nil), src.Pix...), Stride: src.Stride, Rect: src.Rect}
		return out, bufferOf(out.Pix, out.Stride, out.Rect, out.PixOffset), nil
	default:
		if IsPaletted(img) {
			return nil, pixelBuffer{}, ledgererr.NewUnsupportedImageError("paletted")
		}
		out := toNRGBA(img)
		return out, bufferOf(out.Pix, out.Stride, out.Rect, out.PixOffset), nil
	}
}

// viewBuffer exposes img's samples for reading. NRGBA and RGBA images are read
// in place; other models are converted into a private copy.
func viewBuffer(img image.Image) (pixelBuffer, error) {
	switch src := img.(type) {
	case *image.Paletted:
		return pixelBuffer{}, ledgererr.NewUnsupportedImageError("paletted")
	case *image.NRGBA:
		return bufferOf(src.Pix, src.Stride, src.Rect, src.PixOffset), nil
	case *image.RGBA:
		return bufferOf(src.Pix, src.Stride, src.Rect, src.PixOffset), nil
	default:
		if IsPaletted(img) {
			return pixelBuffer{}, ledgererr.NewUnsupportedImageError("paletted")
		}
		out := toNRGBA(img)
		return bufferOf(out.Pix, out.Stride, out.Rect, out.PixOffset), nil
	}
}

// bufferOf slices pix so that offset 0 is the top-left pixel of rect
func bufferOf(pix []uint8, stride int, rect image.Rectangle, pixOffset func(x, y int) int) pixelBuffer {
	if rect.Empty() {
		return pixelBuffer{rect: rect, stride: stride}
	}
	start := pixOffset(rect.Min.X, rect.Min.Y)
	return pixelBuffer{pix: pix[start:], stride: stride, rect: rect}
}

func toNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(b)
	xdraw.Draw(out, b, img, b.Min, xdraw.Src)
	return out
}

// IsPaletted reports whether the codec would reject img
func IsPaletted(img image.Image) bool {
	_, ok := img.ColorModel().(color.Palette)
	return ok
}
