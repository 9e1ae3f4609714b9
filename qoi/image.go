package qoi

import (
	"image"
	"image/color"
)

// Image is a decoded QOI image: the parsed header plus the raw pixel
// buffer, laid out top-to-bottom, left-to-right with Header.Channels
// bytes per pixel.
type Image struct {
	Header Header
	Pix    []byte
}

func (m *Image) ColorModel() color.Model {
	return color.NRGBAModel
}

func (m *Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, int(m.Header.Width), int(m.Header.Height))
}

func (m *Image) At(x, y int) color.Color {
	bpp := int(m.Header.Channels)
	off := (y*int(m.Header.Width) + x) * bpp
	if bpp == 3 {
		return color.NRGBA{R: m.Pix[off], G: m.Pix[off+1], B: m.Pix[off+2], A: 255}
	}
	return color.NRGBA{R: m.Pix[off], G: m.Pix[off+1], B: m.Pix[off+2], A: m.Pix[off+3]}
}

// NRGBA copies the image into the stdlib representation, expanding
// 3-channel pixels with an opaque alpha.
func (m *Image) NRGBA() *image.NRGBA {
	img := image.NewNRGBA(m.Bounds())
	if m.Header.Channels == 4 {
		copy(img.Pix, m.Pix)
		return img
	}
	for src, dst := 0, 0; src < len(m.Pix); src, dst = src+3, dst+4 {
		img.Pix[dst] = m.Pix[src]
		img.Pix[dst+1] = m.Pix[src+1]
		img.Pix[dst+2] = m.Pix[src+2]
		img.Pix[dst+3] = 255
	}
	return img
}
