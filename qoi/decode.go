package qoi

import (
	"fmt"
	"image"
	"image/color"
	"io"
)

func init() {
	image.RegisterFormat("qoi", qoiMagic, Decode, DecodeConfig)
}

// Decode reads a QOI image from r and returns it as an image.Image.
func Decode(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("could not read the image data: %w", err)
	}
	img, err := DecodePixels(data)
	if err != nil {
		return nil, err
	}
	return img.NRGBA(), nil
}

// DecodeConfig returns the color model and dimensions of a QOI image
// without decoding the entire image.
func DecodeConfig(r io.Reader) (image.Config, error) {
	var headerBytes [headerLength]byte
	if _, err := io.ReadFull(r, headerBytes[:]); err != nil {
		return image.Config{}, fmt.Errorf("%w: %v", ErrTooSmall, err)
	}
	header, err := ParseHeader(headerBytes[:])
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{
		ColorModel: color.NRGBAModel,
		Width:      int(header.Width),
		Height:     int(header.Height),
	}, nil
}

// DecodePixels decodes a complete QOI bytestream into a freshly
// allocated pixel buffer of Width*Height*Channels bytes.
//
// Bytes after the last decoded pixel, including the end marker, are
// not inspected. If the opcode stream runs short the remaining pixels
// repeat the last materialized one, matching the reference decoder's
// leniency.
//
// The output allocation is bounded by MaxPixels*4 bytes; a failing
// allocation panics as usual in Go rather than returning an error.
func DecodePixels(data []byte) (*Image, error) {
	header, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}
	count := header.pixelCount()
	if count > MaxPixels {
		return nil, fmt.Errorf("%w: %d pixels", ErrImageTooLarge, count)
	}
	dec := decoder{
		data:          data,
		header:        header,
		cursor:        headerLength,
		lastTagCursor: len(data) - epilogueLength,
		currentPixel:  pixel{0, 0, 0, 255},
		out:           make([]byte, count*uint64(header.Channels)),
	}
	if err := dec.decodeBody(); err != nil {
		return nil, err
	}
	return &Image{Header: header, Pix: dec.out}, nil
}

type decoder struct {
	data          []byte
	header        Header
	cursor        int
	lastTagCursor int

	window       [windowLength]pixel
	currentPixel pixel
	currentByte  byte
	run          byte

	out    []byte
	outOff int
}

func (d *decoder) decodeBody() error {
	bpp := int(d.header.Channels)
	for d.outOff < len(d.out) {
		if d.run > 0 {
			d.run--
		} else if d.cursor < d.lastTagCursor {
			d.currentByte = d.data[d.cursor]
			d.cursor++
			if err := d.dispatchOP(); err != nil {
				return err
			}
			if getOP(d.currentByte) != qoi_OP_RUN {
				d.cacheCurrentPixel()
			}
		}
		d.writeCurrentPixel(bpp)
	}
	return nil
}

func (d *decoder) cacheCurrentPixel() {
	d.window[d.currentPixel.Hash()] = d.currentPixel
}

func (d *decoder) writeCurrentPixel(bpp int) {
	copy(d.out[d.outOff:d.outOff+bpp], d.currentPixel[:bpp])
	d.outOff += bpp
}

func (d *decoder) dispatchOP() error {
	switch op := getOP(d.currentByte); op {
	case qoi_OP_RGB:
		d.op_RGB()
	case qoi_OP_RGBA:
		d.op_RGBA()
	case qoi_OP_INDEX:
		d.op_INDEX()
	case qoi_OP_DIFF:
		d.op_DIFF()
	case qoi_OP_LUMA:
		d.op_LUMA()
	case qoi_OP_RUN:
		d.op_RUN()
	default:
		return fmt.Errorf("%w: tag %#02x", ErrInvalidEncoding, d.currentByte)
	}
	return nil
}

// op_RGB replaces the color components and keeps the previous alpha.
// The byte order on the wire is R, G, B.
func (d *decoder) op_RGB() {
	d.currentPixel[0] = d.data[d.cursor]
	d.currentPixel[1] = d.data[d.cursor+1]
	d.currentPixel[2] = d.data[d.cursor+2]
	d.cursor += 3
}

func (d *decoder) op_RGBA() {
	copy(d.currentPixel[:], d.data[d.cursor:d.cursor+4])
	d.cursor += 4
}

// The INDEX payload sits in the low six bits; the high two are the
// zero tag, so the whole byte is the slot number.
func (d *decoder) op_INDEX() {
	d.currentPixel = d.window[d.currentByte]
}

func (d *decoder) op_DIFF() {
	r, g, b := getDIFFValues(d.currentByte)
	d.currentPixel.Add(r, g, b)
}

func getDIFFValues(diff byte) (byte, byte, byte) {
	return diff>>4&0b11 - diffBias, diff>>2&0b11 - diffBias, diff&0b11 - diffBias
}

func (d *decoder) op_LUMA() {
	b2 := d.data[d.cursor]
	d.cursor++
	r, g, b := getLUMAValues(d.currentByte, b2)
	d.currentPixel.Add(r, g, b)
}

func getLUMAValues(b1, b2 byte) (byte, byte, byte) {
	diffGreen := b1&0b00111111 - lumaGreenBias
	diffRed := diffGreen + b2>>4&0b1111 - lumaBias
	diffBlue := diffGreen + b2&0b1111 - lumaBias
	return diffRed, diffGreen, diffBlue
}

// op_RUN carries n-1, so the current pixel plus `payload` repeats
// produce n pixels in total.
func (d *decoder) op_RUN() {
	d.run = d.currentByte & 0b00111111
}
