package qoi

import (
	"bufio"
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"
)

// Encode writes the image m to w in QOI format. Any image.Image may be
// encoded; images that are not *image.NRGBA are converted first.
func Encode(w io.Writer, m image.Image) error {
	return NewEncoder(w, m).Encode()
}

// EncodePixels encodes a raw pixel buffer of exactly
// Width*Height*Channels bytes and returns the QOI bytestream.
func EncodePixels(pix []byte, header Header) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, encodeSizeHint(len(pix))))
	enc := Encoder{out: bufio.NewWriter(buf), header: header, pix: pix}
	if err := enc.Encode(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Opcode selection makes the output data-dependent; a third of the raw
// size is a good starting point for typical graphical content, with a
// small floor so tiny images do not reallocate.
func encodeSizeHint(rawLen int) int {
	hint := rawLen * 32 / 100
	if hint < 512 {
		hint = 512
	}
	return hint + headerLength + epilogueLength
}

type Encoder struct {
	out    *bufio.Writer
	header Header
	pix    []byte

	window                      [windowLength]pixel
	previousPixel, currentPixel pixel
	run                         byte
}

// NewEncoder prepares an encoder that writes img to out with
// channels=4 and an sRGB colorspace byte.
func NewEncoder(out io.Writer, img image.Image) *Encoder {
	nrgba := asNRGBA(img)
	return &Encoder{
		out: bufio.NewWriter(out),
		header: Header{
			Width:    uint32(nrgba.Rect.Dx()),
			Height:   uint32(nrgba.Rect.Dy()),
			Channels: 4,
		},
		pix: nrgba.Pix,
	}
}

func asNRGBA(img image.Image) *image.NRGBA {
	if nrgba, ok := img.(*image.NRGBA); ok {
		if nrgba.Rect.Min == (image.Point{}) && nrgba.Stride == 4*nrgba.Rect.Dx() {
			return nrgba
		}
	}
	return convertImageToNRGBA(img)
}

func convertImageToNRGBA(img image.Image) *image.NRGBA {
	bounds := img.Bounds()
	newImg := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y))
			newImg.SetNRGBA(x, y, c.(color.NRGBA))
		}
	}
	return newImg
}

// Encode validates the input, then writes the header, the opcode
// stream and the end marker. Validation happens before the first byte
// is written, so a failed encode leaves the sink untouched unless the
// sink itself errors.
func (enc *Encoder) Encode() error {
	if err := enc.validateInput(); err != nil {
		return err
	}
	if err := enc.header.write(enc.out); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	if err := enc.encodeBody(); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}

func (enc *Encoder) validateInput() error {
	if len(enc.pix) == 0 {
		return ErrEmptyPixelBuffer
	}
	if err := enc.header.validate(); err != nil {
		return err
	}
	count := enc.header.pixelCount()
	if count == 0 {
		return ErrZeroPixelCount
	}
	if count > MaxPixels {
		return fmt.Errorf("%w: %d pixels", ErrImageTooLarge, count)
	}
	if uint64(len(enc.pix)) != count*uint64(enc.header.Channels) {
		return fmt.Errorf("%w: have %d bytes, want %d", ErrPixelBufferSize, len(enc.pix), count*uint64(enc.header.Channels))
	}
	return nil
}

func (enc *Encoder) encodeBody() error {
	enc.previousPixel = pixel{0, 0, 0, 255}
	enc.currentPixel = enc.previousPixel
	bpp := int(enc.header.Channels)
	last := len(enc.pix) - bpp
	for off := 0; off <= last; off += bpp {
		enc.readPixel(off)
		if err := enc.dispatchOP(off == last); err != nil {
			return err
		}
		enc.previousPixel = enc.currentPixel
	}
	if _, err := enc.out.Write(qoiEpilogue[:]); err != nil {
		return err
	}
	return enc.out.Flush()
}

// readPixel loads the pixel at off. A 3-channel buffer never changes
// alpha, so the previous value (255 from the start) carries through.
func (enc *Encoder) readPixel(off int) {
	enc.currentPixel[0] = enc.pix[off]
	enc.currentPixel[1] = enc.pix[off+1]
	enc.currentPixel[2] = enc.pix[off+2]
	if enc.header.Channels == 4 {
		enc.currentPixel[3] = enc.pix[off+3]
	} else {
		enc.currentPixel[3] = enc.previousPixel[3]
	}
}

func (enc *Encoder) dispatchOP(lastPixel bool) error {
	if enc.currentPixel == enc.previousPixel {
		enc.run++
		if enc.run == maxRun || lastPixel {
			return enc.op_RUN()
		}
		return nil
	}
	if enc.run > 0 {
		if err := enc.op_RUN(); err != nil {
			return err
		}
	}
	hash := enc.currentPixel.Hash()
	if enc.window[hash] == enc.currentPixel {
		return enc.op_INDEX(hash)
	}
	enc.cacheCurrentPixel(hash)

	diffR, diffG, diffB, diffA := enc.currentPixel.Minus(enc.previousPixel)
	if diffA != 0 {
		return enc.op_RGBA()
	}
	if isValueWithinDIFFSpec(diffR) && isValueWithinDIFFSpec(diffG) && isValueWithinDIFFSpec(diffB) {
		return enc.op_DIFF(diffR, diffG, diffB)
	}
	if isGreenValueWithinLUMASpec(diffG) && isValueWithinLUMASpec(diffR-diffG) && isValueWithinLUMASpec(diffB-diffG) {
		return enc.op_LUMA(diffG, diffR-diffG, diffB-diffG)
	}
	return enc.op_RGB()
}

func (enc *Encoder) cacheCurrentPixel(hash byte) {
	enc.window[hash] = enc.currentPixel
}

// The range checks run on the wrapped byte delta reinterpreted as a
// signed value, which keeps opcode selection bit-identical at the
// 0/255 component boundaries.
func isValueWithinDIFFSpec(v byte) bool {
	d := int8(v)
	return d >= -2 && d <= 1
}

func isValueWithinLUMASpec(v byte) bool {
	d := int8(v)
	return d >= -8 && d <= 7
}

func isGreenValueWithinLUMASpec(v byte) bool {
	d := int8(v)
	return d >= -32 && d <= 31
}

func (enc *Encoder) op_RUN() error {
	run := enc.run
	enc.run = 0
	return enc.out.WriteByte(qoi_OP_RUN | (run - runBias))
}

func (enc *Encoder) op_INDEX(hash byte) error {
	return enc.out.WriteByte(qoi_OP_INDEX | hash)
}

func (enc *Encoder) op_DIFF(diffR, diffG, diffB byte) error {
	r := (diffR + diffBias) << 4
	g := (diffG + diffBias) << 2
	b := diffB + diffBias
	return enc.out.WriteByte(qoi_OP_DIFF | r | g | b)
}

func (enc *Encoder) op_LUMA(diffG, directionRG, directionBG byte) error {
	if err := enc.out.WriteByte(qoi_OP_LUMA | (diffG + lumaGreenBias)); err != nil {
		return err
	}
	return enc.out.WriteByte((directionRG+lumaBias)<<4 | (directionBG + lumaBias))
}

func (enc *Encoder) op_RGB() error {
	if err := enc.out.WriteByte(qoi_OP_RGB); err != nil {
		return err
	}
	_, err := enc.out.Write(enc.currentPixel[:3])
	return err
}

func (enc *Encoder) op_RGBA() error {
	if err := enc.out.WriteByte(qoi_OP_RGBA); err != nil {
		return err
	}
	_, err := enc.out.Write(enc.currentPixel[:])
	return err
}
