// Package stego hides text in the least significant bits of an image's pixels.
//
// The message is written one bit per colour channel (R, G, B; alpha is left alone),
// scanning rows top to bottom. It starts with a 32-bit big-endian length followed by
// the UTF-8 bytes of the text. The result only survives lossless formats such as PNG.
package stego

import (
	"encoding/binary"
	"image"
	"image/color"
	"image/draw"
	"unicode/utf8"

	"github.com/m1ll3r1337/incident-report-service/internal/errs"
)

const (
	headerBytes = 4
	channels    = 3
)

const (
	CodeTooLarge  = "TEXT_TOO_LARGE"
	CodeNoMessage = "NO_MESSAGE"
)

// Capacity is the number of text bytes an image of size b can carry.
func Capacity(b image.Rectangle) int {
	n := b.Dx()*b.Dy()*channels/8 - headerBytes
	if n < 0 {
		return 0
	}
	return n
}

// Encode returns a copy of img with text hidden in it.
func Encode(img image.Image, text string) (*image.NRGBA, error) {
	const op = "stego.encode"

	if !utf8.ValidString(text) {
		return nil, errs.Invalid("TEXT_INVALID", op, map[string]string{"text": "must be valid UTF-8"})
	}

	b := img.Bounds()
	if len(text) > Capacity(b) {
		return nil, errs.E(errs.KindInvalid, CodeTooLarge, op, "text does not fit in image",
			map[string]string{"text": "is too long for this image"}, nil)
	}

	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)

	payload := make([]byte, headerBytes+len(text))
	binary.BigEndian.PutUint32(payload, uint32(len(text)))
	copy(payload[headerBytes:], text)

	w := bitWriter{pix: out.Pix}
	for _, c := range payload {
		for i := 7; i >= 0; i-- {
			w.put(c >> i & 1)
		}
	}
	return out, nil
}

// Decode reads back text hidden by Encode.
func Decode(img image.Image) (string, error) {
	const op = "stego.decode"

	b := img.Bounds()
	src := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			src.SetNRGBA(x, y, color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA))
		}
	}

	if b.Dx()*b.Dy()*channels < headerBytes*8 {
		return "", noMessage(op)
	}

	r := bitReader{pix: src.Pix}
	header := r.bytes(headerBytes)
	n := binary.BigEndian.Uint32(header)
	if uint64(n) > uint64(Capacity(b)) {
		return "", noMessage(op)
	}

	text := r.bytes(int(n))
	if !utf8.Valid(text) {
		return "", noMessage(op)
	}
	return string(text), nil
}

func noMessage(op string) error {
	return errs.E(errs.KindInvalid, CodeNoMessage, op, "image carries no hidden text", nil, nil)
}

// bitWriter sets the low bit of successive R, G and B bytes in an NRGBA buffer.
type bitWriter struct {
	pix []byte
	pos int
}

func (w *bitWriter) put(bit byte) {
	if w.pos%4 == 3 {
		w.pos++
	}
	w.pix[w.pos] = w.pix[w.pos]&^1 | bit
	w.pos++
}

type bitReader struct {
	pix []byte
	pos int
}

func (r *bitReader) bit() byte {
	if r.pos%4 == 3 {
		r.pos++
	}
	b := r.pix[r.pos] & 1
	r.pos++
	return b
}

func (r *bitReader) bytes(n int) []byte {
	out := make([]byte, n)
	for i := range out {
		var c byte
		for j := 0; j < 8; j++ {
			c = c<<1 | r.bit()
		}
		out[i] = c
	}
	return out
}
