package qoi

import (
	"bytes"
	"testing"
)

func FuzzRoundTrip(f *testing.F) {
	f.Add([]byte{0, 0, 0, 255}, false)
	f.Add([]byte{10, 20, 30}, true)
	f.Add(bytes.Repeat([]byte{7, 7, 7, 0}, 63), false)
	f.Add([]byte{254, 254, 254, 255, 255, 255, 255, 255}, false)

	f.Fuzz(func(t *testing.T, data []byte, rgb bool) {
		bpp := 4
		if rgb {
			bpp = 3
		}
		count := len(data) / bpp
		if count == 0 || count > 1<<16 {
			return
		}
		pix := data[:count*bpp]
		header := Header{Width: uint32(count), Height: 1, Channels: uint8(bpp)}

		encoded, err := EncodePixels(pix, header)
		if err != nil {
			t.Fatalf("failed to encode valid pixels: %s", err)
		}
		decoded, err := DecodePixels(encoded)
		if err != nil {
			t.Fatalf("failed to decode roundtripped pixels: %s", err)
		}
		if decoded.Header != header {
			t.Fatalf("header changed in roundtrip, got: %+v, want: %+v", decoded.Header, header)
		}
		if !bytes.Equal(decoded.Pix, pix) {
			t.Fatalf("pixels changed in roundtrip")
		}
	})
}

func FuzzDecode(f *testing.F) {
	seed, _ := EncodePixels([]byte{1, 2, 3, 4}, Header{Width: 1, Height: 1, Channels: 4})
	f.Add(seed)
	f.Add([]byte("qoif"))

	// arbitrary input must either fail cleanly or produce a buffer of
	// exactly the advertised size; it must never panic
	f.Fuzz(func(t *testing.T, data []byte) {
		header, err := ParseHeader(data)
		if err != nil {
			return
		}
		if header.pixelCount() > 1<<20 {
			return
		}
		img, err := DecodePixels(data)
		if err != nil {
			return
		}
		want := header.pixelCount() * uint64(header.Channels)
		if uint64(len(img.Pix)) != want {
			t.Fatalf("decoded %d bytes, want %d", len(img.Pix), want)
		}
	})
}
