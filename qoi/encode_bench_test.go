package qoi

import (
	"testing"
)

func BenchmarkEncodePixels(b *testing.B) {
	header := Header{Width: 512, Height: 512, Channels: 4}
	pix := testPattern(512*512, 4)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := EncodePixels(pix, header); err != nil {
			b.Fatal(err)
		}
	}
}
