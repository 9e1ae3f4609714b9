package qoi

import (
	"testing"
)

func BenchmarkDecodePixels(b *testing.B) {
	encoded, err := EncodePixels(testPattern(512*512, 4), Header{Width: 512, Height: 512, Channels: 4})
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := DecodePixels(encoded); err != nil {
			b.Fatal(err)
		}
	}
}
