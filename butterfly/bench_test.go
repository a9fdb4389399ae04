package butterfly_test

import (
	"testing"

	"github.com/katalvlaran/wavemoth/butterfly"
	"github.com/katalvlaran/wavemoth/matrix"
)

// BenchmarkCompress measures building the tree of the (100, 30) Legendre matrix.
func BenchmarkCompress(b *testing.B) {
	a := legendreMatrix(b)
	b.ResetTimer() // ignore setup time
	for i := 0; i < b.N; i++ {
		if _, err := butterfly.CompressWith(a, 16, 1e-10, 4); err != nil {
			b.Fatalf("Compress failed: %v", err)
		}
	}
}

// BenchmarkApply measures a 16-vector forward product.
func BenchmarkApply(b *testing.B) {
	a := legendreMatrix(b)
	tree, err := butterfly.CompressWith(a, 16, 1e-10, 4)
	if err != nil {
		b.Fatalf("Compress failed: %v", err)
	}
	x := matrix.Zeros(a.Cols(), 16)
	for i := range x.Raw() {
		x.Raw()[i] = float64(i%7) - 3
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err = tree.Apply(x); err != nil {
			b.Fatalf("Apply failed: %v", err)
		}
	}
}
