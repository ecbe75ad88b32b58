package feistel

import (
	"math/bits"
	"math/rand"
	"testing"
)

func TestMixUnmix(t *testing.T) {
	tests := []struct {
		name string
		v    uint64
	}{
		{name: "zero", v: 0},
		{name: "one", v: 1},
		{name: "port only", v: 0x0000_0000_01bb},
		{name: "loopback endpoint", v: 0x7f00_0001_0050},
		{name: "all ones", v: Mask},
		{name: "high half only", v: 0xffff_ff00_0000},
		{name: "low half only", v: 0x0000_00ff_ffff},
		{name: "alternating", v: 0xaaaa_aaaa_aaaa & Mask},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Mix(tt.v)
			if m > Mask {
				t.Fatalf("Mix(%#x) = %#x, out of the 48-bit domain", tt.v, m)
			}

			if got := Unmix(m); got != tt.v {
				t.Fatalf("Unmix(Mix(%#x)) = %#x", tt.v, got)
			}
			if got := Mix(Unmix(tt.v)); got != tt.v {
				t.Fatalf("Mix(Unmix(%#x)) = %#x", tt.v, got)
			}
		})
	}
}

func TestMixUnmixRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 100000; i++ {
		v := rng.Uint64() & Mask

		m := Mix(v)
		if m > Mask {
			t.Fatalf("Mix(%#x) = %#x, out of the 48-bit domain", v, m)
		}
		if got := Unmix(m); got != v {
			t.Fatalf("Unmix(Mix(%#x)) = %#x", v, got)
		}
	}
}

// TestMixIgnoresHighBits verifies that bits above the 48-bit domain do
// not influence the permutation.
func TestMixIgnoresHighBits(t *testing.T) {
	rng := rand.New(rand.NewSource(2))

	for i := 0; i < 1000; i++ {
		v := rng.Uint64()
		if Mix(v) != Mix(v&Mask) {
			t.Fatalf("Mix(%#x) differs from Mix of its masked value", v)
		}
	}
}

// TestMixAvalanche verifies that flipping a single input bit changes,
// on expectation, about half the output bits: more than 6 of 48 must
// differ in 95% of samples.
func TestMixAvalanche(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	const samples = 10000
	var passed, total int

	for i := 0; i < samples; i++ {
		v := rng.Uint64() & Mask
		bit := uint(rng.Intn(Bits))

		d := bits.OnesCount64(Mix(v) ^ Mix(v^1<<bit))
		total += d
		if d > 6 {
			passed++
		}
	}

	if frac := float64(passed) / samples; frac < 0.95 {
		t.Fatalf("only %.1f%% of single-bit flips moved more than 6 output bits", frac*100)
	}

	// The mean distance should sit near half the domain width; a mean
	// below a third of it indicates broken diffusion.
	if mean := float64(total) / samples; mean < Bits/3 {
		t.Fatalf("mean avalanche distance %.1f bits is too low", mean)
	}
}

// TestMixSequentialInputsDiverge verifies the anti-clustering purpose
// of the mixer: adjacent inputs must not share high output chunks.
func TestMixSequentialInputsDiverge(t *testing.T) {
	seen := make(map[uint64]bool)

	for v := uint64(0); v < 256; v++ {
		top := Mix(v) >> 36
		seen[top] = true
	}

	// 256 sequential inputs should scatter across many distinct
	// top-12-bit chunks rather than collapsing onto a handful.
	if len(seen) < 200 {
		t.Fatalf("sequential inputs collapsed onto %d distinct top chunks", len(seen))
	}
}
