package utils

import (
	"math"
	"testing"
)

func TestTruncate(t *testing.T) {
	if got := Truncate("hello", 10); got != "hello" {
		t.Errorf("short string changed: %q", got)
	}
	if got := Truncate("hello world", 5); got != "hello..." {
		t.Errorf("got %q", got)
	}
	if got := Truncate("x", 0); got != "x" {
		t.Errorf("max 0 should return input, got %q", got)
	}
	// A cut inside a multi-byte rune backs up to the rune start.
	if got := Truncate("aé", 2); got != "a..." {
		t.Errorf("rune boundary not respected: %q", got)
	}
}

func TestNormalizeL2(t *testing.T) {
	v := []float32{3, 4}
	NormalizeL2(v)
	if math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Errorf("got %v", v)
	}

	zero := []float32{0, 0, 0}
	NormalizeL2(zero)
	for _, x := range zero {
		if x != 0 {
			t.Errorf("zero vector changed: %v", zero)
		}
	}
}
