package utils

import "math"

// NormalizeL2 scales x in place to unit L2 norm. A zero vector is left
// unchanged rather than producing NaNs.
func NormalizeL2(x []float32) {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range x {
		x[i] *= inv
	}
}
