package common

import (
	"math"
)

// PCMToFloat converts 16-bit samples to float64 without rescaling
func PCMToFloat(pcm []int16) []float64 {
	out := make([]float64, len(pcm))
	for i, s := range pcm {
		out[i] = float64(s)
	}
	return out
}

// FloatToPCM converts a sample to int16, saturating at the int16 range and
// truncating toward zero like a C cast
func FloatToPCM(v float64) int16 {
	if math.IsNaN(v) {
		return 0
	}
	return int16(Clamp(v, math.MinInt16, math.MaxInt16))
}
