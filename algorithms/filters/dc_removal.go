package filters

import (
	"math"
)

// DCRemoval implements a DC blocking filter (high-pass filter) to remove
// the DC component (0 Hz) from audio signals.
//
// References:
//   - Julius O. Smith III, "Introduction to Digital Filters with Audio Applications"
//     https://ccrma.stanford.edu/~jos/filters/DC_Blocker.html
type DCRemoval struct {
	poleLocation float64 // R parameter (0 < R < 1)

	// State variables
	x1 float64 // Previous input sample x[n-1]
	y1 float64 // Previous output sample y[n-1]
}

// NewDCRemoval creates a DC blocker with the standard pole location 0.995
func NewDCRemoval() *DCRemoval {
	return &DCRemoval{poleLocation: 0.995}
}

// NewDCRemovalWithCutoff creates a DC removal filter with specified cutoff frequency.
//
// The pole location R is calculated as:
// R = 1 - 2*pi*fc/fs
// Where fc is the cutoff frequency and fs is the sample rate.
func NewDCRemovalWithCutoff(sampleRate int, cutoffFreq float64) *DCRemoval {
	dc := NewDCRemoval()
	if sampleRate > 0 && cutoffFreq > 0 {
		// small angle approximation, valid for fc << fs/2
		dc.poleLocation = 1.0 - (2.0 * math.Pi * cutoffFreq / float64(sampleRate))

		if dc.poleLocation >= 1.0 {
			dc.poleLocation = 0.999
		} else if dc.poleLocation <= 0.0 {
			dc.poleLocation = 0.001
		}
	}
	return dc
}

// Process applies DC removal to a single sample.
// Implements the difference equation:
// y[n] = x[n] - x[n-1] + R * y[n-1]
func (dc *DCRemoval) Process(input float64) float64 {
	output := input - dc.x1 + dc.poleLocation*dc.y1

	dc.x1 = input
	dc.y1 = output

	return output
}

// Reset clears the filter's internal state.
// Call this when processing discontinuous audio segments.
func (dc *DCRemoval) Reset() {
	dc.x1 = 0.0
	dc.y1 = 0.0
}

// PoleLocation returns R
func (dc *DCRemoval) PoleLocation() float64 {
	return dc.poleLocation
}

// Clone returns a filter with the same pole and state
func (dc *DCRemoval) Clone() *DCRemoval {
	c := *dc
	return &c
}
