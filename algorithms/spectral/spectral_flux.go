package spectral

import (
	"math"

	"github.com/RyanBlaney/sonido-splice/algorithms/windowing"
)

// spectral floor for log-power flux, avoids log(0) on digital silence
const logPowerFloor = 1e-10

// SpectralFlux computes spectral flux (measure of spectral change)
type SpectralFlux struct {
	fft    *FFT
	window *windowing.Hann
}

// NewSpectralFlux creates a new spectral flux calculator
func NewSpectralFlux() *SpectralFlux {
	return &SpectralFlux{fft: NewFFT()}
}

// Compute calculates positive spectral flux for a spectrogram
func (sf *SpectralFlux) Compute(spectrogram [][]float64) []float64 {
	if len(spectrogram) < 2 {
		return []float64{}
	}

	flux := make([]float64, len(spectrogram)-1)

	for t := 1; t < len(spectrogram); t++ {
		sum := 0.0
		for f := 0; f < len(spectrogram[t]) && f < len(spectrogram[t-1]); f++ {
			diff := spectrogram[t][f] - spectrogram[t-1][f]
			if diff > 0 { // Only positive changes (energy increases)
				sum += diff * diff
			}
		}
		flux[t-1] = math.Sqrt(sum)
	}

	return flux
}

// Between returns the positive log-power flux from one PCM frame to the next.
// Both frames are Hann windowed before the FFT.
// A click at a frame boundary shows up as a burst of new high-band energy.
func (sf *SpectralFlux) Between(prev, next []float64) float64 {
	if len(prev) == 0 || len(next) == 0 {
		return 0.0
	}

	flux := sf.Compute([][]float64{
		sf.logPower(prev),
		sf.logPower(next),
	})
	if len(flux) == 0 {
		return 0.0
	}

	return flux[0]
}

func (sf *SpectralFlux) logPower(signal []float64) []float64 {
	if sf.window == nil || sf.window.Size() != len(signal) {
		sf.window = windowing.NewHann(len(signal), false)
	}
	windowed, err := sf.window.Apply(signal)
	if err != nil {
		windowed = signal
	}

	power := sf.fft.PowerSpectrum(windowed)
	for i, p := range power {
		power[i] = math.Log10(p + logPowerFloor)
	}
	return power
}
