// Package conceal hides the discontinuity of a synthesis state reset by
// blending the waveform of an engine that kept its state (the continuation)
// with the waveform of the engine that was reset.
package conceal

import (
	"errors"
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-splice/algorithms/common"
	"github.com/RyanBlaney/sonido-splice/algorithms/spectral"
	"github.com/RyanBlaney/sonido-splice/algorithms/stats"
)

// ErrNothingHeld is returned by Release when no reset frame is cached
var ErrNothingHeld = errors.New("no reset frame held")

// Params configures the lag-aligned cross-fade
type Params struct {
	SimilarityWindow int     `json:"similarity_window"` // Samples compared per candidate lag (default: 80)
	MaxShift         int     `json:"max_shift"`         // Largest lag tried (default: 80)
	SmoothFactor     float64 `json:"smooth_factor"`     // Exponent of the fade-in curve (default: 3)
}

// DefaultParams returns the reference lag search parameters
func DefaultParams() Params {
	return Params{
		SimilarityWindow: 80,
		MaxShift:         80,
		SmoothFactor:     3.0,
	}
}

// Validate checks the parameters against a frame length
func (p Params) Validate(frameSize int) error {
	if p.SimilarityWindow <= 0 {
		return fmt.Errorf("similarity_window must be positive, got %d", p.SimilarityWindow)
	}
	if p.MaxShift < 0 {
		return fmt.Errorf("max_shift must not be negative, got %d", p.MaxShift)
	}
	if p.MaxShift+p.SimilarityWindow > frameSize {
		return fmt.Errorf("max_shift + similarity_window = %d exceeds frame size %d",
			p.MaxShift+p.SimilarityWindow, frameSize)
	}
	if p.SmoothFactor <= 0 {
		return fmt.Errorf("smooth_factor must be positive, got %v", p.SmoothFactor)
	}
	return nil
}

// Crossfade blends one frame sample by sample, starting on the continuation
// and ending on the reset stream:
//
//	out[i] = ((F-i)*cont[i] + i*reset[i]) / F
//
// The division truncates toward zero.
func Crossfade(cont, reset []int16) ([]int16, error) {
	if len(cont) != len(reset) {
		return nil, fmt.Errorf("buffer lengths differ: %d vs %d", len(cont), len(reset))
	}

	f := len(cont)
	out := make([]int16, f)
	for i := 0; i < f; i++ {
		out[i] = int16(((f-i)*int(cont[i]) + i*int(reset[i])) / f)
	}
	return out, nil
}

// FindLag returns the shift s in [0, maxShift] minimizing the L1 distance
// between reset[s:s+window] and cont[0:window]. Only strict improvements
// move the choice, so ties keep the smallest lag.
func FindLag(reset, cont []int16, window, maxShift int) (int, error) {
	if window <= 0 || maxShift < 0 {
		return 0, fmt.Errorf("invalid search window %d / max shift %d", window, maxShift)
	}
	if maxShift+window > len(reset) || window > len(cont) {
		return 0, fmt.Errorf("search window %d + max shift %d does not fit buffers of %d and %d samples",
			window, maxShift, len(reset), len(cont))
	}

	r := common.PCMToFloat(reset)
	c := common.PCMToFloat(cont)

	best := 0
	minDist, _ := stats.WindowedL1Distance(r, c, 0, window)
	for s := 1; s <= maxShift; s++ {
		d, _ := stats.WindowedL1Distance(r, c, s, window)
		if d < minDist {
			minDist = d
			best = s
		}
	}

	return best, nil
}

// LagAligner defers a reset boundary to the following frame and smears it
// across two frames. At the reset frame Hold caches both waveforms and the
// lag; on the next frame Release emits the continuation faded into the
// lag-shifted reset waveform, followed by the new frame.
type LagAligner struct {
	params Params

	held  bool
	lag   int
	cont  []int16
	reset []int16
}

// NewLagAligner creates an aligner for frames of frameSize samples
func NewLagAligner(params Params, frameSize int) (*LagAligner, error) {
	if err := params.Validate(frameSize); err != nil {
		return nil, err
	}
	return &LagAligner{params: params}, nil
}

// Hold caches the reset frame's waveforms and returns the selected lag.
// Nothing is emitted for the reset frame itself.
func (la *LagAligner) Hold(cont, reset []int16) (int, error) {
	if len(cont) != len(reset) {
		return 0, fmt.Errorf("buffer lengths differ: %d vs %d", len(cont), len(reset))
	}

	lag, err := FindLag(reset, cont, la.params.SimilarityWindow, la.params.MaxShift)
	if err != nil {
		return 0, err
	}

	la.cont = append(la.cont[:0], cont...)
	la.reset = append(la.reset[:0], reset...)
	la.lag = lag
	la.held = true
	return lag, nil
}

// Held reports whether a reset frame is waiting for Release
func (la *LagAligner) Held() bool {
	return la.held
}

// Lag returns the lag selected by the last Hold
func (la *LagAligner) Lag() int {
	return la.lag
}

// Release blends the held frame into next and returns 2F - lag samples.
//
// For i in [0, F-lag) the output is (1-w)*cont[i] + w*reset[i+lag] with
// w = (i/F)^SmoothFactor. The new frame follows in full, its first lag
// samples faded against the tail of the held continuation with the weight
// curve carried on.
func (la *LagAligner) Release(next []int16) ([]int16, error) {
	if !la.held {
		return nil, ErrNothingHeld
	}
	f := len(la.cont)
	if len(next) != f {
		return nil, fmt.Errorf("frame has %d samples, held frame has %d", len(next), f)
	}

	shift := la.lag
	out := make([]int16, 0, 2*f-shift)

	for i := 0; i < f-shift; i++ {
		v := common.Lerp(float64(la.cont[i]), float64(la.reset[i+shift]), la.weight(i, f))
		out = append(out, common.FloatToPCM(v))
	}

	start := len(out)
	out = append(out, next...)
	for i := 0; i < shift; i++ {
		v := common.Lerp(float64(la.cont[f-shift+i]), float64(next[i]), la.weight(f-shift+i, f))
		out[start+i] = common.FloatToPCM(v)
	}

	la.held = false
	return out, nil
}

// Flush returns the held continuation when input ends between Hold and
// Release, so the reset frame is not lost
func (la *LagAligner) Flush() []int16 {
	if !la.held {
		return nil
	}
	la.held = false
	out := make([]int16, len(la.cont))
	copy(out, la.cont)
	return out
}

func (la *LagAligner) weight(i, f int) float64 {
	return math.Pow(float64(i)/float64(f), la.params.SmoothFactor)
}

// BoundaryFlux measures the positive spectral flux from the frame written
// before a reset to the frame written at it. Lower is smoother.
func BoundaryFlux(prev, next []int16) float64 {
	return spectral.NewSpectralFlux().Between(common.PCMToFloat(prev), common.PCMToFloat(next))
}
