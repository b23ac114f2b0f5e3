// Package engine defines the frame synthesizer the reset logic drives and a
// deterministic parametric reference implementation of it.
package engine

import (
	"github.com/RyanBlaney/sonido-splice/features"
)

// Synthesizer turns one feature frame into features.FrameSize PCM samples.
// Synthesizing a frame advances the internal state; reset=true clears the
// recurrent state before the frame is synthesized.
type Synthesizer interface {
	Synthesize(frame features.Frame, reset bool, pcm []int16)

	// FrameCount returns the number of frames synthesized so far
	FrameCount() int

	// Clone returns an independent engine with identical state. Two engines
	// fed the same frames and reset flags produce identical output.
	Clone() Synthesizer
}

// ResetScorer is implemented by engines that can rate how safe a reset is
// at a frame. The score is a probability in [0, 1] and computing it does
// not change the engine state.
type ResetScorer interface {
	ResetProbability(frame features.Frame) float64
}
