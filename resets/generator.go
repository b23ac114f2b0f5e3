package resets

import (
	"fmt"
	"io"
	"math/rand/v2"

	"github.com/RyanBlaney/sonido-splice/features"
)

// MaskGeneratorParams configures random reset-mask generation
type MaskGeneratorParams struct {
	MinFramesWithoutReset int     `json:"min_frames_without_reset"` // Cool-down after a reset (default: 10)
	ResetProbability      float64 `json:"reset_probability"`        // Per-frame reset chance after cool-down (default: 0.2)
	Seed                  uint64  `json:"seed"`
}

// DefaultMaskGeneratorParams returns the reference generator parameters
func DefaultMaskGeneratorParams() MaskGeneratorParams {
	return MaskGeneratorParams{
		MinFramesWithoutReset: 10,
		ResetProbability:      0.2,
	}
}

// MaskGenerator draws random reset flags for training the reset scorer
type MaskGenerator struct {
	params     MaskGeneratorParams
	rng        *rand.Rand
	sinceReset int
}

// NewMaskGenerator creates a generator seeded from params.Seed
func NewMaskGenerator(params MaskGeneratorParams) *MaskGenerator {
	return &MaskGenerator{
		params: params,
		rng:    rand.New(rand.NewPCG(params.Seed, params.Seed^0x9e3779b97f4a7c15)),
	}
}

// Next returns the reset flag for the next frame
func (g *MaskGenerator) Next() bool {
	if g.sinceReset >= g.params.MinFramesWithoutReset && g.rng.Float64() < g.params.ResetProbability {
		g.sinceReset = 0
		return true
	}
	g.sinceReset++
	return false
}

// Generate writes one reset flag per frame of r and returns the number of
// frames and resets written
func (g *MaskGenerator) Generate(r features.FrameReader, w *features.MaskWriter) (frames, resets int, err error) {
	for {
		_, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return frames, resets, err
		}

		reset := g.Next()
		if err := w.Write(reset); err != nil {
			return frames, resets, fmt.Errorf("failed to write mask frame %d: %w", frames, err)
		}
		frames++
		if reset {
			resets++
		}
	}

	return frames, resets, w.Flush()
}
