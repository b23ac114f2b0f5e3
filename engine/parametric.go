package engine

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/RyanBlaney/sonido-splice/algorithms/common"
	"github.com/RyanBlaney/sonido-splice/algorithms/filters"
	"github.com/RyanBlaney/sonido-splice/algorithms/spectral"
	"github.com/RyanBlaney/sonido-splice/features"
)

// ParametricParams configures the reference engine
type ParametricParams struct {
	Envelope spectral.BarkEnvelopeParams `json:"envelope"`

	Deemphasis   float64 `json:"deemphasis"`     // De-emphasis coefficient (default: 0.85)
	DCCutoffHz   float64 `json:"dc_cutoff_hz"`   // DC blocker cutoff (default: 20)
	MinPitch     int     `json:"min_pitch"`      // Shortest pitch period in samples (default: 32)
	MaxPitch     int     `json:"max_pitch"`      // Longest pitch period in samples (default: 256)
	SeedOffset   int     `json:"seed_offset"`    // Per-frame noise seed is FrameCount()+SeedOffset (default: 23)
	MaxTiltPole  float64 `json:"max_tilt_pole"`  // Smoothing pole for fully low-band energy (default: 0.9)
	SilenceLevel float64 `json:"silence_level"`  // Energy scored as silence (default: 500)
	RatioLevel   float64 `json:"ratio_level"`    // Unvoiced ratio scored as a safe reset (default: 100)
	ScoreSlope   float64 `json:"score_slope"`    // Logistic slope per decade (default: 4)
}

// DefaultParametricParams returns the reference engine parameters
func DefaultParametricParams() ParametricParams {
	return ParametricParams{
		Envelope:     spectral.DefaultBarkEnvelopeParams(),
		Deemphasis:   0.85,
		DCCutoffHz:   20,
		MinPitch:     32,
		MaxPitch:     256,
		SeedOffset:   23,
		MaxTiltPole:  0.9,
		SilenceLevel: 500,
		RatioLevel:   100,
		ScoreSlope:   4,
	}
}

// Parametric is a pulse/noise source-filter engine. Each frame is excited by
// a pitch pulse train mixed with seeded noise according to the pitch
// correlation, scaled by the Bark envelope energy, tilted by the low/high
// energy balance and de-emphasized. The pulse phase and all filter memories
// carry across frames, so a reset produces an audible onset.
type Parametric struct {
	params   ParametricParams
	envelope *spectral.BarkEnvelope

	frameCount int
	phase      int // samples since the last pitch pulse
	tilt       *filters.OnePole
	deemph     *filters.Deemphasis
	dc         *filters.DCRemoval

	excitation []float64
}

// NewParametric creates a reference engine
func NewParametric(params ParametricParams) (*Parametric, error) {
	if params.MinPitch <= 0 || params.MaxPitch < params.MinPitch {
		return nil, fmt.Errorf("invalid pitch range [%d, %d]", params.MinPitch, params.MaxPitch)
	}
	if params.SilenceLevel <= 0 || params.RatioLevel <= 0 {
		return nil, fmt.Errorf("score levels must be positive")
	}

	deemph, err := filters.NewDeemphasis(params.Deemphasis)
	if err != nil {
		return nil, err
	}

	return &Parametric{
		params:     params,
		envelope:   spectral.NewBarkEnvelopeWithParams(params.Envelope),
		tilt:       filters.NewOnePole(0),
		deemph:     deemph,
		dc:         filters.NewDCRemovalWithCutoff(features.SampleRate, params.DCCutoffHz),
		excitation: make([]float64, features.FrameSize),
	}, nil
}

// Synthesize writes len(pcm) samples, at most features.FrameSize
func (p *Parametric) Synthesize(frame features.Frame, reset bool, pcm []int16) {
	if reset {
		p.reset()
	}

	n := min(len(pcm), features.FrameSize)
	rng := rand.New(rand.NewPCG(uint64(p.frameCount+p.params.SeedOffset), 0))
	p.frameCount++

	stats, err := p.envelope.Energy(frame.Cepstrum(p.envelope.NumBands()))
	if err != nil {
		clear(pcm[:n])
		return
	}

	period := p.pitchPeriod(frame)
	_, corr := frame.Pitch()
	voicing := common.Clamp(corr+0.5, 0, 1)
	gain := math.Sqrt(stats.TotalEnergy / float64(p.envelope.NumBands()))
	pulse := math.Sqrt(float64(period))

	if total := stats.HighEnergy + stats.LowEnergy; total > 0 {
		p.tilt.SetPole(p.params.MaxTiltPole * stats.LowEnergy / total)
	}

	for i := 0; i < n; i++ {
		x := (1 - voicing) * rng.NormFloat64()
		p.phase++
		if p.phase >= period {
			p.phase = 0
			x += voicing * pulse
		}
		p.excitation[i] = gain * x
	}

	for i := 0; i < n; i++ {
		y := p.tilt.Process(p.excitation[i])
		y = p.deemph.Process(y)
		y = p.dc.Process(y)
		pcm[i] = common.FloatToPCM(y)
	}
}

// FrameCount returns the number of synthesized frames
func (p *Parametric) FrameCount() int {
	return p.frameCount
}

// Clone returns an engine with identical state
func (p *Parametric) Clone() Synthesizer {
	c := *p
	c.tilt = p.tilt.Clone()
	c.deemph = p.deemph.Clone()
	c.dc = p.dc.Clone()
	c.excitation = make([]float64, len(p.excitation))
	return &c
}

// ResetProbability rates a frame as a reset point. Silent frames and frames
// dominated by high-band energy score close to 1.
func (p *Parametric) ResetProbability(frame features.Frame) float64 {
	stats, err := p.envelope.Energy(frame.Cepstrum(p.envelope.NumBands()))
	if err != nil {
		return 0
	}

	silence := logistic(p.params.ScoreSlope * (math.Log10(p.params.SilenceLevel) - math.Log10(stats.TotalEnergy+1e-9)))
	unvoiced := logistic(p.params.ScoreSlope * (math.Log10(stats.UnvoicedRatio+1e-9) - math.Log10(p.params.RatioLevel)))
	return math.Max(silence, unvoiced)
}

func (p *Parametric) pitchPeriod(frame features.Frame) int {
	period, _ := frame.Pitch()
	samples := int(math.Floor(.1 + 50*period + 100))
	return min(max(samples, p.params.MinPitch), p.params.MaxPitch)
}

func (p *Parametric) reset() {
	p.phase = 0
	p.tilt.Reset()
	p.deemph.Reset()
	p.dc.Reset()
}

func logistic(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
