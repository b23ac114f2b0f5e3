// Package synthesis drives a frame synthesizer over a feature stream,
// deciding per frame whether to reset it and concealing the resets.
package synthesis

import (
	"context"
	"errors"
	"fmt"
	"io"

	"gonum.org/v1/gonum/stat"

	"github.com/RyanBlaney/sonido-splice/algorithms/spectral"
	"github.com/RyanBlaney/sonido-splice/conceal"
	"github.com/RyanBlaney/sonido-splice/engine"
	"github.com/RyanBlaney/sonido-splice/features"
	"github.com/RyanBlaney/sonido-splice/logging"
	"github.com/RyanBlaney/sonido-splice/resets"
)

// HissParams configures optional hiss removal on the input cepstrum
type HissParams struct {
	Enabled  bool    `json:"enabled"`
	FromBand int     `json:"from_band"` // First band limited (default: 14)
	Ceiling  float64 `json:"ceiling"`   // Envelope ceiling for the limited bands (default: 4.3)
}

// DefaultHissParams returns hiss removal settings, disabled
func DefaultHissParams() HissParams {
	return HissParams{
		Enabled:  false,
		FromBand: 14,
		Ceiling:  4.3,
	}
}

// Options configures a Runner
type Options struct {
	Mode Mode

	// Schedule drives ModeRule, ModeCrossfade and ModeLag
	Schedule resets.Schedule
	// Mask drives ModeMasked
	Mask MaskSource

	Net      resets.NetSchedulerParams
	Conceal  conceal.Params
	Envelope spectral.BarkEnvelopeParams
	Hiss     HissParams

	// TrailingSilenceFrames appends frames of digital silence after the run
	TrailingSilenceFrames int
}

// DefaultOptions returns plain synthesis with reference parameters
func DefaultOptions() Options {
	return Options{
		Mode:     ModePlain,
		Net:      resets.DefaultNetSchedulerParams(),
		Conceal:  conceal.DefaultParams(),
		Envelope: spectral.DefaultBarkEnvelopeParams(),
		Hiss:     DefaultHissParams(),
	}
}

// Result describes one synthesis run
type Result struct {
	Mode             string  `json:"mode"`
	Frames           int     `json:"frames"`
	Samples          int     `json:"samples"`
	ResetFrames      []int   `json:"reset_frames"`
	MeanBoundaryFlux float64 `json:"mean_boundary_flux"` // spectral flux into reset frames
}

// Runner synthesizes a feature stream with one engine
type Runner struct {
	synth    engine.Synthesizer
	opts     Options
	envelope *spectral.BarkEnvelope
	logger   logging.Logger
}

// NewRunner checks the options against the mode and the engine
func NewRunner(synth engine.Synthesizer, opts Options, logger logging.Logger) (*Runner, error) {
	if synth == nil {
		return nil, errors.New("synthesizer is required")
	}

	switch {
	case opts.Mode.UsesSchedule() && opts.Schedule == nil:
		return nil, fmt.Errorf("mode %s needs a reset schedule", opts.Mode)
	case opts.Mode == ModeMasked && opts.Mask == nil:
		return nil, fmt.Errorf("mode %s needs a reset mask", opts.Mode)
	case opts.Mode == ModeNet:
		if _, ok := synth.(engine.ResetScorer); !ok {
			return nil, fmt.Errorf("mode %s needs an engine that scores resets", opts.Mode)
		}
		if err := opts.Net.Validate(); err != nil {
			return nil, err
		}
	case opts.Mode == ModeLag:
		if err := opts.Conceal.Validate(features.FrameSize); err != nil {
			return nil, err
		}
	}
	if opts.TrailingSilenceFrames < 0 {
		return nil, fmt.Errorf("trailing silence frames must not be negative, got %d", opts.TrailingSilenceFrames)
	}

	return &Runner{
		synth:    synth,
		opts:     opts,
		envelope: spectral.NewBarkEnvelopeWithParams(opts.Envelope),
		logger:   logging.OrGlobal(logger).WithFields(logging.Fields{"component": "synthesis", "mode": opts.Mode.String()}),
	}, nil
}

func (r *Runner) newStrategy(source string) (Strategy, error) {
	b := base{synth: r.synth, logger: r.logger}

	switch r.opts.Mode {
	case ModePlain:
		return &plainStrategy{base: b}, nil
	case ModeRule:
		return &scheduledStrategy{base: b, schedule: r.opts.Schedule}, nil
	case ModeNet:
		scheduler, err := resets.NewNetScheduler(r.opts.Net)
		if err != nil {
			return nil, err
		}
		return &netStrategy{base: b, scorer: r.synth.(engine.ResetScorer), scheduler: scheduler}, nil
	case ModeCrossfade:
		return &crossfadeStrategy{base: b, schedule: r.opts.Schedule}, nil
	case ModeLag:
		aligner, err := conceal.NewLagAligner(r.opts.Conceal, features.FrameSize)
		if err != nil {
			return nil, err
		}
		return &lagStrategy{base: b, schedule: r.opts.Schedule, aligner: aligner}, nil
	case ModeMasked:
		return &maskedStrategy{base: b, mask: r.opts.Mask, sources: []string{source, r.opts.Mask.Name()}}, nil
	default:
		return nil, fmt.Errorf("unsupported synthesis mode %s", r.opts.Mode)
	}
}

// prepare builds the engine input for a record: the synthesis features with
// the cepstral deltas cleared, optionally hiss-limited
func (r *Runner) prepare(frame features.Frame) (features.Frame, error) {
	in := frame.SynthesisInput()
	if !r.opts.Hiss.Enabled {
		return in, nil
	}

	n := r.envelope.NumBands()
	c, err := r.envelope.RemoveHiss(in.Cepstrum(n), r.opts.Hiss.FromBand, r.opts.Hiss.Ceiling)
	if err != nil {
		return nil, err
	}
	for i, v := range c {
		in[i] = float32(v)
	}
	return in, nil
}

// Run synthesizes frames in order until the stream ends, writing every
// sample to sink. The context is checked between frames. On error the
// result covers the frames processed so far.
func (r *Runner) Run(ctx context.Context, frames features.FrameReader, sink Sink) (*Result, error) {
	strategy, err := r.newStrategy(frames.Name())
	if err != nil {
		return nil, err
	}

	result := &Result{Mode: r.opts.Mode.String()}
	var (
		prev        []int16
		fluxes      []float64
		fluxPending bool
	)

	emit := func(pcm []int16) error {
		if len(pcm) == 0 {
			return nil
		}
		if fluxPending && prev != nil {
			fluxes = append(fluxes, conceal.BoundaryFlux(prev, pcm[:min(len(pcm), features.FrameSize)]))
		}
		fluxPending = false

		if err := sink.Write(pcm); err != nil {
			return fmt.Errorf("failed to write samples: %w", err)
		}
		result.Samples += len(pcm)

		keep := min(len(pcm), features.FrameSize)
		prev = append(prev[:0], pcm[len(pcm)-keep:]...)
		return nil
	}

	finish := func() {
		result.ResetFrames = append([]int(nil), strategy.Resets()...)
		if len(fluxes) > 0 {
			result.MeanBoundaryFlux = stat.Mean(fluxes, nil)
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			finish()
			return result, err
		}

		frame, err := frames.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			finish()
			return result, err
		}

		in, err := r.prepare(frame)
		if err != nil {
			finish()
			return result, fmt.Errorf("frame %d: %w", result.Frames, err)
		}

		before := len(strategy.Resets())
		pcm, err := strategy.Process(in)
		if err != nil {
			finish()
			return result, err
		}
		result.Frames++
		if len(strategy.Resets()) > before {
			fluxPending = true
		}

		if err := emit(pcm); err != nil {
			finish()
			return result, err
		}
	}

	tail, err := strategy.Flush()
	if emitErr := emit(tail); emitErr != nil && err == nil {
		err = emitErr
	}
	if err != nil {
		finish()
		return result, err
	}

	silence := make([]int16, features.FrameSize)
	for i := 0; i < r.opts.TrailingSilenceFrames; i++ {
		if err := emit(silence); err != nil {
			finish()
			return result, err
		}
	}

	finish()
	r.logger.Info("synthesis finished", logging.Fields{
		"frames":  result.Frames,
		"samples": result.Samples,
		"resets":  len(result.ResetFrames),
		"flux":    result.MeanBoundaryFlux,
	})

	return result, nil
}
