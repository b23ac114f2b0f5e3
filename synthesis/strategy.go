package synthesis

import (
	"errors"
	"fmt"
	"io"

	"github.com/RyanBlaney/sonido-splice/conceal"
	"github.com/RyanBlaney/sonido-splice/engine"
	"github.com/RyanBlaney/sonido-splice/features"
	"github.com/RyanBlaney/sonido-splice/logging"
	"github.com/RyanBlaney/sonido-splice/resets"
)

// MaskSource yields one reset flag per frame
type MaskSource interface {
	Next() (bool, error)
	Name() string
}

// Strategy turns prepared feature frames into PCM. A frame may produce
// no samples (the reset frame of the lag-aligned mode) or more than one
// frame of samples (the frame after it).
type Strategy interface {
	Process(frame features.Frame) ([]int16, error)
	// Flush returns samples still held when input ends
	Flush() ([]int16, error)
	// Resets lists the frames at which the primary engine was reset
	Resets() []int
}

type base struct {
	synth  engine.Synthesizer
	frame  int
	resets []int
	logger logging.Logger
}

func (b *base) synthesize(frame features.Frame, reset bool) []int16 {
	pcm := make([]int16, features.FrameSize)
	b.synth.Synthesize(frame, reset, pcm)
	if reset {
		b.resets = append(b.resets, b.frame)
		b.logger.Debug("reset synthesis state", logging.Fields{"frame": b.frame})
	}
	return pcm
}

// continuation synthesizes the frame on a copy of the engine that keeps
// its state
func (b *base) continuation(frame features.Frame) []int16 {
	pcm := make([]int16, features.FrameSize)
	b.synth.Clone().Synthesize(frame, false, pcm)
	return pcm
}

func (b *base) Resets() []int {
	return b.resets
}

func (b *base) Flush() ([]int16, error) {
	return nil, nil
}

type plainStrategy struct {
	base
}

func (s *plainStrategy) Process(frame features.Frame) ([]int16, error) {
	pcm := s.synthesize(frame, false)
	s.frame++
	return pcm, nil
}

type scheduledStrategy struct {
	base
	schedule resets.Schedule
}

func (s *scheduledStrategy) Process(frame features.Frame) ([]int16, error) {
	pcm := s.synthesize(frame, s.schedule.IsReset(s.frame))
	s.frame++
	return pcm, nil
}

type netStrategy struct {
	base
	scorer    engine.ResetScorer
	scheduler *resets.NetScheduler
}

func (s *netStrategy) Process(frame features.Frame) ([]int16, error) {
	score := s.scorer.ResetProbability(frame)
	reset := s.scheduler.Observe(s.synth.FrameCount(), score)
	pcm := s.synthesize(frame, reset)
	s.frame++
	return pcm, nil
}

type maskedStrategy struct {
	base
	mask    MaskSource
	sources []string
}

func (s *maskedStrategy) Process(frame features.Frame) ([]int16, error) {
	reset, err := s.mask.Next()
	if errors.Is(err, io.EOF) {
		return nil, &features.AlignmentError{Sources: s.sources, Frame: s.frame}
	}
	if err != nil {
		return nil, err
	}

	pcm := s.synthesize(frame, reset)
	s.frame++
	return pcm, nil
}

func (s *maskedStrategy) Flush() ([]int16, error) {
	_, err := s.mask.Next()
	switch {
	case errors.Is(err, io.EOF):
		return nil, nil
	case err != nil:
		return nil, err
	default:
		return nil, &features.AlignmentError{Sources: s.sources, Frame: s.frame}
	}
}

type crossfadeStrategy struct {
	base
	schedule resets.Schedule
}

func (s *crossfadeStrategy) Process(frame features.Frame) ([]int16, error) {
	defer func() { s.frame++ }()

	if !s.schedule.IsReset(s.frame) {
		return s.synthesize(frame, false), nil
	}

	cont := s.continuation(frame)
	return conceal.Crossfade(cont, s.synthesize(frame, true))
}

type lagStrategy struct {
	base
	schedule resets.Schedule
	aligner  *conceal.LagAligner
}

func (s *lagStrategy) Process(frame features.Frame) ([]int16, error) {
	defer func() { s.frame++ }()

	reset := s.schedule.IsReset(s.frame)

	if s.aligner.Held() {
		if reset {
			s.logger.Warn("skipping reset on the frame after a concealed reset", logging.Fields{"frame": s.frame})
		}
		return s.aligner.Release(s.synthesize(frame, false))
	}

	if !reset {
		return s.synthesize(frame, false), nil
	}

	cont := s.continuation(frame)
	lag, err := s.aligner.Hold(cont, s.synthesize(frame, true))
	if err != nil {
		return nil, fmt.Errorf("frame %d: %w", s.frame, err)
	}
	s.logger.Debug("holding reset frame", logging.Fields{"frame": s.frame, "lag": lag})
	return nil, nil
}

func (s *lagStrategy) Flush() ([]int16, error) {
	return s.aligner.Flush(), nil
}
