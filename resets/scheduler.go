package resets

import (
	"fmt"

	"github.com/RyanBlaney/sonido-splice/algorithms/spectral"
	"github.com/RyanBlaney/sonido-splice/features"
	"github.com/RyanBlaney/sonido-splice/logging"
)

// SchedulerParams configures the offline reset-point scan
type SchedulerParams struct {
	SilenceEnergyThreshold   float64 `json:"silence_energy_threshold"`     // Total energy below which a frame is silent (default: 500)
	HighToLowEnergyThreshold float64 `json:"high_to_low_energy_threshold"` // Ratio above which a frame is unvoiced (default: 100)
	NumConsecSilentFrames    int     `json:"num_consec_silent_frames"`     // Silent run length that triggers a reset (default: 4)
	MinResetFrameDistance    int     `json:"min_reset_frame_distance"`     // Minimum spacing and boundary margin (default: 20)
}

// DefaultSchedulerParams returns the reference thresholds
func DefaultSchedulerParams() SchedulerParams {
	return SchedulerParams{
		SilenceEnergyThreshold:   500.0,
		HighToLowEnergyThreshold: 100.0,
		NumConsecSilentFrames:    4,
		MinResetFrameDistance:    20,
	}
}

// Validate checks the parameters for values the scan cannot work with
func (p SchedulerParams) Validate() error {
	if p.NumConsecSilentFrames <= 0 {
		return fmt.Errorf("num_consec_silent_frames must be positive, got %d", p.NumConsecSilentFrames)
	}
	if p.MinResetFrameDistance <= 0 {
		return fmt.Errorf("min_reset_frame_distance must be positive, got %d", p.MinResetFrameDistance)
	}
	return nil
}

// Scheduler selects frames at which synthesis state may be discarded
type Scheduler struct {
	params SchedulerParams
	logger logging.Logger
}

// NewScheduler creates an offline scheduler
func NewScheduler(params SchedulerParams, logger logging.Logger) (*Scheduler, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Scheduler{
		params: params,
		logger: logging.OrGlobal(logger).WithFields(logging.Fields{"component": "scheduler"}),
	}, nil
}

// Select runs one greedy left-to-right pass over the statistics.
//
// A frame becomes a reset point when it completes a run of exactly
// NumConsecSilentFrames silent frames, or when it is unvoiced and its
// high-to-low ratio dropped below the previous unvoiced frame's ratio. The
// first acceptable frame wins; candidates are never revisited. Accepted
// frames are more than MinResetFrameDistance apart and at least that far
// from either end of the file.
func (s *Scheduler) Select(stats *Statistics) []int {
	n := stats.Len()
	margin := s.params.MinResetFrameDistance
	threshold := s.params.HighToLowEnergyThreshold

	var resets []int
	lastReset := 0
	hasReset := false
	silenceCount := 0
	lowestRatio := threshold

	accept := func(i int) {
		resets = append(resets, i)
		lastReset = i
		hasReset = true
		lowestRatio = threshold
	}

	for i := max(margin-s.params.NumConsecSilentFrames+1, 0); i <= n-margin; i++ {
		if stats.Energy[i] < s.params.SilenceEnergyThreshold {
			silenceCount++
		} else {
			silenceCount = 0
		}

		ratio := stats.UnvoicedRatio[i]
		unvoiced := ratio > threshold
		if !unvoiced {
			lowestRatio = threshold
		}

		if hasReset && i-lastReset <= margin {
			continue
		}

		if silenceCount == s.params.NumConsecSilentFrames {
			accept(i)
			continue
		}

		if unvoiced {
			if ratio < lowestRatio && i >= margin {
				accept(i)
				continue
			}
			lowestRatio = ratio
		}
	}

	s.logger.Debug("selected reset frames", logging.Fields{
		"frames": n,
		"resets": len(resets),
	})

	return resets
}

// GetResetFrames analyzes a whole feature stream and returns the ordered
// frame indices at which synthesis can start from scratch
func GetResetFrames(r features.FrameReader, envelope spectral.BarkEnvelopeParams, params SchedulerParams, logger logging.Logger) ([]int, *Statistics, error) {
	scheduler, err := NewScheduler(params, logger)
	if err != nil {
		return nil, nil, err
	}

	stats, err := NewAnalyzer(envelope, logger).Analyze(r)
	if err != nil {
		return nil, stats, fmt.Errorf("failed to analyze %s: %w", r.Name(), err)
	}

	return scheduler.Select(stats), stats, nil
}
