package resets

import (
	"fmt"
	"io"

	"github.com/RyanBlaney/sonido-splice/algorithms/spectral"
	"github.com/RyanBlaney/sonido-splice/features"
	"github.com/RyanBlaney/sonido-splice/logging"
)

// Statistics holds per-frame energy statistics of a whole feature file as
// parallel arrays indexed by frame number
type Statistics struct {
	Energy        []float64 `json:"energy"`
	UnvoicedRatio []float64 `json:"unvoiced_ratio"`
}

// Len returns the number of analyzed frames
func (s *Statistics) Len() int {
	if s == nil {
		return 0
	}
	return min(len(s.Energy), len(s.UnvoicedRatio))
}

// Append records the statistics of the next frame
func (s *Statistics) Append(e spectral.EnergyStats) {
	s.Energy = append(s.Energy, e.TotalEnergy)
	s.UnvoicedRatio = append(s.UnvoicedRatio, e.UnvoicedRatio)
}

// Analyzer turns feature frames into energy statistics
type Analyzer struct {
	envelope *spectral.BarkEnvelope
	logger   logging.Logger
}

// NewAnalyzer creates an analyzer using the given envelope parameters
func NewAnalyzer(params spectral.BarkEnvelopeParams, logger logging.Logger) *Analyzer {
	return &Analyzer{
		envelope: spectral.NewBarkEnvelopeWithParams(params),
		logger:   logging.OrGlobal(logger).WithFields(logging.Fields{"component": "analyzer"}),
	}
}

// FrameStats computes the energy statistics of a single frame
func (a *Analyzer) FrameStats(f features.Frame) (spectral.EnergyStats, error) {
	return a.envelope.Energy(f.Cepstrum(a.envelope.NumBands()))
}

// Analyze reads every frame of r and returns their statistics
func (a *Analyzer) Analyze(r features.FrameReader) (*Statistics, error) {
	stats := &Statistics{}

	for {
		f, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, err
		}

		e, err := a.FrameStats(f)
		if err != nil {
			return stats, fmt.Errorf("failed to analyze frame %d of %s: %w", stats.Len(), r.Name(), err)
		}
		stats.Append(e)
	}

	a.logger.Debug("analyzed feature file", logging.Fields{
		"source": r.Name(),
		"frames": stats.Len(),
	})

	return stats, nil
}
