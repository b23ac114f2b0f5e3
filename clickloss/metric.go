// Package clickloss scores how audible a synthesis state reset is by
// comparing the Bark envelopes of reference and synthesized features around
// the reset boundary.
package clickloss

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-splice/algorithms/spectral"
	"github.com/RyanBlaney/sonido-splice/features"
)

// MetricParams configures the click loss
type MetricParams struct {
	NumLowBands  int     `json:"num_low_bands"`  // Lowest bands tracked with the squared term (default: 3)
	NumHighBands int     `json:"num_high_bands"` // Highest bands tracked with the ratio term (default: 3)
	RealFloor    float64 `json:"real_floor"`     // Reference envelope values at or below this are skipped (default: 1.01)
}

// DefaultMetricParams returns the reference click loss parameters
func DefaultMetricParams() MetricParams {
	return MetricParams{
		NumLowBands:  3,
		NumHighBands: 3,
		RealFloor:    1.01,
	}
}

// Metric compares reference and synthesized envelopes
type Metric struct {
	params   MetricParams
	envelope *spectral.BarkEnvelope
}

// NewMetric creates a click loss metric over the given envelope
func NewMetric(envelope spectral.BarkEnvelopeParams, params MetricParams) *Metric {
	be := spectral.NewBarkEnvelopeWithParams(envelope)
	params.NumLowBands = min(max(params.NumLowBands, 0), be.NumBands())
	params.NumHighBands = min(max(params.NumHighBands, 0), be.NumBands())
	return &Metric{params: params, envelope: be}
}

// Loss returns (low + high)^2 where low is the largest fake^2/real over the
// lowest bands and high the largest fake/real over the highest bands. Only
// bands where the synthesized envelope exceeds the reference, and the
// reference exceeds RealFloor, contribute. The loss is zero when synthesis
// never overshoots the reference.
func (m *Metric) Loss(real, fake features.Frame) (float64, error) {
	n := m.envelope.NumBands()

	realEnv, err := m.envelope.Envelope(real.Cepstrum(n))
	if err != nil {
		return 0, fmt.Errorf("reference frame: %w", err)
	}
	fakeEnv, err := m.envelope.Envelope(fake.Cepstrum(n))
	if err != nil {
		return 0, fmt.Errorf("synthesized frame: %w", err)
	}

	return m.lossFromEnvelopes(realEnv, fakeEnv), nil
}

func (m *Metric) lossFromEnvelopes(realEnv, fakeEnv []float64) float64 {
	n := len(realEnv)

	low := 0.0
	for i := 0; i < m.params.NumLowBands; i++ {
		if m.overshoots(realEnv[i], fakeEnv[i]) {
			low = math.Max(low, fakeEnv[i]*fakeEnv[i]/realEnv[i])
		}
	}

	high := 0.0
	for i := n - m.params.NumHighBands; i < n; i++ {
		if m.overshoots(realEnv[i], fakeEnv[i]) {
			high = math.Max(high, fakeEnv[i]/realEnv[i])
		}
	}

	sum := low + high
	return sum * sum
}

func (m *Metric) overshoots(real, fake float64) bool {
	return fake > real && real > m.params.RealFloor
}
