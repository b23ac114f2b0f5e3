package spectral

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// BarkEnvelope converts Bark cepstral coefficients into a per-band
// log10-energy envelope and back. The transform pair is an orthonormal
// DCT-II / DCT-III over NumBands points.
type BarkEnvelope struct {
	numBands      int
	c0Offset      float64
	numHighBands  int
	numLowBands   int
	ratioSentinel float64

	idct *mat.Dense // envelope = idct * cepstrum
	dct  *mat.Dense // cepstrum = dct * envelope
}

// BarkEnvelopeParams contains parameters for envelope and energy computation
type BarkEnvelopeParams struct {
	NumBands      int     `json:"num_bands"`      // Number of Bark bands (default: 18)
	C0Offset      float64 `json:"c0_offset"`      // Bias added to C0 before the IDCT (default: 4)
	NumHighBands  int     `json:"num_high_bands"` // Bands summed into high-band energy (default: 4)
	NumLowBands   int     `json:"num_low_bands"`  // Bands summed into low-band energy (default: 5)
	RatioSentinel float64 `json:"ratio_sentinel"` // High/low ratio reported when low-band energy is zero
}

// EnergyStats holds the scalar statistics of one frame
type EnergyStats struct {
	TotalEnergy   float64 `json:"total_energy"`
	HighEnergy    float64 `json:"high_energy"`
	LowEnergy     float64 `json:"low_energy"`
	UnvoicedRatio float64 `json:"unvoiced_ratio"` // HighEnergy / LowEnergy
}

// DefaultBarkEnvelopeParams returns the parameters used by the feature files
// this package reads
func DefaultBarkEnvelopeParams() BarkEnvelopeParams {
	return BarkEnvelopeParams{
		NumBands:      18,
		C0Offset:      4.0,
		NumHighBands:  4,
		NumLowBands:   5,
		RatioSentinel: math.MaxFloat32,
	}
}

// NewBarkEnvelope creates an envelope converter with default parameters
func NewBarkEnvelope(numBands int) *BarkEnvelope {
	params := DefaultBarkEnvelopeParams()
	params.NumBands = numBands
	return NewBarkEnvelopeWithParams(params)
}

// NewBarkEnvelopeWithParams creates an envelope converter with custom parameters
func NewBarkEnvelopeWithParams(params BarkEnvelopeParams) *BarkEnvelope {
	defaults := DefaultBarkEnvelopeParams()
	if params.NumBands <= 0 {
		params.NumBands = defaults.NumBands
	}
	if params.NumHighBands <= 0 {
		params.NumHighBands = defaults.NumHighBands
	}
	if params.NumLowBands <= 0 {
		params.NumLowBands = defaults.NumLowBands
	}
	if params.RatioSentinel <= 0 {
		params.RatioSentinel = defaults.RatioSentinel
	}
	params.NumHighBands = min(params.NumHighBands, params.NumBands)
	params.NumLowBands = min(params.NumLowBands, params.NumBands)

	be := &BarkEnvelope{
		numBands:      params.NumBands,
		c0Offset:      params.C0Offset,
		numHighBands:  params.NumHighBands,
		numLowBands:   params.NumLowBands,
		ratioSentinel: params.RatioSentinel,
	}
	be.createTransforms()

	return be
}

// createTransforms builds the orthonormal DCT-III matrix and its transpose
func (be *BarkEnvelope) createTransforms() {
	n := be.numBands
	data := make([]float64, n*n)
	scale := math.Sqrt(2.0 / float64(n))

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := math.Cos((float64(i) + 0.5) * float64(j) * math.Pi / float64(n))
			if j == 0 {
				v *= math.Sqrt(0.5)
			}
			data[i*n+j] = v * scale
		}
	}

	be.idct = mat.NewDense(n, n, data)
	be.dct = mat.DenseCopyOf(be.idct.T())
}

// NumBands returns the number of Bark bands
func (be *BarkEnvelope) NumBands() int {
	return be.numBands
}

// IDCT applies the inverse cosine transform without any bias correction
func (be *BarkEnvelope) IDCT(cepstrum []float64) ([]float64, error) {
	if len(cepstrum) < be.numBands {
		return nil, fmt.Errorf("cepstrum has %d coefficients, need %d", len(cepstrum), be.numBands)
	}
	return be.apply(be.idct, cepstrum[:be.numBands]), nil
}

// DCT applies the forward cosine transform
func (be *BarkEnvelope) DCT(envelope []float64) ([]float64, error) {
	if len(envelope) < be.numBands {
		return nil, fmt.Errorf("envelope has %d bands, need %d", len(envelope), be.numBands)
	}
	return be.apply(be.dct, envelope[:be.numBands]), nil
}

func (be *BarkEnvelope) apply(m *mat.Dense, in []float64) []float64 {
	src := make([]float64, len(in))
	copy(src, in)

	var out mat.VecDense
	out.MulVec(m, mat.NewVecDense(len(src), src))
	return mat.Col(nil, 0, &out)
}

// Envelope converts cepstral coefficients into the log10-energy envelope.
// Coefficient 0 is bias-corrected by C0Offset first.
func (be *BarkEnvelope) Envelope(cepstrum []float64) ([]float64, error) {
	if len(cepstrum) < be.numBands {
		return nil, fmt.Errorf("cepstrum has %d coefficients, need %d", len(cepstrum), be.numBands)
	}

	c := make([]float64, be.numBands)
	copy(c, cepstrum)
	c[0] += be.c0Offset

	return be.apply(be.idct, c), nil
}

// Energy derives the total energy and the high-to-low band energy ratio of a
// frame. A frame whose low bands carry exactly zero energy reports
// RatioSentinel as its ratio.
func (be *BarkEnvelope) Energy(cepstrum []float64) (EnergyStats, error) {
	env, err := be.Envelope(cepstrum)
	if err != nil {
		return EnergyStats{}, err
	}

	power := make([]float64, len(env))
	for i, v := range env {
		power[i] = math.Pow(10.0, v)
	}

	n := be.numBands
	high := floats.Sum(power[n-be.numHighBands:])
	low := floats.Sum(power[:be.numLowBands])

	total := high + low
	if be.numLowBands < n-be.numHighBands {
		total += floats.Sum(power[be.numLowBands : n-be.numHighBands])
	}

	ratio := be.ratioSentinel
	if low != 0 {
		ratio = high / low
	}

	return EnergyStats{
		TotalEnergy:   total,
		HighEnergy:    high,
		LowEnergy:     low,
		UnvoicedRatio: ratio,
	}, nil
}

// RemoveHiss limits the envelope of bands fromBand and above to ceiling and
// returns the resulting cepstrum. No bias correction is applied.
func (be *BarkEnvelope) RemoveHiss(cepstrum []float64, fromBand int, ceiling float64) ([]float64, error) {
	env, err := be.IDCT(cepstrum)
	if err != nil {
		return nil, err
	}

	for i := max(fromBand, 0); i < len(env); i++ {
		if env[i] > ceiling {
			env[i] = ceiling
		}
	}

	return be.DCT(env)
}
