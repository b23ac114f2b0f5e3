package features

// Feature layout of one record in a feature file
const (
	NumBands         = 18 // Bark cepstral coefficients
	NumFeatures      = 38 // values handed to the synthesis engine
	NumTotalFeatures = 55 // float32 values per record on disk

	PitchIndex     = 36 // pitch period parameter
	PitchCorrIndex = 37 // pitch correlation parameter

	FrameSize  = 160   // samples per synthesized frame
	SampleRate = 16000 // Hz
)

// Frame is one time step of acoustic parameters as stored in a feature file:
// NumBands cepstral coefficients followed by auxiliary and pitch parameters.
type Frame []float32

// NewFrame allocates a zeroed record-sized frame
func NewFrame() Frame {
	return make(Frame, NumTotalFeatures)
}

// Clone returns an independent copy of the frame
func (f Frame) Clone() Frame {
	c := make(Frame, len(f))
	copy(c, f)
	return c
}

// Cepstrum returns the first n coefficients as float64
func (f Frame) Cepstrum(n int) []float64 {
	if n > len(f) {
		n = len(f)
	}
	c := make([]float64, n)
	for i := 0; i < n; i++ {
		c[i] = float64(f[i])
	}
	return c
}

// SynthesisInput returns the first NumFeatures values with the cepstral
// delta block [NumBands, 2*NumBands) cleared. The engine only conditions on
// the static cepstrum and the pitch parameters.
func (f Frame) SynthesisInput() Frame {
	in := make(Frame, NumFeatures)
	copy(in, f)
	for i := NumBands; i < 2*NumBands && i < len(in); i++ {
		in[i] = 0
	}
	return in
}

// Pitch returns the pitch period and pitch correlation parameters
func (f Frame) Pitch() (period, corr float64) {
	if len(f) > PitchIndex {
		period = float64(f[PitchIndex])
	}
	if len(f) > PitchCorrIndex {
		corr = float64(f[PitchCorrIndex])
	}
	return period, corr
}
