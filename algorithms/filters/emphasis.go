package filters

import (
	"fmt"
)

// Deemphasis undoes a first-order pre-emphasis on synthesized speech.
//
// The filter implements the transfer function:
// H(z) = 1 / (1 - α*z^-1)
//
// With the difference equation:
// y[n] = x[n] + α*y[n-1]
//
// Vocoders that model a pre-emphasized signal (α = 0.85 for 16 kHz speech)
// run their output through this filter. Its memory is part of the engine
// state and is cleared by a reset.
type Deemphasis struct {
	coefficient float64 // α
	y1          float64 // previous output y[n-1]
}

// NewDeemphasis creates a de-emphasis filter with the given coefficient
func NewDeemphasis(coefficient float64) (*Deemphasis, error) {
	if coefficient < 0 || coefficient >= 1 {
		return nil, fmt.Errorf("de-emphasis coefficient must be in [0, 1), got %v", coefficient)
	}
	return &Deemphasis{coefficient: coefficient}, nil
}

// Process filters a single sample
func (d *Deemphasis) Process(input float64) float64 {
	output := input + d.coefficient*d.y1
	d.y1 = output
	return output
}

// ProcessBuffer filters a buffer in place
func (d *Deemphasis) ProcessBuffer(buf []float64) {
	for i, sample := range buf {
		buf[i] = d.Process(sample)
	}
}

// Reset clears the filter memory
func (d *Deemphasis) Reset() {
	d.y1 = 0.0
}

// Clone returns a filter with the same coefficient and memory
func (d *Deemphasis) Clone() *Deemphasis {
	c := *d
	return &c
}

// OnePole is a first-order low-pass smoother:
// y[n] = (1-a)*x[n] + a*y[n-1]
// A pole closer to 1 tilts the spectrum further toward low frequencies.
type OnePole struct {
	pole float64
	y1   float64
}

// NewOnePole creates a smoother with pole a in [0, 1)
func NewOnePole(pole float64) *OnePole {
	op := &OnePole{}
	op.SetPole(pole)
	return op
}

// SetPole changes the pole without touching the filter memory
func (op *OnePole) SetPole(pole float64) {
	op.pole = min(max(pole, 0.0), 0.999)
}

// Process filters a single sample
func (op *OnePole) Process(input float64) float64 {
	output := (1-op.pole)*input + op.pole*op.y1
	op.y1 = output
	return output
}

// Reset clears the filter memory
func (op *OnePole) Reset() {
	op.y1 = 0.0
}

// Clone returns a smoother with the same pole and memory
func (op *OnePole) Clone() *OnePole {
	c := *op
	return &c
}
