package engine

import (
	"slices"
	"testing"

	"github.com/RyanBlaney/sonido-splice/algorithms/spectral"
	"github.com/RyanBlaney/sonido-splice/features"
)

func testFrame(t *testing.T, level, pitch, corr float64) features.Frame {
	t.Helper()
	env := make([]float64, features.NumBands)
	for i := range env {
		env[i] = level
	}
	c, err := spectral.NewBarkEnvelope(features.NumBands).DCT(env)
	if err != nil {
		t.Fatalf("DCT failed: %v", err)
	}
	c[0] -= spectral.DefaultBarkEnvelopeParams().C0Offset

	f := features.NewFrame()
	for i, v := range c {
		f[i] = float32(v)
	}
	f[features.PitchIndex] = float32(pitch)
	f[features.PitchCorrIndex] = float32(corr)
	return f
}

func newTestEngine(t *testing.T) *Parametric {
	t.Helper()
	p, err := NewParametric(DefaultParametricParams())
	if err != nil {
		t.Fatalf("NewParametric failed: %v", err)
	}
	return p
}

func run(e Synthesizer, frames []features.Frame, resetAt int) [][]int16 {
	out := make([][]int16, len(frames))
	for i, f := range frames {
		out[i] = make([]int16, features.FrameSize)
		e.Synthesize(f.SynthesisInput(), i == resetAt, out[i])
	}
	return out
}

func voicedFrames(t *testing.T, n int) []features.Frame {
	frames := make([]features.Frame, n)
	for i := range frames {
		frames[i] = testFrame(t, 3, -0.3+0.05*float64(i%4), 0.3)
	}
	return frames
}

func TestParametricIsDeterministic(t *testing.T) {
	frames := voicedFrames(t, 8)
	a := run(newTestEngine(t), frames, -1)
	b := run(newTestEngine(t), frames, -1)

	for i := range a {
		if !slices.Equal(a[i], b[i]) {
			t.Fatalf("frame %d differs between identical engines", i)
		}
	}
}

func TestParametricCloneMatchesSource(t *testing.T) {
	frames := voicedFrames(t, 10)
	e := newTestEngine(t)
	run(e, frames[:5], -1)

	c := e.Clone()
	if c.FrameCount() != 5 {
		t.Fatalf("clone frame count = %d, want 5", c.FrameCount())
	}

	a := run(e, frames[5:], -1)
	b := run(c, frames[5:], -1)
	for i := range a {
		if !slices.Equal(a[i], b[i]) {
			t.Fatalf("frame %d differs between engine and clone", i+5)
		}
	}
	if e.FrameCount() != 10 {
		t.Errorf("frame count = %d, want 10", e.FrameCount())
	}
}

func TestParametricResetChangesOutput(t *testing.T) {
	frames := voicedFrames(t, 8)
	cont := run(newTestEngine(t), frames, -1)
	reset := run(newTestEngine(t), frames, 5)

	for i := 0; i < 5; i++ {
		if !slices.Equal(cont[i], reset[i]) {
			t.Fatalf("frame %d differs before the reset", i)
		}
	}
	if slices.Equal(cont[5], reset[5]) {
		t.Error("reset did not change the synthesized frame")
	}
}

func TestParametricSilentInputIsQuiet(t *testing.T) {
	e := newTestEngine(t)
	pcm := make([]int16, features.FrameSize)
	e.Synthesize(testFrame(t, -3, 0, -0.5), false, pcm)
	for i, s := range pcm {
		if s > 1 || s < -1 {
			t.Fatalf("sample %d = %d, want near silence", i, s)
		}
	}
}

func TestResetProbability(t *testing.T) {
	e := newTestEngine(t)

	tests := []struct {
		name   string
		frame  features.Frame
		wantHi bool
	}{
		{"silence", testFrame(t, 0, 0, -0.5), true},
		{"loud voiced", testFrame(t, 4, 0, 0.4), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := e.ResetProbability(tt.frame)
			if p < 0 || p > 1 {
				t.Fatalf("probability %v outside [0, 1]", p)
			}
			if tt.wantHi && p <= 0.95 {
				t.Errorf("probability = %v, want > 0.95", p)
			}
			if !tt.wantHi && p >= 0.5 {
				t.Errorf("probability = %v, want < 0.5", p)
			}
		})
	}

	if e.FrameCount() != 0 {
		t.Errorf("scoring advanced the engine to frame %d", e.FrameCount())
	}
}

func TestNewParametricValidates(t *testing.T) {
	p := DefaultParametricParams()
	p.MaxPitch = 10
	if _, err := NewParametric(p); err == nil {
		t.Error("expected error for inverted pitch range")
	}

	p = DefaultParametricParams()
	p.Deemphasis = 1
	if _, err := NewParametric(p); err == nil {
		t.Error("expected error for unstable de-emphasis")
	}
}
