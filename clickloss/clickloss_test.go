package clickloss

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/RyanBlaney/sonido-splice/algorithms/spectral"
	"github.com/RyanBlaney/sonido-splice/features"
	"github.com/RyanBlaney/sonido-splice/logging"
)

// frameFromEnvelope builds a feature frame whose bias-corrected envelope is env
func frameFromEnvelope(t *testing.T, env []float64) features.Frame {
	t.Helper()
	be := spectral.NewBarkEnvelope(features.NumBands)
	c, err := be.DCT(env)
	if err != nil {
		t.Fatalf("DCT failed: %v", err)
	}
	c[0] -= spectral.DefaultBarkEnvelopeParams().C0Offset

	f := features.NewFrame()
	for i, v := range c {
		f[i] = float32(v)
	}
	return f
}

// flatEnvelope returns a constant envelope. Synthesized test frames sit
// slightly below the reference so float32 rounding never reads as overshoot.
func flatEnvelope(level float64) []float64 {
	env := make([]float64, features.NumBands)
	for i := range env {
		env[i] = level
	}
	return env
}

func newTestMetric() *Metric {
	return NewMetric(spectral.DefaultBarkEnvelopeParams(), DefaultMetricParams())
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) <= 1e-3*math.Max(1, math.Abs(b))
}

func TestLossIdenticalFramesIsZero(t *testing.T) {
	m := newTestMetric()
	for _, level := range []float64{-1, 0.5, 2, 5} {
		env := flatEnvelope(level)
		env[0] = level * 2
		env[17] = level + 1
		f := frameFromEnvelope(t, env)

		got, err := m.Loss(f, f)
		if err != nil {
			t.Fatalf("Loss failed: %v", err)
		}
		if got != 0 {
			t.Errorf("level %v: loss of identical frames = %v, want 0", level, got)
		}
	}
}

func TestLossKnownValue(t *testing.T) {
	m := newTestMetric()
	real := frameFromEnvelope(t, flatEnvelope(2))

	fakeEnv := flatEnvelope(1.9)
	fakeEnv[0] = 4  // low term 16/2 = 8
	fakeEnv[17] = 3 // high term 3/2 = 1.5
	got, err := m.Loss(real, frameFromEnvelope(t, fakeEnv))
	if err != nil {
		t.Fatalf("Loss failed: %v", err)
	}
	if !approxEqual(got, 90.25) {
		t.Errorf("loss = %v, want 90.25", got)
	}
}

func TestLossIgnoresUnderEnergeticAndFloor(t *testing.T) {
	m := newTestMetric()

	quieter := flatEnvelope(1)
	got, err := m.Loss(frameFromEnvelope(t, flatEnvelope(2)), frameFromEnvelope(t, quieter))
	if err != nil {
		t.Fatalf("Loss failed: %v", err)
	}
	if got != 0 {
		t.Errorf("under-energetic synthesis loss = %v, want 0", got)
	}

	// reference at or below the floor never contributes
	louder := flatEnvelope(5)
	got, err = m.Loss(frameFromEnvelope(t, flatEnvelope(1.0)), frameFromEnvelope(t, louder))
	if err != nil {
		t.Fatalf("Loss failed: %v", err)
	}
	if got != 0 {
		t.Errorf("loss against sub-floor reference = %v, want 0", got)
	}
}

func TestLossMonotonicInOvershoot(t *testing.T) {
	m := newTestMetric()
	real := frameFromEnvelope(t, flatEnvelope(2))

	for _, band := range []int{0, 1, 2, 15, 16, 17} {
		prev := -1.0
		for _, v := range []float64{2.1, 2.5, 3, 4, 8} {
			env := flatEnvelope(1.9)
			env[band] = v
			got, err := m.Loss(real, frameFromEnvelope(t, env))
			if err != nil {
				t.Fatalf("Loss failed: %v", err)
			}
			if got < prev {
				t.Errorf("band %d: loss decreased from %v to %v at fake=%v", band, prev, got, v)
			}
			prev = got
		}
	}
}

func maskReader(name string, flags ...int16) *features.MaskReader {
	var buf bytes.Buffer
	for _, f := range flags {
		binary.Write(&buf, binary.LittleEndian, f)
	}
	return features.NewMaskReader(&buf, name)
}

func decodePairs(t *testing.T, raw []byte) [][2]float32 {
	t.Helper()
	pairs := make([][2]float32, len(raw)/8)
	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, pairs); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	return pairs
}

func TestEvaluatorRun(t *testing.T) {
	realFrame := frameFromEnvelope(t, flatEnvelope(2))
	reals := []features.Frame{realFrame, realFrame, realFrame, realFrame, realFrame}

	overshoot4 := flatEnvelope(1.9)
	overshoot4[0] = 4 // loss 64
	overshoot3 := flatEnvelope(1.9)
	overshoot3[0] = 3 // loss 20.25
	fakes := []features.Frame{
		realFrame,
		frameFromEnvelope(t, overshoot4),
		frameFromEnvelope(t, overshoot3),
		realFrame,
		realFrame,
	}

	var out bytes.Buffer
	ev := NewEvaluator(newTestMetric(), &logging.NoOpLogger{})
	summary, err := ev.Run(context.Background(),
		features.NewSliceReader("real.f32", reals),
		features.NewSliceReader("fake.f32", fakes),
		maskReader("resets.msk", 0, 1, 0, 0, 1),
		features.NewLossWriter(&out),
	)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	pairs := decodePairs(t, out.Bytes())
	if len(pairs) != 5 {
		t.Fatalf("got %d pairs, want 5", len(pairs))
	}
	for i, p := range pairs {
		if i == 1 {
			if !approxEqual(float64(p[0]), 84.25) || p[1] != 1 {
				t.Errorf("pair %d = %v, want {84.25 1}", i, p)
			}
			continue
		}
		if p != [2]float32{0, 0} {
			t.Errorf("pair %d = %v, want {0 0}", i, p)
		}
	}

	if summary.Frames != 5 || summary.Resets != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if !approxEqual(summary.MeanLoss, 84.25) || !approxEqual(summary.MaxLoss, 84.25) {
		t.Errorf("summary losses = %v / %v, want 84.25", summary.MeanLoss, summary.MaxLoss)
	}
}

func TestEvaluatorStopsOnBadInput(t *testing.T) {
	frame := frameFromEnvelope(t, flatEnvelope(2))
	frames := []features.Frame{frame, frame, frame}

	t.Run("mask shorter than features", func(t *testing.T) {
		var out bytes.Buffer
		_, err := NewEvaluator(newTestMetric(), &logging.NoOpLogger{}).Run(context.Background(),
			features.NewSliceReader("real.f32", frames),
			features.NewSliceReader("fake.f32", frames),
			maskReader("resets.msk", 0, 0),
			features.NewLossWriter(&out),
		)
		var ae *features.AlignmentError
		if !errors.As(err, &ae) {
			t.Fatalf("expected *AlignmentError, got %v", err)
		}
		if ae.Frame != 2 || len(ae.Sources) != 3 {
			t.Errorf("unexpected alignment error %+v", ae)
		}
		// the pair for frame 1 was flushed before stopping
		if out.Len() != 8 {
			t.Errorf("partial output = %d bytes, want 8", out.Len())
		}
	})

	t.Run("illegal mask value", func(t *testing.T) {
		var out bytes.Buffer
		_, err := NewEvaluator(newTestMetric(), &logging.NoOpLogger{}).Run(context.Background(),
			features.NewSliceReader("real.f32", frames),
			features.NewSliceReader("fake.f32", frames),
			maskReader("resets.msk", 0, 7, 0),
			features.NewLossWriter(&out),
		)
		if !errors.Is(err, features.ErrFormat) {
			t.Fatalf("expected format error, got %v", err)
		}
	})
}
