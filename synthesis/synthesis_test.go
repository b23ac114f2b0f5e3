package synthesis

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/go-audio/wav"

	"github.com/RyanBlaney/sonido-splice/engine"
	"github.com/RyanBlaney/sonido-splice/features"
	"github.com/RyanBlaney/sonido-splice/logging"
	"github.com/RyanBlaney/sonido-splice/resets"
)

// stepEngine emits a constant frame whose level counts the frames since
// the last reset, so resets and blends are visible in the samples
type stepEngine struct {
	level int
	count int
}

func (e *stepEngine) Synthesize(frame features.Frame, reset bool, pcm []int16) {
	if reset {
		e.level = 0
	}
	e.level++
	e.count++
	for i := range pcm {
		pcm[i] = int16(100 * e.level)
	}
}

func (e *stepEngine) FrameCount() int { return e.count }

func (e *stepEngine) Clone() engine.Synthesizer {
	c := *e
	return &c
}

// scoringEngine reads its reset score from the first feature
type scoringEngine struct {
	stepEngine
}

func (e *scoringEngine) ResetProbability(frame features.Frame) float64 {
	return float64(frame[0])
}

func (e *scoringEngine) Clone() engine.Synthesizer {
	c := *e
	return &c
}

func frames(n int) *features.SliceReader {
	out := make([]features.Frame, n)
	for i := range out {
		out[i] = features.NewFrame()
	}
	return features.NewSliceReader("test.f32", out)
}

func maskReader(flags ...int16) *features.MaskReader {
	var buf bytes.Buffer
	for _, f := range flags {
		binary.Write(&buf, binary.LittleEndian, f)
	}
	return features.NewMaskReader(&buf, "test.msk")
}

// memorySink collects samples per Write call
type memorySink struct {
	writes [][]int16
	closed bool
}

func (s *memorySink) Write(pcm []int16) error {
	s.writes = append(s.writes, slices.Clone(pcm))
	return nil
}

func (s *memorySink) Close() error {
	s.closed = true
	return nil
}

func (s *memorySink) samples() []int16 {
	return slices.Concat(s.writes...)
}

func runMode(t *testing.T, synth engine.Synthesizer, opts Options, n int) (*Result, *memorySink) {
	t.Helper()
	r, err := NewRunner(synth, opts, &logging.NoOpLogger{})
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}
	sink := &memorySink{}
	result, err := r.Run(context.Background(), frames(n), sink)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return result, sink
}

func options(mode Mode, schedule resets.Schedule) Options {
	opts := DefaultOptions()
	opts.Mode = mode
	opts.Schedule = schedule
	return opts
}

func TestPlainMode(t *testing.T) {
	result, sink := runMode(t, &stepEngine{}, options(ModePlain, nil), 5)

	if result.Frames != 5 || result.Samples != 5*features.FrameSize {
		t.Errorf("result = %+v", result)
	}
	if len(result.ResetFrames) != 0 {
		t.Errorf("reset frames = %v, want none", result.ResetFrames)
	}
	if got := sink.writes[4][0]; got != 500 {
		t.Errorf("frame 4 level = %d, want 500", got)
	}
}

func TestRuleMode(t *testing.T) {
	result, sink := runMode(t, &stepEngine{}, options(ModeRule, resets.NewFrameSet([]int{2})), 5)

	if !slices.Equal(result.ResetFrames, []int{2}) {
		t.Fatalf("reset frames = %v, want [2]", result.ResetFrames)
	}
	levels := []int16{100, 200, 100, 200, 300}
	for i, w := range sink.writes {
		if w[0] != levels[i] {
			t.Errorf("frame %d level = %d, want %d", i, w[0], levels[i])
		}
	}
	if result.MeanBoundaryFlux < 0 {
		t.Errorf("boundary flux = %v", result.MeanBoundaryFlux)
	}
}

func TestCrossfadeMode(t *testing.T) {
	result, sink := runMode(t, &stepEngine{}, options(ModeCrossfade, resets.NewFrameSet([]int{2})), 4)

	if !slices.Equal(result.ResetFrames, []int{2}) {
		t.Fatalf("reset frames = %v, want [2]", result.ResetFrames)
	}
	faded := sink.writes[2]
	if faded[0] != 300 {
		t.Errorf("first blended sample = %d, want continuation level 300", faded[0])
	}
	if faded[80] != 200 {
		t.Errorf("mid blended sample = %d, want 200", faded[80])
	}
	if faded[159] <= 100 || faded[159] >= 110 {
		t.Errorf("last blended sample = %d, want close to reset level 100", faded[159])
	}
	// the primary engine carries the reset state forward
	if sink.writes[3][0] != 200 {
		t.Errorf("frame after reset level = %d, want 200", sink.writes[3][0])
	}
}

func TestLagMode(t *testing.T) {
	t.Run("reset frame is deferred", func(t *testing.T) {
		result, sink := runMode(t, &stepEngine{}, options(ModeLag, resets.NewFrameSet([]int{2})), 5)

		if len(sink.writes) != 4 {
			t.Fatalf("got %d writes, want 4 (nothing at the reset frame)", len(sink.writes))
		}
		// constant buffers tie on every lag, so the lag is 0
		if n := len(sink.writes[2]); n != 2*features.FrameSize {
			t.Errorf("released %d samples, want %d", n, 2*features.FrameSize)
		}
		if result.Samples != 5*features.FrameSize {
			t.Errorf("samples = %d, want %d", result.Samples, 5*features.FrameSize)
		}
		if released := sink.writes[2]; released[0] != 300 {
			t.Errorf("released frame starts at %d, want continuation level 300", released[0])
		}
	})

	t.Run("adjacent reset is skipped", func(t *testing.T) {
		result, _ := runMode(t, &stepEngine{}, options(ModeLag, resets.NewFrameSet([]int{2, 3})), 6)
		if !slices.Equal(result.ResetFrames, []int{2}) {
			t.Errorf("reset frames = %v, want [2]", result.ResetFrames)
		}
	})

	t.Run("held frame is flushed at end of input", func(t *testing.T) {
		result, sink := runMode(t, &stepEngine{}, options(ModeLag, resets.NewFrameSet([]int{4})), 5)
		if result.Samples != 5*features.FrameSize {
			t.Errorf("samples = %d, want %d", result.Samples, 5*features.FrameSize)
		}
		if last := sink.writes[len(sink.writes)-1]; last[0] != 500 {
			t.Errorf("flushed frame level = %d, want continuation 500", last[0])
		}
	})
}

func TestNetMode(t *testing.T) {
	n := 30
	in := make([]features.Frame, n)
	for i := range in {
		in[i] = features.NewFrame()
		in[i][0] = 1
	}

	r, err := NewRunner(&scoringEngine{}, options(ModeNet, nil), &logging.NoOpLogger{})
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}
	result, err := r.Run(context.Background(), features.NewSliceReader("test.f32", in), &memorySink{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// warm-up ends at frame 20, three consecutive hits fire on frame 22
	if !slices.Equal(result.ResetFrames, []int{22}) {
		t.Errorf("reset frames = %v, want [22]", result.ResetFrames)
	}
}

func TestMaskedMode(t *testing.T) {
	run := func(n int, flags ...int16) (*Result, error) {
		opts := options(ModeMasked, nil)
		opts.Mask = maskReader(flags...)
		r, err := NewRunner(&stepEngine{}, opts, &logging.NoOpLogger{})
		if err != nil {
			t.Fatalf("NewRunner failed: %v", err)
		}
		return r.Run(context.Background(), frames(n), &memorySink{})
	}

	result, err := run(4, 0, 0, 1, 0)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !slices.Equal(result.ResetFrames, []int{2}) {
		t.Errorf("reset frames = %v, want [2]", result.ResetFrames)
	}

	tests := []struct {
		name  string
		n     int
		flags []int16
		frame int
	}{
		{"mask shorter", 4, []int16{0, 0}, 2},
		{"mask longer", 2, []int16{0, 0, 0}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(tt.n, tt.flags...)
			var ae *features.AlignmentError
			if !errors.As(err, &ae) {
				t.Fatalf("expected *AlignmentError, got %v", err)
			}
			if ae.Frame != tt.frame || !slices.Equal(ae.Sources, []string{"test.f32", "test.msk"}) {
				t.Errorf("alignment error = %+v", ae)
			}
		})
	}

	if _, err := run(2, 0, 3); !errors.Is(err, features.ErrFormat) {
		t.Errorf("illegal mask value: got %v, want format error", err)
	}
}

func TestTrailingSilence(t *testing.T) {
	opts := options(ModePlain, nil)
	opts.TrailingSilenceFrames = 3
	result, sink := runMode(t, &stepEngine{}, opts, 2)

	if result.Samples != 5*features.FrameSize || result.Frames != 2 {
		t.Errorf("result = %+v", result)
	}
	for _, s := range sink.samples()[2*features.FrameSize:] {
		if s != 0 {
			t.Fatalf("trailing sample = %d, want 0", s)
		}
	}
}

func TestRunStopsOnCanceledContext(t *testing.T) {
	r, err := NewRunner(&stepEngine{}, options(ModePlain, nil), &logging.NoOpLogger{})
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := r.Run(ctx, frames(3), &memorySink{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if result.Frames != 0 {
		t.Errorf("processed %d frames after cancel", result.Frames)
	}
}

func TestNewRunnerValidates(t *testing.T) {
	tests := []struct {
		name  string
		synth engine.Synthesizer
		opts  Options
	}{
		{"rule without schedule", &stepEngine{}, options(ModeRule, nil)},
		{"lag without schedule", &stepEngine{}, options(ModeLag, nil)},
		{"masked without mask", &stepEngine{}, options(ModeMasked, nil)},
		{"net without scorer", &stepEngine{}, options(ModeNet, nil)},
		{"nil engine", nil, options(ModePlain, nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRunner(tt.synth, tt.opts, &logging.NoOpLogger{}); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestRawSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewRawSink(&buf)
	if err := sink.Write([]int16{1, -2, 300}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	want := []byte{1, 0, 0xfe, 0xff, 0x2c, 0x01}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("raw bytes = %v, want %v", buf.Bytes(), want)
	}
}

func TestWAVSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	sink := NewWAVSink(f, features.SampleRate)
	samples := []int16{0, 1000, -1000, 32767, -32768}
	if err := sink.Write(samples[:2]); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := sink.Write(samples[2:]); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	f.Close()

	in, err := os.Open(path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer in.Close()

	decoder := wav.NewDecoder(in)
	if !decoder.IsValidFile() {
		t.Fatal("invalid WAV file")
	}
	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if buf.Format.SampleRate != features.SampleRate || buf.Format.NumChannels != 1 {
		t.Errorf("format = %+v", buf.Format)
	}
	if len(buf.Data) != len(samples) {
		t.Fatalf("decoded %d samples, want %d", len(buf.Data), len(samples))
	}
	for i, s := range samples {
		if buf.Data[i] != int(s) {
			t.Errorf("sample %d = %d, want %d", i, buf.Data[i], s)
		}
	}
}

func TestParseMode(t *testing.T) {
	for _, name := range ModeNames() {
		m, err := ParseMode(name)
		if err != nil {
			t.Fatalf("ParseMode(%q) failed: %v", name, err)
		}
		if m.String() != name {
			t.Errorf("round trip of %q gave %q", name, m)
		}
	}
	if m, err := ParseMode(" Lag "); err != nil || m != ModeLag {
		t.Errorf("ParseMode(\" Lag \") = %v, %v", m, err)
	}
	if _, err := ParseMode("smooth"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
