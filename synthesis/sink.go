package synthesis

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Sink consumes synthesized PCM in output order
type Sink interface {
	Write(pcm []int16) error
	Close() error
}

// RawSink writes headerless little-endian 16-bit PCM
type RawSink struct {
	w *bufio.Writer
}

// NewRawSink creates a raw PCM sink
func NewRawSink(w io.Writer) *RawSink {
	return &RawSink{w: bufio.NewWriter(w)}
}

func (s *RawSink) Write(pcm []int16) error {
	return binary.Write(s.w, binary.LittleEndian, pcm)
}

// Close flushes buffered samples. The underlying writer stays open.
func (s *RawSink) Close() error {
	return s.w.Flush()
}

// WAVSink writes 16-bit mono WAV through go-audio/wav. The header is
// finalized on Close, which needs a seekable writer.
type WAVSink struct {
	encoder *wav.Encoder
	buf     *audio.IntBuffer
}

// NewWAVSink creates a WAV sink
func NewWAVSink(w io.WriteSeeker, sampleRate int) *WAVSink {
	return &WAVSink{
		encoder: wav.NewEncoder(w, sampleRate, 16, 1, 1),
		buf: &audio.IntBuffer{
			Format:         &audio.Format{SampleRate: sampleRate, NumChannels: 1},
			SourceBitDepth: 16,
		},
	}
}

func (s *WAVSink) Write(pcm []int16) error {
	s.buf.Data = s.buf.Data[:0]
	for _, v := range pcm {
		s.buf.Data = append(s.buf.Data, int(v))
	}
	if err := s.encoder.Write(s.buf); err != nil {
		return fmt.Errorf("failed to encode WAV samples: %w", err)
	}
	return nil
}

// Close writes the final WAV header
func (s *WAVSink) Close() error {
	return s.encoder.Close()
}
