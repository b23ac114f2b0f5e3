package features

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaskReader decodes a reset-mask stream: one little-endian int16 per frame,
// legal values 0 and 1
type MaskReader struct {
	r      *bufio.Reader
	name   string
	frames int
}

// NewMaskReader creates a reset-mask reader
func NewMaskReader(r io.Reader, name string) *MaskReader {
	return &MaskReader{r: bufio.NewReader(r), name: name}
}

func (m *MaskReader) Name() string {
	return m.name
}

// Next returns the reset flag of the next frame. Values other than 0 or 1
// yield a *FormatError naming the source.
func (m *MaskReader) Next() (bool, error) {
	var v int16
	if err := binary.Read(m.r, binary.LittleEndian, &v); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return false, &FormatError{Source: m.name, Frame: m.frames, Err: ErrShortRecord}
		}
		if errors.Is(err, io.EOF) {
			return false, io.EOF
		}
		return false, fmt.Errorf("failed to read mask frame %d from %s: %w", m.frames, m.name, err)
	}

	frame := m.frames
	m.frames++

	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, &FormatError{Source: m.name, Frame: frame, Value: int(v)}
	}
}

// MaskWriter encodes reset flags as int16 records
type MaskWriter struct {
	w *bufio.Writer
}

// NewMaskWriter creates a reset-mask writer
func NewMaskWriter(w io.Writer) *MaskWriter {
	return &MaskWriter{w: bufio.NewWriter(w)}
}

func (m *MaskWriter) Write(reset bool) error {
	var v int16
	if reset {
		v = 1
	}
	return binary.Write(m.w, binary.LittleEndian, v)
}

func (m *MaskWriter) Flush() error {
	return m.w.Flush()
}

// LossWriter encodes per-frame {loss, validity} float32 pairs
type LossWriter struct {
	w *bufio.Writer
}

// NewLossWriter creates a loss pair writer
func NewLossWriter(w io.Writer) *LossWriter {
	return &LossWriter{w: bufio.NewWriter(w)}
}

func (l *LossWriter) Write(loss float64, valid bool) error {
	pair := [2]float32{float32(loss), 0}
	if valid {
		pair[1] = 1
	}
	return binary.Write(l.w, binary.LittleEndian, pair)
}

func (l *LossWriter) Flush() error {
	return l.w.Flush()
}
