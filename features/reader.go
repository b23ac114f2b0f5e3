package features

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// FrameReader yields feature frames in file order. Next returns io.EOF after
// the last complete record.
type FrameReader interface {
	Next() (Frame, error)
	Name() string
}

// Reader decodes fixed-width little-endian float32 records
type Reader struct {
	r      *bufio.Reader
	name   string
	width  int
	frames int
}

// NewReader creates a reader over NumTotalFeatures-wide records
func NewReader(r io.Reader, name string) *Reader {
	return NewReaderWidth(r, name, NumTotalFeatures)
}

// NewReaderWidth creates a reader over records of the given width
func NewReaderWidth(r io.Reader, name string, width int) *Reader {
	if width <= 0 {
		width = NumTotalFeatures
	}
	return &Reader{
		r:     bufio.NewReader(r),
		name:  name,
		width: width,
	}
}

func (rd *Reader) Name() string {
	return rd.name
}

// Frames returns how many complete records have been read
func (rd *Reader) Frames() int {
	return rd.frames
}

func (rd *Reader) Next() (Frame, error) {
	f := make(Frame, rd.width)
	if err := binary.Read(rd.r, binary.LittleEndian, f); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, &FormatError{Source: rd.name, Frame: rd.frames, Err: ErrShortRecord}
		}
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("failed to read frame %d from %s: %w", rd.frames, rd.name, err)
	}
	rd.frames++
	return f, nil
}

// SliceReader serves frames held in memory
type SliceReader struct {
	frames []Frame
	name   string
	pos    int
}

// NewSliceReader wraps frames as a FrameReader
func NewSliceReader(name string, frames []Frame) *SliceReader {
	return &SliceReader{frames: frames, name: name}
}

func (s *SliceReader) Name() string {
	return s.name
}

func (s *SliceReader) Next() (Frame, error) {
	if s.pos >= len(s.frames) {
		return nil, io.EOF
	}
	f := s.frames[s.pos]
	s.pos++
	return f, nil
}

// ReadAll drains a FrameReader
func ReadAll(r FrameReader) ([]Frame, error) {
	var frames []Frame
	for {
		f, err := r.Next()
		if err == io.EOF {
			return frames, nil
		}
		if err != nil {
			return frames, err
		}
		frames = append(frames, f)
	}
}

// Writer encodes frames as little-endian float32 records
type Writer struct {
	w *bufio.Writer
}

// NewWriter creates a feature record writer
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write appends one record
func (fw *Writer) Write(f Frame) error {
	return binary.Write(fw.w, binary.LittleEndian, []float32(f))
}

// Flush writes any buffered records
func (fw *Writer) Flush() error {
	return fw.w.Flush()
}
