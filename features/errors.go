package features

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrFormat marks input that violates a stream's record format
	ErrFormat = errors.New("format error")
	// ErrAlignment marks parallel streams that end at different frame counts
	ErrAlignment = errors.New("streams cover different number of frames")
	// ErrShortRecord marks a stream that ends in the middle of a record
	ErrShortRecord = errors.New("truncated record")
)

// FormatError reports a malformed record in a named source
type FormatError struct {
	Source string
	Frame  int
	Value  int
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil && !errors.Is(e.Err, ErrFormat) {
		return fmt.Sprintf("incorrect input in %s at frame %d: %v", e.Source, e.Frame, e.Err)
	}
	return fmt.Sprintf("incorrect input in %s at frame %d: value %d", e.Source, e.Frame, e.Value)
}

func (e *FormatError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrFormat}
	}
	return []error{ErrFormat, e.Err}
}

// AlignmentError reports parallel sources that reached end of input at
// different frames
type AlignmentError struct {
	Sources []string
	Frame   int
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("%s cover different number of frames (mismatch at frame %d)",
		joinSources(e.Sources), e.Frame)
}

func (e *AlignmentError) Unwrap() error {
	return ErrAlignment
}

func joinSources(sources []string) string {
	switch len(sources) {
	case 0:
		return "inputs"
	case 1:
		return sources[0]
	case 2:
		return sources[0] + " and " + sources[1]
	default:
		return strings.Join(sources[:len(sources)-1], ", ") + " and " + sources[len(sources)-1]
	}
}

// CheckAligned inspects the end-of-input flags of parallel streams read for
// the same frame. It reports done when every stream ended together and an
// *AlignmentError when only some did.
func CheckAligned(frame int, sources []string, ended []bool) (done bool, err error) {
	count := 0
	for _, e := range ended {
		if e {
			count++
		}
	}
	switch count {
	case 0:
		return false, nil
	case len(ended):
		return true, nil
	default:
		return true, &AlignmentError{Sources: sources, Frame: frame}
	}
}
