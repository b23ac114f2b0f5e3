package resets

import (
	"slices"
)

// Schedule answers whether synthesis state is reset on a given frame
type Schedule interface {
	IsReset(frame int) bool
}

// FrameSet is a schedule over an explicit ordered list of reset frames
type FrameSet struct {
	frames []int
}

// NewFrameSet creates a schedule from reset frame indices
func NewFrameSet(frames []int) *FrameSet {
	sorted := slices.Clone(frames)
	slices.Sort(sorted)
	return &FrameSet{frames: slices.Compact(sorted)}
}

func (fs *FrameSet) IsReset(frame int) bool {
	_, found := slices.BinarySearch(fs.frames, frame)
	return found
}

// Frames returns the reset frames in order
func (fs *FrameSet) Frames() []int {
	return slices.Clone(fs.frames)
}

// Periodic resets every Interval frames, skipping frame 0
type Periodic struct {
	Interval int
}

func (p Periodic) IsReset(frame int) bool {
	return p.Interval > 0 && frame > 0 && frame%p.Interval == 0
}
