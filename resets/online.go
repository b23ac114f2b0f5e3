package resets

import (
	"fmt"
)

// NetState is the debounce state of the online scheduler
type NetState int

const (
	// Accumulating: no qualifying score on the last frame
	Accumulating NetState = iota
	// Armed: qualifying scores seen, not enough of them yet
	Armed
	// Fired: a reset was issued on the last frame
	Fired
)

func (s NetState) String() string {
	switch s {
	case Accumulating:
		return "accumulating"
	case Armed:
		return "armed"
	case Fired:
		return "fired"
	default:
		return "unknown"
	}
}

// NetSchedulerParams configures the online reset scheduler
type NetSchedulerParams struct {
	MinFramesWithoutReset int     `json:"min_frames_without_reset"` // Warm-up and spacing unit, doubled (default: 10)
	ResetThreshold        float64 `json:"reset_threshold"`          // Score a frame must exceed (default: 0.95)
	NumConsecutive        int     `json:"num_consecutive"`          // Consecutive hits required to fire (default: 3)
}

// DefaultNetSchedulerParams returns the reference online parameters
func DefaultNetSchedulerParams() NetSchedulerParams {
	return NetSchedulerParams{
		MinFramesWithoutReset: 10,
		ResetThreshold:        0.95,
		NumConsecutive:        3,
	}
}

// Validate checks the parameters
func (p NetSchedulerParams) Validate() error {
	if p.MinFramesWithoutReset < 0 {
		return fmt.Errorf("min_frames_without_reset must not be negative, got %d", p.MinFramesWithoutReset)
	}
	if p.NumConsecutive <= 0 {
		return fmt.Errorf("num_consecutive must be positive, got %d", p.NumConsecutive)
	}
	return nil
}

// NetScheduler debounces a noisy per-frame reset score. It fires once
// NumConsecutive consecutive frames score above ResetThreshold, provided the
// frame counter is past the warm-up and the last reset is far enough back.
type NetScheduler struct {
	params    NetSchedulerParams
	hits      int
	lastReset int
	hasReset  bool
	fired     int
	state     NetState
}

// NewNetScheduler creates an online scheduler
func NewNetScheduler(params NetSchedulerParams) (*NetScheduler, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &NetScheduler{params: params}, nil
}

// Observe consumes the score of the frame about to be synthesized and
// reports whether synthesis state should be reset on it
func (ns *NetScheduler) Observe(frameCount int, score float64) bool {
	guard := 2 * ns.params.MinFramesWithoutReset

	qualifies := frameCount >= guard &&
		(!ns.hasReset || frameCount-ns.lastReset > guard) &&
		score > ns.params.ResetThreshold

	if !qualifies {
		ns.hits = 0
		ns.state = Accumulating
		return false
	}

	ns.hits++
	if ns.hits == ns.params.NumConsecutive {
		ns.lastReset = frameCount
		ns.hasReset = true
		ns.fired++
		ns.state = Fired
		return true
	}

	ns.state = Armed
	return false
}

// State returns the debounce state after the last Observe
func (ns *NetScheduler) State() NetState {
	return ns.state
}

// Resets returns how many resets have been fired
func (ns *NetScheduler) Resets() int {
	return ns.fired
}

// LastReset returns the frame of the most recent reset
func (ns *NetScheduler) LastReset() (int, bool) {
	return ns.lastReset, ns.hasReset
}
