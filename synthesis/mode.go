package synthesis

import (
	"fmt"
	"strings"
)

// Mode selects how resets are decided and whether they are concealed
type Mode int

const (
	// ModePlain synthesizes without resets
	ModePlain Mode = iota
	// ModeRule resets at frames chosen by a schedule, usually the offline scheduler
	ModeRule
	// ModeNet resets where the online debounced scheduler fires
	ModeNet
	// ModeCrossfade conceals scheduled resets with a one-frame linear cross-fade
	ModeCrossfade
	// ModeLag conceals scheduled resets with a lag-aligned two-frame cross-fade
	ModeLag
	// ModeMasked resets where an external reset mask is set
	ModeMasked
)

var modeNames = map[Mode]string{
	ModePlain:     "plain",
	ModeRule:      "rule",
	ModeNet:       "net",
	ModeCrossfade: "crossfade",
	ModeLag:       "lag",
	ModeMasked:    "masked",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// UsesSchedule reports whether the mode takes its resets from a Schedule
func (m Mode) UsesSchedule() bool {
	return m == ModeRule || m == ModeCrossfade || m == ModeLag
}

// ParseMode converts a mode name to a Mode
func ParseMode(name string) (Mode, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for m, n := range modeNames {
		if n == name {
			return m, nil
		}
	}
	return ModePlain, fmt.Errorf("unknown synthesis mode %q", name)
}

// ModeNames lists the accepted mode names in declaration order
func ModeNames() []string {
	names := make([]string, 0, len(modeNames))
	for m := ModePlain; m <= ModeMasked; m++ {
		names = append(names, modeNames[m])
	}
	return names
}
