package stats

import "testing"

func TestL1Distance(t *testing.T) {
	if got := L1Distance([]float64{1, 2, 3}, []float64{2, 0, 3, 9}); got != 3 {
		t.Errorf("L1Distance = %v, want 3", got)
	}
	if got := L1Distance(nil, []float64{1}); got != 0 {
		t.Errorf("L1Distance of empty = %v, want 0", got)
	}
}

func TestWindowedL1Distance(t *testing.T) {
	a := []float64{9, 9, 1, 2, 3, 9}
	b := []float64{1, 2, 4}

	tests := []struct {
		name   string
		offset int
		window int
		want   float64
		ok     bool
	}{
		{"aligned window", 2, 3, 1, true},
		{"unaligned window", 0, 2, 15, true},
		{"window past end of a", 4, 3, 0, false},
		{"window longer than b", 0, 4, 0, false},
		{"negative offset", -1, 2, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := WindowedL1Distance(a, b, tt.offset, tt.window)
			if ok != tt.ok || got != tt.want {
				t.Errorf("got (%v, %v), want (%v, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}
