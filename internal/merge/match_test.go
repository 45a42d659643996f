package merge

import (
	"testing"
	"time"
)

func TestWithinTolerance(t *testing.T) {
	base := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		other  time.Time
		within bool
	}{
		{"identical", base, true},
		{"4s later", base.Add(4 * time.Second), true},
		{"4s earlier", base.Add(-4 * time.Second), true},
		{"exactly 5s", base.Add(5 * time.Second), false},
		{"10s later", base.Add(10 * time.Second), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := withinTolerance(base, tc.other, DefaultTolerance); got != tc.within {
				t.Errorf("withinTolerance(%v) = %v, want %v", tc.other, got, tc.within)
			}
		})
	}
}
