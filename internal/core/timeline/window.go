package timeline

import "math"

// Window is a half-open hour interval [Start, End).
type Window struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Length returns End - Start, never negative.
func (w Window) Length() float64 {
	return math.Max(0, w.End-w.Start)
}

// IsZero reports whether the window has no width.
func (w Window) IsZero() bool {
	return w.Length() == 0
}

// Overlap returns the length of the intersection with [start, end).
func (w Window) Overlap(start, end float64) float64 {
	return math.Max(0, math.Min(end, w.End)-math.Max(start, w.Start))
}

// Intersects reports whether [start, end) shares any hour with w.
func (w Window) Intersects(start, end float64) bool {
	return w.Overlap(start, end) > 0
}

// Contains reports whether the instant h lies in [Start, End).
func (w Window) Contains(h float64) bool {
	return h >= w.Start && h < w.End
}
