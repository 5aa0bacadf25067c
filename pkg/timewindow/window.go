// Package timewindow holds calendar-day and time-of-day types together with
// the half-open interval rule used for every double-booking check.
package timewindow

import "fmt"

// Window is a half-open time-of-day interval [Start, End).
type Window struct {
	Start Clock `json:"start"`
	End   Clock `json:"end"`
}

// NewWindow builds a window without validating ordering.
func NewWindow(start, end Clock) Window {
	return Window{Start: start, End: end}
}

// Valid reports whether Start is strictly before End.
func (w Window) Valid() bool { return w.Start < w.End }

// Contains reports whether c falls inside [Start, End).
func (w Window) Contains(c Clock) bool { return w.Start <= c && c < w.End }

func (w Window) String() string {
	return fmt.Sprintf("%s-%s", w.Start, w.End)
}

// Overlaps reports whether two half-open windows share any instant.
// Windows that only touch (a.End == b.Start) do not overlap.
func Overlaps(a, b Window) bool {
	return a.Start < b.End && b.Start < a.End
}

// Intersection returns the shared span of a and b, if any.
func Intersection(a, b Window) (Window, bool) {
	if !Overlaps(a, b) {
		return Window{}, false
	}
	start := a.Start
	if b.Start > start {
		start = b.Start
	}
	end := a.End
	if b.End < end {
		end = b.End
	}
	return Window{Start: start, End: end}, true
}
