package fit

import (
	"log/slog"
	"math"
)

// Adapter shrinks the maximum primitive size after long rejection streaks.
//
// The k-th shrink fires once the streak exceeds 2^k × Rate, so shrinks get
// rarer as the run goes on.
type Adapter struct {
	Rate  int64
	Coeff float64
}

// Threshold returns the streak length that triggers the next shrink.
// It saturates at MaxInt64 instead of overflowing.
func (a Adapter) Threshold(shrinks int) int64 {
	if a.Rate <= 0 {
		return math.MaxInt64
	}
	if shrinks >= 63 || a.Rate > math.MaxInt64>>uint(shrinks) {
		return math.MaxInt64
	}
	return a.Rate << uint(shrinks)
}

// Step applies one shrink if the current streak calls for it and reports
// whether it did
func (a Adapter) Step(st *State) bool {
	if st.Streak() <= a.Threshold(st.Shrinks) {
		return false
	}

	next := int(float64(st.Size.Max) * a.Coeff)
	if next <= st.Size.Min {
		next = st.Size.Min + 1
	}
	st.Size.Max = next
	st.Shrinks++

	slog.Debug("Shrinking primitive size",
		"iteration", st.Iteration,
		"max", st.Size.Max,
		"shrinks", st.Shrinks,
	)
	return true
}
