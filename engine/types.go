package engine

import "time"

// Position is a scene-space coordinate. Fixed arity; wire validation happens
// before a slice ever becomes a Position.
type Position [3]float64

// Slice returns the wire representation of p.
func (p Position) Slice() []float64 {
	return []float64{p[0], p[1], p[2]}
}

// activeMove is the in-flight move for one entity. At most one exists per
// entity; submitting a new command replaces it without feedback.
type activeMove struct {
	target    Position
	start     Position
	startTime time.Time
	duration  time.Duration
	requestID string
}

// at computes the interpolated position at now and whether the move is done.
// The fraction is clamped so tick jitter past the deadline cannot overshoot,
// and a finished move snaps exactly onto the target with no float residue.
func (m *activeMove) at(now time.Time) (Position, bool) {
	elapsed := now.Sub(m.startTime)
	if elapsed >= m.duration {
		return m.target, true
	}
	t := elapsed.Seconds() / m.duration.Seconds()
	if t < 0 {
		t = 0
	}
	var pos Position
	for i := range pos {
		pos[i] = m.start[i] + (m.target[i]-m.start[i])*t
	}
	return pos, false
}
