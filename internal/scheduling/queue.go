package scheduling

import (
	"math"
	"time"
)

const (
	// QueueCardWidth is the pixel width of one card in the unassigned queue.
	QueueCardWidth = 130.0
	// QueueMinGap is the minimum visible gap between cards sharing a lane.
	QueueMinGap = 10.0
	// DefaultCheckinLead is how long before the operative time a counter
	// opens when the flight has no explicit window yet.
	DefaultCheckinLead = 180 * time.Minute
	// DefaultCheckinClose is how long before the operative time a counter closes.
	DefaultCheckinClose = 40 * time.Minute
)

// PlacedItem is an item with its lane and projected horizontal position.
type PlacedItem[T any] struct {
	Item T       `json:"item"`
	X    float64 `json:"x"`
	Lane int     `json:"lane"`
}

// PackQueue assigns each item the first lane whose last card ends more than
// minGap before the item's x, opening a new lane when none qualifies.
//
// items must already be sorted ascending by the time basis used by xOf; the
// packer does not sort. Equality (x == laneEnd+minGap) does not qualify.
// With uniform widths and sorted input the lane count equals the maximum
// visual concurrency.
func PackQueue[T any](items []T, xOf func(T) float64, width, minGap float64) ([]PlacedItem[T], int) {
	placed := make([]PlacedItem[T], 0, len(items))
	var laneEnd []float64

	for _, it := range items {
		x := xOf(it)
		lane := -1
		for i, end := range laneEnd {
			if end+minGap < x {
				lane = i
				break
			}
		}
		if lane == -1 {
			lane = len(laneEnd)
			laneEnd = append(laneEnd, 0)
		}
		laneEnd[lane] = x + width
		placed = append(placed, PlacedItem[T]{Item: it, X: x, Lane: lane})
	}

	return placed, len(laneEnd)
}

// QueueTime is the instant a flight is drawn at in the unassigned queue of a
// class. Counter cards sit at the earliest window start, or at the default
// opening time when the flight has none.
func QueueTime(f FlightOperation, class ResourceClass) time.Time {
	if class != ClassCounter {
		return f.OperativeTime
	}
	if len(f.Checkins) > 0 {
		earliest := f.Checkins[0].Start
		for _, ck := range f.Checkins[1:] {
			if ck.Start.Before(earliest) {
				earliest = ck.Start
			}
		}
		return earliest
	}
	return f.OperativeTime.Add(-DefaultCheckinLead)
}

// TimeToX projects an instant onto the board: minutes since origin times the
// zoom factor, clamped at zero.
func TimeToX(t, origin time.Time, pxPerMinute float64) float64 {
	return math.Max(0, t.Sub(origin).Minutes()*pxPerMinute)
}
