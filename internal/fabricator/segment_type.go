package fabricator

import "github.com/makeasinger/fabricator/internal/model"

// History is what the classifier needs to know about the previous segment:
// the sequence-binding offset each of its Macro and Main choices sat at, and
// every offset its program binds.
type History struct {
	HasPrevious  bool
	MainOffset   int
	MainOffsets  []int
	MacroOffset  int
	MacroOffsets []int
}

// ClassifySegment decides how a segment continues from its predecessor.
func ClassifySegment(h History) model.SegmentType {
	switch {
	case !h.HasPrevious:
		return model.SegmentTypeInitial
	case remaining(h.MainOffsets, h.MainOffset) >= 1:
		return model.SegmentTypeContinue
	case remaining(h.MacroOffsets, h.MacroOffset) >= 2:
		return model.SegmentTypeNextMain
	default:
		return model.SegmentTypeNextMacro
	}
}

// remaining counts the distinct offsets after current.
func remaining(offsets []int, current int) int {
	seen := make(map[int]struct{}, len(offsets))
	for _, o := range offsets {
		if o > current {
			seen[o] = struct{}{}
		}
	}
	return len(seen)
}

// NextOffset returns the smallest offset after current.
func NextOffset(offsets []int, current int) (int, bool) {
	next, found := 0, false
	for _, o := range offsets {
		if o > current && (!found || o < next) {
			next, found = o, true
		}
	}
	return next, found
}
