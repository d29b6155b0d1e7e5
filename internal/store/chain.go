package store

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/makeasinger/fabricator/internal/model"
)

// ErrStateMismatch is returned by compare-and-set operations when the stored
// state is not the expected one.
var ErrStateMismatch = errors.New("state mismatch")

// putSegment stores a segment, keeping offsets unique within its chain.
func (s *Store) putSegment(seg model.Segment) error {
	s.chainMu.Lock()
	defer s.chainMu.Unlock()
	tbl := s.flatTable(model.EntitySegment)
	if existing, ok := tbl.get(seg.ID); ok && existing.(model.Segment).State == model.SegmentStateDubbed {
		return model.NewStoreError("segment %s is dubbed and cannot change", seg.ID)
	}
	for _, e := range tbl.rows {
		other := e.(model.Segment)
		if other.ID != seg.ID && other.ChainID == seg.ChainID && other.Offset == seg.Offset {
			return model.NewValidationError(nil, "chain %s already has a segment at offset %d", seg.ChainID, seg.Offset)
		}
	}
	tbl.put(seg)
	return nil
}

func (s *Store) Chain(id uuid.UUID) (model.Chain, bool) {
	return Get[model.Chain](s, id)
}

func (s *Store) Segment(id uuid.UUID) (model.Segment, bool) {
	return Get[model.Segment](s, id)
}

// Chains returns every chain in creation order.
func (s *Store) Chains() []model.Chain {
	s.chainMu.RLock()
	defer s.chainMu.RUnlock()
	tbl, ok := s.flat[model.EntityChain]
	if !ok {
		return nil
	}
	out := make([]model.Chain, 0, len(tbl.order))
	for _, e := range tbl.values() {
		out = append(out, e.(model.Chain))
	}
	return out
}

// ChainBindings returns a chain's bindings in the order they were added.
func (s *Store) ChainBindings(chainID uuid.UUID) []model.ChainBinding {
	s.chainMu.RLock()
	defer s.chainMu.RUnlock()
	tbl, ok := s.flat[model.EntityChainBinding]
	if !ok {
		return nil
	}
	var out []model.ChainBinding
	for _, e := range tbl.values() {
		if b := e.(model.ChainBinding); b.ChainID == chainID {
			out = append(out, b)
		}
	}
	return out
}

// Segments returns a chain's segments ordered by offset.
func (s *Store) Segments(chainID uuid.UUID) []model.Segment {
	s.chainMu.RLock()
	defer s.chainMu.RUnlock()
	return s.segmentsLocked(chainID)
}

func (s *Store) segmentsLocked(chainID uuid.UUID) []model.Segment {
	tbl, ok := s.flat[model.EntitySegment]
	if !ok {
		return nil
	}
	var out []model.Segment
	for _, e := range tbl.rows {
		if seg := e.(model.Segment); seg.ChainID == chainID {
			out = append(out, seg)
		}
	}
	slices.SortFunc(out, func(a, b model.Segment) int { return a.Offset - b.Offset })
	return out
}

// LastSegment returns the segment with the highest offset in a chain.
func (s *Store) LastSegment(chainID uuid.UUID) (model.Segment, bool) {
	segments := s.Segments(chainID)
	if len(segments) == 0 {
		return model.Segment{}, false
	}
	return segments[len(segments)-1], true
}

func (s *Store) SegmentAtOffset(chainID uuid.UUID, offset int) (model.Segment, bool) {
	for _, seg := range s.Segments(chainID) {
		if seg.Offset == offset {
			return seg, true
		}
	}
	return model.Segment{}, false
}

// UpdateSegmentIf applies mutate to the stored segment atomically, provided its
// state is still expect. Identity fields cannot be changed by mutate.
func (s *Store) UpdateSegmentIf(id uuid.UUID, expect model.SegmentState, mutate func(*model.Segment)) (model.Segment, error) {
	s.chainMu.Lock()
	defer s.chainMu.Unlock()
	tbl := s.flatTable(model.EntitySegment)
	e, ok := tbl.get(id)
	if !ok {
		return model.Segment{}, model.NewNotFoundError("segment %s", id)
	}
	seg := e.(model.Segment)
	if seg.State != expect {
		return seg, fmt.Errorf("segment %s is %s, expected %s: %w", id, seg.State, expect, ErrStateMismatch)
	}
	if seg.State == model.SegmentStateDubbed {
		return seg, model.NewStoreError("segment %s is dubbed and cannot change", id)
	}
	next := seg
	mutate(&next)
	next.ID, next.ChainID, next.Offset = seg.ID, seg.ChainID, seg.Offset
	if err := s.validate.Struct(next); err != nil {
		return seg, model.NewValidationError(err, "invalid segment %s", id)
	}
	tbl.put(next)
	return next, nil
}

// CompareAndSetSegmentState moves a segment from one state to another atomically.
func (s *Store) CompareAndSetSegmentState(id uuid.UUID, from, to model.SegmentState) (model.Segment, error) {
	return s.UpdateSegmentIf(id, from, func(seg *model.Segment) { seg.State = to })
}

// CompareAndSetChainState moves a chain from one state to another atomically.
func (s *Store) CompareAndSetChainState(id uuid.UUID, from, to model.ChainState) (model.Chain, error) {
	s.chainMu.Lock()
	defer s.chainMu.Unlock()
	tbl := s.flatTable(model.EntityChain)
	e, ok := tbl.get(id)
	if !ok {
		return model.Chain{}, model.NewNotFoundError("chain %s", id)
	}
	chain := e.(model.Chain)
	if chain.State != from {
		return chain, fmt.Errorf("chain %s is %s, expected %s: %w", id, chain.State, from, ErrStateMismatch)
	}
	chain.State = to
	tbl.put(chain)
	return chain, nil
}

// DeleteChain removes a chain with its bindings, segments and their partitions.
func (s *Store) DeleteChain(chainID uuid.UUID) {
	s.chainMu.Lock()
	segments := s.segmentsLocked(chainID)
	if tbl, ok := s.flat[model.EntitySegment]; ok {
		for _, seg := range segments {
			tbl.remove(seg.ID)
		}
	}
	if tbl, ok := s.flat[model.EntityChainBinding]; ok {
		for _, e := range tbl.values() {
			if e.(model.ChainBinding).ChainID == chainID {
				tbl.remove(e.EntityID())
			}
		}
	}
	if tbl, ok := s.flat[model.EntityChain]; ok {
		tbl.remove(chainID)
	}
	s.chainMu.Unlock()

	for _, seg := range segments {
		s.DeleteSegment(seg.ID)
	}
}
