// Package lifecycle moves chains and segments through their states. Every
// transition is a compare-and-set on the store, so two workers can never both
// win the same segment.
package lifecycle

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/makeasinger/fabricator/internal/model"
	"github.com/makeasinger/fabricator/internal/store"
)

// ErrIllegalTransition is returned for a transition the state graph does not allow.
var ErrIllegalTransition = errors.New("illegal transition")

var segmentTransitions = map[model.SegmentState][]model.SegmentState{
	model.SegmentStatePlanned:  {model.SegmentStateCrafting},
	model.SegmentStateCrafting: {model.SegmentStateCrafted, model.SegmentStatePlanned, model.SegmentStateFailed},
	model.SegmentStateCrafted:  {model.SegmentStateDubbing, model.SegmentStatePlanned},
	model.SegmentStateDubbing:  {model.SegmentStateDubbed, model.SegmentStatePlanned, model.SegmentStateFailed},
}

var chainTransitions = map[model.ChainState][]model.ChainState{
	model.ChainStateDraft:     {model.ChainStateReady, model.ChainStateErase},
	model.ChainStateReady:     {model.ChainStateFabricate, model.ChainStateDraft, model.ChainStateErase},
	model.ChainStateFabricate: {model.ChainStateComplete, model.ChainStateFailed, model.ChainStateErase},
	model.ChainStateComplete:  {model.ChainStateErase},
	model.ChainStateFailed:    {model.ChainStateErase},
}

func CanTransitionSegment(from, to model.SegmentState) bool {
	for _, s := range segmentTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func CanTransitionChain(from, to model.ChainState) bool {
	for _, s := range chainTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Machine applies state transitions to chains and segments held in a store.
type Machine struct {
	store *store.Store
	log   *zap.Logger
}

func NewMachine(st *store.Store, log *zap.Logger) *Machine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Machine{store: st, log: log}
}

func (m *Machine) transition(id uuid.UUID, from, to model.SegmentState) (model.Segment, error) {
	if !CanTransitionSegment(from, to) {
		return model.Segment{}, fmt.Errorf("segment %s from %s to %s: %w", id, from, to, ErrIllegalTransition)
	}
	seg, err := m.store.CompareAndSetSegmentState(id, from, to)
	if err != nil {
		return seg, err
	}
	m.log.Debug("segment transition",
		zap.String("segment_id", id.String()),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	return seg, nil
}

// BeginCraft claims a Planned segment for crafting. Exactly one caller wins;
// the others get store.ErrStateMismatch.
func (m *Machine) BeginCraft(id uuid.UUID) (model.Segment, error) {
	return m.transition(id, model.SegmentStatePlanned, model.SegmentStateCrafting)
}

func (m *Machine) FinishCraft(id uuid.UUID) (model.Segment, error) {
	return m.transition(id, model.SegmentStateCrafting, model.SegmentStateCrafted)
}

func (m *Machine) BeginDub(id uuid.UUID) (model.Segment, error) {
	return m.transition(id, model.SegmentStateCrafted, model.SegmentStateDubbing)
}

// FinishDub marks the segment Dubbed, after which it can no longer change.
// storageKey records where the shipped graph was written.
func (m *Machine) FinishDub(id uuid.UUID, storageKey string) (model.Segment, error) {
	seg, err := m.store.UpdateSegmentIf(id, model.SegmentStateDubbing, func(s *model.Segment) {
		s.State = model.SegmentStateDubbed
		s.StorageKey = storageKey
	})
	if err != nil {
		return seg, err
	}
	m.log.Debug("segment dubbed", zap.String("segment_id", id.String()), zap.String("storage_key", storageKey))
	return seg, nil
}

// Fail marks a Crafting or Dubbing segment Failed.
func (m *Machine) Fail(id uuid.UUID) (model.Segment, error) {
	seg, ok := m.store.Segment(id)
	if !ok {
		return model.Segment{}, model.NewNotFoundError("segment %s", id)
	}
	return m.transition(id, seg.State, model.SegmentStateFailed)
}

// Revert throws away everything crafted for a segment and returns it to
// Planned. Messages recorded so far are kept, and cause is appended as an
// Error message. Reverting a Planned segment only records the cause.
// A segment whose record is already gone, as after its chain was erased,
// still has its partition purged.
func (m *Machine) Revert(id uuid.UUID, cause error) (model.Segment, error) {
	seg, ok := m.store.Segment(id)
	if !ok {
		m.store.DeleteSegment(id)
		return model.Segment{}, model.NewNotFoundError("segment %s", id)
	}
	if seg.State == model.SegmentStateDubbed {
		return seg, model.NewStoreError("segment %s is dubbed and cannot be reverted", id)
	}
	if seg.State != model.SegmentStatePlanned && !CanTransitionSegment(seg.State, model.SegmentStatePlanned) {
		return seg, fmt.Errorf("segment %s from %s to %s: %w", id, seg.State, model.SegmentStatePlanned, ErrIllegalTransition)
	}

	messages := store.GetAll[model.SegmentMessage](m.store, id)
	m.store.DeleteSegment(id)
	for _, msg := range messages {
		if err := m.store.Put(msg); err != nil {
			return seg, fmt.Errorf("failed to restore message %s: %w", msg.ID, err)
		}
	}
	if cause != nil {
		err := m.store.Put(model.SegmentMessage{
			ID:        uuid.New(),
			SegmentID: id,
			Type:      model.SegmentMessageTypeError,
			Body:      cause.Error(),
		})
		if err != nil {
			return seg, fmt.Errorf("failed to record revert cause: %w", err)
		}
	}

	seg, err := m.store.UpdateSegmentIf(id, seg.State, func(s *model.Segment) {
		s.State = model.SegmentStatePlanned
		s.Type = model.SegmentTypePending
		s.Key = ""
		s.Total = 0
		s.Density = 0
		s.Tempo = 0
		s.EndAt = s.BeginAt
		s.StorageKey = ""
	})
	if err != nil {
		return seg, fmt.Errorf("failed to reset segment: %w", err)
	}
	m.log.Info("segment reverted",
		zap.String("segment_id", id.String()),
		zap.Int("offset", seg.Offset),
		zap.NamedError("cause", cause),
	)
	return seg, nil
}

// TransitionChain moves a chain to a new state.
func (m *Machine) TransitionChain(id uuid.UUID, to model.ChainState) (model.Chain, error) {
	chain, ok := m.store.Chain(id)
	if !ok {
		return model.Chain{}, model.NewNotFoundError("chain %s", id)
	}
	if !CanTransitionChain(chain.State, to) {
		return chain, fmt.Errorf("chain %s from %s to %s: %w", id, chain.State, to, ErrIllegalTransition)
	}
	chain, err := m.store.CompareAndSetChainState(id, chain.State, to)
	if err != nil {
		return chain, err
	}
	m.log.Info("chain transition", zap.String("chain_id", id.String()), zap.String("state", string(to)))
	return chain, nil
}
