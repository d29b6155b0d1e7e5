package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/makeasinger/fabricator/internal/lifecycle"
	"github.com/makeasinger/fabricator/internal/model"
	"github.com/makeasinger/fabricator/internal/store"
)

var (
	ErrChainNotFound   = errors.New("chain not found")
	ErrSegmentNotFound = errors.New("segment not found")
	ErrChainClosed     = errors.New("chain no longer accepts changes")
)

// GraphArchive is where dubbed segment graphs live once their partition has
// been evicted from memory.
type GraphArchive interface {
	Load(ctx context.Context, seg model.Segment) (store.Graph, error)
	Link(ctx context.Context, seg model.Segment) (string, error)
	Forget(ctx context.Context, chainID uuid.UUID, segments []model.Segment) error
}

// SegmentGraph is a segment's decision graph plus, for archived segments, a
// signed link to the stored copy.
type SegmentGraph struct {
	store.Graph
	URL string `json:"url,omitempty"`
}

// ChainService manages chains, their bindings and their lifecycle
type ChainService struct {
	store     *store.Store
	machine   *lifecycle.Machine
	scheduler Scheduler
	archive   GraphArchive
	log       *zap.Logger
}

func NewChainService(st *store.Store, machine *lifecycle.Machine, scheduler Scheduler, archive GraphArchive, log *zap.Logger) *ChainService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ChainService{
		store:     st,
		machine:   machine,
		scheduler: scheduler,
		archive:   archive,
		log:       log,
	}
}

// Create stores a new chain in Draft
func (s *ChainService) Create(ctx context.Context, req *model.CreateChainRequest) (model.Chain, error) {
	chain := model.Chain{
		ID:       uuid.New(),
		Name:     req.Name,
		State:    model.ChainStateDraft,
		Type:     req.Type,
		StartAt:  req.StartAt,
		StopAt:   req.StopAt,
		EmbedKey: req.EmbedKey,
	}
	if req.AccountID != "" {
		accountID, err := uuid.Parse(req.AccountID)
		if err != nil {
			return model.Chain{}, model.NewValidationError(err, "invalid account id")
		}
		chain.AccountID = accountID
	}
	if chain.StartAt.IsZero() {
		chain.StartAt = time.Now().UTC()
	}
	if !chain.StopAt.IsZero() && !chain.StopAt.After(chain.StartAt) {
		return model.Chain{}, model.NewValidationError(nil, "stop time must be after start time")
	}
	if err := s.store.Put(chain); err != nil {
		return model.Chain{}, fmt.Errorf("failed to save chain: %w", err)
	}
	s.log.Info("chain created", zap.String("chain_id", chain.ID.String()), zap.String("type", string(chain.Type)))
	return chain, nil
}

// Get returns a chain with its bindings
func (s *ChainService) Get(ctx context.Context, chainID uuid.UUID) (*model.ChainResponse, error) {
	chain, ok := s.store.Chain(chainID)
	if !ok {
		return nil, ErrChainNotFound
	}
	return &model.ChainResponse{
		Chain:    chain,
		Bindings: s.store.ChainBindings(chainID),
	}, nil
}

// AddBinding attaches content to a chain. Bindings take effect from the next
// segment crafted.
func (s *ChainService) AddBinding(ctx context.Context, chainID uuid.UUID, req *model.AddBindingRequest) (model.ChainBinding, error) {
	chain, ok := s.store.Chain(chainID)
	if !ok {
		return model.ChainBinding{}, ErrChainNotFound
	}
	switch chain.State {
	case model.ChainStateComplete, model.ChainStateFailed, model.ChainStateErase:
		return model.ChainBinding{}, ErrChainClosed
	}
	targetID, err := uuid.Parse(req.TargetID)
	if err != nil {
		return model.ChainBinding{}, model.NewValidationError(err, "invalid target id")
	}
	binding := model.ChainBinding{
		ID:       uuid.New(),
		ChainID:  chainID,
		Type:     req.Type,
		TargetID: targetID,
	}
	if err := s.store.Put(binding); err != nil {
		return model.ChainBinding{}, fmt.Errorf("failed to save binding: %w", err)
	}
	return binding, nil
}

// Transition moves a chain to a new state and starts or stops its
// fabrication to match. Erasing a chain deletes it.
func (s *ChainService) Transition(ctx context.Context, chainID uuid.UUID, to model.ChainState) (model.Chain, error) {
	if _, ok := s.store.Chain(chainID); !ok {
		return model.Chain{}, ErrChainNotFound
	}
	chain, err := s.machine.TransitionChain(chainID, to)
	if err != nil {
		return chain, err
	}

	switch to {
	case model.ChainStateFabricate:
		if err := s.scheduler.StartChainFabrication(ctx, chainID); err != nil {
			return chain, fmt.Errorf("failed to start fabrication: %w", err)
		}
	case model.ChainStateComplete, model.ChainStateFailed:
		if err := s.scheduler.StopChainFabrication(ctx, chainID); err != nil {
			return chain, fmt.Errorf("failed to stop fabrication: %w", err)
		}
	case model.ChainStateErase:
		if err := s.scheduler.StopChainFabrication(ctx, chainID); err != nil {
			return chain, fmt.Errorf("failed to stop fabrication: %w", err)
		}
		if s.archive != nil {
			if err := s.archive.Forget(ctx, chainID, s.store.Segments(chainID)); err != nil {
				s.log.Warn("failed to forget shipped segments", zap.String("chain_id", chainID.String()), zap.Error(err))
			}
		}
		s.store.DeleteChain(chainID)
		s.log.Info("chain erased", zap.String("chain_id", chainID.String()))
	}
	return chain, nil
}

// ListSegments returns a chain's segments in offset order
func (s *ChainService) ListSegments(ctx context.Context, chainID uuid.UUID) ([]model.SegmentSummary, error) {
	if _, ok := s.store.Chain(chainID); !ok {
		return nil, ErrChainNotFound
	}
	segments := s.store.Segments(chainID)
	out := make([]model.SegmentSummary, 0, len(segments))
	for _, seg := range segments {
		out = append(out, seg.Summary())
	}
	return out, nil
}

// SegmentGraph returns a segment's full decision graph, from memory while
// its partition is held and from the archive after eviction.
func (s *ChainService) SegmentGraph(ctx context.Context, segmentID uuid.UUID) (SegmentGraph, error) {
	seg, ok := s.store.Segment(segmentID)
	if !ok {
		return SegmentGraph{}, ErrSegmentNotFound
	}
	var out SegmentGraph
	if seg.State == model.SegmentStateDubbed && s.archive != nil {
		url, err := s.archive.Link(ctx, seg)
		if err != nil {
			s.log.Warn("failed to link archived segment", zap.String("segment_id", segmentID.String()), zap.Error(err))
		}
		out.URL = url
		if !s.store.HasPartition(segmentID) {
			g, err := s.archive.Load(ctx, seg)
			if err != nil {
				return SegmentGraph{}, fmt.Errorf("failed to load archived segment: %w", err)
			}
			out.Graph = g
			return out, nil
		}
	}
	g, ok := s.store.Graph(segmentID)
	if !ok {
		return SegmentGraph{}, ErrSegmentNotFound
	}
	out.Graph = g
	return out, nil
}
