package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/makeasinger/fabricator/internal/lifecycle"
	"github.com/makeasinger/fabricator/internal/model"
	"github.com/makeasinger/fabricator/internal/store"
)

type recordingScheduler struct {
	scheduled []time.Duration
	started   []uuid.UUID
	stopped   []uuid.UUID
	err       error
}

func (s *recordingScheduler) ScheduleSegmentFabricate(ctx context.Context, delay time.Duration, chainID uuid.UUID) error {
	s.scheduled = append(s.scheduled, delay)
	return s.err
}

func (s *recordingScheduler) StartChainFabrication(ctx context.Context, chainID uuid.UUID) error {
	s.started = append(s.started, chainID)
	return s.err
}

func (s *recordingScheduler) StopChainFabrication(ctx context.Context, chainID uuid.UUID) error {
	s.stopped = append(s.stopped, chainID)
	return s.err
}

type memoryArchive struct {
	graphs    map[uuid.UUID]store.Graph
	forgotten []uuid.UUID
	segments  []model.Segment
}

func (a *memoryArchive) Load(ctx context.Context, seg model.Segment) (store.Graph, error) {
	g, ok := a.graphs[seg.ID]
	if !ok {
		return store.Graph{}, errNotArchived
	}
	return g, nil
}

func (a *memoryArchive) Link(ctx context.Context, seg model.Segment) (string, error) {
	if seg.StorageKey == "" {
		return "", nil
	}
	return "https://signed.example.com/" + seg.StorageKey, nil
}

func (a *memoryArchive) Forget(ctx context.Context, chainID uuid.UUID, segments []model.Segment) error {
	a.forgotten = append(a.forgotten, chainID)
	a.segments = append(a.segments, segments...)
	return nil
}

var errNotArchived = errors.New("not archived")

func newTestService(t *testing.T) (*ChainService, *store.Store, *recordingScheduler, *memoryArchive) {
	t.Helper()
	st := store.New(nil)
	sched := &recordingScheduler{}
	archive := &memoryArchive{graphs: make(map[uuid.UUID]store.Graph)}
	return NewChainService(st, lifecycle.NewMachine(st, nil), sched, archive, nil), st, sched, archive
}

func createChain(t *testing.T, s *ChainService) model.Chain {
	t.Helper()
	chain, err := s.Create(context.Background(), &model.CreateChainRequest{Name: "radio", Type: model.ChainTypeProduction})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return chain
}

func TestCreateChain(t *testing.T) {
	s, _, _, _ := newTestService(t)
	chain := createChain(t, s)
	if chain.State != model.ChainStateDraft || chain.StartAt.IsZero() {
		t.Errorf("unexpected chain %+v", chain)
	}

	now := time.Now()
	_, err := s.Create(context.Background(), &model.CreateChainRequest{
		Name:    "backwards",
		Type:    model.ChainTypePreview,
		StartAt: now,
		StopAt:  now.Add(-time.Minute),
	})
	if !model.IsValidationError(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestAddBinding(t *testing.T) {
	s, _, _, _ := newTestService(t)
	ctx := context.Background()
	chain := createChain(t, s)

	target := uuid.New()
	b, err := s.AddBinding(ctx, chain.ID, &model.AddBindingRequest{Type: model.ChainBindingTypeLibrary, TargetID: target.String()})
	if err != nil {
		t.Fatalf("add binding: %v", err)
	}
	got, err := s.Get(ctx, chain.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Bindings) != 1 || got.Bindings[0].ID != b.ID || got.Bindings[0].TargetID != target {
		t.Errorf("unexpected bindings %+v", got.Bindings)
	}

	if _, err := s.AddBinding(ctx, uuid.New(), &model.AddBindingRequest{Type: model.ChainBindingTypeLibrary, TargetID: target.String()}); !errors.Is(err, ErrChainNotFound) {
		t.Errorf("expected ErrChainNotFound, got %v", err)
	}
}

func TestTransitionDrivesScheduler(t *testing.T) {
	s, st, sched, archive := newTestService(t)
	ctx := context.Background()
	chain := createChain(t, s)

	if _, err := s.Transition(ctx, chain.ID, model.ChainStateFabricate); !errors.Is(err, lifecycle.ErrIllegalTransition) {
		t.Errorf("expected illegal transition from Draft, got %v", err)
	}
	for _, to := range []model.ChainState{model.ChainStateReady, model.ChainStateFabricate} {
		if _, err := s.Transition(ctx, chain.ID, to); err != nil {
			t.Fatalf("transition to %s: %v", to, err)
		}
	}
	if len(sched.started) != 1 || sched.started[0] != chain.ID {
		t.Errorf("expected fabrication started, got %v", sched.started)
	}

	if _, err := s.Transition(ctx, chain.ID, model.ChainStateComplete); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := s.AddBinding(ctx, chain.ID, &model.AddBindingRequest{Type: model.ChainBindingTypeLibrary, TargetID: uuid.NewString()}); !errors.Is(err, ErrChainClosed) {
		t.Errorf("expected ErrChainClosed, got %v", err)
	}

	if _, err := s.Transition(ctx, chain.ID, model.ChainStateErase); err != nil {
		t.Fatalf("erase: %v", err)
	}
	if len(sched.stopped) != 2 {
		t.Errorf("expected fabrication stopped twice, got %d", len(sched.stopped))
	}
	if len(archive.forgotten) != 1 {
		t.Errorf("expected shipped segments forgotten")
	}
	if _, ok := st.Chain(chain.ID); ok {
		t.Error("erased chain must be deleted")
	}
	if _, err := s.Get(ctx, chain.ID); !errors.Is(err, ErrChainNotFound) {
		t.Errorf("expected ErrChainNotFound, got %v", err)
	}
}

func TestSegmentsAndGraph(t *testing.T) {
	s, st, _, archive := newTestService(t)
	ctx := context.Background()
	chain := createChain(t, s)

	var ids []uuid.UUID
	for offset, state := range []model.SegmentState{model.SegmentStateDubbed, model.SegmentStateCrafted} {
		seg := model.Segment{ID: uuid.New(), ChainID: chain.ID, Offset: offset, State: state, Type: model.SegmentTypeInitial}
		if err := st.Put(seg); err != nil {
			t.Fatalf("put segment: %v", err)
		}
		ids = append(ids, seg.ID)
	}
	if err := st.Put(model.SegmentChord{ID: uuid.New(), SegmentID: ids[1], Name: "C"}); err != nil {
		t.Fatalf("put chord: %v", err)
	}

	list, err := s.ListSegments(ctx, chain.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != ids[0] || list[1].Offset != 1 {
		t.Errorf("unexpected list %+v", list)
	}

	g, err := s.SegmentGraph(ctx, ids[1])
	if err != nil {
		t.Fatalf("graph: %v", err)
	}
	if len(g.Chords) != 1 {
		t.Errorf("expected the in-memory chord, got %+v", g.Chords)
	}

	archive.graphs[ids[0]] = store.Graph{Segment: model.Segment{ID: ids[0]}, Chords: []model.SegmentChord{{Name: "G"}}}
	g, err = s.SegmentGraph(ctx, ids[0])
	if err != nil {
		t.Fatalf("archived graph: %v", err)
	}
	if len(g.Chords) != 1 || g.Chords[0].Name != "G" {
		t.Errorf("expected archived graph, got %+v", g)
	}

	if _, err := s.SegmentGraph(ctx, uuid.New()); !errors.Is(err, ErrSegmentNotFound) {
		t.Errorf("expected ErrSegmentNotFound, got %v", err)
	}
}

func TestArchivedSegmentIsLinkedAndForgotten(t *testing.T) {
	s, st, _, archive := newTestService(t)
	ctx := context.Background()
	chain := createChain(t, s)

	seg := model.Segment{ID: uuid.New(), ChainID: chain.ID, State: model.SegmentStateDubbed, Type: model.SegmentTypeInitial, StorageKey: "chains/x/segments/0.json"}
	if err := st.Put(seg); err != nil {
		t.Fatalf("put segment: %v", err)
	}

	if _, err := s.SegmentGraph(ctx, seg.ID); !errors.Is(err, errNotArchived) {
		t.Errorf("expected the archive error to surface, got %v", err)
	}

	archive.graphs[seg.ID] = store.Graph{Segment: seg}
	g, err := s.SegmentGraph(ctx, seg.ID)
	if err != nil {
		t.Fatalf("graph: %v", err)
	}
	if g.URL != "https://signed.example.com/chains/x/segments/0.json" {
		t.Errorf("expected a signed link, got %q", g.URL)
	}

	if _, err := s.Transition(ctx, chain.ID, model.ChainStateErase); err != nil {
		t.Fatalf("erase: %v", err)
	}
	if len(archive.segments) != 1 || archive.segments[0].StorageKey != seg.StorageKey {
		t.Errorf("expected the archived segment handed to forget, got %+v", archive.segments)
	}
}
