package worker

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/makeasinger/fabricator/internal/catalog"
	"github.com/makeasinger/fabricator/internal/craft"
	"github.com/makeasinger/fabricator/internal/fabricator"
	"github.com/makeasinger/fabricator/internal/lifecycle"
	"github.com/makeasinger/fabricator/internal/model"
	"github.com/makeasinger/fabricator/internal/service"
	"github.com/makeasinger/fabricator/internal/store"
)

// Shipper writes a finished segment graph downstream and returns its storage key.
type Shipper interface {
	Ship(ctx context.Context, g store.Graph) (string, error)
}

// Broadcaster notifies chain subscribers of segment progress.
type Broadcaster interface {
	BroadcastSegment(event model.SegmentEvent)
}

// FabricateConfig holds the pacing of the fabrication loop.
type FabricateConfig struct {
	// CycleDelay is the wait between successful runs.
	CycleDelay time.Duration
	// RetryDelay is the wait after a failed craft or dub.
	RetryDelay time.Duration
	// BufferAhead is how far past now segments are fabricated.
	BufferAhead time.Duration
	// RetainSegments is how many dubbed partitions per chain stay in memory.
	RetainSegments int
	// Seed seeds the per-segment randomness; 0 seeds from the clock.
	Seed   int64
	Tuning fabricator.Tuning
}

// FabricateWorker advances one chain by one segment per task
type FabricateWorker struct {
	store     *store.Store
	machine   *lifecycle.Machine
	scheduler service.Scheduler
	shipper   Shipper
	hub       Broadcaster
	catalog   *catalog.Holder
	cfg       FabricateConfig
	log       *zap.Logger
	now       func() time.Time
}

// NewFabricateWorker creates a new fabricate worker
func NewFabricateWorker(st *store.Store, machine *lifecycle.Machine, scheduler service.Scheduler, shipper Shipper, hub Broadcaster, holder *catalog.Holder, cfg FabricateConfig, log *zap.Logger) *FabricateWorker {
	if log == nil {
		log = zap.NewNop()
	}
	return &FabricateWorker{
		store:     st,
		machine:   machine,
		scheduler: scheduler,
		shipper:   shipper,
		hub:       hub,
		catalog:   holder,
		cfg:       cfg,
		log:       log.Named("fabricate"),
		now:       time.Now,
	}
}

// ProcessTask handles fabricate task processing
func (w *FabricateWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	p, err := service.ParseFabricateTask(t)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	return w.Fabricate(ctx, p.ChainID)
}

type planResult int

const (
	planReady planResult = iota
	planWait
	planDone
)

// Fabricate crafts and dubs the chain's next segment, then schedules the
// following run. Craft failures revert the segment and retry later; they are
// not returned to the queue.
func (w *FabricateWorker) Fabricate(ctx context.Context, chainID uuid.UUID) error {
	log := w.log.With(zap.String("chain_id", chainID.String()))
	chain, ok := w.store.Chain(chainID)
	if !ok || chain.State != model.ChainStateFabricate {
		log.Debug("chain is not fabricating")
		return nil
	}

	seg, result, err := w.plan(chain)
	if err != nil {
		log.Error("failed to plan segment", zap.Error(err))
		return w.schedule(ctx, w.cfg.RetryDelay, chainID)
	}
	switch result {
	case planDone:
		return nil
	case planWait:
		return w.schedule(ctx, w.cfg.CycleDelay, chainID)
	}

	crafting, err := w.machine.BeginCraft(seg.ID)
	if errors.Is(err, store.ErrStateMismatch) {
		segmentsTotal.WithLabelValues(resultSkipped).Inc()
		log.Debug("segment claimed by another worker", zap.String("segment_id", seg.ID.String()))
		return w.schedule(ctx, w.cfg.CycleDelay, chainID)
	}
	if err != nil {
		log.Error("failed to begin craft", zap.Error(err))
		return w.schedule(ctx, w.cfg.RetryDelay, chainID)
	}
	seg = crafting

	if err := w.craft(seg); err != nil {
		return w.revert(ctx, seg, err)
	}
	crafted, err := w.machine.FinishCraft(seg.ID)
	if err != nil {
		return w.revert(ctx, seg, err)
	}
	seg = crafted
	w.broadcast(seg, model.SegmentEventCrafted, "")

	if err := ctx.Err(); err != nil {
		return w.revert(ctx, seg, err)
	}
	dubbed, err := w.dub(ctx, seg)
	if err != nil {
		return w.revert(ctx, seg, err)
	}
	seg = dubbed
	segmentsTotal.WithLabelValues(resultDubbed).Inc()
	w.broadcast(seg, model.SegmentEventDubbed, "")
	log.Info("segment dubbed",
		zap.String("segment_id", seg.ID.String()),
		zap.Int("offset", seg.Offset),
		zap.String("type", string(seg.Type)),
		zap.String("storage_key", seg.StorageKey),
	)

	w.evict(chainID, seg.Offset)
	return w.schedule(ctx, w.cfg.CycleDelay, chainID)
}

// plan returns the segment to craft next. A Planned segment left by a revert
// is retried before any new one is planned.
func (w *FabricateWorker) plan(chain model.Chain) (model.Segment, planResult, error) {
	last, hasLast := w.store.LastSegment(chain.ID)
	beginAt, offset := chain.StartAt, 0
	if hasLast {
		switch {
		case last.State == model.SegmentStatePlanned:
			return last, planReady, nil
		case last.State == model.SegmentStateFailed:
			if _, err := w.machine.TransitionChain(chain.ID, model.ChainStateFailed); err != nil {
				return model.Segment{}, planWait, err
			}
			w.log.Warn("chain failed", zap.String("chain_id", chain.ID.String()), zap.Int("offset", last.Offset))
			return model.Segment{}, planDone, nil
		case !last.AtLeastCrafted():
			return model.Segment{}, planWait, nil
		}
		beginAt, offset = last.EndAt, last.Offset+1
	}

	if chain.Type == model.ChainTypeProduction && !chain.StopAt.IsZero() && !beginAt.Before(chain.StopAt) {
		if _, err := w.machine.TransitionChain(chain.ID, model.ChainStateComplete); err != nil {
			return model.Segment{}, planWait, err
		}
		w.log.Info("chain complete", zap.String("chain_id", chain.ID.String()), zap.Int("segments", offset))
		return model.Segment{}, planDone, nil
	}
	if beginAt.After(w.now().Add(w.cfg.BufferAhead)) {
		return model.Segment{}, planWait, nil
	}

	seg := model.Segment{
		ID:      uuid.New(),
		ChainID: chain.ID,
		Offset:  offset,
		State:   model.SegmentStatePlanned,
		Type:    model.SegmentTypePending,
		BeginAt: beginAt,
		EndAt:   beginAt,
	}
	if err := w.store.Put(seg); err != nil {
		if model.IsValidationError(err) {
			// another worker planned this offset first
			return model.Segment{}, planWait, nil
		}
		return model.Segment{}, planWait, err
	}
	return seg, planReady, nil
}

// craft runs the craft stages. A panic in a stage is returned as a fabrication
// error so the segment is reverted instead of left Crafting.
func (w *FabricateWorker) craft(seg model.Segment) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = model.NewFabricationError(fmt.Errorf("panic: %v", r), "craft panicked")
		}
	}()
	start := time.Now()
	material := catalog.NewMaterial(w.catalog.Current(), w.store.ChainBindings(seg.ChainID))
	f, err := fabricator.New(w.store, material, seg.ID, w.cfg.Tuning, w.rngFor(seg.ID), w.log)
	if err != nil {
		return err
	}
	if err := craft.Run(f); err != nil {
		return err
	}
	craftDuration.Observe(time.Since(start).Seconds())
	for _, c := range f.Choices() {
		choicesTotal.WithLabelValues(string(c.ProgramType)).Inc()
	}
	return nil
}

func (w *FabricateWorker) dub(ctx context.Context, seg model.Segment) (model.Segment, error) {
	if _, err := w.machine.BeginDub(seg.ID); err != nil {
		return seg, err
	}
	g, ok := w.store.Graph(seg.ID)
	if !ok {
		return seg, model.NewNotFoundError("segment %s", seg.ID)
	}
	key, err := w.shipper.Ship(ctx, g)
	if err != nil {
		return seg, err
	}
	return w.machine.FinishDub(seg.ID, key)
}

// revert returns the segment to Planned and retries after the retry delay.
func (w *FabricateWorker) revert(ctx context.Context, seg model.Segment, cause error) error {
	w.log.Warn("segment fabrication failed",
		zap.String("chain_id", seg.ChainID.String()),
		zap.String("segment_id", seg.ID.String()),
		zap.Int("offset", seg.Offset),
		zap.Error(cause),
	)
	segmentsTotal.WithLabelValues(resultReverted).Inc()
	segmentReverts.Inc()
	reverted, err := w.machine.Revert(seg.ID, cause)
	if err != nil {
		w.log.Error("failed to revert segment", zap.String("segment_id", seg.ID.String()), zap.Error(err))
	} else {
		seg = reverted
	}
	w.broadcast(seg, model.SegmentEventReverted, cause.Error())
	if _, ok := w.store.Chain(seg.ChainID); !ok {
		w.log.Info("chain erased during fabrication", zap.String("chain_id", seg.ChainID.String()))
		return nil
	}
	return w.schedule(context.WithoutCancel(ctx), w.cfg.RetryDelay, seg.ChainID)
}

// evict drops the partitions of dubbed segments older than the retention
// window. The segment records stay.
func (w *FabricateWorker) evict(chainID uuid.UUID, latest int) {
	if w.cfg.RetainSegments <= 0 {
		return
	}
	for _, seg := range w.store.Segments(chainID) {
		if seg.Offset > latest-w.cfg.RetainSegments {
			break
		}
		if seg.State == model.SegmentStateDubbed && w.store.HasPartition(seg.ID) {
			w.store.DeleteSegment(seg.ID)
		}
	}
}

func (w *FabricateWorker) schedule(ctx context.Context, delay time.Duration, chainID uuid.UUID) error {
	if err := w.scheduler.ScheduleSegmentFabricate(ctx, delay, chainID); err != nil {
		return fmt.Errorf("failed to schedule next fabrication: %w", err)
	}
	return nil
}

func (w *FabricateWorker) broadcast(seg model.Segment, eventType, message string) {
	if w.hub == nil {
		return
	}
	w.hub.BroadcastSegment(model.SegmentEvent{
		Type:      eventType,
		ChainID:   seg.ChainID,
		SegmentID: seg.ID,
		Offset:    seg.Offset,
		State:     seg.State,
		Message:   message,
	})
}

// rngFor mixes the configured seed with the segment id so every segment draws
// its own sequence.
func (w *FabricateWorker) rngFor(segmentID uuid.UUID) *rand.Rand {
	seed := w.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed ^ int64(binary.BigEndian.Uint64(segmentID[:8]))))
}
