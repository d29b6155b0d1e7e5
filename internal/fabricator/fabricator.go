// Package fabricator is the working context of one segment's craft. It joins
// the entity store, the chain's source material and the previous segment, and
// commits every decision back into the store.
package fabricator

import (
	"fmt"
	"math/rand"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/makeasinger/fabricator/internal/meme"
	"github.com/makeasinger/fabricator/internal/model"
	"github.com/makeasinger/fabricator/internal/picker"
	"github.com/makeasinger/fabricator/internal/store"
)

// Fabricator is bound to a single segment and must only be used by the
// worker holding that segment in Crafting.
type Fabricator struct {
	store    *store.Store
	material SourceMaterial
	tuning   Tuning
	rng      *rand.Rand
	log      *zap.Logger

	chain       model.Chain
	segment     model.Segment
	previous    model.Segment
	hasPrevious bool
	segmentType model.SegmentType

	memes     *meme.Isometry
	memeNames []string
}

// New loads the segment, its chain and its predecessor and classifies the segment.
func New(st *store.Store, material SourceMaterial, segmentID uuid.UUID, tuning Tuning, rng *rand.Rand, log *zap.Logger) (*Fabricator, error) {
	seg, ok := st.Segment(segmentID)
	if !ok {
		return nil, model.NewNotFoundError("segment %s", segmentID)
	}
	chain, ok := st.Chain(seg.ChainID)
	if !ok {
		return nil, model.NewNotFoundError("chain %s of segment %s", seg.ChainID, segmentID)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if log == nil {
		log = zap.NewNop()
	}
	tuning.DetailTypes = slices.Clone(tuning.DetailTypes)

	f := &Fabricator{
		store:    st,
		material: material,
		tuning:   tuning,
		rng:      rng,
		log:      log.With(zap.String("chain_id", chain.ID.String()), zap.String("segment_id", seg.ID.String()), zap.Int("offset", seg.Offset)),
		chain:    chain,
		segment:  seg,
		memes:    meme.NewIsometry(),
	}

	if seg.Offset > 0 {
		prev, ok := st.SegmentAtOffset(chain.ID, seg.Offset-1)
		if ok {
			if !prev.AtLeastCrafted() {
				return nil, model.NewFabricationError(nil, "previous segment %s is %s", prev.ID, prev.State)
			}
			f.previous, f.hasPrevious = prev, true
		}
	}
	for _, m := range store.GetAll[model.SegmentMeme](st, seg.ID) {
		if len(f.memes.Add(m.Name)) > 0 {
			f.memeNames = append(f.memeNames, m.Name)
		}
	}

	f.segmentType = ClassifySegment(f.history())
	f.log.Debug("classified segment", zap.String("type", string(f.segmentType)))
	return f, nil
}

func (f *Fabricator) history() History {
	h := History{HasPrevious: f.hasPrevious}
	if !f.hasPrevious {
		return h
	}
	if c, ok := f.PreviousChoice(model.ProgramTypeMain); ok {
		h.MainOffset, h.MainOffsets = f.bindingOffsets(c)
	}
	if c, ok := f.PreviousChoice(model.ProgramTypeMacro); ok {
		h.MacroOffset, h.MacroOffsets = f.bindingOffsets(c)
	}
	return h
}

// bindingOffsets returns the offset a choice is bound at and all offsets of
// its program. A binding missing from the catalog counts as exhausted.
func (f *Fabricator) bindingOffsets(c model.SegmentChoice) (int, []int) {
	b, ok := f.material.SequenceBinding(c.ProgramSequenceBindingID)
	if !ok {
		return 0, nil
	}
	var offsets []int
	for _, sb := range f.material.SequenceBindings(c.ProgramID) {
		offsets = append(offsets, sb.Offset)
	}
	return b.Offset, offsets
}

func (f *Fabricator) Chain() model.Chain { return f.chain }
func (f *Fabricator) Segment() model.Segment { return f.segment }
func (f *Fabricator) Type() model.SegmentType { return f.segmentType }
func (f *Fabricator) Material() SourceMaterial { return f.material }
func (f *Fabricator) Tuning() Tuning { return f.tuning }
func (f *Fabricator) Logger() *zap.Logger { return f.log }
func (f *Fabricator) Store() *store.Store { return f.store }
func (f *Fabricator) PreviousSegment() (model.Segment, bool) {
	return f.previous, f.hasPrevious
}

// Entropy draws one bounded random offset for a candidate score.
func (f *Fabricator) Entropy() float64 {
	return picker.Entropy(f.rng, f.tuning.EntropyLimit)
}

// Put stores a decision in this segment's partition. Validation failures are
// recorded as a segment message and returned so the caller can drop the step.
func (f *Fabricator) Put(e model.SegmentEntity) error {
	if c, ok := e.(model.SegmentChoice); ok {
		if err := f.checkChoice(c); err != nil {
			f.recordMessage(model.SegmentMessageTypeError, err.Error())
			return err
		}
	}
	if err := f.store.Put(e); err != nil {
		if model.IsValidationError(err) {
			f.recordMessage(model.SegmentMessageTypeError, err.Error())
		}
		return err
	}
	return nil
}

// checkChoice keeps one Macro, one Main, one Beat and one Detail per instrument type.
func (f *Fabricator) checkChoice(c model.SegmentChoice) error {
	for _, existing := range f.Choices() {
		if existing.ID == c.ID || existing.ProgramType != c.ProgramType {
			continue
		}
		if c.ProgramType == model.ProgramTypeDetail && existing.InstrumentType != c.InstrumentType {
			continue
		}
		return model.NewValidationError(nil, "segment %s already has a %s choice", f.segment.ID, c.ProgramType)
	}
	return nil
}

func (f *Fabricator) recordMessage(t model.SegmentMessageType, body string) {
	if err := f.AddMessage(t, body); err != nil {
		f.log.Warn("failed to record segment message", zap.Error(err))
	}
}

// AddMessage appends a message to the segment.
func (f *Fabricator) AddMessage(t model.SegmentMessageType, body string) error {
	return f.store.Put(model.SegmentMessage{
		ID:        uuid.New(),
		SegmentID: f.segment.ID,
		Type:      t,
		Body:      body,
	})
}

// Warn records a Warning message and logs it.
func (f *Fabricator) Warn(format string, args ...any) {
	body := fmt.Sprintf(format, args...)
	f.log.Warn(body)
	f.recordMessage(model.SegmentMessageTypeWarning, body)
}

func (f *Fabricator) Choices() []model.SegmentChoice {
	return store.GetAll[model.SegmentChoice](f.store, f.segment.ID)
}

// CurrentChoice returns this segment's choice of a program type. For Detail
// use CurrentDetailChoice.
func (f *Fabricator) CurrentChoice(t model.ProgramType) (model.SegmentChoice, bool) {
	return findChoice(f.Choices(), t, "")
}

func (f *Fabricator) CurrentDetailChoice(it model.InstrumentType) (model.SegmentChoice, bool) {
	return findChoice(f.Choices(), model.ProgramTypeDetail, it)
}

func (f *Fabricator) PreviousChoice(t model.ProgramType) (model.SegmentChoice, bool) {
	if !f.hasPrevious {
		return model.SegmentChoice{}, false
	}
	return findChoice(store.GetAll[model.SegmentChoice](f.store, f.previous.ID), t, "")
}

func (f *Fabricator) PreviousDetailChoice(it model.InstrumentType) (model.SegmentChoice, bool) {
	if !f.hasPrevious {
		return model.SegmentChoice{}, false
	}
	return findChoice(store.GetAll[model.SegmentChoice](f.store, f.previous.ID), model.ProgramTypeDetail, it)
}

func findChoice(choices []model.SegmentChoice, t model.ProgramType, it model.InstrumentType) (model.SegmentChoice, bool) {
	for _, c := range choices {
		if c.ProgramType != t {
			continue
		}
		if t == model.ProgramTypeDetail && c.InstrumentType != it {
			continue
		}
		return c, true
	}
	return model.SegmentChoice{}, false
}

// Arrangements returns the arrangements of a choice in this segment.
func (f *Fabricator) Arrangements(choiceID uuid.UUID) []model.SegmentChoiceArrangement {
	return store.GetAllBelongingTo[model.SegmentChoiceArrangement](f.store, f.segment.ID, model.EntitySegmentChoice, choiceID)
}

// PreviousArrangements returns the arrangements of a choice in the previous segment.
func (f *Fabricator) PreviousArrangements(choiceID uuid.UUID) []model.SegmentChoiceArrangement {
	if !f.hasPrevious {
		return nil
	}
	return store.GetAllBelongingTo[model.SegmentChoiceArrangement](f.store, f.previous.ID, model.EntitySegmentChoice, choiceID)
}

func (f *Fabricator) Picks() []model.SegmentChoiceArrangementPick {
	return store.GetAll[model.SegmentChoiceArrangementPick](f.store, f.segment.ID)
}

// Memes returns this segment's meme names in the order they were added.
func (f *Fabricator) Memes() []string {
	return slices.Clone(f.memeNames)
}

func (f *Fabricator) PreviousMemes() []string {
	if !f.hasPrevious {
		return nil
	}
	var out []string
	for _, m := range store.GetAll[model.SegmentMeme](f.store, f.previous.ID) {
		out = append(out, m.Name)
	}
	return out
}

// MemeStack is the reference set candidates are scored against: this
// segment's memes, or the previous segment's until this one has any.
func (f *Fabricator) MemeStack() []string {
	if len(f.memeNames) > 0 {
		return f.Memes()
	}
	return f.PreviousMemes()
}

// AddMemes adds memes whose stems the segment does not have yet.
func (f *Fabricator) AddMemes(names ...string) error {
	for _, name := range f.memes.Add(names...) {
		err := f.store.Put(model.SegmentMeme{ID: uuid.New(), SegmentID: f.segment.ID, Name: name})
		if err != nil {
			return fmt.Errorf("failed to add meme %q: %w", name, err)
		}
		f.memeNames = append(f.memeNames, name)
	}
	return nil
}

// UpdateSegment changes the segment's craft attributes. The segment must
// still be Crafting.
func (f *Fabricator) UpdateSegment(mutate func(*model.Segment)) error {
	seg, err := f.store.UpdateSegmentIf(f.segment.ID, model.SegmentStateCrafting, mutate)
	if err != nil {
		return fmt.Errorf("failed to update segment: %w", err)
	}
	f.segment = seg
	return nil
}
