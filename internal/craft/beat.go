package craft

import (
	"github.com/google/uuid"

	"github.com/makeasinger/fabricator/internal/model"
)

// craftBeat chooses at most one Beat program. It is held for as long as the
// Main program does not change.
func (c *crafter) craftBeat() error {
	f := c.f
	if prev, ok := f.PreviousChoice(model.ProgramTypeBeat); ok && c.mainUnchanged() {
		return c.reuseChoice(prev)
	}

	var candidates []model.Program
	for _, p := range c.m.ProgramsOfType(model.ProgramTypeBeat) {
		if len(c.m.VoicesOf(p.ID)) > 0 {
			candidates = append(candidates, p)
		}
	}
	program, ok := choose(f, string(model.ProgramTypeBeat), candidates, uuid.Nil)
	if !ok {
		f.Warn("no beat program available, segment has no beat")
		return nil
	}
	choice, ok, err := c.commitOptionalChoice(program, model.ProgramTypeBeat, "")
	if err != nil || !ok {
		return err
	}
	for _, voice := range c.m.VoicesOf(program.ID) {
		if err := c.arrangeVoice(choice, voice); err != nil {
			return err
		}
	}
	return nil
}

// commitOptionalChoice stores a Beat or Detail choice on the program's first
// sequence. ok is false when the step was dropped.
func (c *crafter) commitOptionalChoice(program model.Program, t model.ProgramType, it model.InstrumentType) (model.SegmentChoice, bool, error) {
	f := c.f
	choice := model.SegmentChoice{
		ID:             uuid.New(),
		SegmentID:      f.Segment().ID,
		ProgramID:      program.ID,
		ProgramType:    t,
		InstrumentType: it,
	}
	if bindings := c.m.SequenceBindings(program.ID); len(bindings) > 0 {
		choice.ProgramSequenceID = bindings[0].ProgramSequenceID
		choice.ProgramSequenceBindingID = bindings[0].ID
	} else if sequences := c.m.SequencesOf(program.ID); len(sequences) > 0 {
		choice.ProgramSequenceID = sequences[0].ID
	} else {
		f.Warn("%s program %q has no sequence", t, program.Name)
		return model.SegmentChoice{}, false, nil
	}
	if err := f.Put(choice); err != nil {
		return model.SegmentChoice{}, false, skipInvalid(err)
	}
	return choice, true, nil
}

// reuseChoice carries a previous segment's choice over verbatim, on the same
// instruments. Picks are laid out again for this segment.
func (c *crafter) reuseChoice(prev model.SegmentChoice) error {
	f := c.f
	choice := prev
	choice.ID = uuid.New()
	choice.SegmentID = f.Segment().ID
	if err := f.Put(choice); err != nil {
		return skipInvalid(err)
	}

	voices := c.m.VoicesOf(prev.ProgramID)
	for _, arr := range f.PreviousArrangements(prev.ID) {
		var voice model.ProgramVoice
		found := false
		for _, v := range voices {
			if v.ID == arr.ProgramVoiceID {
				voice, found = v, true
				break
			}
		}
		if !found {
			f.Warn("voice %s is gone from the catalog", arr.ProgramVoiceID)
			continue
		}
		instrument, ok := c.m.Instrument(arr.InstrumentID)
		if !ok {
			f.Warn("instrument %s is gone from the catalog", arr.InstrumentID)
			continue
		}
		if err := c.arrange(choice, voice, instrument); err != nil {
			return err
		}
	}
	return nil
}
