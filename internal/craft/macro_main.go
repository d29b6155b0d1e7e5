package craft

import (
	"github.com/google/uuid"

	"github.com/makeasinger/fabricator/internal/fabricator"
	"github.com/makeasinger/fabricator/internal/model"
)

// boundProgram is a program placed at one of its sequence bindings.
type boundProgram struct {
	program  model.Program
	binding  model.ProgramSequenceBinding
	sequence model.ProgramSequence
}

// key prefers the sequence's key over the program's.
func (b boundProgram) key() string {
	if b.sequence.Key != "" {
		return b.sequence.Key
	}
	return b.program.Key
}

func (c *crafter) craftMacroMain() error {
	f := c.f
	prevMacro, hasPrevMacro := f.PreviousChoice(model.ProgramTypeMacro)
	prevMain, hasPrevMain := f.PreviousChoice(model.ProgramTypeMain)
	if f.Type() != model.SegmentTypeInitial && (!hasPrevMacro || !hasPrevMain) {
		return model.NewFabricationError(nil, "previous segment has no macro or main choice")
	}

	var macro boundProgram
	var err error
	switch f.Type() {
	case model.SegmentTypeContinue:
		macro, err = c.atBinding(prevMacro.ProgramID, prevMacro.ProgramSequenceBindingID)
	case model.SegmentTypeNextMain:
		macro, err = c.afterBinding(prevMacro)
	case model.SegmentTypeNextMacro:
		macro, err = c.chooseBound(model.ProgramTypeMacro, prevMacro.ProgramID)
	default:
		macro, err = c.chooseBound(model.ProgramTypeMacro, uuid.Nil)
	}
	if err != nil {
		return err
	}
	if err := c.commitChoice(macro, model.ProgramTypeMacro, 0); err != nil {
		return err
	}

	var main boundProgram
	switch f.Type() {
	case model.SegmentTypeContinue:
		main, err = c.afterBinding(prevMain)
	case model.SegmentTypeInitial:
		main, err = c.chooseBound(model.ProgramTypeMain, uuid.Nil)
	default:
		main, err = c.chooseBound(model.ProgramTypeMain, prevMain.ProgramID)
	}
	if err != nil {
		return err
	}
	transpose := Transpose(main.key(), macro.key())
	if err := c.commitChoice(main, model.ProgramTypeMain, transpose); err != nil {
		return err
	}

	if err := c.commitSegment(macro, main, transpose); err != nil {
		return err
	}
	return c.commitChords(main, transpose)
}

// chooseBound scores the visible programs of a type that have at least one
// sequence binding and places the winner at its first binding.
func (c *crafter) chooseBound(t model.ProgramType, avoid uuid.UUID) (boundProgram, error) {
	var candidates []model.Program
	for _, p := range c.m.ProgramsOfType(t) {
		if len(c.m.SequenceBindings(p.ID)) > 0 {
			candidates = append(candidates, p)
		}
	}
	program, ok := choose(c.f, string(t), candidates, avoid)
	if !ok {
		return boundProgram{}, model.NewNotFoundError("no %s program available to chain %s", t, c.f.Chain().ID)
	}
	first := c.m.SequenceBindings(program.ID)[0]
	return c.atBinding(program.ID, first.ID)
}

// afterBinding advances a previous choice's program to its next binding offset.
func (c *crafter) afterBinding(prev model.SegmentChoice) (boundProgram, error) {
	current, ok := c.m.SequenceBinding(prev.ProgramSequenceBindingID)
	if !ok {
		return boundProgram{}, model.NewFabricationError(nil, "sequence binding %s is gone from the catalog", prev.ProgramSequenceBindingID)
	}
	bindings := c.m.SequenceBindings(prev.ProgramID)
	offsets := make([]int, len(bindings))
	for i, b := range bindings {
		offsets[i] = b.Offset
	}
	next, ok := fabricator.NextOffset(offsets, current.Offset)
	if !ok {
		return boundProgram{}, model.NewFabricationError(nil, "program %s has no binding after offset %d", prev.ProgramID, current.Offset)
	}
	for _, b := range bindings {
		if b.Offset == next {
			return c.atBinding(prev.ProgramID, b.ID)
		}
	}
	return boundProgram{}, model.NewFabricationError(nil, "program %s has no binding at offset %d", prev.ProgramID, next)
}

func (c *crafter) atBinding(programID, bindingID uuid.UUID) (boundProgram, error) {
	program, ok := c.m.Program(programID)
	if !ok {
		return boundProgram{}, model.NewFabricationError(nil, "program %s is gone from the catalog", programID)
	}
	binding, ok := c.m.SequenceBinding(bindingID)
	if !ok {
		return boundProgram{}, model.NewFabricationError(nil, "sequence binding %s is gone from the catalog", bindingID)
	}
	sequence, ok := c.m.Sequence(binding.ProgramSequenceID)
	if !ok {
		return boundProgram{}, model.NewFabricationError(nil, "sequence %s is gone from the catalog", binding.ProgramSequenceID)
	}
	return boundProgram{program: program, binding: binding, sequence: sequence}, nil
}

// commitChoice stores a Macro or Main choice and adds its memes to the segment.
func (c *crafter) commitChoice(b boundProgram, t model.ProgramType, transpose int) error {
	f := c.f
	err := f.Put(model.SegmentChoice{
		ID:                       uuid.New(),
		SegmentID:                f.Segment().ID,
		ProgramID:                b.program.ID,
		ProgramType:              t,
		ProgramSequenceID:        b.sequence.ID,
		ProgramSequenceBindingID: b.binding.ID,
		Transpose:                transpose,
	})
	if err != nil {
		return err
	}
	memes := append(c.m.MemesOf(b.program.ID), c.m.MemesOf(b.binding.ID)...)
	return f.AddMemes(memes...)
}

// commitSegment writes the segment's musical attributes, taken from the Main sequence.
func (c *crafter) commitSegment(macro, main boundProgram, transpose int) error {
	total := main.sequence.Total
	if total <= 0 {
		return model.NewFabricationError(nil, "main sequence %s has no length", main.sequence.ID)
	}
	tempo := main.program.Tempo
	if tempo <= 0 {
		tempo = macro.program.Tempo
	}
	if tempo <= 0 {
		return model.NewFabricationError(nil, "neither main program %s nor macro program %s has a tempo", main.program.ID, macro.program.ID)
	}
	density := (macro.sequence.Density + main.sequence.Density) / 2
	key := TransposeName(main.key(), transpose)
	segmentType := c.f.Type()

	return c.f.UpdateSegment(func(seg *model.Segment) {
		seg.Type = segmentType
		seg.Key = key
		seg.Total = total
		seg.Tempo = tempo
		seg.Density = density
		seg.EndAt = seg.BeginAt.Add(seg.Duration())
	})
}

// commitChords copies the Main sequence's chords that fall inside the segment.
func (c *crafter) commitChords(main boundProgram, transpose int) error {
	f := c.f
	total := float64(f.Segment().Total)
	for _, chord := range c.m.ChordsOf(main.sequence.ID) {
		if chord.Position >= total {
			continue
		}
		sc := model.SegmentChord{
			ID:        uuid.New(),
			SegmentID: f.Segment().ID,
			Name:      TransposeName(chord.Name, transpose),
			Position:  chord.Position,
		}
		if err := f.Put(sc); err != nil {
			if err := skipInvalid(err); err != nil {
				return err
			}
			continue
		}
		for _, v := range c.m.VoicingsOf(chord.ID) {
			err := f.Put(model.SegmentChordVoicing{
				ID:             uuid.New(),
				SegmentID:      f.Segment().ID,
				SegmentChordID: sc.ID,
				Type:           v.Type,
				Notes:          v.Notes,
			})
			if err := skipInvalid(err); err != nil {
				return err
			}
		}
	}
	return nil
}
