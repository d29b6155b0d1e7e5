package catalog

import (
	"slices"

	"github.com/google/uuid"

	"github.com/makeasinger/fabricator/internal/model"
)

// contentIndex maps ids and parent ids to catalog entities. Grouped slices
// keep catalog order; bindings, events and chords are pre-sorted.
type contentIndex struct {
	programs         map[uuid.UUID]int
	instruments      map[uuid.UUID]int
	sequences        map[uuid.UUID]int
	sequenceBindings map[uuid.UUID]int

	memes       map[uuid.UUID][]string
	voices      map[uuid.UUID][]model.ProgramVoice
	sequencesOf map[uuid.UUID][]model.ProgramSequence
	bindingsOf  map[uuid.UUID][]model.ProgramSequenceBinding
	patternsOf  map[uuid.UUID][]model.ProgramSequencePattern
	eventsOf    map[uuid.UUID][]model.ProgramSequencePatternEvent
	chordsOf    map[uuid.UUID][]model.ProgramSequenceChord
	voicingsOf  map[uuid.UUID][]model.ProgramSequenceChordVoicing
	audiosOf    map[uuid.UUID][]model.InstrumentAudio
}

// positions maps each id to the first slice position holding it.
func positions[T any](items []T, id func(T) uuid.UUID) map[uuid.UUID]int {
	out := make(map[uuid.UUID]int, len(items))
	for i, item := range items {
		if _, ok := out[id(item)]; !ok {
			out[id(item)] = i
		}
	}
	return out
}

func groupBy[T any](items []T, parent func(T) uuid.UUID) map[uuid.UUID][]T {
	out := make(map[uuid.UUID][]T)
	for _, item := range items {
		out[parent(item)] = append(out[parent(item)], item)
	}
	return out
}

func byPosition(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func buildIndex(c *Content) *contentIndex {
	idx := &contentIndex{
		programs:         positions(c.Programs, func(p model.Program) uuid.UUID { return p.ID }),
		instruments:      positions(c.Instruments, func(i model.Instrument) uuid.UUID { return i.ID }),
		sequences:        positions(c.ProgramSequences, func(s model.ProgramSequence) uuid.UUID { return s.ID }),
		sequenceBindings: positions(c.ProgramSequenceBindings, func(b model.ProgramSequenceBinding) uuid.UUID { return b.ID }),

		memes:       make(map[uuid.UUID][]string),
		voices:      groupBy(c.ProgramVoices, func(v model.ProgramVoice) uuid.UUID { return v.ProgramID }),
		sequencesOf: groupBy(c.ProgramSequences, func(s model.ProgramSequence) uuid.UUID { return s.ProgramID }),
		bindingsOf:  groupBy(c.ProgramSequenceBindings, func(b model.ProgramSequenceBinding) uuid.UUID { return b.ProgramID }),
		patternsOf:  groupBy(c.ProgramSequencePatterns, func(p model.ProgramSequencePattern) uuid.UUID { return p.ProgramSequenceID }),
		eventsOf:    groupBy(c.ProgramSequencePatternEvents, func(e model.ProgramSequencePatternEvent) uuid.UUID { return e.ProgramSequencePatternID }),
		chordsOf:    groupBy(c.ProgramSequenceChords, func(ch model.ProgramSequenceChord) uuid.UUID { return ch.ProgramSequenceID }),
		voicingsOf:  groupBy(c.ProgramSequenceChordVoicings, func(v model.ProgramSequenceChordVoicing) uuid.UUID { return v.ProgramSequenceChordID }),
		audiosOf:    groupBy(c.InstrumentAudios, func(a model.InstrumentAudio) uuid.UUID { return a.InstrumentID }),
	}

	for _, pm := range c.ProgramMemes {
		idx.memes[pm.ProgramID] = append(idx.memes[pm.ProgramID], pm.Name)
	}
	for _, im := range c.InstrumentMemes {
		idx.memes[im.InstrumentID] = append(idx.memes[im.InstrumentID], im.Name)
	}
	for _, bm := range c.ProgramSequenceBindingMemes {
		idx.memes[bm.ProgramSequenceBindingID] = append(idx.memes[bm.ProgramSequenceBindingID], bm.Name)
	}

	for _, bindings := range idx.bindingsOf {
		slices.SortStableFunc(bindings, func(a, b model.ProgramSequenceBinding) int { return a.Offset - b.Offset })
	}
	for _, events := range idx.eventsOf {
		slices.SortStableFunc(events, func(a, b model.ProgramSequencePatternEvent) int { return byPosition(a.Position, b.Position) })
	}
	for _, chords := range idx.chordsOf {
		slices.SortStableFunc(chords, func(a, b model.ProgramSequenceChord) int { return byPosition(a.Position, b.Position) })
	}
	return idx
}

// index returns the snapshot's indexes, building throwaway ones for content
// that was assembled by hand and never indexed.
func (c *Content) index() *contentIndex {
	if c.idx != nil {
		return c.idx
	}
	return buildIndex(c)
}

// Reindex rebuilds the lookup indexes. Content must not change once it is
// shared, so call it after the last edit and before handing it out.
func (c *Content) Reindex() {
	c.idx = buildIndex(c)
}
