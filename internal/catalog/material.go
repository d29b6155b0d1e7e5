package catalog

import (
	"slices"

	"github.com/google/uuid"

	"github.com/makeasinger/fabricator/internal/meme"
	"github.com/makeasinger/fabricator/internal/model"
)

// Material is the view of a catalog snapshot that one chain can see through
// its bindings. Lookups preserve catalog order.
type Material struct {
	content *Content
	idx     *contentIndex

	libraries   map[uuid.UUID]struct{}
	programs    map[uuid.UUID]struct{}
	instruments map[uuid.UUID]struct{}
}

// NewMaterial scopes content to a chain's bindings. Programs and instruments
// are visible when bound directly or through a bound library.
func NewMaterial(content *Content, bindings []model.ChainBinding) *Material {
	if content == nil {
		content = &Content{}
	}
	m := &Material{
		content:     content,
		idx:         content.index(),
		libraries:   make(map[uuid.UUID]struct{}),
		programs:    make(map[uuid.UUID]struct{}),
		instruments: make(map[uuid.UUID]struct{}),
	}
	for _, b := range bindings {
		switch b.Type {
		case model.ChainBindingTypeLibrary:
			m.libraries[b.TargetID] = struct{}{}
		case model.ChainBindingTypeProgram:
			m.programs[b.TargetID] = struct{}{}
		case model.ChainBindingTypeInstrument:
			m.instruments[b.TargetID] = struct{}{}
		}
	}
	return m
}

func (m *Material) programVisible(p model.Program) bool {
	if _, ok := m.programs[p.ID]; ok {
		return true
	}
	_, ok := m.libraries[p.LibraryID]
	return ok
}

func (m *Material) instrumentVisible(i model.Instrument) bool {
	if _, ok := m.instruments[i.ID]; ok {
		return true
	}
	_, ok := m.libraries[i.LibraryID]
	return ok
}

// IsDirectlyBound reports whether a program or instrument is itself a chain
// binding target, as opposed to reachable through a library.
func (m *Material) IsDirectlyBound(id uuid.UUID) bool {
	if _, ok := m.programs[id]; ok {
		return true
	}
	_, ok := m.instruments[id]
	return ok
}

func (m *Material) ProgramsOfType(t model.ProgramType) []model.Program {
	var out []model.Program
	for _, p := range m.content.Programs {
		if p.Type == t && m.programVisible(p) {
			out = append(out, p)
		}
	}
	return out
}

func (m *Material) InstrumentsOfType(t model.InstrumentType) []model.Instrument {
	var out []model.Instrument
	for _, i := range m.content.Instruments {
		if i.Type == t && m.instrumentVisible(i) {
			out = append(out, i)
		}
	}
	return out
}

func (m *Material) Program(id uuid.UUID) (model.Program, bool) {
	if i, ok := m.idx.programs[id]; ok {
		return m.content.Programs[i], true
	}
	return model.Program{}, false
}

func (m *Material) Instrument(id uuid.UUID) (model.Instrument, bool) {
	if i, ok := m.idx.instruments[id]; ok {
		return m.content.Instruments[i], true
	}
	return model.Instrument{}, false
}

// MemesOf returns the meme names of a program, instrument or sequence binding.
func (m *Material) MemesOf(id uuid.UUID) []string {
	return slices.Clone(m.idx.memes[id])
}

func (m *Material) VoicesOf(programID uuid.UUID) []model.ProgramVoice {
	return slices.Clone(m.idx.voices[programID])
}

func (m *Material) Sequence(id uuid.UUID) (model.ProgramSequence, bool) {
	if i, ok := m.idx.sequences[id]; ok {
		return m.content.ProgramSequences[i], true
	}
	return model.ProgramSequence{}, false
}

func (m *Material) SequencesOf(programID uuid.UUID) []model.ProgramSequence {
	return slices.Clone(m.idx.sequencesOf[programID])
}

// SequenceBindings returns a program's sequence bindings ordered by offset.
func (m *Material) SequenceBindings(programID uuid.UUID) []model.ProgramSequenceBinding {
	return slices.Clone(m.idx.bindingsOf[programID])
}

func (m *Material) SequenceBinding(id uuid.UUID) (model.ProgramSequenceBinding, bool) {
	if i, ok := m.idx.sequenceBindings[id]; ok {
		return m.content.ProgramSequenceBindings[i], true
	}
	return model.ProgramSequenceBinding{}, false
}

// PatternsOf returns the patterns a voice plays during a sequence.
func (m *Material) PatternsOf(sequenceID, voiceID uuid.UUID) []model.ProgramSequencePattern {
	var out []model.ProgramSequencePattern
	for _, p := range m.idx.patternsOf[sequenceID] {
		if p.ProgramVoiceID == voiceID {
			out = append(out, p)
		}
	}
	return out
}

// EventsOf returns a pattern's events ordered by position.
func (m *Material) EventsOf(patternID uuid.UUID) []model.ProgramSequencePatternEvent {
	return slices.Clone(m.idx.eventsOf[patternID])
}

// ChordsOf returns a sequence's chords ordered by position.
func (m *Material) ChordsOf(sequenceID uuid.UUID) []model.ProgramSequenceChord {
	return slices.Clone(m.idx.chordsOf[sequenceID])
}

func (m *Material) VoicingsOf(chordID uuid.UUID) []model.ProgramSequenceChordVoicing {
	return slices.Clone(m.idx.voicingsOf[chordID])
}

func (m *Material) AudiosOf(instrumentID uuid.UUID) []model.InstrumentAudio {
	return slices.Clone(m.idx.audiosOf[instrumentID])
}

// AudioFor finds the instrument audio for a pattern event name. An audio whose
// event stem matches exactly wins; otherwise the first audio in the same name
// cluster ("Tom" for "TomHigh") is used.
func (m *Material) AudioFor(instrumentID uuid.UUID, event string) (model.InstrumentAudio, bool) {
	audios := m.idx.audiosOf[instrumentID]
	stem := meme.Stem(event)
	for _, a := range audios {
		if meme.Stem(a.Event) == stem {
			return a, true
		}
	}
	names := make([]string, 0, len(audios)+1)
	names = append(names, event)
	for _, a := range audios {
		names = append(names, a.Event)
	}
	for _, c := range meme.ClusterNames(names) {
		if !slices.Contains(c.Names, event) {
			continue
		}
		for _, a := range audios {
			if slices.Contains(c.Names, a.Event) && meme.SameName(a.Event, event) {
				return a, true
			}
		}
	}
	return model.InstrumentAudio{}, false
}
