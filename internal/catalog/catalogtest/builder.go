// Package catalogtest builds catalog snapshots for tests.
package catalogtest

import (
	"github.com/google/uuid"

	"github.com/makeasinger/fabricator/internal/catalog"
	"github.com/makeasinger/fabricator/internal/model"
)

// Event describes one pattern event, in beats.
type Event struct {
	Name     string
	Position float64
	Duration float64
	Velocity float64
	Tones    string
}

// Builder appends entities to a snapshot in call order, which is also the
// catalog order seen by lookups.
type Builder struct {
	content catalog.Content
	library model.Library
}

func NewBuilder() *Builder {
	lib := model.Library{ID: uuid.New(), Name: "Test Library"}
	b := &Builder{library: lib}
	b.content.Libraries = append(b.content.Libraries, lib)
	return b
}

func (b *Builder) LibraryID() uuid.UUID { return b.library.ID }

// Program adds a program in the builder's library.
func (b *Builder) Program(t model.ProgramType, name, key string, tempo float64, memes ...string) model.Program {
	p := model.Program{
		ID:        uuid.New(),
		LibraryID: b.library.ID,
		Type:      t,
		Name:      name,
		Key:       key,
		Tempo:     tempo,
		Density:   0.5,
	}
	b.content.Programs = append(b.content.Programs, p)
	for _, m := range memes {
		b.content.ProgramMemes = append(b.content.ProgramMemes, model.ProgramMeme{ID: uuid.New(), ProgramID: p.ID, Name: m})
	}
	return p
}

// OutsideProgram adds a program that belongs to no library.
func (b *Builder) OutsideProgram(t model.ProgramType, name string, memes ...string) model.Program {
	p := b.Program(t, name, "C", 120, memes...)
	last := len(b.content.Programs) - 1
	b.content.Programs[last].LibraryID = uuid.New()
	p.LibraryID = b.content.Programs[last].LibraryID
	return p
}

func (b *Builder) Sequence(programID uuid.UUID, name, key string, total int, density float64) model.ProgramSequence {
	s := model.ProgramSequence{ID: uuid.New(), ProgramID: programID, Name: name, Key: key, Total: total, Density: density}
	b.content.ProgramSequences = append(b.content.ProgramSequences, s)
	return s
}

// Bind places a sequence at each of the given offsets within its program.
func (b *Builder) Bind(programID, sequenceID uuid.UUID, offsets ...int) []model.ProgramSequenceBinding {
	var out []model.ProgramSequenceBinding
	for _, o := range offsets {
		sb := model.ProgramSequenceBinding{ID: uuid.New(), ProgramID: programID, ProgramSequenceID: sequenceID, Offset: o}
		b.content.ProgramSequenceBindings = append(b.content.ProgramSequenceBindings, sb)
		out = append(out, sb)
	}
	return out
}

func (b *Builder) BindingMemes(bindingID uuid.UUID, memes ...string) {
	for _, m := range memes {
		b.content.ProgramSequenceBindingMemes = append(b.content.ProgramSequenceBindingMemes,
			model.ProgramSequenceBindingMeme{ID: uuid.New(), ProgramSequenceBindingID: bindingID, Name: m})
	}
}

// Chord adds a chord with one voicing per instrument type in voicings.
func (b *Builder) Chord(sequenceID uuid.UUID, name string, position float64, voicings map[model.InstrumentType]string) model.ProgramSequenceChord {
	c := model.ProgramSequenceChord{ID: uuid.New(), ProgramSequenceID: sequenceID, Name: name, Position: position}
	b.content.ProgramSequenceChords = append(b.content.ProgramSequenceChords, c)
	for _, t := range model.ValidInstrumentTypes {
		notes, ok := voicings[t]
		if !ok {
			continue
		}
		b.content.ProgramSequenceChordVoicings = append(b.content.ProgramSequenceChordVoicings,
			model.ProgramSequenceChordVoicing{ID: uuid.New(), ProgramSequenceChordID: c.ID, Type: t, Notes: notes})
	}
	return c
}

func (b *Builder) Voice(programID uuid.UUID, t model.InstrumentType, name string) model.ProgramVoice {
	v := model.ProgramVoice{ID: uuid.New(), ProgramID: programID, Type: t, Name: name}
	b.content.ProgramVoices = append(b.content.ProgramVoices, v)
	return v
}

func (b *Builder) Pattern(sequenceID, voiceID uuid.UUID, name string, total int, events ...Event) model.ProgramSequencePattern {
	p := model.ProgramSequencePattern{ID: uuid.New(), ProgramSequenceID: sequenceID, ProgramVoiceID: voiceID, Name: name, Total: total}
	b.content.ProgramSequencePatterns = append(b.content.ProgramSequencePatterns, p)
	for _, e := range events {
		b.content.ProgramSequencePatternEvents = append(b.content.ProgramSequencePatternEvents, model.ProgramSequencePatternEvent{
			ID:                       uuid.New(),
			ProgramSequencePatternID: p.ID,
			Name:                     e.Name,
			Position:                 e.Position,
			Duration:                 e.Duration,
			Velocity:                 e.Velocity,
			Tones:                    e.Tones,
		})
	}
	return p
}

// Instrument adds an instrument with one audio per event name.
func (b *Builder) Instrument(t model.InstrumentType, name string, memes []string, events ...string) model.Instrument {
	i := model.Instrument{ID: uuid.New(), LibraryID: b.library.ID, Type: t, Name: name, Density: 0.5}
	b.content.Instruments = append(b.content.Instruments, i)
	for _, m := range memes {
		b.content.InstrumentMemes = append(b.content.InstrumentMemes, model.InstrumentMeme{ID: uuid.New(), InstrumentID: i.ID, Name: m})
	}
	for _, e := range events {
		b.content.InstrumentAudios = append(b.content.InstrumentAudios, model.InstrumentAudio{
			ID:           uuid.New(),
			InstrumentID: i.ID,
			Event:        e,
			WaveformKey:  name + "/" + e + ".wav",
		})
	}
	return i
}

func (b *Builder) Build() *catalog.Content {
	c := b.content
	return &c
}

// LibraryBinding binds the builder's library to a chain.
func (b *Builder) LibraryBinding(chainID uuid.UUID) model.ChainBinding {
	return model.ChainBinding{ID: uuid.New(), ChainID: chainID, Type: model.ChainBindingTypeLibrary, TargetID: b.library.ID}
}

func ProgramBinding(chainID, programID uuid.UUID) model.ChainBinding {
	return model.ChainBinding{ID: uuid.New(), ChainID: chainID, Type: model.ChainBindingTypeProgram, TargetID: programID}
}

func InstrumentBinding(chainID, instrumentID uuid.UUID) model.ChainBinding {
	return model.ChainBinding{ID: uuid.New(), ChainID: chainID, Type: model.ChainBindingTypeInstrument, TargetID: instrumentID}
}
