package fabricator

import (
	"github.com/google/uuid"

	"github.com/makeasinger/fabricator/internal/model"
)

// SourceMaterial is the read-only catalog view of one chain. Every list is
// returned in catalog order.
type SourceMaterial interface {
	ProgramsOfType(t model.ProgramType) []model.Program
	InstrumentsOfType(t model.InstrumentType) []model.Instrument
	MemesOf(id uuid.UUID) []string
	IsDirectlyBound(id uuid.UUID) bool
	VoicesOf(programID uuid.UUID) []model.ProgramVoice

	Program(id uuid.UUID) (model.Program, bool)
	Instrument(id uuid.UUID) (model.Instrument, bool)
	Sequence(id uuid.UUID) (model.ProgramSequence, bool)
	SequencesOf(programID uuid.UUID) []model.ProgramSequence
	SequenceBindings(programID uuid.UUID) []model.ProgramSequenceBinding
	SequenceBinding(id uuid.UUID) (model.ProgramSequenceBinding, bool)
	PatternsOf(sequenceID, voiceID uuid.UUID) []model.ProgramSequencePattern
	EventsOf(patternID uuid.UUID) []model.ProgramSequencePatternEvent
	ChordsOf(sequenceID uuid.UUID) []model.ProgramSequenceChord
	VoicingsOf(chordID uuid.UUID) []model.ProgramSequenceChordVoicing
	AudioFor(instrumentID uuid.UUID, event string) (model.InstrumentAudio, bool)
}

// Tuning holds the scoring constants of a craft. It is copied into every
// Fabricator and never changed afterwards.
type Tuning struct {
	MatchWeight      float64
	EntropyLimit     float64
	DirectBoundBonus float64
	// DetailTypes are the instrument types that get a Detail choice, in craft order.
	DetailTypes []model.InstrumentType
}

func DefaultTuning() Tuning {
	return Tuning{
		MatchWeight:      10,
		EntropyLimit:     4,
		DirectBoundBonus: 100,
		DetailTypes: []model.InstrumentType{
			model.InstrumentTypeBass,
			model.InstrumentTypePad,
			model.InstrumentTypeSticky,
			model.InstrumentTypeStripe,
			model.InstrumentTypeStab,
		},
	}
}
