package model

import (
	"fmt"

	"github.com/google/uuid"
)

// Source material supplied by the content catalog. The engine only reads these.

type Library struct {
	ID   uuid.UUID `json:"id" validate:"required"`
	Name string    `json:"name"`
}

// Program is reusable musical material. Tempo is beats per minute.
type Program struct {
	ID        uuid.UUID   `json:"id" validate:"required"`
	LibraryID uuid.UUID   `json:"libraryId"`
	Type      ProgramType `json:"type" validate:"required"`
	Name      string      `json:"name"`
	Key       string      `json:"key"`
	Tempo     float64     `json:"tempo" validate:"min=0"`
	Density   float64     `json:"density" validate:"min=0,max=1"`
}

func (p Program) EntityID() uuid.UUID { return p.ID }

type ProgramMeme struct {
	ID        uuid.UUID `json:"id" validate:"required"`
	ProgramID uuid.UUID `json:"programId" validate:"required"`
	Name      string    `json:"name" validate:"required"`
}

type ProgramVoice struct {
	ID        uuid.UUID      `json:"id" validate:"required"`
	ProgramID uuid.UUID      `json:"programId" validate:"required"`
	Type      InstrumentType `json:"type" validate:"required"`
	Name      string         `json:"name"`
}

// ProgramSequence is a section of a program; Total is its length in beats
type ProgramSequence struct {
	ID        uuid.UUID `json:"id" validate:"required"`
	ProgramID uuid.UUID `json:"programId" validate:"required"`
	Name      string    `json:"name"`
	Key       string    `json:"key"`
	Density   float64   `json:"density" validate:"min=0,max=1"`
	Total     int       `json:"total" validate:"min=0"`
}

// ProgramSequenceBinding places a sequence at an offset within its program
type ProgramSequenceBinding struct {
	ID                uuid.UUID `json:"id" validate:"required"`
	ProgramID         uuid.UUID `json:"programId" validate:"required"`
	ProgramSequenceID uuid.UUID `json:"programSequenceId" validate:"required"`
	Offset            int       `json:"offset" validate:"min=0"`
}

type ProgramSequenceBindingMeme struct {
	ID                       uuid.UUID `json:"id" validate:"required"`
	ProgramSequenceBindingID uuid.UUID `json:"programSequenceBindingId" validate:"required"`
	Name                     string    `json:"name" validate:"required"`
}

type ProgramSequenceChord struct {
	ID                uuid.UUID `json:"id" validate:"required"`
	ProgramSequenceID uuid.UUID `json:"programSequenceId" validate:"required"`
	Name              string    `json:"name" validate:"required"`
	Position          float64   `json:"position" validate:"min=0"`
}

type ProgramSequenceChordVoicing struct {
	ID                     uuid.UUID      `json:"id" validate:"required"`
	ProgramSequenceChordID uuid.UUID      `json:"programSequenceChordId" validate:"required"`
	Type                   InstrumentType `json:"type" validate:"required"`
	Notes                  string         `json:"notes" validate:"required"`
}

// ProgramSequencePattern is the material one voice plays during a sequence; Total is in beats
type ProgramSequencePattern struct {
	ID                uuid.UUID `json:"id" validate:"required"`
	ProgramSequenceID uuid.UUID `json:"programSequenceId" validate:"required"`
	ProgramVoiceID    uuid.UUID `json:"programVoiceId" validate:"required"`
	Name              string    `json:"name"`
	Total             int       `json:"total" validate:"min=0"`
}

// ProgramSequencePatternEvent is positioned and sized in beats; Velocity is 0..1
type ProgramSequencePatternEvent struct {
	ID                       uuid.UUID `json:"id" validate:"required"`
	ProgramSequencePatternID uuid.UUID `json:"programSequencePatternId" validate:"required"`
	Name                     string    `json:"name" validate:"required"`
	Position                 float64   `json:"position" validate:"min=0"`
	Duration                 float64   `json:"duration" validate:"min=0"`
	Velocity                 float64   `json:"velocity" validate:"min=0,max=1"`
	Tones                    string    `json:"tones"`
}

type Instrument struct {
	ID        uuid.UUID      `json:"id" validate:"required"`
	LibraryID uuid.UUID      `json:"libraryId"`
	Type      InstrumentType `json:"type" validate:"required"`
	Name      string         `json:"name"`
	Density   float64        `json:"density" validate:"min=0,max=1"`
}

func (i Instrument) EntityID() uuid.UUID { return i.ID }

type InstrumentMeme struct {
	ID           uuid.UUID `json:"id" validate:"required"`
	InstrumentID uuid.UUID `json:"instrumentId" validate:"required"`
	Name         string    `json:"name" validate:"required"`
}

type InstrumentAudio struct {
	ID           uuid.UUID `json:"id" validate:"required"`
	InstrumentID uuid.UUID `json:"instrumentId" validate:"required"`
	Event        string    `json:"event" validate:"required"`
	Tones        string    `json:"tones"`
	WaveformKey  string    `json:"waveformKey"`
}

// UnmarshalText accepts the legacy Rhythm program type
func (t *ProgramType) UnmarshalText(text []byte) error {
	parsed, ok := ParseProgramType(string(text))
	if !ok {
		return fmt.Errorf("unknown program type %q", string(text))
	}
	*t = parsed
	return nil
}
