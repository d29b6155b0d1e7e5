package model

import "github.com/google/uuid"

// SegmentChoice records the program chosen for one aspect of a segment
type SegmentChoice struct {
	ID                       uuid.UUID      `json:"id" validate:"required"`
	SegmentID                uuid.UUID      `json:"segmentId" validate:"required"`
	ProgramID                uuid.UUID      `json:"programId" validate:"required"`
	ProgramType              ProgramType    `json:"programType" validate:"required"`
	InstrumentType           InstrumentType `json:"instrumentType,omitempty"`
	ProgramSequenceID        uuid.UUID      `json:"programSequenceId"`
	ProgramSequenceBindingID uuid.UUID      `json:"programSequenceBindingId"`
	Transpose                int            `json:"transpose"`
}

func (c SegmentChoice) EntityID() uuid.UUID    { return c.ID }
func (c SegmentChoice) EntityType() EntityType { return EntitySegmentChoice }
func (c SegmentChoice) SegmentRef() uuid.UUID  { return c.SegmentID }

func (c SegmentChoice) ParentID(parent EntityType) (uuid.UUID, bool) {
	if parent == EntitySegment {
		return c.SegmentID, true
	}
	return uuid.Nil, false
}

// SegmentChoiceArrangement binds a choice's voice to an instrument
type SegmentChoiceArrangement struct {
	ID              uuid.UUID `json:"id" validate:"required"`
	SegmentID       uuid.UUID `json:"segmentId" validate:"required"`
	SegmentChoiceID uuid.UUID `json:"segmentChoiceId" validate:"required"`
	ProgramVoiceID  uuid.UUID `json:"programVoiceId" validate:"required"`
	InstrumentID    uuid.UUID `json:"instrumentId" validate:"required"`
}

func (a SegmentChoiceArrangement) EntityID() uuid.UUID    { return a.ID }
func (a SegmentChoiceArrangement) EntityType() EntityType { return EntitySegmentChoiceArrangement }
func (a SegmentChoiceArrangement) SegmentRef() uuid.UUID  { return a.SegmentID }

func (a SegmentChoiceArrangement) ParentID(parent EntityType) (uuid.UUID, bool) {
	switch parent {
	case EntitySegment:
		return a.SegmentID, true
	case EntitySegmentChoice:
		return a.SegmentChoiceID, true
	}
	return uuid.Nil, false
}

// SegmentChoiceArrangementPick is one triggered event, the unit handed to the mixer.
// Times are microseconds from the start of the segment.
type SegmentChoiceArrangementPick struct {
	ID                            uuid.UUID `json:"id" validate:"required"`
	SegmentID                     uuid.UUID `json:"segmentId" validate:"required"`
	SegmentChoiceArrangementID    uuid.UUID `json:"segmentChoiceArrangementId" validate:"required"`
	ProgramSequencePatternEventID uuid.UUID `json:"programSequencePatternEventId"`
	InstrumentAudioID             uuid.UUID `json:"instrumentAudioId" validate:"required"`
	Event                         string    `json:"event"`
	StartAtSegmentMicros          int64     `json:"startAtSegmentMicros" validate:"min=0"`
	LengthMicros                  int64     `json:"lengthMicros" validate:"min=0"`
	Amplitude                     float64   `json:"amplitude" validate:"min=0"`
	Tones                         string    `json:"tones,omitempty"`
}

func (p SegmentChoiceArrangementPick) EntityID() uuid.UUID { return p.ID }
func (p SegmentChoiceArrangementPick) EntityType() EntityType {
	return EntitySegmentChoiceArrangementPick
}
func (p SegmentChoiceArrangementPick) SegmentRef() uuid.UUID { return p.SegmentID }

func (p SegmentChoiceArrangementPick) ParentID(parent EntityType) (uuid.UUID, bool) {
	switch parent {
	case EntitySegment:
		return p.SegmentID, true
	case EntitySegmentChoiceArrangement:
		return p.SegmentChoiceArrangementID, true
	}
	return uuid.Nil, false
}

// SegmentChord is a harmonic event positioned in beats from segment start
type SegmentChord struct {
	ID        uuid.UUID `json:"id" validate:"required"`
	SegmentID uuid.UUID `json:"segmentId" validate:"required"`
	Name      string    `json:"name" validate:"required"`
	Position  float64   `json:"position" validate:"min=0"`
}

func (c SegmentChord) EntityID() uuid.UUID    { return c.ID }
func (c SegmentChord) EntityType() EntityType { return EntitySegmentChord }
func (c SegmentChord) SegmentRef() uuid.UUID  { return c.SegmentID }

func (c SegmentChord) ParentID(parent EntityType) (uuid.UUID, bool) {
	if parent == EntitySegment {
		return c.SegmentID, true
	}
	return uuid.Nil, false
}

// SegmentChordVoicing spells a chord for one instrument type
type SegmentChordVoicing struct {
	ID             uuid.UUID      `json:"id" validate:"required"`
	SegmentID      uuid.UUID      `json:"segmentId" validate:"required"`
	SegmentChordID uuid.UUID      `json:"segmentChordId" validate:"required"`
	Type           InstrumentType `json:"type" validate:"required"`
	Notes          string         `json:"notes" validate:"required"`
}

func (v SegmentChordVoicing) EntityID() uuid.UUID    { return v.ID }
func (v SegmentChordVoicing) EntityType() EntityType { return EntitySegmentChordVoicing }
func (v SegmentChordVoicing) SegmentRef() uuid.UUID  { return v.SegmentID }

func (v SegmentChordVoicing) ParentID(parent EntityType) (uuid.UUID, bool) {
	switch parent {
	case EntitySegment:
		return v.SegmentID, true
	case EntitySegmentChord:
		return v.SegmentChordID, true
	}
	return uuid.Nil, false
}

// SegmentMeme is a tag aggregated onto a segment from its choices
type SegmentMeme struct {
	ID        uuid.UUID `json:"id" validate:"required"`
	SegmentID uuid.UUID `json:"segmentId" validate:"required"`
	Name      string    `json:"name" validate:"required"`
}

func (m SegmentMeme) EntityID() uuid.UUID    { return m.ID }
func (m SegmentMeme) EntityType() EntityType { return EntitySegmentMeme }
func (m SegmentMeme) SegmentRef() uuid.UUID  { return m.SegmentID }

func (m SegmentMeme) ParentID(parent EntityType) (uuid.UUID, bool) {
	if parent == EntitySegment {
		return m.SegmentID, true
	}
	return uuid.Nil, false
}

// SegmentMessage is an append-only observability record
type SegmentMessage struct {
	ID        uuid.UUID          `json:"id" validate:"required"`
	SegmentID uuid.UUID          `json:"segmentId" validate:"required"`
	Type      SegmentMessageType `json:"type" validate:"required"`
	Body      string             `json:"body" validate:"required"`
}

func (m SegmentMessage) EntityID() uuid.UUID    { return m.ID }
func (m SegmentMessage) EntityType() EntityType { return EntitySegmentMessage }
func (m SegmentMessage) SegmentRef() uuid.UUID  { return m.SegmentID }

func (m SegmentMessage) ParentID(parent EntityType) (uuid.UUID, bool) {
	if parent == EntitySegment {
		return m.SegmentID, true
	}
	return uuid.Nil, false
}
