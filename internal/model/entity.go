package model

import "github.com/google/uuid"

// EntityType names a concrete entity kind stored by the fabrication engine.
type EntityType string

const (
	EntityChain                        EntityType = "Chain"
	EntityChainBinding                 EntityType = "ChainBinding"
	EntitySegment                      EntityType = "Segment"
	EntitySegmentChoice                EntityType = "SegmentChoice"
	EntitySegmentChoiceArrangement     EntityType = "SegmentChoiceArrangement"
	EntitySegmentChoiceArrangementPick EntityType = "SegmentChoiceArrangementPick"
	EntitySegmentChord                 EntityType = "SegmentChord"
	EntitySegmentChordVoicing          EntityType = "SegmentChordVoicing"
	EntitySegmentMeme                  EntityType = "SegmentMeme"
	EntitySegmentMessage               EntityType = "SegmentMessage"
)

// Entity is anything with an identity the store can hold.
type Entity interface {
	EntityID() uuid.UUID
	EntityType() EntityType
}

// SegmentEntity is owned by exactly one segment and lives in that segment's partition.
type SegmentEntity interface {
	Entity
	SegmentRef() uuid.UUID
}

// Parented reports the id of the parent of the given type, if the entity belongs to one.
type Parented interface {
	ParentID(parent EntityType) (uuid.UUID, bool)
}
