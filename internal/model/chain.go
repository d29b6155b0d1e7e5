package model

import (
	"time"

	"github.com/google/uuid"
)

// Chain is a long-running fabrication job producing an ordered stream of segments
type Chain struct {
	ID        uuid.UUID  `json:"id" validate:"required"`
	AccountID uuid.UUID  `json:"accountId"`
	Name      string     `json:"name" validate:"required"`
	State     ChainState `json:"state" validate:"required"`
	Type      ChainType  `json:"type" validate:"required"`
	StartAt   time.Time  `json:"startAt"`
	StopAt    time.Time  `json:"stopAt,omitempty"`
	EmbedKey  string     `json:"embedKey,omitempty"`
}

func (c Chain) EntityID() uuid.UUID    { return c.ID }
func (c Chain) EntityType() EntityType { return EntityChain }

// ChainBinding attaches a library, program or instrument to a chain
type ChainBinding struct {
	ID       uuid.UUID        `json:"id" validate:"required"`
	ChainID  uuid.UUID        `json:"chainId" validate:"required"`
	Type     ChainBindingType `json:"type" validate:"required"`
	TargetID uuid.UUID        `json:"targetId" validate:"required"`
}

func (b ChainBinding) EntityID() uuid.UUID    { return b.ID }
func (b ChainBinding) EntityType() EntityType { return EntityChainBinding }

func (b ChainBinding) ParentID(parent EntityType) (uuid.UUID, bool) {
	if parent == EntityChain {
		return b.ChainID, true
	}
	return uuid.Nil, false
}

// Segment is one fabricated unit of music within a chain.
// Total is measured in beats, Tempo in beats per minute.
type Segment struct {
	ID         uuid.UUID    `json:"id" validate:"required"`
	ChainID    uuid.UUID    `json:"chainId" validate:"required"`
	Offset     int          `json:"offset" validate:"min=0"`
	State      SegmentState `json:"state" validate:"required"`
	Type       SegmentType  `json:"type"`
	BeginAt    time.Time    `json:"beginAt"`
	EndAt      time.Time    `json:"endAt,omitempty"`
	Key        string       `json:"key,omitempty"`
	Total      int          `json:"total"`
	Density    float64      `json:"density"`
	Tempo      float64      `json:"tempo"`
	StorageKey string       `json:"storageKey,omitempty"`
}

func (s Segment) EntityID() uuid.UUID    { return s.ID }
func (s Segment) EntityType() EntityType { return EntitySegment }

func (s Segment) ParentID(parent EntityType) (uuid.UUID, bool) {
	if parent == EntityChain {
		return s.ChainID, true
	}
	return uuid.Nil, false
}

// Duration is the wall-clock length of Total beats at Tempo
func (s Segment) Duration() time.Duration {
	if s.Tempo <= 0 || s.Total <= 0 {
		return 0
	}
	return time.Duration(float64(s.Total) * 60 / s.Tempo * float64(time.Second))
}

// AtLeastCrafted reports whether the segment's decision graph is complete.
func (s Segment) AtLeastCrafted() bool {
	switch s.State {
	case SegmentStateCrafted, SegmentStateDubbing, SegmentStateDubbed:
		return true
	}
	return false
}
