package model

import (
	"time"

	"github.com/google/uuid"
)

// CreateChainRequest represents the request to create a chain
type CreateChainRequest struct {
	AccountID string    `json:"accountId" validate:"omitempty,uuid"`
	Name      string    `json:"name" validate:"required,max=255"`
	Type      ChainType `json:"type" validate:"required,oneof=Production Preview"`
	StartAt   time.Time `json:"startAt"`
	StopAt    time.Time `json:"stopAt"`
	EmbedKey  string    `json:"embedKey" validate:"omitempty,alphanum,max=64"`
}

// AddBindingRequest represents the request to bind content to a chain
type AddBindingRequest struct {
	Type     ChainBindingType `json:"type" validate:"required,oneof=Library Program Instrument"`
	TargetID string           `json:"targetId" validate:"required,uuid"`
}

// TransitionChainRequest represents a requested chain state change
type TransitionChainRequest struct {
	State ChainState `json:"state" validate:"required,oneof=Draft Ready Fabricate Complete Failed Erase"`
}

// ChainResponse describes a chain with its bindings
type ChainResponse struct {
	Chain    Chain          `json:"chain"`
	Bindings []ChainBinding `json:"bindings"`
}

// SegmentSummary is the list view of a segment
type SegmentSummary struct {
	ID      uuid.UUID    `json:"id"`
	Offset  int          `json:"offset"`
	State   SegmentState `json:"state"`
	Type    SegmentType  `json:"type"`
	BeginAt time.Time    `json:"beginAt"`
	EndAt   time.Time    `json:"endAt,omitempty"`
	Key     string       `json:"key,omitempty"`
	Tempo   float64      `json:"tempo"`
}

// Summary returns the list view of the segment
func (s Segment) Summary() SegmentSummary {
	return SegmentSummary{
		ID:      s.ID,
		Offset:  s.Offset,
		State:   s.State,
		Type:    s.Type,
		BeginAt: s.BeginAt,
		EndAt:   s.EndAt,
		Key:     s.Key,
		Tempo:   s.Tempo,
	}
}

// SegmentEvent is broadcast to chain subscribers as fabrication progresses
type SegmentEvent struct {
	Type      string       `json:"type"`
	ChainID   uuid.UUID    `json:"chainId"`
	SegmentID uuid.UUID    `json:"segmentId"`
	Offset    int          `json:"offset"`
	State     SegmentState `json:"state"`
	Message   string       `json:"message,omitempty"`
}

// Segment event types
const (
	SegmentEventCrafted  = "crafted"
	SegmentEventDubbed   = "dubbed"
	SegmentEventReverted = "reverted"
)
