package model

import "slices"

// Scope says where the store keeps an entity type.
type Scope int

const (
	ScopeChain Scope = iota + 1
	ScopeSegment
)

// Relations describes one entity type in the relationship schema.
type Relations struct {
	Scope      Scope
	Parents    []EntityType
	Children   []EntityType
	Attributes []string
}

var schema = map[EntityType]Relations{
	EntityChain: {
		Scope:      ScopeChain,
		Attributes: []string{"id", "accountId", "name", "state", "type", "startAt", "stopAt", "embedKey"},
	},
	EntityChainBinding: {
		Scope:      ScopeChain,
		Parents:    []EntityType{EntityChain},
		Attributes: []string{"id", "chainId", "type", "targetId"},
	},
	EntitySegment: {
		Scope:   ScopeChain,
		Parents: []EntityType{EntityChain},
		Attributes: []string{"id", "chainId", "offset", "state", "type", "beginAt", "endAt",
			"key", "total", "density", "tempo", "storageKey"},
	},
	EntitySegmentChoice: {
		Scope:   ScopeSegment,
		Parents: []EntityType{EntitySegment},
		Attributes: []string{"id", "segmentId", "programId", "programType", "instrumentType",
			"programSequenceId", "programSequenceBindingId", "transpose"},
	},
	EntitySegmentChoiceArrangement: {
		Scope:      ScopeSegment,
		Parents:    []EntityType{EntitySegment, EntitySegmentChoice},
		Attributes: []string{"id", "segmentId", "segmentChoiceId", "programVoiceId", "instrumentId"},
	},
	EntitySegmentChoiceArrangementPick: {
		Scope:   ScopeSegment,
		Parents: []EntityType{EntitySegment, EntitySegmentChoiceArrangement},
		Attributes: []string{"id", "segmentId", "segmentChoiceArrangementId", "programSequencePatternEventId",
			"instrumentAudioId", "event", "startAtSegmentMicros", "lengthMicros", "amplitude", "tones"},
	},
	EntitySegmentChord: {
		Scope:      ScopeSegment,
		Parents:    []EntityType{EntitySegment},
		Attributes: []string{"id", "segmentId", "name", "position"},
	},
	EntitySegmentChordVoicing: {
		Scope:      ScopeSegment,
		Parents:    []EntityType{EntitySegment, EntitySegmentChord},
		Attributes: []string{"id", "segmentId", "segmentChordId", "type", "notes"},
	},
	EntitySegmentMeme: {
		Scope:      ScopeSegment,
		Parents:    []EntityType{EntitySegment},
		Attributes: []string{"id", "segmentId", "name"},
	},
	EntitySegmentMessage: {
		Scope:      ScopeSegment,
		Parents:    []EntityType{EntitySegment},
		Attributes: []string{"id", "segmentId", "type", "body"},
	},
}

func init() {
	for child, rel := range schema {
		for _, parent := range rel.Parents {
			p := schema[parent]
			p.Children = append(p.Children, child)
			schema[parent] = p
		}
	}
	for t, rel := range schema {
		slices.Sort(rel.Children)
		schema[t] = rel
	}
}

// SchemaOf returns the registered relations of an entity type.
func SchemaOf(t EntityType) (Relations, bool) {
	rel, ok := schema[t]
	if !ok {
		return Relations{}, false
	}
	return Relations{
		Scope:      rel.Scope,
		Parents:    slices.Clone(rel.Parents),
		Children:   slices.Clone(rel.Children),
		Attributes: slices.Clone(rel.Attributes),
	}, true
}

func IsRegistered(t EntityType) bool {
	_, ok := schema[t]
	return ok
}

// BelongsTo reports whether child declares parent in the schema.
func BelongsTo(child, parent EntityType) bool {
	rel, ok := schema[child]
	return ok && slices.Contains(rel.Parents, parent)
}

// SegmentScopedTypes lists every type cascade-deleted with its segment.
func SegmentScopedTypes() []EntityType {
	var out []EntityType
	for t, rel := range schema {
		if rel.Scope == ScopeSegment {
			out = append(out, t)
		}
	}
	slices.Sort(out)
	return out
}
