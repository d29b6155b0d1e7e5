// Package catalog holds the read-only source material that segments are
// crafted from: libraries, programs and instruments with their memes.
package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/makeasinger/fabricator/internal/model"
)

// Content is a snapshot of the catalog. Slices keep catalog order, which
// decides ties between equally scored candidates.
type Content struct {
	Libraries                    []model.Library                     `json:"libraries" validate:"dive"`
	Programs                     []model.Program                     `json:"programs" validate:"dive"`
	ProgramMemes                 []model.ProgramMeme                 `json:"programMemes" validate:"dive"`
	ProgramVoices                []model.ProgramVoice                `json:"programVoices" validate:"dive"`
	ProgramSequences             []model.ProgramSequence             `json:"programSequences" validate:"dive"`
	ProgramSequenceBindings      []model.ProgramSequenceBinding      `json:"programSequenceBindings" validate:"dive"`
	ProgramSequenceBindingMemes  []model.ProgramSequenceBindingMeme  `json:"programSequenceBindingMemes" validate:"dive"`
	ProgramSequenceChords        []model.ProgramSequenceChord        `json:"programSequenceChords" validate:"dive"`
	ProgramSequenceChordVoicings []model.ProgramSequenceChordVoicing `json:"programSequenceChordVoicings" validate:"dive"`
	ProgramSequencePatterns      []model.ProgramSequencePattern      `json:"programSequencePatterns" validate:"dive"`
	ProgramSequencePatternEvents []model.ProgramSequencePatternEvent `json:"programSequencePatternEvents" validate:"dive"`
	Instruments                  []model.Instrument                  `json:"instruments" validate:"dive"`
	InstrumentMemes              []model.InstrumentMeme              `json:"instrumentMemes" validate:"dive"`
	InstrumentAudios             []model.InstrumentAudio             `json:"instrumentAudios" validate:"dive"`

	idx *contentIndex
}

// Parse decodes and validates a JSON catalog snapshot.
func Parse(data []byte, validate *validator.Validate) (*Content, error) {
	var c Content
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	if validate == nil {
		validate = validator.New()
	}
	if err := validate.Struct(c); err != nil {
		return nil, model.NewValidationError(err, "invalid catalog")
	}
	c.Reindex()
	return &c, nil
}

// Counts summarizes a snapshot for logging.
func (c *Content) Counts() map[string]int {
	return map[string]int{
		"libraries":   len(c.Libraries),
		"programs":    len(c.Programs),
		"sequences":   len(c.ProgramSequences),
		"patterns":    len(c.ProgramSequencePatterns),
		"instruments": len(c.Instruments),
		"audios":      len(c.InstrumentAudios),
	}
}
