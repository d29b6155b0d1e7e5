// Package craft decides the musical content of a segment: which programs
// play, on which instruments, and the resulting picks.
package craft

import (
	"go.uber.org/zap"

	"github.com/makeasinger/fabricator/internal/fabricator"
	"github.com/makeasinger/fabricator/internal/model"
)

// Phases in craft order.
const (
	PhaseMacroMain = "macro-main"
	PhaseBeat      = "beat"
	PhaseDetail    = "detail"
)

type crafter struct {
	f *fabricator.Fabricator
	m fabricator.SourceMaterial
}

// Run crafts the fabricator's segment. Everything decided is committed to
// the store through the fabricator; a returned error means the segment's
// partition is incomplete and must be reverted.
func Run(f *fabricator.Fabricator) error {
	c := &crafter{f: f, m: f.Material()}
	phases := []struct {
		name string
		run  func() error
	}{
		{PhaseMacroMain, c.craftMacroMain},
		{PhaseBeat, c.craftBeat},
		{PhaseDetail, c.craftDetail},
	}
	for _, p := range phases {
		if err := p.run(); err != nil {
			return model.WithPhase(err, f.Segment().ID, p.name)
		}
	}

	seg := f.Segment()
	f.Logger().Info("crafted segment",
		zap.String("type", string(seg.Type)),
		zap.String("key", seg.Key),
		zap.Float64("tempo", seg.Tempo),
		zap.Int("total", seg.Total),
		zap.Int("choices", len(f.Choices())),
		zap.Int("picks", len(f.Picks())),
	)
	return nil
}

// skipInvalid drops a step that failed validation; the fabricator has
// already recorded the message. Other errors abort the craft.
func skipInvalid(err error) error {
	if err == nil || model.IsValidationError(err) {
		return nil
	}
	return err
}

// mainUnchanged reports whether this segment plays the same Main program as
// the previous one.
func (c *crafter) mainUnchanged() bool {
	cur, ok := c.f.CurrentChoice(model.ProgramTypeMain)
	if !ok {
		return false
	}
	prev, ok := c.f.PreviousChoice(model.ProgramTypeMain)
	return ok && prev.ProgramID == cur.ProgramID
}
