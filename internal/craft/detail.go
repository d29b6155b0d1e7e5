package craft

import (
	"github.com/google/uuid"

	"github.com/makeasinger/fabricator/internal/model"
)

// craftDetail chooses one Detail program per configured instrument type,
// held like the beat for as long as the Main program does not change.
func (c *crafter) craftDetail() error {
	f := c.f
	for _, it := range f.Tuning().DetailTypes {
		if prev, ok := f.PreviousDetailChoice(it); ok && c.mainUnchanged() {
			if err := c.reuseChoice(prev); err != nil {
				return err
			}
			continue
		}

		var candidates []model.Program
		for _, p := range c.m.ProgramsOfType(model.ProgramTypeDetail) {
			if len(voicesOfType(c.m.VoicesOf(p.ID), it)) > 0 {
				candidates = append(candidates, p)
			}
		}
		program, ok := choose(f, string(model.ProgramTypeDetail)+"/"+string(it), candidates, uuid.Nil)
		if !ok {
			f.Warn("no detail program available for %s", it)
			continue
		}
		choice, ok, err := c.commitOptionalChoice(program, model.ProgramTypeDetail, it)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		for _, voice := range voicesOfType(c.m.VoicesOf(program.ID), it) {
			if err := c.arrangeVoice(choice, voice); err != nil {
				return err
			}
		}
	}
	return nil
}

func voicesOfType(voices []model.ProgramVoice, it model.InstrumentType) []model.ProgramVoice {
	var out []model.ProgramVoice
	for _, v := range voices {
		if v.Type == it {
			out = append(out, v)
		}
	}
	return out
}
