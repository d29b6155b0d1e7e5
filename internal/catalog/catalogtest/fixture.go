package catalogtest

import (
	"github.com/makeasinger/fabricator/internal/catalog"
	"github.com/makeasinger/fabricator/internal/model"
)

// Fixture is a small but complete library: two macros, two mains, a beat
// and a detail program, with instruments for both voices.
type Fixture struct {
	Builder *Builder
	Content *catalog.Content

	Macro, Macro2, Main, Main2, Beat, Detail model.Program

	MacroBindings, Macro2Bindings, MainBindings, Main2Bindings []model.ProgramSequenceBinding

	Drums, Pad model.Instrument
}

func Basic() *Fixture {
	b := NewBuilder()
	f := &Fixture{Builder: b}

	f.Macro = b.Program(model.ProgramTypeMacro, "Deep Space", "C", 120, "Dark", "Space")
	seq := b.Sequence(f.Macro.ID, "Drift", "C", 64, 0.4)
	f.MacroBindings = b.Bind(f.Macro.ID, seq.ID, 0, 1, 2)
	b.BindingMemes(f.MacroBindings[0].ID, "Cosmic")

	f.Macro2 = b.Program(model.ProgramTypeMacro, "Bright Dawn", "G", 120, "Light", "Space")
	seq = b.Sequence(f.Macro2.ID, "Rise", "G", 64, 0.6)
	f.Macro2Bindings = b.Bind(f.Macro2.ID, seq.ID, 0, 1, 2)

	f.Main = b.Program(model.ProgramTypeMain, "Nebula", "E", 120, "Dark", "Heavy")
	seq = b.Sequence(f.Main.ID, "Verse", "E", 16, 0.6)
	f.MainBindings = b.Bind(f.Main.ID, seq.ID, 0, 1)
	b.Chord(seq.ID, "E", 0, map[model.InstrumentType]string{model.InstrumentTypePad: "E3, G#3, B3"})
	b.Chord(seq.ID, "B", 8, map[model.InstrumentType]string{model.InstrumentTypePad: "B2, D#3, F#3"})

	f.Main2 = b.Program(model.ProgramTypeMain, "Orbit", "A", 110, "Space", "Gritty")
	seq = b.Sequence(f.Main2.ID, "Chorus", "A minor", 8, 0.8)
	f.Main2Bindings = b.Bind(f.Main2.ID, seq.ID, 0, 1, 2)
	b.Chord(seq.ID, "Am", 0, map[model.InstrumentType]string{model.InstrumentTypePad: "A2, C3, E3"})

	f.Beat = b.Program(model.ProgramTypeBeat, "Steady", "", 120, "Dark")
	kit := b.Voice(f.Beat.ID, model.InstrumentTypeDrum, "Kit")
	seq = b.Sequence(f.Beat.ID, "Loop", "", 4, 0.5)
	b.Pattern(seq.ID, kit.ID, "Basic", 4,
		Event{Name: "Kick", Position: 0, Duration: 0.5, Velocity: 0.9},
		Event{Name: "Snare", Position: 1, Duration: 0.5, Velocity: 0.8},
		Event{Name: "Kick", Position: 2, Duration: 0.5, Velocity: 0.9},
		Event{Name: "Snare", Position: 3, Duration: 0.5, Velocity: 0.8},
	)
	b.Pattern(seq.ID, kit.ID, "Sparse", 4,
		Event{Name: "Kick", Position: 0, Duration: 1, Velocity: 1},
		Event{Name: "SnareRim", Position: 2, Duration: 1, Velocity: 0.6},
	)

	f.Detail = b.Program(model.ProgramTypeDetail, "Shimmer", "", 120, "Space")
	wash := b.Voice(f.Detail.ID, model.InstrumentTypePad, "Wash")
	seq = b.Sequence(f.Detail.ID, "Sustain", "", 8, 0.3)
	b.Pattern(seq.ID, wash.ID, "Long", 8,
		Event{Name: "Chord", Position: 0, Duration: 4, Velocity: 0.5, Tones: "E3, G#3, B3"},
		Event{Name: "Chord", Position: 4, Duration: 4, Velocity: 0.5, Tones: "B2, D#3, F#3"},
	)

	f.Drums = b.Instrument(model.InstrumentTypeDrum, "808", []string{"Dark"}, "Kick", "Snare")
	f.Pad = b.Instrument(model.InstrumentTypePad, "Glass", []string{"Space"}, "Chord")

	f.Content = b.Build()
	return f
}
