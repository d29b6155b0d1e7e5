package craft

import (
	"math"

	"github.com/google/uuid"

	"github.com/makeasinger/fabricator/internal/model"
)

const microsPerMinute = 60_000_000

// arrangeVoice picks an instrument for a voice and arranges it. A voice with
// no instrument is left silent.
func (c *crafter) arrangeVoice(choice model.SegmentChoice, voice model.ProgramVoice) error {
	instrument, ok := choose(c.f, string(voice.Type), c.m.InstrumentsOfType(voice.Type), uuid.Nil)
	if !ok {
		c.f.Warn("no %s instrument available for voice %q", voice.Type, voice.Name)
		return nil
	}
	return c.arrange(choice, voice, instrument)
}

// arrange binds a voice to an instrument and lays out its picks. The pattern
// is chosen by segment offset and looped to fill the segment.
func (c *crafter) arrange(choice model.SegmentChoice, voice model.ProgramVoice, instrument model.Instrument) error {
	f := c.f
	seg := f.Segment()
	arr := model.SegmentChoiceArrangement{
		ID:              uuid.New(),
		SegmentID:       seg.ID,
		SegmentChoiceID: choice.ID,
		ProgramVoiceID:  voice.ID,
		InstrumentID:    instrument.ID,
	}
	if err := f.Put(arr); err != nil {
		return skipInvalid(err)
	}

	patterns := c.m.PatternsOf(choice.ProgramSequenceID, voice.ID)
	if len(patterns) == 0 {
		f.Warn("voice %q has no pattern in sequence %s", voice.Name, choice.ProgramSequenceID)
		return nil
	}
	pattern := patterns[seg.Offset%len(patterns)]

	loop := pattern.Total
	if loop <= 0 {
		if seq, ok := c.m.Sequence(choice.ProgramSequenceID); ok {
			loop = seq.Total
		}
	}
	if loop <= 0 {
		loop = seg.Total
	}
	total := float64(seg.Total)
	microsPerBeat := microsPerMinute / seg.Tempo
	events := c.m.EventsOf(pattern.ID)
	missing := make(map[string]bool)

	for start := 0.0; start < total; start += float64(loop) {
		for _, ev := range events {
			if ev.Position >= float64(loop) {
				continue
			}
			pos := start + ev.Position
			if pos >= total {
				break
			}
			audio, ok := c.m.AudioFor(instrument.ID, ev.Name)
			if !ok {
				if !missing[ev.Name] {
					missing[ev.Name] = true
					f.Warn("instrument %q has no audio for event %q", instrument.Name, ev.Name)
				}
				continue
			}
			tones := ev.Tones
			if tones == "" {
				tones = audio.Tones
			}
			err := f.Put(model.SegmentChoiceArrangementPick{
				ID:                            uuid.New(),
				SegmentID:                     seg.ID,
				SegmentChoiceArrangementID:    arr.ID,
				ProgramSequencePatternEventID: ev.ID,
				InstrumentAudioID:             audio.ID,
				Event:                         ev.Name,
				StartAtSegmentMicros:          int64(math.Round(pos * microsPerBeat)),
				LengthMicros:                  int64(math.Round(math.Min(ev.Duration, total-pos) * microsPerBeat)),
				Amplitude:                     ev.Velocity,
				Tones:                         tones,
			})
			if err := skipInvalid(err); err != nil {
				return err
			}
		}
	}
	return nil
}
