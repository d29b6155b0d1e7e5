package store

import (
	"github.com/google/uuid"

	"github.com/makeasinger/fabricator/internal/model"
)

// Graph is the full decision graph of one segment, as consumed downstream.
type Graph struct {
	Segment       model.Segment                        `json:"segment"`
	Choices       []model.SegmentChoice                `json:"choices"`
	Arrangements  []model.SegmentChoiceArrangement     `json:"arrangements"`
	Picks         []model.SegmentChoiceArrangementPick `json:"picks"`
	Chords        []model.SegmentChord                 `json:"chords"`
	ChordVoicings []model.SegmentChordVoicing          `json:"chordVoicings"`
	Memes         []model.SegmentMeme                  `json:"memes"`
	Messages      []model.SegmentMessage               `json:"messages"`
}

// Graph copies a segment and its partition.
func (s *Store) Graph(segmentID uuid.UUID) (Graph, bool) {
	seg, ok := s.Segment(segmentID)
	if !ok {
		return Graph{}, false
	}
	return Graph{
		Segment:       seg,
		Choices:       GetAll[model.SegmentChoice](s, segmentID),
		Arrangements:  GetAll[model.SegmentChoiceArrangement](s, segmentID),
		Picks:         GetAll[model.SegmentChoiceArrangementPick](s, segmentID),
		Chords:        GetAll[model.SegmentChord](s, segmentID),
		ChordVoicings: GetAll[model.SegmentChordVoicing](s, segmentID),
		Memes:         GetAll[model.SegmentMeme](s, segmentID),
		Messages:      GetAll[model.SegmentMessage](s, segmentID),
	}, true
}
