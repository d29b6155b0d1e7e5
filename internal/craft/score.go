package craft

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/makeasinger/fabricator/internal/fabricator"
	"github.com/makeasinger/fabricator/internal/meme"
	"github.com/makeasinger/fabricator/internal/picker"
)

// rank scores candidates against the segment's meme stack:
//
//	overlap × MatchWeight + entropy + DirectBoundBonus (when directly bound)
//
// Candidates without memes that are not directly bound are left out. The
// avoided candidate is only ranked when nothing else qualifies.
func rank[T picker.Identifiable](f *fabricator.Fabricator, candidates []T, avoid uuid.UUID) *picker.Picker[T] {
	m := f.Material()
	tuning := f.Tuning()
	stack := meme.NewIsometry(f.MemeStack()...)

	p := picker.New[T]()
	var fallback []T
	for _, c := range candidates {
		id := c.EntityID()
		memes := m.MemesOf(id)
		direct := m.IsDirectlyBound(id)
		if len(memes) == 0 && !direct {
			continue
		}
		if avoid != uuid.Nil && id == avoid {
			fallback = append(fallback, c)
			continue
		}
		score := float64(stack.Score(memes))*tuning.MatchWeight + f.Entropy()
		if direct {
			score += tuning.DirectBoundBonus
		}
		p.Add(c, score)
	}
	if p.Size() == 0 {
		for _, c := range fallback {
			p.Add(c, 0)
		}
	}
	return p
}

func choose[T picker.Identifiable](f *fabricator.Fabricator, kind string, candidates []T, avoid uuid.UUID) (T, bool) {
	p := rank(f, candidates, avoid)
	if ce := f.Logger().Check(zap.DebugLevel, "ranked candidates"); ce != nil {
		ce.Write(zap.String("kind", kind), zap.Int("candidates", p.Size()), zap.String("report", p.Report()))
	}
	return p.Top()
}
