// Package picker ranks candidates by accumulated score.
package picker

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// Identifiable is anything a Picker can rank.
type Identifiable interface {
	EntityID() uuid.UUID
}

type entry[T Identifiable] struct {
	candidate T
	score     float64
}

// Picker accumulates scores per candidate and ranks them. Candidates with
// equal scores keep the order in which they were first added.
//
// A Picker is not safe for concurrent use.
type Picker[T Identifiable] struct {
	entries []*entry[T]
	byID    map[uuid.UUID]*entry[T]
}

func New[T Identifiable]() *Picker[T] {
	return &Picker[T]{byID: make(map[uuid.UUID]*entry[T])}
}

// Add adds score to the candidate's total, registering it on first use.
func (p *Picker[T]) Add(candidate T, score float64) {
	id := candidate.EntityID()
	if e, ok := p.byID[id]; ok {
		e.score += score
		return
	}
	e := &entry[T]{candidate: candidate, score: score}
	p.entries = append(p.entries, e)
	p.byID[id] = e
}

// Score returns the accumulated score of a candidate.
func (p *Picker[T]) Score(id uuid.UUID) (float64, bool) {
	e, ok := p.byID[id]
	if !ok {
		return 0, false
	}
	return e.score, true
}

func (p *Picker[T]) Size() int {
	return len(p.entries)
}

// Top returns the highest scored candidate.
func (p *Picker[T]) Top() (T, bool) {
	var best *entry[T]
	for _, e := range p.entries {
		if best == nil || e.score > best.score {
			best = e
		}
	}
	if best == nil {
		var zero T
		return zero, false
	}
	return best.candidate, true
}

func (p *Picker[T]) ranked() []*entry[T] {
	out := slices.Clone(p.entries)
	slices.SortStableFunc(out, func(a, b *entry[T]) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		}
		return 0
	})
	return out
}

// Scored returns up to n candidates by descending score.
func (p *Picker[T]) Scored(n int) []T {
	ranked := p.ranked()
	if n < len(ranked) {
		ranked = ranked[:max(n, 0)]
	}
	out := make([]T, 0, len(ranked))
	for _, e := range ranked {
		out = append(out, e.candidate)
	}
	return out
}

// AllScored returns every candidate by descending score.
func (p *Picker[T]) AllScored() []T {
	return p.Scored(len(p.entries))
}

// Report renders one id:score line per candidate, best first.
func (p *Picker[T]) Report() string {
	var b strings.Builder
	for _, e := range p.ranked() {
		fmt.Fprintf(&b, "%s:%.3f\n", e.candidate.EntityID(), e.score)
	}
	return b.String()
}
