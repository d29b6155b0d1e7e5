package picker

import (
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/google/uuid"
)

type candidate struct {
	id   uuid.UUID
	name string
}

func (c candidate) EntityID() uuid.UUID { return c.id }

func newCandidates(names ...string) []candidate {
	out := make([]candidate, len(names))
	for i, n := range names {
		out[i] = candidate{id: uuid.New(), name: n}
	}
	return out
}

func names(cs []candidate) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = c.name
	}
	return strings.Join(parts, ",")
}

func TestTopOnEmptyPicker(t *testing.T) {
	p := New[candidate]()
	if _, ok := p.Top(); ok {
		t.Error("expected nothing from an empty picker")
	}
	if got := p.AllScored(); len(got) != 0 {
		t.Errorf("expected no scored candidates, got %d", len(got))
	}
}

func TestAddAccumulates(t *testing.T) {
	cs := newCandidates("a", "b")
	p := New[candidate]()
	p.Add(cs[0], 1)
	p.Add(cs[1], 2)
	p.Add(cs[0], 3)

	if p.Size() != 2 {
		t.Fatalf("expected 2 candidates, got %d", p.Size())
	}
	if score, _ := p.Score(cs[0].id); score != 4 {
		t.Errorf("expected accumulated score 4, got %v", score)
	}
	top, ok := p.Top()
	if !ok || top.name != "a" {
		t.Errorf("expected a on top, got %+v", top)
	}
}

func TestScoredIsDescendingAndStable(t *testing.T) {
	cs := newCandidates("a", "b", "c", "d", "e")
	p := New[candidate]()
	p.Add(cs[0], 1)
	p.Add(cs[1], 5)
	p.Add(cs[2], 1)
	p.Add(cs[3], 5)
	p.Add(cs[4], 3)

	if got := names(p.AllScored()); got != "b,d,e,a,c" {
		t.Errorf("expected b,d,e,a,c got %s", got)
	}
	if got := names(p.Scored(2)); got != "b,d" {
		t.Errorf("expected b,d got %s", got)
	}
	if got := p.Scored(0); len(got) != 0 {
		t.Errorf("expected no candidates for n=0, got %d", len(got))
	}
	if got := p.Scored(99); len(got) != 5 {
		t.Errorf("expected all 5 candidates, got %d", len(got))
	}
}

func TestTopTieKeepsFirstAdded(t *testing.T) {
	cs := newCandidates("first", "second", "third")
	p := New[candidate]()
	for _, c := range cs {
		p.Add(c, 7)
	}
	top, _ := p.Top()
	if top.name != "first" {
		t.Errorf("expected first, got %s", top.name)
	}
}

func TestReport(t *testing.T) {
	cs := newCandidates("a", "b")
	p := New[candidate]()
	p.Add(cs[0], 1)
	p.Add(cs[1], 2.5)

	lines := strings.Split(strings.TrimSpace(p.Report()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", p.Report())
	}
	if lines[0] != cs[1].id.String()+":2.500" {
		t.Errorf("unexpected first line %q", lines[0])
	}
	if lines[1] != cs[0].id.String()+":1.000" {
		t.Errorf("unexpected second line %q", lines[1])
	}
}

func TestEntropyWithinLimit(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for _, limit := range []float64{0.5, 1, 10} {
		var sum float64
		for i := 0; i < 10000; i++ {
			v := Entropy(rng, limit)
			if v < -limit || v > limit {
				t.Fatalf("draw %v outside [-%v, %v]", v, limit, limit)
			}
			sum += v
		}
		if mean := sum / 10000; math.Abs(mean) > limit/10 {
			t.Errorf("limit %v: mean %v not centered on zero", limit, mean)
		}
	}
}

func TestEntropyNonPositiveLimit(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	if v := Entropy(rng, 0); v != 0 {
		t.Errorf("expected 0 for zero limit, got %v", v)
	}
	if v := Entropy(rng, -3); v != 0 {
		t.Errorf("expected 0 for negative limit, got %v", v)
	}
}
