package meme

// Isometry holds a set of stems, in the order they were first added, and
// scores other meme sets against it.
type Isometry struct {
	stems []string
	index map[string]struct{}
}

func NewIsometry(names ...string) *Isometry {
	iso := &Isometry{index: make(map[string]struct{})}
	iso.Add(names...)
	return iso
}

// Add stems each name into the set. It returns the names whose stems were new.
func (iso *Isometry) Add(names ...string) []string {
	var added []string
	for _, name := range names {
		st := Stem(name)
		if st == "" {
			continue
		}
		if _, ok := iso.index[st]; ok {
			continue
		}
		iso.index[st] = struct{}{}
		iso.stems = append(iso.stems, st)
		added = append(added, name)
	}
	return added
}

func (iso *Isometry) Contains(name string) bool {
	_, ok := iso.index[Stem(name)]
	return ok
}

func (iso *Isometry) Stems() []string {
	out := make([]string, len(iso.stems))
	copy(out, iso.stems)
	return out
}

func (iso *Isometry) Size() int {
	return len(iso.stems)
}

// Score counts the distinct stems of candidate present in the set.
func (iso *Isometry) Score(candidate []string) int {
	n := 0
	for _, st := range Stems(candidate) {
		if _, ok := iso.index[st]; ok {
			n++
		}
	}
	return n
}
