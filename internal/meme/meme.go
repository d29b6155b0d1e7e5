// Package meme compares free-text compatibility tags by their stems.
package meme

import (
	"slices"
	"strings"
	"unicode"
)

// StemLength is the number of letters kept in a stem.
const StemLength = 6

// Stem reduces a meme to its comparison form: lowercase letters only,
// truncated to StemLength runes. "Catlike" becomes "catlik".
func Stem(s string) string {
	var b strings.Builder
	n := 0
	for _, r := range strings.ToLower(s) {
		if !unicode.IsLetter(r) {
			continue
		}
		b.WriteRune(r)
		n++
		if n == StemLength {
			break
		}
	}
	return b.String()
}

// Stems returns the distinct non-empty stems of names in first-seen order.
func Stems(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		st := Stem(name)
		if st == "" {
			continue
		}
		if _, ok := seen[st]; ok {
			continue
		}
		seen[st] = struct{}{}
		out = append(out, st)
	}
	return out
}

// Score counts the distinct candidate stems present in the reference set.
func Score(reference, candidate []string) int {
	return NewIsometry(reference...).Score(candidate)
}

// SameName reports whether two track names belong together, meaning one
// stem is a prefix of the other ("Tom" and "TomHigh").
func SameName(a, b string) bool {
	sa, sb := Stem(a), Stem(b)
	if sa == "" || sb == "" {
		return false
	}
	return strings.HasPrefix(sa, sb) || strings.HasPrefix(sb, sa)
}

// Cluster groups near-duplicate names under the shortest shared stem.
type Cluster struct {
	Stem  string
	Names []string
}

// ClusterNames groups names whose stems extend a shorter stem already seen.
// Names with no letters are dropped. Clusters are ordered by stem length,
// then first appearance.
func ClusterNames(names []string) []Cluster {
	type item struct {
		name string
		stem string
	}
	items := make([]item, 0, len(names))
	for _, name := range names {
		if st := Stem(name); st != "" {
			items = append(items, item{name: name, stem: st})
		}
	}
	slices.SortStableFunc(items, func(a, b item) int { return len(a.stem) - len(b.stem) })

	var clusters []Cluster
	for _, it := range items {
		idx := slices.IndexFunc(clusters, func(c Cluster) bool { return strings.HasPrefix(it.stem, c.Stem) })
		if idx < 0 {
			clusters = append(clusters, Cluster{Stem: it.stem})
			idx = len(clusters) - 1
		}
		clusters[idx].Names = append(clusters[idx].Names, it.name)
	}
	return clusters
}
