package craft

import "strings"

var pitchClasses = map[string]int{
	"C": 0, "B#": 0, "C#": 1, "Db": 1, "D": 2, "D#": 3, "Eb": 3, "E": 4, "Fb": 4,
	"E#": 5, "F": 5, "F#": 6, "Gb": 6, "G": 7, "G#": 8, "Ab": 8, "A": 9, "A#": 10,
	"Bb": 10, "B": 11, "Cb": 11,
}

var rootNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// splitRoot parses the root of a key or chord name: "Eb minor" gives 3 and " minor".
func splitRoot(name string) (int, string, bool) {
	s := strings.TrimSpace(name)
	if s == "" {
		return 0, "", false
	}
	root, rest := strings.ToUpper(s[:1]), s[1:]
	if len(rest) > 0 && (rest[0] == '#' || rest[0] == 'b') {
		if _, ok := pitchClasses[root+rest[:1]]; ok {
			root, rest = root+rest[:1], rest[1:]
		}
	}
	pc, ok := pitchClasses[root]
	return pc, rest, ok
}

// Transpose returns the semitone shift, in [-6, 5], that moves the root of
// key from onto the root of key to. Unreadable keys give 0.
func Transpose(from, to string) int {
	a, _, okA := splitRoot(from)
	b, _, okB := splitRoot(to)
	if !okA || !okB {
		return 0
	}
	d := ((b-a)%12 + 12) % 12
	if d > 5 {
		d -= 12
	}
	return d
}

// TransposeName shifts the root of a key or chord name by semitones, keeping
// its suffix. Unreadable names are returned unchanged.
func TransposeName(name string, semitones int) string {
	pc, rest, ok := splitRoot(name)
	if !ok || semitones == 0 {
		return name
	}
	return rootNames[((pc+semitones)%12+12)%12] + rest
}
