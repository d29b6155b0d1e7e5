package picker

import "math/rand"

// stddevsPerLimit places the clip bound 6.5 standard deviations out, so the
// clip practically never engages.
const stddevsPerLimit = 6.5

// Entropy draws a normally distributed value centered on zero and clipped to
// [-limit, limit]. A non-positive limit yields 0.
func Entropy(rng *rand.Rand, limit float64) float64 {
	if limit <= 0 || rng == nil {
		return 0
	}
	v := rng.NormFloat64() * limit / stddevsPerLimit
	switch {
	case v > limit:
		return limit
	case v < -limit:
		return -limit
	}
	return v
}
