package tune

import "math"

// minAnchorBase keeps the logarithm well defined for aggressive levels.
const minAnchorBase = 1.1

// AnchorOptions bounds an anchored value. Zero fields are unset.
type AnchorOptions struct {
	Max  int
	Min  int
	Base int // defaults to 2
}

// Anchor rounds x up to a power of the (level-scaled) base, so that nearby
// sizes share one autotune key.
func (l Level) Anchor(x int, opts AnchorOptions) int {
	var factor float64
	switch l {
	case LevelFull:
		return x
	case LevelMore:
		factor = 0.75
	case LevelMedium:
		factor = 1.0
	case LevelMinimal:
		factor = 1.25
	default:
		panic(l.Validate())
	}

	base := 2
	if opts.Base > 0 {
		base = opts.Base
	}
	result := 0
	if x > 0 {
		b := math.Max(float64(base)*factor, minAnchorBase)
		exp := math.Ceil(math.Log(float64(x)) / math.Log(b))
		result = int(math.Ceil(math.Pow(b, exp)))
	}

	if opts.Max > 0 && result > opts.Max {
		result = opts.Max
	}
	if opts.Min > 0 && result < opts.Min {
		result = opts.Min
	}
	return result
}

// Anchor anchors x with the configured level.
func (c Config) Anchor(x int, opts AnchorOptions) int {
	return c.Level.Anchor(x, opts)
}
