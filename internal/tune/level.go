package tune

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// EnvLevel is the environment variable holding the autotune level.
const EnvLevel = "CUBECL_AUTOTUNE_LEVEL"

// Level controls how coarsely autotune keys are bucketed.
//
//	0 => minimal autotune: anchor base scaled by 1.25
//	1 => medium autotune: normal anchor
//	2 => more autotune: anchor base scaled by 0.75
//	3 => autotune everything, no anchor
type Level int

const (
	LevelMinimal Level = iota
	LevelMedium
	LevelMore
	LevelFull
)

// DefaultLevel is used when no level is configured.
const DefaultLevel = LevelMedium

// Validate reports whether l is a known level.
func (l Level) Validate() error {
	if l < LevelMinimal || l > LevelFull {
		return fmt.Errorf("tune: invalid autotune level %d, expected 0-3", int(l))
	}
	return nil
}

// ParseLevel parses a level such as "2".
func ParseLevel(s string) (Level, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("tune: autotune level %q should be an integer: %w", s, err)
	}
	l := Level(n)
	if err := l.Validate(); err != nil {
		return 0, err
	}
	return l, nil
}

// LevelFromEnv reads EnvLevel, falling back to DefaultLevel when unset.
func LevelFromEnv() (Level, error) {
	value, ok := os.LookupEnv(EnvLevel)
	if !ok {
		return DefaultLevel, nil
	}
	return ParseLevel(value)
}

var loadGlobal = sync.OnceValues(LevelFromEnv)

// Global returns the process-wide autotune level.
//
// The level is read from the environment once, on first use, and cached for
// the lifetime of the process with no way to reset it. Code that has a
// Config at hand should use it instead. An unparsable value panics on every
// call, since no caller can meaningfully continue with a misconfigured process.
func Global() Level {
	return mustLevel(loadGlobal)
}

func mustLevel(load func() (Level, error)) Level {
	l, err := load()
	if err != nil {
		panic(err)
	}
	return l
}

// Config carries the autotune settings to the code that picks kernel variants.
type Config struct {
	Level Level
}

// NewConfig validates level and returns a Config.
func NewConfig(level Level) (Config, error) {
	if err := level.Validate(); err != nil {
		return Config{}, err
	}
	return Config{Level: level}, nil
}
