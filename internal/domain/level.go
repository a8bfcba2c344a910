package domain

import (
	"fmt"
	"math"
	"strings"
)

// Level is a CEFR proficiency level on the eleven-step scale
// A1, A1+, A2, ... C1+, C2.
type Level string

const (
	LevelA1     Level = "A1"
	LevelA1Plus Level = "A1+"
	LevelA2     Level = "A2"
	LevelA2Plus Level = "A2+"
	LevelB1     Level = "B1"
	LevelB1Plus Level = "B1+"
	LevelB2     Level = "B2"
	LevelB2Plus Level = "B2+"
	LevelC1     Level = "C1"
	LevelC1Plus Level = "C1+"
	LevelC2     Level = "C2"
)

const (
	// MinRank is the rank of A1.
	MinRank = 1.0
	// MaxRank is the rank of C2.
	MaxRank = 6.0
)

// levels is ordered lowest to highest; index i has rank 1 + i/2.
var levels = [...]Level{
	LevelA1, LevelA1Plus,
	LevelA2, LevelA2Plus,
	LevelB1, LevelB1Plus,
	LevelB2, LevelB2Plus,
	LevelC1, LevelC1Plus,
	LevelC2,
}

// Levels returns all levels in ascending order.
func Levels() []Level {
	out := make([]Level, len(levels))
	copy(out, levels[:])
	return out
}

// ParseLevel validates a level tag. Surrounding whitespace is ignored and
// the letter is case-insensitive ("b1+" parses as B1+).
func ParseLevel(s string) (Level, error) {
	l := Level(strings.ToUpper(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidLevel, s)
	}
	return l, nil
}

// Valid reports whether l is one of the eleven levels.
func (l Level) Valid() bool {
	return l.index() >= 0
}

func (l Level) index() int {
	for i, v := range levels {
		if v == l {
			return i
		}
	}
	return -1
}

// String returns the level tag.
func (l Level) String() string {
	return string(l)
}

// ToRank returns the numeric rank of a level: A1=1.0 through C2=6.0 in
// half steps. Invalid levels return 0; callers validate with ParseLevel
// before reaching this point.
func ToRank(l Level) float64 {
	i := l.index()
	if i < 0 {
		return 0
	}
	return MinRank + float64(i)*0.5
}

// Rank is shorthand for ToRank(l).
func (l Level) Rank() float64 {
	return ToRank(l)
}

// FromRank maps any real number back onto the scale. The value is clamped
// to [1, 6] and rounded to the nearest half step, ties going up.
func FromRank(x float64) Level {
	if math.IsNaN(x) || x < MinRank {
		return LevelA1
	}
	if x > MaxRank {
		return LevelC2
	}
	return levels[int(RoundHalfStep(x)*2)-2]
}

// RoundHalfStep rounds x to the nearest multiple of 0.5. Ties round
// toward the higher value.
func RoundHalfStep(x float64) float64 {
	return math.Floor(x*2+0.5) / 2
}

// Next returns the level immediately above l, or false for C2.
func (l Level) Next() (Level, bool) {
	i := l.index()
	if i < 0 || i == len(levels)-1 {
		return "", false
	}
	return levels[i+1], true
}

// Compare returns -1, 0 or +1 depending on whether l is below, equal to
// or above other.
func (l Level) Compare(other Level) int {
	a, b := l.index(), other.index()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// IsPlus reports whether l is one of the "+" sub-levels.
func (l Level) IsPlus() bool {
	return strings.HasSuffix(string(l), "+")
}

// Band returns the six-band CEFR level for l, dropping any "+".
func (l Level) Band() Level {
	return Level(strings.TrimSuffix(string(l), "+"))
}

// BandName returns the descriptive name of the level's band.
func (l Level) BandName() string {
	return bandNames[l.Band()]
}

var bandNames = map[Level]string{
	LevelA1: "Beginner",
	LevelA2: "Elementary",
	LevelB1: "Intermediate",
	LevelB2: "Upper-Intermediate",
	LevelC1: "Advanced",
	LevelC2: "Proficient",
}

// Bands returns the six base CEFR bands in ascending order.
func Bands() []Level {
	return []Level{LevelA1, LevelA2, LevelB1, LevelB2, LevelC1, LevelC2}
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	if l == "" {
		return []byte{}, nil
	}
	if !l.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLevel, string(l))
	}
	return []byte(l), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty input leaves
// the zero level so optional fields decode cleanly.
func (l *Level) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*l = ""
		return nil
	}
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
