package chord

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jsphweid/chordscribe/constants"
	"github.com/jsphweid/chordscribe/model"
)

// ErrInvalidArgument marks input that breaks the caller contract. Nothing is
// partially processed when it is returned.
var ErrInvalidArgument = errors.New("invalid argument")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

type Quality int

const (
	Major Quality = iota
	Minor
)

func (q Quality) String() string {
	if q == Minor {
		return "minor"
	}
	return "major"
}

// ParseQuality accepts "major"/"maj"/"" and "minor"/"min"/"m".
func ParseQuality(s string) (Quality, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "major", "maj":
		return Major, nil
	case "minor", "min", "m":
		return Minor, nil
	}
	return Major, invalidf("unknown chord quality %q", s)
}

// PitchClass resolves a note name like "C", "F#" or "Bb" to 0..11.
func PitchClass(name string) (int, error) {
	name = strings.TrimSpace(name)
	for i, n := range constants.PitchClassNames {
		if strings.EqualFold(n, name) {
			return i, nil
		}
	}
	if len(name) == 2 && (name[1] == 'b' || name[1] == 'B') {
		natural, err := PitchClass(name[:1])
		if err == nil {
			return (natural + 11) % 12, nil
		}
	}
	return 0, invalidf("unknown pitch class %q", name)
}

// Triad builds root + third + perfect fifth presence flags.
func Triad(root int, q Quality) model.PitchClassVector {
	var v model.PitchClassVector
	third := 4
	if q == Minor {
		third = 3
	}
	root = ((root % 12) + 12) % 12
	v[root] = 1
	v[(root+third)%12] = 1
	v[(root+7)%12] = 1
	return v
}

// TriadLabel names a triad the way the default bank does ("C#", "Am").
func TriadLabel(root int, q Quality) string {
	label := constants.PitchClassNames[((root%12)+12)%12]
	if q == Minor {
		label += "m"
	}
	return label
}

// PitchClasses lists the indexes of the nonzero entries of v.
func PitchClasses(v model.PitchClassVector) []int {
	res := make([]int, 0, 3)
	for i, x := range v {
		if x != 0 {
			res = append(res, i)
		}
	}
	return res
}
