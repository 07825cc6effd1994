package chord

import (
	"math"

	"github.com/jsphweid/chordscribe/model"
)

// Bank is an immutable, ordered catalog of chord templates. The order is also
// the tie-break rule: when two templates score the same, the one registered
// first wins.
type Bank struct {
	templates []model.ChordTemplate
	index     map[string]int
}

// NewBank validates templates and copies them into a Bank.
func NewBank(templates ...model.ChordTemplate) (*Bank, error) {
	if len(templates) == 0 {
		return nil, invalidf("template bank is empty")
	}
	b := &Bank{
		templates: make([]model.ChordTemplate, 0, len(templates)),
		index:     make(map[string]int, len(templates)),
	}
	for _, t := range templates {
		if t.Label == "" {
			return nil, invalidf("template has an empty label")
		}
		if t.Label == model.NoChord {
			return nil, invalidf("label %q is reserved for no chord", model.NoChord)
		}
		if _, ok := b.index[t.Label]; ok {
			return nil, invalidf("duplicate template label %q", t.Label)
		}
		var nonzero bool
		for i, x := range t.Vector {
			if x < 0 || math.IsNaN(x) || math.IsInf(x, 0) {
				return nil, invalidf("template %q has invalid entry %v at pitch class %d", t.Label, x, i)
			}
			if x != 0 {
				nonzero = true
			}
		}
		if !nonzero {
			return nil, invalidf("template %q is all zeros", t.Label)
		}
		b.index[t.Label] = len(b.templates)
		b.templates = append(b.templates, t)
	}
	return b, nil
}

// DefaultBank is the 12 major triads followed by C, D, E, F, G and A minor.
// The other six minor triads are not included; load a catalog file to add them.
func DefaultBank() *Bank {
	templates := make([]model.ChordTemplate, 0, 18)
	for root := 0; root < 12; root++ {
		templates = append(templates, model.ChordTemplate{Label: TriadLabel(root, Major), Vector: Triad(root, Major)})
	}
	for _, root := range []int{0, 2, 4, 5, 7, 9} {
		templates = append(templates, model.ChordTemplate{Label: TriadLabel(root, Minor), Vector: Triad(root, Minor)})
	}
	b, err := NewBank(templates...)
	if err != nil {
		panic("default template bank is invalid: " + err.Error())
	}
	return b
}

// All returns the templates in bank order. The slice is a copy.
func (b *Bank) All() []model.ChordTemplate {
	res := make([]model.ChordTemplate, len(b.templates))
	copy(res, b.templates)
	return res
}

func (b *Bank) Len() int {
	return len(b.templates)
}

func (b *Bank) Lookup(label string) (model.ChordTemplate, bool) {
	i, ok := b.index[label]
	if !ok {
		return model.ChordTemplate{}, false
	}
	return b.templates[i], true
}

func (b *Bank) Labels() []string {
	res := make([]string, len(b.templates))
	for i, t := range b.templates {
		res[i] = t.Label
	}
	return res
}
