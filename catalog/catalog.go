// Package catalog loads chord template banks from YAML and keeps the active
// bank swappable at runtime.
//
// A catalog file looks like:
//
//	chords:
//	  - label: Bm
//	    root: B
//	    quality: minor
//	  - label: C5
//	    pitch_classes: [0, 7]
//	include_defaults: true
//
// Entries either name a root and quality (a triad is built) or list the
// pitch classes that are present. When include_defaults is set the default
// bank comes first, so its order still decides ties.
package catalog

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/jsphweid/chordscribe/chord"
	"github.com/jsphweid/chordscribe/model"
	"gopkg.in/yaml.v3"
)

type Entry struct {
	Label        string `yaml:"label"`
	Root         string `yaml:"root,omitempty"`
	Quality      string `yaml:"quality,omitempty"`
	PitchClasses []int  `yaml:"pitch_classes,omitempty"`
}

type File struct {
	IncludeDefaults bool    `yaml:"include_defaults"`
	Chords          []Entry `yaml:"chords"`
}

func (e Entry) template() (model.ChordTemplate, error) {
	if len(e.PitchClasses) > 0 && e.Root != "" {
		return model.ChordTemplate{}, fmt.Errorf("%w: chord %q sets both root and pitch_classes", chord.ErrInvalidArgument, e.Label)
	}
	if len(e.PitchClasses) > 0 {
		var v model.PitchClassVector
		for _, pc := range e.PitchClasses {
			if pc < 0 || pc > 11 {
				return model.ChordTemplate{}, fmt.Errorf("%w: chord %q has pitch class %d", chord.ErrInvalidArgument, e.Label, pc)
			}
			v[pc] = 1
		}
		return model.ChordTemplate{Label: e.Label, Vector: v}, nil
	}

	root, err := chord.PitchClass(e.Root)
	if err != nil {
		return model.ChordTemplate{}, fmt.Errorf("chord %q: %w", e.Label, err)
	}
	q, err := chord.ParseQuality(e.Quality)
	if err != nil {
		return model.ChordTemplate{}, fmt.Errorf("chord %q: %w", e.Label, err)
	}
	label := e.Label
	if label == "" {
		label = chord.TriadLabel(root, q)
	}
	return model.ChordTemplate{Label: label, Vector: chord.Triad(root, q)}, nil
}

// Decode reads a catalog from r and builds the bank it describes.
func Decode(r io.Reader) (*chord.Bank, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: catalog: decode yaml: %v", chord.ErrInvalidArgument, err)
	}

	var templates []model.ChordTemplate
	if f.IncludeDefaults {
		templates = chord.DefaultBank().All()
	}
	for _, e := range f.Chords {
		t, err := e.template()
		if err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return chord.NewBank(templates...)
}

func Load(path string) (*chord.Bank, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %q: %w", path, err)
	}
	defer f.Close()

	bank, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("catalog: %q: %w", path, err)
	}
	return bank, nil
}

// Store holds the bank new analyses should use. Banks are immutable, so a
// reader keeps a consistent bank for as long as it holds the pointer.
type Store struct {
	bank atomic.Pointer[chord.Bank]
}

func NewStore(bank *chord.Bank) *Store {
	if bank == nil {
		bank = chord.DefaultBank()
	}
	s := &Store{}
	s.bank.Store(bank)
	return s
}

func (s *Store) Bank() *chord.Bank {
	return s.bank.Load()
}

func (s *Store) Swap(bank *chord.Bank) {
	s.bank.Store(bank)
}
