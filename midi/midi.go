// Package midi renders chord timelines as Standard MIDI Files: one block
// triad per segment, with the chord label as a marker.
package midi

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/jsphweid/chordscribe/chord"
	"github.com/jsphweid/chordscribe/model"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

const (
	Resolution = 960
	Tempo      = 120.0
	// BaseKey is middle C; pitch class pc plays key BaseKey+pc.
	BaseKey  = 60
	Velocity = 90
	channel  = 0
)

// SecondsToTicks converts seconds to ticks at the fixed tempo.
func SecondsToTicks(seconds float64) uint32 {
	if seconds <= 0 || math.IsNaN(seconds) {
		return 0
	}
	return uint32(math.Round(seconds * Tempo / 60 * Resolution))
}

type event struct {
	tick uint32
	msgs [][]byte
}

// Render builds a single-track SMF from the timeline. Segments whose label
// is N or is missing from bank get a marker but no notes. The last segment
// ends at duration, or one beat after it starts if duration is earlier.
func Render(timeline model.ChordTimeline, duration float64, bank *chord.Bank) (*smf.SMF, error) {
	if bank == nil {
		bank = chord.DefaultBank()
	}

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(Resolution)

	var events []event
	for i, seg := range timeline {
		start := SecondsToTicks(seg.Time)
		var end uint32
		if i+1 < len(timeline) {
			end = SecondsToTicks(timeline[i+1].Time)
		} else {
			end = SecondsToTicks(duration)
			if end <= start {
				end = start + Resolution
			}
		}

		on := event{tick: start, msgs: [][]byte{smf.MetaMarker(seg.Chord)}}
		off := event{tick: end}
		if tpl, ok := bank.Lookup(seg.Chord); ok && seg.Chord != model.NoChord {
			for _, pc := range chord.PitchClasses(tpl.Vector) {
				key := uint8(BaseKey + pc)
				on.msgs = append(on.msgs, midi.NoteOn(channel, key, Velocity))
				off.msgs = append(off.msgs, midi.NoteOff(channel, key))
			}
		}
		events = append(events, on, off)
	}

	var tr smf.Track
	tr.Add(0, smf.MetaTrackSequenceName("chords"))
	tr.Add(0, smf.MetaTempo(Tempo))

	var last uint32
	for _, ev := range events {
		for j, msg := range ev.msgs {
			delta := uint32(0)
			if j == 0 {
				delta = ev.tick - last
			}
			tr.Add(delta, msg)
		}
		if len(ev.msgs) > 0 {
			last = ev.tick
		}
	}
	tr.Close(0)

	if err := s.Add(tr); err != nil {
		return nil, fmt.Errorf("adding track: %w", err)
	}
	return s, nil
}

// Write renders the timeline and writes the SMF to w.
func Write(w io.Writer, timeline model.ChordTimeline, duration float64, bank *chord.Bank) error {
	s, err := Render(timeline, duration, bank)
	if err != nil {
		return err
	}
	_, err = s.WriteTo(w)
	return err
}

// TicksToSeconds is the inverse of SecondsToTicks for a given resolution
// and tempo.
func TicksToSeconds(ticks uint32, resolution uint16, bpm float64) float64 {
	return float64(ticks) / float64(resolution) * 60 / bpm
}

// ReadTimeline reads a file written by Write back into a timeline, one
// segment per marker. Tempo changes are honoured.
func ReadTimeline(path string) (model.ChordTimeline, error) {
	s, err := ReadMidiFile(path)
	if err != nil {
		return nil, err
	}
	ticks, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, fmt.Errorf("midi file %q does not use metric ticks", path)
	}

	timeline := make(model.ChordTimeline, 0)
	for _, track := range s.Tracks {
		bpm := Tempo
		var seconds float64
		for _, ev := range track {
			seconds += TicksToSeconds(ev.Delta, ticks.Resolution(), bpm)
			var text string
			var tempo float64
			switch {
			case ev.Message.GetMetaTempo(&tempo):
				bpm = tempo
			case ev.Message.GetMetaMarker(&text):
				// round away float noise from the tick conversion
				t := math.Round(seconds*1e6) / 1e6
				timeline = append(timeline, model.ChordSegment{Time: t, Chord: text})
			}
		}
	}
	return timeline, nil
}

func ReadMidiFile(filepath string) (s *smf.SMF, e error) {
	var blank smf.SMF

	// handle panics
	// https://github.com/gomidi/midi/issues/20
	defer func() {
		if r := recover(); r != nil {
			s, e = &blank, fmt.Errorf("Error parsing midi file... %v", r)
		}
	}()

	dat, err := os.ReadFile(filepath)
	if err != nil {
		return &blank, fmt.Errorf("Error reading midi file... %w", err)
	}
	res, err := smf.ReadFrom(bytes.NewReader(dat))
	if err != nil {
		return &blank, fmt.Errorf("Error parsing midi file... %w", err)
	}

	return res, nil
}
