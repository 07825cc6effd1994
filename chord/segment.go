package chord

import (
	"math"

	"github.com/jsphweid/chordscribe/model"
)

// FramesFromMatrix turns a 12 x N chroma matrix (one row per pitch class) into
// N frames.
func FramesFromMatrix(m [][]float64) ([]model.PitchClassVector, error) {
	if len(m) == 0 {
		return nil, nil
	}
	if len(m) != 12 {
		return nil, invalidf("chroma matrix has %d rows, expected 12", len(m))
	}
	n := len(m[0])
	for pc, row := range m {
		if len(row) != n {
			return nil, invalidf("chroma row %d has %d frames, expected %d", pc, len(row), n)
		}
	}
	frames := make([]model.PitchClassVector, n)
	for pc, row := range m {
		for i, x := range row {
			frames[i][pc] = x
		}
	}
	return frames, nil
}

func validateTimes(numFrames int, times []float64) error {
	if numFrames != len(times) {
		return invalidf("got %d chroma frames but %d frame times", numFrames, len(times))
	}
	for i, t := range times {
		if math.IsNaN(t) || math.IsInf(t, 0) || t < 0 {
			return invalidf("frame time %d is %v", i, t)
		}
		if i > 0 && t < times[i-1] {
			return invalidf("frame time %d (%v) is before frame time %d (%v)", i, t, i-1, times[i-1])
		}
	}
	return nil
}

// Segment classifies every frame and keeps only the frames where the label
// changes. frames and times must have the same length and times must be
// finite, non-negative and non-decreasing.
func (c *Classifier) Segment(frames []model.PitchClassVector, times []float64) (model.ChordTimeline, error) {
	if err := validateTimes(len(frames), times); err != nil {
		return nil, err
	}

	timeline := make(model.ChordTimeline, 0)
	// "" is never a template label (NewBank rejects it) and is not NoChord
	previous := ""
	for i, frame := range frames {
		label := c.Classify(frame)
		if label == previous {
			continue
		}
		previous = label

		// a change at the same instant as the last segment overwrites it
		if n := len(timeline); n > 0 && timeline[n-1].Time == times[i] {
			timeline = timeline[:n-1]
			if n > 1 && timeline[n-2].Chord == label {
				continue
			}
		}
		timeline = append(timeline, model.ChordSegment{Time: times[i], Chord: label})
	}
	return timeline, nil
}

// Analyze runs Segment over a chromagram and packages the result.
func (c *Classifier) Analyze(gram model.Chromagram, duration float64) (*model.AnalysisResult, error) {
	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration < 0 {
		return nil, invalidf("duration is %v", duration)
	}
	frames, err := FramesFromMatrix(gram.Matrix)
	if err != nil {
		return nil, err
	}
	timeline, err := c.Segment(frames, gram.Times)
	if err != nil {
		return nil, err
	}
	return &model.AnalysisResult{Timeline: timeline, Duration: duration}, nil
}
