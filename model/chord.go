package model

// NoChord is the label reported when no template clears the acceptance threshold.
const NoChord = "N"

// PitchClassVector holds one value per pitch class, 0 = C through 11 = B.
type PitchClassVector = [12]float64

type ChordTemplate struct {
	Label  string
	Vector PitchClassVector
}

// ChordSegment says the chord holds from Time until the next segment starts
// (or the recording ends).
type ChordSegment struct {
	Time  float64 `json:"time"`
	Chord string  `json:"chord"`
}

// ChordTimeline is strictly increasing in Time and never repeats a chord in
// two adjacent segments.
type ChordTimeline = []ChordSegment

type AnalysisResult struct {
	Timeline ChordTimeline
	Duration float64
}
