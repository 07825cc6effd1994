package model

// Chromagram is what a feature extractor hands to the classifier: a 12 x N
// matrix (one row per pitch class) and the start time of every column.
type Chromagram struct {
	Matrix     [][]float64
	Times      []float64
	HopSeconds float64
}

// NumFrames returns the number of columns, or 0 for an empty matrix.
func (c Chromagram) NumFrames() int {
	if len(c.Matrix) == 0 {
		return 0
	}
	return len(c.Matrix[0])
}

// PCM is decoded mono audio.
type PCM struct {
	Samples    []float32
	SampleRate int
}

func (p PCM) Duration() float64 {
	if p.SampleRate <= 0 {
		return 0
	}
	return float64(len(p.Samples)) / float64(p.SampleRate)
}
