package model

type DetectResponse struct {
	Success  bool           `json:"success"`
	Chords   []ChordSegment `json:"chords"`
	Duration float64        `json:"duration"`
}

type ClassifyRequestBody struct {
	Chroma   [][]float64 `json:"chroma"`
	Times    []float64   `json:"times"`
	Duration float64     `json:"duration"`
}

type TemplateResult struct {
	Label        string `json:"label"`
	PitchClasses []int  `json:"pitch_classes"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func NewDetectResponse(res *AnalysisResult) DetectResponse {
	chords := res.Timeline
	if chords == nil {
		chords = make([]ChordSegment, 0)
	}
	return DetectResponse{Success: true, Chords: chords, Duration: res.Duration}
}

// FileResult is one line of batch analysis output.
type FileResult struct {
	File     string         `json:"file"`
	Chords   []ChordSegment `json:"chords,omitempty"`
	Duration float64        `json:"duration,omitempty"`
	Error    string         `json:"error,omitempty"`
}
