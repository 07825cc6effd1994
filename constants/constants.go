package constants

// Acceptance threshold a template score must strictly exceed.
const DefaultThreshold = 0.5

// Added to the chroma sum before normalizing so silent frames don't divide by zero.
const NormEpsilon = 1e-10

// Front-end defaults. A hop of 4096 at 22050 Hz is roughly 0.186 s per frame.
const (
	DefaultSampleRate = 22050
	DefaultHopLength  = 4096
	DefaultFrameSize  = 8192
)

// Chroma only looks at spectral bins inside this band (Hz).
const (
	MinChromaFreq = 65.0
	MaxChromaFreq = 2100.0
)

const DefaultPort = "5000"

const DefaultMaxUploadMB = 64

const AudioFormField = "audio"

var PitchClassNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NOTE: these are the extensions the decoder is tried on when walking directories
var AudioExtensions = []string{".mp3", ".wav", ".flac", ".ogg", ".m4a", ".aac", ".aiff"}
