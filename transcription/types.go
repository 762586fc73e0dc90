package transcription

// Encoding names an audio sample encoding.
type Encoding string

// EncodingLinear16 is uncompressed 16-bit signed little-endian PCM.
const EncodingLinear16 Encoding = "LINEAR16"

// RecognitionConfig describes how the backend should decode and recognize audio.
type RecognitionConfig struct {
	Encoding        Encoding `json:"encoding"`
	SampleRateHertz int      `json:"sampleRateHertz"`
	LanguageCode    string   `json:"languageCode"`
}

// DefaultRecognitionConfig is the fixed recognition policy: 16 kHz linear
// PCM in US English. Clients cannot change it.
func DefaultRecognitionConfig() RecognitionConfig {
	return RecognitionConfig{
		Encoding:        EncodingLinear16,
		SampleRateHertz: 16000,
		LanguageCode:    "en-US",
	}
}

// Request is one unit of audio to recognize.
type Request struct {
	// Locator is the object path the audio was read from. Informational.
	Locator     string
	Audio       []byte
	ContentType string
	Config      RecognitionConfig
}

// Response holds the result of a recognition call.
type Response struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments,omitempty"`
	// Duration is the audio duration in seconds.
	Duration float64 `json:"duration,omitempty"`
	Language string  `json:"language,omitempty"`
}

// Segment is a time-aligned portion of a transcript.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// OperationState is the lifecycle state of a long-running recognition job.
type OperationState string

const (
	OperationPending   OperationState = "pending"
	OperationRunning   OperationState = "running"
	OperationSucceeded OperationState = "succeeded"
	OperationFailed    OperationState = "failed"
	OperationCancelled OperationState = "cancelled"
)

// Operation is a handle on a long-running recognition job.
type Operation struct {
	ID     string
	State  OperationState
	Result *Response
	Error  string
}

// Done reports whether the operation reached a terminal state.
func (o *Operation) Done() bool {
	switch o.State {
	case OperationSucceeded, OperationFailed, OperationCancelled:
		return true
	}
	return false
}
