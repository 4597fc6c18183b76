package transcribe

import "context"

// Provider is the interface for speech-to-text backends.
type Provider interface {
	// Load prepares the backend (resolves model files, checks reachability).
	// It is called once per process, before any Transcribe.
	Load(ctx context.Context) error
	Transcribe(ctx context.Context, audioPath string, opts TranscribeOpts) (*Response, error)
	Name() string  // "whisper", "openai", "exec"
	Model() string // model identifier for logs and health
}

// TranscribeOpts are per-request options shared by all providers.
// Zero-value fields are omitted from backend requests.
type TranscribeOpts struct {
	Language    string
	Temperature float64
	Prompt      string // initial prompt / domain vocabulary
}

// Response is the common transcription result from any provider.
type Response struct {
	Text     string
	Language string
	Duration float64 // audio duration in seconds
}
