package transcribe

import (
	"fmt"
	"time"

	"github.com/mindscrole/reelscribe/internal/command"
)

// Options selects and configures a Provider.
type Options struct {
	Provider string // "whisper", "openai" or "exec"

	WhisperURL     string
	WhisperModel   string
	WhisperTimeout time.Duration

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	Command   string
	ModelPath string
	Runner    command.Runner
}

// New builds the configured Provider. The provider still needs Load.
func New(opts Options) (Provider, error) {
	switch opts.Provider {
	case "", "whisper":
		if opts.WhisperURL == "" {
			return nil, fmt.Errorf("whisper provider requires WHISPER_URL")
		}
		return NewWhisperClient(opts.WhisperURL, opts.WhisperModel, opts.WhisperTimeout), nil
	case "openai":
		return NewOpenAIClient(opts.OpenAIAPIKey, opts.OpenAIBaseURL, opts.OpenAIModel), nil
	case "exec":
		return NewExecClient(opts.Command, opts.ModelPath, opts.Runner)
	default:
		return nil, fmt.Errorf("unknown stt provider %q", opts.Provider)
	}
}
