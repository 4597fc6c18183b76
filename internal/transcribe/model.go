package transcribe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mindscrole/reelscribe/internal/job"
	"github.com/mindscrole/reelscribe/internal/metrics"
	"github.com/rs/zerolog"
)

// Model is a loaded speech-to-text backend. It is built once at process
// start and shared read-only by every Job.
type Model struct {
	provider Provider
	opts     TranscribeOpts
	loadedAt time.Time
	log      zerolog.Logger
}

// Load prepares p and returns the ready Model.
func Load(ctx context.Context, p Provider, opts TranscribeOpts, log zerolog.Logger) (*Model, error) {
	log = log.With().Str("component", "transcriber").Str("provider", p.Name()).Logger()
	start := time.Now()
	if err := p.Load(ctx); err != nil {
		return nil, fmt.Errorf("load %s model: %w", p.Name(), err)
	}
	metrics.ModelLoadsTotal.Inc()
	opts.Language = normalizeLanguage(opts.Language)

	m := &Model{
		provider: p,
		opts:     opts,
		loadedAt: time.Now(),
		log:      log,
	}
	log.Info().
		Str("model", p.Model()).
		Dur("load_time", time.Since(start)).
		Msg("speech-to-text model ready")
	return m, nil
}

// Provider returns the backend name.
func (m *Model) Provider() string { return m.provider.Name() }

// Name returns the backend's model identifier.
func (m *Model) Name() string { return m.provider.Model() }

// LoadedAt returns when the model became ready.
func (m *Model) LoadedAt() time.Time { return m.loadedAt }

// Transcribe runs the model over an audio file.
func (m *Model) Transcribe(ctx context.Context, audioPath string) (job.Transcript, error) {
	start := time.Now()
	resp, err := m.provider.Transcribe(ctx, audioPath, m.opts)
	if err != nil {
		return job.Transcript{}, job.Errorf(job.ProcessingFailure, err, "speech-to-text failed")
	}
	t := job.Transcript{
		Text:     strings.TrimSpace(resp.Text),
		Language: resp.Language,
		Duration: time.Duration(resp.Duration * float64(time.Second)),
	}
	m.log.Debug().
		Int("chars", len(t.Text)).
		Dur("audio", t.Duration).
		Dur("took", time.Since(start)).
		Msg("transcription complete")
	return t, nil
}
