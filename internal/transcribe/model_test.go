package transcribe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mindscrole/reelscribe/internal/job"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProvider struct {
	loads       int
	transcribes int
	loadErr     error
	text        string
	err         error
	lastOpts    TranscribeOpts
}

func (c *countingProvider) Load(ctx context.Context) error {
	c.loads++
	return c.loadErr
}

func (c *countingProvider) Transcribe(ctx context.Context, audioPath string, opts TranscribeOpts) (*Response, error) {
	c.transcribes++
	c.lastOpts = opts
	if c.err != nil {
		return nil, c.err
	}
	return &Response{Text: c.text, Language: "en", Duration: 2.5}, nil
}

func (c *countingProvider) Name() string  { return "fake" }
func (c *countingProvider) Model() string { return "fake-base" }

func TestLoadAndTranscribe(t *testing.T) {
	p := &countingProvider{text: "  spoken words "}
	m, err := Load(context.Background(), p, TranscribeOpts{Language: "Auto"}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "fake", m.Provider())
	assert.Equal(t, "fake-base", m.Name())
	assert.False(t, m.LoadedAt().IsZero())

	tr, err := m.Transcribe(context.Background(), "audio.wav")
	require.NoError(t, err)
	assert.Equal(t, "spoken words", tr.Text)
	assert.Equal(t, "2.5s", tr.Duration.String())
	assert.Equal(t, "", p.lastOpts.Language, "auto language is normalized away")
}

func TestLoadFailure(t *testing.T) {
	_, err := Load(context.Background(), &countingProvider{loadErr: errors.New("no model")}, TranscribeOpts{}, zerolog.Nop())
	assert.Error(t, err)
}

func TestTranscribeFailureIsProcessingFailure(t *testing.T) {
	m, err := Load(context.Background(), &countingProvider{err: errors.New("CUDA out of memory")}, TranscribeOpts{}, zerolog.Nop())
	require.NoError(t, err)
	_, err = m.Transcribe(context.Background(), "audio.wav")
	assert.Equal(t, job.ProcessingFailure, job.CategoryOf(err, ""))
}

type stubResolver struct{}

func (stubResolver) Resolve(ctx context.Context, src job.Source, dir string) (string, error) {
	path := filepath.Join(dir, "source_video.mp4")
	return path, os.WriteFile(path, []byte("v"), 0o644)
}

type stubExtractor struct{}

func (stubExtractor) Extract(ctx context.Context, videoPath, dir string) (string, error) {
	path := filepath.Join(dir, "audio_16k_mono.wav")
	return path, os.WriteFile(path, []byte("a"), 0o644)
}

func TestSequentialJobsReuseLoadedModel(t *testing.T) {
	p := &countingProvider{text: "hello"}
	m, err := Load(context.Background(), p, TranscribeOpts{}, zerolog.Nop())
	require.NoError(t, err)

	pipeline := job.NewPipeline(job.Options{
		Resolver:    stubResolver{},
		Extractor:   stubExtractor{},
		Transcriber: m,
		WorkDir:     t.TempDir(),
		Log:         zerolog.Nop(),
	})

	for _, u := range []string{"https://youtu.be/first", "https://youtu.be/second"} {
		j, err := pipeline.Run(context.Background(), job.URLSource(u), nil)
		require.NoError(t, err)
		assert.Equal(t, "hello", j.Transcript.Text)
	}
	assert.Equal(t, 1, p.loads, "model must be loaded exactly once")
	assert.Equal(t, 2, p.transcribes)
}

func TestNewProvider(t *testing.T) {
	p, err := New(Options{Provider: "whisper", WhisperURL: "http://localhost:8000/v1/audio/transcriptions", WhisperModel: "base"})
	require.NoError(t, err)
	assert.Equal(t, "whisper", p.Name())

	_, err = New(Options{Provider: "whisper"})
	assert.Error(t, err, "whisper requires a url")

	p, err = New(Options{Provider: "openai", OpenAIAPIKey: "sk"})
	require.NoError(t, err)
	assert.Equal(t, "whisper-1", p.Model())

	p, err = New(Options{Provider: "exec", Command: "whisper-cli", ModelPath: "/models"})
	require.NoError(t, err)
	assert.Equal(t, "exec", p.Name())

	_, err = New(Options{Provider: "carrier-pigeon"})
	assert.Error(t, err)
}
