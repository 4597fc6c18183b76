package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mindscrole/reelscribe/internal/command"
	"github.com/mindscrole/reelscribe/internal/config"
	"github.com/mindscrole/reelscribe/internal/fetch"
	"github.com/mindscrole/reelscribe/internal/job"
	"github.com/mindscrole/reelscribe/internal/media"
	"github.com/mindscrole/reelscribe/internal/transcribe"
	"github.com/rs/zerolog"
)

func newLogger(level string, w io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).With().Timestamp().Logger().Level(lvl)
}

// buildPipeline wires fetch, extract and transcribe and loads the model.
// The returned Model is shared by every Job the pipeline runs.
func buildPipeline(ctx context.Context, cfg *config.Config, log zerolog.Logger, hooks ...job.ProgressFunc) (*job.Pipeline, *transcribe.Model, error) {
	if cfg.WorkDir != "" {
		if err := os.MkdirAll(cfg.WorkDir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create work dir: %w", err)
		}
	}

	runner := command.Exec{}
	maxBytes := cfg.MaxUploadBytes()

	resolver := fetch.NewResolver(fetch.ResolverOptions{
		Platform: fetch.NewYtDlp(fetch.YtDlpOptions{
			Path:    cfg.YtDlpPath,
			Format:  cfg.YtDlpFormat,
			Timeout: cfg.FetchTimeout,
			Runner:  runner,
			Log:     log,
		}),
		Direct:       fetch.NewDirect(cfg.FetchTimeout, maxBytes, log),
		AllowedHosts: cfg.AllowedHosts,
		MaxBytes:     maxBytes,
		Log:          log,
	})
	extractor := media.NewExtractor(cfg.FFmpegPath, runner, log)

	provider, err := transcribe.New(transcribe.Options{
		Provider:       cfg.STTProvider,
		WhisperURL:     cfg.WhisperURL,
		WhisperModel:   cfg.WhisperModel,
		WhisperTimeout: cfg.WhisperTimeout,
		OpenAIAPIKey:   cfg.OpenAIAPIKey,
		OpenAIBaseURL:  cfg.OpenAIBaseURL,
		OpenAIModel:    cfg.OpenAIModel,
		Command:        cfg.STTCommand,
		ModelPath:      cfg.STTModelPath,
		Runner:         runner,
	})
	if err != nil {
		return nil, nil, err
	}

	loadCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	model, err := transcribe.Load(loadCtx, provider, transcribe.TranscribeOpts{Language: cfg.WhisperLanguage}, log)
	if err != nil {
		return nil, nil, err
	}

	pipeline := job.NewPipeline(job.Options{
		Resolver:      resolver,
		Extractor:     extractor,
		Transcriber:   model,
		WorkDir:       cfg.WorkDir,
		MaxInputBytes: maxBytes,
		Hooks:         hooks,
		Log:           log.With().Str("component", "pipeline").Logger(),
	})
	return pipeline, model, nil
}
