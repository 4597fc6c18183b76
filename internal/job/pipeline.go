package job

import (
	"context"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mindscrole/reelscribe/internal/metrics"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/mindscrole/reelscribe/internal/job"

// Resolver turns a Source into a local video file inside dir.
type Resolver interface {
	Resolve(ctx context.Context, src Source, dir string) (string, error)
}

// Extractor converts a video file into mono 16 kHz PCM audio inside dir.
type Extractor interface {
	Extract(ctx context.Context, videoPath, dir string) (string, error)
}

// Transcriber turns an audio file into text. Implementations are loaded
// once and shared read-only across Jobs.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (Transcript, error)
}

// Stats reports pipeline counters.
type Stats struct {
	Running   bool  `json:"running"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// Options configures a Pipeline.
type Options struct {
	Resolver    Resolver
	Extractor   Extractor
	Transcriber Transcriber

	// WorkDir is the parent of each Job's scoped directory; "" means os.TempDir.
	WorkDir string
	// MaxInputBytes rejects uploads whose declared size is larger; 0 disables.
	MaxInputBytes int64
	// Hooks receive every progress event of every Job (logging sinks, MQTT).
	Hooks []ProgressFunc
	Log   zerolog.Logger
}

// Pipeline runs Jobs through fetch → extract → transcribe, one at a time.
type Pipeline struct {
	resolver    Resolver
	extractor   Extractor
	transcriber Transcriber
	workDir     string
	maxBytes    int64
	hooks       []ProgressFunc
	log         zerolog.Logger
	tracer      trace.Tracer

	mu        sync.Mutex
	running   atomic.Bool
	completed atomic.Int64
	failed    atomic.Int64

	mkdirTemp func(dir, pattern string) (string, error)
	removeAll func(path string) error
}

// NewPipeline creates a pipeline from its collaborators.
func NewPipeline(opts Options) *Pipeline {
	return &Pipeline{
		resolver:    opts.Resolver,
		extractor:   opts.Extractor,
		transcriber: opts.Transcriber,
		workDir:     opts.WorkDir,
		maxBytes:    opts.MaxInputBytes,
		hooks:       opts.Hooks,
		log:         opts.Log,
		tracer:      otel.Tracer(tracerName),
		mkdirTemp:   os.MkdirTemp,
		removeAll:   os.RemoveAll,
	}
}

// Stats returns current counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Running:   p.running.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
	}
}

// JobRunning reports whether a Job is in progress.
func (p *Pipeline) JobRunning() bool { return p.running.Load() }

// Run executes one Job start to finish. Concurrent callers are serialised.
// The returned Job is always non-nil and terminal; on failure the error is
// the Job's *Error.
func (p *Pipeline) Run(ctx context.Context, src Source, onProgress ProgressFunc) (*Job, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running.Store(true)
	defer p.running.Store(false)

	j := New(src)
	ctx, span := p.tracer.Start(ctx, "job.run", trace.WithAttributes(
		attribute.String("job.id", j.ID),
		attribute.String("job.source_kind", string(src.Kind)),
	))
	defer span.End()

	log := p.log.With().
		Str("job_id", j.ID).
		Str("source_kind", string(src.Kind)).
		Str("source", src.Label()).
		Logger()
	log.Info().Msg("job started")

	emit := func(to Stage) {
		if err := j.advance(to); err != nil {
			log.Error().Err(err).Msg("job state")
			return
		}
		ev := j.Last()
		log.Debug().Str("stage", string(ev.Stage)).Int("percent", ev.Percent).Msg(ev.Message)
		for _, h := range p.hooks {
			h(ev)
		}
		if onProgress != nil {
			onProgress(ev)
		}
	}

	if err := p.run(ctx, j, log, emit); err != nil {
		j.Err = err
		j.Transcript = Transcript{}
		emit(StageFailed)
		p.failed.Add(1)
		span.SetAttributes(attribute.String("job.category", string(err.Category)))
		span.SetStatus(codes.Error, err.Error())
		metrics.JobsTotal.WithLabelValues(string(src.Kind), string(err.Category)).Inc()
		log.Warn().Err(err).
			Str("category", string(err.Category)).
			Dur("elapsed", time.Since(j.CreatedAt)).
			Msg("job failed")
		return j, err
	}

	emit(StageDone)
	p.completed.Add(1)
	metrics.JobsTotal.WithLabelValues(string(src.Kind), "done").Inc()
	log.Info().
		Int("chars", len(j.Transcript.Text)).
		Str("language", j.Transcript.Language).
		Dur("elapsed", time.Since(j.CreatedAt)).
		Msg("job complete")
	return j, nil
}

func (p *Pipeline) run(ctx context.Context, j *Job, log zerolog.Logger, emit func(Stage)) *Error {
	emit(StageFetching)
	if j.Source.Kind == SourceUpload && p.maxBytes > 0 && j.Source.Size > p.maxBytes {
		return &Error{
			Category: InputTooLarge,
			Stage:    StageFetching,
			Message:  "uploaded file exceeds the size limit",
		}
	}

	dir, err := p.mkdirTemp(p.workDir, "reelscribe-job-*")
	if err != nil {
		return &Error{
			Category: ProcessingFailure,
			Stage:    StageFetching,
			Message:  "failed to create working directory",
			Err:      err,
		}
	}
	defer func() {
		if err := p.removeAll(dir); err != nil {
			log.Error().Err(err).Str("dir", dir).Msg("failed to remove job directory")
		}
	}()

	fallback := SourceUnavailable
	if j.Source.Kind == SourceUpload {
		fallback = ProcessingFailure
	}
	stageCtx, done := p.startStage(ctx, StageFetching)
	videoPath, err := p.resolver.Resolve(stageCtx, j.Source, dir)
	done(err)
	if err != nil {
		return classify(err, StageFetching, fallback)
	}

	emit(StageExtractingAudio)
	stageCtx, done = p.startStage(ctx, StageExtractingAudio)
	audioPath, err := p.extractor.Extract(stageCtx, videoPath, dir)
	done(err)
	if err != nil {
		return classify(err, StageExtractingAudio, ProcessingFailure)
	}

	emit(StageTranscribing)
	stageCtx, done = p.startStage(ctx, StageTranscribing)
	transcript, err := p.transcriber.Transcribe(stageCtx, audioPath)
	done(err)
	if err != nil {
		return classify(err, StageTranscribing, ProcessingFailure)
	}
	transcript.Text = strings.TrimSpace(transcript.Text)
	if transcript.Text == "" {
		return &Error{
			Category: ProcessingFailure,
			Stage:    StageTranscribing,
			Message:  "no speech detected in the audio",
		}
	}

	j.Transcript = transcript
	return nil
}

// startStage opens a span for one collaborator call; the returned func
// records its duration and outcome.
func (p *Pipeline) startStage(ctx context.Context, stage Stage) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := p.tracer.Start(ctx, "job."+string(stage))
	return ctx, func(err error) {
		metrics.JobStageDuration.WithLabelValues(string(stage)).Observe(time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}
