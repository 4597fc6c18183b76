package api

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mindscrole/reelscribe/internal/config"
	"github.com/mindscrole/reelscribe/internal/metrics"
	"github.com/mindscrole/reelscribe/internal/present"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type Server struct {
	http *http.Server
	log  zerolog.Logger
}

// ServerOptions wires the server's collaborators. Broker, Stream and Inbox
// may be nil when those features are off.
type ServerOptions struct {
	Config   *config.Config
	Pipeline JobRunner
	Model    ModelInfo
	Broker   BrokerStatus
	Stream   BrokerStatus
	Inbox    InboxStatus
	// WebFS is rooted at the web directory (templates/, static/).
	WebFS     fs.FS
	Version   string
	StartTime time.Time
	Log       zerolog.Logger
}

// NewServer builds the router. ctx bounds every Job started over HTTP.
func NewServer(ctx context.Context, opts ServerOptions) (*Server, error) {
	handler, err := NewRouter(ctx, opts)
	if err != nil {
		return nil, err
	}
	cfg := opts.Config
	return &Server{
		http: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		log: opts.Log,
	}, nil
}

// NewRouter returns the HTTP handler tree.
func NewRouter(ctx context.Context, opts ServerOptions) (http.Handler, error) {
	cfg := opts.Config
	renderer, err := present.NewRenderer(opts.WebFS)
	if err != nil {
		return nil, err
	}
	static, err := fs.Sub(opts.WebFS, "static")
	if err != nil {
		return nil, fmt.Errorf("static assets: %w", err)
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(RequestID)
	r.Use(Recoverer)
	r.Use(Logger(opts.Log))
	r.Use(metrics.InstrumentHandler)

	// Browser UI
	pages := NewPagesHandler(ctx, opts.Pipeline, renderer, cfg.MaxUploadBytes())
	r.Group(func(r chi.Router) {
		r.Use(BrowserAuth(cfg.AuthToken))
		r.Get("/", pages.Index)
		r.Post("/transcribe/url", pages.TranscribeURL)
		r.Post("/transcribe/upload", pages.TranscribeUpload)
		r.Post("/download", pages.Download)
	})
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	// Health and metrics: no auth
	health := NewHealthHandler(opts.Pipeline, opts.Model, opts.Broker, opts.Inbox, opts.Version, opts.StartTime).
		WithStream(opts.Stream)
	r.Get("/api/v1/health", health.ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())

	// Authenticated API
	r.Group(func(r chi.Router) {
		r.Use(CORS)
		r.Use(BearerAuth(cfg.AuthToken))
		transcripts := NewTranscriptsHandler(ctx, opts.Pipeline, cfg.MaxUploadBytes())
		r.Post("/api/v1/transcripts", transcripts.Create)
		r.Options("/api/v1/transcripts", func(w http.ResponseWriter, r *http.Request) {})
	})

	return r, nil
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("http server starting")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	return s.http.Shutdown(ctx)
}
