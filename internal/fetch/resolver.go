package fetch

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/mindscrole/reelscribe/internal/job"
	"github.com/rs/zerolog"
)

// LinkFetcher downloads a validated link into dir.
type LinkFetcher interface {
	Fetch(ctx context.Context, link Link, dir string) (string, error)
}

// Resolver is the pipeline's input stage: URLs go to the platform or direct
// fetcher, uploads are persisted into the Job directory.
type Resolver struct {
	platform     LinkFetcher
	direct       LinkFetcher
	allowedHosts []string
	maxBytes     int64
	log          zerolog.Logger
}

// ResolverOptions configures a Resolver.
type ResolverOptions struct {
	Platform     LinkFetcher
	Direct       LinkFetcher
	AllowedHosts []string
	// MaxBytes bounds uploads; 0 disables.
	MaxBytes int64
	Log      zerolog.Logger
}

// NewResolver creates a Resolver. Empty AllowedHosts means DefaultAllowedHosts.
func NewResolver(opts ResolverOptions) *Resolver {
	hosts := opts.AllowedHosts
	if len(hosts) == 0 {
		hosts = DefaultAllowedHosts
	}
	return &Resolver{
		platform:     opts.Platform,
		direct:       opts.Direct,
		allowedHosts: hosts,
		maxBytes:     opts.MaxBytes,
		log:          opts.Log.With().Str("component", "resolver").Logger(),
	}
}

// Resolve produces a local video file for src inside dir.
func (r *Resolver) Resolve(ctx context.Context, src job.Source, dir string) (string, error) {
	switch src.Kind {
	case job.SourceURL:
		link, err := ParseLink(src.URL, r.allowedHosts)
		if err != nil {
			return "", err
		}
		if link.Direct {
			return r.direct.Fetch(ctx, link, dir)
		}
		return r.platform.Fetch(ctx, link, dir)
	case job.SourceUpload:
		return r.saveUpload(src, dir)
	default:
		return "", job.Errorf(job.ProcessingFailure, nil, "unknown source kind %q", src.Kind)
	}
}

func (r *Resolver) saveUpload(src job.Source, dir string) (string, error) {
	if src.Body == nil {
		return "", job.Errorf(job.ProcessingFailure, nil, "no file was uploaded")
	}
	if !IsVideoFile(src.Name) {
		return "", job.Errorf(job.ProcessingFailure, nil,
			"unsupported file type %q: upload one of %s", filepath.Ext(src.Name), strings.Join(VideoExtensions, ", "))
	}
	if r.maxBytes > 0 && src.Size > r.maxBytes {
		return "", job.Errorf(job.InputTooLarge, nil, "file is %s, limit is %s", humanBytes(src.Size), humanBytes(r.maxBytes))
	}

	path := filepath.Join(dir, videoStem+strings.ToLower(filepath.Ext(src.Name)))
	if err := writeBounded(path, src.Body, r.maxBytes, job.ProcessingFailure); err != nil {
		return "", err
	}
	r.log.Debug().Str("name", src.Name).Msg("upload saved")
	return path, nil
}
