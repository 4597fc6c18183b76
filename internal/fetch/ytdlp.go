package fetch

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/mindscrole/reelscribe/internal/command"
	"github.com/mindscrole/reelscribe/internal/job"
	"github.com/rs/zerolog"
)

// DefaultFormat asks for the lowest-friction rendition: a single muxed file
// no taller than 720p.
const DefaultFormat = "best[height<=720]"

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// videoStem is the file name (without extension) downloads are written to.
const videoStem = "source_video"

// YtDlp downloads platform videos with the yt-dlp CLI.
type YtDlp struct {
	path    string
	format  string
	timeout time.Duration
	runner  command.Runner
	log     zerolog.Logger
}

// YtDlpOptions configures a YtDlp fetcher.
type YtDlpOptions struct {
	Path    string
	Format  string
	Timeout time.Duration
	Runner  command.Runner
	Log     zerolog.Logger
}

// NewYtDlp creates a yt-dlp fetcher. Zero-value options fall back to
// "yt-dlp" in PATH, DefaultFormat, and os/exec.
func NewYtDlp(opts YtDlpOptions) *YtDlp {
	y := &YtDlp{
		path:    opts.Path,
		format:  opts.Format,
		timeout: opts.Timeout,
		runner:  opts.Runner,
		log:     opts.Log.With().Str("component", "yt-dlp").Logger(),
	}
	if y.path == "" {
		y.path = "yt-dlp"
	}
	if y.format == "" {
		y.format = DefaultFormat
	}
	if y.runner == nil {
		y.runner = command.Exec{}
	}
	return y
}

// Fetch downloads link into dir and returns the downloaded file's path.
func (y *YtDlp) Fetch(ctx context.Context, link Link, dir string) (string, error) {
	if y.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, y.timeout)
		defer cancel()
	}

	args := buildYtDlpArgs(link.String(), dir, y.format)
	res, err := y.runner.Run(ctx, y.path, args...)
	log := command.NewLog(y.path, args, res)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", job.Errorf(job.SourceUnavailable, err, "download timed out")
		}
		if errors.Is(err, exec.ErrNotFound) {
			return "", job.Errorf(job.ProcessingFailure, err, "yt-dlp is not installed")
		}
		y.log.Debug().Int("exit_code", log.ExitCode).Str("stderr", log.Stderr).Msg("yt-dlp failed")
		return "", classifyYtDlp(res.Stderr, err)
	}

	path, err := findDownload(dir)
	if err != nil {
		return "", err
	}
	y.log.Debug().Str("url", link.String()).Str("file", filepath.Base(path)).Msg("video downloaded")
	return path, nil
}

func buildYtDlpArgs(rawURL, dir, format string) []string {
	return []string{
		"--no-playlist",
		"--no-progress",
		"--quiet",
		"--no-warnings",
		"--no-part",
		"-f", format,
		"-o", filepath.Join(dir, videoStem+".%(ext)s"),
		"--user-agent", browserUserAgent,
		"--add-header", "Accept:text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"--add-header", "Accept-Language:en-us,en;q=0.5",
		"--add-header", "DNT:1",
		rawURL,
	}
}

// findDownload locates the file yt-dlp wrote; the extension depends on the
// rendition chosen.
func findDownload(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", job.Errorf(job.ProcessingFailure, err, "cannot read download directory")
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), videoStem+".") {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", job.Errorf(job.SourceUnavailable, nil, "download finished but produced no video; check the URL")
}

// ytDlpDiagnostic maps a fragment of yt-dlp's ERROR output to a category.
// This table is the only place yt-dlp's text is interpreted.
type ytDlpDiagnostic struct {
	marker   string
	category job.Category
	message  string
}

// First match wins. Instagram reports throttling as "content is not
// available, rate-limit reached", so rate-limit markers come first.
var ytDlpDiagnostics = []ytDlpDiagnostic{
	{"rate-limit", job.RateLimited, "the platform is rate limiting downloads"},
	{"rate limit", job.RateLimited, "the platform is rate limiting downloads"},
	{"http error 429", job.RateLimited, "the platform is rate limiting downloads"},
	{"too many requests", job.RateLimited, "the platform is rate limiting downloads"},
	{"login required", job.RateLimited, "the platform requires a login to continue"},
	{"sign in to confirm", job.RateLimited, "the platform asked to confirm you are not a bot"},
	{"no video formats found", job.SourceUnavailable, "no downloadable video was found at this URL"},
	{"requested format is not available", job.SourceUnavailable, "no rendition matching the download format exists"},
	{"private", job.SourceUnavailable, "this content is private"},
	{"not available", job.SourceUnavailable, "this content is not available; it may be private or removed"},
	{"video unavailable", job.SourceUnavailable, "this video is unavailable"},
	{"has been removed", job.SourceUnavailable, "this content has been removed"},
	{"http error 404", job.SourceUnavailable, "the video was not found"},
	{"http error 403", job.SourceUnavailable, "access to the video was denied"},
	{"http error 410", job.SourceUnavailable, "the video is gone"},
	{"unsupported url", job.SourceUnavailable, "this URL does not point to a downloadable video"},
	{"unable to download webpage", job.SourceUnavailable, "the page could not be reached"},
	{"name or service not known", job.SourceUnavailable, "the host could not be resolved"},
}

func classifyYtDlp(stderr string, err error) *job.Error {
	lower := strings.ToLower(stderr)
	detail := command.Tail(stderr, 512)
	for _, d := range ytDlpDiagnostics {
		if strings.Contains(lower, d.marker) {
			return &job.Error{Category: d.category, Message: d.message, Err: errors.Join(err, errors.New(detail))}
		}
	}
	if detail != "" {
		err = errors.Join(err, errors.New(detail))
	}
	return job.Errorf(job.SourceUnavailable, err, "the video could not be downloaded")
}
