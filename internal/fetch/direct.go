package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mindscrole/reelscribe/internal/job"
	"github.com/rs/zerolog"
)

// Direct downloads plain media files (links ending in .mp4 etc.) over HTTP.
// Failures are classified from the response status code. Connections to
// non-public addresses are refused, including after redirects.
type Direct struct {
	client   *http.Client
	maxBytes int64
	log      zerolog.Logger
}

// NewDirect creates an HTTP fetcher. maxBytes bounds the download; 0 disables.
func NewDirect(timeout time.Duration, maxBytes int64, log zerolog.Logger) *Direct {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
		Control:   publicDialControl,
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext
	return &Direct{
		client:   &http.Client{Timeout: timeout, Transport: transport},
		maxBytes: maxBytes,
		log:      log.With().Str("component", "direct-fetch").Logger(),
	}
}

// Fetch downloads link into dir.
func (d *Direct) Fetch(ctx context.Context, link Link, dir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link.String(), nil)
	if err != nil {
		return "", job.Errorf(job.SourceUnavailable, err, "invalid URL")
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		var blocked *blockedAddrError
		if errors.As(err, &blocked) {
			return "", job.Errorf(job.SourceUnavailable, err, "URL points to a local or private network address")
		}
		return "", job.Errorf(job.SourceUnavailable, err, "the video host could not be reached")
	}
	defer resp.Body.Close()

	if cerr := statusError(resp); cerr != nil {
		return "", cerr
	}

	if d.maxBytes > 0 && resp.ContentLength > d.maxBytes {
		return "", job.Errorf(job.InputTooLarge, nil, "remote file is %s, limit is %s", humanBytes(resp.ContentLength), humanBytes(d.maxBytes))
	}

	ext := strings.ToLower(filepath.Ext(link.URL.Path))
	path := filepath.Join(dir, videoStem+ext)
	if err := writeBounded(path, resp.Body, d.maxBytes, job.SourceUnavailable); err != nil {
		return "", err
	}
	d.log.Debug().Str("url", link.String()).Msg("video downloaded")
	return path, nil
}

func statusError(resp *http.Response) *job.Error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		msg := "the host is rate limiting downloads"
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			msg += fmt.Sprintf(" (retry after %s)", ra)
		}
		return job.Errorf(job.RateLimited, nil, "%s", msg)
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return job.Errorf(job.SourceUnavailable, nil, "access to the video was denied (status %d)", resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusGone:
		return job.Errorf(job.SourceUnavailable, nil, "the video was not found (status %d)", resp.StatusCode)
	default:
		return job.Errorf(job.SourceUnavailable, nil, "the video host returned status %d", resp.StatusCode)
	}
}

// writeBounded copies r into a new file at path, failing with InputTooLarge
// once more than maxBytes have been read. Errors reading r are reported
// as readFailure; errors on the local file as ProcessingFailure. The partial
// file is removed on error.
func writeBounded(path string, r io.Reader, maxBytes int64, readFailure job.Category) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return job.Errorf(job.ProcessingFailure, err, "cannot create video file")
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = job.Errorf(job.ProcessingFailure, cerr, "cannot write video file")
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	src := &sourceReader{r: r}
	var limited io.Reader = src
	if maxBytes > 0 {
		limited = io.LimitReader(src, maxBytes+1)
	}
	n, err := io.Copy(f, limited)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return job.Errorf(job.InputTooLarge, err, "file exceeds %s", humanBytes(tooBig.Limit))
		}
		if src.err != nil {
			return job.Errorf(readFailure, err, "the video transfer was interrupted")
		}
		return job.Errorf(job.ProcessingFailure, err, "cannot write video file")
	}
	if maxBytes > 0 && n > maxBytes {
		return job.Errorf(job.InputTooLarge, nil, "file exceeds %s", humanBytes(maxBytes))
	}
	if n == 0 {
		return job.Errorf(job.ProcessingFailure, nil, "file is empty")
	}
	return nil
}

// sourceReader remembers the first read error so copy failures can be
// attributed to the source rather than the local file.
type sourceReader struct {
	r   io.Reader
	err error
}

func (s *sourceReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err != nil && err != io.EOF && s.err == nil {
		s.err = err
	}
	return n, err
}

func humanBytes(n int64) string {
	const mb = 1 << 20
	if n >= mb {
		return fmt.Sprintf("%d MB", n/mb)
	}
	return fmt.Sprintf("%d bytes", n)
}
