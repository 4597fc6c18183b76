package fetch

import (
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mindscrole/reelscribe/internal/job"
)

// DefaultAllowedHosts are the video platforms yt-dlp is used for.
var DefaultAllowedHosts = []string{"instagram.com", "youtube.com", "youtu.be", "tiktok.com"}

// VideoExtensions are the container formats accepted for uploads and direct links.
var VideoExtensions = []string{".mp4", ".mov", ".avi", ".mkv", ".webm", ".m4v"}

var idCleanRe = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// Link is a validated video URL.
type Link struct {
	URL *url.URL
	// Direct is true for plain media files fetched over HTTP rather than
	// through a platform extractor.
	Direct bool
}

func (l Link) String() string { return l.URL.String() }

// ParseLink validates raw as a supported video link: an http(s) URL on one of
// allowedHosts (or their subdomains), or any http(s) URL whose path ends in a
// video extension.
func ParseLink(raw string, allowedHosts []string) (Link, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Link{}, job.Errorf(job.SourceUnavailable, nil, "please enter a video URL")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Link{}, job.Errorf(job.SourceUnavailable, err, "invalid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Link{}, job.Errorf(job.SourceUnavailable, nil, "URL must start with http:// or https://")
	}
	if u.Hostname() == "" {
		return Link{}, job.Errorf(job.SourceUnavailable, nil, "URL has no host")
	}
	if blockedHost(u.Hostname()) {
		return Link{}, job.Errorf(job.SourceUnavailable, nil, "URL points to a local or private network address")
	}

	if IsVideoFile(u.Path) {
		return Link{URL: u, Direct: true}, nil
	}
	if hostAllowed(u.Hostname(), allowedHosts) {
		return Link{URL: u}, nil
	}
	return Link{}, job.Errorf(job.SourceUnavailable, nil, "unsupported site %q: use an Instagram, YouTube or TikTok link, or upload the file", u.Hostname())
}

func hostAllowed(host string, allowed []string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	for _, a := range allowed {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" {
			continue
		}
		if host == a || strings.HasSuffix(host, "."+a) {
			return true
		}
	}
	return false
}

// IsVideoFile reports whether name has one of VideoExtensions.
func IsVideoFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, v := range VideoExtensions {
		if ext == v {
			return true
		}
	}
	return false
}

// SourceID derives a short identifier for the video behind raw, e.g. the
// reel code of an Instagram URL or the v= parameter of a YouTube watch URL.
// Returns "" when nothing usable is found.
func SourceID(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return ""
	}
	if v := u.Query().Get("v"); v != "" {
		return cleanID(v)
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		seg := segments[i]
		if seg == "" || seg == "watch" {
			continue
		}
		seg = strings.TrimSuffix(seg, path.Ext(seg))
		if id := cleanID(seg); id != "" {
			return id
		}
	}
	return ""
}

func cleanID(s string) string {
	s = idCleanRe.ReplaceAllString(s, "")
	if len(s) > 64 {
		s = s[:64]
	}
	return s
}
