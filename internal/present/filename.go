package present

import (
	"mime"
	"net/http"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/mindscrole/reelscribe/internal/fetch"
	"github.com/mindscrole/reelscribe/internal/job"
)

const (
	transcriptSuffix = "_transcript.txt"
	fallbackName     = "video" + transcriptSuffix
)

var unsafeNameRe = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileName is the download name for a Job's transcript:
// <upload name>_transcript.txt for uploads, <source id>_transcript.txt for
// URLs, and video_transcript.txt when neither yields a usable name.
func FileName(src job.Source) string {
	var stem string
	switch src.Kind {
	case job.SourceUpload:
		stem = filepath.Base(strings.ReplaceAll(src.Name, `\`, "/"))
	case job.SourceURL:
		stem = fetch.SourceID(src.URL)
	}
	stem = strings.Trim(unsafeNameRe.ReplaceAllString(stem, "_"), "._")
	if stem == "" {
		return fallbackName
	}
	return stem + transcriptSuffix
}

// SanitizeFileName makes a client-supplied download name safe to echo back
// in a Content-Disposition header.
func SanitizeFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	name = strings.Trim(unsafeNameRe.ReplaceAllString(name, "_"), "._")
	if name == "" {
		return fallbackName
	}
	if !strings.HasSuffix(strings.ToLower(name), ".txt") {
		name += ".txt"
	}
	return name
}

// WriteAttachment sends text as a plain-text file download.
func WriteAttachment(w http.ResponseWriter, name, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(text)))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(text))
}
