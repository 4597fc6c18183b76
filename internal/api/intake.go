package api

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mindscrole/reelscribe/internal/job"
)

// multipartSlack covers boundaries and part headers around the file bytes.
const multipartSlack = 1 << 20

// badRequest is a malformed request, rejected before any Job is created.
type badRequest struct{ msg string }

func (e *badRequest) Error() string { return e.msg }

func isBadRequest(err error) bool {
	var br *badRequest
	return errors.As(err, &br)
}

// limitUpload bounds the request body and rejects a declared length that
// cannot fit before anything is read. The body is only read once the Job
// reaches the front of the pipeline, so the server's read and write
// deadlines are lifted for this request.
func limitUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) error {
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})
	if maxBytes <= 0 {
		return nil
	}
	if r.ContentLength > maxBytes+multipartSlack {
		return job.Errorf(job.InputTooLarge, nil, "upload is larger than the %d MB limit", maxBytes>>20)
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartSlack)
	return nil
}

// uploadSource streams the multipart "file" field. The returned Source reads
// straight from the request body, so it must be consumed before the
// handler returns.
func uploadSource(r *http.Request) (job.Source, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return job.Source{}, &badRequest{"expected a multipart/form-data body with a file field"}
	}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return job.Source{}, &badRequest{"no file was uploaded"}
		}
		if err != nil {
			if isBodyTooLarge(err) {
				return job.Source{}, job.Errorf(job.InputTooLarge, err, "upload exceeds the size limit")
			}
			return job.Source{}, &badRequest{"malformed multipart body"}
		}
		if part.FormName() != "file" {
			part.Close()
			continue
		}
		if part.FileName() == "" {
			return job.Source{}, &badRequest{"no file was uploaded"}
		}
		return job.UploadSource(part.FileName(), -1, part), nil
	}
}

// urlSource validates that a URL was supplied at all; the resolver owns
// the real validation and its categorized errors.
func urlSource(raw string) (job.Source, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return job.Source{}, &badRequest{"please enter a valid video URL"}
	}
	return job.URLSource(raw), nil
}
