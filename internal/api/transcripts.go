package api

import (
	"context"
	"mime"
	"net/http"
	"strings"

	"github.com/mindscrole/reelscribe/internal/job"
	"github.com/mindscrole/reelscribe/internal/present"
	"github.com/rs/zerolog/hlog"
)

// JobRunner runs Jobs and reports pipeline counters.
type JobRunner interface {
	Run(ctx context.Context, src job.Source, onProgress job.ProgressFunc) (*job.Job, error)
	Stats() job.Stats
}

// TranscriptResponse is the JSON body of a successful transcription.
type TranscriptResponse struct {
	JobID           string         `json:"job_id"`
	FileName        string         `json:"filename"`
	Transcript      string         `json:"transcript"`
	Language        string         `json:"language,omitempty"`
	DurationSeconds float64        `json:"duration_seconds,omitempty"`
	Stages          []job.Progress `json:"stages"`
}

type createTranscriptRequest struct {
	URL string `json:"url"`
}

// TranscriptsHandler serves the JSON API. Jobs run on the server's
// lifetime context, not the request's: a client disconnect does not abort
// a Job, shutdown does.
type TranscriptsHandler struct {
	ctx      context.Context
	pipeline JobRunner
	maxBytes int64
}

func NewTranscriptsHandler(ctx context.Context, pipeline JobRunner, maxBytes int64) *TranscriptsHandler {
	return &TranscriptsHandler{ctx: ctx, pipeline: pipeline, maxBytes: maxBytes}
}

// Create handles POST /api/v1/transcripts with either a JSON {"url": ...}
// body or a multipart upload in the "file" field.
func (h *TranscriptsHandler) Create(w http.ResponseWriter, r *http.Request) {
	src, err := h.source(w, r)
	if err != nil {
		if isBadRequest(err) {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		WriteJobError(w, nil, err)
		return
	}

	j, err := h.pipeline.Run(h.ctx, src, nil)
	if err != nil {
		hlog.FromRequest(r).Debug().Err(err).Str("job_id", j.ID).Msg("transcription failed")
		WriteJobError(w, j, err)
		return
	}

	name := present.FileName(j.Source)
	if wantsText(r) {
		present.WriteAttachment(w, name, j.Transcript.Text)
		return
	}
	WriteJSON(w, http.StatusOK, TranscriptResponse{
		JobID:           j.ID,
		FileName:        name,
		Transcript:      j.Transcript.Text,
		Language:        j.Transcript.Language,
		DurationSeconds: j.Transcript.Duration.Seconds(),
		Stages:          j.History,
	})
}

func (h *TranscriptsHandler) source(w http.ResponseWriter, r *http.Request) (job.Source, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		if err := limitUpload(w, r, h.maxBytes); err != nil {
			return job.Source{}, err
		}
		return uploadSource(r)
	case "application/json", "":
		r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
		var req createTranscriptRequest
		if err := DecodeJSON(r, &req); err != nil {
			return job.Source{}, &badRequest{"invalid JSON body: " + err.Error()}
		}
		return urlSource(req.URL)
	default:
		return job.Source{}, &badRequest{"unsupported content type " + mediaType}
	}
}

func wantsText(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/plain") && !strings.Contains(accept, "application/json")
}
