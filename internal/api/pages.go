package api

import (
	"bytes"
	"context"
	"net/http"
	"strings"

	"github.com/mindscrole/reelscribe/internal/fetch"
	"github.com/mindscrole/reelscribe/internal/job"
	"github.com/mindscrole/reelscribe/internal/present"
	"github.com/rs/zerolog/hlog"
)

// maxDownloadForm bounds POST /download; the transcript is echoed back.
const maxDownloadForm = 8 << 20

// PagesHandler serves the browser UI: an intake form with URL and upload
// tabs, and a result page with the transcript and a download button.
type PagesHandler struct {
	ctx      context.Context
	pipeline JobRunner
	renderer *present.Renderer
	maxBytes int64
}

func NewPagesHandler(ctx context.Context, pipeline JobRunner, renderer *present.Renderer, maxBytes int64) *PagesHandler {
	return &PagesHandler{ctx: ctx, pipeline: pipeline, renderer: renderer, maxBytes: maxBytes}
}

// Index handles GET /.
func (h *PagesHandler) Index(w http.ResponseWriter, r *http.Request) {
	tab := present.TabURL
	if r.URL.Query().Get("tab") == present.TabUpload {
		tab = present.TabUpload
	}
	h.render(w, r, http.StatusOK, h.view(tab))
}

// TranscribeURL handles POST /transcribe/url.
func (h *PagesHandler) TranscribeURL(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	raw := strings.TrimSpace(r.PostFormValue("url"))
	v := h.view(present.TabURL)
	v.URL = raw

	src, err := urlSource(raw)
	if err != nil {
		v.Failure = present.NewFailure(nil, job.Errorf(job.SourceUnavailable, nil, "%s", err.Error()))
		h.render(w, r, http.StatusBadRequest, v)
		return
	}
	h.run(w, r, v, src)
}

// TranscribeUpload handles POST /transcribe/upload.
func (h *PagesHandler) TranscribeUpload(w http.ResponseWriter, r *http.Request) {
	v := h.view(present.TabUpload)
	if err := limitUpload(w, r, h.maxBytes); err != nil {
		v.Failure = present.NewFailure(nil, err)
		h.render(w, r, StatusFor(job.CategoryOf(err, job.ProcessingFailure)), v)
		return
	}
	src, err := uploadSource(r)
	if err != nil {
		status := http.StatusBadRequest
		if !isBadRequest(err) {
			status = StatusFor(job.CategoryOf(err, job.ProcessingFailure))
		} else {
			err = job.Errorf(job.ProcessingFailure, nil, "%s", err.Error())
		}
		v.Failure = present.NewFailure(nil, err)
		h.render(w, r, status, v)
		return
	}
	h.run(w, r, v, src)
}

// Download handles POST /download, returning the posted transcript as a
// text/plain attachment. Nothing is stored server-side.
func (h *PagesHandler) Download(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxDownloadForm)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	text := r.PostForm.Get("transcript")
	if strings.TrimSpace(text) == "" {
		http.Error(w, "nothing to download", http.StatusBadRequest)
		return
	}
	present.WriteAttachment(w, present.SanitizeFileName(r.PostForm.Get("filename")), text)
}

func (h *PagesHandler) run(w http.ResponseWriter, r *http.Request, v present.PageView, src job.Source) {
	j, err := h.pipeline.Run(h.ctx, src, nil)
	if err != nil {
		hlog.FromRequest(r).Debug().Err(err).Str("job_id", j.ID).Msg("transcription failed")
		v.Failure = present.NewFailure(j, err)
		h.render(w, r, StatusFor(job.CategoryOf(err, job.ProcessingFailure)), v)
		return
	}
	v.Result = present.NewResult(j)
	h.render(w, r, http.StatusOK, v)
}

func (h *PagesHandler) view(tab string) present.PageView {
	return present.PageView{
		Tab:         tab,
		MaxUploadMB: int(h.maxBytes >> 20),
		Extensions:  fetch.VideoExtensions,
	}
}

func (h *PagesHandler) render(w http.ResponseWriter, r *http.Request, status int, v present.PageView) {
	var buf bytes.Buffer
	if err := h.renderer.Page(&buf, v); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("render page")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
