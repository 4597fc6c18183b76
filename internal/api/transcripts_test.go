package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mindscrole/reelscribe/internal/job"
)

func TestCreateTranscriptFromURL(t *testing.T) {
	p := &fakePipeline{text: "hello from the reel"}
	h := newTestRouter(t, p, "")

	req := httptest.NewRequest("POST", "/api/v1/transcripts", strings.NewReader(`{"url":"https://www.instagram.com/reel/Cabc123/"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp TranscriptResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Transcript != "hello from the reel" {
		t.Errorf("transcript = %q", resp.Transcript)
	}
	if resp.FileName != "Cabc123_transcript.txt" {
		t.Errorf("filename = %q, want Cabc123_transcript.txt", resp.FileName)
	}
	if resp.DurationSeconds != 3 {
		t.Errorf("duration_seconds = %v, want 3", resp.DurationSeconds)
	}
	if p.lastSrc.Kind != job.SourceURL || p.lastSrc.URL != "https://www.instagram.com/reel/Cabc123/" {
		t.Errorf("unexpected source %+v", p.lastSrc)
	}
}

func TestCreateTranscriptPlainText(t *testing.T) {
	h := newTestRouter(t, &fakePipeline{text: "plain words"}, "")

	req := httptest.NewRequest("POST", "/api/v1/transcripts", strings.NewReader(`{"url":"https://youtu.be/xyz"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/plain")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Disposition"); got != "attachment; filename=xyz_transcript.txt" {
		t.Errorf("Content-Disposition = %q", got)
	}
	if rec.Body.String() != "plain words" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestCreateTranscriptFromUpload(t *testing.T) {
	p := &fakePipeline{text: "uploaded speech"}
	h := newTestRouter(t, p, "")

	body, ct := buildMultipartForm(t, map[string]string{"note": "ignored"}, "file", []byte("video-bytes"), "clip.mp4")
	req := httptest.NewRequest("POST", "/api/v1/transcripts", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if p.lastSrc.Kind != job.SourceUpload || p.lastSrc.Name != "clip.mp4" {
		t.Errorf("unexpected source %+v", p.lastSrc)
	}
	if string(p.body) != "video-bytes" {
		t.Errorf("streamed body = %q, want video-bytes", p.body)
	}
	if !strings.Contains(rec.Body.String(), `"filename":"clip.mp4_transcript.txt"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestCreateTranscriptErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		category string
	}{
		{"source_unavailable", job.Errorf(job.SourceUnavailable, nil, "this content is private"), http.StatusUnprocessableEntity, "source_unavailable"},
		{"rate_limited", job.Errorf(job.RateLimited, errors.New("HTTP Error 429"), "the platform is rate limiting downloads"), http.StatusTooManyRequests, "rate_limited"},
		{"too_large", job.Errorf(job.InputTooLarge, nil, "file exceeds 200 MB"), http.StatusRequestEntityTooLarge, "input_too_large"},
		{"processing", job.Errorf(job.ProcessingFailure, nil, "no speech detected in the audio"), http.StatusInternalServerError, "processing_failure"},
		{"untyped", errors.New("boom"), http.StatusInternalServerError, "processing_failure"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(t, &fakePipeline{err: tt.err}, "")
			req := httptest.NewRequest("POST", "/api/v1/transcripts", strings.NewReader(`{"url":"https://youtu.be/xyz"}`))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Errorf("expected %d, got %d", tt.status, rec.Code)
			}
			var resp ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatal(err)
			}
			if string(resp.Category) != tt.category {
				t.Errorf("category = %q, want %q", resp.Category, tt.category)
			}
			if resp.Title == "" || len(resp.Remedies) == 0 {
				t.Errorf("missing title/remedies: %+v", resp)
			}
			if resp.JobID == "" {
				t.Error("missing job_id")
			}
		})
	}
}

func TestCreateTranscriptBadRequests(t *testing.T) {
	tests := []struct {
		name string
		ct   string
		body string
	}{
		{"invalid_json", "application/json", `{"url":`},
		{"missing_url", "application/json", `{}`},
		{"blank_url", "application/json", `{"url":"   "}`},
		{"unsupported_type", "text/xml", `<url/>`},
		{"multipart_without_file", "multipart/form-data; boundary=xyz", "--xyz--\r\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakePipeline{}
			h := newTestRouter(t, p, "")
			req := httptest.NewRequest("POST", "/api/v1/transcripts", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.ct)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			if p.calls != 0 {
				t.Error("pipeline should not run for a bad request")
			}
		})
	}
}

func TestCreateTranscriptRejectsOversizedUploadUpFront(t *testing.T) {
	p := &fakePipeline{}
	h := newTestRouter(t, p, "")

	body, ct := buildMultipartForm(t, nil, "file", []byte("x"), "big.mp4")
	req := httptest.NewRequest("POST", "/api/v1/transcripts", body)
	req.Header.Set("Content-Type", ct)
	req.ContentLength = 5 << 20
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rec.Code)
	}
	if p.calls != 0 {
		t.Error("pipeline should not run for an oversized upload")
	}
}

func TestCreateTranscriptRequiresToken(t *testing.T) {
	h := newTestRouter(t, &fakePipeline{text: "x"}, "secret")

	req := httptest.NewRequest("POST", "/api/v1/transcripts", strings.NewReader(`{"url":"https://youtu.be/xyz"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}

	req = httptest.NewRequest("POST", "/api/v1/transcripts", strings.NewReader(`{"url":"https://youtu.be/xyz"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with token, got %d", rec.Code)
	}
}
