package api

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/mindscrole/reelscribe"
	"github.com/mindscrole/reelscribe/internal/config"
	"github.com/mindscrole/reelscribe/internal/job"
	"github.com/rs/zerolog"
)

// fakePipeline implements JobRunner, draining upload bodies the way the
// real resolver does.
type fakePipeline struct {
	mu      sync.Mutex
	calls   int
	lastSrc job.Source
	body    []byte
	text    string
	err     error

	// urlDelay holds the pipeline for URL Jobs; entered is signalled once
	// such a Job holds the lock.
	urlDelay time.Duration
	entered  chan struct{}
}

func (f *fakePipeline) Run(ctx context.Context, src job.Source, onProgress job.ProgressFunc) (*job.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastSrc = src
	if src.Kind == job.SourceURL && f.urlDelay > 0 {
		if f.entered != nil {
			close(f.entered)
			f.entered = nil
		}
		time.Sleep(f.urlDelay)
	}
	if src.Body != nil {
		f.body, _ = io.ReadAll(src.Body)
	}
	j := job.New(src)
	if f.err != nil {
		return j, f.err
	}
	j.Transcript = job.Transcript{Text: f.text, Language: "en", Duration: 3 * time.Second}
	return j, nil
}

func (f *fakePipeline) Stats() job.Stats {
	return job.Stats{Completed: 2, Failed: 1}
}

type fakeModel struct{}

func (fakeModel) Provider() string    { return "whisper" }
func (fakeModel) Name() string        { return "base" }
func (fakeModel) LoadedAt() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

func newTestRouter(t *testing.T, p JobRunner, token string) http.Handler {
	t.Helper()
	webFS, err := fs.Sub(reelscribe.WebFiles, "web")
	if err != nil {
		t.Fatal(err)
	}
	h, err := NewRouter(context.Background(), ServerOptions{
		Config:    &config.Config{MaxUploadMB: 1, AuthToken: token},
		Pipeline:  p,
		Model:     fakeModel{},
		WebFS:     webFS,
		Version:   "test",
		StartTime: time.Now(),
		Log:       zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	return h
}

func buildMultipartForm(t *testing.T, fields map[string]string, fileField string, fileData []byte, fileName string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		writer.WriteField(k, v)
	}
	if fileData != nil && fileField != "" {
		part, err := writer.CreateFormFile(fileField, fileName)
		if err != nil {
			t.Fatal(err)
		}
		part.Write(fileData)
	}
	writer.Close()
	return body, writer.FormDataContentType()
}
