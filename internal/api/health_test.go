package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mindscrole/reelscribe/internal/inbox"
)

type fakeBroker struct{ connected bool }

func (f fakeBroker) IsConnected() bool { return f.connected }

type fakeInbox struct{}

func (fakeInbox) Status() inbox.Status {
	return inbox.Status{Status: "watching", WatchDir: "/srv/inbox", FilesProcessed: 4}
}

func serveHealth(t *testing.T, h *HealthHandler) (int, HealthResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/health", nil))
	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	return rec.Code, resp
}

func TestHealth(t *testing.T) {
	t.Run("healthy_without_optional_features", func(t *testing.T) {
		code, resp := serveHealth(t, NewHealthHandler(&fakePipeline{}, fakeModel{}, nil, nil, "v1", time.Now()))
		if code != http.StatusOK || resp.Status != "healthy" {
			t.Errorf("got %d %q, want 200 healthy", code, resp.Status)
		}
		if resp.Checks["mqtt"] != "not_configured" || resp.Checks["nats"] != "not_configured" || resp.Checks["inbox"] != "not_configured" {
			t.Errorf("unexpected checks %v", resp.Checks)
		}
		if resp.Model == nil || resp.Model.Provider != "whisper" || resp.Model.Name != "base" {
			t.Errorf("unexpected model %+v", resp.Model)
		}
		if resp.Jobs.Completed != 2 || resp.Jobs.Failed != 1 {
			t.Errorf("unexpected jobs %+v", resp.Jobs)
		}
	})

	t.Run("disconnected_broker_is_degraded", func(t *testing.T) {
		code, resp := serveHealth(t, NewHealthHandler(&fakePipeline{}, fakeModel{}, fakeBroker{false}, fakeInbox{}, "v1", time.Now()))
		if code != http.StatusOK || resp.Status != "degraded" {
			t.Errorf("got %d %q, want 200 degraded", code, resp.Status)
		}
		if resp.Checks["inbox"] != "watching" || resp.Inbox == nil || resp.Inbox.FilesProcessed != 4 {
			t.Errorf("unexpected inbox %v %+v", resp.Checks, resp.Inbox)
		}
	})

	t.Run("disconnected_stream_is_degraded", func(t *testing.T) {
		h := NewHealthHandler(&fakePipeline{}, fakeModel{}, fakeBroker{true}, nil, "v1", time.Now()).
			WithStream(fakeBroker{false})
		code, resp := serveHealth(t, h)
		if code != http.StatusOK || resp.Status != "degraded" {
			t.Errorf("got %d %q, want 200 degraded", code, resp.Status)
		}
		if resp.Checks["mqtt"] != "ok" || resp.Checks["nats"] != "disconnected" {
			t.Errorf("unexpected checks %v", resp.Checks)
		}
	})

	t.Run("no_model_is_unhealthy", func(t *testing.T) {
		code, resp := serveHealth(t, NewHealthHandler(&fakePipeline{}, nil, fakeBroker{true}, nil, "v1", time.Now()))
		if code != http.StatusServiceUnavailable || resp.Status != "unhealthy" {
			t.Errorf("got %d %q, want 503 unhealthy", code, resp.Status)
		}
	})
}
