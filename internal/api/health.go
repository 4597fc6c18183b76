package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/mindscrole/reelscribe/internal/inbox"
	"github.com/mindscrole/reelscribe/internal/job"
)

// ModelInfo describes the loaded speech-to-text model.
type ModelInfo interface {
	Provider() string
	Name() string
	LoadedAt() time.Time
}

// BrokerStatus reports a progress publisher's connection (MQTT or NATS).
type BrokerStatus interface {
	IsConnected() bool
}

// InboxStatus reports the drop-folder watcher.
type InboxStatus interface {
	Status() inbox.Status
}

type ModelHealth struct {
	Provider string    `json:"provider"`
	Name     string    `json:"name"`
	LoadedAt time.Time `json:"loaded_at"`
}

type HealthResponse struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Checks        map[string]string `json:"checks"`
	Model         *ModelHealth      `json:"model,omitempty"`
	Jobs          job.Stats         `json:"jobs"`
	Inbox         *inbox.Status     `json:"inbox,omitempty"`
}

type HealthHandler struct {
	pipeline  JobRunner
	model     ModelInfo
	broker    BrokerStatus
	stream    BrokerStatus
	inbox     InboxStatus
	version   string
	startTime time.Time
}

// NewHealthHandler creates the health handler. broker and inbox may be nil.
func NewHealthHandler(pipeline JobRunner, model ModelInfo, broker BrokerStatus, inbox InboxStatus, version string, startTime time.Time) *HealthHandler {
	return &HealthHandler{
		pipeline:  pipeline,
		model:     model,
		broker:    broker,
		inbox:     inbox,
		version:   version,
		startTime: startTime,
	}
}

// WithStream adds the NATS publisher to the checks.
func (h *HealthHandler) WithStream(stream BrokerStatus) *HealthHandler {
	h.stream = stream
	return h
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	status := "healthy"
	httpStatus := http.StatusOK

	resp := HealthResponse{
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Checks:        checks,
		Jobs:          h.pipeline.Stats(),
	}

	// Model check
	if h.model != nil {
		checks["model"] = "ok"
		resp.Model = &ModelHealth{
			Provider: h.model.Provider(),
			Name:     h.model.Name(),
			LoadedAt: h.model.LoadedAt(),
		}
	} else {
		checks["model"] = "not_loaded"
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	// Publisher checks
	for name, b := range map[string]BrokerStatus{"mqtt": h.broker, "nats": h.stream} {
		switch {
		case b == nil:
			checks[name] = "not_configured"
		case b.IsConnected():
			checks[name] = "ok"
		default:
			checks[name] = "disconnected"
			if status == "healthy" {
				status = "degraded"
			}
		}
	}

	// Inbox watcher check
	if h.inbox != nil {
		s := h.inbox.Status()
		checks["inbox"] = s.Status
		resp.Inbox = &s
	} else {
		checks["inbox"] = "not_configured"
	}

	resp.Status = status
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(resp)
}
