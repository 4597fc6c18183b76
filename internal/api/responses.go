package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/mindscrole/reelscribe/internal/job"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is the standard error response body. Job failures fill in
// the category fields.
type ErrorResponse struct {
	Error    string       `json:"error"`
	Detail   string       `json:"detail,omitempty"`
	JobID    string       `json:"job_id,omitempty"`
	Category job.Category `json:"category,omitempty"`
	Title    string       `json:"title,omitempty"`
	Remedies []string     `json:"remedies,omitempty"`
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, ErrorResponse{Error: msg})
}

// WriteJobError writes a categorized failure. j may be nil when the request
// was rejected before a Job was created.
func WriteJobError(w http.ResponseWriter, j *job.Job, err error) {
	c := job.CategoryOf(err, job.ProcessingFailure)
	resp := ErrorResponse{
		Error:    err.Error(),
		Category: c,
		Title:    c.Title(),
		Remedies: c.Remedies(),
	}
	if e, ok := job.AsError(err); ok && e.Message != "" {
		resp.Error = e.Message
		if e.Err != nil {
			resp.Detail = e.Err.Error()
		}
	}
	if j != nil {
		resp.JobID = j.ID
	}
	WriteJSON(w, StatusFor(c), resp)
}

// StatusFor maps a failure category to an HTTP status code.
func StatusFor(c job.Category) int {
	switch c {
	case job.SourceUnavailable:
		return http.StatusUnprocessableEntity
	case job.RateLimited:
		return http.StatusTooManyRequests
	case job.InputTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// DecodeJSON reads and decodes a JSON request body into v.
func DecodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return fmt.Errorf("missing request body")
	}
	return json.NewDecoder(r.Body).Decode(v)
}

// isBodyTooLarge reports whether err came from http.MaxBytesReader.
func isBodyTooLarge(err error) bool {
	var tooBig *http.MaxBytesError
	return errors.As(err, &tooBig)
}
