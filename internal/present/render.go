package present

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"time"

	"github.com/mindscrole/reelscribe/internal/job"
)

// Tabs of the intake form.
const (
	TabURL    = "url"
	TabUpload = "upload"
)

// PageView is everything the page template needs.
type PageView struct {
	Tab         string
	URL         string
	MaxUploadMB int
	Extensions  []string
	Result      *ResultView
	Failure     *FailureView
}

// ResultView is a successful Job.
type ResultView struct {
	JobID    string
	Source   string
	FileName string
	Text     string
	Language string
	Duration string
	Words    int
	Steps    []job.Progress
}

// FailureView is a failed Job or a rejected request.
type FailureView struct {
	Category job.Category
	Title    string
	Message  string
	Remedies []string
	Steps    []job.Progress
}

// NewResult builds the view of a finished Job.
func NewResult(j *job.Job) *ResultView {
	return &ResultView{
		JobID:    j.ID,
		Source:   j.Source.Label(),
		FileName: FileName(j.Source),
		Text:     j.Transcript.Text,
		Language: j.Transcript.Language,
		Duration: formatDuration(j.Transcript.Duration),
		Words:    len(bytes.Fields([]byte(j.Transcript.Text))),
		Steps:    j.History,
	}
}

// NewFailure builds the view of a failed Job. j may be nil when the request
// was rejected before a Job existed.
func NewFailure(j *job.Job, err error) *FailureView {
	c := job.CategoryOf(err, job.ProcessingFailure)
	msg := err.Error()
	if e, ok := job.AsError(err); ok && e.Message != "" {
		msg = e.Message
	}
	fv := &FailureView{
		Category: c,
		Title:    c.Title(),
		Message:  msg,
		Remedies: c.Remedies(),
	}
	if j != nil {
		fv.Steps = j.History
	}
	return fv
}

// Renderer executes the HTML page template.
type Renderer struct {
	page *template.Template
}

// NewRenderer parses templates/page.html from webFS.
func NewRenderer(webFS fs.FS) (*Renderer, error) {
	page, err := template.New("page.html").Funcs(template.FuncMap{
		"clock": func(t time.Time) string { return t.Format("15:04:05") },
	}).ParseFS(webFS, "templates/page.html")
	if err != nil {
		return nil, fmt.Errorf("parse page template: %w", err)
	}
	return &Renderer{page: page}, nil
}

// Page renders v. The template is executed into a buffer so a failing
// render never leaves a half-written response.
func (r *Renderer) Page(w io.Writer, v PageView) error {
	if v.Tab == "" {
		v.Tab = TabURL
	}
	var buf bytes.Buffer
	if err := r.page.Execute(&buf, v); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	d = d.Round(time.Second)
	m := int(d / time.Minute)
	s := int((d % time.Minute) / time.Second)
	return fmt.Sprintf("%d:%02d", m, s)
}
