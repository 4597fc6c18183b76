package job

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// Stage is a step of the per-Job state machine:
// Idle → Fetching → ExtractingAudio → Transcribing → Done, with any
// non-terminal stage able to move to Failed.
type Stage string

const (
	StageIdle            Stage = "idle"
	StageFetching        Stage = "fetching"
	StageExtractingAudio Stage = "extracting_audio"
	StageTranscribing    Stage = "transcribing"
	StageDone            Stage = "done"
	StageFailed          Stage = "failed"
)

var nextStage = map[Stage]Stage{
	StageIdle:            StageFetching,
	StageFetching:        StageExtractingAudio,
	StageExtractingAudio: StageTranscribing,
	StageTranscribing:    StageDone,
}

// Terminal reports whether no further transitions are allowed.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailed
}

// Percent is the progress value reported when the stage is entered.
func (s Stage) Percent() int {
	switch s {
	case StageFetching:
		return 20
	case StageExtractingAudio:
		return 40
	case StageTranscribing:
		return 80
	case StageDone:
		return 100
	default:
		return 0
	}
}

// Message is the status line shown while the stage runs.
func (s Stage) Message(kind SourceKind) string {
	switch s {
	case StageFetching:
		if kind == SourceUpload {
			return "Saving uploaded file..."
		}
		return "Downloading video..."
	case StageExtractingAudio:
		return "Extracting audio..."
	case StageTranscribing:
		return "Transcribing audio..."
	case StageDone:
		return "Transcription complete!"
	case StageFailed:
		return "Transcription failed"
	default:
		return "Waiting"
	}
}

// SourceKind says where the video comes from.
type SourceKind string

const (
	SourceURL    SourceKind = "url"
	SourceUpload SourceKind = "upload"
)

// Source is the user's input: a remote URL or an uploaded file stream.
type Source struct {
	Kind SourceKind
	URL  string

	// Upload fields. Size is the declared size in bytes, or -1 if unknown.
	Name string
	Size int64
	Body io.Reader
}

// URLSource builds a Source for a remote video link.
func URLSource(rawURL string) Source {
	return Source{Kind: SourceURL, URL: rawURL, Size: -1}
}

// UploadSource builds a Source for an uploaded file.
func UploadSource(name string, size int64, body io.Reader) Source {
	return Source{Kind: SourceUpload, Name: name, Size: size, Body: body}
}

// Label identifies the source in logs.
func (s Source) Label() string {
	if s.Kind == SourceUpload {
		return s.Name
	}
	return s.URL
}

// Transcript is the speech-to-text result, held in memory only.
type Transcript struct {
	Text     string
	Language string
	Duration time.Duration
}

// Progress is emitted on every stage transition.
type Progress struct {
	JobID    string    `json:"job_id"`
	Stage    Stage     `json:"stage"`
	Percent  int       `json:"percent"`
	Message  string    `json:"message"`
	Category Category  `json:"category,omitempty"`
	At       time.Time `json:"at"`
}

// ProgressFunc receives stage transitions.
type ProgressFunc func(Progress)

// Job is one user-initiated transcription request.
type Job struct {
	ID         string
	Source     Source
	Stage      Stage
	Transcript Transcript
	Err        *Error
	History    []Progress
	CreatedAt  time.Time
	FinishedAt time.Time
}

// New creates an idle Job for src.
func New(src Source) *Job {
	return &Job{
		ID:        uuid.NewString(),
		Source:    src,
		Stage:     StageIdle,
		CreatedAt: time.Now(),
	}
}

// advance moves the Job to the next stage. Only the forward path and
// failure from a non-terminal stage are legal.
func (j *Job) advance(to Stage) error {
	if j.Stage.Terminal() {
		return fmt.Errorf("job %s: already %s", j.ID, j.Stage)
	}
	if to != StageFailed && nextStage[j.Stage] != to {
		return fmt.Errorf("job %s: illegal transition %s -> %s", j.ID, j.Stage, to)
	}
	j.Stage = to
	p := Progress{
		JobID:   j.ID,
		Stage:   to,
		Percent: to.Percent(),
		Message: to.Message(j.Source.Kind),
		At:      time.Now(),
	}
	if to == StageFailed && j.Err != nil {
		p.Category = j.Err.Category
	}
	if to.Terminal() {
		j.FinishedAt = p.At
	}
	j.History = append(j.History, p)
	return nil
}

// Last returns the most recent progress entry.
func (j *Job) Last() Progress {
	if len(j.History) == 0 {
		return Progress{JobID: j.ID, Stage: j.Stage, At: j.CreatedAt}
	}
	return j.History[len(j.History)-1]
}
