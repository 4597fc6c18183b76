package job

import (
	"errors"
	"fmt"
)

// Category classifies why a Job failed. Each category maps to a distinct
// user-facing message and remedy.
type Category string

const (
	// SourceUnavailable: invalid URL, unreachable host, private or removed content.
	SourceUnavailable Category = "source_unavailable"
	// RateLimited: the source platform throttled or blocked automated access.
	RateLimited Category = "rate_limited"
	// ProcessingFailure: audio extraction or transcription failed.
	ProcessingFailure Category = "processing_failure"
	// InputTooLarge: the uploaded or downloaded file exceeds the size bound.
	InputTooLarge Category = "input_too_large"
)

// Title is the short headline shown to the user.
func (c Category) Title() string {
	switch c {
	case SourceUnavailable:
		return "Content Not Available"
	case RateLimited:
		return "Rate Limit Reached"
	case InputTooLarge:
		return "File Too Large"
	default:
		return "Processing Failed"
	}
}

// Remedies lists suggestions the user can act on.
func (c Category) Remedies() []string {
	switch c {
	case SourceUnavailable:
		return []string{
			"Check that the URL is correct and points to a single video",
			"The content might be private or removed; try a public video",
			"Download the video manually and upload the file instead",
		}
	case RateLimited:
		return []string{
			"Wait a few minutes and try again",
			"Try a different video URL",
			"Use YouTube Shorts or TikTok instead",
			"Make sure the account is public",
			"Download the video manually and upload the file instead",
		}
	case InputTooLarge:
		return []string{
			"Trim the video or export it at a lower quality",
			"Upload only the part you need transcribed",
		}
	default:
		return []string{
			"Make sure the file is a playable video with an audio track",
			"Re-export the video as MP4 and try again",
		}
	}
}

// Error is a categorized Job failure. Collaborators return it so the
// pipeline never has to inspect error text.
type Error struct {
	Category Category
	Stage    Stage
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" {
		msg = string(e.Category)
	}
	if e.Stage != "" {
		msg = fmt.Sprintf("%s: %s", e.Stage, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Errorf builds a categorized error wrapping err (which may be nil).
func Errorf(c Category, err error, format string, args ...any) *Error {
	return &Error{Category: c, Message: fmt.Sprintf(format, args...), Err: err}
}

// AsError extracts the categorized error from err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CategoryOf returns err's category, or fallback when err is not categorized.
func CategoryOf(err error, fallback Category) Category {
	if e, ok := AsError(err); ok {
		return e.Category
	}
	return fallback
}

// classify attaches a stage and, if needed, a fallback category to err.
func classify(err error, stage Stage, fallback Category) *Error {
	if e, ok := AsError(err); ok {
		out := *e
		if out.Stage == "" {
			out.Stage = stage
		}
		return &out
	}
	return &Error{Category: fallback, Stage: stage, Err: err}
}
