package job

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobAdvance(t *testing.T) {
	t.Run("forward_path", func(t *testing.T) {
		j := New(URLSource("https://youtu.be/x"))
		require.Equal(t, StageIdle, j.Stage)
		for _, s := range []Stage{StageFetching, StageExtractingAudio, StageTranscribing, StageDone} {
			require.NoError(t, j.advance(s))
		}
		assert.True(t, j.Stage.Terminal())
		assert.False(t, j.FinishedAt.IsZero())
		assert.Len(t, j.History, 4)
	})

	t.Run("skipping_a_stage_is_illegal", func(t *testing.T) {
		j := New(URLSource("https://youtu.be/x"))
		require.NoError(t, j.advance(StageFetching))
		assert.Error(t, j.advance(StageTranscribing))
		assert.Equal(t, StageFetching, j.Stage)
	})

	t.Run("any_stage_can_fail", func(t *testing.T) {
		for _, s := range []Stage{StageIdle, StageFetching, StageExtractingAudio, StageTranscribing} {
			j := &Job{ID: "x", Stage: s}
			assert.NoError(t, j.advance(StageFailed), "from %s", s)
		}
	})

	t.Run("terminal_stages_are_final", func(t *testing.T) {
		for _, s := range []Stage{StageDone, StageFailed} {
			j := &Job{ID: "x", Stage: s}
			assert.Error(t, j.advance(StageFailed))
			assert.Error(t, j.advance(StageFetching))
		}
	})

	t.Run("failure_event_carries_category", func(t *testing.T) {
		j := New(URLSource("https://youtu.be/x"))
		require.NoError(t, j.advance(StageFetching))
		j.Err = Errorf(RateLimited, nil, "throttled")
		require.NoError(t, j.advance(StageFailed))
		assert.Equal(t, RateLimited, j.Last().Category)
	})
}

func TestStageMessages(t *testing.T) {
	assert.Equal(t, "Saving uploaded file...", StageFetching.Message(SourceUpload))
	assert.Equal(t, "Downloading video...", StageFetching.Message(SourceURL))
	assert.Equal(t, "Transcription complete!", StageDone.Message(SourceURL))
	assert.Equal(t, 0, StageIdle.Percent())
}

func TestErrorChain(t *testing.T) {
	root := errors.New("exit status 1")
	e := Errorf(ProcessingFailure, root, "ffmpeg failed")
	e.Stage = StageExtractingAudio

	wrapped := fmt.Errorf("run: %w", e)
	got, ok := AsError(wrapped)
	require.True(t, ok)
	assert.Equal(t, ProcessingFailure, got.Category)
	assert.True(t, errors.Is(wrapped, root))
	assert.Equal(t, "extracting_audio: ffmpeg failed: exit status 1", e.Error())

	assert.Equal(t, SourceUnavailable, CategoryOf(errors.New("plain"), SourceUnavailable))
}

func TestClassifyKeepsCategoryAddsStage(t *testing.T) {
	in := Errorf(RateLimited, nil, "HTTP 429")
	out := classify(in, StageFetching, SourceUnavailable)
	assert.Equal(t, RateLimited, out.Category)
	assert.Equal(t, StageFetching, out.Stage)

	plain := classify(errors.New("boom"), StageTranscribing, ProcessingFailure)
	assert.Equal(t, ProcessingFailure, plain.Category)
	assert.Equal(t, StageTranscribing, plain.Stage)
}

func TestCategoryText(t *testing.T) {
	for _, c := range []Category{SourceUnavailable, RateLimited, ProcessingFailure, InputTooLarge} {
		assert.NotEmpty(t, c.Title(), c)
		assert.NotEmpty(t, c.Remedies(), c)
	}
	assert.Contains(t, RateLimited.Remedies(), "Wait a few minutes and try again")
}
