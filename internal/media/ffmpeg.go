package media

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"

	"github.com/mindscrole/reelscribe/internal/command"
	"github.com/mindscrole/reelscribe/internal/job"
	"github.com/rs/zerolog"
)

const (
	// SampleRate is the rate speech-to-text backends expect.
	SampleRate = 16000
	// Channels is mono.
	Channels = 1
	// BitDepth of the s16le PCM output.
	BitDepth = 16

	audioFileName = "audio_16k_mono.wav"
)

// Extractor converts video files to mono 16 kHz PCM WAV with ffmpeg.
type Extractor struct {
	ffmpegPath string
	runner     command.Runner
	log        zerolog.Logger
}

// NewExtractor creates an ffmpeg-backed extractor. runner may be nil for os/exec.
func NewExtractor(ffmpegPath string, runner command.Runner, log zerolog.Logger) *Extractor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if runner == nil {
		runner = command.Exec{}
	}
	return &Extractor{
		ffmpegPath: ffmpegPath,
		runner:     runner,
		log:        log.With().Str("component", "ffmpeg").Logger(),
	}
}

// Extract writes the audio track of videoPath into dir and verifies the result.
func (e *Extractor) Extract(ctx context.Context, videoPath, dir string) (string, error) {
	outPath := filepath.Join(dir, audioFileName)
	args := buildFFmpegArgs(videoPath, outPath)

	res, err := e.runner.Run(ctx, e.ffmpegPath, args...)
	log := command.NewLog(e.ffmpegPath, args, res)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", job.Errorf(job.ProcessingFailure, err, "ffmpeg is not installed")
		}
		e.log.Debug().Int("exit_code", log.ExitCode).Str("stderr", log.Stderr).Msg("ffmpeg failed")
		return "", job.Errorf(job.ProcessingFailure, errors.Join(err, errors.New(command.Tail(res.Stderr, 512))),
			"could not read audio from the video; the file may be corrupt or use an unsupported codec")
	}

	info, err := Verify(outPath)
	if err != nil {
		return "", job.Errorf(job.ProcessingFailure, err, "extracted audio is invalid")
	}
	e.log.Debug().
		Dur("duration", info.Duration).
		Int("sample_rate", info.SampleRate).
		Msg("audio extracted")
	return outPath, nil
}

// buildFFmpegArgs builds the CLI args for mono 16 kHz PCM WAV output.
func buildFFmpegArgs(inputPath, outPath string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-loglevel", "error",
		"-y",
		"-i", inputPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		outPath,
	}
}
