package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mindscrole/reelscribe/internal/config"
	"github.com/mindscrole/reelscribe/internal/job"
	"github.com/mindscrole/reelscribe/internal/present"
	"github.com/spf13/cobra"
)

func newTranscribeCmd(overrides *config.Overrides) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcribe <url|file>",
		Short: "Transcribe one video and print the transcript",
		Long: `Transcribe a single video without starting the server.

The argument is either a video link (Instagram Reel, YouTube, TikTok, or a
direct media URL) or a local video file. The transcript goes to stdout unless
--output is given; progress is written to stderr.`,
		Example: `  reelscribe transcribe https://www.youtube.com/shorts/abc123
  reelscribe transcribe clip.mp4 -o clip.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			return runTranscribe(cmd.Context(), *overrides, args[0], output, cmd.ErrOrStderr(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	return cmd
}

func runTranscribe(ctx context.Context, overrides config.Overrides, input, output string, stderr, stdout io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(overrides)
	if err != nil {
		return err
	}
	// Logs go to stderr, quiet by default so the transcript is the only stdout output.
	level := cfg.LogLevel
	if overrides.LogLevel == "" {
		level = "warn"
	}
	log := newLogger(level, stderr)

	pipeline, _, err := buildPipeline(ctx, cfg, log)
	if err != nil {
		return err
	}

	src, closeSrc, err := sourceFor(input)
	if err != nil {
		return err
	}
	defer closeSrc()

	j, err := pipeline.Run(ctx, src, func(p job.Progress) {
		fmt.Fprintf(stderr, "[%3d%%] %s\n", p.Percent, p.Message)
	})
	if err != nil {
		fv := present.NewFailure(j, err)
		fmt.Fprintf(stderr, "\n%s: %s\n", fv.Title, fv.Message)
		for _, r := range fv.Remedies {
			fmt.Fprintf(stderr, "  - %s\n", r)
		}
		return err
	}

	if output == "" {
		_, err := fmt.Fprintln(stdout, j.Transcript.Text)
		return err
	}
	if err := os.WriteFile(output, []byte(j.Transcript.Text+"\n"), 0o644); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	fmt.Fprintf(stderr, "transcript written to %s\n", output)
	return nil
}

// sourceFor treats anything with a scheme as a URL and everything else as
// a local file.
func sourceFor(input string) (job.Source, func(), error) {
	if strings.Contains(input, "://") {
		return job.URLSource(input), func() {}, nil
	}
	f, err := os.Open(input)
	if err != nil {
		return job.Source{}, nil, fmt.Errorf("open video: %w", err)
	}
	size := int64(-1)
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}
	return job.UploadSource(filepath.Base(input), size, f), func() { f.Close() }, nil
}
