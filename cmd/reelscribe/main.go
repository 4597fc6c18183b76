package main

import (
	"fmt"
	"os"

	"github.com/mindscrole/reelscribe/internal/config"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var overrides config.Overrides

	root := &cobra.Command{
		Use:   "reelscribe",
		Short: "Turn short-form videos into text transcripts",
		Long: `reelscribe downloads a video from a link (Instagram Reels, YouTube,
TikTok, or a direct media URL) or takes an uploaded file, extracts its audio,
and transcribes the speech with a speech-to-text model.

Run without a subcommand to start the web UI and HTTP API.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), overrides)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&overrides.EnvFile, "env-file", "", "Path to .env file (default: .env)")
	pf.StringVar(&overrides.LogLevel, "log-level", "", "Log level: debug, info, warn, error (env: LOG_LEVEL)")
	pf.StringVar(&overrides.WorkDir, "work-dir", "", "Parent directory for per-job scratch space (env: WORK_DIR)")
	pf.StringVar(&overrides.STTProvider, "stt-provider", "", "Speech-to-text backend: whisper, openai, exec (env: STT_PROVIDER)")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the web UI and HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), overrides)
		},
	}
	serve.Flags().StringVar(&overrides.HTTPAddr, "listen", "", "HTTP listen address (env: HTTP_ADDR)")
	serve.Flags().StringVar(&overrides.WatchDir, "watch-dir", "", "Transcribe videos dropped into this directory (env: WATCH_DIR)")
	root.Flags().AddFlagSet(serve.Flags())

	root.AddCommand(serve, newTranscribeCmd(&overrides))
	root.SetVersionTemplate(fmt.Sprintf("reelscribe %s\n", version))
	return root
}
