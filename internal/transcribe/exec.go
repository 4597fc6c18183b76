package transcribe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mattn/go-shellwords"
	"github.com/mindscrole/reelscribe/internal/command"
)

// ExecClient runs a local whisper.cpp-style CLI:
//
//	<command> -m <model> -f <audio.wav> -of <base> -otxt [-l <lang>]
//
// and reads the transcript from <base>.txt.
type ExecClient struct {
	argv      []string
	modelPath string
	model     string // resolved model file, set by Load
	runner    command.Runner
	lookPath  func(file string) (string, error)
}

// NewExecClient parses commandLine with shell quoting rules. modelPath may be
// a model file or a directory holding .bin/.gguf files.
func NewExecClient(commandLine, modelPath string, runner command.Runner) (*ExecClient, error) {
	parser := shellwords.NewParser()
	parser.ParseEnv = true
	argv, err := parser.Parse(commandLine)
	if err != nil {
		return nil, fmt.Errorf("parse stt command: %w", err)
	}
	if len(argv) == 0 {
		return nil, errors.New("stt command is empty")
	}
	if runner == nil {
		runner = command.Exec{}
	}
	return &ExecClient{
		argv:      argv,
		modelPath: modelPath,
		runner:    runner,
		lookPath:  exec.LookPath,
	}, nil
}

// Name returns the provider name.
func (ec *ExecClient) Name() string { return "exec" }

// Model returns the resolved model file name, or the configured path before Load.
func (ec *ExecClient) Model() string {
	if ec.model != "" {
		return filepath.Base(ec.model)
	}
	return ec.modelPath
}

// Load checks the binary is runnable and resolves the model file.
func (ec *ExecClient) Load(ctx context.Context) error {
	if _, err := ec.lookPath(ec.argv[0]); err != nil {
		return fmt.Errorf("stt command %q: %w", ec.argv[0], err)
	}
	model, err := resolveModelPath(ec.modelPath)
	if err != nil {
		return err
	}
	ec.model = model
	return nil
}

// Transcribe runs the CLI over audioPath and reads the .txt it writes.
func (ec *ExecClient) Transcribe(ctx context.Context, audioPath string, opts TranscribeOpts) (*Response, error) {
	if ec.model == "" {
		return nil, errors.New("model not loaded")
	}
	base := strings.TrimSuffix(audioPath, filepath.Ext(audioPath)) + "_transcript"
	args := append(append([]string{}, ec.argv[1:]...), buildWhisperArgs(ec.model, audioPath, base, opts.Language)...)

	res, err := ec.runner.Run(ctx, ec.argv[0], args...)
	if err != nil {
		return nil, fmt.Errorf("stt command failed (exit %d): %w: %s", res.ExitCode, err, command.Tail(res.Stderr, 512))
	}

	content, err := os.ReadFile(base + ".txt")
	if err != nil {
		return nil, fmt.Errorf("stt command produced no transcript: %w", err)
	}
	return &Response{
		Text:     strings.TrimSpace(string(content)),
		Language: normalizeLanguage(opts.Language),
	}, nil
}

// resolveModelPath returns a model file path from file or directory input.
// A directory resolves to its first .bin or .gguf file in name order.
func resolveModelPath(rawPath string) (string, error) {
	modelPath := strings.TrimSpace(rawPath)
	if modelPath == "" {
		return "", errors.New("model path is required")
	}

	info, err := os.Stat(modelPath)
	if err != nil {
		return "", fmt.Errorf("cannot access model path: %s", modelPath)
	}
	if !info.IsDir() {
		return modelPath, nil
	}

	entries, err := os.ReadDir(modelPath)
	if err != nil {
		return "", fmt.Errorf("cannot read model directory: %s", modelPath)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".bin" || ext == ".gguf" {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no .bin or .gguf model files found in: %s", modelPath)
	}

	sort.Strings(names)
	return filepath.Join(modelPath, names[0]), nil
}

// normalizeLanguage maps "auto" and empty language to no override.
func normalizeLanguage(raw string) string {
	lang := strings.TrimSpace(raw)
	if lang == "" || strings.EqualFold(lang, "auto") {
		return ""
	}
	return lang
}

func buildWhisperArgs(modelPath, audioPath, textBase, language string) []string {
	args := []string{
		"-m", modelPath,
		"-f", audioPath,
		"-of", textBase,
		"-otxt",
		"-np",
	}
	if lang := normalizeLanguage(language); lang != "" {
		args = append(args, "-l", lang)
	}
	return args
}
