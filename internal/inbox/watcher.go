package inbox

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mindscrole/reelscribe/internal/fetch"
	"github.com/mindscrole/reelscribe/internal/job"
	"github.com/mindscrole/reelscribe/internal/present"
	"github.com/rs/zerolog"
)

const (
	defaultDebounce = 2 * time.Second
	errorSuffix     = "_error.txt"
)

// JobRunner runs one Job to completion.
type JobRunner interface {
	Run(ctx context.Context, src job.Source, onProgress job.ProgressFunc) (*job.Job, error)
}

// Status is reported by the health endpoint.
type Status struct {
	Status         string `json:"status"`
	WatchDir       string `json:"watch_dir"`
	FilesProcessed int64  `json:"files_processed"`
	FilesFailed    int64  `json:"files_failed"`
	FilesSkipped   int64  `json:"files_skipped"`
}

// Watcher transcribes video files dropped into a directory. Each video
// <name> gets <name>_transcript.txt next to it, or <name>_error.txt
// explaining the failure. Files that already have either are skipped.
type Watcher struct {
	runner   JobRunner
	dir      string
	debounce time.Duration
	log      zerolog.Logger

	watcher *fsnotify.Watcher
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// Debounce: coalesce Create+Write events while a file is still being copied in.
	debounceMu     sync.Mutex
	debounceTimers map[string]*time.Timer

	// procMu keeps the exists check and the write of one outcome together.
	procMu sync.Mutex

	filesProcessed atomic.Int64
	filesFailed    atomic.Int64
	filesSkipped   atomic.Int64
	status         atomic.Value // string: "starting", "backfilling", "watching", "stopped"
}

// New creates a Watcher over dir.
func New(runner JobRunner, dir string, log zerolog.Logger) *Watcher {
	w := &Watcher{
		runner:         runner,
		dir:            dir,
		debounce:       defaultDebounce,
		log:            log.With().Str("component", "inbox").Logger(),
		debounceTimers: make(map[string]*time.Timer),
	}
	w.status.Store("starting")
	return w
}

// Start begins watching and queues videos already in the directory.
func (w *Watcher) Start(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create watch dir: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(w.dir); err != nil {
		fw.Close()
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.watcher = fw
	w.ctx, w.cancel = context.WithCancel(ctx)

	w.log.Info().Str("watch_dir", w.dir).Msg("inbox watcher started")

	w.wg.Add(2)
	go func() {
		defer w.wg.Done()
		w.watchLoop()
	}()
	go func() {
		defer w.wg.Done()
		w.backfill()
	}()
	return nil
}

// Stop closes the watcher and waits for its goroutines. A Job already
// running is allowed to finish.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	if w.watcher != nil {
		w.watcher.Close()
	}
	w.debounceMu.Lock()
	for path, t := range w.debounceTimers {
		if t.Stop() {
			w.wg.Done()
		}
		delete(w.debounceTimers, path)
	}
	w.debounceMu.Unlock()
	w.wg.Wait()
	w.status.Store("stopped")

	w.log.Info().
		Int64("files_processed", w.filesProcessed.Load()).
		Int64("files_failed", w.filesFailed.Load()).
		Int64("files_skipped", w.filesSkipped.Load()).
		Msg("inbox watcher stopped")
}

// Status returns the current watcher status for the health endpoint.
func (w *Watcher) Status() Status {
	s, _ := w.status.Load().(string)
	return Status{
		Status:         s,
		WatchDir:       w.dir,
		FilesProcessed: w.filesProcessed.Load(),
		FilesFailed:    w.filesFailed.Load(),
		FilesSkipped:   w.filesSkipped.Load(),
	}
}

func (w *Watcher) watchLoop() {
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !fetch.IsVideoFile(event.Name) {
				continue
			}
			w.scheduleProcess(event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error().Err(err).Msg("fsnotify error")
		}
	}
}

// scheduleProcess waits until a file has had no events for the debounce
// interval, so large copies are complete before the Job reads them.
func (w *Watcher) scheduleProcess(path string) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if t, ok := w.debounceTimers[path]; ok && t.Stop() {
		t.Reset(w.debounce)
		return
	}

	w.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(w.debounce, func() {
		defer w.wg.Done()
		w.debounceMu.Lock()
		if w.debounceTimers[path] == t {
			delete(w.debounceTimers, path)
		}
		w.debounceMu.Unlock()

		if w.ctx.Err() != nil {
			return
		}
		w.process(path)
	})
	w.debounceTimers[path] = t
}

// backfill queues existing videos that have no transcript yet, oldest first.
func (w *Watcher) backfill() {
	w.status.Store("backfilling")
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.log.Warn().Err(err).Msg("inbox backfill failed")
		w.status.Store("watching")
		return
	}

	type fileEntry struct {
		path    string
		modTime time.Time
	}
	var files []fileEntry
	for _, e := range entries {
		if e.IsDir() || !fetch.IsVideoFile(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, fileEntry{filepath.Join(w.dir, e.Name()), info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].modTime.Before(files[j].modTime) })

	for _, f := range files {
		if w.ctx.Err() != nil {
			return
		}
		w.process(f.path)
	}
	if len(files) > 0 {
		w.log.Info().Int("files", len(files)).Msg("inbox backfill complete")
	}
	if w.ctx.Err() == nil {
		w.status.Store("watching")
	}
}

// process runs one Job for the video at path and writes its outcome.
func (w *Watcher) process(path string) {
	w.procMu.Lock()
	defer w.procMu.Unlock()

	name := filepath.Base(path)
	src := job.UploadSource(name, -1, nil)
	outPath := filepath.Join(w.dir, present.FileName(src))
	errPath := strings.TrimSuffix(outPath, "_transcript.txt") + errorSuffix

	if exists(outPath) || exists(errPath) {
		w.filesSkipped.Add(1)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		w.log.Warn().Err(err).Str("path", path).Msg("cannot open video")
		return
	}
	defer f.Close()
	if info, err := f.Stat(); err == nil {
		src.Size = info.Size()
	}
	src.Body = f

	j, err := w.runner.Run(w.ctx, src, nil)
	if err != nil {
		if w.ctx.Err() != nil {
			return
		}
		w.filesFailed.Add(1)
		if werr := writeAtomic(errPath, failureReport(err)); werr != nil {
			w.log.Error().Err(werr).Str("path", errPath).Msg("cannot write error report")
		}
		return
	}

	if err := writeAtomic(outPath, j.Transcript.Text+"\n"); err != nil {
		w.log.Error().Err(err).Str("path", outPath).Msg("cannot write transcript")
		return
	}
	w.filesProcessed.Add(1)
	w.log.Info().Str("video", name).Str("transcript", filepath.Base(outPath)).Msg("inbox video transcribed")
}

func failureReport(err error) string {
	fv := present.NewFailure(nil, err)
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n%s\n", fv.Title, fv.Message)
	if len(fv.Remedies) > 0 {
		b.WriteString("\nTry this:\n")
		for i, r := range fv.Remedies {
			fmt.Fprintf(&b, "%d. %s\n", i+1, r)
		}
	}
	return b.String()
}

// writeAtomic writes through a temp file so a half-written transcript is
// never visible under its final name.
func writeAtomic(path, content string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".reelscribe-*")
	if err != nil {
		return err
	}
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
