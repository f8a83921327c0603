package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"catalog-ingest/internal/catalog"
	"catalog-ingest/internal/pipeline"
)

const (
	processedDir = "processed"
	failedDir    = "failed"
)

// DefaultInterval is the poll period used when none is configured.
const DefaultInterval = 5 * time.Second

// DefaultMaxAttempts is how many times a faulting batch is retried before
// the file is moved to failed/.
const DefaultMaxAttempts = 3

// ProcessFunc runs one decoded batch to completion.
type ProcessFunc func(ctx context.Context, records []catalog.RawRecord) (*pipeline.Summary, error)

// fileState is what a poll observed about a pending file.
type fileState struct {
	size    int64
	modTime time.Time
}

// Watcher polls a directory for newly arrived batch files and processes
// each one as a single batch, oldest name first.
//
// A file is picked up once it has settled: its size and mtime are unchanged
// since the previous poll, or it was last modified more than one interval
// ago. Dot-files are ignored so producers can write under a hidden name and
// rename into place.
//
// A committed file moves to processed/ and an undecodable one to failed/.
// A file whose batch fails stays where it is and is retried on the next poll,
// up to the attempt limit, after which it is moved to failed/ as well.
type Watcher struct {
	dir         string
	interval    time.Duration
	maxAttempts int
	process     ProcessFunc
	logger      logrus.FieldLogger

	// Only touched by Scan, which is not safe for concurrent use.
	seen     map[string]fileState
	attempts map[string]int
	now      func() time.Time
}

// NewWatcher creates a Watcher over dir.
func NewWatcher(dir string, interval time.Duration, process ProcessFunc, logger logrus.FieldLogger) *Watcher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Watcher{
		dir:         dir,
		interval:    interval,
		maxAttempts: DefaultMaxAttempts,
		process:     process,
		logger:      logger,
		seen:        map[string]fileState{},
		attempts:    map[string]int{},
		now:         time.Now,
	}
}

// WithMaxAttempts sets how many consecutive faults a file may cause before
// it is given up on. Values below one keep the default.
func (w *Watcher) WithMaxAttempts(n int) *Watcher {
	if n > 0 {
		w.maxAttempts = n
	}
	return w
}

// Run scans immediately and then on every tick until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.prepare(); err != nil {
		return err
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if _, err := w.Scan(ctx); err != nil {
			w.logger.WithError(err).Warn("Batch failed, will retry on next poll")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Scan processes every settled pending file once and returns how many were
// committed. It stops at the first batch fault that is still below the
// attempt limit, so later files keep their order.
func (w *Watcher) Scan(ctx context.Context) (int, error) {
	if err := w.prepare(); err != nil {
		return 0, err
	}

	files, err := w.pending()
	if err != nil {
		return 0, err
	}
	w.forgetGone(files)

	committed := 0
	for _, f := range files {
		if ctx.Err() != nil {
			break
		}

		name := f.Name()
		log := w.logger.WithField("file", name)
		if !w.settled(f) {
			log.Debug("Waiting for batch file to settle")
			continue
		}

		records, err := DecodeBatchFile(filepath.Join(w.dir, name))
		if err != nil {
			log.WithError(err).Error("Moving undecodable batch to failed")
			if mvErr := w.move(name, failedDir); mvErr != nil {
				return committed, mvErr
			}
			continue
		}

		summary, err := w.process(ctx, records)
		if err != nil {
			w.attempts[name]++
			if w.attempts[name] < w.maxAttempts {
				return committed, fmt.Errorf("batch %s (attempt %d of %d): %w", name, w.attempts[name], w.maxAttempts, err)
			}
			log.WithError(err).WithField("attempts", w.attempts[name]).Error("Giving up on batch, moving to failed")
			if mvErr := w.move(name, failedDir); mvErr != nil {
				return committed, mvErr
			}
			continue
		}

		if err := w.move(name, processedDir); err != nil {
			return committed, err
		}
		committed++
		log.WithFields(logrus.Fields{
			"run_id":  summary.RunID,
			"written": summary.Written,
		}).Info("Finished processing batch file")
	}
	return committed, nil
}

// settled records what this poll saw of f and reports whether the file is
// complete enough to read.
func (w *Watcher) settled(f os.FileInfo) bool {
	state := fileState{size: f.Size(), modTime: f.ModTime()}
	prev, ok := w.seen[f.Name()]
	w.seen[f.Name()] = state

	if ok && prev.size == state.size && prev.modTime.Equal(state.modTime) {
		return true
	}
	return w.now().Sub(state.modTime) >= w.interval
}

// forgetGone drops bookkeeping for files that are no longer pending.
func (w *Watcher) forgetGone(files []os.FileInfo) {
	present := make(map[string]bool, len(files))
	for _, f := range files {
		present[f.Name()] = true
	}
	for name := range w.seen {
		if !present[name] {
			delete(w.seen, name)
		}
	}
	for name := range w.attempts {
		if !present[name] {
			delete(w.attempts, name)
		}
	}
}

func (w *Watcher) prepare() error {
	for _, sub := range []string{processedDir, failedDir} {
		if err := os.MkdirAll(filepath.Join(w.dir, sub), 0o755); err != nil {
			return fmt.Errorf("failed to create %s directory: %w", sub, err)
		}
	}
	return nil
}

func (w *Watcher) pending() ([]os.FileInfo, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read watch directory: %w", err)
	}

	var files []os.FileInfo
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.EqualFold(filepath.Ext(name), ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Renamed away between ReadDir and Info.
			continue
		}
		files = append(files, info)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name() < files[j].Name() })
	return files, nil
}

func (w *Watcher) move(name, sub string) error {
	if err := os.Rename(filepath.Join(w.dir, name), filepath.Join(w.dir, sub, name)); err != nil {
		return fmt.Errorf("failed to move %s to %s: %w", name, sub, err)
	}
	return nil
}
