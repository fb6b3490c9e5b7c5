package ingest

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/speechlab/align-engine/internal/api"
	"github.com/speechlab/align-engine/internal/engine"
)

// Watcher monitors a drop directory for CTM/RTTM file pairs and enqueues an
// alignment job once both halves of a pair exist and writes have settled.
// This is the batch counterpart to the HTTP and MQTT ingest paths: point a
// recognizer's output directory at it and transcripts appear on their own.
type Watcher struct {
	pool     *engine.Pool
	watchDir string
	backfill bool
	log      zerolog.Logger

	watcher *fsnotify.Watcher
	ctx     context.Context
	cancel  context.CancelFunc

	// Debounce: coalesce rapid Create+Write events on the same file.
	debounceMu     sync.Mutex
	debounceTimers map[string]*time.Timer

	// One job per pair stem per run. A stem is unmarked again when its
	// enqueue fails, so a later event can retry.
	seenMu sync.Mutex
	seen   map[string]bool

	pairsProcessed atomic.Int64
	filesSkipped   atomic.Int64
	status         atomic.Value // string: "starting", "backfilling", "watching", "stopped"
}

// pair is one alignment input: a recording stem plus the paths of its two
// artifact files.
type pair struct {
	stem string
	ctm  string
	rttm string
}

// NewWatcher creates a drop-dir watcher feeding the given pool. Call Start
// to begin watching.
func NewWatcher(pool *engine.Pool, watchDir string, backfill bool, log zerolog.Logger) *Watcher {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		pool:           pool,
		watchDir:       watchDir,
		backfill:       backfill,
		log:            log.With().Str("component", "watcher").Logger(),
		ctx:            ctx,
		cancel:         cancel,
		debounceTimers: make(map[string]*time.Timer),
		seen:           make(map[string]bool),
	}
	w.status.Store("starting")
	return w
}

// Start initializes the fsnotify watcher, adds all existing directories, and
// begins watching for new files. If backfill is enabled, existing pairs are
// enqueued in a background goroutine.
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.watcher = fsw

	// Walk the directory tree and add all directories to fsnotify.
	dirCount := 0
	err = filepath.WalkDir(w.watchDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.log.Warn().Err(err).Str("path", path).Msg("error walking directory")
			return nil // continue walking
		}
		if d.IsDir() {
			if addErr := fsw.Add(path); addErr != nil {
				w.log.Warn().Err(addErr).Str("path", path).Msg("failed to watch directory")
			} else {
				dirCount++
			}
		}
		return nil
	})
	if err != nil {
		fsw.Close()
		return err
	}

	w.log.Info().
		Int("directories", dirCount).
		Str("watch_dir", w.watchDir).
		Msg("drop-dir watcher initialized")

	go w.watchLoop()

	if w.backfill {
		go w.runBackfill()
	} else {
		w.status.Store("watching")
	}

	return nil
}

// Stop closes the fsnotify watcher and cancels any in-flight backfill.
func (w *Watcher) Stop() {
	w.status.Store("stopped")
	w.cancel()
	if w.watcher != nil {
		w.watcher.Close()
	}
	w.log.Info().
		Int64("pairs_processed", w.pairsProcessed.Load()).
		Int64("files_skipped", w.filesSkipped.Load()).
		Msg("drop-dir watcher stopped")
}

// Status returns the current watcher status for the health endpoint.
func (w *Watcher) Status() *api.WatcherStatusData {
	s, _ := w.status.Load().(string)
	return &api.WatcherStatusData{
		Status:         s,
		WatchDir:       w.watchDir,
		PairsProcessed: w.pairsProcessed.Load(),
		FilesSkipped:   w.filesSkipped.Load(),
	}
}

// watchLoop is the main event loop that processes fsnotify events.
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

			// New directory: add it to the watch set so we catch pairs
			// dropped into freshly created subdirectories.
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				if err := w.watcher.Add(event.Name); err != nil {
					w.log.Warn().Err(err).Str("path", event.Name).Msg("failed to watch new directory")
				} else {
					w.log.Debug().Str("path", event.Name).Msg("watching new directory")
				}
				continue
			}

			ext := strings.ToLower(filepath.Ext(event.Name))
			if ext != ".ctm" && ext != ".rttm" {
				continue
			}

			w.scheduleCheck(event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error().Err(err).Msg("fsnotify error")
		}
	}
}

// scheduleCheck debounces pair checks by 500ms. This coalesces rapid
// Create+Write events and ensures the file is fully written before reading.
func (w *Watcher) scheduleCheck(path string) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if t, ok := w.debounceTimers[path]; ok {
		t.Reset(500 * time.Millisecond)
		return
	}

	w.debounceTimers[path] = time.AfterFunc(500*time.Millisecond, func() {
		w.debounceMu.Lock()
		delete(w.debounceTimers, path)
		w.debounceMu.Unlock()

		w.checkPair(path)
	})
}

// checkPair enqueues the pair containing path if its other half exists.
// Both halves trigger a check when they settle; whichever fires second
// finds a complete pair, and the dedupe in enqueuePair keeps the job single.
func (w *Watcher) checkPair(path string) {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)

	p := pair{stem: stem}
	switch strings.ToLower(ext) {
	case ".ctm":
		p.ctm = path
		p.rttm = stem + ".rttm"
	case ".rttm":
		p.rttm = path
		p.ctm = stem + ".ctm"
	default:
		return
	}

	if _, err := os.Stat(p.ctm); err != nil {
		return // other half not dropped yet
	}
	if _, err := os.Stat(p.rttm); err != nil {
		return
	}

	w.enqueuePair(p, false)
}

// enqueuePair reads both artifact files and submits an alignment job.
// When wait is true (backfill), a full queue blocks until there is room or
// the watcher shuts down; otherwise the pair is dropped with a warning and
// unmarked so a later filesystem event retries it.
func (w *Watcher) enqueuePair(p pair, wait bool) {
	w.seenMu.Lock()
	if w.seen[p.stem] {
		w.seenMu.Unlock()
		return
	}
	w.seen[p.stem] = true
	w.seenMu.Unlock()

	unmark := func() {
		w.seenMu.Lock()
		delete(w.seen, p.stem)
		w.seenMu.Unlock()
	}

	ctmData, err := os.ReadFile(p.ctm)
	if err != nil {
		w.log.Warn().Err(err).Str("path", p.ctm).Msg("failed to read ctm file")
		unmark()
		return
	}
	rttmData, err := os.ReadFile(p.rttm)
	if err != nil {
		w.log.Warn().Err(err).Str("path", p.rttm).Msg("failed to read rttm file")
		unmark()
		return
	}

	// A pair with an empty CTM has no words to align. An empty RTTM is
	// still a valid job: every word comes out UNKNOWN.
	if len(bytes.TrimSpace(ctmData)) == 0 {
		w.filesSkipped.Add(1)
		w.log.Warn().Str("path", p.ctm).Msg("empty ctm file, pair skipped")
		return
	}

	job := engine.Job{
		ID:     uuid.New(),
		Name:   filepath.Base(p.stem),
		Source: "watcher",
		CTM:    ctmData,
		RTTM:   rttmData,
	}

	for {
		if w.pool.Enqueue(job) {
			w.pairsProcessed.Add(1)
			w.log.Info().
				Str("job_id", job.ID.String()).
				Str("name", job.Name).
				Msg("pair enqueued")
			return
		}
		if !wait {
			w.log.Warn().Str("name", job.Name).Msg("job queue full, pair dropped")
			unmark()
			return
		}
		select {
		case <-w.ctx.Done():
			unmark()
			return
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// runBackfill scans the watch directory for existing complete pairs and
// enqueues them oldest name first. Backfill respects queue backpressure
// instead of dropping, so a large directory drains at worker speed.
func (w *Watcher) runBackfill() {
	w.status.Store("backfilling")
	start := time.Now()

	pairs := findPairs(w.watchDir)
	w.log.Info().Int("pairs", len(pairs)).Msg("backfill starting")

	for _, p := range pairs {
		select {
		case <-w.ctx.Done():
			w.log.Info().
				Int64("processed", w.pairsProcessed.Load()).
				Msg("backfill interrupted by shutdown")
			return
		default:
		}
		w.enqueuePair(p, true)
	}

	w.status.Store("watching")
	w.log.Info().
		Int64("processed", w.pairsProcessed.Load()).
		Dur("elapsed", time.Since(start)).
		Msg("backfill complete")
}

// findPairs walks dir and returns every stem that has both a .ctm and an
// .rttm file, sorted by stem so backfill order is deterministic.
func findPairs(dir string) []pair {
	ctms := make(map[string]string)
	rttms := make(map[string]string)

	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		stem := strings.TrimSuffix(path, ext)
		switch strings.ToLower(ext) {
		case ".ctm":
			ctms[stem] = path
		case ".rttm":
			rttms[stem] = path
		}
		return nil
	})

	var pairs []pair
	for stem, ctmPath := range ctms {
		if rttmPath, ok := rttms[stem]; ok {
			pairs = append(pairs, pair{stem: stem, ctm: ctmPath, rttm: rttmPath})
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].stem < pairs[j].stem })
	return pairs
}
