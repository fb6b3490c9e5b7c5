package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/speechlab/align-engine/internal/engine"
)

// newTestWatcher returns a watcher over dir feeding an unstarted pool, so
// enqueued jobs stay visible in the queue.
func newTestWatcher(t *testing.T, dir string, queueSize int) (*Watcher, *engine.Pool) {
	t.Helper()
	pool := engine.NewPool(engine.PoolOptions{
		Workers:   1,
		QueueSize: queueSize,
		Log:       zerolog.Nop(),
	})
	return NewWatcher(pool, dir, false, zerolog.Nop()), pool
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

const (
	watcherCTM  = "rec 1 0.5 0.3 hello\nrec 1 1.0 0.4 world\n"
	watcherRTTM = "SPEAKER rec 1 0.0 2.0 <NA> <NA> alice <NA>\n"
)

// ── Pair discovery ───────────────────────────────────────────────────

func TestFindPairs(t *testing.T) {
	t.Run("finds_complete_pairs_recursively", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "a.ctm"), watcherCTM)
		writeFile(t, filepath.Join(dir, "a.rttm"), watcherRTTM)
		writeFile(t, filepath.Join(dir, "sub", "b.ctm"), watcherCTM)
		writeFile(t, filepath.Join(dir, "sub", "b.rttm"), watcherRTTM)

		pairs := findPairs(dir)
		if len(pairs) != 2 {
			t.Fatalf("got %d pairs, want 2", len(pairs))
		}
		// Sorted by stem: dir/a before dir/sub/b
		if filepath.Base(pairs[0].stem) != "a" {
			t.Errorf("first stem = %q, want a", filepath.Base(pairs[0].stem))
		}
		if pairs[1].ctm != filepath.Join(dir, "sub", "b.ctm") {
			t.Errorf("second ctm = %q, want sub/b.ctm", pairs[1].ctm)
		}
	})

	t.Run("ignores_orphan_halves", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "lonely.ctm"), watcherCTM)
		writeFile(t, filepath.Join(dir, "other.rttm"), watcherRTTM)
		writeFile(t, filepath.Join(dir, "notes.txt"), "unrelated")

		if pairs := findPairs(dir); len(pairs) != 0 {
			t.Errorf("got %d pairs, want 0", len(pairs))
		}
	})

	t.Run("empty_dir", func(t *testing.T) {
		if pairs := findPairs(t.TempDir()); len(pairs) != 0 {
			t.Errorf("got %d pairs, want 0", len(pairs))
		}
	})
}

// ── Pair checks and enqueueing ───────────────────────────────────────

func TestCheckPair(t *testing.T) {
	t.Run("enqueues_complete_pair", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "a.ctm"), watcherCTM)
		writeFile(t, filepath.Join(dir, "a.rttm"), watcherRTTM)
		w, pool := newTestWatcher(t, dir, 4)

		w.checkPair(filepath.Join(dir, "a.rttm"))

		if n := pool.Stats().Pending; n != 1 {
			t.Errorf("pending = %d, want 1", n)
		}
		if n := w.pairsProcessed.Load(); n != 1 {
			t.Errorf("pairsProcessed = %d, want 1", n)
		}
	})

	t.Run("waits_for_missing_half", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "a.ctm"), watcherCTM)
		w, pool := newTestWatcher(t, dir, 4)

		w.checkPair(filepath.Join(dir, "a.ctm"))

		if n := pool.Stats().Pending; n != 0 {
			t.Errorf("pending = %d, want 0 (rttm not dropped yet)", n)
		}
	})

	t.Run("second_trigger_dedupes", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "a.ctm"), watcherCTM)
		writeFile(t, filepath.Join(dir, "a.rttm"), watcherRTTM)
		w, pool := newTestWatcher(t, dir, 4)

		// Both halves settle, both debounce timers fire.
		w.checkPair(filepath.Join(dir, "a.ctm"))
		w.checkPair(filepath.Join(dir, "a.rttm"))

		if n := pool.Stats().Pending; n != 1 {
			t.Errorf("pending = %d, want 1 (deduped)", n)
		}
	})

	t.Run("empty_ctm_skipped", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "a.ctm"), "  \n")
		writeFile(t, filepath.Join(dir, "a.rttm"), watcherRTTM)
		w, pool := newTestWatcher(t, dir, 4)

		w.checkPair(filepath.Join(dir, "a.ctm"))

		if n := pool.Stats().Pending; n != 0 {
			t.Errorf("pending = %d, want 0", n)
		}
		if n := w.filesSkipped.Load(); n != 1 {
			t.Errorf("filesSkipped = %d, want 1", n)
		}
	})

	t.Run("empty_rttm_still_enqueued", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "a.ctm"), watcherCTM)
		writeFile(t, filepath.Join(dir, "a.rttm"), "")
		w, pool := newTestWatcher(t, dir, 4)

		w.checkPair(filepath.Join(dir, "a.ctm"))

		if n := pool.Stats().Pending; n != 1 {
			t.Errorf("pending = %d, want 1 (missing diarization is a valid job)", n)
		}
	})

	t.Run("queue_full_unmarks_stem_for_retry", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "a.ctm"), watcherCTM)
		writeFile(t, filepath.Join(dir, "a.rttm"), watcherRTTM)
		w, pool := newTestWatcher(t, dir, 0)

		w.checkPair(filepath.Join(dir, "a.ctm"))

		if n := pool.Stats().Pending; n != 0 {
			t.Errorf("pending = %d, want 0", n)
		}
		stem := filepath.Join(dir, "a")
		if w.seen[stem] {
			t.Error("stem still marked seen after queue-full drop, retry would never fire")
		}
	})
}

// ── Backfill ─────────────────────────────────────────────────────────

func TestRunBackfill(t *testing.T) {
	t.Run("enqueues_existing_pairs", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "a.ctm"), watcherCTM)
		writeFile(t, filepath.Join(dir, "a.rttm"), watcherRTTM)
		writeFile(t, filepath.Join(dir, "b.ctm"), watcherCTM)
		writeFile(t, filepath.Join(dir, "b.rttm"), watcherRTTM)
		writeFile(t, filepath.Join(dir, "orphan.ctm"), watcherCTM)
		w, pool := newTestWatcher(t, dir, 8)

		w.runBackfill()

		if n := pool.Stats().Pending; n != 2 {
			t.Errorf("pending = %d, want 2", n)
		}
		if s := w.Status().Status; s != "watching" {
			t.Errorf("status = %q, want watching", s)
		}
	})
}

// ── Status ───────────────────────────────────────────────────────────

func TestWatcherStatus(t *testing.T) {
	dir := t.TempDir()
	w, _ := newTestWatcher(t, dir, 4)

	st := w.Status()
	if st.Status != "starting" {
		t.Errorf("Status = %q, want starting", st.Status)
	}
	if st.WatchDir != dir {
		t.Errorf("WatchDir = %q, want %q", st.WatchDir, dir)
	}
	if st.PairsProcessed != 0 || st.FilesSkipped != 0 {
		t.Errorf("counters = %d/%d, want 0/0", st.PairsProcessed, st.FilesSkipped)
	}
}
