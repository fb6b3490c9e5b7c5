package ingest

import (
	"path/filepath"
	"testing"
)

func TestResolveArtifact(t *testing.T) {
	t.Run("relative_ref_under_drop_dir", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "x.ctm"), watcherCTM)

		got := ResolveArtifact(dir, "x.ctm")
		if want := filepath.Join(dir, "x.ctm"); got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("nested_relative_ref", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "show", "x.ctm"), watcherCTM)

		got := ResolveArtifact(dir, "show/x.ctm")
		if want := filepath.Join(dir, "show", "x.ctm"); got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("foreign_absolute_resolves_by_basename", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "y.ctm"), watcherCTM)

		// The producer's path doesn't exist here, but its basename does.
		got := ResolveArtifact(dir, "/data/out/y.ctm")
		if want := filepath.Join(dir, "y.ctm"); got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("foreign_absolute_resolves_by_path_suffix", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "show1", "ep4.ctm"), watcherCTM)

		got := ResolveArtifact(dir, "/data/out/show1/ep4.ctm")
		if want := filepath.Join(dir, "show1", "ep4.ctm"); got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("absolute_path_same_machine", func(t *testing.T) {
		drop := t.TempDir()
		other := t.TempDir()
		abs := filepath.Join(other, "z.ctm")
		writeFile(t, abs, watcherCTM)

		if got := ResolveArtifact(drop, abs); got != abs {
			t.Errorf("got %q, want %q", got, abs)
		}
	})

	t.Run("absolute_resolves_without_drop_dir", func(t *testing.T) {
		other := t.TempDir()
		abs := filepath.Join(other, "z.ctm")
		writeFile(t, abs, watcherCTM)

		if got := ResolveArtifact("", abs); got != abs {
			t.Errorf("got %q, want %q", got, abs)
		}
	})

	t.Run("missing_file_returns_empty", func(t *testing.T) {
		if got := ResolveArtifact(t.TempDir(), "nope.ctm"); got != "" {
			t.Errorf("got %q, want empty", got)
		}
	})

	t.Run("empty_ref_returns_empty", func(t *testing.T) {
		if got := ResolveArtifact(t.TempDir(), ""); got != "" {
			t.Errorf("got %q, want empty", got)
		}
	})
}
