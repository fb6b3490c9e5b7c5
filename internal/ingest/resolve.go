package ingest

import (
	"os"
	"path/filepath"
	"strings"
)

// ResolveArtifact finds a CTM or RTTM file on disk given a path reference
// from an MQTT job payload. Producers on another host usually send their
// own absolute paths, so the reference is tried relative to the drop dir
// first, then by progressively shorter path suffixes, then as-is.
// Returns "" when the file cannot be found.
func ResolveArtifact(dropDir, ref string) string {
	if ref == "" {
		return ""
	}

	if dropDir != "" {
		// 1) Reference relative to the drop dir
		full := filepath.Join(dropDir, ref)
		if _, err := os.Stat(full); err == nil {
			return full
		}

		// 2) Producer's absolute path, re-rooted under the drop dir.
		// Try the bare basename, then each longer suffix of the path.
		// e.g. /data/out/show1/ep4.ctm → ep4.ctm, show1/ep4.ctm, ...
		full = filepath.Join(dropDir, filepath.Base(ref))
		if _, err := os.Stat(full); err == nil {
			return full
		}

		parts := strings.Split(filepath.ToSlash(ref), "/")
		for i := range parts {
			if i == 0 {
				continue
			}
			candidate := filepath.Join(dropDir, filepath.Join(parts[i:]...))
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}

	// 3) Reference as an absolute path (same machine, same filesystem)
	if filepath.IsAbs(ref) {
		if _, err := os.Stat(ref); err == nil {
			return ref
		}
	}

	return ""
}
