// Package rttm reads diarization output in RTTM form:
//
//	SPEAKER <file> <chan> <tbeg> <tdur> <ortho> <stype> <name> <conf> <slat>
//
// one speaker turn per line, times in seconds. Only SPEAKER records
// matter here; everything else in the file is ignored.
package rttm

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Segment is one diarized speaker turn.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Label string  `json:"label"`
}

// Stats summarizes a parse pass.
type Stats struct {
	Lines    int `json:"lines"`    // lines scanned
	Segments int `json:"segments"` // speaker turns parsed
	Skipped  int `json:"skipped"`  // malformed SPEAKER records dropped
}

// Parse reads RTTM records from r. Non-SPEAKER records, blank lines, and
// ";;" comments are ignored silently. SPEAKER records with too few
// fields, non-numeric timing, or negative duration are logged at warn
// level, counted, and dropped. An empty result is valid: with no
// segments every word resolves to the unknown speaker. The returned
// error covers reader failures only.
func Parse(r io.Reader, log zerolog.Logger) ([]Segment, Stats, error) {
	var (
		segments []Segment
		stats    Stats
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		stats.Lines++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";;") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) == 0 || fields[0] != "SPEAKER" {
			continue
		}
		if len(fields) < 8 {
			stats.Skipped++
			log.Warn().Int("line", stats.Lines).Str("content", line).
				Msg("rttm speaker record has too few fields, skipping")
			continue
		}

		start, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			stats.Skipped++
			log.Warn().Int("line", stats.Lines).Str("tbeg", fields[3]).
				Msg("rttm speaker record has non-numeric onset, skipping")
			continue
		}
		dur, err := strconv.ParseFloat(fields[4], 64)
		if err != nil {
			stats.Skipped++
			log.Warn().Int("line", stats.Lines).Str("tdur", fields[4]).
				Msg("rttm speaker record has non-numeric duration, skipping")
			continue
		}
		if dur < 0 {
			stats.Skipped++
			log.Warn().Int("line", stats.Lines).Float64("tdur", dur).
				Msg("rttm speaker record has negative duration, skipping")
			continue
		}

		segments = append(segments, Segment{
			Start: start,
			End:   start + dur,
			Label: fields[7],
		})
		stats.Segments++
	}
	if err := scanner.Err(); err != nil {
		return segments, stats, err
	}
	return segments, stats, nil
}
