// Package ctm reads recognizer word timings in CTM form:
//
//	<utterance> <channel> <start> <duration> <word> [<confidence>]
//
// one word per line, times in seconds. Lines that do not parse are
// skipped and counted, never fatal; a half-good CTM still aligns.
package ctm

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Word is one recognized token with its timing.
type Word struct {
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
	Text     string  `json:"text"`
}

// Stats summarizes a parse pass.
type Stats struct {
	Lines   int `json:"lines"`   // lines scanned, including blanks and comments
	Words   int `json:"words"`   // words successfully parsed
	Skipped int `json:"skipped"` // malformed lines dropped
}

// Parse reads CTM records from r. Blank lines and ";;" comment lines are
// ignored silently. Malformed records (fewer than 5 fields, non-numeric
// timing, negative duration) are logged at warn level, counted in
// Stats.Skipped, and dropped. The returned error covers reader failures
// only, never content.
func Parse(r io.Reader, log zerolog.Logger) ([]Word, Stats, error) {
	var (
		words []Word
		stats Stats
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		stats.Lines++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";;") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 5 {
			stats.Skipped++
			log.Warn().Int("line", stats.Lines).Str("content", line).
				Msg("ctm line has too few fields, skipping")
			continue
		}

		start, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			stats.Skipped++
			log.Warn().Int("line", stats.Lines).Str("start", fields[2]).
				Msg("ctm line has non-numeric start, skipping")
			continue
		}
		dur, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			stats.Skipped++
			log.Warn().Int("line", stats.Lines).Str("duration", fields[3]).
				Msg("ctm line has non-numeric duration, skipping")
			continue
		}
		if dur < 0 {
			stats.Skipped++
			log.Warn().Int("line", stats.Lines).Float64("duration", dur).
				Msg("ctm line has negative duration, skipping")
			continue
		}

		words = append(words, Word{Start: start, Duration: dur, Text: fields[4]})
		stats.Words++
	}
	if err := scanner.Err(); err != nil {
		return words, stats, err
	}
	return words, stats, nil
}
