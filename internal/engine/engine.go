// Package engine runs alignment jobs: it joins recognizer words with
// diarization segments into speaker-attributed transcripts, and hosts
// the worker pool that processes queued jobs.
package engine

import (
	"github.com/rs/zerolog"

	"github.com/speechlab/align-engine/internal/align"
	"github.com/speechlab/align-engine/internal/ctm"
	"github.com/speechlab/align-engine/internal/rttm"
	"github.com/speechlab/align-engine/internal/transcript"
)

// AlignedWord is a recognized word with its resolved speaker and the
// method that resolved it.
type AlignedWord struct {
	Start   float64      `json:"start"`
	End     float64      `json:"end"`
	Speaker string       `json:"speaker"`
	Text    string       `json:"text"`
	Method  align.Method `json:"method"`
}

// Stats summarizes one alignment run.
type Stats struct {
	Words        int            `json:"words"`
	Lines        int            `json:"lines"`
	Speakers     int            `json:"speakers"`      // distinct labels, UNKNOWN excluded
	Unknown      int            `json:"unknown_words"` // words resolved to UNKNOWN
	AudioSeconds float64        `json:"audio_seconds"` // largest word end time
	Methods      map[string]int `json:"methods"`       // resolution method counts
}

// Result is the full outcome of aligning one recording.
type Result struct {
	Text  string            `json:"text"`
	Lines []transcript.Line `json:"lines"`
	Words []AlignedWord     `json:"words"`
	Stats Stats             `json:"stats"`
}

// Engine aligns words to speakers. Each Align call builds its own
// interval index, so one Engine may serve concurrent jobs; it holds no
// state beyond its logger.
type Engine struct {
	log zerolog.Logger
}

// New creates an Engine.
func New(log zerolog.Logger) *Engine {
	return &Engine{log: log}
}

// Align resolves a speaker for every word, merges same-speaker runs into
// lines, and renders the transcript. Words must already be in recognizer
// order (non-decreasing start); segment insertion order fixes all
// tie-breaking. Missing diarization is not an error: with no segments
// every word lands on the UNKNOWN speaker.
func (e *Engine) Align(words []ctm.Word, segments []rttm.Segment) Result {
	if len(words) == 0 {
		e.log.Warn().Msg("no words to align")
	}
	if len(segments) == 0 && len(words) > 0 {
		e.log.Warn().Msg("no diarization segments, all words will be UNKNOWN")
	}

	ix := align.NewIndex()
	for _, seg := range segments {
		ix.Insert(align.Interval{Start: seg.Start, End: seg.End, Label: seg.Label})
	}
	resolver := align.NewResolver(ix)

	aligned := make([]AlignedWord, 0, len(words))
	twords := make([]transcript.Word, 0, len(words))
	methods := make(map[string]int)
	speakers := make(map[string]struct{})
	unknown := 0
	audioSeconds := 0.0

	for _, w := range words {
		end := w.Start + w.Duration
		a := resolver.Assign(w.Start, w.Duration)

		aligned = append(aligned, AlignedWord{
			Start:   w.Start,
			End:     end,
			Speaker: a.Label,
			Text:    w.Text,
			Method:  a.Method,
		})
		twords = append(twords, transcript.Word{
			Start:   w.Start,
			End:     end,
			Speaker: a.Label,
			Text:    w.Text,
		})

		methods[string(a.Method)]++
		if a.Label == align.UnknownLabel {
			unknown++
		} else {
			speakers[a.Label] = struct{}{}
		}
		if end > audioSeconds {
			audioSeconds = end
		}
	}

	lines := transcript.Assemble(twords)

	return Result{
		Text:  transcript.Render(lines),
		Lines: lines,
		Words: aligned,
		Stats: Stats{
			Words:        len(aligned),
			Lines:        len(lines),
			Speakers:     len(speakers),
			Unknown:      unknown,
			AudioSeconds: audioSeconds,
			Methods:      methods,
		},
	}
}
