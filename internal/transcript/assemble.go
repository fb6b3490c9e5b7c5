// Package transcript turns speaker-labeled words into readable transcript
// text: consecutive same-speaker words merge into lines, lines render as
// timestamped blocks.
package transcript

import "strings"

// Word is a recognizer token with its resolved speaker.
type Word struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
	Text    string  `json:"text"`
}

// Line is a maximal run of consecutive words from one speaker.
type Line struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
	Text    string  `json:"text"`
}

// Assemble merges consecutive same-speaker words into lines. Words must
// arrive in non-decreasing Start order; Assemble never sorts. Tokens are
// trimmed and empty ones dropped. A line's End is the running maximum of
// its word ends, since recognizers occasionally emit words whose ends
// step backwards.
func Assemble(words []Word) []Line {
	var lines []Line
	var cur *Line

	for _, w := range words {
		text := strings.TrimSpace(w.Text)
		if text == "" {
			continue
		}

		if cur != nil && cur.Speaker == w.Speaker {
			cur.Text += " " + text
			if w.End > cur.End {
				cur.End = w.End
			}
			continue
		}

		if cur != nil {
			lines = append(lines, *cur)
		}
		cur = &Line{
			Start:   w.Start,
			End:     w.End,
			Speaker: w.Speaker,
			Text:    text,
		}
	}

	if cur != nil {
		lines = append(lines, *cur)
	}
	return lines
}

// Render formats lines as timestamped blocks:
//
//	[HH:MM:SS.mmm - HH:MM:SS.mmm] SPEAKER:
//	text
//
// with a blank line between blocks and no trailing newline. Empty input
// renders as "".
func Render(lines []Line) string {
	if len(lines) == 0 {
		return ""
	}

	var b strings.Builder
	for i, ln := range lines {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("[")
		b.WriteString(FormatTimestamp(ln.Start))
		b.WriteString(" - ")
		b.WriteString(FormatTimestamp(ln.End))
		b.WriteString("] ")
		b.WriteString(ln.Speaker)
		b.WriteString(":\n")
		b.WriteString(ln.Text)
	}
	return b.String()
}

// Transcript is Assemble followed by Render.
func Transcript(words []Word) string {
	return Render(Assemble(words))
}
