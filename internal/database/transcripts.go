package database

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// queryBuilder builds parameterized WHERE clauses for dynamic queries.
type queryBuilder struct {
	where  []string
	args   []any
	argIdx int
}

func newQueryBuilder() *queryBuilder {
	return &queryBuilder{argIdx: 1}
}

// Add appends a WHERE condition. The clause should contain %s which will be replaced with $N.
func (qb *queryBuilder) Add(clause string, val any) {
	parameterized := strings.Replace(clause, "%s", fmt.Sprintf("$%d", qb.argIdx), 1)
	qb.where = append(qb.where, parameterized)
	qb.args = append(qb.args, val)
	qb.argIdx++
}

// WhereClause returns the full WHERE clause (including "WHERE") or empty string if no conditions.
func (qb *queryBuilder) WhereClause() string {
	if len(qb.where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(qb.where, " AND ")
}

// Args returns all accumulated arguments.
func (qb *queryBuilder) Args() []any {
	return qb.args
}

// TranscriptRow is the input for inserting an alignment result.
type TranscriptRow struct {
	JobID        uuid.UUID
	Name         string
	Source       string // "http", "mqtt", "watcher"
	Text         string
	WordCount    int
	LineCount    int
	SpeakerCount int
	UnknownWords int
	AudioSeconds float64
	AlignMs      int
	Words        json.RawMessage // speaker-attributed words with timings
	Lines        json.RawMessage // merged same-speaker lines
}

// TranscriptAPI is the transcript representation for API responses.
// List queries leave Words and Lines empty; Get fills them.
type TranscriptAPI struct {
	ID           int64           `json:"id"`
	JobID        uuid.UUID       `json:"job_id"`
	Name         string          `json:"name,omitempty"`
	Source       string          `json:"source"`
	Text         string          `json:"text"`
	WordCount    int             `json:"word_count"`
	LineCount    int             `json:"line_count"`
	SpeakerCount int             `json:"speaker_count"`
	UnknownWords int             `json:"unknown_words"`
	AudioSeconds float64         `json:"audio_seconds"`
	AlignMs      int             `json:"align_ms"`
	Words        json.RawMessage `json:"words,omitempty"`
	Lines        json.RawMessage `json:"lines,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// TranscriptFilter specifies filters for listing and searching transcripts.
type TranscriptFilter struct {
	Source string
	Name   string // substring match on recording name
	Since  *time.Time
	Until  *time.Time
	Limit  int
	Offset int
	Sort   string // allowlisted column, "-" prefix for descending
}

// TranscriptSearchHit is a full-text search result with relevance score.
type TranscriptSearchHit struct {
	TranscriptAPI
	Rank float32 `json:"rank"`
}

// sortColumns is the allowlist for TranscriptFilter.Sort.
var sortColumns = map[string]string{
	"created_at":    "created_at",
	"word_count":    "word_count",
	"audio_seconds": "audio_seconds",
	"align_ms":      "align_ms",
}

func orderClause(sort string) string {
	dir := "ASC"
	if strings.HasPrefix(sort, "-") {
		dir = "DESC"
		sort = sort[1:]
	}
	col, ok := sortColumns[sort]
	if !ok {
		return " ORDER BY created_at DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s", col, dir)
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 1000 {
		return 50
	}
	return limit
}

// InsertTranscript stores one alignment result. Job IDs are fresh per
// submission; a unique violation on job_id means a duplicate submission
// and surfaces as an error.
func (db *DB) InsertTranscript(ctx context.Context, row *TranscriptRow) (int64, error) {
	var id int64
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO transcripts (
			job_id, name, source, text,
			word_count, line_count, speaker_count, unknown_words,
			audio_seconds, align_ms, words, lines
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`,
		row.JobID, row.Name, row.Source, row.Text,
		row.WordCount, row.LineCount, row.SpeakerCount, row.UnknownWords,
		row.AudioSeconds, row.AlignMs, row.Words, row.Lines,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert transcript: %w", err)
	}
	return id, nil
}

// GetTranscript returns the full transcript for a job, including the
// word-level and line-level JSON.
func (db *DB) GetTranscript(ctx context.Context, jobID uuid.UUID) (*TranscriptAPI, error) {
	var t TranscriptAPI
	err := db.Pool.QueryRow(ctx, `
		SELECT id, job_id, name, source, text,
			word_count, line_count, speaker_count, unknown_words,
			audio_seconds, align_ms, words, lines, created_at
		FROM transcripts
		WHERE job_id = $1
	`, jobID).Scan(
		&t.ID, &t.JobID, &t.Name, &t.Source, &t.Text,
		&t.WordCount, &t.LineCount, &t.SpeakerCount, &t.UnknownWords,
		&t.AudioSeconds, &t.AlignMs, &t.Words, &t.Lines, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTranscripts returns transcripts matching the filter plus the total
// count before pagination. The word/line JSON is omitted from lists.
func (db *DB) ListTranscripts(ctx context.Context, filter TranscriptFilter) ([]TranscriptAPI, int, error) {
	qb := newQueryBuilder()
	if filter.Source != "" {
		qb.Add("source = %s", filter.Source)
	}
	if filter.Name != "" {
		qb.Add("name ILIKE %s", "%"+filter.Name+"%")
	}
	if filter.Since != nil {
		qb.Add("created_at >= %s", *filter.Since)
	}
	if filter.Until != nil {
		qb.Add("created_at < %s", *filter.Until)
	}

	whereClause := qb.WhereClause()

	var total int
	if err := db.Pool.QueryRow(ctx, "SELECT count(*) FROM transcripts"+whereClause, qb.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT id, job_id, name, source, text,
			word_count, line_count, speaker_count, unknown_words,
			audio_seconds, align_ms, created_at
		FROM transcripts%s%s
		LIMIT %d OFFSET %d
	`, whereClause, orderClause(filter.Sort), clampLimit(filter.Limit), filter.Offset)

	rows, err := db.Pool.Query(ctx, query, qb.Args()...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []TranscriptAPI
	for rows.Next() {
		var t TranscriptAPI
		if err := rows.Scan(
			&t.ID, &t.JobID, &t.Name, &t.Source, &t.Text,
			&t.WordCount, &t.LineCount, &t.SpeakerCount, &t.UnknownWords,
			&t.AudioSeconds, &t.AlignMs, &t.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		result = append(result, t)
	}
	if result == nil {
		result = []TranscriptAPI{}
	}
	return result, total, rows.Err()
}

// SearchTranscripts performs full-text search over transcript text and
// recording names, ranked by relevance.
func (db *DB) SearchTranscripts(ctx context.Context, query string, filter TranscriptFilter) ([]TranscriptSearchHit, int, error) {
	qb := newQueryBuilder()
	qb.Add("search_vector @@ websearch_to_tsquery('english', %s)", query)
	if filter.Source != "" {
		qb.Add("source = %s", filter.Source)
	}
	if filter.Since != nil {
		qb.Add("created_at >= %s", *filter.Since)
	}
	if filter.Until != nil {
		qb.Add("created_at < %s", *filter.Until)
	}

	whereClause := qb.WhereClause()

	var total int
	if err := db.Pool.QueryRow(ctx, "SELECT count(*) FROM transcripts"+whereClause, qb.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rankExpr := fmt.Sprintf("ts_rank(search_vector, websearch_to_tsquery('english', $%d))", qb.argIdx)
	qb.args = append(qb.args, query)
	qb.argIdx++

	dataQuery := fmt.Sprintf(`
		SELECT id, job_id, name, source, text,
			word_count, line_count, speaker_count, unknown_words,
			audio_seconds, align_ms, created_at,
			%s AS rank
		FROM transcripts%s
		ORDER BY rank DESC, created_at DESC
		LIMIT %d OFFSET %d
	`, rankExpr, whereClause, clampLimit(filter.Limit), filter.Offset)

	rows, err := db.Pool.Query(ctx, dataQuery, qb.Args()...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var hits []TranscriptSearchHit
	for rows.Next() {
		var h TranscriptSearchHit
		if err := rows.Scan(
			&h.ID, &h.JobID, &h.Name, &h.Source, &h.Text,
			&h.WordCount, &h.LineCount, &h.SpeakerCount, &h.UnknownWords,
			&h.AudioSeconds, &h.AlignMs, &h.CreatedAt,
			&h.Rank,
		); err != nil {
			return nil, 0, err
		}
		hits = append(hits, h)
	}
	if hits == nil {
		hits = []TranscriptSearchHit{}
	}
	return hits, total, rows.Err()
}

// CountTranscripts returns the total number of stored transcripts.
func (db *DB) CountTranscripts(ctx context.Context) (int64, error) {
	var n int64
	err := db.Pool.QueryRow(ctx, `SELECT count(*) FROM transcripts`).Scan(&n)
	return n, err
}
