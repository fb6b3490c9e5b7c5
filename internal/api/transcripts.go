package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/speechlab/align-engine/internal/database"
)

// TranscriptsHandler serves stored alignment results.
type TranscriptsHandler struct {
	db *database.DB
}

func NewTranscriptsHandler(db *database.DB) *TranscriptsHandler {
	return &TranscriptsHandler{db: db}
}

func (h *TranscriptsHandler) Routes(r chi.Router) {
	r.Get("/transcripts", h.ListTranscripts)
	r.Get("/transcripts/search", h.SearchTranscripts)
	r.Get("/transcripts/{job_id}", h.GetTranscript)
	r.Get("/transcripts/{job_id}/text", h.GetTranscriptText)
}

func transcriptFilter(r *http.Request) database.TranscriptFilter {
	p := ParsePagination(r)
	filter := database.TranscriptFilter{
		Limit:  p.Limit,
		Offset: p.Offset,
	}
	if v, ok := QueryString(r, "source"); ok {
		filter.Source = v
	}
	if v, ok := QueryString(r, "name"); ok {
		filter.Name = v
	}
	if v, ok := QueryString(r, "sort"); ok {
		filter.Sort = v
	}
	if t, ok := QueryTime(r, "since"); ok {
		filter.Since = &t
	}
	if t, ok := QueryTime(r, "until"); ok {
		filter.Until = &t
	}
	return filter
}

// ListTranscripts returns transcripts matching the query filters.
// Word and line detail is omitted; fetch a single transcript for those.
func (h *TranscriptsHandler) ListTranscripts(w http.ResponseWriter, r *http.Request) {
	filter := transcriptFilter(r)

	items, total, err := h.db.ListTranscripts(r.Context(), filter)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("transcript list failed")
		WriteError(w, http.StatusInternalServerError, "failed to list transcripts")
		return
	}
	WriteJSON(w, http.StatusOK, ListResponse{
		Total:  total,
		Count:  len(items),
		Limit:  filter.Limit,
		Offset: filter.Offset,
		Data:   items,
	})
}

// GetTranscript returns one transcript with full word and line detail.
func (h *TranscriptsHandler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	jobID, err := PathUUID(r, "job_id")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid job ID")
		return
	}

	t, err := h.db.GetTranscript(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			WriteError(w, http.StatusNotFound, "transcript not found")
			return
		}
		hlog.FromRequest(r).Error().Err(err).Msg("transcript fetch failed")
		WriteError(w, http.StatusInternalServerError, "failed to fetch transcript")
		return
	}
	WriteJSON(w, http.StatusOK, t)
}

// GetTranscriptText returns just the rendered transcript as plain text.
func (h *TranscriptsHandler) GetTranscriptText(w http.ResponseWriter, r *http.Request) {
	jobID, err := PathUUID(r, "job_id")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid job ID")
		return
	}

	t, err := h.db.GetTranscript(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			WriteError(w, http.StatusNotFound, "transcript not found")
			return
		}
		hlog.FromRequest(r).Error().Err(err).Msg("transcript fetch failed")
		WriteError(w, http.StatusInternalServerError, "failed to fetch transcript")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(t.Text))
}

// SearchTranscripts performs full-text search across transcripts.
func (h *TranscriptsHandler) SearchTranscripts(w http.ResponseWriter, r *http.Request) {
	q, ok := QueryString(r, "q")
	if !ok {
		WriteError(w, http.StatusBadRequest, "q parameter is required")
		return
	}

	filter := transcriptFilter(r)
	hits, total, err := h.db.SearchTranscripts(r.Context(), q, filter)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("transcript search failed")
		WriteError(w, http.StatusInternalServerError, "search failed")
		return
	}
	WriteJSON(w, http.StatusOK, ListResponse{
		Total:  total,
		Count:  len(hits),
		Limit:  filter.Limit,
		Offset: filter.Offset,
		Data:   hits,
	})
}
