package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/hlog"

	"github.com/speechlab/align-engine/internal/ctm"
	"github.com/speechlab/align-engine/internal/engine"
	"github.com/speechlab/align-engine/internal/rttm"
)

// JobsHandler submits alignment jobs to the worker pool and reports
// queue state.
type JobsHandler struct {
	pool *engine.Pool
}

func NewJobsHandler(pool *engine.Pool) *JobsHandler {
	return &JobsHandler{pool: pool}
}

func (h *JobsHandler) Routes(r chi.Router) {
	r.Post("/jobs", h.SubmitJob)
	r.Get("/jobs/queue", h.GetQueueStats)
}

type jobRequest struct {
	Name     string         `json:"name"`
	CTM      string         `json:"ctm"`
	RTTM     string         `json:"rttm"`
	Words    []ctm.Word     `json:"words"`
	Segments []rttm.Segment `json:"segments"`
}

// SubmitJob enqueues an alignment job and returns its ID. The result
// lands in the transcripts table; completion is announced on the event
// stream.
func (h *JobsHandler) SubmitJob(w http.ResponseWriter, r *http.Request) {
	if h.pool == nil {
		WriteError(w, http.StatusServiceUnavailable, "job queue not available")
		return
	}

	var req jobRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Words) == 0 && req.CTM == "" {
		WriteError(w, http.StatusBadRequest, "no words to align: provide words or ctm text")
		return
	}

	job := engine.Job{
		ID:       uuid.New(),
		Name:     req.Name,
		Source:   "http",
		CTM:      []byte(req.CTM),
		RTTM:     []byte(req.RTTM),
		Words:    req.Words,
		Segments: req.Segments,
	}

	if !h.pool.Enqueue(job) {
		hlog.FromRequest(r).Warn().Str("name", req.Name).Msg("job rejected, queue full")
		WriteError(w, http.StatusServiceUnavailable, "job queue full")
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]any{
		"job_id": job.ID,
		"status": "queued",
	})
}

// GetQueueStats returns worker pool statistics.
func (h *JobsHandler) GetQueueStats(w http.ResponseWriter, r *http.Request) {
	if h.pool == nil {
		WriteJSON(w, http.StatusOK, map[string]any{"status": "not_configured"})
		return
	}

	stats := h.pool.Stats()
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"pending":    stats.Pending,
		"completed":  stats.Completed,
		"failed":     stats.Failed,
		"workers":    h.pool.Workers(),
		"queue_size": h.pool.QueueSize(),
	})
}
