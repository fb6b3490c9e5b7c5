package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/speechlab/align-engine/internal/ctm"
	"github.com/speechlab/align-engine/internal/engine"
	"github.com/speechlab/align-engine/internal/metrics"
	"github.com/speechlab/align-engine/internal/rttm"
)

// AlignHandler performs synchronous alignment. Nothing is queued or
// stored; the caller gets the full result back.
type AlignHandler struct {
	engine *engine.Engine
}

func NewAlignHandler(eng *engine.Engine) *AlignHandler {
	return &AlignHandler{engine: eng}
}

func (h *AlignHandler) Routes(r chi.Router) {
	r.Post("/align", h.Align)
}

type alignRequest struct {
	Name     string         `json:"name"`
	CTM      string         `json:"ctm"`  // raw CTM text
	RTTM     string         `json:"rttm"` // raw RTTM text
	Words    []ctm.Word     `json:"words"`
	Segments []rttm.Segment `json:"segments"`
}

type alignResponse struct {
	Name string `json:"name,omitempty"`
	engine.Result
	AlignMs   int        `json:"align_ms"`
	CTMStats  *ctm.Stats `json:"ctm_stats,omitempty"`
	RTTMStats *rttm.Stats `json:"rttm_stats,omitempty"`
}

// Align handles POST /align. Input is either a JSON body (structured
// words/segments, or raw ctm/rttm text) or a multipart form with ctm
// and rttm files. ?format=text returns just the rendered transcript.
func (h *AlignHandler) Align(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)

	resp := alignResponse{}
	var words []ctm.Word
	var segments []rttm.Segment

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			WriteErrorDetail(w, http.StatusBadRequest, "invalid multipart form", err.Error())
			return
		}
		defer r.MultipartForm.RemoveAll()
		resp.Name = r.FormValue("name")

		if file, _, err := r.FormFile("ctm"); err == nil {
			defer file.Close()
			parsed, stats, err := ctm.Parse(file, *log)
			if err != nil {
				WriteErrorDetail(w, http.StatusBadRequest, "failed to read ctm file", err.Error())
				return
			}
			words = parsed
			resp.CTMStats = &stats
		}
		if file, _, err := r.FormFile("rttm"); err == nil {
			defer file.Close()
			parsed, stats, err := rttm.Parse(file, *log)
			if err != nil {
				WriteErrorDetail(w, http.StatusBadRequest, "failed to read rttm file", err.Error())
				return
			}
			segments = parsed
			resp.RTTMStats = &stats
		}
	} else {
		var req alignRequest
		if err := DecodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		resp.Name = req.Name
		words = req.Words
		segments = req.Segments

		if words == nil && req.CTM != "" {
			parsed, stats, _ := ctm.Parse(strings.NewReader(req.CTM), *log)
			words = parsed
			resp.CTMStats = &stats
		}
		if segments == nil && req.RTTM != "" {
			parsed, stats, _ := rttm.Parse(strings.NewReader(req.RTTM), *log)
			segments = parsed
			resp.RTTMStats = &stats
		}
	}

	if len(words) == 0 {
		WriteError(w, http.StatusBadRequest, "no words to align: provide words, ctm text, or a ctm file")
		return
	}

	start := time.Now()
	resp.Result = h.engine.Align(words, segments)
	resp.AlignMs = int(time.Since(start).Milliseconds())

	metrics.AlignDuration.Observe(time.Since(start).Seconds())
	metrics.WordsAligned.Add(float64(resp.Stats.Words))
	for method, n := range resp.Stats.Methods {
		metrics.AssignmentsTotal.WithLabelValues(method).Add(float64(n))
	}

	if v, ok := QueryString(r, "format"); ok && v == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(resp.Text))
		return
	}

	WriteJSON(w, http.StatusOK, resp)
}
