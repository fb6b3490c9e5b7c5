package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/speechlab/align-engine/internal/engine"
	"github.com/speechlab/align-engine/internal/metrics"
)

// MQTTIngestor decodes job payloads received over MQTT and enqueues them.
// It is wired as the MQTT client's message handler.
type MQTTIngestor struct {
	pool    *engine.Pool
	dropDir string
	log     zerolog.Logger
}

// NewMQTTIngestor creates an ingestor feeding the given pool. dropDir is
// used to resolve ctm_path/rttm_path references and may be empty.
func NewMQTTIngestor(pool *engine.Pool, dropDir string, log zerolog.Logger) *MQTTIngestor {
	return &MQTTIngestor{
		pool:    pool,
		dropDir: dropDir,
		log:     log.With().Str("component", "mqtt_ingest").Logger(),
	}
}

// mqttJob is the payload accepted on job topics. Artifacts arrive either
// inline (ctm/rttm text) or as path references resolved near the drop dir.
type mqttJob struct {
	Name     string `json:"name"`
	CTM      string `json:"ctm"`
	RTTM     string `json:"rttm"`
	CTMPath  string `json:"ctm_path"`
	RTTMPath string `json:"rttm_path"`
}

// HandleMessage parses one MQTT message into an alignment job.
func (m *MQTTIngestor) HandleMessage(topic string, payload []byte) {
	metrics.MQTTMessagesTotal.Inc()

	job, err := m.parseJob(payload)
	if err != nil {
		m.log.Warn().Err(err).Str("topic", topic).Msg("mqtt job dropped")
		return
	}

	if !m.pool.Enqueue(job) {
		m.log.Warn().Str("name", job.Name).Msg("job queue full, mqtt job dropped")
		return
	}

	m.log.Info().
		Str("job_id", job.ID.String()).
		Str("name", job.Name).
		Str("topic", topic).
		Msg("mqtt job enqueued")
}

func (m *MQTTIngestor) parseJob(payload []byte) (engine.Job, error) {
	var req mqttJob
	if err := json.Unmarshal(payload, &req); err != nil {
		return engine.Job{}, fmt.Errorf("malformed payload: %w", err)
	}

	ctmData := []byte(req.CTM)
	if len(ctmData) == 0 && req.CTMPath != "" {
		path := ResolveArtifact(m.dropDir, req.CTMPath)
		if path == "" {
			return engine.Job{}, fmt.Errorf("ctm reference %q not found", req.CTMPath)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return engine.Job{}, fmt.Errorf("read ctm reference: %w", err)
		}
		ctmData = data
		if req.Name == "" {
			req.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
	}
	if len(bytes.TrimSpace(ctmData)) == 0 {
		return engine.Job{}, errors.New("payload has no words")
	}

	// Missing diarization is not fatal: the job still runs and every word
	// comes out UNKNOWN.
	rttmData := []byte(req.RTTM)
	if len(rttmData) == 0 && req.RTTMPath != "" {
		path := ResolveArtifact(m.dropDir, req.RTTMPath)
		if path == "" {
			m.log.Warn().Str("rttm_path", req.RTTMPath).Msg("rttm reference not found")
		} else if data, err := os.ReadFile(path); err != nil {
			m.log.Warn().Err(err).Str("path", path).Msg("failed to read rttm reference")
		} else {
			rttmData = data
		}
	}

	return engine.Job{
		ID:     uuid.New(),
		Name:   req.Name,
		Source: "mqtt",
		CTM:    ctmData,
		RTTM:   rttmData,
	}, nil
}
