package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/speechlab/align-engine/internal/ctm"
	"github.com/speechlab/align-engine/internal/database"
	"github.com/speechlab/align-engine/internal/metrics"
	"github.com/speechlab/align-engine/internal/rttm"
	"github.com/speechlab/align-engine/internal/storage"
)

// Job is one alignment request. Artifacts arrive either raw (CTM/RTTM
// bytes, parsed by the worker) or pre-parsed (Words/Segments); pre-parsed
// input wins when both are set.
type Job struct {
	ID         uuid.UUID
	Name       string // recording name, for display and search
	Source     string // "http", "mqtt", or "watcher"
	CTM        []byte
	RTTM       []byte
	Words      []ctm.Word
	Segments   []rttm.Segment
	EnqueuedAt time.Time
}

// QueueStats reports the current state of the job queue.
type QueueStats struct {
	Pending   int   `json:"pending"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// EventPublishFunc is a callback for publishing SSE events on completed
// jobs. Keeps the pool free of any dependency on the API layer.
type EventPublishFunc func(eventType, source string, payload map[string]any)

// PoolOptions configures the alignment worker pool.
type PoolOptions struct {
	DB           *database.DB
	Store        storage.TranscriptStore
	Workers      int
	QueueSize    int
	JobTimeout   time.Duration
	PublishEvent EventPublishFunc
	Log          zerolog.Logger
}

// Pool processes alignment jobs on a fixed set of workers.
type Pool struct {
	jobs   chan Job
	db     *database.DB
	store  storage.TranscriptStore
	engine *Engine
	opts   PoolOptions
	log    zerolog.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	completed atomic.Int64
	failed    atomic.Int64
	stopped   atomic.Bool
}

// NewPool creates an alignment worker pool.
func NewPool(opts PoolOptions) *Pool {
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = 60 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		jobs:   make(chan Job, opts.QueueSize),
		db:     opts.DB,
		store:  opts.Store,
		engine: New(opts.Log),
		opts:   opts,
		log:    opts.Log,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start() {
	for i := 0; i < p.opts.Workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.log.Info().Int("workers", p.opts.Workers).Int("queue_size", p.opts.QueueSize).Msg("alignment worker pool started")
}

// Stop signals workers to drain and waits for completion. Producers
// (HTTP, MQTT, watcher) must be shut down before Stop is called.
func (p *Pool) Stop() {
	p.stopped.Store(true)
	close(p.jobs)
	p.wg.Wait()
	p.cancel()
	p.log.Info().
		Int64("completed", p.completed.Load()).
		Int64("failed", p.failed.Load()).
		Msg("alignment worker pool stopped")
}

// Enqueue adds a job to the queue. Returns false if the queue is full
// or the pool has been stopped.
func (p *Pool) Enqueue(j Job) bool {
	if p.stopped.Load() {
		return false
	}
	if j.EnqueuedAt.IsZero() {
		j.EnqueuedAt = time.Now().UTC()
	}
	select {
	case p.jobs <- j:
		return true
	default:
		return false
	}
}

// Stats returns current queue statistics.
func (p *Pool) Stats() QueueStats {
	return QueueStats{
		Pending:   len(p.jobs),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
	}
}

// Workers returns the number of worker goroutines.
func (p *Pool) Workers() int { return p.opts.Workers }

// QueueSize returns the queue capacity.
func (p *Pool) QueueSize() int { return p.opts.QueueSize }

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	log := p.log.With().Int("worker", id).Logger()

	for job := range p.jobs {
		if err := p.processJob(log, job); err != nil {
			p.failed.Add(1)
			metrics.JobsTotal.WithLabelValues(job.Source, "failed").Inc()
			log.Warn().Err(err).
				Str("job_id", job.ID.String()).
				Str("name", job.Name).
				Msg("alignment job failed")
		} else {
			p.completed.Add(1)
			metrics.JobsTotal.WithLabelValues(job.Source, "completed").Inc()
		}
	}
}

func (p *Pool) processJob(log zerolog.Logger, job Job) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(p.ctx, p.opts.JobTimeout)
	defer cancel()

	// 1. Parse raw artifacts unless the submitter already did.
	words := job.Words
	if words == nil && len(job.CTM) > 0 {
		var err error
		words, _, err = ctm.Parse(bytes.NewReader(job.CTM), log)
		if err != nil {
			return fmt.Errorf("parse ctm: %w", err)
		}
	}
	segments := job.Segments
	if segments == nil && len(job.RTTM) > 0 {
		var err error
		segments, _, err = rttm.Parse(bytes.NewReader(job.RTTM), log)
		if err != nil {
			return fmt.Errorf("parse rttm: %w", err)
		}
	}

	// 2. Align.
	res := p.engine.Align(words, segments)
	alignMs := int(time.Since(start).Milliseconds())

	metrics.AlignDuration.Observe(time.Since(start).Seconds())
	metrics.WordsAligned.Add(float64(res.Stats.Words))
	for method, n := range res.Stats.Methods {
		metrics.AssignmentsTotal.WithLabelValues(method).Add(float64(n))
	}

	wordsJSON, err := json.Marshal(res.Words)
	if err != nil {
		return fmt.Errorf("marshal words: %w", err)
	}
	linesJSON, err := json.Marshal(res.Lines)
	if err != nil {
		return fmt.Errorf("marshal lines: %w", err)
	}

	// 3. Store in DB.
	row := &database.TranscriptRow{
		JobID:        job.ID,
		Name:         job.Name,
		Source:       job.Source,
		Text:         res.Text,
		WordCount:    res.Stats.Words,
		LineCount:    res.Stats.Lines,
		SpeakerCount: res.Stats.Speakers,
		UnknownWords: res.Stats.Unknown,
		AudioSeconds: res.Stats.AudioSeconds,
		AlignMs:      alignMs,
		Words:        wordsJSON,
		Lines:        linesJSON,
	}
	if _, err := p.db.InsertTranscript(ctx, row); err != nil {
		return fmt.Errorf("db insert: %w", err)
	}

	// 4. Archive the rendered transcript. Archival failure keeps the DB
	// row, so it only warns.
	if p.store != nil {
		key := job.EnqueuedAt.UTC().Format("2006/01/02") + "/" + job.ID.String() + ".txt"
		if err := p.store.Save(ctx, key, []byte(res.Text)); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("transcript archival failed")
		}
	}

	// 5. Publish SSE event.
	if p.opts.PublishEvent != nil {
		p.opts.PublishEvent("transcript", job.Source, map[string]any{
			"job_id":        job.ID.String(),
			"name":          job.Name,
			"source":        job.Source,
			"word_count":    res.Stats.Words,
			"line_count":    res.Stats.Lines,
			"speaker_count": res.Stats.Speakers,
			"unknown_words": res.Stats.Unknown,
			"align_ms":      alignMs,
		})
	}

	log.Debug().
		Str("job_id", job.ID.String()).
		Str("name", job.Name).
		Int("words", res.Stats.Words).
		Int("lines", res.Stats.Lines).
		Int("speakers", res.Stats.Speakers).
		Int("align_ms", alignMs).
		Msg("alignment complete")

	return nil
}
