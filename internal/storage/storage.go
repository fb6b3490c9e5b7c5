// Package storage archives rendered transcripts outside the database,
// either on the local filesystem or in an S3-compatible object store.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/speechlab/align-engine/internal/config"
)

// TranscriptStore abstracts transcript archival backends.
type TranscriptStore interface {
	// Save stores a rendered transcript. key format: {YYYY/MM/DD}/{job_id}.txt
	Save(ctx context.Context, key string, data []byte) error

	// Exists checks if a transcript has already been archived.
	Exists(ctx context.Context, key string) bool

	// Type returns "local" or "s3".
	Type() string
}

// New creates a TranscriptStore based on config. S3 wins when both are
// configured. Returns (nil, nil) when no backend is configured; callers
// treat a nil store as archival disabled.
func New(s3cfg config.S3Config, storeDir string, log zerolog.Logger) (TranscriptStore, error) {
	if s3cfg.Enabled() {
		store, err := NewS3Store(s3cfg, log)
		if err != nil {
			return nil, fmt.Errorf("S3 init failed: %w", err)
		}

		// Startup validation: verify credentials and bucket access
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := store.HeadBucket(ctx); err != nil {
			return nil, fmt.Errorf("S3 startup check failed (bucket=%q endpoint=%q): %w",
				s3cfg.Bucket, s3cfg.Endpoint, err)
		}
		log.Info().Str("bucket", s3cfg.Bucket).Str("endpoint", s3cfg.Endpoint).Msg("S3 connection verified")

		return store, nil
	}

	if storeDir != "" {
		return NewLocalStore(storeDir), nil
	}

	return nil, nil
}
