package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/speechlab/align-engine/internal/api"
	"github.com/speechlab/align-engine/internal/config"
	"github.com/speechlab/align-engine/internal/database"
	"github.com/speechlab/align-engine/internal/engine"
	"github.com/speechlab/align-engine/internal/ingest"
	"github.com/speechlab/align-engine/internal/metrics"
	"github.com/speechlab/align-engine/internal/mqttclient"
	"github.com/speechlab/align-engine/internal/storage"
)

var version = "dev"

func main() {
	startTime := time.Now()

	var overrides config.Overrides
	flag.StringVar(&overrides.EnvFile, "env", "", "path to .env file (default .env)")
	flag.StringVar(&overrides.HTTPAddr, "addr", "", "http listen address (overrides HTTP_ADDR)")
	flag.StringVar(&overrides.LogLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	flag.StringVar(&overrides.DatabaseURL, "db", "", "database url (overrides DATABASE_URL)")
	flag.StringVar(&overrides.MQTTBrokerURL, "mqtt", "", "mqtt broker url (overrides MQTT_BROKER_URL)")
	flag.StringVar(&overrides.DropDir, "drop-dir", "", "ctm/rttm drop directory (overrides DROP_DIR)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		os.Stdout.WriteString("align-engine " + version + "\n")
		return
	}

	// Config
	cfg, err := config.Load(overrides)
	if err != nil {
		early := zerolog.New(os.Stderr).With().Timestamp().Logger()
		early.Fatal().Err(err).Msg("failed to load config")
	}

	// Logger
	log := buildLogger(cfg)
	log.Info().Str("version", version).Msg("align-engine starting")

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	dbLog := log.With().Str("component", "database").Logger()
	db, err := database.Connect(ctx, cfg.DatabaseURL, dbLog)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := db.InitSchema(ctx, database.SchemaSQL); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize schema")
	}
	if err := db.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Transcript archival
	store, err := storage.New(cfg.S3, cfg.StoreDir, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize transcript store")
	}
	if store == nil {
		log.Info().Msg("transcript archival disabled")
	} else {
		log.Info().Str("backend", store.Type()).Msg("transcript archival enabled")
	}

	// Event bus for SSE
	bus := ingest.NewEventBus(256)

	// Alignment worker pool
	poolLog := log.With().Str("component", "pool").Logger()
	pool := engine.NewPool(engine.PoolOptions{
		DB:         db,
		Store:      store,
		Workers:    cfg.Workers,
		QueueSize:  cfg.QueueSize,
		JobTimeout: cfg.JobTimeout,
		PublishEvent: func(eventType, source string, payload map[string]any) {
			bus.Publish(ingest.EventData{Type: eventType, Source: source, Payload: payload})
		},
		Log: poolLog,
	})
	pool.Start()

	// Drop-dir watcher (optional)
	var watcher *ingest.Watcher
	if cfg.DropDir != "" {
		watcher = ingest.NewWatcher(pool, cfg.DropDir, cfg.DropBackfill, log)
		if err := watcher.Start(); err != nil {
			log.Fatal().Err(err).Str("drop_dir", cfg.DropDir).Msg("failed to start drop-dir watcher")
		}
	}
	live := ingest.NewLive(bus, watcher)

	// MQTT job feed (optional)
	var mqtt *mqttclient.Client
	if cfg.MQTTBrokerURL != "" {
		mqttLog := log.With().Str("component", "mqtt").Logger()
		mqtt, err = mqttclient.Connect(mqttclient.Options{
			BrokerURL: cfg.MQTTBrokerURL,
			ClientID:  cfg.MQTTClientID,
			Topics:    cfg.MQTTTopics,
			Username:  cfg.MQTTUsername,
			Password:  cfg.MQTTPassword,
			Log:       mqttLog,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to mqtt broker")
		}
		ingestor := ingest.NewMQTTIngestor(pool, cfg.DropDir, log)
		mqtt.SetMessageHandler(ingestor.HandleMessage)
	}

	// Scrape-time gauges
	prometheus.MustRegister(metrics.NewCollector(db.Pool, liveStats{pool: pool, bus: bus}))

	// HTTP Server
	httpLog := log.With().Str("component", "http").Logger()
	srv := api.NewServer(cfg, db, mqtt, live, pool, version, startTime, httpLog)

	// Start HTTP server in background
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Wait for shutdown signal or server error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server error")
		}
	}

	// Graceful shutdown: stop the listener, then the producers, then drain
	// the queue. The database closes last via defer.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}
	if watcher != nil {
		watcher.Stop()
	}
	if mqtt != nil {
		mqtt.Close()
	}
	pool.Stop()

	log.Info().Msg("align-engine stopped")
}

// buildLogger builds the root logger from LOG_LEVEL, teeing into a
// rotating file when LOG_FILE is set.
func buildLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var w io.Writer = os.Stdout
	if cfg.LogFile != "" {
		rotating := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			MaxAge:     cfg.LogMaxAgeDays,
			Compress:   true,
		}
		w = zerolog.MultiLevelWriter(os.Stdout, rotating)
	}

	return zerolog.New(w).With().Timestamp().Logger().Level(level)
}

// liveStats adapts the pool and event bus to the metrics collector.
type liveStats struct {
	pool *engine.Pool
	bus  *ingest.EventBus
}

func (s liveStats) QueuePending() int       { return s.pool.Stats().Pending }
func (s liveStats) SSESubscriberCount() int { return s.bus.SubscriberCount() }
