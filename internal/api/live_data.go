package api

// LiveDataSource provides real-time data from the ingest pipeline to the
// API layer. The pipeline implements this interface, so there are no
// circular imports: api owns the contract.
type LiveDataSource interface {
	// Subscribe returns a channel that receives SSE events matching the
	// filter, and a cancel function to unsubscribe.
	Subscribe(filter EventFilter) (<-chan SSEEvent, func())

	// ReplaySince returns buffered events newer than the given event ID
	// (for Last-Event-ID recovery).
	ReplaySince(lastEventID string, filter EventFilter) []SSEEvent

	// WatcherStatus returns the drop-dir watcher status, or nil if the
	// watcher is not running.
	WatcherStatus() *WatcherStatusData
}

// WatcherStatusData represents the status of the drop-dir ingest mode.
type WatcherStatusData struct {
	Status         string `json:"status"` // "watching", "backfilling", "stopped"
	WatchDir       string `json:"watch_dir"`
	PairsProcessed int64  `json:"pairs_processed"`
	FilesSkipped   int64  `json:"files_skipped"`
}

// EventFilter specifies which events an SSE subscriber wants to receive.
type EventFilter struct {
	Types   []string // event types, e.g. "transcript"
	Sources []string // job sources, e.g. "watcher", "mqtt", "http"
}

// Matches reports whether an event passes the filter. Empty filter
// fields match everything.
func (f EventFilter) Matches(ev SSEEvent) bool {
	if len(f.Types) > 0 && !stringSliceContains(f.Types, ev.Type) {
		return false
	}
	if len(f.Sources) > 0 && !stringSliceContains(f.Sources, ev.Source) {
		return false
	}
	return true
}

// SSEEvent represents a server-sent event ready for transmission.
type SSEEvent struct {
	ID        string `json:"event_id"`
	Type      string `json:"event_type"`
	Source    string `json:"source,omitempty"`
	Timestamp string `json:"timestamp"`
	Data      []byte `json:"-"` // pre-serialized JSON payload
}
