package ingest

import "github.com/speechlab/align-engine/internal/api"

// Live bundles the event bus with the optional drop-dir watcher into the
// single live-data source the API layer consumes.
type Live struct {
	*EventBus
	watcher *Watcher
}

// NewLive wraps the bus and watcher. watcher may be nil when no drop
// directory is configured.
func NewLive(bus *EventBus, w *Watcher) *Live {
	return &Live{EventBus: bus, watcher: w}
}

// WatcherStatus returns the drop-dir watcher status, or nil when no
// watcher is running.
func (l *Live) WatcherStatus() *api.WatcherStatusData {
	if l.watcher == nil {
		return nil
	}
	return l.watcher.Status()
}
