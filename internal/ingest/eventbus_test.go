package ingest

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/speechlab/align-engine/internal/api"
)

// ── EventBus Publish/Subscribe ────────────────────────────────────────

func TestEventBusPublishSubscribe(t *testing.T) {
	t.Run("subscriber_receives_published_event", func(t *testing.T) {
		eb := NewEventBus(64)
		ch, cancel := eb.Subscribe(api.EventFilter{})
		defer cancel()

		eb.Publish(EventData{
			Type:    "transcript",
			Source:  "watcher",
			Payload: map[string]string{"name": "interview"},
		})

		select {
		case evt := <-ch:
			if evt.Type != "transcript" {
				t.Errorf("Type = %q, want transcript", evt.Type)
			}
			if evt.Source != "watcher" {
				t.Errorf("Source = %q, want watcher", evt.Source)
			}
			if evt.ID == "" {
				t.Error("expected non-empty event ID")
			}
			if evt.Timestamp == "" {
				t.Error("expected non-empty timestamp")
			}
			// Verify data is valid JSON
			var payload map[string]string
			if err := json.Unmarshal(evt.Data, &payload); err != nil {
				t.Fatalf("Data is not valid JSON: %v", err)
			}
			if payload["name"] != "interview" {
				t.Errorf("payload name = %q, want interview", payload["name"])
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	})

	t.Run("filtered_subscriber_misses_non_matching", func(t *testing.T) {
		eb := NewEventBus(64)
		ch, cancel := eb.Subscribe(api.EventFilter{Types: []string{"transcript"}})
		defer cancel()

		eb.Publish(EventData{Type: "watcher_status", Payload: "x"})

		select {
		case evt := <-ch:
			t.Fatalf("should not receive event, got %+v", evt)
		case <-time.After(50 * time.Millisecond):
			// expected
		}
	})

	t.Run("source_filter_selects_matching", func(t *testing.T) {
		eb := NewEventBus(64)
		ch, cancel := eb.Subscribe(api.EventFilter{Sources: []string{"mqtt"}})
		defer cancel()

		eb.Publish(EventData{Type: "transcript", Source: "watcher", Payload: "a"})
		eb.Publish(EventData{Type: "transcript", Source: "mqtt", Payload: "b"})

		select {
		case evt := <-ch:
			if evt.Source != "mqtt" {
				t.Errorf("Source = %q, want mqtt", evt.Source)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}

		select {
		case evt := <-ch:
			t.Fatalf("expected exactly one event, got second: %+v", evt)
		case <-time.After(50 * time.Millisecond):
		}
	})

	t.Run("cancel_stops_delivery", func(t *testing.T) {
		eb := NewEventBus(64)
		ch, cancel := eb.Subscribe(api.EventFilter{})
		cancel()

		eb.Publish(EventData{Type: "transcript", Payload: "x"})

		select {
		case _, ok := <-ch:
			if ok {
				t.Fatal("should not receive event after cancel")
			}
		case <-time.After(50 * time.Millisecond):
			// expected, channel not closed, just removed from map
		}
	})

	t.Run("multiple_subscribers", func(t *testing.T) {
		eb := NewEventBus(64)
		ch1, cancel1 := eb.Subscribe(api.EventFilter{})
		defer cancel1()
		ch2, cancel2 := eb.Subscribe(api.EventFilter{})
		defer cancel2()

		eb.Publish(EventData{Type: "transcript", Payload: "x"})

		for i, ch := range []<-chan api.SSEEvent{ch1, ch2} {
			select {
			case evt := <-ch:
				if evt.Type != "transcript" {
					t.Errorf("subscriber %d: Type = %q, want transcript", i, evt.Type)
				}
			case <-time.After(time.Second):
				t.Fatalf("subscriber %d: timed out", i)
			}
		}
	})

	t.Run("subscriber_count_tracks_cancel", func(t *testing.T) {
		eb := NewEventBus(64)
		_, cancel1 := eb.Subscribe(api.EventFilter{})
		_, cancel2 := eb.Subscribe(api.EventFilter{})

		if n := eb.SubscriberCount(); n != 2 {
			t.Errorf("SubscriberCount = %d, want 2", n)
		}
		cancel1()
		if n := eb.SubscriberCount(); n != 1 {
			t.Errorf("SubscriberCount after cancel = %d, want 1", n)
		}
		cancel2()
		if n := eb.SubscriberCount(); n != 0 {
			t.Errorf("SubscriberCount after both cancels = %d, want 0", n)
		}
	})
}

// ── EventBus ReplaySince ─────────────────────────────────────────────

func TestEventBusReplaySince(t *testing.T) {
	t.Run("replay_all_when_empty_lastID", func(t *testing.T) {
		eb := NewEventBus(64)
		eb.Publish(EventData{Type: "transcript", Payload: "a"})
		eb.Publish(EventData{Type: "watcher_status", Payload: "b"})

		events := eb.ReplaySince("", api.EventFilter{})
		if len(events) != 2 {
			t.Fatalf("got %d events, want 2", len(events))
		}
	})

	t.Run("replay_after_specific_id", func(t *testing.T) {
		eb := NewEventBus(64)
		eb.Publish(EventData{Type: "transcript", Payload: "a"})

		// Grab the first event's ID from the ring
		allEvents := eb.ReplaySince("", api.EventFilter{})
		if len(allEvents) != 1 {
			t.Fatalf("expected 1 event, got %d", len(allEvents))
		}
		firstID := allEvents[0].ID

		eb.Publish(EventData{Type: "watcher_status", Payload: "b"})

		events := eb.ReplaySince(firstID, api.EventFilter{})
		if len(events) != 1 {
			t.Fatalf("got %d events, want 1 (after first)", len(events))
		}
		if events[0].Type != "watcher_status" {
			t.Errorf("Type = %q, want watcher_status", events[0].Type)
		}
	})

	t.Run("replay_with_filter", func(t *testing.T) {
		eb := NewEventBus(64)
		eb.Publish(EventData{Type: "transcript", Source: "http", Payload: "a"})
		eb.Publish(EventData{Type: "transcript", Source: "mqtt", Payload: "b"})

		events := eb.ReplaySince("", api.EventFilter{Sources: []string{"mqtt"}})
		if len(events) != 1 {
			t.Fatalf("got %d events, want 1 (filtered)", len(events))
		}
		if events[0].Source != "mqtt" {
			t.Errorf("Source = %q, want mqtt", events[0].Source)
		}
	})

	t.Run("unknown_lastID_replays_all", func(t *testing.T) {
		eb := NewEventBus(64)
		eb.Publish(EventData{Type: "transcript", Payload: "a"})

		// When lastEventID is not found (overwritten by ring wrap), all available
		// events are returned so the client doesn't silently miss everything.
		events := eb.ReplaySince("nonexistent-id", api.EventFilter{})
		if len(events) != 1 {
			t.Fatalf("got %d events, want 1 (fallback replay all)", len(events))
		}
	})

	t.Run("ring_wrap_keeps_newest", func(t *testing.T) {
		eb := NewEventBus(2)
		eb.Publish(EventData{Type: "transcript", Payload: "a"})
		eb.Publish(EventData{Type: "transcript", Payload: "b"})
		eb.Publish(EventData{Type: "transcript", Payload: "c"})

		events := eb.ReplaySince("", api.EventFilter{})
		if len(events) != 2 {
			t.Fatalf("got %d events, want 2 (ring capacity)", len(events))
		}
		var first, second string
		if err := json.Unmarshal(events[0].Data, &first); err != nil {
			t.Fatalf("unmarshal first: %v", err)
		}
		if err := json.Unmarshal(events[1].Data, &second); err != nil {
			t.Fatalf("unmarshal second: %v", err)
		}
		if first != "b" || second != "c" {
			t.Errorf("replayed payloads = %q, %q, want b, c", first, second)
		}
	})
}
