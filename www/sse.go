package www

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"parttracker/engine"
)

type SSEEvent struct {
	Event string
	Data  string
}

// EventHub fans engine events out to connected browsers.
type EventHub struct {
	mu        sync.RWMutex
	clients   map[chan SSEEvent]struct{}
	broadcast chan SSEEvent
	stopChan  chan struct{}
}

func NewEventHub() *EventHub {
	return &EventHub{
		clients:   make(map[chan SSEEvent]struct{}),
		broadcast: make(chan SSEEvent, 256),
		stopChan:  make(chan struct{}),
	}
}

func (h *EventHub) Start() {
	go h.run()
}

func (h *EventHub) Stop() {
	select {
	case h.stopChan <- struct{}{}:
	default:
	}
}

func (h *EventHub) run() {
	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-h.stopChan:
			return
		case evt := <-h.broadcast:
			h.mu.RLock()
			for ch := range h.clients {
				select {
				case ch <- evt:
				default:
					// drop if full
				}
			}
			h.mu.RUnlock()
		case <-keepalive.C:
			h.mu.RLock()
			for ch := range h.clients {
				select {
				case ch <- SSEEvent{Event: "keepalive", Data: "ping"}:
				default:
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *EventHub) Broadcast(event, data string) {
	select {
	case h.broadcast <- SSEEvent{Event: event, Data: data}:
	default:
	}
}

// BroadcastJSON encodes v as the event data.
func (h *EventHub) BroadcastJSON(event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("sse: encode %s: %v", event, err)
		return
	}
	h.Broadcast(event, string(data))
}

func (h *EventHub) AddClient() chan SSEEvent {
	ch := make(chan SSEEvent, 64)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *EventHub) RemoveClient(ch chan SSEEvent) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
	close(ch)
}

func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SetupEngineListeners wires engine events to SSE broadcasts. The returned
// func removes the subscriptions.
func (h *EventHub) SetupEngineListeners(eng *engine.Engine) func() {
	bus := eng.Events
	ids := []engine.SubscriberID{
		engine.On(bus, func(ev engine.PartCreatedEvent) {
			h.BroadcastJSON("part-update", map[string]any{"type": "created", "part_id": ev.PartID, "product": ev.Product})
		}, engine.EventPartCreated),
		engine.On(bus, func(ev engine.PartUpdatedEvent) {
			h.BroadcastJSON("part-update", map[string]any{"type": "updated", "part_id": ev.PartID, "product": ev.NewProduct, "previous_product": ev.OldProduct})
		}, engine.EventPartUpdated),
		engine.On(bus, func(ev engine.PartDeletedEvent) {
			h.BroadcastJSON("part-update", map[string]any{"type": "deleted", "part_id": ev.PartID, "product": ev.Product})
		}, engine.EventPartDeleted),
		engine.On(bus, func(ev engine.StageConfirmedEvent) {
			h.BroadcastJSON("part-update", map[string]any{"type": "stage_confirmed", "part_id": ev.PartID, "product": ev.Product, "stage": ev.Stage, "operator": ev.Operator})
		}, engine.EventStageConfirmed),
		engine.On(bus, func(ev engine.StageCancelledEvent) {
			h.BroadcastJSON("part-update", map[string]any{"type": "stage_cancelled", "part_id": ev.PartID, "product": ev.Product, "stage": ev.Stage, "status": ev.NewStatus})
		}, engine.EventStageCancelled),
		engine.On(bus, func(ev engine.RouteChangedEvent) {
			h.BroadcastJSON("route-update", map[string]any{"id": ev.TemplateID, "name": ev.Name, "action": ev.Action})
		}, engine.EventRouteChanged),
		engine.On(bus, func(ev engine.StageDictionaryChangedEvent) {
			h.BroadcastJSON("stage-update", map[string]any{"id": ev.StageID, "name": ev.Name, "action": ev.Action})
		}, engine.EventStageDictionaryChanged),
		bus.SubscribeTypes(func(evt engine.Event) {
			state := "disconnected"
			if evt.Type == engine.EventMessagingConnected {
				state = "connected"
			}
			h.BroadcastJSON("system-status", map[string]string{"messaging": state})
		}, engine.EventMessagingConnected, engine.EventMessagingDisconnected),
	}
	return func() { bus.Unsubscribe(ids...) }
}

// SSEHandler serves the SSE endpoint.
func (h *EventHub) SSEHandler(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := h.AddClient()
	defer h.RemoveClient(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case evt := <-ch:
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Event, evt.Data); err != nil {
				log.Printf("sse: write error: %v", err)
				return
			}
			flusher.Flush()
		}
	}
}
