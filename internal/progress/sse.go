package progress

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/tmaxmax/go-sse"

	"dataflowguard/internal/model"
)

// Handler renders a Bus subscription as a Server-Sent Events stream: one
// `event: <type>` line, one JSON `data:` line, and a blank-line
// terminator per message, matching the external wire format.
type Handler struct {
	bus *Bus
}

func NewHandler(bus *Bus) *Handler {
	return &Handler{bus: bus}
}

// Stream subscribes to runID and copies events to w until the request
// context is cancelled or the bus closes the subscription on
// run_completed.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request, runID string, snapshot model.ProgressEvent) error {
	events, unsubscribe := h.bus.Subscribe(runID, snapshot)
	defer unsubscribe()

	flusher, ok := w.(http.Flusher)
	if !ok {
		return errNoFlush
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")

	heartbeat := time.NewTicker(HeartbeatInterval)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-heartbeat.C:
			if err := writeEvent(w, model.ProgressEvent{
				RunID:     runID,
				Type:      model.EventHeartbeat,
				Timestamp: time.Now(),
			}); err != nil {
				return err
			}
			flusher.Flush()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := writeEvent(w, ev); err != nil {
				return err
			}
			flusher.Flush()
			if ev.Type == model.EventRunCompleted {
				return nil
			}
			heartbeat.Reset(HeartbeatInterval)
		}
	}
}

var errNoFlush = errors.New("progress: response writer does not support flushing")

func writeEvent(w http.ResponseWriter, ev model.ProgressEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	msg := &sse.Message{Type: sse.Type(string(ev.Type))}
	msg.AppendData(string(payload))
	_, err = msg.WriteTo(w)
	return err
}

// Broadcast publishes ev to the bus; orchestrator callers never touch the
// HTTP layer directly.
func (h *Handler) Broadcast(ctx context.Context, ev model.ProgressEvent) {
	h.bus.Publish(ev)
}
