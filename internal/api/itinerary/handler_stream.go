package itinerary

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/go-trip-planner/internal/api"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// Stream serves the SSE generation endpoint. Every frame is a single
// "data: <json>\n\n" block; the stream ends after the terminal event.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	ctx := r.Context()

	var req types.StreamGenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeSSEError(w, flusher, "Invalid request body: "+err.Error())
		return
	}

	eventCh := make(chan types.StreamEvent, 100)
	go func() {
		defer close(eventCh)
		if err := h.service.GenerateItineraryStream(ctx, req, eventCh); err != nil {
			h.logger.ErrorContext(ctx, "Streamed generation ended with error", slog.Any("error", err))
		}
	}()

	h.logger.InfoContext(ctx, "Started itinerary stream",
		slog.Int("days", req.Trip.DayCount()),
		slog.Bool("smart_regeneration", req.SmartRegeneration),
	)

	for {
		select {
		case event, open := <-eventCh:
			if !open {
				return
			}

			data, err := json.Marshal(event)
			if err != nil {
				h.logger.ErrorContext(ctx, "Failed to marshal stream event", slog.Any("error", err))
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()

			if event.IsTerminal() {
				// Nothing follows the terminal event; drain is unnecessary
				// because the producer stops after sending it.
				return
			}

		case <-ctx.Done():
			h.logger.InfoContext(ctx, "Client disconnected from itinerary stream")
			return
		}
	}
}

func (h *Handler) writeSSEError(w http.ResponseWriter, flusher http.Flusher, errorMsg string) {
	event := types.StreamEvent{
		Type:      types.EventTypeError,
		Error:     errorMsg,
		Timestamp: time.Now(),
		EventID:   uuid.New().String(),
	}
	data, _ := json.Marshal(event)
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}
