package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// handleSyncStream feeds the active run's events to the client as SSE.
// The stream ends after the terminal event. The event channel is sized
// for the full run, so a client connecting late still sees every event.
func (s *Server) handleSyncStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	run, ok := s.engine.Active()
	if !ok {
		writeError(w, http.StatusNotFound, "no run to stream")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for {
		select {
		case <-r.Context().Done():
			return
		case event, open := <-run.Events():
			if !open {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
