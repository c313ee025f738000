package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/yourusername/bgquiz/pkg/crawl"
)

// CrawlStream handles GET /addLastMatchesAndSave/stream?jobId=. It
// replays the job's current state, then relays queue/progress events
// until the terminal done or error closes the stream.
func (h *Handlers) CrawlStream(w http.ResponseWriter, r *http.Request, _, _ string) {
	jobID := r.URL.Query().Get("jobId")
	ch, cancel, ok := h.queue.Subscribe(jobID)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown job id", "JOB_NOT_FOUND")
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeSSEError(w, "streaming not supported")
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-ch:
			if !open {
				return
			}
			writeSSEEvent(w, string(ev.Type), ev.Data)
			flusher.Flush()
			if ev.Type == crawl.EventDone || ev.Type == crawl.EventError {
				return
			}
		}
	}
}

// writeSSEEvent writes a Server-Sent Event to the response.
func writeSSEEvent(w http.ResponseWriter, event string, data interface{}) {
	fmt.Fprintf(w, "event: %s\n", event)
	if data != nil {
		jsonData, _ := json.Marshal(data)
		fmt.Fprintf(w, "data: %s\n", jsonData)
	}
	fmt.Fprintf(w, "\n")
}

// writeSSEError writes an error event and closes the stream.
func writeSSEError(w http.ResponseWriter, message string) {
	writeSSEEvent(w, "error", map[string]string{"error": message})
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}
