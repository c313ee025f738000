package api

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/yourusername/bgquiz/pkg/crawl"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins - configure properly in production
	},
}

// WSCrawlEvent mirrors one SSE event over the socket.
type WSCrawlEvent struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// CrawlWS handles GET /addLastMatchesAndSave/ws?jobId=, a WebSocket
// mirror of the SSE stream for clients without EventSource.
func (h *Handlers) CrawlWS(w http.ResponseWriter, r *http.Request, _, _ string) {
	jobID := r.URL.Query().Get("jobId")
	ch, cancel, ok := h.queue.Subscribe(jobID)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown job id", "JOB_NOT_FOUND")
		return
	}
	defer cancel()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	// Drain client frames so a close is noticed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				conn.Close()
				return
			}
		}
	}()

	for ev := range ch {
		if err := conn.WriteJSON(WSCrawlEvent{Event: string(ev.Type), Data: ev.Data}); err != nil {
			return
		}
		if ev.Type == crawl.EventDone || ev.Type == crawl.EventError {
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
