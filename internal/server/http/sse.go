package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	logpkg "github.com/rzbill/rangeflow/pkg/log"
)

// scanEvent is the SSE payload for one record. Byte fields are base64 per
// encoding/json convention.
type scanEvent struct {
	Space   string `json:"space"`
	Seq     uint64 `json:"seq"`
	Header  []byte `json:"header,omitempty"`
	Payload []byte `json:"payload"`
}

// handleScanSSE streams a range scan as Server-Sent Events. The stream ends
// with an "end" event on exhaustion or an "error" event on a terminal scan
// failure; client disconnect cancels the request context and tears the scan
// down.
func (s *Server) handleScanSSE(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	space, opts, limit, err := scanParams(r)
	if err != nil || space == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	src, err := s.rt.ScanSource(space, opts)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	st, err := src.Open(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer st.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flush(w)

	sent := 0
	for limit <= 0 || sent < limit {
		item, err := st.Recv(r.Context())
		if err == io.EOF {
			writeSSE(w, "end", []byte("{}"))
			return
		}
		if err != nil {
			if errors.Is(err, r.Context().Err()) {
				return // client went away
			}
			s.logger.Warn("scan failed", logpkg.Str("space", space), logpkg.Err(err))
			body, _ := json.Marshal(map[string]string{"error": err.Error()})
			writeSSE(w, "error", body)
			return
		}
		body, _ := json.Marshal(scanEvent{
			Space:   item.Space,
			Seq:     item.Seq,
			Header:  item.Header,
			Payload: item.Payload,
		})
		if !writeSSE(w, "", body) {
			return
		}
		sent++
	}
	writeSSE(w, "end", []byte("{}"))
}

// writeSSE emits one event and flushes. Reports false on write failure.
func writeSSE(w http.ResponseWriter, event string, data []byte) bool {
	if event != "" {
		if _, err := w.Write([]byte("event: " + event + "\n")); err != nil {
			return false
		}
	}
	if _, err := w.Write([]byte("data: ")); err != nil {
		return false
	}
	if _, err := w.Write(data); err != nil {
		return false
	}
	if _, err := w.Write([]byte("\n\n")); err != nil {
		return false
	}
	flush(w)
	return true
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
