package httpserver

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rzbill/rangeflow/internal/runtime"
	logpkg "github.com/rzbill/rangeflow/pkg/log"
)

type Server struct {
	rt     *runtime.Runtime
	srv    *http.Server
	lis    net.Listener
	logger logpkg.Logger
}

// New builds the HTTP server around a runtime.
func New(rt *runtime.Runtime, logger logpkg.Logger) *Server {
	if logger == nil {
		logger = logpkg.NopLogger()
	}
	mux := http.NewServeMux()
	s := &Server{
		rt:     rt,
		logger: logger.With(logpkg.Component("http")),
		srv:    &http.Server{Handler: cors(mux)},
	}
	mux.HandleFunc("/v1/healthz", s.handleHealth)
	mux.HandleFunc("/v1/records/append", s.handleAppend)
	mux.HandleFunc("/v1/records/trim", s.handleTrim)
	mux.HandleFunc("/v1/scan", s.handleScanSSE)
	return s
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	s.logger.Info("http listening", logpkg.Str("addr", l.Addr().String()))
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		return err
	}
}

// Close stops accepting connections.
func (s *Server) Close() {
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.rt.CheckHealth(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "not_serving"})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type appendReq struct {
	Space   string `json:"space"`
	Records []struct {
		Header  []byte `json:"header"`
		Payload []byte `json:"payload"`
	} `json:"records"`
}

func (s *Server) handleAppend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req appendReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Space == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	recs := make([]runtime.AppendRecord, 0, len(req.Records))
	for _, rec := range req.Records {
		recs = append(recs, runtime.AppendRecord{Header: rec.Header, Payload: rec.Payload})
	}
	seqs, err := s.rt.Append(r.Context(), req.Space, recs)
	if err != nil {
		s.logger.Error("append failed", logpkg.Str("space", req.Space), logpkg.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"seqs": seqs})
}

type trimReq struct {
	Space     string `json:"space"`
	BeforeSeq uint64 `json:"beforeSeq"`
}

func (s *Server) handleTrim(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req trimReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Space == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	deleted, err := s.rt.Trim(r.Context(), req.Space, req.BeforeSeq, 0, 0)
	if err != nil {
		s.logger.Error("trim failed", logpkg.Str("space", req.Space), logpkg.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"deleted": deleted})
}

// scanParams parses scan query parameters.
func scanParams(r *http.Request) (space string, opts runtime.ScanOptions, limit int, err error) {
	q := r.URL.Query()
	space = q.Get("space")
	opts.Filter = q.Get("filter")
	opts.Fetch = q.Get("fetch")
	opts.Reverse = q.Get("reverse") == "true" || q.Get("reverse") == "1"
	opts.SkipCorrupt = q.Get("skip_corrupt") == "true" || q.Get("skip_corrupt") == "1"
	for _, p := range []struct {
		name string
		dst  *uint64
	}{{"start", &opts.StartSeq}, {"end", &opts.EndSeq}} {
		if v := q.Get(p.name); v != "" {
			*p.dst, err = strconv.ParseUint(v, 10, 64)
			if err != nil {
				return
			}
		}
	}
	if v := q.Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
	}
	return
}
