package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	cfgpkg "github.com/rzbill/rangeflow/internal/config"
	"github.com/rzbill/rangeflow/internal/runtime"
	pebblestore "github.com/rzbill/rangeflow/internal/storage/pebble"
	logpkg "github.com/rzbill/rangeflow/pkg/log"
)

func newTestServer(t *testing.T) (*Server, *runtime.Runtime) {
	t.Helper()
	rt, err := runtime.Open(runtime.Options{
		DataDir: t.TempDir(),
		Fsync:   pebblestore.FsyncModeAlways,
		Config:  cfgpkg.Default(),
	})
	if err != nil {
		t.Fatalf("rt open: %v", err)
	}
	t.Cleanup(func() { rt.Close() })
	logger := logpkg.NewLogger(logpkg.WithLevel(logpkg.ErrorLevel))
	return New(rt, logger), rt
}

func TestHealthHandler(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/healthz", nil)
	w := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status: %d", w.Code)
	}
}

func TestAppendHandler(t *testing.T) {
	s, rt := newTestServer(t)
	body := `{"space":"orders","records":[{"payload":"aGVsbG8="},{"payload":"d29ybGQ="}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/records/append", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status: %d body: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Seqs []uint64 `json:"seqs"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Seqs) != 2 || resp.Seqs[0] != 1 || resp.Seqs[1] != 2 {
		t.Fatalf("seqs: %v", resp.Seqs)
	}
	last, err := rt.LastSeq("orders")
	if err != nil || last != 2 {
		t.Fatalf("last seq: %d err: %v", last, err)
	}
}

func TestAppendHandlerRejectsMissingSpace(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/records/append", strings.NewReader(`{"records":[]}`))
	w := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: %d", w.Code)
	}
}

func TestScanHandlerStreamsRecords(t *testing.T) {
	s, rt := newTestServer(t)
	_, err := rt.Append(context.Background(), "orders", []runtime.AppendRecord{
		{Payload: []byte("a")},
		{Payload: []byte("b")},
		{Payload: []byte("c")},
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/v1/scan?space=orders", nil)
	w := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status: %d body: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type: %s", ct)
	}
	body := w.Body.String()
	if got := strings.Count(body, "data: {\"space\""); got != 3 {
		t.Fatalf("record events: %d body: %s", got, body)
	}
	if !strings.Contains(body, "event: end") {
		t.Fatalf("missing end event: %s", body)
	}
}

func TestScanHandlerHonorsLimit(t *testing.T) {
	s, rt := newTestServer(t)
	_, err := rt.Append(context.Background(), "orders", []runtime.AppendRecord{
		{Payload: []byte("a")},
		{Payload: []byte("b")},
		{Payload: []byte("c")},
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/v1/scan?space=orders&limit=2", nil)
	w := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, req)
	if got := strings.Count(w.Body.String(), "data: {\"space\""); got != 2 {
		t.Fatalf("record events: %d", got)
	}
}

func TestTrimHandler(t *testing.T) {
	s, rt := newTestServer(t)
	_, err := rt.Append(context.Background(), "orders", []runtime.AppendRecord{
		{Payload: []byte("a")},
		{Payload: []byte("b")},
		{Payload: []byte("c")},
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	body := `{"space":"orders","beforeSeq":3}`
	req := httptest.NewRequest(http.MethodPost, "/v1/records/trim", strings.NewReader(body))
	w := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status: %d body: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Deleted int `json:"deleted"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Deleted != 2 {
		t.Fatalf("deleted: %d err: %v", resp.Deleted, err)
	}
}

func TestScanHandlerRequiresSpace(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/scan", nil)
	w := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: %d", w.Code)
	}
}

func TestScanHandlerWithFilter(t *testing.T) {
	s, rt := newTestServer(t)
	_, err := rt.Append(context.Background(), "orders", []runtime.AppendRecord{
		{Payload: []byte("keep me")},
		{Payload: []byte("drop")},
		{Payload: []byte("keep too")},
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/v1/scan?space=orders&filter="+
		"text.contains(%22keep%22)", nil)
	w := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status: %d body: %s", w.Code, w.Body.String())
	}
	if got := strings.Count(w.Body.String(), "data: {\"space\""); got != 2 {
		t.Fatalf("record events: %d body: %s", got, w.Body.String())
	}
}
