package scan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// scriptCursor serves a fixed set of entries carrying per-probe error
// injection and instrumentation.
type scriptCursor struct {
	entries   []KV
	probeErrs map[int]error // probe index (0-based) -> error
	pos       int
	probes    int32
	inFlight  int32
	maxFlight int32
	closed    int32
	blockOn   int           // probe index that blocks until ctx is done; -1 disables
	blocking  chan struct{} // closed when the blocking probe is entered
}

func newScriptCursor(entries ...KV) *scriptCursor {
	return &scriptCursor{entries: entries, blockOn: -1, blocking: make(chan struct{})}
}

func (c *scriptCursor) HasNext(ctx context.Context) (bool, error) {
	n := int(atomic.AddInt32(&c.probes, 1)) - 1
	fl := atomic.AddInt32(&c.inFlight, 1)
	defer atomic.AddInt32(&c.inFlight, -1)
	for {
		old := atomic.LoadInt32(&c.maxFlight)
		if fl <= old || atomic.CompareAndSwapInt32(&c.maxFlight, old, fl) {
			break
		}
	}
	if n == c.blockOn {
		close(c.blocking)
		<-ctx.Done()
		return false, ctx.Err()
	}
	if err, ok := c.probeErrs[n]; ok {
		return false, err
	}
	return c.pos < len(c.entries), nil
}

func (c *scriptCursor) Next() (KV, error) {
	if c.pos >= len(c.entries) {
		return KV{}, errNotReady
	}
	kv := c.entries[c.pos]
	c.pos++
	return kv, nil
}

func (c *scriptCursor) Close() error {
	atomic.AddInt32(&c.closed, 1)
	return nil
}

func kvs(keys ...string) []KV {
	out := make([]KV, 0, len(keys))
	for _, k := range keys {
		out = append(out, KV{Key: []byte(k), Value: []byte("v:" + k)})
	}
	return out
}

func stringDecode(key, value []byte) (string, error) { return string(key), nil }

func openTestStream(t *testing.T, cur streamCursor, src *Source[string]) *Stream[string] {
	t.Helper()
	st := openStream(context.Background(), cur, src)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func drain(t *testing.T, st *Stream[string]) ([]string, error) {
	t.Helper()
	var got []string
	for {
		v, err := st.Recv(context.Background())
		if err != nil {
			return got, err
		}
		got = append(got, v)
	}
}

func TestStreamEmitsAllInOrder(t *testing.T) {
	cur := newScriptCursor(kvs("a", "b", "c")...)
	src := NewSource[string](nil, Config{}, stringDecode)
	st := openTestStream(t, cur, src)

	got, err := drain(t, st)
	if err != io.EOF {
		t.Fatalf("terminal: %v", err)
	}
	if strings.Join(got, ",") != "a,b,c" {
		t.Fatalf("elements: %v", got)
	}
	if n := atomic.LoadInt32(&cur.closed); n != 1 {
		t.Fatalf("cursor closed %d times", n)
	}
	// Recv after completion keeps returning EOF.
	if _, err := st.Recv(context.Background()); err != io.EOF {
		t.Fatalf("recv after EOF: %v", err)
	}
}

func TestStreamStopsOnMaterializationFailure(t *testing.T) {
	boom := errors.New("bad record")
	cur := newScriptCursor(kvs("a", "b", "c")...)
	src := NewSource[string](nil, Config{}, func(key, _ []byte) (string, error) {
		if string(key) == "b" {
			return "", boom
		}
		return string(key), nil
	})
	st := openTestStream(t, cur, src)

	got, err := drain(t, st)
	if !errors.Is(err, boom) {
		t.Fatalf("terminal: %v", err)
	}
	if strings.Join(got, ",") != "a" {
		t.Fatalf("elements before failure: %v", got)
	}
	probesAtFailure := atomic.LoadInt32(&cur.probes)
	// A further Recv must not trigger another probe.
	if _, err := st.Recv(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("recv after failure: %v", err)
	}
	if atomic.LoadInt32(&cur.probes) != probesAtFailure {
		t.Fatalf("probe issued after terminal failure")
	}
	if n := atomic.LoadInt32(&cur.closed); n != 1 {
		t.Fatalf("cursor closed %d times", n)
	}
}

func TestStreamResumeSkipsFailingRecord(t *testing.T) {
	cur := newScriptCursor(kvs("a", "b", "c")...)
	src := NewSource[string](nil, Config{}, func(key, _ []byte) (string, error) {
		if string(key) == "b" {
			return "", fmt.Errorf("cannot materialize %q", key)
		}
		return string(key), nil
	})
	src.Policy = ResumeAll
	st := openTestStream(t, cur, src)

	got, err := drain(t, st)
	if err != io.EOF {
		t.Fatalf("terminal: %v", err)
	}
	if strings.Join(got, ",") != "a,c" {
		t.Fatalf("elements: %v", got)
	}
}

func TestStreamResumeThenExhausted(t *testing.T) {
	// a, then a failing record as the last entry: consumer sees [a] then EOF.
	cur := newScriptCursor(kvs("a", "b")...)
	src := NewSource[string](nil, Config{}, func(key, _ []byte) (string, error) {
		if string(key) == "b" {
			return "", errors.New("corrupt")
		}
		return string(key), nil
	})
	src.Policy = ResumeAll
	st := openTestStream(t, cur, src)

	got, err := drain(t, st)
	if err != io.EOF || strings.Join(got, ",") != "a" {
		t.Fatalf("got %v, %v", got, err)
	}
}

func TestStreamProbeFailureBypassesPolicy(t *testing.T) {
	connErr := errors.New("store unreachable")
	cur := newScriptCursor(kvs("a", "b")...)
	cur.probeErrs = map[int]error{1: connErr}
	src := NewSource[string](nil, Config{}, stringDecode)
	src.Policy = ResumeAll // must not apply to probe errors
	st := openTestStream(t, cur, src)

	got, err := drain(t, st)
	if !errors.Is(err, connErr) {
		t.Fatalf("terminal: %v", err)
	}
	if strings.Join(got, ",") != "a" {
		t.Fatalf("elements: %v", got)
	}
	if n := atomic.LoadInt32(&cur.closed); n != 1 {
		t.Fatalf("cursor closed %d times", n)
	}
}

func TestStreamCloseDuringProbe(t *testing.T) {
	cur := newScriptCursor(kvs("a", "b")...)
	cur.blockOn = 1
	src := NewSource[string](nil, Config{}, stringDecode)
	st := openStream(context.Background(), cur, src)

	if v, err := st.Recv(context.Background()); err != nil || v != "a" {
		t.Fatalf("first recv: %v %v", v, err)
	}

	recvDone := make(chan error, 1)
	go func() {
		_, err := st.Recv(context.Background())
		recvDone <- err
	}()
	<-cur.blocking // probe for the second element is now outstanding

	if err := st.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if n := atomic.LoadInt32(&cur.closed); n != 1 {
		t.Fatalf("cursor closed %d times", n)
	}
	select {
	case err := <-recvDone:
		if !errors.Is(err, ErrClosed) && !errors.Is(err, context.Canceled) {
			t.Fatalf("pending recv: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("pending recv did not unblock")
	}
	// Close again is a no-op.
	if err := st.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if n := atomic.LoadInt32(&cur.closed); n != 1 {
		t.Fatalf("cursor closed %d times after second Close", n)
	}
}

func TestStreamRecvAfterClose(t *testing.T) {
	cur := newScriptCursor(kvs("a")...)
	src := NewSource[string](nil, Config{}, stringDecode)
	st := openStream(context.Background(), cur, src)
	_ = st.Close()
	if _, err := st.Recv(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("recv after close: %v", err)
	}
}

func TestStreamRecvContextCancelClosesStream(t *testing.T) {
	cur := newScriptCursor(kvs("a", "b")...)
	cur.blockOn = 0
	src := NewSource[string](nil, Config{}, stringDecode)
	st := openStream(context.Background(), cur, src)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-cur.blocking
		cancel()
	}()
	if _, err := st.Recv(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("recv: %v", err)
	}
	select {
	case <-st.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("stream not terminated after ctx cancel")
	}
	if n := atomic.LoadInt32(&cur.closed); n != 1 {
		t.Fatalf("cursor closed %d times", n)
	}
}

func TestStreamSingleProbeOutstanding(t *testing.T) {
	cur := newScriptCursor(kvs("a", "b", "c", "d", "e")...)
	src := NewSource[string](nil, Config{}, stringDecode)
	st := openTestStream(t, cur, src)

	if _, err := drain(t, st); err != io.EOF {
		t.Fatalf("terminal: %v", err)
	}
	if mf := atomic.LoadInt32(&cur.maxFlight); mf != 1 {
		t.Fatalf("max concurrent probes = %d, want 1", mf)
	}
}

func TestStreamFilterSkips(t *testing.T) {
	cur := newScriptCursor(kvs("a", "b", "c", "d")...)
	src := NewSource[string](nil, Config{}, stringDecode)
	src.Filter = func(v string) bool { return v != "b" && v != "d" }
	st := openTestStream(t, cur, src)

	got, err := drain(t, st)
	if err != io.EOF || strings.Join(got, ",") != "a,c" {
		t.Fatalf("got %v, %v", got, err)
	}
}

func TestSourceOpenValidation(t *testing.T) {
	if _, err := NewSource[string](nil, Config{}, nil).Open(context.Background()); err == nil {
		t.Fatalf("expected error for nil decode")
	}
}
