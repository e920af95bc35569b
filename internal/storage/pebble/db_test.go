package pebblestore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cockroachdb/pebble"
)

type testMetrics struct {
	readBytes   int
	scanKeys    int
	commits     int
	commitBytes int
}

func (m *testMetrics) ObserveRead(_ time.Duration, bytes int) { m.readBytes += bytes }
func (m *testMetrics) ObserveScan(_ time.Duration, keys int)  { m.scanKeys += keys }
func (m *testMetrics) ObserveBatchCommit(_ time.Duration, bytes int) {
	m.commits++
	m.commitBytes += bytes
}

func newTestDB(t *testing.T) (*DB, *testMetrics) {
	t.Helper()
	metrics := &testMetrics{}
	db, err := Open(Options{DataDir: t.TempDir(), Fsync: FsyncModeAlways, Metrics: metrics})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, metrics
}

func TestSetGetDelete(t *testing.T) {
	db, metrics := newTestDB(t)
	if err := db.Set([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := db.Get([]byte("k"))
	if err != nil || string(got) != "v" {
		t.Fatalf("get: %q %v", got, err)
	}
	if metrics.readBytes == 0 || metrics.commits == 0 {
		t.Fatalf("metrics not observed: %+v", metrics)
	}
	if err := db.Delete([]byte("k")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := db.Get([]byte("k")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBatchCommit(t *testing.T) {
	db, _ := newTestDB(t)
	b := db.NewBatch()
	defer b.Close()
	for _, k := range []string{"a", "b", "c"} {
		if err := b.Set([]byte(k), []byte("v"), nil); err != nil {
			t.Fatalf("batch set: %v", err)
		}
	}
	if err := db.CommitBatch(context.Background(), b); err != nil {
		t.Fatalf("commit: %v", err)
	}
	for _, k := range []string{"a", "b", "c"} {
		if _, err := db.Get([]byte(k)); err != nil {
			t.Fatalf("get %s: %v", k, err)
		}
	}
}

func TestSnapshotIsolation(t *testing.T) {
	db, _ := newTestDB(t)
	if err := db.Set([]byte("k1"), []byte("v1")); err != nil {
		t.Fatalf("set: %v", err)
	}
	snap := db.NewSnapshot()
	defer snap.Close()

	// Writes after the snapshot must not appear in snapshot iterators.
	if err := db.Set([]byte("k2"), []byte("v2")); err != nil {
		t.Fatalf("set: %v", err)
	}
	it, err := snap.NewIter(&pebble.IterOptions{})
	if err != nil {
		t.Fatalf("snap iter: %v", err)
	}
	defer it.Close()
	n := 0
	for it.First(); it.Valid(); it.Next() {
		n++
	}
	if n != 1 {
		t.Fatalf("snapshot saw %d keys, want 1", n)
	}
}

func TestCommitBatchCancelledContext(t *testing.T) {
	db, _ := newTestDB(t)
	b := db.NewBatch()
	defer b.Close()
	_ = b.Set([]byte("k"), []byte("v"), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := db.CommitBatch(ctx, b); err == nil {
		t.Fatalf("expected context error")
	}
}
