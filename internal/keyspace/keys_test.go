package keyspace

import (
	"bytes"
	"testing"
)

func TestRecordKeyOrdering(t *testing.T) {
	prev := KeyRecord("orders", 0)
	for _, seq := range []uint64{1, 2, 255, 256, 1 << 32, ^uint64(0)} {
		k := KeyRecord("orders", seq)
		if bytes.Compare(prev, k) >= 0 {
			t.Fatalf("keys not ascending at seq %d", seq)
		}
		prev = k
	}
}

func TestSeqRoundTrip(t *testing.T) {
	for _, seq := range []uint64{0, 1, 42, ^uint64(0)} {
		got, err := SeqFromKey(KeyRecord("s", seq))
		if err != nil || got != seq {
			t.Fatalf("seq %d: got %d err %v", seq, got, err)
		}
	}
	if _, err := SeqFromKey([]byte("rf/s/m")); err == nil {
		t.Fatalf("expected error for meta key")
	}
}

func TestSpaceFromKey(t *testing.T) {
	got, err := SpaceFromKey(KeyRecord("orders/eu", 7))
	if err != nil || got != "orders/eu" {
		t.Fatalf("space: %q %v", got, err)
	}
}

func TestRecordBoundsCoverOnlySpace(t *testing.T) {
	lo, hi := RecordBounds("a")
	inside := KeyRecord("a", 5)
	outside := KeyRecord("b", 0)
	meta := KeyMeta("a")
	if bytes.Compare(inside, lo) < 0 || bytes.Compare(inside, hi) >= 0 {
		t.Fatalf("record key outside bounds")
	}
	if bytes.Compare(outside, hi) < 0 {
		t.Fatalf("foreign space inside bounds")
	}
	if bytes.Compare(meta, lo) >= 0 && bytes.Compare(meta, hi) < 0 {
		t.Fatalf("meta key inside record bounds")
	}
}

func TestPrefixUpperBound(t *testing.T) {
	if got := PrefixUpperBound([]byte{0x01, 0xff}); !bytes.Equal(got, []byte{0x02}) {
		t.Fatalf("carry: %v", got)
	}
	if got := PrefixUpperBound([]byte{0xff, 0xff}); got != nil {
		t.Fatalf("all-ff prefix should have no bound, got %v", got)
	}
}
