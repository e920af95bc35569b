package scan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
)

// ErrNoProgress reports that the cursor exhausted its restart budget without
// delivering an element. It is terminal for the scan.
var ErrNoProgress = errors.New("scan: cursor restarted without progress")

var (
	errCursorClosed = errors.New("scan: cursor closed")
	errNotReady     = errors.New("scan: Next called without a successful probe")
)

// Iterator is the subset of Pebble's iterator surface the cursor drives.
// *pebble.Iterator satisfies it.
type Iterator interface {
	First() bool
	Last() bool
	SeekGE(key []byte) bool
	SeekLT(key []byte) bool
	Next() bool
	Prev() bool
	Valid() bool
	Key() []byte
	Value() []byte
	Error() error
	Close() error
}

// Snapshot is one point-in-time view of the keyspace.
type Snapshot interface {
	NewIter(opts *pebble.IterOptions) (Iterator, error)
	Close() error
}

// Snapshots mints point-in-time views. Implementations must be safe for use
// from the single goroutine that owns the cursor.
type Snapshots interface {
	NewSnapshot() Snapshot
}

// Cursor scans an ordered key range from Pebble snapshots, transparently
// refreshing the snapshot when its lease expires and reseeking past the last
// delivered key. A Cursor is owned by exactly one stream materialization and
// is not safe for concurrent use.
type Cursor struct {
	snaps Snapshots
	cfg   Config

	// Observe, when set, is called once per read-ahead batch copied out of
	// the snapshot.
	Observe func(elapsed time.Duration, keys int)

	snap      Snapshot
	iter      Iterator
	leaseEnd  time.Time
	lastKey   []byte // last key handed out by Next
	buf       []KV   // read-ahead, already copied out of the snapshot
	exhausted bool
	restarts  int  // consecutive refreshes with no delivery in between
	delivered bool // a delivery happened since the last refresh
	closed    bool
}

// NewCursor builds a cursor over snaps. Cheap; performs no I/O until the
// first probe.
func NewCursor(snaps Snapshots, cfg Config) *Cursor {
	return &Cursor{snaps: snaps, cfg: cfg.withDefaults()}
}

// HasNext reports whether another entry is available, opening or refreshing
// the underlying snapshot as needed. Storage-level iterator failures are
// retried internally by refreshing, within the restart budget; exceeding the
// budget surfaces ErrNoProgress. HasNext blocks only for the duration of
// snapshot reads and honors ctx between attempts.
func (c *Cursor) HasNext(ctx context.Context) (bool, error) {
	if c.closed {
		return false, errCursorClosed
	}
	if len(c.buf) > 0 {
		return true, nil
	}
	if c.exhausted {
		return false, nil
	}
	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if c.iter == nil || time.Now().After(c.leaseEnd) {
			if err := c.refresh(); err != nil {
				return false, err
			}
		}
		ok, err := c.fill()
		if err != nil {
			// Snapshot read failed; force a refresh and retry. The restart
			// budget bounds how long this can go on without a delivery.
			if rerr := c.refresh(); rerr != nil {
				return false, fmt.Errorf("%w (after read error: %v)", rerr, err)
			}
			continue
		}
		if ok {
			return true, nil
		}
		c.exhausted = true
		return false, nil
	}
}

// Next returns the entry announced by the preceding successful HasNext.
func (c *Cursor) Next() (KV, error) {
	if c.closed {
		return KV{}, errCursorClosed
	}
	if len(c.buf) == 0 {
		return KV{}, errNotReady
	}
	kv := c.buf[0]
	c.buf = c.buf[1:]
	c.lastKey = kv.Key
	c.delivered = true
	c.restarts = 0
	return kv, nil
}

// Close releases the snapshot and iterator. Idempotent.
func (c *Cursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.release()
	return nil
}

// refresh replaces the snapshot and iterator and reseeks next to the last
// delivered key. Refreshes with no delivery since the previous one count
// against the restart budget.
func (c *Cursor) refresh() error {
	if c.iter != nil || c.snap != nil {
		if c.delivered {
			c.restarts = 0
		} else {
			c.restarts++
			if c.restarts > c.cfg.MaxRestarts {
				c.release()
				return fmt.Errorf("%w: exceeded %d consecutive restarts", ErrNoProgress, c.cfg.MaxRestarts)
			}
		}
		c.release()
	}
	c.delivered = false

	c.snap = c.snaps.NewSnapshot()
	it, err := c.snap.NewIter(&pebble.IterOptions{LowerBound: c.cfg.Begin, UpperBound: c.cfg.End})
	if err != nil {
		_ = c.snap.Close()
		c.snap = nil
		return err
	}
	c.iter = it
	c.position()
	c.leaseEnd = time.Now().Add(c.cfg.Lease)
	return nil
}

// position seeks the fresh iterator to the first undelivered key.
func (c *Cursor) position() {
	switch {
	case c.lastKey == nil && c.cfg.Reverse:
		c.iter.Last()
	case c.lastKey == nil:
		c.iter.First()
	case c.cfg.Reverse:
		c.iter.SeekLT(c.lastKey)
	default:
		// Immediate successor of lastKey.
		c.iter.SeekGE(append(append([]byte(nil), c.lastKey...), 0x00))
	}
}

// fill copies up to one read-ahead batch out of the snapshot. On iterator
// failure the partial batch is discarded; the refresh reseeks from the last
// delivered key so nothing is lost or duplicated.
func (c *Cursor) fill() (bool, error) {
	start := time.Now()
	limit := c.cfg.Fetch.batchSize()
	for c.iter.Valid() && len(c.buf) < limit {
		c.buf = append(c.buf, KV{
			Key:   append([]byte(nil), c.iter.Key()...),
			Value: append([]byte(nil), c.iter.Value()...),
		})
		if c.cfg.Reverse {
			c.iter.Prev()
		} else {
			c.iter.Next()
		}
	}
	if err := c.iter.Error(); err != nil {
		c.buf = c.buf[:0]
		return false, err
	}
	if c.Observe != nil {
		c.Observe(time.Since(start), len(c.buf))
	}
	return len(c.buf) > 0, nil
}

func (c *Cursor) release() {
	if c.iter != nil {
		_ = c.iter.Close()
		c.iter = nil
	}
	if c.snap != nil {
		_ = c.snap.Close()
		c.snap = nil
	}
}
