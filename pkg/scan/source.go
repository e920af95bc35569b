package scan

import (
	"context"
	"errors"
	"time"

	"github.com/rzbill/rangeflow/pkg/id"
	logpkg "github.com/rzbill/rangeflow/pkg/log"
)

// DecodeFunc materializes an element from a raw entry. Failures are routed
// through the stream's FaultPolicy.
type DecodeFunc[T any] func(key, value []byte) (T, error)

// Source describes a scan that can be materialized into Streams. One Source
// may be opened many times; each Open builds an independent cursor, so
// concurrent materializations do not interfere.
type Source[T any] struct {
	snaps  Snapshots
	cfg    Config
	decode DecodeFunc[T]

	// Policy classifies decode failures. Nil means StopAll.
	Policy FaultPolicy
	// Filter drops decoded elements without terminating the stream.
	// Filtered elements are skipped internally; the consumer never sees them.
	Filter func(T) bool
	// Logger receives per-stream structured logs. Nil means no logging.
	Logger logpkg.Logger
	// Observe is forwarded to the cursor; called once per read-ahead batch.
	Observe func(elapsed time.Duration, keys int)
}

// NewSource builds a Source. Configure Policy, Filter, and Logger on the
// returned value before Open.
func NewSource[T any](snaps Snapshots, cfg Config, decode DecodeFunc[T]) *Source[T] {
	return &Source[T]{snaps: snaps, cfg: cfg.withDefaults(), decode: decode}
}

// streamIDs tags materializations in logs.
var streamIDs = id.NewGenerator()

// Open materializes the source into a Stream. The cursor is created here and
// released exactly once when the stream terminates, whichever way it does.
// ctx bounds the whole materialization: cancelling it fails the stream.
func (s *Source[T]) Open(ctx context.Context) (*Stream[T], error) {
	if s.snaps == nil {
		return nil, errors.New("scan: Source requires a snapshot provider")
	}
	if s.decode == nil {
		return nil, errors.New("scan: Source requires a decode func")
	}
	cur := NewCursor(s.snaps, s.cfg)
	cur.Observe = s.Observe
	return openStream(ctx, cur, s), nil
}

func (s *Source[T]) policy() FaultPolicy {
	if s.Policy != nil {
		return s.Policy
	}
	return StopAll
}
