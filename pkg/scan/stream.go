package scan

import (
	"context"
	"errors"
	"io"
	"sync"

	logpkg "github.com/rzbill/rangeflow/pkg/log"
)

// ErrClosed is returned by Recv after Close terminated the stream.
var ErrClosed = errors.New("scan: stream closed")

// state is the adapter's position in the demand cycle. Transient phases
// (pushing, completing, retrying, failing) run to completion inside a single
// scheduled transition and never persist across tasks.
type state int

const (
	// stateIdle: no demand outstanding, cursor quiescent.
	stateIdle state = iota
	// stateAwaitingProbe: a has-next probe is in flight on a worker goroutine.
	stateAwaitingProbe
	// Terminal states. termErr distinguishes the failure cause.
	stateCompleted
	stateFailed
)

type outcome[T any] struct {
	elem T
	err  error
}

// streamCursor is what the adapter needs from a cursor. *Cursor satisfies
// it; tests substitute scripted fakes.
type streamCursor interface {
	HasNext(ctx context.Context) (bool, error)
	Next() (KV, error)
	Close() error
}

// Stream is one materialization of a Source: a pull-based element stream
// over a single cursor. Each Recv call is one demand signal and receives
// exactly one outcome. All state transitions run serialized on the stream's
// scheduler; the only suspension point is the asynchronous cursor probe.
type Stream[T any] struct {
	src   *Source[T]
	cur   streamCursor
	sched *scheduler
	log   logpkg.Logger

	ctx    context.Context
	cancel context.CancelFunc

	// Owned by the scheduler goroutine.
	st      state
	termErr error
	probing bool // a probe is outstanding; cursor release defers to its continuation

	recvMu    sync.Mutex
	replies   chan outcome[T]
	done      chan struct{} // closed on terminal transition
	released  chan struct{} // closed once the cursor is released
	closeOnce sync.Once
}

func openStream[T any](ctx context.Context, cur streamCursor, src *Source[T]) *Stream[T] {
	sctx, cancel := context.WithCancel(ctx)
	logger := src.Logger
	if logger == nil {
		logger = logpkg.NopLogger()
	}
	s := &Stream[T]{
		src:      src,
		cur:      cur,
		sched:    newScheduler(),
		log:      logger.With(logpkg.Component("scan"), logpkg.Str("stream", streamIDs.Next().Short())),
		ctx:      sctx,
		cancel:   cancel,
		replies:  make(chan outcome[T], 1),
		done:     make(chan struct{}),
		released: make(chan struct{}),
	}
	s.log.Debug("stream opened")
	return s
}

// Recv pulls the next element. It blocks until the cursor yields one and
// returns io.EOF when the range is exhausted; any other error is terminal
// and repeats on subsequent calls. Cancelling ctx closes the stream.
// Concurrent Recv calls are serialized.
func (s *Stream[T]) Recv(ctx context.Context) (T, error) {
	var zero T
	s.recvMu.Lock()
	defer s.recvMu.Unlock()

	if !s.sched.invoke(s.onDemand) {
		return zero, s.terminalErr()
	}
	select {
	case out := <-s.replies:
		return out.elem, out.err
	case <-s.done:
		return zero, s.terminalErr()
	case <-ctx.Done():
		_ = s.Close()
		return zero, ctx.Err()
	}
}

// Close cancels the stream and releases the cursor. Idempotent; safe to call
// from any goroutine and in any state. It returns once the cursor has been
// released, which may wait for an in-flight probe to notice the cancellation.
func (s *Stream[T]) Close() error {
	s.closeOnce.Do(func() {
		s.cancel() // unblock an in-flight probe promptly
		s.sched.invoke(func() { s.terminate(stateFailed, ErrClosed) })
	})
	<-s.released
	return nil
}

// Done is closed when the stream reaches a terminal state.
func (s *Stream[T]) Done() <-chan struct{} { return s.done }

// onDemand handles one demand signal. Runs on the scheduler.
func (s *Stream[T]) onDemand() {
	switch s.st {
	case stateIdle:
		s.st = stateAwaitingProbe
		s.startProbe()
	case stateCompleted:
		s.reply(outcome[T]{err: io.EOF})
	case stateFailed:
		s.reply(outcome[T]{err: s.termErr})
	case stateAwaitingProbe:
		// Unreachable: Recv serializes demand and every demand is answered
		// before the next is accepted.
		s.reply(outcome[T]{err: errors.New("scan: demand while probe outstanding")})
	}
}

// startProbe launches the asynchronous has-next probe. The completion
// re-enters the state machine through the scheduler.
func (s *Stream[T]) startProbe() {
	s.probing = true
	go func() {
		has, err := s.cur.HasNext(s.ctx)
		// invoke cannot fail here: while a probe is outstanding the
		// scheduler stays up so this continuation can release the cursor.
		s.sched.invoke(func() { s.onProbe(has, err) })
	}()
}

// onProbe handles a probe completion. Runs on the scheduler.
func (s *Stream[T]) onProbe(has bool, err error) {
	s.probing = false
	if s.st == stateCompleted || s.st == stateFailed {
		// Terminated while the probe was in flight: late continuations only
		// finish the deferred teardown.
		s.releaseCursor()
		s.sched.stop()
		return
	}
	if err != nil {
		// Probe failures bypass the fault policy: the cursor has already
		// spent its own retry budget.
		s.log.Warn("probe failed", logpkg.Err(err))
		s.terminate(stateFailed, err)
		return
	}
	if !has {
		s.log.Debug("range exhausted")
		s.terminate(stateCompleted, nil)
		return
	}

	kv, err := s.cur.Next()
	if err != nil {
		s.terminate(stateFailed, err)
		return
	}
	elem, err := s.src.decode(kv.Key, kv.Value)
	if err != nil {
		if s.src.policy()(err) == Resume {
			// Skip the failing record and probe again; the cursor already
			// advanced past it, so the retry cannot loop on the same entry.
			s.log.Debug("skipping record after materialization failure", logpkg.Err(err))
			s.startProbe()
			return
		}
		s.log.Warn("materialization failed", logpkg.Err(err))
		s.terminate(stateFailed, err)
		return
	}
	if s.src.Filter != nil && !s.src.Filter(elem) {
		s.startProbe()
		return
	}

	s.st = stateIdle
	s.reply(outcome[T]{elem: elem})
}

// terminate moves the stream to a terminal state exactly once. Runs on the
// scheduler. Cursor release defers to the probe continuation when a probe is
// still in flight; closing the cursor out from under a running probe is not
// safe.
func (s *Stream[T]) terminate(st state, err error) {
	if s.st == stateCompleted || s.st == stateFailed {
		return
	}
	s.st = st
	s.termErr = err
	s.cancel()
	// Drop an element a cancelled Recv never claimed.
	select {
	case <-s.replies:
	default:
	}
	close(s.done)
	if !s.probing {
		s.releaseCursor()
		s.sched.stop()
	}
}

func (s *Stream[T]) releaseCursor() {
	_ = s.cur.Close()
	close(s.released)
	s.log.Debug("cursor released")
}

// reply answers the outstanding demand. The channel holds one outcome and a
// demand is only accepted once the previous one was answered, so this never
// drops under the protocol.
func (s *Stream[T]) reply(out outcome[T]) {
	select {
	case s.replies <- out:
	default:
	}
}

// terminalErr reads the terminal outcome. Only valid after done is closed.
func (s *Stream[T]) terminalErr() error {
	if s.st == stateCompleted {
		return io.EOF
	}
	return s.termErr
}
