package scan

import "sync"

// scheduler is the stream's continuation scheduler: a single-goroutine,
// in-order task queue. Every adapter state transition (demand arrival,
// probe completion, stop) runs on it, so the state machine never needs a
// lock and no two transitions execute concurrently for the same stream.
type scheduler struct {
	tasks chan func()
	quit  chan struct{}
	once  sync.Once
}

func newScheduler() *scheduler {
	s := &scheduler{
		// Sized for the worst case of simultaneously pending transitions:
		// one demand, one probe completion, one stop.
		tasks: make(chan func(), 8),
		quit:  make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *scheduler) loop() {
	for {
		select {
		case fn := <-s.tasks:
			fn()
		case <-s.quit:
			return
		}
	}
}

// invoke posts fn for serialized execution. It reports false when the
// scheduler has already stopped; late continuations use that as their no-op
// signal.
func (s *scheduler) invoke(fn func()) bool {
	select {
	case <-s.quit:
		return false
	default:
	}
	select {
	case s.tasks <- fn:
		return true
	case <-s.quit:
		return false
	}
}

// stop shuts the loop down. Tasks already queued but not yet run are
// dropped; by the time stop is called the stream is terminal and every
// remaining continuation would be a no-op.
func (s *scheduler) stop() {
	s.once.Do(func() { close(s.quit) })
}
