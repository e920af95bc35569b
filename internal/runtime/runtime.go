package runtime

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"time"

	cfgpkg "github.com/rzbill/rangeflow/internal/config"
	"github.com/rzbill/rangeflow/internal/keyspace"
	"github.com/rzbill/rangeflow/internal/record"
	pebblestore "github.com/rzbill/rangeflow/internal/storage/pebble"
	logpkg "github.com/rzbill/rangeflow/pkg/log"
)

// Options for building the Runtime.
type Options struct {
	DataDir       string
	Fsync         pebblestore.FsyncMode
	FsyncInterval int // milliseconds; used when Fsync is interval mode
	Config        cfgpkg.Config
	Logger        logpkg.Logger
}

// Runtime wires storage and config for a single-node instance.
type Runtime struct {
	db     *pebblestore.DB
	config cfgpkg.Config
	logger logpkg.Logger

	// mu serializes appends per process; lastSeq caches the highest
	// assigned sequence per space, loaded lazily from the meta key.
	mu      sync.Mutex
	lastSeq map[string]uint64
}

// Open initializes the underlying storage and returns a Runtime.
func Open(opts Options) (*Runtime, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NopLogger()
	}
	db, err := pebblestore.Open(pebblestore.Options{
		DataDir:       opts.DataDir,
		Fsync:         opts.Fsync,
		FsyncInterval: time.Duration(opts.FsyncInterval) * time.Millisecond,
	})
	if err != nil {
		return nil, err
	}
	return &Runtime{
		db:      db,
		config:  opts.Config,
		logger:  logger.With(logpkg.Component("runtime")),
		lastSeq: map[string]uint64{},
	}, nil
}

// Close closes underlying resources.
func (r *Runtime) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// CheckHealth performs a simple storage probe.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.db == nil {
		return errors.New("db not open")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	it, err := r.db.NewIter(nil)
	if err != nil {
		return err
	}
	return it.Close()
}

// DB exposes the underlying store for advanced operations (internal use).
func (r *Runtime) DB() *pebblestore.DB { return r.db }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }

// Logger returns the runtime's logger.
func (r *Runtime) Logger() logpkg.Logger { return r.logger }

// AppendRecord is one appendable entry.
type AppendRecord struct {
	Header  []byte
	Payload []byte
}

// Append writes the records to a space as one atomic batch, assigning
// consecutive sequences. Returns the assigned sequences.
func (r *Runtime) Append(ctx context.Context, space string, recs []AppendRecord) ([]uint64, error) {
	if len(recs) == 0 {
		return nil, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	last, err := r.loadLastSeqLocked(space)
	if err != nil {
		return nil, err
	}

	b := r.db.NewBatch()
	defer b.Close()

	seqs := make([]uint64, len(recs))
	for i, rec := range recs {
		last++
		val := record.Encode(rec.Header, rec.Payload)
		if err := b.Set(keyspace.KeyRecord(space, last), val, nil); err != nil {
			return nil, err
		}
		seqs[i] = last
	}
	var meta [8]byte
	binary.BigEndian.PutUint64(meta[:], last)
	if err := b.Set(keyspace.KeyMeta(space), meta[:], nil); err != nil {
		return nil, err
	}
	if err := r.db.CommitBatch(ctx, b); err != nil {
		return nil, err
	}
	r.lastSeq[space] = last
	return seqs, nil
}

// LastSeq returns the highest assigned sequence in a space (0 when empty).
func (r *Runtime) LastSeq(space string) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadLastSeqLocked(space)
}

func (r *Runtime) loadLastSeqLocked(space string) (uint64, error) {
	if seq, ok := r.lastSeq[space]; ok {
		return seq, nil
	}
	meta, err := r.db.Get(keyspace.KeyMeta(space))
	switch {
	case errors.Is(err, pebblestore.ErrNotFound):
		r.lastSeq[space] = 0
		return 0, nil
	case err != nil:
		return 0, err
	case len(meta) < 8:
		return 0, errors.New("runtime: corrupt space metadata")
	}
	seq := binary.BigEndian.Uint64(meta[:8])
	r.lastSeq[space] = seq
	return seq, nil
}
