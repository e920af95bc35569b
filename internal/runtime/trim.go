package runtime

import (
	"context"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/rzbill/rangeflow/internal/keyspace"
)

// Trim deletes records with seq < beforeSeq from a space. Deletes are
// committed in batches of up to batchLimit keys with an optional throttle
// between commits so a large trim does not starve concurrent writes.
// Returns the number of deleted records.
func (r *Runtime) Trim(ctx context.Context, space string, beforeSeq uint64, batchLimit int, throttle time.Duration) (int, error) {
	if beforeSeq == 0 {
		return 0, nil
	}
	if batchLimit <= 0 {
		batchLimit = 1024
	}

	low, _ := keyspace.RecordBounds(space)
	hi := keyspace.KeyRecord(space, beforeSeq)
	iter, err := r.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: hi})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	deleted := 0
	for ok := iter.First(); ok; {
		b := r.db.NewBatch()
		n := 0
		for ok && n < batchLimit {
			if err := b.Delete(iter.Key(), nil); err != nil {
				b.Close()
				return deleted, err
			}
			n++
			ok = iter.Next()
		}
		if n == 0 {
			b.Close()
			break
		}
		if err := r.db.CommitBatch(ctx, b); err != nil {
			b.Close()
			return deleted, err
		}
		b.Close()
		deleted += n
		if throttle > 0 && ok {
			time.Sleep(throttle)
		}
	}
	if err := iter.Error(); err != nil {
		return deleted, err
	}
	return deleted, nil
}
