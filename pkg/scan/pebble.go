package scan

import "github.com/cockroachdb/pebble"

// PebbleDB is the narrow surface scan needs from a Pebble wrapper.
// *pebblestore.DB satisfies it.
type PebbleDB interface {
	NewSnapshot() *pebble.Snapshot
}

// NewPebbleSnapshots adapts a Pebble database to the Snapshots interface.
func NewPebbleSnapshots(db PebbleDB) Snapshots {
	return pebbleSnapshots{db: db}
}

type pebbleSnapshots struct{ db PebbleDB }

func (s pebbleSnapshots) NewSnapshot() Snapshot {
	return pebbleSnapshot{snap: s.db.NewSnapshot()}
}

type pebbleSnapshot struct{ snap *pebble.Snapshot }

func (s pebbleSnapshot) NewIter(opts *pebble.IterOptions) (Iterator, error) {
	return s.snap.NewIter(opts)
}

func (s pebbleSnapshot) Close() error { return s.snap.Close() }
