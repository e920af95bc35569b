// Package pebblestore wraps Pebble with an fsync policy, snapshots, batches,
// and a minimal metrics hook. Scan cursors read from snapshots obtained here;
// writers go through batches so the configured WAL sync mode applies to every
// commit path uniformly.
//
// Usage:
//
//	db, err := pebblestore.Open(pebblestore.Options{
//	    DataDir: "./data",
//	    Fsync:   pebblestore.FsyncModeInterval,
//	})
//	if err != nil { /* handle */ }
//	defer db.Close()
//
//	snap := db.NewSnapshot()
//	defer snap.Close()
//	it, _ := snap.NewIter(&pebble.IterOptions{LowerBound: lo, UpperBound: hi})
package pebblestore
