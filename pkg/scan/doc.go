// Package scan exposes ordered key-value ranges as pull-based element
// streams with single-element backpressure.
//
// # Model
//
// A Source describes what to scan (bounds, direction, fetch mode, decoder,
// fault policy). Open materializes it into a Stream: one refreshing Cursor,
// one adapter state machine, torn down together. Each Recv call is one
// demand signal and is answered by exactly one outcome: an element, io.EOF
// when the range is exhausted, or a single terminal error.
//
// The Cursor reads from a Pebble snapshot under a bounded lease. When the
// lease expires mid-scan the cursor transparently reopens a fresh snapshot
// and reseeks past the last delivered key; restarts that deliver nothing in
// between count against a cap (default 3) and exceeding it fails the scan.
// Reading a range across snapshots is sound for immutable, append-only data,
// which is the intended shape of rangeflow spaces.
//
// Decode failures are routed through the stream's FaultPolicy: Stop fails
// the stream with the original error, Resume skips the record and re-probes.
// Probe failures (storage connectivity, restart budget exhaustion) bypass
// the policy and are always fatal.
//
// Usage
//
//	src := scan.NewSource(scan.NewPebbleSnapshots(db), scan.Config{Begin: lo, End: hi}, decode)
//	st, err := src.Open(ctx)
//	if err != nil { ... }
//	defer st.Close()
//	for {
//	    v, err := st.Recv(ctx)
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil { ... }
//	    use(v)
//	}
package scan
