package scan

import (
	"fmt"
	"strings"
	"time"
)

// FetchMode is a read-ahead hint controlling how many entries the cursor
// copies out of the snapshot per probe.
type FetchMode int

const (
	// FetchDefault balances latency and iterator amortization.
	FetchDefault FetchMode = iota
	// FetchSingle copies one entry per probe. Lowest memory, most seeks.
	FetchSingle
	// FetchSmall suits point-in-time peeks and small ranges.
	FetchSmall
	// FetchLarge suits full-range batch scans.
	FetchLarge
)

// batchSize maps a FetchMode to the cursor's per-probe read-ahead.
func (m FetchMode) batchSize() int {
	switch m {
	case FetchSingle:
		return 1
	case FetchSmall:
		return 16
	case FetchLarge:
		return 256
	default:
		return 64
	}
}

// ParseFetchMode converts a configuration string to a FetchMode.
func ParseFetchMode(s string) (FetchMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return FetchDefault, nil
	case "single":
		return FetchSingle, nil
	case "small":
		return FetchSmall, nil
	case "large":
		return FetchLarge, nil
	}
	return FetchDefault, fmt.Errorf("scan: unknown fetch mode %q", s)
}

// Default cursor tunables.
const (
	DefaultLease       = 5 * time.Second
	DefaultMaxRestarts = 3
)

// Config describes a range scan. The zero value scans the entire keyspace
// forward with defaults.
type Config struct {
	// Begin is the inclusive lower bound; nil means the start of the keyspace.
	Begin []byte
	// End is the exclusive upper bound; nil means the end of the keyspace.
	End []byte
	// Reverse scans descending when true.
	Reverse bool
	// Fetch is the read-ahead hint.
	Fetch FetchMode
	// Lease bounds how long a single snapshot may serve the scan before the
	// cursor refreshes it. Zero means DefaultLease.
	Lease time.Duration
	// MaxRestarts caps consecutive snapshot refreshes that deliver no
	// element before the scan fails. Zero means DefaultMaxRestarts.
	MaxRestarts int
}

func (c Config) withDefaults() Config {
	if c.Lease <= 0 {
		c.Lease = DefaultLease
	}
	if c.MaxRestarts <= 0 {
		c.MaxRestarts = DefaultMaxRestarts
	}
	return c
}

// KV is one raw entry delivered by a cursor. Both slices are copies owned by
// the receiver.
type KV struct {
	Key   []byte
	Value []byte
}
