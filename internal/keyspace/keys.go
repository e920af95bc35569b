// Package keyspace defines the byte-wise sortable Pebble key layout for
// rangeflow spaces.
//
// Layout (lexicographically sortable):
//   - rf/{space}/m              space metadata (last assigned sequence)
//   - rf/{space}/r/{seq_be8}    one record per big-endian sequence
package keyspace

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

var (
	sep        = byte('/')
	rootPrefix = []byte("rf/")
	recordSeg  = []byte("/r/")
	metaSuffix = []byte("/m")
)

func appendBE8(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// KeyMeta builds the space metadata key.
func KeyMeta(space string) []byte {
	k := make([]byte, 0, len(rootPrefix)+len(space)+len(metaSuffix))
	k = append(k, rootPrefix...)
	k = append(k, space...)
	k = append(k, metaSuffix...)
	return k
}

// KeyRecord builds the record key with a big-endian sequence so that numeric
// order matches byte order.
func KeyRecord(space string, seq uint64) []byte {
	k := make([]byte, 0, len(rootPrefix)+len(space)+len(recordSeg)+8)
	k = append(k, rootPrefix...)
	k = append(k, space...)
	k = append(k, recordSeg...)
	k = appendBE8(k, seq)
	return k
}

// RecordPrefix returns the common prefix of all record keys in a space.
func RecordPrefix(space string) []byte {
	k := make([]byte, 0, len(rootPrefix)+len(space)+len(recordSeg))
	k = append(k, rootPrefix...)
	k = append(k, space...)
	k = append(k, recordSeg...)
	return k
}

// RecordBounds returns the [lower, upper) iterator bounds covering every
// record in a space.
func RecordBounds(space string) (lower, upper []byte) {
	prefix := RecordPrefix(space)
	return prefix, PrefixUpperBound(prefix)
}

// PrefixUpperBound returns the smallest key greater than every key with the
// given prefix, suitable as an exclusive iterator upper bound. Returns nil
// when the prefix is all 0xff (no finite upper bound).
func PrefixUpperBound(prefix []byte) []byte {
	out := append([]byte(nil), prefix...)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] != 0xff {
			out[i]++
			return out[:i+1]
		}
	}
	return nil
}

// SeqFromKey extracts the sequence from a record key produced by KeyRecord.
func SeqFromKey(key []byte) (uint64, error) {
	i := bytes.LastIndex(key, recordSeg)
	if i < 0 || len(key) != i+len(recordSeg)+8 {
		return 0, fmt.Errorf("keyspace: not a record key: %q", key)
	}
	return binary.BigEndian.Uint64(key[i+len(recordSeg):]), nil
}

// SpaceFromKey extracts the space name from a record key.
func SpaceFromKey(key []byte) (string, error) {
	if !bytes.HasPrefix(key, rootPrefix) {
		return "", fmt.Errorf("keyspace: not a rangeflow key: %q", key)
	}
	rest := key[len(rootPrefix):]
	i := bytes.LastIndex(rest, recordSeg)
	if i < 0 {
		return "", fmt.Errorf("keyspace: not a record key: %q", key)
	}
	return string(rest[:i]), nil
}
