// Package record implements the stored value encoding for rangeflow records.
//
// Layout: varint headerLen | header | payload | crc32c(header|payload).
// Decode failures are the canonical materialization error: a stream's fault
// policy decides whether a corrupt record skips or fails the scan.
package record

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// ErrTruncated reports a value too short to hold a record.
var ErrTruncated = errors.New("record: truncated value")

// ErrChecksum reports a CRC mismatch over header|payload.
var ErrChecksum = errors.New("record: checksum mismatch")

// Record is a decoded stored value.
type Record struct {
	Header  []byte
	Payload []byte
}

// Encode serializes header and payload with a trailing crc32c.
func Encode(header, payload []byte) []byte {
	out := make([]byte, 0, binary.MaxVarintLen64+len(header)+len(payload)+crc32.Size)
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], uint64(len(header)))
	out = append(out, tmp[:n]...)
	out = append(out, header...)
	out = append(out, payload...)

	crc := crc32.Update(0, castagnoli, header)
	crc = crc32.Update(crc, castagnoli, payload)
	var crcb [crc32.Size]byte
	binary.BigEndian.PutUint32(crcb[:], crc)
	return append(out, crcb[:]...)
}

// Decode parses a stored value. The returned slices are copies and remain
// valid after the underlying iterator advances.
func Decode(b []byte) (Record, error) {
	if len(b) < 1+crc32.Size {
		return Record{}, ErrTruncated
	}
	hlen, n := binary.Uvarint(b)
	if n <= 0 {
		return Record{}, fmt.Errorf("%w: bad header length", ErrTruncated)
	}
	rem := len(b) - n - crc32.Size
	if rem < 0 || hlen > uint64(rem) {
		return Record{}, ErrTruncated
	}
	header := b[n : n+int(hlen)]
	payload := b[n+int(hlen) : len(b)-crc32.Size]

	expect := binary.BigEndian.Uint32(b[len(b)-crc32.Size:])
	crc := crc32.Update(0, castagnoli, header)
	crc = crc32.Update(crc, castagnoli, payload)
	if crc != expect {
		return Record{}, ErrChecksum
	}
	return Record{
		Header:  append([]byte(nil), header...),
		Payload: append([]byte(nil), payload...),
	}, nil
}
