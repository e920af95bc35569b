package runtime

import (
	"fmt"

	"github.com/rzbill/rangeflow/internal/keyspace"
	"github.com/rzbill/rangeflow/internal/record"
	"github.com/rzbill/rangeflow/pkg/scan"
)

// Item is one decoded record delivered by a space scan.
type Item struct {
	Space   string
	Seq     uint64
	Header  []byte
	Payload []byte
}

// ScanOptions select what a space scan delivers. Zero values fall back to
// the runtime's configured scan defaults.
type ScanOptions struct {
	// StartSeq is the inclusive lower sequence bound; 0 scans from the first
	// record.
	StartSeq uint64
	// EndSeq is the exclusive upper sequence bound; 0 scans to the end.
	EndSeq uint64
	// Reverse scans descending.
	Reverse bool
	// Fetch overrides the configured read-ahead hint when non-empty.
	Fetch string
	// Filter is an optional CEL expression evaluated per record; records it
	// rejects are skipped silently.
	Filter string
	// SkipCorrupt resumes past records that fail to decode instead of
	// failing the scan.
	SkipCorrupt bool
}

// ScanSource builds a scan source over one space. Each Open on the returned
// source materializes an independent cursor.
func (r *Runtime) ScanSource(space string, opts ScanOptions) (*scan.Source[Item], error) {
	if space == "" {
		return nil, fmt.Errorf("runtime: space is required")
	}
	fetchName := opts.Fetch
	if fetchName == "" {
		fetchName = r.config.Scan.FetchMode
	}
	fetch, err := scan.ParseFetchMode(fetchName)
	if err != nil {
		return nil, err
	}

	begin, end := keyspace.RecordBounds(space)
	if opts.StartSeq > 0 {
		begin = keyspace.KeyRecord(space, opts.StartSeq)
	}
	if opts.EndSeq > 0 {
		end = keyspace.KeyRecord(space, opts.EndSeq)
	}

	cfg := scan.Config{
		Begin:       begin,
		End:         end,
		Reverse:     opts.Reverse,
		Fetch:       fetch,
		Lease:       r.config.Scan.Lease(),
		MaxRestarts: r.config.Scan.MaxRestarts,
	}
	src := scan.NewSource(scan.NewPebbleSnapshots(r.db), cfg, decodeItem(space))
	src.Logger = r.logger
	src.Observe = r.db.Metrics().ObserveScan
	if opts.SkipCorrupt {
		src.Policy = scan.ResumeOn(record.ErrChecksum, record.ErrTruncated)
	}
	if opts.Filter != "" {
		filter, err := compileFilter(opts.Filter)
		if err != nil {
			return nil, err
		}
		src.Filter = filter
	}
	return src, nil
}

// decodeItem materializes an Item from a raw record entry.
func decodeItem(space string) scan.DecodeFunc[Item] {
	return func(key, value []byte) (Item, error) {
		seq, err := keyspace.SeqFromKey(key)
		if err != nil {
			return Item{}, err
		}
		rec, err := record.Decode(value)
		if err != nil {
			return Item{}, fmt.Errorf("seq %d: %w", seq, err)
		}
		return Item{Space: space, Seq: seq, Header: rec.Header, Payload: rec.Payload}, nil
	}
}
