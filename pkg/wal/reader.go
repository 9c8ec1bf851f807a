package wal

import (
	"encoding/binary"
	"errors"
	"io"
	"os"

	"github.com/orneryd/nornicgraph/pkg/graph"
)

// errTruncated signals a trailing partial entry at end-of-file — treated as
// the natural end of the log, not an error, per the recovery failure
// policy.
var errTruncated = errors.New("wal: truncated trailing entry")

// readOneEntry reads a single length-prefixed entry from r, returning the
// decoded entry and the number of bytes consumed. io.EOF means a clean
// end-of-stream (no partial data read); errTruncated means a partial read
// was found (not enough bytes for the declared length, or not enough bytes
// for even the length prefix after some data already exists in the
// stream) — both are end-of-log conditions, not decode errors.
func readOneEntry(r io.Reader) (*Entry, int, error) {
	var lenBuf [4]byte
	n, err := io.ReadFull(r, lenBuf[:])
	if err == io.EOF {
		return nil, 0, io.EOF
	}
	if err == io.ErrUnexpectedEOF {
		return nil, n, errTruncated
	}
	if err != nil {
		return nil, n, graph.Wrap(graph.KindIO, "read wal length prefix", err)
	}

	length := binary.LittleEndian.Uint32(lenBuf[:])
	payload := make([]byte, length)
	m, err := io.ReadFull(r, payload)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return nil, n + m, errTruncated
	}
	if err != nil {
		return nil, n + m, graph.Wrap(graph.KindIO, "read wal entry payload", err)
	}

	entry, err := DecodeEntry(payload)
	if err != nil {
		// A well-framed but malformed payload is a genuine mid-segment
		// decode error, fatal per the recovery failure policy — distinct
		// from the truncation cases above.
		return nil, n + m, graph.Wrap(graph.KindSerialization, "decode wal entry", err)
	}
	return entry, n + m, nil
}

// ReadSegment reads every well-formed entry from a single segment file in
// order, stopping silently at a truncated trailing entry.
func ReadSegment(path string) ([]*Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, graph.Wrap(graph.KindIO, "open wal segment", err)
	}
	defer f.Close()

	var entries []*Entry
	for {
		entry, _, err := readOneEntry(f)
		if err == io.EOF || err == errTruncated {
			break
		}
		if err != nil {
			return entries, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
