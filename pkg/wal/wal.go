package wal

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/dustin/go-humanize"

	"github.com/orneryd/nornicgraph/pkg/graph"
)

// Config controls segment rotation and durability behavior, matching the
// `wal.*` options in the embedded API's configuration surface.
type Config struct {
	Dir                string
	CheckpointThreshold int // entries per segment before rotation
	SyncOnWrite        bool
}

const segmentFilePattern = "wal-%08d.log"

// WAL is a segmented, append-only log. A single writer lock around the
// append path guarantees LSN monotonicity even under concurrent callers.
type WAL struct {
	mu sync.Mutex

	cfg Config

	nextLSN       uint64
	segmentNumber int
	entriesInSeg  int
	file          *os.File

	entryCount atomic.Uint64
	byteCount  atomic.Uint64
}

// Open creates (or opens for append) the WAL rooted at cfg.Dir, resuming
// from the highest-numbered existing segment and the LSN following the
// last entry found in it.
func Open(cfg Config) (*WAL, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, graph.Wrap(graph.KindIO, "create wal dir", err)
	}
	w := &WAL{cfg: cfg}

	segments, err := listSegments(cfg.Dir)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		w.segmentNumber = 0
		w.nextLSN = 1
		if err := w.openSegment(w.segmentNumber); err != nil {
			return nil, err
		}
		return w, nil
	}

	last := segments[len(segments)-1]
	w.segmentNumber = last
	if err := w.openSegmentAppend(last); err != nil {
		return nil, err
	}
	maxLSN, count, err := scanSegmentTail(filepath.Join(cfg.Dir, segmentName(last)))
	if err != nil {
		return nil, err
	}
	w.nextLSN = maxLSN + 1
	w.entriesInSeg = count
	return w, nil
}

func segmentName(n int) string { return fmt.Sprintf(segmentFilePattern, n) }

func listSegments(dir string) ([]int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, graph.Wrap(graph.KindIO, "list wal segments", err)
	}
	var nums []int
	for _, e := range entries {
		var n int
		if _, err := fmt.Sscanf(e.Name(), segmentFilePattern, &n); err == nil {
			nums = append(nums, n)
		}
	}
	sort.Ints(nums)
	return nums, nil
}

func (w *WAL) openSegment(n int) error {
	f, err := os.OpenFile(filepath.Join(w.cfg.Dir, segmentName(n)), os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return graph.Wrap(graph.KindIO, "open wal segment", err)
	}
	w.file = f
	return nil
}

func (w *WAL) openSegmentAppend(n int) error { return w.openSegment(n) }

// scanSegmentTail reads a segment end to end to find its highest LSN and
// entry count, tolerating a truncated trailing entry.
func scanSegmentTail(path string) (maxLSN uint64, count int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, graph.Wrap(graph.KindIO, "open wal segment for scan", err)
	}
	defer f.Close()

	for {
		entry, _, err := readOneEntry(f)
		if err == io.EOF || err == errTruncated {
			break
		}
		if err != nil {
			return 0, 0, err
		}
		if entry.LSN > maxLSN {
			maxLSN = entry.LSN
		}
		count++
	}
	return maxLSN, count, nil
}

// Append writes a new entry, assigning it the next LSN. If
// cfg.SyncOnWrite is set, the buffered data is flushed to the OS and an
// explicit fsync (File.Sync) is issued before Append returns — resolving
// the weaker "buffered flush only" guarantee the durability question left
// open: sync_on_write here is real crash durability, not just
// user-space-buffer durability.
func (w *WAL) Append(txnID uint64, timestamp uint64, op Op, body []byte) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	lsn := w.nextLSN
	entry := &Entry{LSN: lsn, TxnID: txnID, Timestamp: timestamp, Op: op, Body: body}
	payload := entry.Encode()

	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))

	if _, err := w.file.Write(lenBuf[:]); err != nil {
		return 0, graph.Wrap(graph.KindIO, "write wal length prefix", err)
	}
	if _, err := w.file.Write(payload); err != nil {
		return 0, graph.Wrap(graph.KindIO, "write wal entry", err)
	}

	if w.cfg.SyncOnWrite {
		if err := w.file.Sync(); err != nil {
			return 0, graph.Wrap(graph.KindIO, "fsync wal segment", err)
		}
	}

	w.nextLSN++
	w.entriesInSeg++
	w.entryCount.Add(1)
	w.byteCount.Add(uint64(4 + len(payload)))

	if w.cfg.CheckpointThreshold > 0 && w.entriesInSeg >= w.cfg.CheckpointThreshold {
		if err := w.rotateLocked(); err != nil {
			return lsn, err
		}
	}
	return lsn, nil
}

// Checkpoint appends a Checkpoint marker entry — recorded in the taxonomy
// but, per the design notes, not yet used to bound recovery work.
func (w *WAL) Checkpoint(timestamp uint64) (uint64, error) {
	return w.Append(0, timestamp, OpCheckpoint, nil)
}

// rotateLocked seals the active segment and opens the next-numbered one.
// Caller holds w.mu.
func (w *WAL) rotateLocked() error {
	if err := w.file.Sync(); err != nil {
		return graph.Wrap(graph.KindIO, "sync before wal rotation", err)
	}
	if err := w.file.Close(); err != nil {
		return graph.Wrap(graph.KindIO, "close wal segment on rotation", err)
	}
	w.segmentNumber++
	w.entriesInSeg = 0
	return w.openSegment(w.segmentNumber)
}

// Sync flushes and fsyncs the active segment unconditionally, regardless of
// SyncOnWrite.
func (w *WAL) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.file.Sync(); err != nil {
		return graph.Wrap(graph.KindIO, "sync wal segment", err)
	}
	return nil
}

// Close flushes and closes the active segment.
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.file.Sync(); err != nil {
		return graph.Wrap(graph.KindIO, "sync wal segment on close", err)
	}
	return w.file.Close()
}

// Stats is a supplemented observability surface, not part of the core
// recovery contract, giving callers visibility into log growth and
// rotation without reaching into WAL internals.
type Stats struct {
	Entries       uint64
	Bytes         uint64
	SegmentNumber int
	NextLSN       uint64
}

func (w *WAL) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Stats{
		Entries:       w.entryCount.Load(),
		Bytes:         w.byteCount.Load(),
		SegmentNumber: w.segmentNumber,
		NextLSN:       w.nextLSN,
	}
}

// String renders Stats with a human-readable byte size, for the CLI stats
// command and log lines — exact byte counts remain available on the struct
// itself for anything that needs to compute with them.
func (s Stats) String() string {
	return fmt.Sprintf("entries=%d size=%s segment=%d next_lsn=%d",
		s.Entries, humanize.Bytes(s.Bytes), s.SegmentNumber, s.NextLSN)
}
