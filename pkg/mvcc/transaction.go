package mvcc

import (
	"strings"
	"sync"

	"github.com/orneryd/nornicgraph/pkg/graph"
)

// maxMetadataChars bounds Transaction metadata to keep it a debugging aid,
// not a payload channel.
const maxMetadataChars = 2048

// Transaction pairs a transaction id and its snapshot with optional
// debugging metadata. pkg/dbms is the only caller that constructs these;
// everything else in this package works in terms of bare TxnIDs.
type Transaction struct {
	ID       TxnID
	Snapshot Snapshot

	mu       sync.Mutex
	metadata map[string]string
	metaLen  int
}

// NewTransaction wraps a (TxnID, Snapshot) pair returned by Manager.Begin.
func NewTransaction(id TxnID, snap Snapshot) *Transaction {
	return &Transaction{ID: id, Snapshot: snap, metadata: make(map[string]string)}
}

// SetMetadata records a debugging key/value pair, rejecting the write if it
// would push the transaction's total metadata past maxMetadataChars.
func (t *Transaction) SetMetadata(key, value string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	added := len(key) + len(value)
	if old, ok := t.metadata[key]; ok {
		added -= len(key) + len(old)
	}
	if t.metaLen+added > maxMetadataChars {
		return graph.InvalidOperation("transaction metadata exceeds 2048 character limit")
	}
	t.metadata[key] = value
	t.metaLen += added
	return nil
}

// GetMetadata returns a previously set value.
func (t *Transaction) GetMetadata(key string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.metadata[key]
	return v, ok
}

// MetadataSummary renders the metadata as a single log-friendly line for a
// commit log entry.
func (t *Transaction) MetadataSummary() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.metadata) == 0 {
		return ""
	}
	parts := make([]string, 0, len(t.metadata))
	for k, v := range t.metadata {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, " ")
}
