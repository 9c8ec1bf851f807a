// Package mvcc implements multi-version concurrency control (C9), the
// transaction manager (C10), and the wait-for deadlock detector (C11): the
// machinery giving readers a stable snapshot while writers serialize
// through commit timestamps and entity-level locks.
package mvcc

import (
	"sync"

	"github.com/orneryd/nornicgraph/pkg/graph"
)

// TxnID identifies a transaction. It doubles as a monotonic timestamp —
// the transaction manager draws both ids and timestamps from the same
// counter, so a version's xmin/xmax can be compared directly against a
// snapshot's timestamp without a separate clock.
type TxnID uint64

// Timestamp is a point on the same monotonic counter TxnID is drawn from.
type Timestamp uint64

// Version is one entry in an item's history: the data as of its creation,
// the transaction that created it (xmin), the transaction that deleted it
// (xmax, nil if still current), and the corresponding timestamps.
type Version[T any] struct {
	Data      T
	Xmin      TxnID
	Xmax      *TxnID
	CreatedAt Timestamp
	DeletedAt *Timestamp
}

// VersionChain holds the ordered history of a single logical item (a node
// or an edge), newest version first. At most one version has Xmax == nil.
type VersionChain[T any] struct {
	mu       sync.RWMutex
	versions []*Version[T]
}

// NewVersionChain constructs an empty chain.
func NewVersionChain[T any]() *VersionChain[T] {
	return &VersionChain[T]{}
}

// ErrWriteConflict is returned by AddVersion/MarkHeadDeleted when another
// transaction has already superseded the head version after the calling
// transaction began — the first-writer-wins realization of snapshot
// isolation's write-write conflict rule.
var ErrWriteConflict = graph.NewError(graph.KindTransaction, "write-write conflict: item modified by a transaction committed after this one began")

// AddVersion inserts a new head version (an insert, or the insert half of
// an update). If a current head exists, it is mark-deleted first — a
// mutation of an existing item is modeled as delete-then-insert. Returns
// ErrWriteConflict if the existing head was already superseded by a
// transaction that committed after callerStartTS.
func (vc *VersionChain[T]) AddVersion(data T, txnID TxnID, callerStartTS Timestamp) error {
	vc.mu.Lock()
	defer vc.mu.Unlock()

	if len(vc.versions) > 0 {
		head := vc.versions[0]
		if head.Xmax != nil {
			if Timestamp(*head.Xmax) > callerStartTS {
				return ErrWriteConflict
			}
		} else {
			xmax := txnID
			head.Xmax = &xmax
			deletedAt := Timestamp(txnID)
			head.DeletedAt = &deletedAt
		}
	}

	v := &Version[T]{Data: data, Xmin: txnID, CreatedAt: Timestamp(txnID)}
	vc.versions = append([]*Version[T]{v}, vc.versions...)
	return nil
}

// MarkHeadDeleted mark-deletes the current head (a plain delete, with no
// new version inserted). Returns NotFound if the chain is empty, or
// ErrWriteConflict under the same rule as AddVersion.
func (vc *VersionChain[T]) MarkHeadDeleted(txnID TxnID, callerStartTS Timestamp) error {
	vc.mu.Lock()
	defer vc.mu.Unlock()

	if len(vc.versions) == 0 {
		return graph.NotFound("version chain item")
	}
	head := vc.versions[0]
	if head.Xmax != nil {
		if Timestamp(*head.Xmax) > callerStartTS {
			return ErrWriteConflict
		}
		return graph.NotFound("version chain item")
	}
	xmax := txnID
	head.Xmax = &xmax
	deletedAt := Timestamp(txnID)
	head.DeletedAt = &deletedAt
	return nil
}

// GetVisibleVersion scans newest-to-oldest and returns the first version
// visible to snap, per Snapshot.IsVisible.
func (vc *VersionChain[T]) GetVisibleVersion(snap Snapshot) (T, bool) {
	vc.mu.RLock()
	defer vc.mu.RUnlock()
	var zero T
	for _, v := range vc.versions {
		if snap.IsVisible(v.Xmin, v.Xmax) {
			return v.Data, true
		}
	}
	return zero, false
}

// GetLatestActive returns the current head's data if it has no xmax set
// (i.e. has not been deleted by any transaction, committed or not).
func (vc *VersionChain[T]) GetLatestActive() (T, bool) {
	vc.mu.RLock()
	defer vc.mu.RUnlock()
	var zero T
	if len(vc.versions) == 0 || vc.versions[0].Xmax != nil {
		return zero, false
	}
	return vc.versions[0].Data, true
}

// GC discards every version whose DeletedAt is older than the oldest
// active snapshot timestamp — such versions can never be visible to any
// present or future snapshot.
func (vc *VersionChain[T]) GC(oldestActive Timestamp) {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	kept := vc.versions[:0]
	for _, v := range vc.versions {
		if v.DeletedAt == nil || *v.DeletedAt >= oldestActive {
			kept = append(kept, v)
		}
	}
	vc.versions = kept
}

// VersionCount reports the number of versions retained, mostly useful for
// tests verifying GC behavior.
func (vc *VersionChain[T]) VersionCount() int {
	vc.mu.RLock()
	defer vc.mu.RUnlock()
	return len(vc.versions)
}

// Rollback undoes whatever txnID did to this chain — the inverse of
// AddVersion/MarkHeadDeleted, used by an aborting transaction to discard
// its own staged writes. If txnID is the head's Xmin, the head is removed
// entirely (undoing an insert or update) and the version beneath it, if
// any, has its Xmax cleared when that Xmax is also txnID (undoing the
// implicit mark-delete AddVersion performs on the prior head). Otherwise,
// if txnID is the head's Xmax, only the mark-delete is undone (a plain
// delete). A no-op if txnID touched neither.
func (vc *VersionChain[T]) Rollback(txnID TxnID) {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	if len(vc.versions) == 0 {
		return
	}
	head := vc.versions[0]
	if head.Xmin == txnID {
		vc.versions = vc.versions[1:]
		if len(vc.versions) > 0 {
			prev := vc.versions[0]
			if prev.Xmax != nil && *prev.Xmax == txnID {
				prev.Xmax = nil
				prev.DeletedAt = nil
			}
		}
		return
	}
	if head.Xmax != nil && *head.Xmax == txnID {
		head.Xmax = nil
		head.DeletedAt = nil
	}
}
