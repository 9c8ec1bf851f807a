package mvcc

import (
	"sync"

	"github.com/orneryd/nornicgraph/pkg/graph"
)

// Status is a transaction's lifecycle state.
type Status int

const (
	StatusActive Status = iota
	StatusCommitted
	StatusAborted
)

// Info is the active-table entry the manager keeps per live transaction.
type Info struct {
	StartTS  Timestamp
	CommitTS Timestamp
	Status   Status
}

// Manager allocates transaction ids and timestamps from one monotonic
// counter, tracks the active set, and computes the GC horizon
// (oldest_active_timestamp) the version chains and WAL checkpoint policy
// both need.
type Manager struct {
	mu      sync.Mutex
	counter uint64
	active  map[TxnID]*Info
}

// NewManager constructs an empty transaction manager.
func NewManager() *Manager {
	return &Manager{active: make(map[TxnID]*Info)}
}

func (m *Manager) next() uint64 {
	m.counter++
	return m.counter
}

// Begin allocates a new transaction id, snapshots the current active set
// (before adding itself), and registers itself as active.
func (m *Manager) Begin() (TxnID, Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := TxnID(m.next())
	ts := Timestamp(id)

	activeCopy := make(map[TxnID]struct{}, len(m.active))
	for t := range m.active {
		activeCopy[t] = struct{}{}
	}

	m.active[id] = &Info{StartTS: ts, Status: StatusActive}
	return id, Snapshot{Timestamp: ts, Active: activeCopy}
}

// Commit marks a transaction committed, removes it from the active set,
// and returns its commit timestamp. Errors if the id is unknown.
func (m *Manager) Commit(id TxnID) (Timestamp, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	info, ok := m.active[id]
	if !ok {
		return 0, graph.NewError(graph.KindTransaction, "commit of unknown transaction")
	}
	commitTS := Timestamp(m.next())
	info.CommitTS = commitTS
	info.Status = StatusCommitted
	delete(m.active, id)
	return commitTS, nil
}

// Abort marks a transaction aborted and removes it from the active set.
func (m *Manager) Abort(id TxnID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.active[id]; !ok {
		return graph.NewError(graph.KindTransaction, "abort of unknown transaction")
	}
	delete(m.active, id)
	return nil
}

// IsActive reports whether id is currently an active transaction.
func (m *Manager) IsActive(id TxnID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.active[id]
	return ok
}

// ActiveCount reports how many transactions are currently active.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// OldestActiveTimestamp returns the minimum StartTS among active
// transactions, the GC horizon version chains prune against. The second
// return is false if there are no active transactions.
func (m *Manager) OldestActiveTimestamp() (Timestamp, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.active) == 0 {
		return 0, false
	}
	var oldest Timestamp
	first := true
	for _, info := range m.active {
		if first || info.StartTS < oldest {
			oldest = info.StartTS
			first = false
		}
	}
	return oldest, true
}
