package mvcc

// Snapshot fixes a reader's view of the database: a timestamp T plus the
// set of transaction ids that were still active when the snapshot was
// taken.
type Snapshot struct {
	Timestamp Timestamp
	Active    map[TxnID]struct{}
}

// IsVisible implements the visibility predicate from the MVCC design:
// xmin(V) < T, xmin(V) not active at snapshot time, and either the version
// was never deleted, or its deletion has not yet been observed as
// committed before T.
func (s Snapshot) IsVisible(xmin TxnID, xmax *TxnID) bool {
	if Timestamp(xmin) >= s.Timestamp {
		return false
	}
	if _, active := s.Active[xmin]; active {
		return false
	}
	if xmax == nil {
		return true
	}
	if Timestamp(*xmax) >= s.Timestamp {
		return true
	}
	if _, active := s.Active[*xmax]; active {
		return true
	}
	return false
}

// IsTxnVisible reports whether a transaction's effects (as the creator or
// deleter of a version) are visible to this snapshot — the creator has
// committed strictly before T and was not still active at snapshot time.
func (s Snapshot) IsTxnVisible(txn TxnID) bool {
	if Timestamp(txn) >= s.Timestamp {
		return false
	}
	_, active := s.Active[txn]
	return !active
}
