package mvcc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotVisibility(t *testing.T) {
	snap := Snapshot{Timestamp: 100, Active: map[TxnID]struct{}{50: {}}}

	assert.True(t, snap.IsVisible(10, nil), "created before snapshot, never deleted")
	assert.False(t, snap.IsVisible(150, nil), "created after snapshot")
	assert.False(t, snap.IsVisible(50, nil), "creator still active at snapshot time")

	deleter := TxnID(200)
	assert.True(t, snap.IsVisible(10, &deleter), "deleted after snapshot, still visible")

	committedDeleter := TxnID(20)
	assert.False(t, snap.IsVisible(10, &committedDeleter), "deleted before snapshot by a committed txn")

	activeDeleter := TxnID(50)
	assert.True(t, snap.IsVisible(10, &activeDeleter), "deleter still active at snapshot time")
}

func TestTransactionManagerBeginCommitAbort(t *testing.T) {
	m := NewManager()
	id1, _ := m.Begin()
	id2, _ := m.Begin()
	assert.Equal(t, 2, m.ActiveCount())

	commitTS, err := m.Commit(id1)
	require.NoError(t, err)
	assert.Greater(t, uint64(commitTS), uint64(id2))
	assert.Equal(t, 1, m.ActiveCount())

	require.NoError(t, m.Abort(id2))
	assert.Equal(t, 0, m.ActiveCount())

	_, err = m.Commit(id1)
	require.Error(t, err, "double commit of a removed txn must fail")
}

func TestOldestActiveTimestampUpdatesAfterCommit(t *testing.T) {
	m := NewManager()
	id1, _ := m.Begin()
	id2, _ := m.Begin()

	oldest, ok := m.OldestActiveTimestamp()
	require.True(t, ok)
	assert.Equal(t, Timestamp(id1), oldest)

	_, err := m.Commit(id1)
	require.NoError(t, err)

	oldest, ok = m.OldestActiveTimestamp()
	require.True(t, ok)
	assert.Equal(t, Timestamp(id2), oldest)
}

func TestVersionChainVisibilityAndGC(t *testing.T) {
	vc := NewVersionChain[string]()
	require.NoError(t, vc.AddVersion("v1", TxnID(10), Timestamp(10)))
	require.NoError(t, vc.MarkHeadDeleted(TxnID(150), Timestamp(150)))

	snapBefore := Snapshot{Timestamp: 100, Active: map[TxnID]struct{}{}}
	data, ok := vc.GetVisibleVersion(snapBefore)
	assert.True(t, ok)
	assert.Equal(t, "v1", data)

	snapAfter := Snapshot{Timestamp: 200, Active: map[TxnID]struct{}{}}
	_, ok = vc.GetVisibleVersion(snapAfter)
	assert.False(t, ok, "version deleted before snapshot must not be visible")

	// GC(140) keeps it: deleted_at(150) >= 140.
	vc.GC(Timestamp(140))
	assert.Equal(t, 1, vc.VersionCount())

	// GC(180) discards it: deleted_at(150) < 180.
	vc.GC(Timestamp(180))
	assert.Equal(t, 0, vc.VersionCount())
}

func TestVersionChainFirstWriterWins(t *testing.T) {
	vc := NewVersionChain[string]()
	require.NoError(t, vc.AddVersion("v1", TxnID(10), Timestamp(10)))

	// Txn 20 starts after txn 10's version exists, deletes it (commits as txn 30).
	require.NoError(t, vc.MarkHeadDeleted(TxnID(30), Timestamp(20)))

	// A second, concurrent txn that also started at ts 20 tries to mutate
	// the same head, but it has since been superseded by txn 30 which
	// committed after this caller's start (20) — conflict.
	err := vc.AddVersion("v2", TxnID(40), Timestamp(20))
	assert.ErrorIs(t, err, ErrWriteConflict)
}

func TestDeadlockDetection(t *testing.T) {
	d := NewDetector()
	t1, t2 := TxnID(1), TxnID(2)

	require.NoError(t, d.RequestLock(t1, "res1"))
	require.NoError(t, d.RequestLock(t2, "res2"))

	err := d.RequestLock(t1, "res2")
	var contended *ContendedError
	require.ErrorAs(t, err, &contended)

	err = d.RequestLock(t2, "res1")
	var deadlock *DeadlockError
	require.ErrorAs(t, err, &deadlock)

	// The edge that would have completed the cycle must be rolled back.
	assert.NotContains(t, d.waitsFor[t2], t1)
}

func TestReentrantLock(t *testing.T) {
	d := NewDetector()
	t1 := TxnID(1)
	require.NoError(t, d.RequestLock(t1, "res1"))
	require.NoError(t, d.RequestLock(t1, "res1"))
}

func TestReleaseAllLocks(t *testing.T) {
	d := NewDetector()
	t1, t2 := TxnID(1), TxnID(2)
	require.NoError(t, d.RequestLock(t1, "res1"))
	err := d.RequestLock(t2, "res1")
	var contended *ContendedError
	require.ErrorAs(t, err, &contended)

	d.ReleaseAllLocks(t1)
	require.NoError(t, d.RequestLock(t2, "res1"))
}

func TestTransactionMetadataBound(t *testing.T) {
	txn := NewTransaction(TxnID(1), Snapshot{})
	require.NoError(t, txn.SetMetadata("query", "MATCH (n) RETURN n"))
	v, ok := txn.GetMetadata("query")
	require.True(t, ok)
	assert.Equal(t, "MATCH (n) RETURN n", v)

	big := make([]byte, maxMetadataChars+1)
	for i := range big {
		big[i] = 'x'
	}
	err := txn.SetMetadata("overflow", string(big))
	require.Error(t, err)
}
