package wal

import (
	"os"
	"testing"

	"github.com/orneryd/nornicgraph/pkg/graph"
	"github.com/orneryd/nornicgraph/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAssignsMonotonicLSNs(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(Config{Dir: dir, CheckpointThreshold: 1000})
	require.NoError(t, err)
	defer w.Close()

	lsn1, err := w.Append(1, 1, OpBeginTxn, nil)
	require.NoError(t, err)
	lsn2, err := w.Append(1, 2, OpCommitTxn, nil)
	require.NoError(t, err)
	assert.Equal(t, lsn1+1, lsn2)
}

func TestRotationOnCheckpointThreshold(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(Config{Dir: dir, CheckpointThreshold: 2})
	require.NoError(t, err)
	defer w.Close()

	for i := 0; i < 5; i++ {
		_, err := w.Append(1, uint64(i), OpBeginTxn, nil)
		require.NoError(t, err)
	}
	assert.Greater(t, w.segmentNumber, 0)
}

func TestRecoveryReplaysOnlyCommitted(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(Config{Dir: dir, CheckpointThreshold: 1000, SyncOnWrite: true})
	require.NoError(t, err)

	bob := graph.NewNode([]string{"Person"}, map[string]graph.PropertyValue{"name": graph.String("Bob")})
	ghost := graph.NewNode([]string{"Person"}, map[string]graph.PropertyValue{"name": graph.String("Ghost")})

	_, err = w.Append(1, 1, OpBeginTxn, nil)
	require.NoError(t, err)
	_, err = w.Append(1, 2, OpInsertNode, EncodeNodeBody(bob))
	require.NoError(t, err)
	_, err = w.Append(1, 3, OpCommitTxn, nil)
	require.NoError(t, err)

	_, err = w.Append(2, 4, OpBeginTxn, nil)
	require.NoError(t, err)
	_, err = w.Append(2, 5, OpInsertNode, EncodeNodeBody(ghost))
	require.NoError(t, err)
	// Txn 2 never commits.

	require.NoError(t, w.Close())

	eng := storage.NewMemoryEngine()
	require.NoError(t, Recover(dir, eng))

	nodes, err := eng.GetAllNodes()
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "Bob", nodes[0].Properties["name"].Str)
}

func TestRecoveryToleratesTruncatedTrailingEntry(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(Config{Dir: dir, CheckpointThreshold: 1000})
	require.NoError(t, err)

	bob := graph.NewNode([]string{"Person"}, nil)
	_, err = w.Append(1, 1, OpBeginTxn, nil)
	require.NoError(t, err)
	_, err = w.Append(1, 2, OpInsertNode, EncodeNodeBody(bob))
	require.NoError(t, err)
	_, err = w.Append(1, 3, OpCommitTxn, nil)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	// Truncate the segment file mid-entry to simulate a crash during write.
	path := dir + "/wal-00000000.log"
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, os.Truncate(path, info.Size()-2))

	eng := storage.NewMemoryEngine()
	require.NoError(t, Recover(dir, eng))
	nodes, err := eng.GetAllNodes()
	require.NoError(t, err)
	assert.Len(t, nodes, 1)
}
