// Package index implements secondary indices over labels and node
// properties: an equality-only hash index and a range-capable ordered
// index, dispatched through an IndexManager the same way a constraint
// index registry dispatches by name, but scoped to exactly the
// label/property lookups the query planner needs.
package index

import (
	"bytes"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/orneryd/nornicgraph/pkg/graph"
)

// Index is satisfied by both HashIndex and OrderedIndex.
type Index interface {
	Insert(key []byte, id graph.NodeID)
	Remove(key []byte, id graph.NodeID)
	Lookup(key []byte) []graph.NodeID
	Range(start, end []byte) ([]graph.NodeID, error)
	Len() int
}

// hashBucket holds the entries that collide on a single xxhash digest: the
// original key bytes (needed to tell collisions apart) and the ids carrying
// that exact key.
type hashBucket struct {
	key []byte
	ids []graph.NodeID
}

// HashIndex is an unordered index keyed by the xxhash digest of the encoded
// property bytes rather than the bytes themselves, the same bucketing badger
// uses internally for its own value-index tables — a fixed-width uint64
// instead of an arbitrary-length string key. Collisions chain within a
// bucket slice. Supports point lookup only; Range always returns a typed
// error.
type HashIndex struct {
	mu      sync.RWMutex
	buckets map[uint64][]*hashBucket
}

// NewHashIndex constructs an empty hash index.
func NewHashIndex() *HashIndex {
	return &HashIndex{buckets: make(map[uint64][]*hashBucket)}
}

var _ Index = (*HashIndex)(nil)

func (h *HashIndex) bucketFor(key []byte) (uint64, *hashBucket) {
	digest := xxhash.Sum64(key)
	for _, b := range h.buckets[digest] {
		if bytes.Equal(b.key, key) {
			return digest, b
		}
	}
	return digest, nil
}

func (h *HashIndex) Insert(key []byte, id graph.NodeID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	digest, b := h.bucketFor(key)
	if b == nil {
		b = &hashBucket{key: append([]byte(nil), key...)}
		h.buckets[digest] = append(h.buckets[digest], b)
	}
	for _, existing := range b.ids {
		if existing == id {
			return
		}
	}
	b.ids = append(b.ids, id)
}

func (h *HashIndex) Remove(key []byte, id graph.NodeID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	digest, b := h.bucketFor(key)
	if b == nil {
		return
	}
	for i, existing := range b.ids {
		if existing == id {
			b.ids = append(b.ids[:i], b.ids[i+1:]...)
			break
		}
	}
	if len(b.ids) > 0 {
		return
	}
	chain := h.buckets[digest]
	for i, entry := range chain {
		if entry == b {
			h.buckets[digest] = append(chain[:i], chain[i+1:]...)
			break
		}
	}
	if len(h.buckets[digest]) == 0 {
		delete(h.buckets, digest)
	}
}

func (h *HashIndex) Lookup(key []byte) []graph.NodeID {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, b := h.bucketFor(key)
	if b == nil {
		return nil
	}
	out := make([]graph.NodeID, len(b.ids))
	copy(out, b.ids)
	return out
}

// Range is rejected: hash indices have no notion of ordering.
func (h *HashIndex) Range([]byte, []byte) ([]graph.NodeID, error) {
	return nil, graph.InvalidOperation("range queries not supported on hash indices")
}

func (h *HashIndex) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, chain := range h.buckets {
		n += len(chain)
	}
	return n
}

// OrderedIndex is a sorted map from composite `key-bytes || entity-id` to
// an empty payload, supporting point lookup via prefix scan and half-open
// range scan over the key-byte portion.
type OrderedIndex struct {
	mu   sync.RWMutex
	keys [][]byte // sorted composite keys
}

// NewOrderedIndex constructs an empty ordered index.
func NewOrderedIndex() *OrderedIndex {
	return &OrderedIndex{}
}

var _ Index = (*OrderedIndex)(nil)

func compositeKey(key []byte, id graph.NodeID) []byte {
	out := make([]byte, 0, len(key)+16)
	out = append(out, key...)
	out = append(out, id.Bytes()...)
	return out
}

func (o *OrderedIndex) search(composite []byte) int {
	return sort.Search(len(o.keys), func(i int) bool {
		return string(o.keys[i]) >= string(composite)
	})
}

func (o *OrderedIndex) Insert(key []byte, id graph.NodeID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	composite := compositeKey(key, id)
	i := o.search(composite)
	if i < len(o.keys) && string(o.keys[i]) == string(composite) {
		return
	}
	o.keys = append(o.keys, nil)
	copy(o.keys[i+1:], o.keys[i:])
	o.keys[i] = composite
}

func (o *OrderedIndex) Remove(key []byte, id graph.NodeID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	composite := compositeKey(key, id)
	i := o.search(composite)
	if i < len(o.keys) && string(o.keys[i]) == string(composite) {
		o.keys = append(o.keys[:i], o.keys[i+1:]...)
	}
}

// Lookup does a prefix scan for exact key equality, extracting the node id
// from the last 16 bytes of every matching composite key.
func (o *OrderedIndex) Lookup(key []byte) []graph.NodeID {
	o.mu.RLock()
	defer o.mu.RUnlock()
	var out []graph.NodeID
	for _, k := range o.keys {
		if len(k) < 16 {
			continue
		}
		keyPart := k[:len(k)-16]
		if string(keyPart) != string(key) {
			continue
		}
		id, err := graph.NodeIDFromBytes(k[len(k)-16:])
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out
}

// Range returns every id whose key bytes fall in the half-open interval
// [start, end).
func (o *OrderedIndex) Range(start, end []byte) ([]graph.NodeID, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	var out []graph.NodeID
	for _, k := range o.keys {
		if len(k) < 16 {
			continue
		}
		keyPart := k[:len(k)-16]
		if string(keyPart) < string(start) {
			continue
		}
		if string(keyPart) >= string(end) {
			continue
		}
		id, err := graph.NodeIDFromBytes(k[len(k)-16:])
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

func (o *OrderedIndex) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.keys)
}
