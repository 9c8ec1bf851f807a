package index

import (
	"sync"

	"github.com/orneryd/nornicgraph/pkg/graph"
)

// Kind selects the shape backing a named index.
type Kind int

const (
	KindHash Kind = iota
	KindBTree
)

// Config describes how a named index was created: either a label index
// (is_label_index) or a property index keyed on PropertyKey.
type Config struct {
	Name        string
	Kind        Kind
	PropertyKey string
	IsLabel     bool
}

// LabelConfig builds a label-index configuration.
func LabelConfig(name, label string, kind Kind) Config {
	return Config{Name: name, Kind: kind, PropertyKey: label, IsLabel: true}
}

// PropertyConfig builds a property-index configuration.
func PropertyConfig(name, key string, kind Kind) Config {
	return Config{Name: name, Kind: kind, PropertyKey: key, IsLabel: false}
}

// Manager holds a name → index map plus two auxiliary maps dispatching
// label and property lookups to the index responsible for them. It is the
// single entry point pkg/storage and pkg/cypher's planner/executor use for
// every secondary-index operation.
type Manager struct {
	mu       sync.RWMutex
	indices  map[string]Index
	configs  map[string]Config
	byLabel  map[string]string // label -> index name
	byProp   map[string]string // property key -> index name
}

// NewManager constructs an empty index manager.
func NewManager() *Manager {
	return &Manager{
		indices: make(map[string]Index),
		configs: make(map[string]Config),
		byLabel: make(map[string]string),
		byProp:  make(map[string]string),
	}
}

// CreateIndex registers a new named index. Re-creating an existing name is
// an InvalidOperation error.
func (m *Manager) CreateIndex(cfg Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.indices[cfg.Name]; ok {
		return graph.InvalidOperation("index already exists: " + cfg.Name)
	}
	var idx Index
	switch cfg.Kind {
	case KindHash:
		idx = NewHashIndex()
	case KindBTree:
		idx = NewOrderedIndex()
	default:
		return graph.InvalidOperation("unknown index kind")
	}
	m.indices[cfg.Name] = idx
	m.configs[cfg.Name] = cfg
	if cfg.IsLabel {
		m.byLabel[cfg.PropertyKey] = cfg.Name
	} else {
		m.byProp[cfg.PropertyKey] = cfg.Name
	}
	return nil
}

// DropIndex removes a named index and its routing entries.
func (m *Manager) DropIndex(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.configs[name]
	if !ok {
		return graph.NotFound("index")
	}
	delete(m.indices, name)
	delete(m.configs, name)
	if cfg.IsLabel {
		delete(m.byLabel, cfg.PropertyKey)
	} else {
		delete(m.byProp, cfg.PropertyKey)
	}
	return nil
}

func (m *Manager) HasLabelIndex(label string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.byLabel[label]
	return ok
}

func (m *Manager) HasPropertyIndex(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.byProp[key]
	return ok
}

// InsertLabel records that node id now carries label, if a label index for
// it exists. A no-op otherwise.
func (m *Manager) InsertLabel(label string, id graph.NodeID) {
	m.mu.RLock()
	name, ok := m.byLabel[label]
	var idx Index
	if ok {
		idx = m.indices[name]
	}
	m.mu.RUnlock()
	if idx != nil {
		idx.Insert([]byte(label), id)
	}
}

// RemoveLabel is the inverse of InsertLabel.
func (m *Manager) RemoveLabel(label string, id graph.NodeID) {
	m.mu.RLock()
	name, ok := m.byLabel[label]
	var idx Index
	if ok {
		idx = m.indices[name]
	}
	m.mu.RUnlock()
	if idx != nil {
		idx.Remove([]byte(label), id)
	}
}

// InsertProperty records id under key/value in the property index for key,
// if one exists.
func (m *Manager) InsertProperty(key string, value graph.PropertyValue, id graph.NodeID) error {
	m.mu.RLock()
	name, ok := m.byProp[key]
	var idx Index
	if ok {
		idx = m.indices[name]
	}
	m.mu.RUnlock()
	if idx == nil {
		return nil
	}
	encoded, err := graph.EncodeIndexKey(value)
	if err != nil {
		return err
	}
	idx.Insert(encoded, id)
	return nil
}

// RemoveProperty is the inverse of InsertProperty.
func (m *Manager) RemoveProperty(key string, value graph.PropertyValue, id graph.NodeID) error {
	m.mu.RLock()
	name, ok := m.byProp[key]
	var idx Index
	if ok {
		idx = m.indices[name]
	}
	m.mu.RUnlock()
	if idx == nil {
		return nil
	}
	encoded, err := graph.EncodeIndexKey(value)
	if err != nil {
		return err
	}
	idx.Remove(encoded, id)
	return nil
}

// LookupLabel returns every node id indexed under label, or (nil, false) if
// no label index exists for it.
func (m *Manager) LookupLabel(label string) ([]graph.NodeID, bool) {
	m.mu.RLock()
	name, ok := m.byLabel[label]
	var idx Index
	if ok {
		idx = m.indices[name]
	}
	m.mu.RUnlock()
	if idx == nil {
		return nil, false
	}
	return idx.Lookup([]byte(label)), true
}

// LookupProperty returns every node id indexed under key==value, or
// (nil, false) if no property index exists for key.
func (m *Manager) LookupProperty(key string, value graph.PropertyValue) ([]graph.NodeID, bool, error) {
	m.mu.RLock()
	name, ok := m.byProp[key]
	var idx Index
	if ok {
		idx = m.indices[name]
	}
	m.mu.RUnlock()
	if idx == nil {
		return nil, false, nil
	}
	encoded, err := graph.EncodeIndexKey(value)
	if err != nil {
		return nil, true, err
	}
	return idx.Lookup(encoded), true, nil
}

// RangeProperty returns every node id whose property key falls in
// [start, end). Rejected with InvalidOperation if the index backing key is
// a hash index.
func (m *Manager) RangeProperty(key string, start, end graph.PropertyValue) ([]graph.NodeID, bool, error) {
	m.mu.RLock()
	name, ok := m.byProp[key]
	var idx Index
	var cfg Config
	if ok {
		idx = m.indices[name]
		cfg = m.configs[name]
	}
	m.mu.RUnlock()
	if idx == nil {
		return nil, false, nil
	}
	if cfg.Kind == KindHash {
		return nil, true, graph.InvalidOperation("range queries not supported on hash indices")
	}
	startBytes, err := graph.EncodeIndexKey(start)
	if err != nil {
		return nil, true, err
	}
	endBytes, err := graph.EncodeIndexKey(end)
	if err != nil {
		return nil, true, err
	}
	ids, err := idx.Range(startBytes, endBytes)
	return ids, true, err
}

// ListIndices returns the configuration of every registered index.
func (m *Manager) ListIndices() []Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Config, 0, len(m.configs))
	for _, c := range m.configs {
		out = append(out, c)
	}
	return out
}

// IndexCount reports how many indices are registered.
func (m *Manager) IndexCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.indices)
}
