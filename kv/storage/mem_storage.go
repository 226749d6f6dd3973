package storage

import (
	"sync"

	"github.com/google/btree"
	"github.com/pingcap-incubator/tinycalvin/kv/transaction/lockmgr"
)

const btreeDegree = 32

// MemStorage is an ordered key/value store held in memory. Executors of non-conflicting transactions use it
// concurrently, so the tree is guarded by a RWMutex; conflicting transactions are kept apart by the lock manager.
type MemStorage struct {
	mu   sync.RWMutex
	tree *btree.BTree
}

func NewMemStorage() *MemStorage {
	return &MemStorage{tree: btree.New(btreeDegree)}
}

// Get returns the value stored at key, and false if there is none.
func (s *MemStorage) Get(key lockmgr.Key) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := s.tree.Get(memItem{key: key})
	if result == nil {
		return nil, false
	}
	return result.(memItem).value, true
}

func (s *MemStorage) Put(key lockmgr.Key, value []byte) {
	s.mu.Lock()
	s.tree.ReplaceOrInsert(memItem{key: key, value: value})
	s.mu.Unlock()
}

func (s *MemStorage) Delete(key lockmgr.Key) {
	s.mu.Lock()
	s.tree.Delete(memItem{key: key})
	s.mu.Unlock()
}

// Write applies a batch of modifications. Readers see either none or all of them.
func (s *MemStorage) Write(batch []Modify) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range batch {
		switch data := m.Data.(type) {
		case Put:
			s.tree.ReplaceOrInsert(memItem{key: data.Key, value: data.Value})
		case Delete:
			s.tree.Delete(memItem{key: data.Key})
		}
	}
}

// Scan calls fn for every key in [start, end) in ascending order until fn returns false. An empty end means no upper
// bound.
func (s *MemStorage) Scan(start, end lockmgr.Key, fn func(key lockmgr.Key, value []byte) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	iter := func(i btree.Item) bool {
		item := i.(memItem)
		return fn(item.key, item.value)
	}
	if end == "" {
		s.tree.AscendGreaterOrEqual(memItem{key: start}, iter)
		return
	}
	s.tree.AscendRange(memItem{key: start}, memItem{key: end}, iter)
}

func (s *MemStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Len()
}

type memItem struct {
	key   lockmgr.Key
	value []byte
}

func (it memItem) Less(than btree.Item) bool {
	return it.key < than.(memItem).key
}
