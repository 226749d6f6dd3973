package storage

import "github.com/pingcap-incubator/tinycalvin/kv/transaction/lockmgr"

// Modify is a single modification to the store, either a Put or a Delete.
type Modify struct {
	Data interface{}
}

type Put struct {
	Key   lockmgr.Key
	Value []byte
}

type Delete struct {
	Key lockmgr.Key
}

func (m *Modify) Key() lockmgr.Key {
	switch data := m.Data.(type) {
	case Put:
		return data.Key
	case Delete:
		return data.Key
	}
	return ""
}
