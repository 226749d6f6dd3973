package txn

import (
	"github.com/pingcap-incubator/tinycalvin/kv/storage"
	"github.com/pingcap-incubator/tinycalvin/kv/transaction/lockmgr"
	"github.com/pingcap/errors"
)

// Context is handed to a transaction's Logic. Writes are buffered until the logic returns; reads see the
// transaction's own buffered writes.
type Context struct {
	txn    *Txn
	store  *storage.MemStorage
	reads  map[lockmgr.Key]struct{}
	writes []storage.Modify
	// buffered maps a written key to its index in writes.
	buffered map[lockmgr.Key]int
}

func newContext(t *Txn, store *storage.MemStorage) *Context {
	ctx := &Context{
		txn:      t,
		store:    store,
		reads:    make(map[lockmgr.Key]struct{}, len(t.ReadSet)+len(t.WriteSet)),
		buffered: make(map[lockmgr.Key]int, len(t.WriteSet)),
	}
	for _, key := range t.Keys() {
		ctx.reads[key] = struct{}{}
	}
	return ctx
}

// ID returns the ID of the running transaction.
func (c *Context) ID() lockmgr.TxnID {
	return c.txn.ID
}

// Get returns the value of key, which must be in the read or write set.
func (c *Context) Get(key lockmgr.Key) ([]byte, bool, error) {
	if _, ok := c.reads[key]; !ok {
		return nil, false, errors.Annotatef(ErrKeyNotLocked, "get %q", key)
	}
	if i, ok := c.buffered[key]; ok {
		if put, ok := c.writes[i].Data.(storage.Put); ok {
			return put.Value, true, nil
		}
		return nil, false, nil
	}
	value, ok := c.store.Get(key)
	return value, ok, nil
}

// Put sets key to value once the transaction commits. key must be in the write set.
func (c *Context) Put(key lockmgr.Key, value []byte) error {
	return c.buffer(storage.Modify{Data: storage.Put{Key: key, Value: value}})
}

// Delete removes key once the transaction commits. key must be in the write set.
func (c *Context) Delete(key lockmgr.Key) error {
	return c.buffer(storage.Modify{Data: storage.Delete{Key: key}})
}

func (c *Context) buffer(m storage.Modify) error {
	key := m.Key()
	if !c.canWrite(key) {
		return errors.Annotatef(ErrKeyNotLocked, "write %q", key)
	}
	if i, ok := c.buffered[key]; ok {
		c.writes[i] = m
		return nil
	}
	c.buffered[key] = len(c.writes)
	c.writes = append(c.writes, m)
	return nil
}

func (c *Context) canWrite(key lockmgr.Key) bool {
	for _, k := range c.txn.WriteSet {
		if k == key {
			return true
		}
	}
	return false
}
