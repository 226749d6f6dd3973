package txn

import (
	"fmt"

	"github.com/pingcap-incubator/tinycalvin/kv/storage"
	"github.com/pingcap-incubator/tinycalvin/kv/transaction/lockmgr"
	"github.com/pingcap/errors"
)

// ErrKeyNotLocked is returned when a transaction touches a key outside the sets it declared up front.
var ErrKeyNotLocked = errors.New("key is not in the transaction's read or write set")

type Status int

const (
	Pending Status = iota
	Committed
	Aborted
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Committed:
		return "committed"
	case Aborted:
		return "aborted"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Logic is the body of a transaction. Returning an error aborts the transaction; none of its writes are applied.
// Logic must be deterministic: given the same reads it must make the same writes and return the same result.
type Logic func(ctx *Context) error

// Txn is a transaction whose read and write sets are known before it runs. The lock manager only ever sees its ID.
type Txn struct {
	ID       lockmgr.TxnID
	ReadSet  []lockmgr.Key
	WriteSet []lockmgr.Key
	Logic    Logic

	Status Status
	// Err is the error returned by Logic for an aborted transaction.
	Err error
}

// New creates a transaction. Duplicate keys are removed, and keys in both sets are only kept in the write set, so
// that a transaction never requests two locks on one key.
func New(readSet, writeSet []lockmgr.Key, logic Logic) *Txn {
	writes := dedup(writeSet, nil)
	inWrites := make(map[lockmgr.Key]struct{}, len(writes))
	for _, key := range writes {
		inWrites[key] = struct{}{}
	}
	return &Txn{
		ReadSet:  dedup(readSet, inWrites),
		WriteSet: writes,
		Logic:    logic,
	}
}

func dedup(keys []lockmgr.Key, exclude map[lockmgr.Key]struct{}) []lockmgr.Key {
	seen := make(map[lockmgr.Key]struct{}, len(keys))
	out := make([]lockmgr.Key, 0, len(keys))
	for _, key := range keys {
		if _, ok := exclude[key]; ok {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

// Keys returns every key the transaction locks, write set first.
func (t *Txn) Keys() []lockmgr.Key {
	keys := make([]lockmgr.Key, 0, len(t.WriteSet)+len(t.ReadSet))
	keys = append(keys, t.WriteSet...)
	return append(keys, t.ReadSet...)
}

// ReadOnly returns true if the transaction writes nothing.
func (t *Txn) ReadOnly() bool {
	return len(t.WriteSet) == 0
}

// Execute runs the transaction's logic against store and applies its writes if it succeeds. The caller must hold
// every lock the transaction asked for.
func (t *Txn) Execute(store *storage.MemStorage) {
	ctx := newContext(t, store)
	if t.Logic != nil {
		if err := t.Logic(ctx); err != nil {
			t.Status = Aborted
			t.Err = err
			return
		}
	}
	store.Write(ctx.writes)
	t.Status = Committed
}

func (t *Txn) String() string {
	return fmt.Sprintf("txn %d (%s, read %d keys, write %d keys)", t.ID, t.Status, len(t.ReadSet), len(t.WriteSet))
}
