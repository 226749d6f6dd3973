package lockmgr

import (
	"fmt"

	"github.com/pingcap/errors"
)

// TxnID is a handle to a transaction owned by the caller. Managers only compare and hash it.
type TxnID uint64

// Key identifies a lockable resource.
type Key string

// LockMode is the state of a key's lock.
type LockMode int

const (
	Unlocked LockMode = iota
	Shared
	Exclusive
)

func (m LockMode) String() string {
	switch m {
	case Unlocked:
		return "unlocked"
	case Shared:
		return "shared"
	case Exclusive:
		return "exclusive"
	}
	return fmt.Sprintf("LockMode(%d)", int(m))
}

// ReadySink receives transactions which hold every lock they requested. Managers only ever append to it.
type ReadySink interface {
	Push(txn TxnID)
}

// Manager is the contract shared by ExclusiveManager and SharedManager.
type Manager interface {
	// WriteLock requests an exclusive lock on key for txn and reports whether it was granted immediately.
	WriteLock(txn TxnID, key Key) bool
	// ReadLock requests a shared lock on key for txn and reports whether it was granted immediately.
	ReadLock(txn TxnID, key Key) bool
	// Release gives up txn's held or queued request on key. Releasing a request which does not exist is a no-op.
	Release(txn TxnID, key Key)
	// Status returns the mode key is locked in and its current holders in queue order.
	Status(key Key) (LockMode, []TxnID)
	// WaitCount returns the number of txn's requests which are still queued, and false if txn is not registered.
	WaitCount(txn TxnID) (int, bool)
	// NumKeys returns the number of keys with a non-empty queue.
	NumKeys() int
}

// Kind selects a Manager implementation.
type Kind string

const (
	KindExclusive Kind = "exclusive"
	KindShared    Kind = "shared"
)

// New creates the Manager selected by kind, reporting newly runnable transactions to ready.
func New(kind Kind, ready ReadySink) (Manager, error) {
	switch kind {
	case KindExclusive:
		return NewExclusiveManager(ready), nil
	case KindShared:
		return NewSharedManager(ready), nil
	}
	return nil, errors.Errorf("unknown lock manager kind %q", kind)
}
