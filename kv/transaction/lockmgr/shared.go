package lockmgr

// SharedManager distinguishes shared and exclusive locks, so any number of readers can hold a key together.
//
// Granting is not strictly FIFO: a shared request is granted at once unless some exclusive request, held or queued,
// is anywhere in the key's queue. It never overtakes an earlier exclusive request but does not wait behind other
// shared requests either.
type SharedManager struct {
	table *lockTable
}

var _ Manager = (*SharedManager)(nil)

// NewSharedManager creates a SharedManager which pushes runnable transactions onto ready.
func NewSharedManager(ready ReadySink) *SharedManager {
	return &SharedManager{table: newLockTable(ready)}
}

func (m *SharedManager) WriteLock(txn TxnID, key Key) bool {
	return m.table.enqueue(txn, key, Exclusive, func(lockQueue) bool { return false })
}

func (m *SharedManager) ReadLock(txn TxnID, key Key) bool {
	return m.table.enqueue(txn, key, Shared, func(q lockQueue) bool { return !q.hasExclusive() })
}

// Release removes txn's request on key wherever it is in the queue, then grants the lock to every request which has
// become a holder. A shared holder may release before the holders ahead of it; a queued request may be released
// before it is ever granted.
func (m *SharedManager) Release(txn TxnID, key Key) {
	if !m.table.remove(txn, key) {
		return
	}
	m.table.grantHolders(key)
}

func (m *SharedManager) Status(key Key) (LockMode, []TxnID) {
	return m.table.status(key)
}

func (m *SharedManager) WaitCount(txn TxnID) (int, bool) {
	return m.table.waits.count(txn)
}

func (m *SharedManager) NumKeys() int {
	return len(m.table.queues)
}
