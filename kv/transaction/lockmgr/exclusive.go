package lockmgr

// ExclusiveManager grants every lock in exclusive mode, whatever the caller asked for. Readers get no concurrency but
// the queue discipline is strictly FIFO: the head of a key's queue is its only holder.
type ExclusiveManager struct {
	table *lockTable
}

var _ Manager = (*ExclusiveManager)(nil)

// NewExclusiveManager creates an ExclusiveManager which pushes runnable transactions onto ready.
func NewExclusiveManager(ready ReadySink) *ExclusiveManager {
	return &ExclusiveManager{table: newLockTable(ready)}
}

func (m *ExclusiveManager) WriteLock(txn TxnID, key Key) bool {
	return m.table.enqueue(txn, key, Exclusive, func(lockQueue) bool { return false })
}

// ReadLock is the same as WriteLock.
func (m *ExclusiveManager) ReadLock(txn TxnID, key Key) bool {
	return m.WriteLock(txn, key)
}

// Release gives up txn's request on key.
//
// If txn is not the head of the queue its request was never granted, so txn is turned into a zombie: its wait count is
// forgotten and its request removed. Its requests on other keys will be skipped when they reach the head. Otherwise
// txn is the holder: it is popped, zombies which surface at the head are discarded, and the first live request behind
// them becomes the holder.
func (m *ExclusiveManager) Release(txn TxnID, key Key) {
	q := m.table.queues[key]
	if len(q) == 0 {
		return
	}
	if q[0].txn != txn {
		if q.find(txn) < 0 {
			return
		}
		m.table.waits.forget(txn)
		m.table.remove(txn, key)
		return
	}
	m.table.remove(txn, key)
	m.table.popZombies(key)
	m.table.grantHolders(key)
}

func (m *ExclusiveManager) Status(key Key) (LockMode, []TxnID) {
	return m.table.status(key)
}

func (m *ExclusiveManager) WaitCount(txn TxnID) (int, bool) {
	return m.table.waits.count(txn)
}

func (m *ExclusiveManager) NumKeys() int {
	return len(m.table.queues)
}
