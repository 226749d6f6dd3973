package lockmgr

// lockRequest is one transaction's request on one key.
type lockRequest struct {
	mode    LockMode
	txn     TxnID
	granted bool
}

// lockQueue holds a key's requests in request order. The holders are the exclusive request at the front, or the run
// of shared requests at the front; everything after them is waiting.
type lockQueue []lockRequest

func (q lockQueue) find(txn TxnID) int {
	for i := range q {
		if q[i].txn == txn {
			return i
		}
	}
	return -1
}

func (q lockQueue) hasExclusive() bool {
	for i := range q {
		if q[i].mode == Exclusive {
			return true
		}
	}
	return false
}

// holders returns the number of requests at the front of q which hold the lock.
func (q lockQueue) holders() int {
	if len(q) == 0 {
		return 0
	}
	if q[0].mode == Exclusive {
		return 1
	}
	n := 0
	for n < len(q) && q[n].mode == Shared {
		n++
	}
	return n
}

// lockTable maps keys to their queues and keeps the wait counts of the transactions in them. A key without a queue
// is unlocked; queues are deleted as soon as they become empty.
type lockTable struct {
	queues map[Key]lockQueue
	waits  *waitRegistry
	ready  ReadySink
}

func newLockTable(ready ReadySink) *lockTable {
	return &lockTable{
		queues: make(map[Key]lockQueue),
		waits:  newWaitRegistry(),
		ready:  ready,
	}
}

// enqueue appends a request and registers it with the wait counts. compatible decides, given the queue before the
// append, whether the new request is granted straight away. A request on an empty queue is always granted.
func (t *lockTable) enqueue(txn TxnID, key Key, mode LockMode, compatible func(lockQueue) bool) bool {
	q := t.queues[key]
	granted := len(q) == 0 || compatible(q)
	t.queues[key] = append(q, lockRequest{mode: mode, txn: txn, granted: granted})
	t.waits.add(txn, granted)
	return granted
}

// remove deletes txn's request from key's queue and reports whether there was one.
func (t *lockTable) remove(txn TxnID, key Key) bool {
	q := t.queues[key]
	i := q.find(txn)
	if i < 0 {
		return false
	}
	q = append(q[:i], q[i+1:]...)
	t.store(key, q)
	t.waits.drop(txn)
	return true
}

// popZombies discards requests at the front of key's queue whose transaction is no longer registered.
func (t *lockTable) popZombies(key Key) {
	q := t.queues[key]
	n := 0
	for n < len(q) && !t.waits.live(q[n].txn) {
		n++
	}
	if n > 0 {
		t.store(key, q[n:])
	}
}

// grantHolders recomputes key's holders and grants each one which was still waiting. Transactions whose last wait
// ends here are pushed onto the ready sink in queue order.
func (t *lockTable) grantHolders(key Key) {
	q := t.queues[key]
	for i, n := 0, q.holders(); i < n; i++ {
		if q[i].granted {
			continue
		}
		q[i].granted = true
		if t.waits.grant(q[i].txn) {
			t.ready.Push(q[i].txn)
		}
	}
}

func (t *lockTable) status(key Key) (LockMode, []TxnID) {
	q := t.queues[key]
	n := q.holders()
	if n == 0 {
		return Unlocked, nil
	}
	owners := make([]TxnID, n)
	for i := range owners {
		owners[i] = q[i].txn
	}
	return q[0].mode, owners
}

func (t *lockTable) store(key Key, q lockQueue) {
	if len(q) == 0 {
		delete(t.queues, key)
		return
	}
	t.queues[key] = q
}
