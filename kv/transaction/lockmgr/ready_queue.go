package lockmgr

// ReadyQueue is a FIFO of runnable transactions. It implements ReadySink; the owner consumes it with Pop.
type ReadyQueue struct {
	txns []TxnID
}

// NewReadyQueue creates an empty ReadyQueue.
func NewReadyQueue() *ReadyQueue {
	return &ReadyQueue{}
}

func (q *ReadyQueue) Push(txn TxnID) {
	q.txns = append(q.txns, txn)
}

// Front returns the oldest transaction without removing it.
func (q *ReadyQueue) Front() (TxnID, bool) {
	if len(q.txns) == 0 {
		return 0, false
	}
	return q.txns[0], true
}

// Pop removes and returns the oldest transaction.
func (q *ReadyQueue) Pop() (TxnID, bool) {
	if len(q.txns) == 0 {
		return 0, false
	}
	txn := q.txns[0]
	q.txns[0] = 0
	q.txns = q.txns[1:]
	return txn, true
}

func (q *ReadyQueue) Len() int {
	return len(q.txns)
}
