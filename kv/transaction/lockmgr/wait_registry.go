package lockmgr

type waitEntry struct {
	// pending counts requests which were queued and have not been granted yet.
	pending int
	// refs counts the queue entries the transaction owns across all keys.
	refs int
}

// waitRegistry tracks, per transaction, how many locks it is still waiting for. A transaction without an entry is
// either unknown or a zombie.
type waitRegistry struct {
	entries map[TxnID]*waitEntry
}

func newWaitRegistry() *waitRegistry {
	return &waitRegistry{entries: make(map[TxnID]*waitEntry)}
}

// add registers a new queue entry for txn. Immediate grants keep any outstanding count from earlier requests.
func (r *waitRegistry) add(txn TxnID, granted bool) {
	e, ok := r.entries[txn]
	if !ok {
		e = &waitEntry{}
		r.entries[txn] = e
	}
	e.refs++
	if !granted {
		e.pending++
	}
}

// grant records that one of txn's queued requests became a holder. It returns true exactly when this was the last
// request txn was waiting for. Zombies are ignored.
func (r *waitRegistry) grant(txn TxnID) bool {
	e, ok := r.entries[txn]
	if !ok || e.pending == 0 {
		return false
	}
	e.pending--
	return e.pending == 0
}

// drop records that one of txn's queue entries was removed. The entry goes away with the last queue entry.
func (r *waitRegistry) drop(txn TxnID) {
	e, ok := r.entries[txn]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(r.entries, txn)
	}
}

// forget turns txn into a zombie.
func (r *waitRegistry) forget(txn TxnID) {
	delete(r.entries, txn)
}

func (r *waitRegistry) live(txn TxnID) bool {
	_, ok := r.entries[txn]
	return ok
}

func (r *waitRegistry) count(txn TxnID) (int, bool) {
	e, ok := r.entries[txn]
	if !ok {
		return 0, false
	}
	return e.pending, true
}
