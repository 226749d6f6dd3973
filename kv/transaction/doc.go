package transaction

// The transaction package implements tinycalvin's transaction layer. Transactions arrive with their read and write sets
// already known, are given a global order by the sequencer (kv/sequencer), and are run by the scheduler (kv/scheduler)
// under deterministic two-phase locking: every lock is requested before the transaction runs, in sequence order, and
// every lock is released after it finishes. Since all replicas lock in the same order they all reach the same state
// without exchanging anything but the sequence itself, and no deadlock can form.
//
// Within this package, `txn` contains the transaction object: its ID, its declared keys, its logic and the context the
// logic runs in. Writes made through the context are buffered and applied to storage only if the logic succeeds, so an
// aborted transaction leaves no trace. `lockmgr` contains the lock table which decides which transactions hold which
// keys and reports transactions which hold everything they asked for. The lock table only ever sees a transaction's
// ID, never the transaction itself.
//
// ## Lock managers
//
// There are two lock managers. The exclusive manager grants every lock in exclusive mode and hands a key over in strict
// FIFO order. The shared manager lets readers hold a key together but never lets a reader overtake an earlier writer.
// The scheduler picks one from the `lock-manager` config item; both have the same interface.
