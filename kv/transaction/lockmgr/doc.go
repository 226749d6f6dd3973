package lockmgr

// The lockmgr package implements the lock table for deterministic two-phase locking. Every transaction requests all the
// locks it will ever need before it executes, in an order that all replicas agree on (see the sequencer package), and
// releases them only after it has finished. Since acquisition order is fixed in advance there is no deadlock detection:
// requests which cannot be granted simply wait in a per-key FIFO queue.
//
// A Manager decides, for each key, which transactions hold access and which are queued. Each call to WriteLock or
// ReadLock reports whether that one lock was granted immediately. Requests which were not granted are counted against
// the transaction (its wait count); when a Release lets the transaction become a holder its count is decremented, and
// when the count reaches zero the transaction is pushed onto the ReadySink given at construction. The manager never
// reads the sink back.
//
// There are two managers with the same contract:
//
// * ExclusiveManager treats every lock as exclusive. Only the head of a key's queue holds the lock.
// * SharedManager distinguishes shared and exclusive locks. The holders of a key are either the exclusive request at
//   the head of its queue, or the run of shared requests at the front of the queue. A new shared request waits if there
//   is an exclusive request anywhere in the queue, so readers never overtake an earlier writer.
//
// A transaction which releases a key while its request is still queued (e.g., because it aborted) has its request
// removed. ExclusiveManager also forgets the transaction's wait count, turning any of its other queued requests into
// zombies which are discarded, never granted, when they reach the head of their queue.
//
// Managers are not safe for concurrent use. All calls against one manager must come from a single goroutine, which is
// how the scheduler package drives it.
