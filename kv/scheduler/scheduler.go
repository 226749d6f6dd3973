package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/pingcap-incubator/tinycalvin/kv/config"
	"github.com/pingcap-incubator/tinycalvin/kv/storage"
	"github.com/pingcap-incubator/tinycalvin/kv/transaction/lockmgr"
	"github.com/pingcap-incubator/tinycalvin/kv/transaction/txn"
	"github.com/pingcap/log"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Scheduler runs sequenced transactions under deterministic two-phase locking.
//
// A single goroutine (the one calling Run) owns the lock manager. It requests every lock of each transaction in batch
// order, hands transactions which hold all their locks to a pool of workers, and releases the locks of transactions
// the workers have finished. Because locks are requested in the same order everywhere, every scheduler fed the same
// batches produces the same result as running the transactions one by one in ID order.
type Scheduler struct {
	lm      lockmgr.Manager
	ready   *lockmgr.ReadyQueue
	store   *storage.MemStorage
	workers int

	// active holds admitted transactions which have not finished yet. Only the lock goroutine touches it.
	active map[lockmgr.TxnID]*txn.Txn

	workCh chan *txn.Txn
	doneCh chan *txn.Txn

	admitted  *atomic.Uint64
	committed *atomic.Uint64
	aborted   *atomic.Uint64
}

// Stats counts transactions seen by a Scheduler.
type Stats struct {
	Admitted  uint64
	Committed uint64
	Aborted   uint64
}

func New(cfg *config.Config, store *storage.MemStorage) (*Scheduler, error) {
	ready := lockmgr.NewReadyQueue()
	lm, err := lockmgr.New(cfg.LockManager, ready)
	if err != nil {
		return nil, err
	}
	workers := cfg.Scheduler.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Scheduler{
		lm:        lm,
		ready:     ready,
		store:     store,
		workers:   workers,
		active:    make(map[lockmgr.TxnID]*txn.Txn),
		workCh:    make(chan *txn.Txn),
		doneCh:    make(chan *txn.Txn, workers),
		admitted:  atomic.NewUint64(0),
		committed: atomic.NewUint64(0),
		aborted:   atomic.NewUint64(0),
	}, nil
}

// Stats returns the transaction counters. It is safe to call from any goroutine.
func (s *Scheduler) Stats() Stats {
	return Stats{
		Admitted:  s.admitted.Load(),
		Committed: s.committed.Load(),
		Aborted:   s.aborted.Load(),
	}
}

// Run schedules every batch received from in. It must only be called once. Finished transactions are sent to out, if
// it is not nil, in the order they finish; the caller must keep receiving from out. Run returns nil once in is closed
// and every admitted transaction has finished, or ctx.Err() if ctx is done first.
func (s *Scheduler) Run(ctx context.Context, in <-chan []*txn.Txn, out chan<- *txn.Txn) error {
	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go s.runWorker(&wg)
	}
	defer func() {
		close(s.workCh)
		wg.Wait()
	}()

	log.Info("scheduler started", zap.Int("workers", s.workers))
	for {
		if in == nil && len(s.active) == 0 {
			log.Info("scheduler finished", zap.Uint64("committed", s.committed.Load()),
				zap.Uint64("aborted", s.aborted.Load()))
			return nil
		}

		// Only offer work when some transaction is ready; sending on a nil channel never proceeds.
		var workCh chan *txn.Txn
		var next *txn.Txn
		if id, ok := s.ready.Front(); ok {
			workCh = s.workCh
			next = s.active[id]
		}

		select {
		case <-ctx.Done():
			log.Info("scheduler stopped", zap.Error(ctx.Err()), zap.Int("active", len(s.active)))
			return ctx.Err()
		case batch, ok := <-in:
			if !ok {
				in = nil
				continue
			}
			for _, t := range batch {
				s.admit(t)
			}
		case workCh <- next:
			s.ready.Pop()
			log.Debug("dispatch txn", zap.Uint64("txn", uint64(next.ID)))
		case t := <-s.doneCh:
			s.finish(t)
			if out != nil {
				select {
				case out <- t:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
		readyQueueGauge.Set(float64(s.ready.Len()))
		lockedKeysGauge.Set(float64(s.lm.NumKeys()))
	}
}

// admit requests every lock t needs. If all of them are granted at once t is ready straight away; otherwise the lock
// manager makes it ready when its last lock is granted.
func (s *Scheduler) admit(t *txn.Txn) {
	if _, ok := s.active[t.ID]; ok {
		log.Error("txn admitted twice, ignore it", zap.Uint64("txn", uint64(t.ID)))
		return
	}
	s.active[t.ID] = t
	s.admitted.Inc()

	blocked := 0
	for _, key := range t.WriteSet {
		if !s.lock(t.ID, key, lockmgr.Exclusive) {
			blocked++
		}
	}
	for _, key := range t.ReadSet {
		if !s.lock(t.ID, key, lockmgr.Shared) {
			blocked++
		}
	}
	if blocked == 0 {
		s.ready.Push(t.ID)
	}
}

func (s *Scheduler) lock(id lockmgr.TxnID, key lockmgr.Key, mode lockmgr.LockMode) bool {
	var granted bool
	if mode == lockmgr.Exclusive {
		granted = s.lm.WriteLock(id, key)
	} else {
		granted = s.lm.ReadLock(id, key)
	}
	result := "granted"
	if !granted {
		result = "blocked"
	}
	lockRequestCounter.WithLabelValues(mode.String(), result).Inc()
	return granted
}

func (s *Scheduler) finish(t *txn.Txn) {
	for _, key := range t.Keys() {
		s.lm.Release(t.ID, key)
		lockReleaseCounter.Inc()
	}
	delete(s.active, t.ID)

	txnCounter.WithLabelValues(t.Status.String()).Inc()
	if t.Status == txn.Aborted {
		s.aborted.Inc()
		log.Warn("txn aborted", zap.Uint64("txn", uint64(t.ID)), zap.Error(t.Err))
		return
	}
	s.committed.Inc()
}

func (s *Scheduler) runWorker(wg *sync.WaitGroup) {
	defer wg.Done()
	for t := range s.workCh {
		start := time.Now()
		t.Execute(s.store)
		txnDuration.Observe(time.Since(start).Seconds())
		s.doneCh <- t
	}
}
