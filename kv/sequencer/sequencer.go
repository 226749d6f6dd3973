package sequencer

import (
	"context"
	"sync"
	"time"

	"github.com/pingcap-incubator/tinycalvin/kv/transaction/lockmgr"
	"github.com/pingcap-incubator/tinycalvin/kv/transaction/txn"
	"github.com/pingcap/log"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Sequencer fixes the global order of transactions. Each submitted transaction gets the next ID, and transactions are
// cut into batches once per epoch (or when a batch is full). Batches are delivered in ID order, and every scheduler fed
// from the same batches locks keys in the same order.
type Sequencer struct {
	epoch    time.Duration
	maxBatch int

	nextID *atomic.Uint64
	closed *atomic.Bool

	mu      sync.Mutex
	current []*txn.Txn

	batchCh   chan []*txn.Txn
	closeOnce sync.Once
}

// New creates a Sequencer. maxBatch <= 0 means batches are only cut by the epoch timer.
func New(epoch time.Duration, maxBatch int) *Sequencer {
	return &Sequencer{
		epoch:    epoch,
		maxBatch: maxBatch,
		nextID:   atomic.NewUint64(0),
		closed:   atomic.NewBool(false),
		batchCh:  make(chan []*txn.Txn, 16),
	}
}

// Batches returns the channel batches are delivered on. It is closed by Close.
func (s *Sequencer) Batches() <-chan []*txn.Txn {
	return s.batchCh
}

// Submit assigns t the next ID and adds it to the current batch. It returns false if the sequencer is closed.
func (s *Sequencer) Submit(t *txn.Txn) (lockmgr.TxnID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return 0, false
	}
	// IDs are assigned under mu so that batch order and ID order agree.
	t.ID = lockmgr.TxnID(s.nextID.Inc())
	s.current = append(s.current, t)
	if s.maxBatch > 0 && len(s.current) >= s.maxBatch {
		s.flushLocked()
	}
	return t.ID, true
}

// Run cuts a batch every epoch until ctx is done or the sequencer is closed.
func (s *Sequencer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.epoch)
	defer ticker.Stop()
	log.Info("sequencer started", zap.Duration("epoch", s.epoch), zap.Int("max-batch", s.maxBatch))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.closed.Load() {
				s.mu.Unlock()
				return
			}
			s.flushLocked()
			s.mu.Unlock()
		}
	}
}

// Close delivers the last batch and closes the batch channel. Later submissions are rejected.
func (s *Sequencer) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.flushLocked()
		s.closed.Store(true)
		close(s.batchCh)
		log.Info("sequencer closed", zap.Uint64("last-txn", s.nextID.Load()))
	})
}

func (s *Sequencer) flushLocked() {
	if len(s.current) == 0 {
		return
	}
	batch := s.current
	s.current = nil
	log.Debug("cut batch", zap.Uint64("first-txn", uint64(batch[0].ID)), zap.Int("size", len(batch)))
	s.batchCh <- batch
}
