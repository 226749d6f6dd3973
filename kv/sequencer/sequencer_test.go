package sequencer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pingcap-incubator/tinycalvin/kv/testutil"
	"github.com/pingcap-incubator/tinycalvin/kv/transaction/lockmgr"
	"github.com/pingcap-incubator/tinycalvin/kv/transaction/txn"
	. "github.com/pingcap/check"
)

func TestSequencer(t *testing.T) {
	TestingT(t)
}

var _ = Suite(&testSequencerSuite{})

type testSequencerSuite struct{}

func newTxn() *txn.Txn {
	return txn.New(nil, []lockmgr.Key{"k"}, nil)
}

func (s *testSequencerSuite) TestMaxBatch(c *C) {
	seq := New(time.Hour, 3)
	for i := 0; i < 7; i++ {
		id, ok := seq.Submit(newTxn())
		c.Assert(ok, IsTrue)
		c.Assert(id, Equals, lockmgr.TxnID(i+1))
	}
	c.Assert(testutil.IDs(testutil.RecvBatch(c, seq.Batches())), DeepEquals, []lockmgr.TxnID{1, 2, 3})
	c.Assert(testutil.IDs(testutil.RecvBatch(c, seq.Batches())), DeepEquals, []lockmgr.TxnID{4, 5, 6})

	seq.Close()
	c.Assert(testutil.IDs(testutil.RecvBatch(c, seq.Batches())), DeepEquals, []lockmgr.TxnID{7})
	_, ok := <-seq.Batches()
	c.Assert(ok, IsFalse)

	_, ok = seq.Submit(newTxn())
	c.Assert(ok, IsFalse)
	seq.Close()
}

func (s *testSequencerSuite) TestEpoch(c *C) {
	seq := New(5*time.Millisecond, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seq.Submit(newTxn())
	seq.Submit(newTxn())
	go seq.Run(ctx)
	c.Assert(testutil.IDs(testutil.RecvBatch(c, seq.Batches())), DeepEquals, []lockmgr.TxnID{1, 2})

	seq.Submit(newTxn())
	c.Assert(testutil.IDs(testutil.RecvBatch(c, seq.Batches())), DeepEquals, []lockmgr.TxnID{3})
	seq.Close()
}

func (s *testSequencerSuite) TestConcurrentSubmitKeepsOrder(c *C) {
	seq := New(time.Millisecond, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go seq.Run(ctx)

	var received []lockmgr.TxnID
	done := make(chan struct{})
	go func() {
		for batch := range seq.Batches() {
			received = append(received, testutil.IDs(batch)...)
		}
		close(done)
	}()

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				seq.Submit(newTxn())
			}
		}()
	}
	wg.Wait()
	seq.Close()
	<-done

	c.Assert(received, HasLen, 200)
	for i, id := range received {
		c.Assert(id, Equals, lockmgr.TxnID(i+1))
	}
}
