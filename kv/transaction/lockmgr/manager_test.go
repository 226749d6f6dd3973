package lockmgr

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	m, err := New(KindExclusive, NewReadyQueue())
	require.NoError(t, err)
	assert.IsType(t, &ExclusiveManager{}, m)

	m, err = New(KindShared, NewReadyQueue())
	require.NoError(t, err)
	assert.IsType(t, &SharedManager{}, m)

	_, err = New("optimistic", NewReadyQueue())
	assert.Error(t, err)
}

func TestLockModeString(t *testing.T) {
	assert.Equal(t, "unlocked", Unlocked.String())
	assert.Equal(t, "shared", Shared.String())
	assert.Equal(t, "exclusive", Exclusive.String())
	assert.Equal(t, "LockMode(7)", LockMode(7).String())
}

type access struct {
	key  Key
	mode LockMode
}

type simTxn struct {
	id       TxnID
	accesses []access
	aborted  bool
}

// simulate drives m the way the scheduler does: transactions lock everything in admission order, run once they are
// ready and then release everything. Some transactions abort while still queued. After every call it checks that the
// holders of each key are compatible.
func simulate(t *testing.T, kind Kind, seed int64) {
	rnd := rand.New(rand.NewSource(seed))
	ready := NewReadyQueue()
	m, err := New(kind, ready)
	require.NoError(t, err)

	keys := make([]Key, 8)
	for i := range keys {
		keys[i] = Key(fmt.Sprintf("k%d", i))
	}

	txns := make(map[TxnID]*simTxn)
	var waiting []TxnID
	ran := make(map[TxnID]int)
	next := TxnID(1)

	checkKeys := func() {
		for _, key := range keys {
			mode, owners := m.Status(key)
			switch mode {
			case Unlocked:
				assert.Empty(t, owners)
			case Exclusive:
				assert.Len(t, owners, 1)
			case Shared:
				require.Equal(t, KindShared, kind)
				for _, owner := range owners {
					for _, a := range txns[owner].accesses {
						if a.key == key {
							assert.Equal(t, Shared, a.mode)
						}
					}
				}
			}
		}
	}

	releaseAll := func(txn *simTxn) {
		for _, a := range txn.accesses {
			m.Release(txn.id, a.key)
			checkKeys()
		}
	}

	run := func(id TxnID) {
		txn := txns[id]
		ran[id]++
		for _, a := range txn.accesses {
			_, owners := m.Status(a.key)
			assert.Contains(t, owners, id, "txn %d runs without holding %s", id, a.key)
		}
		releaseAll(txn)
	}

	admit := func() {
		txn := &simTxn{id: next}
		next++
		for _, i := range rnd.Perm(len(keys))[:1+rnd.Intn(3)] {
			mode := Exclusive
			if rnd.Intn(2) == 0 {
				mode = Shared
			}
			txn.accesses = append(txn.accesses, access{key: keys[i], mode: mode})
		}
		txns[txn.id] = txn
		blocked := 0
		for _, a := range txn.accesses {
			var granted bool
			if a.mode == Exclusive {
				granted = m.WriteLock(txn.id, a.key)
			} else {
				granted = m.ReadLock(txn.id, a.key)
			}
			if !granted {
				blocked++
			}
			checkKeys()
		}
		if blocked == 0 {
			run(txn.id)
			return
		}
		n, ok := m.WaitCount(txn.id)
		require.True(t, ok)
		require.Equal(t, blocked, n)
		waiting = append(waiting, txn.id)
	}

	for step := 0; step < 400; step++ {
		switch {
		case rnd.Intn(3) > 0:
			admit()
		case ready.Len() > 0:
			id, _ := ready.Pop()
			run(id)
		case len(waiting) > 0 && rnd.Intn(10) == 0:
			i := rnd.Intn(len(waiting))
			txn := txns[waiting[i]]
			if n, ok := m.WaitCount(txn.id); ok && n > 0 {
				txn.aborted = true
				releaseAll(txn)
			}
		}
	}
	for ready.Len() > 0 {
		id, _ := ready.Pop()
		run(id)
	}

	for id, txn := range txns {
		if txn.aborted {
			assert.Equal(t, 0, ran[id], "aborted txn %d ran", id)
		} else {
			assert.Equal(t, 1, ran[id], "txn %d ran %d times", id, ran[id])
		}
		_, ok := m.WaitCount(id)
		assert.False(t, ok)
	}
	assert.Equal(t, 0, m.NumKeys())
}

func TestManagersRandomized(t *testing.T) {
	for _, kind := range []Kind{KindExclusive, KindShared} {
		for seed := int64(0); seed < 20; seed++ {
			t.Run(fmt.Sprintf("%s/%d", kind, seed), func(t *testing.T) {
				simulate(t, kind, seed)
			})
		}
	}
}
