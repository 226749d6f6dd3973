package lockmgr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertStatus(t *testing.T, m Manager, key Key, mode LockMode, owners ...TxnID) {
	t.Helper()
	gotMode, gotOwners := m.Status(key)
	assert.Equal(t, mode, gotMode)
	if len(owners) == 0 {
		assert.Empty(t, gotOwners)
	} else {
		assert.Equal(t, owners, gotOwners)
	}
}

func drain(q *ReadyQueue) []TxnID {
	var txns []TxnID
	for {
		txn, ok := q.Pop()
		if !ok {
			return txns
		}
		txns = append(txns, txn)
	}
}

func TestExclusiveHandOff(t *testing.T) {
	ready := NewReadyQueue()
	m := NewExclusiveManager(ready)

	assert.True(t, m.WriteLock(1, "k"))
	assertStatus(t, m, "k", Exclusive, 1)
	assert.False(t, m.WriteLock(2, "k"))
	assertStatus(t, m, "k", Exclusive, 1)
	assert.Equal(t, 0, ready.Len())

	m.Release(1, "k")
	assert.Equal(t, []TxnID{2}, drain(ready))
	assertStatus(t, m, "k", Exclusive, 2)

	m.Release(2, "k")
	assertStatus(t, m, "k", Unlocked)
	assert.Equal(t, 0, m.NumKeys())
}

func TestExclusiveNewKey(t *testing.T) {
	m := NewExclusiveManager(NewReadyQueue())
	assertStatus(t, m, "never-seen", Unlocked)
	assert.True(t, m.WriteLock(7, "never-seen"))
	assertStatus(t, m, "never-seen", Exclusive, 7)
	n, ok := m.WaitCount(7)
	require.True(t, ok)
	assert.Equal(t, 0, n)
}

func TestExclusiveReadLockIsExclusive(t *testing.T) {
	ready := NewReadyQueue()
	m := NewExclusiveManager(ready)

	assert.True(t, m.ReadLock(1, "k"))
	assert.False(t, m.ReadLock(2, "k"))
	assertStatus(t, m, "k", Exclusive, 1)

	m.Release(1, "k")
	assert.Equal(t, []TxnID{2}, drain(ready))
	assertStatus(t, m, "k", Exclusive, 2)
}

func TestExclusiveFIFO(t *testing.T) {
	ready := NewReadyQueue()
	m := NewExclusiveManager(ready)

	assert.True(t, m.WriteLock(1, "k"))
	for txn := TxnID(2); txn <= 5; txn++ {
		assert.False(t, m.WriteLock(txn, "k"))
	}

	var order []TxnID
	holder := TxnID(1)
	for {
		m.Release(holder, "k")
		next, ok := ready.Pop()
		if !ok {
			break
		}
		order = append(order, next)
		assertStatus(t, m, "k", Exclusive, next)
		holder = next
	}
	assert.Equal(t, []TxnID{2, 3, 4, 5}, order)
	assert.Equal(t, 0, m.NumKeys())
}

func TestExclusiveReleaseWhileQueued(t *testing.T) {
	ready := NewReadyQueue()
	m := NewExclusiveManager(ready)

	assert.True(t, m.WriteLock(1, "k"))
	assert.False(t, m.WriteLock(2, "k"))
	n, ok := m.WaitCount(2)
	require.True(t, ok)
	assert.Equal(t, 1, n)

	// 2 aborts before it is granted.
	m.Release(2, "k")
	_, ok = m.WaitCount(2)
	assert.False(t, ok)
	assertStatus(t, m, "k", Exclusive, 1)

	m.Release(1, "k")
	assertStatus(t, m, "k", Unlocked)
	assert.Equal(t, 0, m.NumKeys())
	assert.Equal(t, 0, ready.Len())
}

func TestExclusiveZombieSkipped(t *testing.T) {
	ready := NewReadyQueue()
	m := NewExclusiveManager(ready)

	// 2 waits on both a and b, 3 waits on b behind 2.
	assert.True(t, m.WriteLock(1, "a"))
	assert.True(t, m.WriteLock(1, "b"))
	assert.False(t, m.WriteLock(2, "a"))
	assert.False(t, m.WriteLock(2, "b"))
	assert.False(t, m.WriteLock(3, "b"))

	// 2 gives up a while queued, leaving a zombie request on b.
	m.Release(2, "a")
	m.Release(1, "a")
	assertStatus(t, m, "a", Unlocked)

	m.Release(1, "b")
	assert.Equal(t, []TxnID{3}, drain(ready))
	assertStatus(t, m, "b", Exclusive, 3)

	m.Release(3, "b")
	assert.Equal(t, 0, m.NumKeys())
	assert.Equal(t, 0, ready.Len())
}

func TestExclusiveWaitsOnSeveralKeys(t *testing.T) {
	ready := NewReadyQueue()
	m := NewExclusiveManager(ready)

	assert.True(t, m.WriteLock(1, "a"))
	assert.True(t, m.WriteLock(2, "b"))
	assert.False(t, m.WriteLock(3, "a"))
	assert.False(t, m.WriteLock(3, "b"))
	assert.True(t, m.WriteLock(3, "c"))
	n, _ := m.WaitCount(3)
	assert.Equal(t, 2, n)

	m.Release(1, "a")
	assert.Equal(t, 0, ready.Len())
	n, _ = m.WaitCount(3)
	assert.Equal(t, 1, n)

	m.Release(2, "b")
	assert.Equal(t, []TxnID{3}, drain(ready))
	n, _ = m.WaitCount(3)
	assert.Equal(t, 0, n)
}

func TestExclusiveIdempotentRelease(t *testing.T) {
	ready := NewReadyQueue()
	m := NewExclusiveManager(ready)

	assert.True(t, m.WriteLock(1, "k"))
	assert.False(t, m.WriteLock(2, "k"))
	assert.True(t, m.WriteLock(2, "other"))

	m.Release(1, "k")
	m.Release(1, "k")
	assert.Equal(t, []TxnID{2}, drain(ready))
	assertStatus(t, m, "k", Exclusive, 2)
	// A second release by a former holder must not turn the current holder into a zombie.
	_, ok := m.WaitCount(2)
	assert.True(t, ok)

	m.Release(2, "k")
	m.Release(2, "k")
	assertStatus(t, m, "k", Unlocked)
	m.Release(2, "other")
	m.Release(2, "other")
	assert.Equal(t, 0, m.NumKeys())
	_, ok = m.WaitCount(2)
	assert.False(t, ok)
}

func TestExclusiveReleaseUnknown(t *testing.T) {
	m := NewExclusiveManager(NewReadyQueue())
	m.Release(1, "missing")
	assert.True(t, m.WriteLock(1, "k"))
	m.Release(9, "k")
	assertStatus(t, m, "k", Exclusive, 1)
	_, ok := m.WaitCount(9)
	assert.False(t, ok)
}
