// Copyright 2016 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

package testutil

import (
	"time"

	"github.com/pingcap-incubator/tinycalvin/kv/transaction/lockmgr"
	"github.com/pingcap-incubator/tinycalvin/kv/transaction/txn"
	check "github.com/pingcap/check"
)

const (
	waitMaxRetry   = 200
	waitRetrySleep = time.Millisecond * 10
)

// CheckFunc is a condition checker that passed to WaitUntil. Its implementation
// may call c.Fatal() to abort the test, or c.Log() to add more information.
type CheckFunc func(c *check.C) bool

// WaitUntil repeatly evaluates f() for a period of time, util it returns true.
func WaitUntil(c *check.C, f CheckFunc) {
	c.Log("wait start")
	for i := 0; i < waitMaxRetry; i++ {
		if f(c) {
			return
		}
		time.Sleep(waitRetrySleep)
	}
	c.Fatal("wait timeout")
}

// RecvBatch receives one batch from ch or fails the test after a timeout.
func RecvBatch(c *check.C, ch <-chan []*txn.Txn) []*txn.Txn {
	select {
	case batch, ok := <-ch:
		c.Assert(ok, check.IsTrue)
		return batch
	case <-time.After(waitMaxRetry * waitRetrySleep):
		c.Fatal("no batch received")
	}
	return nil
}

// IDs returns the IDs of txns in order.
func IDs(txns []*txn.Txn) []lockmgr.TxnID {
	ids := make([]lockmgr.TxnID, len(txns))
	for i, t := range txns {
		ids[i] = t.ID
	}
	return ids
}
