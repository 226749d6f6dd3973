package workload

import (
	"encoding/binary"
	"fmt"
	"math/rand"

	"github.com/pingcap-incubator/tinycalvin/kv/storage"
	"github.com/pingcap-incubator/tinycalvin/kv/transaction/lockmgr"
	"github.com/pingcap-incubator/tinycalvin/kv/transaction/txn"
	"github.com/pingcap/errors"
)

// MicroConfig describes a microbenchmark. Records [0, HotRecords) form the hot set; every transaction touches exactly
// one hot record, so HotRecords controls contention.
type MicroConfig struct {
	Records       int     `toml:"records" json:"records"`
	HotRecords    int     `toml:"hot-records" json:"hot-records"`
	TxnSize       int     `toml:"txn-size" json:"txn-size"`
	ReadOnlyRatio float64 `toml:"read-only-ratio" json:"read-only-ratio"`
	Seed          int64   `toml:"seed" json:"seed"`
}

// Validate checks that the workload can be generated.
func (c *MicroConfig) Validate() error {
	if c.HotRecords <= 0 || c.HotRecords >= c.Records {
		return errors.Errorf("hot-records must be in (0, %d), got %d", c.Records, c.HotRecords)
	}
	if c.TxnSize <= 0 || c.TxnSize-1 > c.Records-c.HotRecords {
		return errors.Errorf("txn-size %d does not fit %d cold records", c.TxnSize, c.Records-c.HotRecords)
	}
	if c.ReadOnlyRatio < 0 || c.ReadOnlyRatio > 1 {
		return errors.Errorf("read-only-ratio must be in [0, 1], got %v", c.ReadOnlyRatio)
	}
	return nil
}

// Micro generates microbenchmark transactions. Read-write transactions increment every record they touch; read-only
// transactions read them. The sequence of transactions only depends on the seed.
type Micro struct {
	cfg MicroConfig
	rnd *rand.Rand
}

func NewMicro(cfg MicroConfig) (*Micro, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Micro{cfg: cfg, rnd: rand.New(rand.NewSource(cfg.Seed))}, nil
}

// RecordKey returns the key of record i.
func RecordKey(i int) lockmgr.Key {
	return lockmgr.Key(fmt.Sprintf("record%08d", i))
}

// Load writes every record with a zero counter.
func (m *Micro) Load(store *storage.MemStorage) {
	batch := make([]storage.Modify, 0, m.cfg.Records)
	for i := 0; i < m.cfg.Records; i++ {
		batch = append(batch, storage.Modify{Data: storage.Put{Key: RecordKey(i), Value: EncodeCounter(0)}})
	}
	store.Write(batch)
}

// Next returns the next transaction. Its ID is left for the sequencer to assign.
func (m *Micro) Next() *txn.Txn {
	keys := make([]lockmgr.Key, 0, m.cfg.TxnSize)
	keys = append(keys, RecordKey(m.rnd.Intn(m.cfg.HotRecords)))
	cold := m.cfg.Records - m.cfg.HotRecords
	picked := make(map[int]struct{}, m.cfg.TxnSize)
	for len(keys) < m.cfg.TxnSize {
		i := m.cfg.HotRecords + m.rnd.Intn(cold)
		if _, ok := picked[i]; ok {
			continue
		}
		picked[i] = struct{}{}
		keys = append(keys, RecordKey(i))
	}
	if m.rnd.Float64() < m.cfg.ReadOnlyRatio {
		return txn.New(keys, nil, readAll(keys))
	}
	return txn.New(nil, keys, incrementAll(keys))
}

func readAll(keys []lockmgr.Key) txn.Logic {
	return func(ctx *txn.Context) error {
		for _, key := range keys {
			if _, ok, err := ctx.Get(key); err != nil {
				return err
			} else if !ok {
				return errors.Errorf("record %s is missing", key)
			}
		}
		return nil
	}
}

func incrementAll(keys []lockmgr.Key) txn.Logic {
	return func(ctx *txn.Context) error {
		for _, key := range keys {
			value, ok, err := ctx.Get(key)
			if err != nil {
				return err
			}
			if !ok {
				return errors.Errorf("record %s is missing", key)
			}
			if err := ctx.Put(key, EncodeCounter(DecodeCounter(value)+1)); err != nil {
				return err
			}
		}
		return nil
	}
}

func EncodeCounter(n uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, n)
	return buf
}

func DecodeCounter(buf []byte) uint64 {
	if len(buf) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(buf)
}
