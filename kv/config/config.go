package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pingcap-incubator/tinycalvin/kv/transaction/lockmgr"
	"github.com/pingcap-incubator/tinycalvin/kv/util/typeutil"
	"github.com/pingcap-incubator/tinycalvin/kv/workload"
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	// LockManager is "exclusive" or "shared".
	LockManager lockmgr.Kind `toml:"lock-manager" json:"lock-manager"`
	// MetricsAddr serves prometheus metrics when not empty.
	MetricsAddr string `toml:"metrics-addr" json:"metrics-addr"`

	Log       log.Config      `toml:"log" json:"log"`
	Scheduler SchedulerConfig `toml:"scheduler" json:"scheduler"`
	Sequencer SequencerConfig `toml:"sequencer" json:"sequencer"`
	Workload  WorkloadConfig  `toml:"workload" json:"workload"`

	// For all warnings during parsing.
	WarningMsgs []string `toml:"-" json:"-"`

	logger   *zap.Logger
	logProps *log.ZapProperties
}

type SchedulerConfig struct {
	// Workers is the number of goroutines executing transactions.
	Workers int `toml:"workers" json:"workers"`
}

type SequencerConfig struct {
	// Epoch is how often a batch is cut.
	Epoch typeutil.Duration `toml:"epoch" json:"epoch"`
	// MaxBatch cuts a batch early once it has this many transactions.
	MaxBatch int `toml:"max-batch" json:"max-batch"`
}

type WorkloadConfig struct {
	workload.MicroConfig
	// Txns is the number of transactions to run.
	Txns int `toml:"txns" json:"txns"`
}

const (
	defaultLockManager = lockmgr.KindShared
	defaultLogLevel    = "info"
	defaultWorkers     = 4
	defaultEpoch       = 10 * time.Millisecond
	defaultMaxBatch    = 1000

	defaultRecords    = 1000000
	defaultHotRecords = 100
	defaultTxnSize    = 10
	defaultTxns       = 100000
	defaultSeed       = 1
)

func getLogLevel() (logLevel string) {
	logLevel = defaultLogLevel
	if l := os.Getenv("LOG_LEVEL"); len(l) != 0 {
		logLevel = l
	}
	return
}

func NewDefaultConfig() *Config {
	cfg := &Config{}
	cfg.Log.Level = getLogLevel()
	if err := cfg.Adjust(nil); err != nil {
		panic(err)
	}
	return cfg
}

func NewTestConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.Sequencer.Epoch = typeutil.NewDuration(time.Millisecond)
	cfg.Workload.Records = 1000
	cfg.Workload.HotRecords = 10
	cfg.Workload.TxnSize = 4
	cfg.Workload.Txns = 500
	return cfg
}

// FromFile loads path over the defaults.
func FromFile(path string) (*Config, error) {
	cfg := &Config{}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, errors.Annotatef(err, "load config %s", path)
	}
	if err := cfg.Adjust(&meta); err != nil {
		return nil, err
	}
	return cfg, nil
}

func adjustString(v *string, defValue string) {
	if len(*v) == 0 {
		*v = defValue
	}
}

func adjustInt(v *int, defValue int) {
	if *v == 0 {
		*v = defValue
	}
}

func adjustInt64(v *int64, defValue int64) {
	if *v == 0 {
		*v = defValue
	}
}

func adjustDuration(v *typeutil.Duration, defValue time.Duration) {
	if v.Duration == 0 {
		v.Duration = defValue
	}
}

// Adjust fills in defaults for everything left unset. meta may be nil.
func (c *Config) Adjust(meta *toml.MetaData) error {
	if meta != nil {
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			errInfo := "Config contains undefined item: "
			for i, key := range undecoded {
				if i > 0 {
					errInfo += ", "
				}
				errInfo += key.String()
			}
			c.WarningMsgs = append(c.WarningMsgs, errInfo)
		}
	}

	if c.LockManager == "" {
		c.LockManager = defaultLockManager
	}
	adjustString(&c.Log.Level, defaultLogLevel)
	adjustInt(&c.Scheduler.Workers, defaultWorkers)
	adjustDuration(&c.Sequencer.Epoch, defaultEpoch)
	adjustInt(&c.Sequencer.MaxBatch, defaultMaxBatch)
	adjustInt(&c.Workload.Records, defaultRecords)
	adjustInt(&c.Workload.HotRecords, defaultHotRecords)
	adjustInt(&c.Workload.TxnSize, defaultTxnSize)
	adjustInt(&c.Workload.Txns, defaultTxns)
	adjustInt64(&c.Workload.Seed, defaultSeed)
	return c.Validate()
}

// Validate is used to validate if some configurations are right.
func (c *Config) Validate() error {
	switch c.LockManager {
	case lockmgr.KindExclusive, lockmgr.KindShared:
	default:
		return errors.Errorf("lock-manager must be %q or %q, got %q", lockmgr.KindExclusive, lockmgr.KindShared, c.LockManager)
	}
	if c.Scheduler.Workers < 0 {
		return errors.Errorf("scheduler workers must not be negative, got %d", c.Scheduler.Workers)
	}
	if c.Sequencer.Epoch.Duration < 0 {
		return errors.Errorf("sequencer epoch must not be negative, got %v", c.Sequencer.Epoch.Duration)
	}
	if c.Sequencer.MaxBatch < 0 {
		return errors.Errorf("sequencer max-batch must not be negative, got %d", c.Sequencer.MaxBatch)
	}
	if c.Workload.Txns < 0 {
		return errors.Errorf("workload txns must not be negative, got %d", c.Workload.Txns)
	}
	return c.Workload.Validate()
}

// SetupLogger setup the logger.
func (c *Config) SetupLogger() error {
	lg, p, err := log.InitLogger(&c.Log, zap.AddStacktrace(zapcore.FatalLevel))
	if err != nil {
		return err
	}
	c.logger = lg
	c.logProps = p
	return nil
}

// GetZapLogger gets the created zap logger.
func (c *Config) GetZapLogger() *zap.Logger {
	return c.logger
}

// GetZapLogProperties gets properties of the zap logger.
func (c *Config) GetZapLogProperties() *log.ZapProperties {
	return c.logProps
}

func (c *Config) String() string {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "<nil>"
	}
	return string(data)
}
