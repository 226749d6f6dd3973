package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pingcap-incubator/tinycalvin/kv/config"
	"github.com/pingcap-incubator/tinycalvin/kv/scheduler"
	"github.com/pingcap-incubator/tinycalvin/kv/sequencer"
	"github.com/pingcap-incubator/tinycalvin/kv/storage"
	"github.com/pingcap-incubator/tinycalvin/kv/transaction/lockmgr"
	"github.com/pingcap-incubator/tinycalvin/kv/workload"
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	configPath  string
	lockManager string
	workers     int
	txns        int
	logLevel    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "calvin-bench",
		Short: "Run a deterministic locking microbenchmark",
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.AddCommand(
		newRunCommand(),
		newConfigCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(rootCmd.UsageString())
		os.Exit(1)
	}
}

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the workload through the sequencer and scheduler",
		Args:  cobra.NoArgs,
		RunE:  runCommandFunc,
	}
	cmd.Flags().StringVar(&lockManager, "lock-manager", "", "lock manager, exclusive or shared")
	cmd.Flags().IntVar(&workers, "workers", 0, "number of executor goroutines")
	cmd.Flags().IntVar(&txns, "txns", 0, "number of transactions to run")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "log level")
	return cmd
}

func newConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return errors.Trace(toml.NewEncoder(os.Stdout).Encode(cfg))
		},
	}
}

func loadConfig() (*config.Config, error) {
	cfg := config.NewDefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = config.FromFile(configPath); err != nil {
			return nil, err
		}
	}
	if lockManager != "" {
		cfg.LockManager = lockmgr.Kind(lockManager)
	}
	if workers != 0 {
		cfg.Scheduler.Workers = workers
	}
	if txns != 0 {
		cfg.Workload.Txns = txns
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, cfg.Validate()
}

func runCommandFunc(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err = cfg.SetupLogger(); err != nil {
		return err
	}
	log.ReplaceGlobals(cfg.GetZapLogger(), cfg.GetZapLogProperties())
	defer log.Sync()
	for _, msg := range cfg.WarningMsgs {
		log.Warn(msg)
	}
	log.Info("config", zap.Stringer("config", cfg))

	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			log.Info("serving metrics", zap.String("addr", cfg.MetricsAddr))
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				log.Error("metrics server stopped", zap.Error(err))
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handleSignal(cancel)

	gen, err := workload.NewMicro(cfg.Workload.MicroConfig)
	if err != nil {
		return err
	}
	store := storage.NewMemStorage()
	gen.Load(store)
	log.Info("workload loaded", zap.Int("records", store.Len()))

	sched, err := scheduler.New(cfg, store)
	if err != nil {
		return err
	}
	seq := sequencer.New(cfg.Sequencer.Epoch.Duration, cfg.Sequencer.MaxBatch)

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		seq.Run(gctx)
		return nil
	})
	g.Go(func() error {
		defer seq.Close()
		for i := 0; i < cfg.Workload.Txns; i++ {
			if gctx.Err() != nil {
				return nil
			}
			seq.Submit(gen.Next())
		}
		return nil
	})
	g.Go(func() error {
		err := sched.Run(gctx, seq.Batches(), nil)
		// Nobody schedules batches any more, so keep the sequencer from blocking until it is closed.
		go func() {
			for range seq.Batches() {
			}
		}()
		// Stop the epoch ticker once everything has run.
		cancel()
		return err
	})
	err = g.Wait()
	elapsed := time.Since(start)

	stats := sched.Stats()
	fmt.Printf("lock manager: %s\n", cfg.LockManager)
	fmt.Printf("txns: %d committed, %d aborted in %v\n", stats.Committed, stats.Aborted, elapsed)
	if elapsed > 0 {
		fmt.Printf("throughput: %.0f txn/s\n", float64(stats.Committed+stats.Aborted)/elapsed.Seconds())
	}
	if err != nil && errors.Cause(err) != context.Canceled {
		return err
	}
	return nil
}

func handleSignal(cancel context.CancelFunc) {
	sc := make(chan os.Signal, 1)
	signal.Notify(sc,
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT)
	go func() {
		sig := <-sc
		log.Info("Got signal to exit", zap.String("signal", sig.String()))
		cancel()
	}()
}
