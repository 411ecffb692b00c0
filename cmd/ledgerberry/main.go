package main

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/blockberries/ledgerberry/journal"
	"github.com/blockberries/ledgerberry/ledger"
	"github.com/blockberries/ledgerberry/metrics"
	"github.com/blockberries/ledgerberry/registry"
	"github.com/blockberries/ledgerberry/types"
)

type config struct {
	ChainID      string        `long:"chain-id" env:"LEDGERBERRY_CHAIN_ID" description:"chain identifier" default:"evidence-ledger"`
	Difficulty   int           `long:"difficulty" env:"LEDGERBERRY_DIFFICULTY" description:"leading zero hex digits required of block hashes" default:"3"`
	SealInterval time.Duration `long:"seal-interval" env:"LEDGERBERRY_SEAL_INTERVAL" description:"how often pending evidence is sealed into a block" default:"10s"`
	MineTimeout  time.Duration `long:"mine-timeout" env:"LEDGERBERRY_MINE_TIMEOUT" description:"wall-clock budget per seal" default:"30s"`
	JournalPath  string        `long:"journal" env:"LEDGERBERRY_JOURNAL" description:"append-only block journal path" default:"ledgerberry.journal"`
	MetricsAddr  string        `long:"metrics-addr" env:"LEDGERBERRY_METRICS_ADDR" description:"Prometheus listen address" default:":9090"`
	Input        string        `long:"input" env:"LEDGERBERRY_INPUT" description:"evidence JSON-lines source, - for stdin" default:"-"`
}

func main() {
	cfg := config{}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic("can't initialize zap logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync()
	}()

	if _, err := flags.ParseArgs(&cfg, os.Args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		logger.Fatal("failed to parse flags", zap.Error(err))
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("ledgerberry failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config, logger *zap.Logger) error {
	led, jrnl, err := openLedger(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := jrnl.Close(); err != nil {
			logger.Warn("journal close failed", zap.Error(err))
		}
	}()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return serveMetrics(ctx, cfg.MetricsAddr, logger) })
	g.Go(func() error { return sealLoop(ctx, cfg.SealInterval, led, logger) })
	g.Go(func() error { return ingest(ctx, cfg.Input, led, logger) })
	err = g.Wait()

	if flagged := led.DetectTampering(); len(flagged) > 0 {
		logger.Error("chain integrity compromised", zap.Uint64s("blocks", flagged))
	} else {
		logger.Info("chain intact", zap.Uint64("height", led.Height()))
	}
	return err
}

// openLedger restores the chain from the journal when one exists, otherwise
// starts a fresh chain at genesis.
func openLedger(cfg config, logger *zap.Logger) (*ledger.Ledger, journal.Journal, error) {
	lcfg := ledger.DefaultConfig()
	lcfg.ChainID = cfg.ChainID
	lcfg.Difficulty = cfg.Difficulty
	lcfg.MineTimeout = cfg.MineTimeout

	reg := registry.New()
	rec := metrics.NewLedger(cfg.ChainID)

	var blocks []*types.Block
	if _, err := os.Stat(cfg.JournalPath); err == nil {
		blocks, err = journal.Replay(cfg.JournalPath)
		if err != nil {
			return nil, nil, errors.Wrap(err, "replay journal")
		}
	}

	jrnl, err := journal.Open(cfg.JournalPath, false)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open journal")
	}

	if len(blocks) > 0 {
		led, err := ledger.NewFromBlocks(lcfg, reg, blocks, jrnl, logger, rec)
		if err != nil {
			return nil, nil, errors.Wrap(err, "restore ledger")
		}
		logger.Info("ledger restored from journal",
			zap.String("journal", cfg.JournalPath),
			zap.Uint64("height", led.Height()),
		)
		return led, jrnl, nil
	}

	led, err := ledger.New(lcfg, reg, jrnl, logger, rec)
	if err != nil {
		return nil, nil, errors.Wrap(err, "init ledger")
	}
	logger.Info("ledger started at genesis", zap.String("journal", cfg.JournalPath))
	return led, jrnl, nil
}

// ingest reads JSON-lines evidence records and enqueues them. A read source
// reaching EOF ends ingestion without stopping the seal loop.
func ingest(ctx context.Context, input string, led *ledger.Ledger, logger *zap.Logger) error {
	var src io.Reader = os.Stdin
	if input != "-" {
		f, err := os.Open(input)
		if err != nil {
			return errors.Wrap(err, "open evidence input")
		}
		defer f.Close()
		src = f
	}

	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec types.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			logger.Warn("skipping malformed evidence line", zap.Error(err))
			continue
		}
		if rec.Timestamp == "" {
			rec.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
		}
		led.Enqueue(rec)
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "read evidence input")
	}
	logger.Info("evidence input drained")
	return nil
}

// sealLoop seals pending evidence on a fixed interval. On shutdown it makes
// one final attempt to seal whatever is still queued.
func sealLoop(ctx context.Context, interval time.Duration, led *ledger.Ledger, logger *zap.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if led.Pending() > 0 {
				drain, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				if _, err := led.Seal(drain); err != nil {
					logger.Warn("final seal failed", zap.Error(err), zap.Int("pending", led.Pending()))
				}
			}
			return nil
		case <-ticker.C:
			if led.Pending() == 0 {
				continue
			}
			if _, err := led.Seal(ctx); err != nil {
				if ctx.Err() != nil {
					continue
				}
				logger.Warn("seal failed", zap.Error(err), zap.Int("pending", led.Pending()))
			}
		}
	}
}

func serveMetrics(ctx context.Context, addr string, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()

	logger.Info("metrics listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "metrics server")
	}
	return nil
}
