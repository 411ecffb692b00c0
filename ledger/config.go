package ledger

import (
	"errors"
	"fmt"
	"runtime"
	"time"
)

// Config holds ledger configuration.
type Config struct {
	// ChainID identifies the ledger instance in logs and metrics.
	ChainID string

	// Difficulty is the number of leading zero hex digits a sealed
	// block's hash must have. The proof-of-work exists to rate-limit
	// block creation, not to resist adversaries.
	Difficulty int

	// MaxIterations caps the total nonce candidates tried per seal.
	// 0 means DefaultMaxIterations. The source design mined unbounded;
	// the cap converts denial-of-progress at high difficulty into
	// ErrMiningTimeout.
	MaxIterations uint64

	// MineTimeout is the wall-clock budget per seal. 0 means
	// DefaultMineTimeout.
	MineTimeout time.Duration

	// Workers is the number of concurrent nonce-search goroutines.
	// 0 means GOMAXPROCS capped at 8.
	Workers int
}

// Defaults
const (
	DefaultDifficulty    = 3
	DefaultMaxIterations = 50_000_000
	DefaultMineTimeout   = 30 * time.Second
)

// Errors
var (
	ErrEmptyBatch    = errors.New("empty evidence batch")
	ErrMiningTimeout = errors.New("mining exceeded its iteration or time budget")
	ErrInvalidConfig = errors.New("invalid ledger config")
	ErrNilRegistry   = errors.New("ledger requires a validator registry")
	ErrBadGenesis    = errors.New("chain does not start at a valid genesis block")
	ErrBrokenChain   = errors.New("chain link validation failed")
)

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		ChainID:       "evidence-ledger",
		Difficulty:    DefaultDifficulty,
		MaxIterations: DefaultMaxIterations,
		MineTimeout:   DefaultMineTimeout,
	}
}

// ValidateBasic performs basic validation of the config.
func (cfg Config) ValidateBasic() error {
	if cfg.ChainID == "" {
		return fmt.Errorf("%w: empty chain id", ErrInvalidConfig)
	}
	if cfg.Difficulty < 0 || cfg.Difficulty > 64 {
		return fmt.Errorf("%w: difficulty outside [0,64]", ErrInvalidConfig)
	}
	if cfg.Workers < 0 {
		return fmt.Errorf("%w: negative worker count", ErrInvalidConfig)
	}
	return nil
}

func (cfg Config) maxIterations() uint64 {
	if cfg.MaxIterations == 0 {
		return DefaultMaxIterations
	}
	return cfg.MaxIterations
}

func (cfg Config) mineTimeout() time.Duration {
	if cfg.MineTimeout == 0 {
		return DefaultMineTimeout
	}
	return cfg.MineTimeout
}

func (cfg Config) workers() int {
	if cfg.Workers > 0 {
		return cfg.Workers
	}
	n := runtime.GOMAXPROCS(0)
	if n > 8 {
		n = 8
	}
	if n < 1 {
		n = 1
	}
	return n
}
