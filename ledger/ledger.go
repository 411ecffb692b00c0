package ledger

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/blockberries/ledgerberry/journal"
	"github.com/blockberries/ledgerberry/metrics"
	"github.com/blockberries/ledgerberry/quorum"
	"github.com/blockberries/ledgerberry/registry"
	"github.com/blockberries/ledgerberry/types"
)

// BlockRejectedError reports a mined candidate that failed structural
// validation against the tip. The chain is unchanged when it is returned.
type BlockRejectedError struct {
	Index  uint64
	Errors []string
}

func (e *BlockRejectedError) Error() string {
	return fmt.Sprintf("block %d rejected: %s", e.Index, strings.Join(e.Errors, "; "))
}

// Ledger owns a genesis-rooted block chain and the pending evidence queue.
//
// Lock discipline: sealMu serializes writers end to end, including the
// nonce search. mu guards chain and pending and is held only for short
// sections, so Enqueue and all readers stay responsive while a seal is
// mining.
type Ledger struct {
	cfg     Config
	reg     *registry.Registry
	jrnl    journal.Journal
	log     *zap.Logger
	metrics *metrics.Ledger

	sealMu  sync.Mutex
	mu      sync.RWMutex
	chain   []*types.Block
	pending []types.Record
}

// New creates a ledger containing only the genesis block. The journal,
// logger and metrics recorder may be nil.
func New(cfg Config, reg *registry.Registry, jrnl journal.Journal, log *zap.Logger, m *metrics.Ledger) (*Ledger, error) {
	if err := cfg.ValidateBasic(); err != nil {
		return nil, err
	}
	if reg == nil {
		return nil, ErrNilRegistry
	}
	if jrnl == nil {
		jrnl = journal.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}

	genesis := types.GenesisBlock(time.Now())
	l := &Ledger{
		cfg:     cfg,
		reg:     reg,
		jrnl:    jrnl,
		log:     log,
		metrics: m,
		chain:   []*types.Block{genesis},
	}

	if err := jrnl.Append(genesis); err != nil {
		return nil, fmt.Errorf("journal genesis: %w", err)
	}
	return l, nil
}

// NewFromBlocks restores a ledger from an existing chain, e.g. a journal
// replay or a chain export. The chain is fully verified before use.
func NewFromBlocks(cfg Config, reg *registry.Registry, blocks []*types.Block, jrnl journal.Journal, log *zap.Logger, m *metrics.Ledger) (*Ledger, error) {
	if err := cfg.ValidateBasic(); err != nil {
		return nil, err
	}
	if reg == nil {
		return nil, ErrNilRegistry
	}
	if jrnl == nil {
		jrnl = journal.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}

	if err := verifyChain(blocks); err != nil {
		return nil, err
	}

	chain := make([]*types.Block, len(blocks))
	for i, b := range blocks {
		chain[i] = b.Copy()
	}

	return &Ledger{
		cfg:     cfg,
		reg:     reg,
		jrnl:    jrnl,
		log:     log,
		metrics: m,
		chain:   chain,
	}, nil
}

// Registry returns the validator registry attached to the ledger.
func (l *Ledger) Registry() *registry.Registry {
	return l.reg
}

// Enqueue pushes evidence onto the pending queue. It has no effect on the
// chain until the next implicit-batch Seal.
func (l *Ledger) Enqueue(rec types.Record) {
	l.mu.Lock()
	l.pending = append(l.pending, rec.Copy())
	n := len(l.pending)
	l.mu.Unlock()

	l.log.Debug("evidence enqueued",
		zap.String("type", rec.Type),
		zap.Int("pending", n),
	)
}

// Pending returns the number of queued evidence records.
func (l *Ledger) Pending() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.pending)
}

// PendingRecords returns a copy of the pending queue in FIFO order.
func (l *Ledger) PendingRecords() []types.Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return types.CopyRecords(l.pending)
}

// Seal mines the pending queue into a new block. The queue is cleared
// only on success.
func (l *Ledger) Seal(ctx context.Context) (*types.Block, error) {
	return l.seal(ctx, nil, true)
}

// SealBatch mines an explicit evidence batch into a new block, leaving
// the pending queue untouched.
func (l *Ledger) SealBatch(ctx context.Context, batch []types.Record) (*types.Block, error) {
	return l.seal(ctx, batch, false)
}

func (l *Ledger) seal(ctx context.Context, batch []types.Record, fromQueue bool) (*types.Block, error) {
	l.sealMu.Lock()
	defer l.sealMu.Unlock()

	start := time.Now()

	if fromQueue {
		l.mu.RLock()
		batch = types.CopyRecords(l.pending)
		l.mu.RUnlock()
	}
	if len(batch) == 0 {
		l.metrics.ObserveSeal(ErrEmptyBatch, 0, start)
		return nil, ErrEmptyBatch
	}

	// Tip snapshot. sealMu guarantees the tip cannot move under us.
	l.mu.RLock()
	tip := l.chain[len(l.chain)-1]
	index := tip.Index + 1
	prevHash := tip.Hash
	l.mu.RUnlock()

	candidate := types.NewBlock(index, prevHash, batch, time.Now())

	outcome := mine(ctx, candidate, l.cfg.Difficulty, l.cfg)
	switch outcome.Status {
	case Mined:
	case MineCancelled:
		l.metrics.ObserveSeal(context.Canceled, outcome.Iterations, start)
		l.log.Info("seal cancelled",
			zap.Uint64("index", index),
			zap.Uint64("iterations", outcome.Iterations),
		)
		return nil, ctx.Err()
	default:
		l.metrics.ObserveSeal(ErrMiningTimeout, outcome.Iterations, start)
		l.log.Warn("mining budget exhausted",
			zap.Uint64("index", index),
			zap.Int("difficulty", l.cfg.Difficulty),
			zap.Uint64("iterations", outcome.Iterations),
		)
		return nil, ErrMiningTimeout
	}

	candidate.Nonce = outcome.Nonce
	candidate.Hash = outcome.Hash

	l.mu.Lock()
	defer l.mu.Unlock()

	res := registry.ValidateBlock(candidate, l.chain[len(l.chain)-1])
	if !res.IsValid {
		err := &BlockRejectedError{Index: candidate.Index, Errors: res.Errors}
		l.metrics.ObserveSeal(err, outcome.Iterations, start)
		l.log.Error("mined block failed validation",
			zap.Uint64("index", candidate.Index),
			zap.Strings("errors", res.Errors),
		)
		return nil, err
	}

	l.chain = append(l.chain, candidate)
	if fromQueue {
		// Enqueue only appends, so the snapshot taken before mining is
		// always a prefix of the current queue. Drop exactly that
		// prefix; records enqueued while mining stay pending.
		l.pending = l.pending[len(batch):]
	}

	if err := l.jrnl.Append(candidate); err != nil {
		// The block is already part of the chain; journal loss is
		// recoverable via Export.
		l.log.Warn("journal append failed", zap.Error(err), zap.Uint64("index", candidate.Index))
	}

	l.metrics.ObserveSeal(nil, outcome.Iterations, start)
	l.log.Info("block sealed",
		zap.Uint64("index", candidate.Index),
		zap.String("hash", candidate.Hash),
		zap.Int("evidence", len(candidate.Evidence)),
		zap.Uint64("nonce", candidate.Nonce),
		zap.Uint64("iterations", outcome.Iterations),
		zap.Duration("took", time.Since(start)),
	)

	return candidate.Copy(), nil
}

// Block returns a copy of the block at the given index, or false if no
// such block exists.
func (l *Ledger) Block(index uint64) (*types.Block, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if index >= uint64(len(l.chain)) {
		return nil, false
	}
	return l.chain[index].Copy(), true
}

// Latest returns a copy of the chain tip.
func (l *Ledger) Latest() *types.Block {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.chain[len(l.chain)-1].Copy()
}

// Height returns the number of blocks in the chain, genesis included.
func (l *Ledger) Height() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return uint64(len(l.chain))
}

// Export returns a deep copy of the whole chain in order. This is the
// at-rest/on-wire representation for persistence and transport.
func (l *Ledger) Export() []types.Block {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]types.Block, len(l.chain))
	for i, b := range l.chain {
		out[i] = *b.Copy()
	}
	return out
}

// DetectTampering recomputes every block's hash and returns the indexes
// of blocks whose stored hash no longer matches. It catches in-place
// mutation of appended blocks; a coherently rebuilt fraudulent suffix
// requires externally anchored checkpoints, which are out of scope.
func (l *Ledger) DetectTampering() []uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var flagged []uint64
	for _, b := range l.chain {
		if b.Hash != b.ComputeHash() {
			flagged = append(flagged, b.Index)
		}
	}

	l.metrics.ObserveTamperScan(len(flagged))
	if len(flagged) > 0 {
		l.log.Warn("tampered blocks detected", zap.Uint64s("indexes", flagged))
	}
	return flagged
}

// VerifyChain checks hash integrity and linkage of the whole chain.
func (l *Ledger) VerifyChain() error {
	l.mu.RLock()
	chain := l.chain
	l.mu.RUnlock()
	return verifyChain(chain)
}

func verifyChain(chain []*types.Block) error {
	if len(chain) == 0 {
		return fmt.Errorf("%w: empty chain", ErrBadGenesis)
	}

	genesis := chain[0]
	if genesis.Index != 0 || genesis.PreviousHash != types.GenesisPreviousHash {
		return fmt.Errorf("%w: index %d previous_hash %q", ErrBadGenesis, genesis.Index, genesis.PreviousHash)
	}
	if genesis.Hash != genesis.ComputeHash() {
		return fmt.Errorf("%w: genesis hash mismatch", ErrBadGenesis)
	}

	for i := 1; i < len(chain); i++ {
		res := registry.ValidateBlock(chain[i], chain[i-1])
		if !res.IsValid {
			return fmt.Errorf("%w: block %d: %s", ErrBrokenChain, chain[i].Index, strings.Join(res.Errors, "; "))
		}
	}
	return nil
}

// BlockConsensus evaluates validator consensus on a sealed block's hash
// via the attached registry and returns the full result for audit
// logging.
func (l *Ledger) BlockConsensus(blockHash string) quorum.Result {
	res := l.reg.BlockConsensus(blockHash)
	l.metrics.ObserveConsensusCheck(res.HasConsensus)
	return res
}
