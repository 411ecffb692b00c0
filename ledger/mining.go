package ledger

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/blockberries/ledgerberry/types"
)

// MineStatus is the terminal state of a nonce search.
type MineStatus int

const (
	Mined MineStatus = iota
	MineTimedOut
	MineCancelled
)

func (s MineStatus) String() string {
	switch s {
	case Mined:
		return "mined"
	case MineTimedOut:
		return "timed_out"
	case MineCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// mineOutcome is the result of a nonce search over a candidate block.
type mineOutcome struct {
	Status     MineStatus
	Nonce      uint64
	Hash       string
	Iterations uint64
}

// cancelCheckInterval is how many nonces a worker tries between
// cooperative cancellation checks.
const cancelCheckInterval = 4096

// mine searches for a nonce giving the candidate block a hash with the
// required leading zeros. Workers scan disjoint nonce strides; the first
// hit stops the others. The candidate block is not modified.
func mine(ctx context.Context, candidate *types.Block, difficulty int, cfg Config) mineOutcome {
	workers := cfg.workers()
	perWorker := cfg.maxIterations() / uint64(workers)
	if perWorker == 0 {
		perWorker = 1
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.mineTimeout())
	defer cancel()

	var (
		mu         sync.Mutex
		found      atomic.Bool
		best       mineOutcome
		iterations atomic.Uint64
	)

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			// Each worker hashes its own copy: blocks share no
			// mutable state across goroutines.
			scratch := candidate.Copy()
			tried := uint64(0)
			for nonce := uint64(w); tried < perWorker; nonce += uint64(workers) {
				if tried%cancelCheckInterval == 0 {
					if found.Load() {
						break
					}
					select {
					case <-ctx.Done():
						iterations.Add(tried)
						return ctx.Err()
					default:
					}
				}

				scratch.Nonce = nonce
				hash := scratch.ComputeHash()
				tried++

				if types.HasLeadingZeros(hash, difficulty) {
					mu.Lock()
					if !found.Load() {
						found.Store(true)
						best = mineOutcome{
							Status: Mined,
							Nonce:  nonce,
							Hash:   hash,
						}
					}
					mu.Unlock()
					cancel()
					break
				}
			}
			iterations.Add(tried)
			return nil
		})
	}

	err := g.Wait()

	mu.Lock()
	outcome := best
	mu.Unlock()
	outcome.Iterations = iterations.Load()

	if found.Load() {
		outcome.Status = Mined
		return outcome
	}

	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		outcome.Status = MineCancelled
		return outcome
	}
	// Deadline hit or iteration budget exhausted.
	outcome.Status = MineTimedOut
	return outcome
}
