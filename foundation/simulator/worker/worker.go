// Package worker implements the per node mining loop for the simulated
// network. Each worker owns one goroutine that clones the scratchpad,
// performs the proof of work, races the result onto the local chain and
// broadcasts winners.
package worker

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/ardanlabs/chainsim/foundation/simulator/genesis"
	"github.com/ardanlabs/chainsim/foundation/simulator/ledger"
	"github.com/ardanlabs/chainsim/foundation/simulator/network"
)

// fraudPayload is what a malicious node writes over a committed transfer.
var fraudPayload = []byte(`{"from":"System","to":"Mallory","amount":1000000}`)

// tamperChance is the per iteration probability that a malicious node
// rewrites its local replica.
const tamperChance = 0.1

// =============================================================================

// Worker manages the mining loop for a single node.
type Worker struct {
	net  *network.Network
	node *network.Node
	ev   ledger.EventHandler

	mu     sync.Mutex
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// Run constructs a worker for the node, registers the worker with the node
// and starts the loop. The loop runs for non mining nodes as well; it just
// never produces blocks for them.
func Run(net *network.Network, node *network.Node, ev ledger.EventHandler) *Worker {
	if ev == nil {
		ev = func(v string, args ...any) {}
	}

	w := Worker{
		net:  net,
		node: node,
		ev:   ev,
	}

	// Register this worker with its node so the network can stop and
	// restart it.
	node.Worker = &w

	w.Start()

	return &w
}

// Start spawns a fresh loop goroutine. Starting an already running worker
// is a no-op. Start doesn't return until the loop is up.
func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel

	hasStarted := make(chan struct{})

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		close(hasStarted)
		w.run(ctx)
	}()

	<-hasStarted
}

// Shutdown stops the loop and waits for the goroutine to terminate.
func (w *Worker) Shutdown() {
	w.mu.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	if cancel == nil {
		return
	}

	w.ev("worker: node[%d]: shutdown: started", w.node.ID)
	defer w.ev("worker: node[%d]: shutdown: completed", w.node.ID)

	cancel()
	w.wg.Wait()
}

// =============================================================================

// run is the loop body. Shutdown is polled at the top of every iteration
// and inside the proof of work.
func (w *Worker) run(ctx context.Context) {
	w.ev("worker: node[%d]: G started", w.node.ID)
	defer w.ev("worker: node[%d]: G completed", w.node.ID)

	gen := w.net.Genesis()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.net.Done():
			return
		default:
		}

		if w.node.IsActive() && w.node.IsMining() {
			w.mineOnce(ctx, gen)
		}

		if w.node.IsActive() && w.node.IsMalicious() && rand.Float64() < tamperChance {
			if w.node.Chain.Tamper(fraudPayload) {
				w.ev("worker: node[%d]: tampered with local replica", w.node.ID)
			}
		}

		if err := w.sleep(ctx, gen.LoopDelay()); err != nil {
			return
		}
	}
}

// mineOnce clones the scratchpad, solves the proof of work and races the
// result onto the local chain. A winner is broadcast with this node as the
// sender; a loser is discarded.
func (w *Worker) mineOnce(ctx context.Context, gen genesis.Genesis) {
	candidate := w.node.Chain.MiningCandidate()

	powCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Fold the network shutdown signal into the mining context.
	go func() {
		select {
		case <-w.net.Done():
			cancel()
		case <-powCtx.Done():
		}
	}()

	if err := candidate.POW(powCtx, gen.Difficulty, gen.PowYieldTrials, gen.MiningBackoff(), w.ev); err != nil {
		return
	}

	if !w.node.IsActive() {
		return
	}

	committed, ok := w.node.Chain.CommitMined(candidate)
	if !ok {
		w.ev("worker: node[%d]: lost mining race: blk[%d]", w.node.ID, candidate.Index)
		return
	}

	w.ev("worker: node[%d]: mined blk[%d] hash[%.8s]", w.node.ID, committed.Index, committed.Hash)

	w.net.Broadcast(committed, w.node.ID)
}

// sleep pauses the loop between iterations, honoring both the worker's
// context and the network shutdown signal.
func (w *Worker) sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-w.net.Done():
		return context.Canceled
	case <-t.C:
		return nil
	}
}
