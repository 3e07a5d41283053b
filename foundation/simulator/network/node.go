package network

import (
	"sync/atomic"

	"github.com/ardanlabs/chainsim/foundation/simulator/ledger"
)

// Worker interface represents the behavior required to be implemented by
// any package providing the per node mining loop.
type Worker interface {
	Start()
	Shutdown()
}

// Node is a participant in the simulated network: one chain replica plus
// the flags that drive its worker.
type Node struct {
	ID    int
	Chain *ledger.Chain

	mining    bool
	malicious bool
	active    atomic.Bool

	// Worker is registered by the worker package when the node's loop is
	// first run.
	Worker Worker
}

// IsMining reports whether the node's worker produces blocks.
func (n *Node) IsMining() bool { return n.mining }

// IsMalicious reports whether the node occasionally rewrites its replica.
func (n *Node) IsMalicious() bool { return n.malicious }

// IsActive reports whether the node currently participates in the network.
// The flag is toggled only under the registry lock.
func (n *Node) IsActive() bool { return n.active.Load() }
