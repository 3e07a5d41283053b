// Package network maintains the registry of simulated nodes and implements
// the protocols that run across them: block broadcast, chain
// synchronization and the consensus oracle.
package network

import (
	"errors"
	"sync"
	"time"

	"github.com/ardanlabs/chainsim/foundation/simulator/digest"
	"github.com/ardanlabs/chainsim/foundation/simulator/genesis"
	"github.com/ardanlabs/chainsim/foundation/simulator/ledger"
)

// ErrNetworkFull is returned from AddNode when the registry is at its
// configured bound.
var ErrNetworkFull = errors.New("node registry is full")

// =============================================================================

// Config represents the configuration required to construct a network.
type Config struct {
	Genesis   genesis.Genesis
	Hash      digest.Func
	Validate  ledger.ValidateFunc
	EvHandler ledger.EventHandler
}

// Network owns the node registry and the global shutdown signal. All
// cross node coordination happens through it; the registry lock is always
// acquired before any chain lock.
type Network struct {
	mu    sync.Mutex
	nodes []*Node

	gen         genesis.Genesis
	hashFn      digest.Func
	validate    ledger.ValidateFunc
	ev          ledger.EventHandler
	genesisTime time.Time

	shut     chan struct{}
	shutOnce sync.Once
}

// New constructs a network. The construction time is pinned as the genesis
// timestamp so every node added later holds an identical genesis block.
func New(cfg Config) *Network {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	net := Network{
		gen:         cfg.Genesis,
		hashFn:      cfg.Hash,
		validate:    cfg.Validate,
		ev:          ev,
		genesisTime: time.Now(),
		shut:        make(chan struct{}),
	}

	return &net
}

// Genesis returns the settings the network runs under.
func (net *Network) Genesis() genesis.Genesis {
	return net.gen
}

// Done returns a channel that is closed when the network shuts down.
func (net *Network) Done() <-chan struct{} {
	return net.shut
}

// Shutdown closes the global shutdown signal and stops every node's
// worker. The workers are joined outside the registry lock so a worker
// blocked on a broadcast can drain.
func (net *Network) Shutdown() {
	net.ev("network: shutdown: started")
	defer net.ev("network: shutdown: completed")

	net.shutOnce.Do(func() {
		close(net.shut)
	})

	for _, n := range net.Nodes() {
		if n.Worker != nil {
			n.Worker.Shutdown()
		}
	}
}

// =============================================================================

// AddNode creates a node with its own chain replica and registers it. The
// node starts active; its worker is registered and started separately by
// the worker package.
func (net *Network) AddNode(mining bool, malicious bool) (*Node, error) {
	net.mu.Lock()
	defer net.mu.Unlock()

	if len(net.nodes) == net.gen.MaxNodes {
		return nil, ErrNetworkFull
	}

	chain := ledger.New(ledger.Config{
		Genesis:     net.gen,
		Hash:        net.hashFn,
		Validate:    net.validate,
		EvHandler:   net.ev,
		GenesisTime: net.genesisTime,
	})

	n := Node{
		ID:        len(net.nodes),
		Chain:     chain,
		mining:    mining,
		malicious: malicious,
	}
	n.active.Store(true)

	net.nodes = append(net.nodes, &n)

	net.ev("network: add node: id[%d] mining[%v] malicious[%v]", n.ID, mining, malicious)

	return &n, nil
}

// Node returns the node with the specified id, or nil when the id is
// unknown.
func (net *Network) Node(id int) *Node {
	net.mu.Lock()
	defer net.mu.Unlock()

	if id < 0 || id >= len(net.nodes) {
		return nil
	}

	return net.nodes[id]
}

// Nodes returns a snapshot of the registry.
func (net *Network) Nodes() []*Node {
	net.mu.Lock()
	defer net.mu.Unlock()

	nodes := make([]*Node, len(net.nodes))
	copy(nodes, net.nodes)

	return nodes
}

// ActiveCount returns the number of active nodes.
func (net *Network) ActiveCount() int {
	net.mu.Lock()
	defer net.mu.Unlock()

	var count int
	for _, n := range net.nodes {
		if n.IsActive() {
			count++
		}
	}

	return count
}

// =============================================================================

// StopNode marks the node inactive and joins its worker. An unknown id is
// silently ignored. The join happens outside the registry lock so a worker
// mid broadcast can finish.
func (net *Network) StopNode(id int) {
	net.mu.Lock()
	if id < 0 || id >= len(net.nodes) {
		net.mu.Unlock()
		return
	}
	n := net.nodes[id]
	n.active.Store(false)
	net.mu.Unlock()

	if n.Worker != nil {
		n.Worker.Shutdown()
	}

	net.ev("network: stop node: id[%d]", id)
}

// StartNode marks the node active again, spawns a fresh worker loop and
// synchronizes the node's chain with the network. An unknown id is silently
// ignored.
func (net *Network) StartNode(id int) {
	net.mu.Lock()
	if id < 0 || id >= len(net.nodes) {
		net.mu.Unlock()
		return
	}
	n := net.nodes[id]
	n.active.Store(true)
	net.mu.Unlock()

	if n.Worker != nil {
		n.Worker.Start()
	}

	net.ev("network: start node: id[%d]", id)

	net.Synchronize(n)
}

// =============================================================================

// Broadcast delivers a clone of an accepted block to every other active
// node. Each peer applies its own acceptance rules under its chain lock; a
// rejection is local to that peer.
func (net *Network) Broadcast(b *ledger.Block, senderID int) {
	net.mu.Lock()
	defer net.mu.Unlock()

	for _, peer := range net.nodes {
		if peer.ID == senderID || !peer.IsActive() {
			continue
		}

		if err := peer.Chain.ReceiveBlock(b); err != nil {
			net.ev("network: broadcast: node[%d] rejected blk[%d]: %s", peer.ID, b.Index, err)
			continue
		}

		net.ev("network: broadcast: node[%d] accepted blk[%d] hash[%.8s]", peer.ID, b.Index, b.Hash)
	}
}

// Synchronize replaces the node's chain with the longest chain held by any
// other active node, when one is strictly longer. The source chain lock is
// taken for the copy before the destination lock is taken for the install;
// running under the registry lock serializes all dual chain acquisitions.
func (net *Network) Synchronize(n *Node) {
	net.mu.Lock()
	defer net.mu.Unlock()

	best := n.Chain.BlockCount()

	var winner *Node
	for _, peer := range net.nodes {
		if peer.ID == n.ID || !peer.IsActive() {
			continue
		}
		if count := peer.Chain.BlockCount(); count > best {
			best = count
			winner = peer
		}
	}

	if winner == nil {
		net.ev("network: synchronize: node[%d] already holds the longest chain", n.ID)
		return
	}

	n.Chain.Replace(winner.Chain.CloneBlocks())

	net.ev("network: synchronize: node[%d] adopted chain of node[%d] blocks[%d]", n.ID, winner.ID, best)
}

// HasConsensus reports whether at least the consensus threshold fraction of
// active nodes hold a block whose content matches the specified block.
// Membership is judged on recomputed content hashes, so a tampered replica
// no longer vouches for the block it rewrote.
func (net *Network) HasConsensus(b *ledger.Block) bool {
	return net.HasConsensusHash(b.ContentHash())
}

// HasConsensusHash is the hash form of HasConsensus.
func (net *Network) HasConsensusHash(contentHash string) bool {
	net.mu.Lock()
	defer net.mu.Unlock()

	var active, holding int
	for _, n := range net.nodes {
		if !n.IsActive() {
			continue
		}
		active++
		if n.Chain.ContainsContent(contentHash) {
			holding++
		}
	}

	if active == 0 {
		return false
	}

	return float64(holding)/float64(active) >= net.gen.ConsensusThreshold
}
