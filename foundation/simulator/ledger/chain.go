// Package ledger implements the hash chained ledger every node replicates:
// events, blocks, the committed chain and the mining scratchpad.
package ledger

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ardanlabs/chainsim/foundation/simulator/digest"
	"github.com/ardanlabs/chainsim/foundation/simulator/genesis"
	"github.com/ardanlabs/chainsim/foundation/simulator/merkle"
)

// Acceptance errors for blocks received from peers. A rejection is local to
// the rejecting chain.
var (
	ErrInvalidProofOfWork = errors.New("block hash does not satisfy the difficulty predicate")
	ErrInvalidEvent       = errors.New("block carries an event that fails validation")
	ErrUnknownParent      = errors.New("block does not link to any known block")
	ErrNotLonger          = errors.New("block does not extend the chain")
)

// EventHandler defines a function that is called when noteworthy things
// happen while the ledger is processed.
type EventHandler func(v string, args ...any)

// =============================================================================

// Config represents the configuration required to construct a chain.
type Config struct {
	Genesis     genesis.Genesis
	Hash        digest.Func  // Defaults to digest.SHA256Hex.
	Validate    ValidateFunc // Defaults to AcceptAll.
	EvHandler   EventHandler
	GenesisTime time.Time        // Pins the genesis timestamp so replicas share a genesis block.
	Now         func() time.Time // Defaults to time.Now; tests pin timestamps here.
}

// Chain owns the committed block sequence and the scratchpad block that
// accumulates new events. One lock protects all of it, including the
// contents of every committed block.
type Chain struct {
	mu      sync.Mutex
	blocks  []*Block // blocks[0] is the genesis block.
	pending *Block   // Scratchpad, always one index past the tip.

	gen      genesis.Genesis
	hashFn   digest.Func
	validate ValidateFunc
	ev       EventHandler
	now      func() time.Time
}

// New constructs a chain with its genesis block and a scratchpad for
// index 1.
func New(cfg Config) *Chain {
	hashFn := cfg.Hash
	if hashFn == nil {
		hashFn = digest.SHA256Hex
	}

	validate := cfg.Validate
	if validate == nil {
		validate = AcceptAll
	}

	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	genesisTime := cfg.GenesisTime
	if genesisTime.IsZero() {
		genesisTime = now()
	}

	c := Chain{
		gen:      cfg.Genesis,
		hashFn:   hashFn,
		validate: validate,
		ev:       ev,
		now:      now,
	}

	gen := newBlock(hashFn, 0, digest.Zero, cfg.Genesis.InitialEventCapacity, cfg.Genesis.MaxEventsPerBlock, genesisTime)
	gen.rehash()

	c.blocks = []*Block{gen}
	c.pending = c.newPending(gen)

	return &c
}

// newPending allocates a fresh scratchpad extending the specified tip.
func (c *Chain) newPending(tip *Block) *Block {
	return newBlock(c.hashFn, tip.Index+1, tip.Hash, c.gen.InitialEventCapacity, c.gen.MaxEventsPerBlock, c.now())
}

// =============================================================================

// AppendEvent adds an event to the scratchpad. When the scratchpad is at
// capacity it is sealed and committed and the append is retried once on the
// fresh scratchpad.
func (c *Chain) AppendEvent(typ int, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.pending.appendEvent(typ, payload, c.now(), c.validate)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrBlockFull) {
		return err
	}

	c.sealAndCommit()

	return c.pending.appendEvent(typ, payload, c.now(), c.validate)
}

// Seal commits the scratchpad as the new tip without requiring proof of
// work. The mining path commits through CommitMined instead.
func (c *Chain) Seal() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sealAndCommit()
}

// sealAndCommit refreshes the scratchpad's hashes, links it after the tip
// and allocates a fresh scratchpad. The caller must hold the chain lock.
func (c *Chain) sealAndCommit() {
	c.pending.rehash()

	tip := c.pending
	c.blocks = append(c.blocks, tip)
	c.pending = c.newPending(tip)

	c.ev("ledger: seal: blk[%d] hash[%.8s] events[%d]", tip.Index, tip.Hash, len(tip.Events))
}

// =============================================================================

// MiningCandidate returns a deep clone of the scratchpad for a miner to
// work on outside the chain lock.
func (c *Chain) MiningCandidate() *Block {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.pending.Clone()
}

// CommitMined links a mined candidate as the new tip. The commit happens
// only when the candidate still extends the current tip; a candidate that
// lost the race is reported back for discard. On success a clone safe to
// hand to the network is returned.
func (c *Chain) CommitMined(b *Block) (*Block, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tip := c.blocks[len(c.blocks)-1]
	if tip.Hash != b.PrevBlockHash {
		return nil, false
	}

	c.blocks = append(c.blocks, b)
	c.pending = c.newPending(b)

	return b.Clone(), true
}

// ReceiveBlock applies the acceptance rules to a block received from a
// peer: the proof of work must hold, every event must pass the validation
// hook, the block must link to a known block, and accepting it must yield a
// strictly longer chain. Linkage is restricted to the current tip: the
// chain never rewrites its interior. The chain keeps its own clone of an
// accepted block.
func (c *Chain) ReceiveBlock(b *Block) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !b.Solved(c.gen.Difficulty) {
		return ErrInvalidProofOfWork
	}

	for _, evt := range b.Events {
		if !c.validate(evt) {
			return ErrInvalidEvent
		}
	}

	// Walk from genesis for the block the candidate links after.
	var parent *Block
	for _, blk := range c.blocks {
		if blk.Hash == b.PrevBlockHash {
			parent = blk
			break
		}
	}
	if parent == nil {
		return ErrUnknownParent
	}

	tip := c.blocks[len(c.blocks)-1]
	if parent != tip {
		return ErrNotLonger
	}
	if b.Index+1 <= len(c.blocks) {
		return ErrNotLonger
	}

	clone := b.Clone()
	c.blocks = append(c.blocks, clone)
	c.pending = c.newPending(clone)

	c.ev("ledger: receive: accepted blk[%d] hash[%.8s]", clone.Index, clone.Hash)

	return nil
}

// =============================================================================

// Genesis returns a clone of the genesis block.
func (c *Chain) Genesis() *Block {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.blocks[0].Clone()
}

// LastBlock returns a clone of the current tip.
func (c *Chain) LastBlock() *Block {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.blocks[len(c.blocks)-1].Clone()
}

// BlockCount returns the number of committed blocks including genesis.
func (c *Chain) BlockCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.blocks)
}

// Blocks returns clones of the committed blocks from genesis in order.
func (c *Chain) Blocks() []*Block {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.cloneBlocks()
}

// Pending returns a clone of the scratchpad.
func (c *Chain) Pending() *Block {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.pending.Clone()
}

// cloneBlocks deep copies the committed sequence. The caller must hold the
// chain lock.
func (c *Chain) cloneBlocks() []*Block {
	blocks := make([]*Block, len(c.blocks))
	for i, blk := range c.blocks {
		blocks[i] = blk.Clone()
	}
	return blocks
}

// CloneBlocks deep copies the committed chain from genesis in order. This
// is the source side of a synchronization.
func (c *Chain) CloneBlocks() []*Block {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.cloneBlocks()
}

// Replace installs the cloned blocks as the chain's new contents and
// rebuilds the scratchpad to extend the new tip. Events accumulated in the
// displaced scratchpad are dropped with it. This is the destination side of
// a synchronization.
func (c *Chain) Replace(blocks []*Block) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(blocks) == 0 {
		return
	}

	c.blocks = blocks
	c.pending = c.newPending(blocks[len(blocks)-1])
}

// ContainsContent reports whether any committed block's recomputed content
// hash equals the specified hash. Judging membership on content rather than
// the recorded hash is what exposes a tampered replica.
func (c *Chain) ContainsContent(hash string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, blk := range c.blocks {
		if blk.ContentHash() == hash {
			return true
		}
	}

	return false
}

// =============================================================================

// Tamper rewrites the payload of the first transfer event found in the
// first non genesis block and refreshes only that event's hash. The merkle
// root and the block hash are deliberately left stale so the corruption is
// observable by validation and consensus checks.
func (c *Chain) Tamper(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.blocks) < 2 {
		return false
	}

	blk := c.blocks[1]
	for i := range blk.Events {
		if blk.Events[i].Type != EventTypeTransfer {
			continue
		}

		if len(payload) > MaxPayloadSize {
			payload = payload[:MaxPayloadSize]
		}
		blk.Events[i].Payload = append([]byte(nil), payload...)
		blk.Events[i].Hash = eventHash(c.hashFn, blk.Events[i])

		c.ev("ledger: tamper: blk[%d] event[%d] rewritten", blk.Index, i)

		return true
	}

	return false
}

// Validate walks the committed chain and checks the integrity invariants:
// index and link continuity, header hash coherence and merkle root
// coherence. A tampered block fails here.
func (c *Chain) Validate() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, blk := range c.blocks {
		if blk.Index != i {
			return fmt.Errorf("block at position %d carries index %d", i, blk.Index)
		}

		if i == 0 {
			if blk.PrevBlockHash != digest.Zero {
				return fmt.Errorf("genesis parent hash is %s, expected the zero hash", blk.PrevBlockHash)
			}
		} else if blk.PrevBlockHash != c.blocks[i-1].Hash {
			return fmt.Errorf("block %d does not link to its predecessor", i)
		}

		if root := merkle.RootHex(c.hashFn, blk.eventHashes()); root != blk.MerkleRoot {
			return fmt.Errorf("block %d merkle root does not match its events", i)
		}

		if hash := blk.computeHash(); hash != blk.Hash {
			return fmt.Errorf("block %d hash does not match its header", i)
		}
	}

	return nil
}
