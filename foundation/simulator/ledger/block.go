package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ardanlabs/chainsim/foundation/simulator/digest"
	"github.com/ardanlabs/chainsim/foundation/simulator/merkle"
)

// ErrBlockFull is returned from an event append when the block is at its
// event capacity.
var ErrBlockFull = errors.New("block is at event capacity")

// ErrMiningCancelled is returned from POW when the search is cancelled
// before a solution is found.
var ErrMiningCancelled = errors.New("mining cancelled")

// =============================================================================

// Block is an ordered container of events plus the header metadata that
// chains it to its predecessor. The stored Hash is refreshed on every
// mutation the ledger performs; only the tamper procedure leaves it stale.
type Block struct {
	Index         int     `json:"index"`
	TimeStamp     int64   `json:"timestamp"`
	PrevBlockHash string  `json:"prev_block_hash"`
	MerkleRoot    string  `json:"merkle_root"`
	Nonce         int     `json:"nonce"`
	Hash          string  `json:"hash"`
	Events        []Event `json:"events"`

	hashFn    digest.Func
	maxEvents int
}

// newBlock constructs an empty block for the specified position. The merkle
// root and hash are left empty until the first append, seal or proof of
// work.
func newBlock(hashFn digest.Func, index int, prevBlockHash string, initialCap int, maxEvents int, now time.Time) *Block {
	if initialCap < 1 {
		initialCap = 1
	}
	if initialCap > maxEvents {
		initialCap = maxEvents
	}

	b := Block{
		Index:         index,
		TimeStamp:     now.UTC().Unix(),
		PrevBlockHash: prevBlockHash,
		Events:        make([]Event, 0, initialCap),
		hashFn:        hashFn,
		maxEvents:     maxEvents,
	}

	return &b
}

// appendEvent adds an event to the block and refreshes the merkle root and
// block hash so they stay consistent with the contents. The event array
// grows by doubling up to the hard cap.
func (b *Block) appendEvent(typ int, payload []byte, now time.Time, validate ValidateFunc) error {
	if len(b.Events) == b.maxEvents {
		return ErrBlockFull
	}

	if len(b.Events) == cap(b.Events) {
		newCap := cap(b.Events) * 2
		if newCap == 0 {
			newCap = 1
		}
		if newCap > b.maxEvents {
			newCap = b.maxEvents
		}
		events := make([]Event, len(b.Events), newCap)
		copy(events, b.Events)
		b.Events = events
	}

	b.Events = append(b.Events, newEvent(b.hashFn, typ, payload, now, validate))
	b.rehash()

	return nil
}

// rehash recomputes the merkle root from the event sequence and the block
// hash from the header fields.
func (b *Block) rehash() {
	b.MerkleRoot = merkle.RootHex(b.hashFn, b.eventHashes())
	b.Hash = b.computeHash()
}

// computeHash hashes the header fields in chain order: index, timestamp,
// previous hash, merkle root, nonce.
func (b *Block) computeHash() string {
	data := fmt.Sprintf("%d%d%s%s%d", b.Index, b.TimeStamp, b.PrevBlockHash, b.MerkleRoot, b.Nonce)
	return b.hashFn([]byte(data))
}

// eventHashes collects the event hashes in block order.
func (b *Block) eventHashes() []string {
	hashes := make([]string, len(b.Events))
	for i, evt := range b.Events {
		hashes[i] = evt.Hash
	}
	return hashes
}

// ContentHash recomputes the block hash from the current contents without
// touching the stored header fields. For an untouched block this equals the
// stored Hash; a tampered replica reports a different content hash than the
// hash it recorded at commit time.
func (b *Block) ContentHash() string {
	root := merkle.RootHex(b.hashFn, b.eventHashes())
	data := fmt.Sprintf("%d%d%s%s%d", b.Index, b.TimeStamp, b.PrevBlockHash, root, b.Nonce)
	return b.hashFn([]byte(data))
}

// Clone deep copies the block. Clones are the unit of transfer between
// nodes; they carry no link into any chain.
func (b *Block) Clone() *Block {
	clone := *b
	clone.Events = make([]Event, len(b.Events))
	for i, evt := range b.Events {
		clone.Events[i] = evt.Clone()
	}
	return &clone
}

// Solved reports whether the stored block hash satisfies the difficulty
// predicate: each of the first difficulty characters must be '0'.
func (b *Block) Solved(difficulty int) bool {
	return isHashSolved(difficulty, b.Hash)
}

// isHashSolved checks the hash against the difficulty predicate. The check
// is on the string prefix, not a numeric target.
func isHashSolved(difficulty int, hash string) bool {
	if len(hash) != digest.Size || difficulty > digest.Size {
		return false
	}

	for i := 0; i < difficulty; i++ {
		if hash[i] != '0' {
			return false
		}
	}

	return true
}

// =============================================================================

// POW searches for a nonce under which the block hash satisfies the
// difficulty predicate. The merkle root is refreshed from the events first,
// so an empty block carries the zero root. The search starts at zero and
// increments. Every
// yieldTrials attempts the search sleeps for the backoff interval and
// honors cancellation so a simulator full of miners stays responsive.
func (b *Block) POW(ctx context.Context, difficulty int, yieldTrials int, backoff time.Duration, ev EventHandler) error {
	ev("ledger: POW: mining: blk[%d] prev[%.8s]", b.Index, b.PrevBlockHash)

	b.Nonce = 0
	b.MerkleRoot = merkle.RootHex(b.hashFn, b.eventHashes())

	var attempts int
	for {
		attempts++
		if yieldTrials > 0 && attempts%yieldTrials == 0 {
			if err := sleepCtx(ctx, backoff); err != nil {
				ev("ledger: POW: mining: cancelled: blk[%d]", b.Index)
				return ErrMiningCancelled
			}
		}

		b.Hash = b.computeHash()
		if b.Solved(difficulty) {
			break
		}

		b.Nonce++
	}

	if ctx.Err() != nil {
		ev("ledger: POW: mining: cancelled: blk[%d]", b.Index)
		return ErrMiningCancelled
	}

	ev("ledger: POW: mining: solved: blk[%d] nonce[%d] attempts[%d] hash[%.8s]", b.Index, b.Nonce, attempts, b.Hash)

	return nil
}

// sleepCtx sleeps for the duration unless the context is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
