package public

import (
	"github.com/ardanlabs/chainsim/foundation/simulator/ledger"
)

// event represents the view of an event inside a block.
type event struct {
	Type      int    `json:"type"`
	Payload   string `json:"payload"`
	TimeStamp string `json:"timestamp"`
	Hash      string `json:"hash"`
	Valid     bool   `json:"valid"`
}

// block represents the view of a block in a chain enumeration.
type block struct {
	Index         int     `json:"index"`
	TimeStamp     int64   `json:"timestamp"`
	PrevBlockHash string  `json:"prev_block_hash"`
	MerkleRoot    string  `json:"merkle_root"`
	Nonce         int     `json:"nonce"`
	Hash          string  `json:"hash"`
	ContentHash   string  `json:"content_hash"`
	Events        []event `json:"events"`
}

// node represents the view of a node in the registry.
type node struct {
	ID         int    `json:"id"`
	Mining     bool   `json:"mining"`
	Malicious  bool   `json:"malicious"`
	Active     bool   `json:"active"`
	BlockCount int    `json:"block_count"`
	TipHash    string `json:"tip_hash"`
}

// addEventRequest carries a new event for a node's chain. The payload is
// bounded the same way the ledger bounds it.
type addEventRequest struct {
	Node    int    `json:"node" validate:"gte=0"`
	Type    int    `json:"type" validate:"required"`
	Payload string `json:"payload" validate:"required,max=255"`
}

// addNodeRequest carries the flags for a new node.
type addNodeRequest struct {
	Mining    bool `json:"mining"`
	Malicious bool `json:"malicious"`
}

// toBlock constructs a block view from a ledger block.
func toBlock(blk *ledger.Block) block {
	events := make([]event, len(blk.Events))
	for i, evt := range blk.Events {
		events[i] = event{
			Type:      evt.Type,
			Payload:   string(evt.Payload),
			TimeStamp: evt.TimeStamp,
			Hash:      evt.Hash,
			Valid:     evt.Valid,
		}
	}

	return block{
		Index:         blk.Index,
		TimeStamp:     blk.TimeStamp,
		PrevBlockHash: blk.PrevBlockHash,
		MerkleRoot:    blk.MerkleRoot,
		Nonce:         blk.Nonce,
		Hash:          blk.Hash,
		ContentHash:   blk.ContentHash(),
		Events:        events,
	}
}
