// Package merkle builds the merkle root summarizing the ordered set of
// event hashes sealed into a block. Trees are ephemeral: they exist only
// while a root is being computed.
package merkle

import (
	"github.com/ardanlabs/chainsim/foundation/simulator/digest"
)

// Node represents a node, root, or leaf in the merkle tree. A leaf carries
// an event hash; an internal node always has exactly two children and
// carries the hash of the concatenation of their hashes.
type Node struct {
	Hash  string
	Left  *Node
	Right *Node
}

// RootHex computes the merkle root for the ordered list of leaf hashes.
// No leaves produce the zero hash and a single leaf is its own root. An odd
// number of leaves is promoted by duplicating the last hash into the
// missing sibling position.
func RootHex(hashFn digest.Func, leafHashes []string) string {
	switch len(leafHashes) {
	case 0:
		return digest.Zero
	case 1:
		return leafHashes[0]
	}

	leafs := make([]*Node, 0, len(leafHashes)+1)
	for _, hash := range leafHashes {
		leafs = append(leafs, &Node{Hash: hash})
	}

	if len(leafs)%2 == 1 {
		leafs = append(leafs, &Node{Hash: leafs[len(leafs)-1].Hash})
	}

	return buildIntermediate(hashFn, leafs).Hash
}

// buildIntermediate constructs the next level of the tree for a given list
// of nodes and recurses until a single root remains. A node left without a
// sibling at any level is paired with itself.
func buildIntermediate(hashFn digest.Func, nl []*Node) *Node {
	var nodes []*Node

	for i := 0; i < len(nl); i += 2 {
		left, right := i, i+1
		if i+1 == len(nl) {
			right = i
		}

		n := Node{
			Left:  nl[left],
			Right: nl[right],
			Hash:  hashFn([]byte(nl[left].Hash + nl[right].Hash)),
		}

		nodes = append(nodes, &n)

		if len(nl) == 2 {
			return &n
		}
	}

	return buildIntermediate(hashFn, nodes)
}
