package network_test

import (
	"context"
	"testing"

	"github.com/ardanlabs/chainsim/foundation/simulator/genesis"
	"github.com/ardanlabs/chainsim/foundation/simulator/ledger"
	"github.com/ardanlabs/chainsim/foundation/simulator/network"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

// =============================================================================

// testGenesis keeps mining fast for the tests.
func testGenesis() genesis.Genesis {
	gen := genesis.Default()
	gen.Difficulty = 1
	gen.MiningBackoffMS = 1
	gen.LoopDelayMS = 5
	return gen
}

// mineNext solves and commits the next block on a node's chain, returning
// the broadcastable clone.
func mineNext(t *testing.T, n *network.Node, gen genesis.Genesis) *ledger.Block {
	t.Helper()

	candidate := n.Chain.MiningCandidate()

	ev := func(v string, args ...any) {}
	if err := candidate.POW(context.Background(), gen.Difficulty, gen.PowYieldTrials, gen.MiningBackoff(), ev); err != nil {
		t.Fatalf("\t%s\tShould be able to solve the proof of work: %v", failed, err)
	}

	committed, ok := n.Chain.CommitMined(candidate)
	if !ok {
		t.Fatalf("\t%s\tShould be able to commit the mined candidate.", failed)
	}

	return committed
}

// =============================================================================

func Test_Registry(t *testing.T) {
	t.Log("Given the need to validate the node registry.")
	{
		t.Logf("\tTest 0:\tWhen adding nodes up to the bound.")
		{
			gen := testGenesis()
			gen.MaxNodes = 2

			net := network.New(network.Config{Genesis: gen})
			defer net.Shutdown()

			n0, err := net.AddNode(true, false)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to add the first node: %v", failed, err)
			}
			n1, err := net.AddNode(false, true)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to add the second node: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to add nodes up to the bound.", success)

			if n0.ID != 0 || n1.ID != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould assign ids matching registry order: %d, %d", failed, n0.ID, n1.ID)
			}
			t.Logf("\t%s\tTest 0:\tShould assign ids matching registry order.", success)

			if _, err := net.AddNode(false, false); err != network.ErrNetworkFull {
				t.Fatalf("\t%s\tTest 0:\tShould refuse a node past the bound: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould refuse a node past the bound.", success)

			if n0.Chain.Genesis().Hash != n1.Chain.Genesis().Hash {
				t.Fatalf("\t%s\tTest 0:\tShould give every replica an identical genesis block.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould give every replica an identical genesis block.", success)
		}

		t.Logf("\tTest 1:\tWhen stopping and starting unknown ids.")
		{
			net := network.New(network.Config{Genesis: testGenesis()})
			defer net.Shutdown()

			// Both must be silently ignored.
			net.StopNode(42)
			net.StartNode(-1)
			t.Logf("\t%s\tTest 1:\tShould silently ignore unknown node ids.", success)
		}
	}
}

func Test_Broadcast(t *testing.T) {
	t.Log("Given the need to validate block broadcast.")
	{
		t.Logf("\tTest 0:\tWhen broadcasting a mined block to the network.")
		{
			gen := testGenesis()
			net := network.New(network.Config{Genesis: gen})
			defer net.Shutdown()

			for i := 0; i < 3; i++ {
				if _, err := net.AddNode(false, false); err != nil {
					t.Fatalf("\t%s\tTest 0:\tShould be able to add node %d: %v", failed, i, err)
				}
			}

			miner := net.Node(0)
			if err := miner.Chain.AppendEvent(ledger.EventTypeTransfer, []byte(`{"from":"System","to":"Alice","amount":100}`)); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to append an event: %v", failed, err)
			}

			committed := mineNext(t, miner, gen)
			net.Broadcast(committed, miner.ID)

			for _, n := range net.Nodes() {
				if n.Chain.BlockCount() != 2 {
					t.Fatalf("\t%s\tTest 0:\tShould have two blocks on node %d: got %d", failed, n.ID, n.Chain.BlockCount())
				}
				if n.Chain.LastBlock().Hash != committed.Hash {
					t.Fatalf("\t%s\tTest 0:\tShould have the mined block as the tip on node %d.", failed, n.ID)
				}
			}
			t.Logf("\t%s\tTest 0:\tShould have every replica holding the mined block.", success)

			if !net.HasConsensus(committed) {
				t.Fatalf("\t%s\tTest 0:\tShould have consensus on the mined block.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould have consensus on the mined block.", success)
		}

		t.Logf("\tTest 1:\tWhen an inactive node is skipped.")
		{
			gen := testGenesis()
			net := network.New(network.Config{Genesis: gen})
			defer net.Shutdown()

			for i := 0; i < 3; i++ {
				if _, err := net.AddNode(false, false); err != nil {
					t.Fatalf("\t%s\tTest 1:\tShould be able to add node %d: %v", failed, i, err)
				}
			}

			net.StopNode(2)

			committed := mineNext(t, net.Node(0), gen)
			net.Broadcast(committed, 0)

			if count := net.Node(2).Chain.BlockCount(); count != 1 {
				t.Fatalf("\t%s\tTest 1:\tShould not deliver to an inactive node: blocks %d", failed, count)
			}
			t.Logf("\t%s\tTest 1:\tShould not deliver to an inactive node.", success)

			if count := net.Node(1).Chain.BlockCount(); count != 2 {
				t.Fatalf("\t%s\tTest 1:\tShould still deliver to active nodes: blocks %d", failed, count)
			}
			t.Logf("\t%s\tTest 1:\tShould still deliver to active nodes.", success)
		}
	}
}

func Test_TamperConsensus(t *testing.T) {
	t.Log("Given the need to expose a tampered replica through consensus.")
	{
		t.Logf("\tTest 0:\tWhen a malicious node rewrites a committed transfer.")
		{
			gen := testGenesis()
			net := network.New(network.Config{Genesis: gen})
			defer net.Shutdown()

			for i := 0; i < 3; i++ {
				malicious := i == 2
				if _, err := net.AddNode(false, malicious); err != nil {
					t.Fatalf("\t%s\tTest 0:\tShould be able to add node %d: %v", failed, i, err)
				}
			}

			miner := net.Node(0)
			if err := miner.Chain.AppendEvent(ledger.EventTypeTransfer, []byte(`{"from":"System","to":"Alice","amount":100}`)); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to append an event: %v", failed, err)
			}

			committed := mineNext(t, miner, gen)
			net.Broadcast(committed, miner.ID)

			victim := net.Node(2)
			if !victim.Chain.Tamper([]byte(`{"from":"System","to":"Mallory","amount":1000000}`)) {
				t.Fatalf("\t%s\tTest 0:\tShould be able to tamper with the replica.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to tamper with the replica.", success)

			tampered := victim.Chain.Blocks()[1]
			if net.HasConsensus(tampered) {
				t.Fatalf("\t%s\tTest 0:\tShould have no consensus on the tampered block.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould have no consensus on the tampered block.", success)

			if !net.HasConsensus(committed) {
				t.Fatalf("\t%s\tTest 0:\tShould keep consensus on the untampered block.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould keep consensus on the untampered block.", success)

			if err := victim.Chain.Validate(); err == nil {
				t.Fatalf("\t%s\tTest 0:\tShould fail validation on the tampered replica.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould fail validation on the tampered replica.", success)
		}
	}
}

func Test_Synchronize(t *testing.T) {
	t.Log("Given the need to validate node recovery.")
	{
		t.Logf("\tTest 0:\tWhen a stopped node rejoins the network.")
		{
			gen := testGenesis()
			net := network.New(network.Config{Genesis: gen})
			defer net.Shutdown()

			for i := 0; i < 3; i++ {
				if _, err := net.AddNode(false, false); err != nil {
					t.Fatalf("\t%s\tTest 0:\tShould be able to add node %d: %v", failed, i, err)
				}
			}

			net.StopNode(0)

			// The survivors extend the chain twice while node 0 is down.
			for i := 0; i < 2; i++ {
				committed := mineNext(t, net.Node(1), gen)
				net.Broadcast(committed, 1)
			}

			if count := net.Node(0).Chain.BlockCount(); count != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould have left the stopped node behind: blocks %d", failed, count)
			}
			t.Logf("\t%s\tTest 0:\tShould have left the stopped node behind.", success)

			net.StartNode(0)

			if count := net.Node(0).Chain.BlockCount(); count != 3 {
				t.Fatalf("\t%s\tTest 0:\tShould have adopted the longest chain: blocks %d", failed, count)
			}
			t.Logf("\t%s\tTest 0:\tShould have adopted the longest chain.", success)

			if net.Node(0).Chain.LastBlock().Hash != net.Node(1).Chain.LastBlock().Hash {
				t.Fatalf("\t%s\tTest 0:\tShould share the network tip after recovery.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould share the network tip after recovery.", success)

			if err := net.Node(0).Chain.Validate(); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould hold a valid chain after recovery: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould hold a valid chain after recovery.", success)
		}

		t.Logf("\tTest 1:\tWhen the node already holds the longest chain.")
		{
			gen := testGenesis()
			net := network.New(network.Config{Genesis: gen})
			defer net.Shutdown()

			for i := 0; i < 2; i++ {
				if _, err := net.AddNode(false, false); err != nil {
					t.Fatalf("\t%s\tTest 1:\tShould be able to add node %d: %v", failed, i, err)
				}
			}

			mineNext(t, net.Node(0), gen)
			tip := net.Node(0).Chain.LastBlock().Hash

			net.Synchronize(net.Node(0))

			if net.Node(0).Chain.BlockCount() != 2 || net.Node(0).Chain.LastBlock().Hash != tip {
				t.Fatalf("\t%s\tTest 1:\tShould leave the longest chain untouched.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould leave the longest chain untouched.", success)
		}
	}
}

func Test_ConsensusThreshold(t *testing.T) {
	t.Log("Given the need to validate the consensus threshold.")
	{
		t.Logf("\tTest 0:\tWhen exactly half the active nodes hold a block.")
		{
			gen := testGenesis()
			net := network.New(network.Config{Genesis: gen})
			defer net.Shutdown()

			for i := 0; i < 2; i++ {
				if _, err := net.AddNode(false, false); err != nil {
					t.Fatalf("\t%s\tTest 0:\tShould be able to add node %d: %v", failed, i, err)
				}
			}

			// Only node 0 commits the block; node 1 never sees it.
			committed := mineNext(t, net.Node(0), gen)

			if net.HasConsensus(committed) {
				t.Fatalf("\t%s\tTest 0:\tShould have no consensus at one half.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould have no consensus at one half.", success)

			net.Broadcast(committed, 0)

			if !net.HasConsensus(committed) {
				t.Fatalf("\t%s\tTest 0:\tShould have consensus once every node holds the block.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould have consensus once every node holds the block.", success)
		}
	}
}
