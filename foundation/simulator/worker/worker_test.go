package worker_test

import (
	"testing"
	"time"

	"github.com/ardanlabs/chainsim/foundation/simulator/genesis"
	"github.com/ardanlabs/chainsim/foundation/simulator/network"
	"github.com/ardanlabs/chainsim/foundation/simulator/worker"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

// =============================================================================

// testGenesis keeps mining fast so the end to end tests settle quickly.
func testGenesis() genesis.Genesis {
	gen := genesis.Default()
	gen.Difficulty = 1
	gen.MiningBackoffMS = 1
	gen.LoopDelayMS = 5
	return gen
}

// waitFor polls the condition until it holds or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool) bool {
	t.Helper()

	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

// =============================================================================

func Test_MinerPropagation(t *testing.T) {
	t.Log("Given the need to validate the mining loop end to end.")
	{
		t.Logf("\tTest 0:\tWhen one miner runs against a passive peer.")
		{
			net := network.New(network.Config{Genesis: testGenesis()})
			defer net.Shutdown()

			ev := func(v string, args ...any) {}

			miner, err := net.AddNode(true, false)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to add the miner: %v", failed, err)
			}
			peer, err := net.AddNode(false, false)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to add the peer: %v", failed, err)
			}

			worker.Run(net, miner, ev)
			worker.Run(net, peer, ev)

			ok := waitFor(t, 10*time.Second, func() bool {
				return peer.Chain.BlockCount() >= 3
			})
			if !ok {
				t.Fatalf("\t%s\tTest 0:\tShould see mined blocks arrive at the peer: blocks %d", failed, peer.Chain.BlockCount())
			}
			t.Logf("\t%s\tTest 0:\tShould see mined blocks arrive at the peer.", success)

			net.Shutdown()

			if miner.Chain.LastBlock().Hash != peer.Chain.LastBlock().Hash {
				t.Fatalf("\t%s\tTest 0:\tShould hold the same tip on both replicas after quiescence.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould hold the same tip on both replicas after quiescence.", success)

			tip := miner.Chain.LastBlock()
			if !net.HasConsensus(tip) {
				t.Fatalf("\t%s\tTest 0:\tShould have consensus on the tip.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould have consensus on the tip.", success)

			if err := peer.Chain.Validate(); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould hold a valid replica on the peer: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould hold a valid replica on the peer.", success)
		}
	}
}

func Test_StopAndRecover(t *testing.T) {
	t.Log("Given the need to validate node failure and recovery.")
	{
		t.Logf("\tTest 0:\tWhen a node misses blocks while stopped.")
		{
			net := network.New(network.Config{Genesis: testGenesis()})
			defer net.Shutdown()

			ev := func(v string, args ...any) {}

			flaky, err := net.AddNode(false, false)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to add the flaky node: %v", failed, err)
			}
			miner, err := net.AddNode(true, false)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to add the miner: %v", failed, err)
			}
			observer, err := net.AddNode(false, false)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to add the observer: %v", failed, err)
			}

			worker.Run(net, flaky, ev)
			worker.Run(net, miner, ev)
			worker.Run(net, observer, ev)

			net.StopNode(flaky.ID)
			behind := flaky.Chain.BlockCount()

			ok := waitFor(t, 10*time.Second, func() bool {
				return observer.Chain.BlockCount() > behind
			})
			if !ok {
				t.Fatalf("\t%s\tTest 0:\tShould see the network extend the chain without the stopped node.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould see the network extend the chain without the stopped node.", success)

			if count := flaky.Chain.BlockCount(); count != behind {
				t.Fatalf("\t%s\tTest 0:\tShould not have delivered blocks to the stopped node: blocks %d", failed, count)
			}
			t.Logf("\t%s\tTest 0:\tShould not have delivered blocks to the stopped node.", success)

			net.StartNode(flaky.ID)

			// The restart synchronizes against the longest replica; the
			// network keeps mining, so compare against a fresh snapshot.
			ok = waitFor(t, 10*time.Second, func() bool {
				return flaky.Chain.BlockCount() >= observer.Chain.BlockCount()
			})
			if !ok {
				t.Fatalf("\t%s\tTest 0:\tShould catch the restarted node up to the network: flaky %d observer %d", failed, flaky.Chain.BlockCount(), observer.Chain.BlockCount())
			}
			t.Logf("\t%s\tTest 0:\tShould catch the restarted node up to the network.", success)

			net.Shutdown()

			if flaky.Chain.LastBlock().Hash != miner.Chain.LastBlock().Hash {
				t.Fatalf("\t%s\tTest 0:\tShould share the network tip after recovery.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould share the network tip after recovery.", success)
		}
	}
}

func Test_WorkerLifecycle(t *testing.T) {
	t.Log("Given the need to validate worker start and shutdown.")
	{
		t.Logf("\tTest 0:\tWhen starting and stopping a worker repeatedly.")
		{
			net := network.New(network.Config{Genesis: testGenesis()})
			defer net.Shutdown()

			n, err := net.AddNode(false, false)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to add a node: %v", failed, err)
			}

			w := worker.Run(net, n, nil)

			if n.Worker == nil {
				t.Fatalf("\t%s\tTest 0:\tShould register the worker with its node.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould register the worker with its node.", success)

			w.Shutdown()
			w.Shutdown() // A second shutdown must be a no-op.
			t.Logf("\t%s\tTest 0:\tShould tolerate a double shutdown.", success)

			w.Start()
			w.Start() // A second start must be a no-op.
			t.Logf("\t%s\tTest 0:\tShould tolerate a double start.", success)

			w.Shutdown()
			t.Logf("\t%s\tTest 0:\tShould stop cleanly after a restart.", success)
		}
	}
}
