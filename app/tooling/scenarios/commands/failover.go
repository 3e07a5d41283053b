package commands

import (
	"log"
	"time"

	"github.com/ardanlabs/chainsim/foundation/simulator/worker"
	"github.com/spf13/cobra"
)

// failoverCmd stops a node, lets the network move on without it and shows
// the restart resynchronizing the replica.
var failoverCmd = &cobra.Command{
	Use:   "failover",
	Short: "Stop a node, extend the chain, restart and resynchronize",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runFailover(); err != nil {
			log.Fatal(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(failoverCmd)
}

func runFailover() error {
	net, zlog, err := newNetwork("failover")
	if err != nil {
		return err
	}
	defer net.Shutdown()

	ev := func(v string, args ...any) {}

	for i := 0; i < 3; i++ {
		n, err := net.AddNode(true, false)
		if err != nil {
			return err
		}
		worker.Run(net, n, ev)
	}

	net.StopNode(0)
	zlog.Infow("node stopped", "node", 0, "blocks", net.Node(0).Chain.BlockCount())

	// Let the survivors extend the chain past the stopped replica.
	stopped := net.Node(0).Chain.BlockCount()
	deadline := time.Now().Add(runFor)
	for net.Node(1).Chain.BlockCount() <= stopped && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}

	net.StartNode(0)
	zlog.Infow("node restarted", "node", 0, "blocks", net.Node(0).Chain.BlockCount())

	net.Shutdown()

	for _, n := range net.Nodes() {
		zlog.Infow("replica", "node", n.ID, "blocks", n.Chain.BlockCount(), "tip", n.Chain.LastBlock().Hash)
	}

	return nil
}
