package commands

import (
	"log"
	"time"

	"github.com/ardanlabs/chainsim/foundation/simulator/worker"
	"github.com/spf13/cobra"
)

// raceCmd runs two honest miners against the same chain and reports how
// the replicas converged.
var raceCmd = &cobra.Command{
	Use:   "race",
	Short: "Two honest miners race to extend the same chain",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runRace(); err != nil {
			log.Fatal(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(raceCmd)
}

func runRace() error {
	net, zlog, err := newNetwork("race")
	if err != nil {
		return err
	}
	defer net.Shutdown()

	ev := func(v string, args ...any) {}

	for i := 0; i < 3; i++ {
		mining := i < 2

		n, err := net.AddNode(mining, false)
		if err != nil {
			return err
		}
		worker.Run(net, n, ev)
	}

	time.Sleep(runFor)
	net.Shutdown()

	for _, n := range net.Nodes() {
		tip := n.Chain.LastBlock()
		zlog.Infow("replica", "node", n.ID, "blocks", n.Chain.BlockCount(), "tip", tip.Hash)
	}

	tip := net.Node(0).Chain.LastBlock()
	zlog.Infow("consensus on node 0 tip", "hash", tip.Hash, "consensus", net.HasConsensus(tip))

	return nil
}
